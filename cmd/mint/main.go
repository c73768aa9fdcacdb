package main

import (
	"context"
	"flag"
	"fmt"

	"guildmint/internal/common"
	"guildmint/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ownerFlag := flag.Int64("owner", 0, "Owner id receiving the minted units (required)")
	tickerFlag := flag.String("ticker", "", "Currency ticker (required)")
	amountFlag := flag.String("amount", "", "Amount to mint; negative retires units (required)")
	flag.Parse()

	if *ownerFlag == 0 || *tickerFlag == "" || *amountFlag == "" {
		zap.L().Fatal("The -owner, -ticker and -amount flags are all required")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", *amountFlag), zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	result, err := services.Settlement.Mint(ctx, *ownerFlag, *tickerFlag, amount)
	if err != nil {
		zap.L().Fatal("Mint failed", zap.Error(err))
	}

	fmt.Printf("Minted %s %s for owner %d, new balance %s\n",
		result.Amount.String(), result.Ticker, result.OwnerId, result.NewBalance.String())
}
