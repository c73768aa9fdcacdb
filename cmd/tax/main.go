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

func runSetRate(ctx context.Context, services *common.Services, ticker string, percentage int) {
	if err := services.Settlement.SetTaxPercentage(ctx, ticker, percentage); err != nil {
		zap.L().Fatal("Failed to set tax percentage",
			zap.String("ticker", ticker),
			zap.Int("percentage", percentage),
			zap.Error(err))
	}
	fmt.Printf("Tax percentage for %s set to %d%%\n", ticker, percentage)
}

func runCollect(ctx context.Context, services *common.Services, ticker, amount string, dest int64) {
	var requested *decimal.Decimal
	if amount != "" {
		value, err := decimal.NewFromString(amount)
		if err != nil {
			zap.L().Fatal("Invalid amount", zap.String("amount", amount), zap.Error(err))
		}
		requested = &value
	}

	collected, err := services.Settlement.CollectTax(ctx, ticker, requested, dest)
	if err != nil {
		zap.L().Fatal("Failed to collect tax",
			zap.String("ticker", ticker),
			zap.Error(err))
	}
	fmt.Printf("Collected %s %s into owner %d\n", collected.String(), ticker, dest)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	actionFlag := flag.String("action", "", "One of: set-rate, collect")
	tickerFlag := flag.String("ticker", "", "Currency ticker (required)")
	rateFlag := flag.Int("rate", 0, "Withholding percentage for set-rate (0-100)")
	amountFlag := flag.String("amount", "", "Amount to collect (empty drains the pool)")
	destFlag := flag.Int64("dest", 0, "Owner id receiving the collected tax")
	flag.Parse()

	if *tickerFlag == "" {
		zap.L().Fatal("The -ticker flag is required")
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

	switch *actionFlag {
	case "set-rate":
		runSetRate(ctx, services, *tickerFlag, *rateFlag)
	case "collect":
		if *destFlag == 0 {
			zap.L().Fatal("The -dest flag is required for collect")
		}
		runCollect(ctx, services, *tickerFlag, *amountFlag, *destFlag)
	default:
		zap.L().Fatal("Unknown action", zap.String("action", *actionFlag))
	}
}
