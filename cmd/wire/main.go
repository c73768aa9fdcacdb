package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"guildmint/internal/common"
	"guildmint/internal/config"
	"guildmint/internal/store"
	"guildmint/internal/wire"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printResult(direction string, result *wire.Result) {
	fmt.Printf("Wire %s complete\n", direction)
	fmt.Printf("│  local balance:  %s\n", result.LocalBalance.String())
	fmt.Printf("└  partner bank:   %d\n", result.RemoteBank)
}

func runWire(ctx context.Context, services *common.Services, direction string, owner int64, ticker, amount string) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", amount), zap.Error(err))
	}

	var result *wire.Result
	switch direction {
	case "in":
		result, err = services.Settlement.WireIn(ctx, owner, ticker, value)
	case "out":
		result, err = services.Settlement.WireOut(ctx, owner, ticker, value)
	default:
		zap.L().Fatal("Unknown direction", zap.String("direction", direction))
	}
	if err != nil {
		if errors.Is(err, store.ErrCompensationFailed) {
			// Operator intervention needed: the saga log carries the details.
			zap.L().Fatal("Wire failed and the local ledger could not be restored", zap.Error(err))
		}
		zap.L().Fatal("Wire failed", zap.Error(err))
	}

	printResult(direction, result)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	directionFlag := flag.String("direction", "", "Wire direction: in (partner to ledger) or out (ledger to partner)")
	ownerFlag := flag.Int64("owner", 0, "Owner id")
	tickerFlag := flag.String("ticker", "", "Currency ticker")
	amountFlag := flag.String("amount", "", "Amount in whole units")
	flag.Parse()

	if *directionFlag == "" || *ownerFlag == 0 || *tickerFlag == "" || *amountFlag == "" {
		zap.L().Fatal("The -direction, -owner, -ticker and -amount flags are all required")
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

	runWire(ctx, services, *directionFlag, *ownerFlag, *tickerFlag, *amountFlag)
}
