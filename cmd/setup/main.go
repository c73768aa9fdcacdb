package main

import (
	"context"
	"errors"
	"flag"

	"guildmint/internal/common"
	"guildmint/internal/config"
	"guildmint/internal/store"

	"go.uber.org/zap"
)

func seedCurrencies(ctx context.Context, services *common.Services, currenciesFile string) {
	zap.L().Info("Loading currency configuration", zap.String("file", currenciesFile))
	currencyConfigs, err := common.LoadCurrencyConfig(currenciesFile)
	if err != nil {
		zap.L().Fatal("Failed to load currency config", zap.Error(err))
	}
	zap.L().Info("Currency configuration loaded", zap.Int("count", len(currencyConfigs)))

	var created, skipped, failed int
	for _, currencyConfig := range currencyConfigs {
		_, err := services.Settlement.CreateCurrency(ctx, currencyConfig.GuildId, currencyConfig.Name, currencyConfig.Ticker)
		if err != nil {
			var validationErr *store.ValidationError
			if errors.As(err, &validationErr) {
				zap.L().Info("Currency already registered, skipping",
					zap.String("ticker", currencyConfig.Ticker),
					zap.String("reason", validationErr.Msg))
				skipped++
				continue
			}
			zap.L().Error("Failed to create currency",
				zap.String("ticker", currencyConfig.Ticker),
				zap.Error(err))
			failed++
			continue
		}
		created++
	}

	if failed > 0 {
		zap.L().Warn("Currency seeding completed with failures",
			zap.Int("created", created),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed))
	} else {
		zap.L().Info("Currency seeding completed",
			zap.Int("created", created),
			zap.Int("skipped", skipped))
	}
}

func provisionCredential(ctx context.Context, services *common.Services, ticker, token string) {
	if err := services.Settlement.SetPartnerCredential(ctx, ticker, token); err != nil {
		zap.L().Fatal("Failed to store partner credential",
			zap.String("ticker", ticker),
			zap.Error(err))
	}
	zap.L().Info("Partner credential stored", zap.String("ticker", ticker))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	currenciesFlag := flag.String("currencies", "currencies.yaml", "Currency seed file")
	tickerFlag := flag.String("ticker", "", "Currency ticker to provision a partner token for")
	tokenFlag := flag.String("token", "", "Partner API token to encrypt and store")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	seedCurrencies(ctx, services, *currenciesFlag)

	if *tickerFlag != "" && *tokenFlag != "" {
		provisionCredential(ctx, services, *tickerFlag, *tokenFlag)
	}
}
