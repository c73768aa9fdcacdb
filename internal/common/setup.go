package common

import (
	"context"
	"log"
	"strings"

	"guildmint/internal/api"
	"guildmint/internal/database"
	"guildmint/internal/extbank"
	"guildmint/internal/models"
	"guildmint/internal/ratelimit"
	"guildmint/internal/swap"
	"guildmint/internal/wire"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	SwapEngine *swap.Engine
	Bridge     *wire.Bridge
	Settlement *api.SettlementService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	partnerLimiter := ratelimit.NewSlidingWindow(cfg.Bridge.RequestsPerWindow, cfg.Bridge.Window)
	partnerClient, err := extbank.NewClient(cfg.Bridge.BaseURL, partnerLimiter)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	swapEngine := swap.NewEngine(dbService)
	bridge := wire.NewBridge(dbService, partnerClient, cfg.Bridge.EncryptionKey)
	settlement := api.NewSettlementService(dbService, swapEngine, bridge, cfg.Throttle)

	return &Services{
		DbService:  dbService,
		SwapEngine: swapEngine,
		Bridge:     bridge,
		Settlement: settlement,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the
// partner client. Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
