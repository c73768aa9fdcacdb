package store

import (
	"context"
	"time"

	"guildmint/internal/models"

	"github.com/shopspring/decimal"
)

// SettlementStore defines the persistence contract the engine components rely
// on. The SQLite service is the only implementation; the interface exists so
// the compile-time check keeps the surface honest and tests can fake narrow
// slices of it.
type SettlementStore interface {
	// --- Currencies ---
	CreateCurrency(ctx context.Context, guildId int64, name, ticker string) (*models.Currency, error)
	GetCurrencyByTicker(ctx context.Context, ticker string) (*models.Currency, error)
	GetCurrencyById(ctx context.Context, id int64) (*models.Currency, error)
	ListCurrencies(ctx context.Context) ([]models.Currency, error)

	// --- Accounts ---
	GetBalance(ctx context.Context, ownerId, currencyId int64) (decimal.Decimal, error)
	GetAccount(ctx context.Context, ownerId, currencyId int64) (*models.Account, error)
	GetAccountById(ctx context.Context, accountId string) (*models.Account, error)
	ListAccounts(ctx context.Context, ownerId int64) ([]models.Account, error)

	// --- Swaps ---
	GetSwap(ctx context.Context, swapId int64) (*models.Swap, error)
	ListOpenSwaps(ctx context.Context) ([]models.Swap, error)
	ListPendingSwapsForAccount(ctx context.Context, accountId string, asMaker bool) ([]models.Swap, error)

	// --- Transactions ---
	GetTransaction(ctx context.Context, uuid string) (*models.Transaction, error)
	TransactionHistory(ctx context.Context, accountId string, limit, offset int) ([]models.Transaction, error)

	// --- Trade log ---
	LatestPrice(ctx context.Context, baseCurrencyId, quoteCurrencyId int64) (*decimal.Decimal, error)
	VWAP(ctx context.Context, baseCurrencyId, quoteCurrencyId int64, window time.Duration) (*decimal.Decimal, error)

	// --- Tax ---
	GetTaxAccount(ctx context.Context, currencyId int64) (*models.TaxAccount, error)
	SetTaxPercentage(ctx context.Context, currencyId int64, percentage int) error
	CollectTax(ctx context.Context, currencyId int64, requested *decimal.Decimal, destOwnerId int64) (decimal.Decimal, error)

	// --- Credentials ---
	UpsertCredential(ctx context.Context, currencyId int64, apiType int, encryptedToken string) error
	GetCredential(ctx context.Context, currencyId int64, apiType int) (*models.ApiCredential, error)

	// --- Lifecycle ---
	Close()
}
