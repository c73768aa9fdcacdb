package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Swap status values. A swap is written as pending and flips exactly once to
// accepted or cancelled; expired is reserved for a future sweeper and is never
// produced by the engine itself.
const (
	SwapStatusPending   = "pending"
	SwapStatusAccepted  = "accepted"
	SwapStatusCancelled = "cancelled"
	SwapStatusExpired   = "expired"
)

// Currency is a guild-scoped currency. Ticker is unique across the whole
// system and immutable after creation.
type Currency struct {
	Id        int64     `db:"id"`
	GuildId   int64     `db:"guild_id"`
	Name      string    `db:"name"`
	Ticker    string    `db:"ticker"`
	CreatedAt time.Time `db:"created_at"`
}

// Account holds one owner's balance in one currency. Created lazily on first
// credit; never deleted.
type Account struct {
	Id         string          `db:"id"`
	OwnerId    int64           `db:"owner_id"`
	CurrencyId int64           `db:"currency_id"`
	Balance    decimal.Decimal `db:"balance"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// Swap is a two-party currency exchange. TakerAccountId is empty for an open
// swap until someone accepts it.
type Swap struct {
	Id              int64           `db:"id"`
	MakerAccountId  string          `db:"maker_account_id"`
	TakerAccountId  string          `db:"taker_account_id"`
	MakerCurrencyId int64           `db:"maker_currency_id"`
	TakerCurrencyId int64           `db:"taker_currency_id"`
	MakerAmount     decimal.Decimal `db:"maker_amount"`
	TakerAmount     decimal.Decimal `db:"taker_amount"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Transaction is an immutable audit record of one balance movement leg.
type Transaction struct {
	Uuid              string          `db:"uuid"`
	SenderAccountId   string          `db:"sender_account_id"`
	ReceiverAccountId string          `db:"receiver_account_id"`
	Amount            decimal.Decimal `db:"amount"`
	CreatedAt         time.Time       `db:"created_at"`
}

// TaxAccount is the per-currency withholding pool.
type TaxAccount struct {
	Id         int64           `db:"id"`
	CurrencyId int64           `db:"currency_id"`
	Balance    decimal.Decimal `db:"balance"`
	Percentage int             `db:"tax_percentage"`
}

// TradeLogEntry records the price of one settled swap for a canonical pair.
// Base and quote amounts are kept alongside the price so VWAP can be computed
// over a window without re-reading the swaps.
type TradeLogEntry struct {
	Id              int64           `db:"id"`
	BaseCurrencyId  int64           `db:"base_currency_id"`
	QuoteCurrencyId int64           `db:"quote_currency_id"`
	Price           decimal.Decimal `db:"price"`
	BaseAmount      decimal.Decimal `db:"base_amount"`
	QuoteAmount     decimal.Decimal `db:"quote_amount"`
	CreatedAt       time.Time       `db:"created_at"`
}

// ApiCredential is an encrypted partner token, one per (currency, api type).
type ApiCredential struct {
	CurrencyId     int64     `db:"currency_id"`
	ApiType        int       `db:"api_type"`
	EncryptedToken string    `db:"encrypted_token"`
	UpdatedAt      time.Time `db:"updated_at"`
}
