/**
 * Copyright 2025-present Guildmint Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"guildmint/internal/crypto"
	"guildmint/internal/database"
	"guildmint/internal/extbank"
	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApiTypePartnerBank identifies the partner balance service in the
// credential table. New partner integrations get their own constant.
const ApiTypePartnerBank = 1

// Bridge moves value between the local ledger and the partner balance
// service. Each wire is a two-phase saga: the local leg commits first, then
// the partner call runs; a failed partner call triggers a compensating
// transaction that restores the snapshot taken before the local commit.
type Bridge struct {
	db            *database.Service
	client        *extbank.Client
	encryptionKey string
}

func NewBridge(db *database.Service, client *extbank.Client, encryptionKey string) *Bridge {
	return &Bridge{db: db, client: client, encryptionKey: encryptionKey}
}

// Result reports both sides of a completed wire.
type Result struct {
	LocalBalance decimal.Decimal
	RemoteBank   int64
}

// SetCredential encrypts and stores a partner token for a currency. The
// plaintext is never persisted.
func (b *Bridge) SetCredential(ctx context.Context, ticker, token string) error {
	if token == "" {
		return store.Validationf("partner token cannot be empty")
	}
	if b.encryptionKey == "" {
		return &store.ConfigError{Msg: "TOKEN_ENCRYPTION_KEY is not configured"}
	}

	currency, err := b.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return err
	}

	encrypted, err := crypto.EncryptToken(token, b.encryptionKey)
	if err != nil {
		return &store.ConfigError{Msg: fmt.Sprintf("unable to encrypt partner token: %v", err)}
	}
	return b.db.UpsertCredential(ctx, currency.Id, ApiTypePartnerBank, encrypted)
}

// WireIn moves amount from the owner's partner bank into their local
// account. The partner API only carries whole units, so fractional amounts
// are rejected rather than silently truncated.
func (b *Bridge) WireIn(ctx context.Context, ownerId int64, ticker string, amount decimal.Decimal) (*Result, error) {
	currency, token, units, err := b.prepare(ctx, ticker, amount)
	if err != nil {
		return nil, err
	}

	// The partner is the source: confirm the funds exist before touching
	// the local ledger. An unknown user simply has nothing banked.
	remote, err := b.client.GetBalance(ctx, token, currency.GuildId, ownerId)
	if err != nil {
		var apiErr *store.ExternalAPIError
		if errors.As(err, &apiErr) && apiErr.Kind == store.ExternalNotFound {
			remote = &models.RemoteBalance{}
		} else {
			return nil, err
		}
	}
	if remote.Bank < units {
		return nil, &store.InsufficientBalanceError{
			Ticker: currency.Ticker,
			Need:   amount,
			Have:   decimal.NewFromInt(remote.Bank),
		}
	}

	// Local leg: credit and commit before the partner call.
	var accountId string
	var snapshot, applied decimal.Decimal
	err = b.db.WithTx(ctx, "wire in", func(tx *sql.Tx) error {
		account, err := b.db.GetOrCreateAccountTx(ctx, tx, ownerId, currency.Id)
		if err != nil {
			return err
		}
		accountId = account.Id
		snapshot = account.Balance
		applied, err = b.db.AdjustTx(ctx, tx, account.Id, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Wire saga applied",
		zap.String("direction", "in"),
		zap.String("account_id", accountId),
		zap.String("amount", amount.String()),
		zap.String("ticker", currency.Ticker))

	// Partner leg: debit their bank by the same amount.
	delta := -units
	confirmed, err := b.client.ModifyBalance(ctx, token, currency.GuildId, ownerId, models.BalanceModifyRequest{Bank: &delta})
	if err != nil {
		return nil, b.compensate(ctx, "in", accountId, snapshot, err)
	}

	zap.L().Info("Wire saga confirmed",
		zap.String("direction", "in"),
		zap.String("account_id", accountId),
		zap.Int64("remote_bank", confirmed.Bank))
	return &Result{LocalBalance: applied, RemoteBank: confirmed.Bank}, nil
}

// WireOut moves amount from the owner's local account to their partner
// bank. The local debit commits first; a failed partner credit rolls the
// ledger back to the snapshot.
func (b *Bridge) WireOut(ctx context.Context, ownerId int64, ticker string, amount decimal.Decimal) (*Result, error) {
	currency, token, units, err := b.prepare(ctx, ticker, amount)
	if err != nil {
		return nil, err
	}

	var accountId string
	var snapshot, applied decimal.Decimal
	err = b.db.WithTx(ctx, "wire out", func(tx *sql.Tx) error {
		account, err := b.db.GetAccountTx(ctx, tx, ownerId, currency.Id)
		if err != nil {
			return err
		}
		if account == nil || account.Balance.LessThan(amount) {
			have := decimal.Zero
			if account != nil {
				have = account.Balance
			}
			return &store.InsufficientBalanceError{
				Ticker: currency.Ticker,
				Need:   amount,
				Have:   have,
			}
		}
		accountId = account.Id
		snapshot = account.Balance
		applied, err = b.db.AdjustTx(ctx, tx, account.Id, amount.Neg())
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Wire saga applied",
		zap.String("direction", "out"),
		zap.String("account_id", accountId),
		zap.String("amount", amount.String()),
		zap.String("ticker", currency.Ticker))

	confirmed, err := b.client.ModifyBalance(ctx, token, currency.GuildId, ownerId, models.BalanceModifyRequest{Bank: &units})
	if err != nil {
		return nil, b.compensate(ctx, "out", accountId, snapshot, err)
	}

	zap.L().Info("Wire saga confirmed",
		zap.String("direction", "out"),
		zap.String("account_id", accountId),
		zap.Int64("remote_bank", confirmed.Bank))
	return &Result{LocalBalance: applied, RemoteBank: confirmed.Bank}, nil
}

// prepare validates the amount, resolves the currency and decrypts its
// partner credential. Wire amounts must be positive whole units because the
// partner side is integral.
func (b *Bridge) prepare(ctx context.Context, ticker string, amount decimal.Decimal) (*models.Currency, string, int64, error) {
	if amount.Sign() <= 0 {
		return nil, "", 0, store.Validationf("wire amount must be positive")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return nil, "", 0, store.Validationf("wire amounts must be whole units, got %s", amount)
	}

	currency, err := b.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, "", 0, err
	}

	if b.encryptionKey == "" {
		return nil, "", 0, &store.ConfigError{Msg: "TOKEN_ENCRYPTION_KEY is not configured"}
	}
	credential, err := b.db.GetCredential(ctx, currency.Id, ApiTypePartnerBank)
	if err != nil {
		return nil, "", 0, err
	}
	if credential == nil {
		return nil, "", 0, &store.ConfigError{
			Msg: fmt.Sprintf("no partner credential provisioned for %s", currency.Ticker),
		}
	}
	token, err := crypto.DecryptToken(credential.EncryptedToken, b.encryptionKey)
	if err != nil {
		return nil, "", 0, &store.ConfigError{Msg: fmt.Sprintf("unable to decrypt partner token: %v", err)}
	}

	return currency, token, amount.IntPart(), nil
}

// compensate restores the local snapshot after a failed partner call. The
// restore is an absolute override, so replaying it cannot double-apply.
// When the restore itself fails the two ledgers are desynchronized and only
// an operator can fix it: that case is never retried automatically.
func (b *Bridge) compensate(ctx context.Context, direction, accountId string, snapshot decimal.Decimal, cause error) error {
	zap.L().Warn("Wire saga compensating",
		zap.String("direction", direction),
		zap.String("account_id", accountId),
		zap.String("snapshot", snapshot.String()),
		zap.Error(cause))

	err := b.db.WithTx(ctx, "wire compensation", func(tx *sql.Tx) error {
		return b.db.SetBalanceTx(ctx, tx, accountId, snapshot)
	})
	if err != nil {
		zap.L().Error("MANUAL RECONCILIATION REQUIRED: compensating transaction failed",
			zap.String("direction", direction),
			zap.String("account_id", accountId),
			zap.String("snapshot", snapshot.String()),
			zap.NamedError("partner_error", cause),
			zap.NamedError("compensation_error", err))
		return &store.CompensationFailureError{AccountId: accountId, Err: err}
	}

	zap.L().Info("Wire saga compensated",
		zap.String("direction", direction),
		zap.String("account_id", accountId))

	var apiErr *store.ExternalAPIError
	if errors.As(cause, &apiErr) {
		apiErr.Restored = true
	}
	return cause
}
