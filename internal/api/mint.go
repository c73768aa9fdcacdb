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

package api

import (
	"context"
	"database/sql"

	"guildmint/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxBalance caps any single holding at DECIMAL(24,8) range; a mint that
// would push a balance past it is refused.
var maxBalance = decimal.RequireFromString("999999999999999.99999999")

// MintResult reports an applied supply change.
type MintResult struct {
	OwnerId    int64
	Ticker     string
	Amount     decimal.Decimal
	NewBalance decimal.Decimal
}

// Mint adjusts the supply of a currency directly in an owner's account:
// a positive amount issues new units, a negative amount retires them. The
// resulting balance must stay within [0, maxBalance]. This is an operator
// surface; authorization to call it is the caller's concern.
func (s *SettlementService) Mint(ctx context.Context, ownerId int64, ticker string, amount decimal.Decimal) (*MintResult, error) {
	if amount.Sign() == 0 {
		return nil, store.Validationf("mint amount cannot be zero")
	}

	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	result := &MintResult{OwnerId: ownerId, Ticker: currency.Ticker, Amount: amount}
	err = s.db.WithTx(ctx, "mint", func(tx *sql.Tx) error {
		account, err := s.db.GetOrCreateAccountTx(ctx, tx, ownerId, currency.Id)
		if err != nil {
			return err
		}

		next := account.Balance.Add(amount)
		if next.Sign() < 0 {
			return &store.InsufficientBalanceError{
				Ticker: currency.Ticker,
				Need:   amount.Neg(),
				Have:   account.Balance,
			}
		}
		if next.GreaterThan(maxBalance) {
			return store.Validationf("mint would push the balance past %s %s", maxBalance, currency.Ticker)
		}

		result.NewBalance, err = s.db.AdjustTx(ctx, tx, account.Id, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Mint applied",
		zap.Int64("owner_id", ownerId),
		zap.String("ticker", currency.Ticker),
		zap.String("amount", amount.String()),
		zap.String("new_balance", result.NewBalance.String()))
	return result, nil
}
