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

// TransferResult reports the settled transfer. Net is what the receiver got
// after withholding; Tax went to the currency's pool.
type TransferResult struct {
	TxUuid string
	Gross  decimal.Decimal
	Tax    decimal.Decimal
	Net    decimal.Decimal
}

// Transfer moves amount between two owners in one currency. The sender is
// debited the gross amount; the currency's tax percentage is withheld into
// the pool and the receiver is credited the remainder. All legs plus the
// audit record commit in one transaction.
func (s *SettlementService) Transfer(ctx context.Context, senderOwnerId, receiverOwnerId int64, ticker string, amount decimal.Decimal) (*TransferResult, error) {
	if err := s.throttle("transfer", senderOwnerId); err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, store.Validationf("transfer amount must be positive")
	}
	if senderOwnerId == receiverOwnerId {
		return nil, store.Validationf("cannot transfer to yourself")
	}

	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Gross: amount}
	err = s.db.WithTx(ctx, "transfer", func(tx *sql.Tx) error {
		sender, err := s.db.GetAccountTx(ctx, tx, senderOwnerId, currency.Id)
		if err != nil {
			return err
		}
		if sender == nil || sender.Balance.LessThan(amount) {
			have := decimal.Zero
			if sender != nil {
				have = sender.Balance
			}
			return &store.InsufficientBalanceError{Ticker: currency.Ticker, Need: amount, Have: have}
		}

		pool, err := s.db.GetTaxAccountTx(ctx, tx, currency.Id)
		if err != nil {
			return err
		}
		result.Tax = amount.Mul(decimal.NewFromInt(int64(pool.Percentage))).Div(decimal.NewFromInt(100))
		result.Net = amount.Sub(result.Tax)

		if _, err := s.db.AdjustTx(ctx, tx, sender.Id, amount.Neg()); err != nil {
			return err
		}

		receiver, err := s.db.GetOrCreateAccountTx(ctx, tx, receiverOwnerId, currency.Id)
		if err != nil {
			return err
		}
		if _, err := s.db.AdjustTx(ctx, tx, receiver.Id, result.Net); err != nil {
			return err
		}

		if result.Tax.Sign() > 0 {
			if err := s.db.AccrueTaxTx(ctx, tx, currency.Id, result.Tax); err != nil {
				return err
			}
		}

		result.TxUuid, err = s.db.InsertTransactionTx(ctx, tx, sender.Id, receiver.Id, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transfer settled",
		zap.String("tx_uuid", result.TxUuid),
		zap.Int64("sender_owner_id", senderOwnerId),
		zap.Int64("receiver_owner_id", receiverOwnerId),
		zap.String("ticker", currency.Ticker),
		zap.String("gross", result.Gross.String()),
		zap.String("tax", result.Tax.String()))
	return result, nil
}
