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

package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetTaxAccount(ctx context.Context, currencyId int64) (*models.TaxAccount, error) {
	account, err := scanTaxAccount(s.db.QueryRowContext(ctx, queryGetTaxAccount, currencyId))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &store.NotFoundError{Kind: "tax account", Ref: strconv.FormatInt(currencyId, 10)}
	}
	return account, nil
}

// SetTaxPercentage updates the withholding rate applied to transfers in a
// currency. The rate is a whole percentage between 0 and 100.
func (s *Service) SetTaxPercentage(ctx context.Context, currencyId int64, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return store.Validationf("tax percentage must be between 0 and 100, got %d", percentage)
	}

	result, err := s.db.ExecContext(ctx, querySetTaxPercentage, percentage, currencyId)
	if err != nil {
		return &store.PersistenceError{Op: "set tax percentage", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &store.PersistenceError{Op: "set tax percentage", Err: err}
	}
	if affected == 0 {
		return &store.NotFoundError{Kind: "tax account", Ref: strconv.FormatInt(currencyId, 10)}
	}

	zap.L().Info("Tax percentage updated",
		zap.Int64("currency_id", currencyId),
		zap.Int("percentage", percentage))
	return nil
}

// GetTaxAccountTx reads the withholding pool inside the caller's transaction.
func (s *Service) GetTaxAccountTx(ctx context.Context, tx *sql.Tx, currencyId int64) (*models.TaxAccount, error) {
	account, err := scanTaxAccount(tx.QueryRowContext(ctx, queryGetTaxAccount, currencyId))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &store.NotFoundError{Kind: "tax account", Ref: strconv.FormatInt(currencyId, 10)}
	}
	return account, nil
}

// AccrueTaxTx adds withheld amounts to the currency's pool. Runs in the same
// transaction as the transfer the tax was withheld from.
func (s *Service) AccrueTaxTx(ctx context.Context, tx *sql.Tx, currencyId int64, amount decimal.Decimal) error {
	account, err := s.GetTaxAccountTx(ctx, tx, currencyId)
	if err != nil {
		return err
	}

	updated := account.Balance.Add(amount)
	if _, err := tx.ExecContext(ctx, queryUpdateTaxBalance, updated.String(), currencyId); err != nil {
		return &store.PersistenceError{Op: "accrue tax", Err: err}
	}
	return nil
}

// CollectTax pays out from the withholding pool to the destination owner's
// account in the same currency. A nil requested amount drains the pool; a
// requested amount larger than the pool collects what is there. The pool
// decrement and the account credit commit together.
func (s *Service) CollectTax(ctx context.Context, currencyId int64, requested *decimal.Decimal, destOwnerId int64) (decimal.Decimal, error) {
	if requested != nil && requested.Sign() <= 0 {
		return decimal.Zero, store.Validationf("collection amount must be positive")
	}

	var collected decimal.Decimal
	err := s.WithTx(ctx, "collect tax", func(tx *sql.Tx) error {
		pool, err := s.GetTaxAccountTx(ctx, tx, currencyId)
		if err != nil {
			return err
		}

		collected = pool.Balance
		if requested != nil && requested.LessThan(collected) {
			collected = *requested
		}
		if collected.IsZero() {
			return nil
		}

		remaining := pool.Balance.Sub(collected)
		if _, err := tx.ExecContext(ctx, queryUpdateTaxBalance, remaining.String(), currencyId); err != nil {
			return &store.PersistenceError{Op: "drain tax pool", Err: err}
		}

		dest, err := s.GetOrCreateAccountTx(ctx, tx, destOwnerId, currencyId)
		if err != nil {
			return err
		}
		if _, err := s.AdjustTx(ctx, tx, dest.Id, collected); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if !collected.IsZero() {
		zap.L().Info("Tax collected",
			zap.Int64("currency_id", currencyId),
			zap.Int64("dest_owner_id", destOwnerId),
			zap.String("amount", collected.String()))
	}
	return collected, nil
}

func scanTaxAccount(row rowScanner) (*models.TaxAccount, error) {
	var t models.TaxAccount
	var raw string
	err := row.Scan(&t.Id, &t.CurrencyId, &raw, &t.Percentage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "scan tax account", Err: err}
	}
	if t.Balance, err = parseAmount(raw); err != nil {
		return nil, err
	}
	return &t, nil
}
