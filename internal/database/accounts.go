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
	"fmt"
	"time"

	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerBalance is the joined account/currency view used by balance listings.
type OwnerBalance struct {
	Ticker  string
	Name    string
	Balance decimal.Decimal
}

func (s *Service) GetAccount(ctx context.Context, ownerId, currencyId int64) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, ownerId, currencyId))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &store.NotFoundError{Kind: "account", Ref: fmt.Sprintf("owner %d currency %d", ownerId, currencyId)}
	}
	return account, nil
}

func (s *Service) GetAccountById(ctx context.Context, accountId string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountById, accountId))
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &store.NotFoundError{Kind: "account", Ref: accountId}
	}
	return account, nil
}

func (s *Service) GetBalance(ctx context.Context, ownerId, currencyId int64) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, ownerId, currencyId)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *Service) ListAccounts(ctx context.Context, ownerId int64) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts, ownerId)
	if err != nil {
		return nil, &store.PersistenceError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// ListBalances returns every holding of an owner with the currency resolved,
// ordered by ticker.
func (s *Service) ListBalances(ctx context.Context, ownerId int64) ([]OwnerBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryListBalances, ownerId)
	if err != nil {
		return nil, &store.PersistenceError{Op: "list balances", Err: err}
	}
	defer rows.Close()

	var balances []OwnerBalance
	for rows.Next() {
		var b OwnerBalance
		var raw string
		if err := rows.Scan(&b.Ticker, &b.Name, &raw); err != nil {
			return nil, &store.PersistenceError{Op: "scan balance", Err: err}
		}
		if b.Balance, err = decimal.NewFromString(raw); err != nil {
			return nil, &store.PersistenceError{Op: "parse balance", Err: err}
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// GetAccountTx is the tx-scoped lookup by (owner, currency). Returns
// (nil, nil) when the account does not exist yet.
func (s *Service) GetAccountTx(ctx context.Context, tx *sql.Tx, ownerId, currencyId int64) (*models.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, queryGetAccount, ownerId, currencyId))
}

// GetAccountByIdTx returns (nil, nil) when no account has the id.
func (s *Service) GetAccountByIdTx(ctx context.Context, tx *sql.Tx, accountId string) (*models.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, queryGetAccountById, accountId))
}

// GetOrCreateAccountTx lazily creates the zero-balance account row for
// (owner, currency) on first use.
func (s *Service) GetOrCreateAccountTx(ctx context.Context, tx *sql.Tx, ownerId, currencyId int64) (*models.Account, error) {
	account, err := s.GetAccountTx(ctx, tx, ownerId, currencyId)
	if err != nil || account != nil {
		return account, err
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx, queryInsertAccount, id, ownerId, currencyId, now, now); err != nil {
		return nil, &store.PersistenceError{Op: "create account", Err: err}
	}

	return &models.Account{
		Id:         id,
		OwnerId:    ownerId,
		CurrencyId: currencyId,
		Balance:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AdjustTx applies a signed delta to an account balance. It refuses to drive
// a balance negative even when the caller's own pre-check passed, which keeps
// the no-overdraft invariant inside the transaction that matters.
func (s *Service) AdjustTx(ctx context.Context, tx *sql.Tx, accountId string, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRowContext(ctx, queryGetAccountBalanceForUpdate, accountId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, &store.NotFoundError{Kind: "account", Ref: accountId}
	}
	if err != nil {
		return decimal.Zero, &store.PersistenceError{Op: "read balance", Err: err}
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &store.PersistenceError{Op: "parse balance", Err: err}
	}

	updated := balance.Add(delta)
	if updated.IsNegative() {
		return decimal.Zero, fmt.Errorf("account %s balance would go negative: %w", accountId, store.ErrInsufficientBalance)
	}

	if _, err := tx.ExecContext(ctx, queryUpdateAccountBalance, updated.String(), time.Now().UTC(), accountId); err != nil {
		return decimal.Zero, &store.PersistenceError{Op: "update balance", Err: err}
	}
	return updated, nil
}

// SetBalanceTx overwrites an account balance with an absolute value. Only the
// wire bridge compensation path uses it: restoring a snapshot is idempotent
// where re-applying a delta is not.
func (s *Service) SetBalanceTx(ctx context.Context, tx *sql.Tx, accountId string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("account %s balance would go negative: %w", accountId, store.ErrInsufficientBalance)
	}
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, balance.String(), time.Now().UTC(), accountId)
	if err != nil {
		return &store.PersistenceError{Op: "set balance", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &store.PersistenceError{Op: "set balance", Err: err}
	}
	if affected == 0 {
		return &store.NotFoundError{Kind: "account", Ref: accountId}
	}
	return nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var raw string
	err := row.Scan(&a.Id, &a.OwnerId, &a.CurrencyId, &raw, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "scan account", Err: err}
	}
	if a.Balance, err = decimal.NewFromString(raw); err != nil {
		return nil, &store.PersistenceError{Op: "parse balance", Err: err}
	}
	return &a, nil
}

func scanAccountRow(rows *sql.Rows) (*models.Account, error) {
	var a models.Account
	var raw string
	if err := rows.Scan(&a.Id, &a.OwnerId, &a.CurrencyId, &raw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, &store.PersistenceError{Op: "scan account", Err: err}
	}
	var err error
	if a.Balance, err = decimal.NewFromString(raw); err != nil {
		return nil, &store.PersistenceError{Op: "parse balance", Err: err}
	}
	return &a, nil
}
