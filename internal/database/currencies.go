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
	"strings"

	"guildmint/internal/models"
	"guildmint/internal/store"

	"go.uber.org/zap"
)

// CreateCurrency registers a new guild currency and bootstraps its tax
// withholding pool in the same transaction. Tickers are unique regardless of
// case, and a guild can only carry one currency.
func (s *Service) CreateCurrency(ctx context.Context, guildId int64, name, ticker string) (*models.Currency, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	name = strings.TrimSpace(name)
	if ticker == "" {
		return nil, store.Validationf("ticker cannot be empty")
	}
	if name == "" {
		return nil, store.Validationf("currency name cannot be empty")
	}

	var currency *models.Currency
	err := s.WithTx(ctx, "create currency", func(tx *sql.Tx) error {
		if existing, err := getCurrencyTx(ctx, tx, queryGetCurrencyByTicker, ticker); err != nil {
			return err
		} else if existing != nil {
			return store.Validationf("ticker %s is already registered", ticker)
		}

		if existing, err := getCurrencyTx(ctx, tx, queryGetCurrencyByGuild, guildId); err != nil {
			return err
		} else if existing != nil {
			return store.Validationf("guild %d already has currency %s", guildId, existing.Ticker)
		}

		result, err := tx.ExecContext(ctx, queryInsertCurrency, guildId, name, ticker)
		if err != nil {
			return &store.PersistenceError{Op: "insert currency", Err: err}
		}
		id, err := result.LastInsertId()
		if err != nil {
			return &store.PersistenceError{Op: "insert currency", Err: err}
		}

		if _, err := tx.ExecContext(ctx, queryInsertTaxAccount, id); err != nil {
			return &store.PersistenceError{Op: "bootstrap tax account", Err: err}
		}

		currency, err = getCurrencyTx(ctx, tx, queryGetCurrencyById, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Currency created",
		zap.Int64("currency_id", currency.Id),
		zap.Int64("guild_id", guildId),
		zap.String("ticker", ticker))
	return currency, nil
}

func (s *Service) GetCurrencyByTicker(ctx context.Context, ticker string) (*models.Currency, error) {
	currency, err := scanCurrency(s.db.QueryRowContext(ctx, queryGetCurrencyByTicker, ticker))
	if err != nil {
		return nil, err
	}
	if currency == nil {
		return nil, &store.NotFoundError{Kind: "currency", Ref: ticker}
	}
	return currency, nil
}

func (s *Service) GetCurrencyById(ctx context.Context, id int64) (*models.Currency, error) {
	currency, err := scanCurrency(s.db.QueryRowContext(ctx, queryGetCurrencyById, id))
	if err != nil {
		return nil, err
	}
	if currency == nil {
		return nil, &store.NotFoundError{Kind: "currency", Ref: strconv.FormatInt(id, 10)}
	}
	return currency, nil
}

func (s *Service) ListCurrencies(ctx context.Context) ([]models.Currency, error) {
	rows, err := s.db.QueryContext(ctx, queryListCurrencies)
	if err != nil {
		return nil, &store.PersistenceError{Op: "list currencies", Err: err}
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.Id, &c.GuildId, &c.Name, &c.Ticker, &c.CreatedAt); err != nil {
			return nil, &store.PersistenceError{Op: "scan currency", Err: err}
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// getCurrencyTx is the tx-scoped lookup used inside multi-step operations.
// Returns (nil, nil) when no row matches.
func getCurrencyTx(ctx context.Context, tx *sql.Tx, query string, arg any) (*models.Currency, error) {
	return scanCurrency(tx.QueryRowContext(ctx, query, arg))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrency(row rowScanner) (*models.Currency, error) {
	var c models.Currency
	err := row.Scan(&c.Id, &c.GuildId, &c.Name, &c.Ticker, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "scan currency", Err: err}
	}
	return &c, nil
}
