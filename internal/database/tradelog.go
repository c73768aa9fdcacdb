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
	"strings"
	"time"

	"guildmint/internal/store"

	"github.com/shopspring/decimal"
)

// NormalizePair orders two tickers into the canonical (base, quote) pair:
// the lexicographically smaller ticker is always the base. reversed reports
// whether the caller's order was flipped, so prices quoted in the caller's
// direction can be inverted.
func NormalizePair(a, b string) (base, quote string, reversed bool) {
	a = strings.ToUpper(a)
	b = strings.ToUpper(b)
	if a <= b {
		return a, b, false
	}
	return b, a, true
}

// InsertTradeTx records the price of one settled swap for a canonical pair.
// Base and quote amounts travel with the row so window VWAPs need no join.
func (s *Service) InsertTradeTx(ctx context.Context, tx *sql.Tx, baseCurrencyId, quoteCurrencyId int64, price, baseAmount, quoteAmount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, queryInsertTrade,
		baseCurrencyId, quoteCurrencyId, price.String(), baseAmount.String(), quoteAmount.String(), time.Now().UTC())
	if err != nil {
		return &store.PersistenceError{Op: "insert trade", Err: err}
	}
	return nil
}

// LatestPrice returns the most recent trade price for a canonical pair, or
// nil when the pair has never traded.
func (s *Service) LatestPrice(ctx context.Context, baseCurrencyId, quoteCurrencyId int64) (*decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, queryLatestPrice, baseCurrencyId, quoteCurrencyId).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "latest price", Err: err}
	}

	price, err := parseAmount(raw)
	if err != nil {
		return nil, err
	}
	return &price, nil
}

// VWAP computes the volume-weighted average price over the trailing window:
// total quote volume divided by total base volume. Summation happens here
// rather than in SQL because the amounts are stored as decimal text. Returns
// nil when the window holds no trades.
func (s *Service) VWAP(ctx context.Context, baseCurrencyId, quoteCurrencyId int64, window time.Duration) (*decimal.Decimal, error) {
	cutoff := time.Now().UTC().Add(-window)

	rows, err := s.db.QueryContext(ctx, queryTradesInWindow, baseCurrencyId, quoteCurrencyId, cutoff)
	if err != nil {
		return nil, &store.PersistenceError{Op: "vwap", Err: err}
	}
	defer rows.Close()

	baseTotal := decimal.Zero
	quoteTotal := decimal.Zero
	for rows.Next() {
		var rawBase, rawQuote string
		if err := rows.Scan(&rawBase, &rawQuote); err != nil {
			return nil, &store.PersistenceError{Op: "scan trade", Err: err}
		}
		baseAmount, err := parseAmount(rawBase)
		if err != nil {
			return nil, err
		}
		quoteAmount, err := parseAmount(rawQuote)
		if err != nil {
			return nil, err
		}
		baseTotal = baseTotal.Add(baseAmount)
		quoteTotal = quoteTotal.Add(quoteAmount)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.PersistenceError{Op: "vwap", Err: err}
	}

	if baseTotal.IsZero() {
		return nil, nil
	}
	vwap := quoteTotal.Div(baseTotal)
	return &vwap, nil
}
