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
	"strconv"
	"strings"
	"time"

	"guildmint/internal/database"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
)

// PriceQuote reports the market for a pair in the orientation the caller
// asked for: how much quote one unit of base buys.
type PriceQuote struct {
	BaseTicker  string
	QuoteTicker string
	Latest      *decimal.Decimal
	VWAP        *decimal.Decimal
	Window      time.Duration
}

// Price quotes baseTicker priced in quoteTicker: the latest trade plus the
// volume-weighted average over the timeframe. Prices are stored under the
// canonical pair orientation and inverted here when the caller asked the
// other way around.
func (s *SettlementService) Price(ctx context.Context, baseTicker, quoteTicker, timeframe string) (*PriceQuote, error) {
	window, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	base, err := s.db.GetCurrencyByTicker(ctx, baseTicker)
	if err != nil {
		return nil, err
	}
	quote, err := s.db.GetCurrencyByTicker(ctx, quoteTicker)
	if err != nil {
		return nil, err
	}
	if base.Id == quote.Id {
		return nil, store.Validationf("cannot price %s against itself", base.Ticker)
	}

	canonicalBase, _, reversed := database.NormalizePair(base.Ticker, quote.Ticker)
	baseId, quoteId := base.Id, quote.Id
	if canonicalBase != base.Ticker {
		baseId, quoteId = quoteId, baseId
	}

	latest, err := s.db.LatestPrice(ctx, baseId, quoteId)
	if err != nil {
		return nil, err
	}
	vwap, err := s.db.VWAP(ctx, baseId, quoteId, window)
	if err != nil {
		return nil, err
	}

	quoteResult := &PriceQuote{
		BaseTicker:  base.Ticker,
		QuoteTicker: quote.Ticker,
		Window:      window,
		Latest:      latest,
		VWAP:        vwap,
	}
	if reversed {
		quoteResult.Latest = invert(latest)
		quoteResult.VWAP = invert(vwap)
	}
	return quoteResult, nil
}

func invert(price *decimal.Decimal) *decimal.Decimal {
	if price == nil || price.IsZero() {
		return nil
	}
	inverted := decimal.NewFromInt(1).Div(*price)
	return &inverted
}

// ParseTimeframe reads windows like "15m", "4h", "7d", "2w", "1mnt" or
// "1y". Months count as 30 days and years as 365.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(timeframe))
	if trimmed == "" {
		return 0, store.Validationf("timeframe cannot be empty")
	}

	split := len(trimmed)
	for i, r := range trimmed {
		if r < '0' || r > '9' {
			split = i
			break
		}
	}
	if split == 0 || split == len(trimmed) {
		return 0, store.Validationf("invalid timeframe %q, expected forms like 15m, 4h, 7d, 1mnt", timeframe)
	}

	count, err := strconv.Atoi(trimmed[:split])
	if err != nil || count <= 0 {
		return 0, store.Validationf("invalid timeframe %q, the count must be a positive number", timeframe)
	}

	var unit time.Duration
	switch trimmed[split:] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "mnt":
		unit = 30 * 24 * time.Hour
	case "y":
		unit = 365 * 24 * time.Hour
	default:
		return 0, store.Validationf("invalid timeframe unit %q, expected m, h, d, w, mnt or y", trimmed[split:])
	}

	return time.Duration(count) * unit, nil
}
