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

	"guildmint/internal/wire"

	"github.com/shopspring/decimal"
)

func (s *SettlementService) WireIn(ctx context.Context, ownerId int64, ticker string, amount decimal.Decimal) (*wire.Result, error) {
	if err := s.throttle("wire-in", ownerId); err != nil {
		return nil, err
	}
	return s.bridge.WireIn(ctx, ownerId, ticker, amount)
}

func (s *SettlementService) WireOut(ctx context.Context, ownerId int64, ticker string, amount decimal.Decimal) (*wire.Result, error) {
	if err := s.throttle("wire-out", ownerId); err != nil {
		return nil, err
	}
	return s.bridge.WireOut(ctx, ownerId, ticker, amount)
}

// SetPartnerCredential provisions the encrypted partner token for a
// currency. Operator action, not throttled.
func (s *SettlementService) SetPartnerCredential(ctx context.Context, ticker, token string) error {
	return s.bridge.SetCredential(ctx, ticker, token)
}

// SetTaxPercentage updates a currency's withholding rate.
func (s *SettlementService) SetTaxPercentage(ctx context.Context, ticker string, percentage int) error {
	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	return s.db.SetTaxPercentage(ctx, currency.Id, percentage)
}

// CollectTax pays out from a currency's withholding pool. A nil requested
// amount drains the pool.
func (s *SettlementService) CollectTax(ctx context.Context, ticker string, requested *decimal.Decimal, destOwnerId int64) (decimal.Decimal, error) {
	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return decimal.Zero, err
	}
	return s.db.CollectTax(ctx, currency.Id, requested, destOwnerId)
}
