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

	"guildmint/internal/models"
	"guildmint/internal/swap"
)

func (s *SettlementService) CreateSwap(ctx context.Context, params swap.CreateParams) (*models.Swap, error) {
	if err := s.throttle("swap-create", params.MakerOwnerId); err != nil {
		return nil, err
	}
	return s.swaps.Create(ctx, params)
}

func (s *SettlementService) AcceptSwap(ctx context.Context, swapId, actorOwnerId int64) (*models.Swap, error) {
	if err := s.throttle("swap-accept", actorOwnerId); err != nil {
		return nil, err
	}
	return s.swaps.Accept(ctx, swapId, actorOwnerId)
}

func (s *SettlementService) DenySwap(ctx context.Context, swapId, actorOwnerId int64) (*models.Swap, error) {
	if err := s.throttle("swap-deny", actorOwnerId); err != nil {
		return nil, err
	}
	return s.swaps.Deny(ctx, swapId, actorOwnerId)
}

func (s *SettlementService) SwapStatus(ctx context.Context, swapId int64) (*models.Swap, error) {
	return s.swaps.Get(ctx, swapId)
}

func (s *SettlementService) OpenSwaps(ctx context.Context) ([]models.Swap, error) {
	return s.db.ListOpenSwaps(ctx)
}

// PendingSwaps lists the pending swaps an owner is party to in one currency,
// as maker or as taker.
func (s *SettlementService) PendingSwaps(ctx context.Context, ownerId int64, ticker string, asMaker bool) ([]models.Swap, error) {
	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	account, err := s.db.GetAccount(ctx, ownerId, currency.Id)
	if err != nil {
		return nil, err
	}
	return s.db.ListPendingSwapsForAccount(ctx, account.Id, asMaker)
}
