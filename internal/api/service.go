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
	"fmt"

	"guildmint/internal/database"
	"guildmint/internal/models"
	"guildmint/internal/ratelimit"
	"guildmint/internal/store"
	"guildmint/internal/swap"
	"guildmint/internal/wire"
)

// SettlementService is the operation facade the command surfaces talk to.
// Mutating operations pass through a per-(operation, actor) cooldown and an
// advisory global window before reaching the engine.
type SettlementService struct {
	db       *database.Service
	swaps    *swap.Engine
	bridge   *wire.Bridge
	cooldown *ratelimit.Cooldown
	global   *ratelimit.SlidingWindow
}

func NewSettlementService(db *database.Service, swaps *swap.Engine, bridge *wire.Bridge, cfg models.ThrottleConfig) *SettlementService {
	return &SettlementService{
		db:       db,
		swaps:    swaps,
		bridge:   bridge,
		cooldown: ratelimit.NewCooldown(cfg.Cooldown),
		global:   ratelimit.NewSlidingWindow(cfg.GlobalLimit, cfg.GlobalWindow),
	}
}

// throttle guards one mutating operation by one actor. Refusals are
// advisory: the caller simply retries after the reported delay.
func (s *SettlementService) throttle(op string, actorId int64) error {
	if ok, retryIn := s.global.Allow(); !ok {
		return &store.ThrottledError{Op: op, Remaining: retryIn}
	}
	key := fmt.Sprintf("%s:%d", op, actorId)
	if ok, remaining := s.cooldown.Acquire(key); !ok {
		return &store.ThrottledError{Op: op, Remaining: remaining}
	}
	return nil
}

func (s *SettlementService) HealthCheck(ctx context.Context) error {
	if _, err := s.db.ListCurrencies(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Balances returns every holding of an owner with tickers resolved.
func (s *SettlementService) Balances(ctx context.Context, ownerId int64) ([]database.OwnerBalance, error) {
	return s.db.ListBalances(ctx, ownerId)
}

// Balance returns the owner's balance in one currency.
func (s *SettlementService) Balance(ctx context.Context, ownerId int64, ticker string) (*models.Account, error) {
	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.db.GetAccount(ctx, ownerId, currency.Id)
}

// Transaction looks up one audit record by uuid.
func (s *SettlementService) Transaction(ctx context.Context, txUuid string) (*models.Transaction, error) {
	return s.db.GetTransaction(ctx, txUuid)
}

// History returns an owner's audit records in one currency, newest first.
func (s *SettlementService) History(ctx context.Context, ownerId int64, ticker string, limit, offset int) ([]models.Transaction, error) {
	currency, err := s.db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	account, err := s.db.GetAccount(ctx, ownerId, currency.Id)
	if err != nil {
		return nil, err
	}
	return s.db.TransactionHistory(ctx, account.Id, limit, offset)
}

// Currencies lists every registered currency.
func (s *SettlementService) Currencies(ctx context.Context) ([]models.Currency, error) {
	return s.db.ListCurrencies(ctx)
}

// CreateCurrency registers a guild currency.
func (s *SettlementService) CreateCurrency(ctx context.Context, guildId int64, name, ticker string) (*models.Currency, error) {
	return s.db.CreateCurrency(ctx, guildId, name, ticker)
}
