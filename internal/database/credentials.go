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

	"go.uber.org/zap"
)

// UpsertCredential stores or replaces the encrypted partner token for a
// (currency, api type) pair. The plaintext never reaches this layer.
func (s *Service) UpsertCredential(ctx context.Context, currencyId int64, apiType int, encryptedToken string) error {
	if encryptedToken == "" {
		return store.Validationf("encrypted token cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, queryUpsertCredential, currencyId, apiType, encryptedToken, time.Now().UTC())
	if err != nil {
		return &store.PersistenceError{Op: "upsert credential", Err: err}
	}

	zap.L().Info("Partner credential stored",
		zap.Int64("currency_id", currencyId),
		zap.Int("api_type", apiType))
	return nil
}

// GetCredential returns (nil, nil) when no token has been provisioned; the
// bridge turns that into a configuration error with operator guidance.
func (s *Service) GetCredential(ctx context.Context, currencyId int64, apiType int) (*models.ApiCredential, error) {
	var c models.ApiCredential
	err := s.db.QueryRowContext(ctx, queryGetCredential, currencyId, apiType).
		Scan(&c.CurrencyId, &c.ApiType, &c.EncryptedToken, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: fmt.Sprintf("get credential for currency %d", currencyId), Err: err}
	}
	return &c, nil
}
