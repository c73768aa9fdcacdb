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
	"time"

	"guildmint/internal/models"
	"guildmint/internal/store"
)

// InsertSwapParams captures a new pending swap. TakerAccountId stays empty
// for an open swap.
type InsertSwapParams struct {
	MakerAccountId  string
	TakerAccountId  string
	MakerCurrencyId int64
	TakerCurrencyId int64
	MakerAmount     string
	TakerAmount     string
}

// InsertSwapTx writes a pending swap and returns its id. The maker escrow
// debit happens in the same transaction, driven by the caller.
func (s *Service) InsertSwapTx(ctx context.Context, tx *sql.Tx, params InsertSwapParams) (int64, error) {
	now := time.Now().UTC()
	taker := sql.NullString{String: params.TakerAccountId, Valid: params.TakerAccountId != ""}

	result, err := tx.ExecContext(ctx, queryInsertSwap,
		params.MakerAccountId, taker, params.MakerCurrencyId, params.TakerCurrencyId,
		params.MakerAmount, params.TakerAmount, now, now)
	if err != nil {
		return 0, &store.PersistenceError{Op: "insert swap", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, &store.PersistenceError{Op: "insert swap", Err: err}
	}
	return id, nil
}

func (s *Service) GetSwap(ctx context.Context, swapId int64) (*models.Swap, error) {
	swap, err := scanSwap(s.db.QueryRowContext(ctx, queryGetSwap, swapId))
	if err != nil {
		return nil, err
	}
	if swap == nil {
		return nil, &store.NotFoundError{Kind: "swap", Ref: strconv.FormatInt(swapId, 10)}
	}
	return swap, nil
}

// GetSwapTx reads a swap inside the caller's transaction so the status it
// reports is the one the subsequent guarded update will see.
func (s *Service) GetSwapTx(ctx context.Context, tx *sql.Tx, swapId int64) (*models.Swap, error) {
	swap, err := scanSwap(tx.QueryRowContext(ctx, queryGetSwap, swapId))
	if err != nil {
		return nil, err
	}
	if swap == nil {
		return nil, &store.NotFoundError{Kind: "swap", Ref: strconv.FormatInt(swapId, 10)}
	}
	return swap, nil
}

// SetSwapStatusTx flips a pending swap to a terminal status. The update is
// guarded on status='pending'; zero rows affected means a concurrent actor
// got there first, reported as a StateError with the actual status.
func (s *Service) SetSwapStatusTx(ctx context.Context, tx *sql.Tx, swapId int64, status string) error {
	result, err := tx.ExecContext(ctx, querySetSwapStatus, status, time.Now().UTC(), swapId)
	if err != nil {
		return &store.PersistenceError{Op: "update swap status", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &store.PersistenceError{Op: "update swap status", Err: err}
	}
	if affected == 0 {
		swap, err := s.GetSwapTx(ctx, tx, swapId)
		if err != nil {
			return err
		}
		return store.NotPending(swapId, swap.Status)
	}
	return nil
}

// BindSwapTakerTx claims an open swap for the accepting account. Guarded the
// same way as the status flip so two takers cannot both claim it.
func (s *Service) BindSwapTakerTx(ctx context.Context, tx *sql.Tx, swapId int64, takerAccountId string) error {
	result, err := tx.ExecContext(ctx, queryBindSwapTaker, takerAccountId, time.Now().UTC(), swapId)
	if err != nil {
		return &store.PersistenceError{Op: "bind swap taker", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &store.PersistenceError{Op: "bind swap taker", Err: err}
	}
	if affected == 0 {
		swap, err := s.GetSwapTx(ctx, tx, swapId)
		if err != nil {
			return err
		}
		return store.NotPending(swapId, swap.Status)
	}
	return nil
}

func (s *Service) ListOpenSwaps(ctx context.Context) ([]models.Swap, error) {
	return s.querySwaps(ctx, queryListOpenSwaps)
}

func (s *Service) ListPendingSwapsForAccount(ctx context.Context, accountId string, asMaker bool) ([]models.Swap, error) {
	query := queryListPendingSwapsAsTaker
	if asMaker {
		query = queryListPendingSwapsAsMaker
	}
	return s.querySwaps(ctx, query, accountId)
}

func (s *Service) querySwaps(ctx context.Context, query string, args ...any) ([]models.Swap, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &store.PersistenceError{Op: "list swaps", Err: err}
	}
	defer rows.Close()

	var swaps []models.Swap
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *swap)
	}
	return swaps, rows.Err()
}

func scanSwap(row rowScanner) (*models.Swap, error) {
	var sw models.Swap
	var taker sql.NullString
	var makerAmount, takerAmount string

	err := row.Scan(&sw.Id, &sw.MakerAccountId, &taker, &sw.MakerCurrencyId, &sw.TakerCurrencyId,
		&makerAmount, &takerAmount, &sw.Status, &sw.CreatedAt, &sw.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "scan swap", Err: err}
	}

	sw.TakerAccountId = taker.String
	if sw.MakerAmount, err = parseAmount(makerAmount); err != nil {
		return nil, err
	}
	if sw.TakerAmount, err = parseAmount(takerAmount); err != nil {
		return nil, err
	}
	return &sw, nil
}
