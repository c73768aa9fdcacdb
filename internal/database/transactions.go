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
	"time"

	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InsertTransactionTx appends one audit record for a balance movement leg and
// returns its uuid. Written in the same transaction as the balance updates it
// describes so the trail can never disagree with the ledger.
func (s *Service) InsertTransactionTx(ctx context.Context, tx *sql.Tx, senderAccountId, receiverAccountId string, amount decimal.Decimal) (string, error) {
	id := uuid.New().String()
	_, err := tx.ExecContext(ctx, queryInsertTransaction,
		id, senderAccountId, receiverAccountId, amount.String(), time.Now().UTC())
	if err != nil {
		return "", &store.PersistenceError{Op: "insert transaction", Err: err}
	}
	return id, nil
}

func (s *Service) GetTransaction(ctx context.Context, txUuid string) (*models.Transaction, error) {
	var t models.Transaction
	var raw string
	err := s.db.QueryRowContext(ctx, queryGetTransaction, txUuid).
		Scan(&t.Uuid, &t.SenderAccountId, &t.ReceiverAccountId, &raw, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &store.NotFoundError{Kind: "transaction", Ref: txUuid}
	}
	if err != nil {
		return nil, &store.PersistenceError{Op: "scan transaction", Err: err}
	}
	if t.Amount, err = parseAmount(raw); err != nil {
		return nil, err
	}
	return &t, nil
}

// TransactionHistory returns the audit records touching an account, newest
// first.
func (s *Service) TransactionHistory(ctx context.Context, accountId string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, queryTransactionHistory, accountId, accountId, limit, offset)
	if err != nil {
		return nil, &store.PersistenceError{Op: "transaction history", Err: err}
	}
	defer rows.Close()

	var history []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var raw string
		if err := rows.Scan(&t.Uuid, &t.SenderAccountId, &t.ReceiverAccountId, &raw, &t.CreatedAt); err != nil {
			return nil, &store.PersistenceError{Op: "scan transaction", Err: err}
		}
		if t.Amount, err = parseAmount(raw); err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &store.PersistenceError{Op: "parse amount", Err: err}
	}
	return amount, nil
}
