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
	"fmt"

	"guildmint/internal/models"
	"guildmint/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.SettlementStore.
var _ store.SettlementStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// WithTx runs fn inside a single transaction. Every read-check plus mutation
// sequence in the engine goes through here so a failure anywhere rolls the
// whole operation back.
func (s *Service) WithTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &store.PersistenceError{Op: op, Err: err}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &store.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (s *Service) initSchema() error {
	schema := `
	-- Guild-scoped currencies; ticker is globally unique
	CREATE TABLE IF NOT EXISTS currency (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id INTEGER NOT NULL UNIQUE,
		name TEXT NOT NULL,
		ticker TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- One balance row per (owner, currency); balances stored as decimal text
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		owner_id INTEGER NOT NULL,
		currency_id INTEGER NOT NULL REFERENCES currency(id),
		balance TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(owner_id, currency_id)
	);

	CREATE INDEX IF NOT EXISTS idx_account_owner ON account(owner_id);

	-- Escrowed swap offers; taker_account_id is NULL while an open swap is unclaimed
	CREATE TABLE IF NOT EXISTS currency_swap (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		maker_account_id TEXT NOT NULL REFERENCES account(id),
		taker_account_id TEXT REFERENCES account(id),
		maker_currency_id INTEGER NOT NULL REFERENCES currency(id),
		taker_currency_id INTEGER NOT NULL REFERENCES currency(id),
		maker_amount TEXT NOT NULL,
		taker_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_swap_status ON currency_swap(status);
	CREATE INDEX IF NOT EXISTS idx_swap_maker ON currency_swap(maker_account_id);
	CREATE INDEX IF NOT EXISTS idx_swap_taker ON currency_swap(taker_account_id);

	-- Immutable audit trail of balance movements
	CREATE TABLE IF NOT EXISTS tx_record (
		uuid TEXT PRIMARY KEY,
		sender_account_id TEXT NOT NULL,
		receiver_account_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tx_sender ON tx_record(sender_account_id);
	CREATE INDEX IF NOT EXISTS idx_tx_receiver ON tx_record(receiver_account_id);
	CREATE INDEX IF NOT EXISTS idx_tx_created_at ON tx_record(created_at);

	-- Per-currency withholding pool
	CREATE TABLE IF NOT EXISTS tax_account (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		currency_id INTEGER NOT NULL UNIQUE REFERENCES currency(id),
		balance TEXT NOT NULL DEFAULT '0',
		tax_percentage INTEGER NOT NULL DEFAULT 0
	);

	-- Price history for canonical pairs, one row per settled swap
	CREATE TABLE IF NOT EXISTS trade_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_currency_id INTEGER NOT NULL REFERENCES currency(id),
		quote_currency_id INTEGER NOT NULL REFERENCES currency(id),
		price TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		quote_amount TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trade_pair_time ON trade_log(base_currency_id, quote_currency_id, created_at);

	-- Encrypted partner API tokens, one per (currency, api type)
	CREATE TABLE IF NOT EXISTS api_credential (
		currency_id INTEGER NOT NULL REFERENCES currency(id),
		api_type INTEGER NOT NULL,
		encrypted_token TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (currency_id, api_type)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
