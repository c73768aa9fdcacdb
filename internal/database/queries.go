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

const (
	// Currency queries
	queryInsertCurrency = `
		INSERT INTO currency (guild_id, name, ticker) VALUES (?, ?, ?)`

	queryGetCurrencyByTicker = `
		SELECT id, guild_id, name, ticker, created_at
		FROM currency
		WHERE UPPER(ticker) = UPPER(?)`

	queryGetCurrencyById = `
		SELECT id, guild_id, name, ticker, created_at
		FROM currency
		WHERE id = ?`

	queryGetCurrencyByGuild = `
		SELECT id, guild_id, name, ticker, created_at
		FROM currency
		WHERE guild_id = ?`

	queryListCurrencies = `
		SELECT id, guild_id, name, ticker, created_at
		FROM currency
		ORDER BY ticker`

	// Account queries
	queryGetAccount = `
		SELECT id, owner_id, currency_id, balance, created_at, updated_at
		FROM account
		WHERE owner_id = ? AND currency_id = ?`

	queryGetAccountById = `
		SELECT id, owner_id, currency_id, balance, created_at, updated_at
		FROM account
		WHERE id = ?`

	queryInsertAccount = `
		INSERT INTO account (id, owner_id, currency_id, balance, created_at, updated_at)
		VALUES (?, ?, ?, '0', ?, ?)`

	queryGetAccountBalanceForUpdate = `
		SELECT balance FROM account WHERE id = ?`

	queryUpdateAccountBalance = `
		UPDATE account SET balance = ?, updated_at = ? WHERE id = ?`

	queryListAccounts = `
		SELECT id, owner_id, currency_id, balance, created_at, updated_at
		FROM account
		WHERE owner_id = ?
		ORDER BY currency_id`

	queryListBalances = `
		SELECT c.ticker, c.name, a.balance
		FROM account a
		JOIN currency c ON c.id = a.currency_id
		WHERE a.owner_id = ?
		ORDER BY c.ticker`

	// Swap queries
	queryInsertSwap = `
		INSERT INTO currency_swap (
			maker_account_id, taker_account_id, maker_currency_id, taker_currency_id,
			maker_amount, taker_amount, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?)`

	queryGetSwap = `
		SELECT id, maker_account_id, taker_account_id, maker_currency_id, taker_currency_id,
		       maker_amount, taker_amount, status, created_at, updated_at
		FROM currency_swap
		WHERE id = ?`

	querySetSwapStatus = `
		UPDATE currency_swap SET status = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`

	queryBindSwapTaker = `
		UPDATE currency_swap SET taker_account_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending' AND taker_account_id IS NULL`

	queryListOpenSwaps = `
		SELECT id, maker_account_id, taker_account_id, maker_currency_id, taker_currency_id,
		       maker_amount, taker_amount, status, created_at, updated_at
		FROM currency_swap
		WHERE taker_account_id IS NULL AND status = 'pending'
		ORDER BY created_at`

	queryListPendingSwapsAsMaker = `
		SELECT id, maker_account_id, taker_account_id, maker_currency_id, taker_currency_id,
		       maker_amount, taker_amount, status, created_at, updated_at
		FROM currency_swap
		WHERE maker_account_id = ? AND status = 'pending'
		ORDER BY created_at`

	queryListPendingSwapsAsTaker = `
		SELECT id, maker_account_id, taker_account_id, maker_currency_id, taker_currency_id,
		       maker_amount, taker_amount, status, created_at, updated_at
		FROM currency_swap
		WHERE taker_account_id = ? AND status = 'pending'
		ORDER BY created_at`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO tx_record (uuid, sender_account_id, receiver_account_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryGetTransaction = `
		SELECT uuid, sender_account_id, receiver_account_id, amount, created_at
		FROM tx_record
		WHERE uuid = ?`

	queryTransactionHistory = `
		SELECT uuid, sender_account_id, receiver_account_id, amount, created_at
		FROM tx_record
		WHERE sender_account_id = ? OR receiver_account_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	// Trade log queries
	queryInsertTrade = `
		INSERT INTO trade_log (base_currency_id, quote_currency_id, price, base_amount, quote_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryLatestPrice = `
		SELECT price FROM trade_log
		WHERE base_currency_id = ? AND quote_currency_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	queryTradesInWindow = `
		SELECT base_amount, quote_amount FROM trade_log
		WHERE base_currency_id = ? AND quote_currency_id = ? AND created_at >= ?`

	// Tax queries
	queryInsertTaxAccount = `
		INSERT OR IGNORE INTO tax_account (currency_id, balance, tax_percentage) VALUES (?, '0', 0)`

	queryGetTaxAccount = `
		SELECT id, currency_id, balance, tax_percentage
		FROM tax_account
		WHERE currency_id = ?`

	querySetTaxPercentage = `
		UPDATE tax_account SET tax_percentage = ? WHERE currency_id = ?`

	queryUpdateTaxBalance = `
		UPDATE tax_account SET balance = ? WHERE currency_id = ?`

	// Credential queries
	queryUpsertCredential = `
		INSERT INTO api_credential (currency_id, api_type, encrypted_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(currency_id, api_type)
		DO UPDATE SET encrypted_token = excluded.encrypted_token, updated_at = excluded.updated_at`

	queryGetCredential = `
		SELECT currency_id, api_type, encrypted_token, updated_at
		FROM api_credential
		WHERE currency_id = ? AND api_type = ?`
)
