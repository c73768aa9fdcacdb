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

package swap

import (
	"context"
	"database/sql"

	"guildmint/internal/database"
	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine settles currency swaps against the ledger. The maker's offer is
// escrowed at creation; the taker's side only moves at accept, and both legs
// of the settlement commit in one transaction or not at all.
type Engine struct {
	db *database.Service
}

func NewEngine(db *database.Service) *Engine {
	return &Engine{db: db}
}

// CreateParams describes a new swap offer. TakerOwnerId zero makes the swap
// open: anyone except the maker may accept it.
type CreateParams struct {
	MakerOwnerId int64
	TakerOwnerId int64
	MakerTicker  string
	MakerAmount  decimal.Decimal
	TakerTicker  string
	TakerAmount  decimal.Decimal
}

// Create escrows the maker's amount and writes the pending swap. The balance
// check and the debit share one transaction, so two concurrent offers cannot
// both spend the same funds.
func (e *Engine) Create(ctx context.Context, params CreateParams) (*models.Swap, error) {
	if params.MakerAmount.Sign() <= 0 || params.TakerAmount.Sign() <= 0 {
		return nil, store.Validationf("swap amounts must be positive")
	}
	if params.TakerOwnerId == params.MakerOwnerId && params.TakerOwnerId != 0 {
		return nil, store.Validationf("cannot open a swap with yourself")
	}

	makerCurrency, err := e.db.GetCurrencyByTicker(ctx, params.MakerTicker)
	if err != nil {
		return nil, err
	}
	takerCurrency, err := e.db.GetCurrencyByTicker(ctx, params.TakerTicker)
	if err != nil {
		return nil, err
	}
	if makerCurrency.Id == takerCurrency.Id {
		return nil, store.Validationf("cannot swap %s for itself", makerCurrency.Ticker)
	}

	var swap *models.Swap
	err = e.db.WithTx(ctx, "create swap", func(tx *sql.Tx) error {
		makerAccount, err := e.db.GetOrCreateAccountTx(ctx, tx, params.MakerOwnerId, makerCurrency.Id)
		if err != nil {
			return err
		}
		if makerAccount.Balance.LessThan(params.MakerAmount) {
			return &store.InsufficientBalanceError{
				Ticker: makerCurrency.Ticker,
				Need:   params.MakerAmount,
				Have:   makerAccount.Balance,
			}
		}

		// Escrow the maker side.
		if _, err := e.db.AdjustTx(ctx, tx, makerAccount.Id, params.MakerAmount.Neg()); err != nil {
			return err
		}

		insert := database.InsertSwapParams{
			MakerAccountId:  makerAccount.Id,
			MakerCurrencyId: makerCurrency.Id,
			TakerCurrencyId: takerCurrency.Id,
			MakerAmount:     params.MakerAmount.String(),
			TakerAmount:     params.TakerAmount.String(),
		}
		if params.TakerOwnerId != 0 {
			takerAccount, err := e.db.GetOrCreateAccountTx(ctx, tx, params.TakerOwnerId, takerCurrency.Id)
			if err != nil {
				return err
			}
			// Advisory only: the taker is not debited until accept, but an
			// offer the named taker cannot currently afford is refused.
			if takerAccount.Balance.LessThan(params.TakerAmount) {
				return &store.InsufficientBalanceError{
					Ticker: takerCurrency.Ticker,
					Need:   params.TakerAmount,
					Have:   takerAccount.Balance,
				}
			}
			insert.TakerAccountId = takerAccount.Id
		}

		swapId, err := e.db.InsertSwapTx(ctx, tx, insert)
		if err != nil {
			return err
		}
		swap, err = e.db.GetSwapTx(ctx, tx, swapId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Swap created",
		zap.Int64("swap_id", swap.Id),
		zap.Int64("maker_owner_id", params.MakerOwnerId),
		zap.String("maker_side", params.MakerAmount.String()+" "+makerCurrency.Ticker),
		zap.String("taker_side", params.TakerAmount.String()+" "+takerCurrency.Ticker),
		zap.Bool("open", params.TakerOwnerId == 0))
	return swap, nil
}

// Accept settles a pending swap for the acting owner. For a targeted swap the
// actor must be the named taker; for an open swap the actor claims it, as
// long as they are not the maker. The taker debit, both credits, the audit
// records, the trade log entry and the status flip commit together.
func (e *Engine) Accept(ctx context.Context, swapId, actorOwnerId int64) (*models.Swap, error) {
	// Currencies are immutable, so resolving tickers outside the settlement
	// transaction is safe.
	preview, err := e.db.GetSwap(ctx, swapId)
	if err != nil {
		return nil, err
	}
	makerCurrency, err := e.db.GetCurrencyById(ctx, preview.MakerCurrencyId)
	if err != nil {
		return nil, err
	}
	takerCurrency, err := e.db.GetCurrencyById(ctx, preview.TakerCurrencyId)
	if err != nil {
		return nil, err
	}

	var settled *models.Swap
	err = e.db.WithTx(ctx, "accept swap", func(tx *sql.Tx) error {
		swap, err := e.db.GetSwapTx(ctx, tx, swapId)
		if err != nil {
			return err
		}
		if swap.Status != models.SwapStatusPending {
			return store.NotPending(swapId, swap.Status)
		}

		makerAccount, err := e.db.GetAccountByIdTx(ctx, tx, swap.MakerAccountId)
		if err != nil {
			return err
		}
		if makerAccount == nil {
			return &store.NotFoundError{Kind: "account", Ref: swap.MakerAccountId}
		}
		if makerAccount.OwnerId == actorOwnerId {
			return store.Validationf("cannot accept your own swap")
		}

		var takerAccount *models.Account
		if swap.TakerAccountId != "" {
			takerAccount, err = e.db.GetAccountByIdTx(ctx, tx, swap.TakerAccountId)
			if err != nil {
				return err
			}
			if takerAccount == nil {
				return &store.NotFoundError{Kind: "account", Ref: swap.TakerAccountId}
			}
			if takerAccount.OwnerId != actorOwnerId {
				return store.Unauthorized(swapId, "swap is reserved for another account")
			}
		} else {
			takerAccount, err = e.db.GetOrCreateAccountTx(ctx, tx, actorOwnerId, swap.TakerCurrencyId)
			if err != nil {
				return err
			}
			if err := e.db.BindSwapTakerTx(ctx, tx, swapId, takerAccount.Id); err != nil {
				return err
			}
		}

		if takerAccount.Balance.LessThan(swap.TakerAmount) {
			return &store.InsufficientBalanceError{
				Ticker: takerCurrency.Ticker,
				Need:   swap.TakerAmount,
				Have:   takerAccount.Balance,
			}
		}

		// The guarded flip is the commit point: if a concurrent accept or
		// cancel won, this reports the terminal status and nothing moves.
		if err := e.db.SetSwapStatusTx(ctx, tx, swapId, models.SwapStatusAccepted); err != nil {
			return err
		}

		// Taker pays their side to the maker.
		if _, err := e.db.AdjustTx(ctx, tx, takerAccount.Id, swap.TakerAmount.Neg()); err != nil {
			return err
		}
		makerReceiving, err := e.db.GetOrCreateAccountTx(ctx, tx, makerAccount.OwnerId, swap.TakerCurrencyId)
		if err != nil {
			return err
		}
		if _, err := e.db.AdjustTx(ctx, tx, makerReceiving.Id, swap.TakerAmount); err != nil {
			return err
		}

		// Escrowed maker funds release to the taker.
		takerReceiving, err := e.db.GetOrCreateAccountTx(ctx, tx, actorOwnerId, swap.MakerCurrencyId)
		if err != nil {
			return err
		}
		if _, err := e.db.AdjustTx(ctx, tx, takerReceiving.Id, swap.MakerAmount); err != nil {
			return err
		}

		if _, err := e.db.InsertTransactionTx(ctx, tx, makerAccount.Id, takerReceiving.Id, swap.MakerAmount); err != nil {
			return err
		}
		if _, err := e.db.InsertTransactionTx(ctx, tx, takerAccount.Id, makerReceiving.Id, swap.TakerAmount); err != nil {
			return err
		}

		if err := e.recordTrade(ctx, tx, swap, makerCurrency, takerCurrency); err != nil {
			return err
		}

		settled, err = e.db.GetSwapTx(ctx, tx, swapId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Swap accepted",
		zap.Int64("swap_id", swapId),
		zap.Int64("taker_owner_id", actorOwnerId),
		zap.String("maker_side", settled.MakerAmount.String()+" "+makerCurrency.Ticker),
		zap.String("taker_side", settled.TakerAmount.String()+" "+takerCurrency.Ticker))
	return settled, nil
}

// Deny cancels a pending swap and refunds the maker's escrow. The maker may
// always cancel their own swap; the named taker of a targeted swap may
// decline it.
func (e *Engine) Deny(ctx context.Context, swapId, actorOwnerId int64) (*models.Swap, error) {
	var cancelled *models.Swap
	err := e.db.WithTx(ctx, "deny swap", func(tx *sql.Tx) error {
		swap, err := e.db.GetSwapTx(ctx, tx, swapId)
		if err != nil {
			return err
		}
		if swap.Status != models.SwapStatusPending {
			return store.NotPending(swapId, swap.Status)
		}

		makerAccount, err := e.db.GetAccountByIdTx(ctx, tx, swap.MakerAccountId)
		if err != nil {
			return err
		}
		if makerAccount == nil {
			return &store.NotFoundError{Kind: "account", Ref: swap.MakerAccountId}
		}

		authorized := makerAccount.OwnerId == actorOwnerId
		if !authorized && swap.TakerAccountId != "" {
			takerAccount, err := e.db.GetAccountByIdTx(ctx, tx, swap.TakerAccountId)
			if err != nil {
				return err
			}
			authorized = takerAccount != nil && takerAccount.OwnerId == actorOwnerId
		}
		if !authorized {
			return store.Unauthorized(swapId, "only the maker or the named taker may cancel a swap")
		}

		if err := e.db.SetSwapStatusTx(ctx, tx, swapId, models.SwapStatusCancelled); err != nil {
			return err
		}
		if _, err := e.db.AdjustTx(ctx, tx, makerAccount.Id, swap.MakerAmount); err != nil {
			return err
		}

		cancelled, err = e.db.GetSwapTx(ctx, tx, swapId)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Swap cancelled",
		zap.Int64("swap_id", swapId),
		zap.Int64("actor_owner_id", actorOwnerId))
	return cancelled, nil
}

// Get returns a swap by id regardless of status.
func (e *Engine) Get(ctx context.Context, swapId int64) (*models.Swap, error) {
	return e.db.GetSwap(ctx, swapId)
}

// recordTrade appends the settled swap to the price history under the
// canonical pair orientation.
func (e *Engine) recordTrade(ctx context.Context, tx *sql.Tx, swap *models.Swap, makerCurrency, takerCurrency *models.Currency) error {
	base, _, _ := database.NormalizePair(makerCurrency.Ticker, takerCurrency.Ticker)

	baseId, quoteId := swap.MakerCurrencyId, swap.TakerCurrencyId
	baseAmount, quoteAmount := swap.MakerAmount, swap.TakerAmount
	if base != makerCurrency.Ticker {
		baseId, quoteId = quoteId, baseId
		baseAmount, quoteAmount = quoteAmount, baseAmount
	}

	price := quoteAmount.Div(baseAmount)
	return e.db.InsertTradeTx(ctx, tx, baseId, quoteId, price, baseAmount, quoteAmount)
}
