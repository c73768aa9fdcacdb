package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"guildmint/internal/models"
	"guildmint/internal/store"
)

func insertTestSwap(t *testing.T, service *Service, params InsertSwapParams) int64 {
	t.Helper()
	ctx := context.Background()

	var swapId int64
	err := service.WithTx(ctx, "test swap", func(tx *sql.Tx) error {
		var err error
		swapId, err = service.InsertSwapTx(ctx, tx, params)
		return err
	})
	if err != nil {
		t.Fatalf("InsertSwapTx failed: %v", err)
	}
	return swapId
}

func TestSwapStatusFlipIsSingleShot(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")
	maker := mustFund(t, service, 1, gold, "50")
	taker := mustFund(t, service, 2, silver, "50")

	swapId := insertTestSwap(t, service, InsertSwapParams{
		MakerAccountId:  maker,
		TakerAccountId:  taker,
		MakerCurrencyId: gold,
		TakerCurrencyId: silver,
		MakerAmount:     "10",
		TakerAmount:     "20",
	})

	err := service.WithTx(ctx, "accept", func(tx *sql.Tx) error {
		return service.SetSwapStatusTx(ctx, tx, swapId, models.SwapStatusAccepted)
	})
	if err != nil {
		t.Fatalf("First status flip failed: %v", err)
	}

	// The second flip finds no pending row and reports the actual status.
	err = service.WithTx(ctx, "cancel", func(tx *sql.Tx) error {
		return service.SetSwapStatusTx(ctx, tx, swapId, models.SwapStatusCancelled)
	})
	if !errors.Is(err, store.ErrNotPending) {
		t.Fatalf("Expected ErrNotPending, got %v", err)
	}
	var stateErr *store.StateError
	if !errors.As(err, &stateErr) || stateErr.Status != models.SwapStatusAccepted {
		t.Errorf("Expected StateError carrying status accepted, got %v", err)
	}

	swap, err := service.GetSwap(ctx, swapId)
	if err != nil {
		t.Fatalf("GetSwap failed: %v", err)
	}
	if swap.Status != models.SwapStatusAccepted {
		t.Errorf("Expected status accepted, got %s", swap.Status)
	}
}

func TestBindSwapTakerClaimsOnce(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")
	maker := mustFund(t, service, 1, gold, "50")
	first := mustFund(t, service, 2, silver, "50")
	second := mustFund(t, service, 3, silver, "50")

	swapId := insertTestSwap(t, service, InsertSwapParams{
		MakerAccountId:  maker,
		MakerCurrencyId: gold,
		TakerCurrencyId: silver,
		MakerAmount:     "10",
		TakerAmount:     "20",
	})

	err := service.WithTx(ctx, "claim", func(tx *sql.Tx) error {
		return service.BindSwapTakerTx(ctx, tx, swapId, first)
	})
	if err != nil {
		t.Fatalf("First claim failed: %v", err)
	}

	err = service.WithTx(ctx, "claim again", func(tx *sql.Tx) error {
		return service.BindSwapTakerTx(ctx, tx, swapId, second)
	})
	if !errors.Is(err, store.ErrNotPending) {
		t.Fatalf("Expected second claim to fail with ErrNotPending, got %v", err)
	}

	swap, err := service.GetSwap(ctx, swapId)
	if err != nil {
		t.Fatalf("GetSwap failed: %v", err)
	}
	if swap.TakerAccountId != first {
		t.Errorf("Expected taker %s, got %s", first, swap.TakerAccountId)
	}
}

func TestListOpenSwaps(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")
	maker := mustFund(t, service, 1, gold, "50")
	taker := mustFund(t, service, 2, silver, "50")

	open := insertTestSwap(t, service, InsertSwapParams{
		MakerAccountId:  maker,
		MakerCurrencyId: gold,
		TakerCurrencyId: silver,
		MakerAmount:     "10",
		TakerAmount:     "20",
	})
	// Targeted swap: not listed as open.
	insertTestSwap(t, service, InsertSwapParams{
		MakerAccountId:  maker,
		TakerAccountId:  taker,
		MakerCurrencyId: gold,
		TakerCurrencyId: silver,
		MakerAmount:     "5",
		TakerAmount:     "8",
	})

	swaps, err := service.ListOpenSwaps(ctx)
	if err != nil {
		t.Fatalf("ListOpenSwaps failed: %v", err)
	}
	if len(swaps) != 1 || swaps[0].Id != open {
		t.Fatalf("Expected only swap %d to be open, got %+v", open, swaps)
	}
	if swaps[0].TakerAccountId != "" {
		t.Errorf("Expected empty taker on open swap, got %s", swaps[0].TakerAccountId)
	}
}

func TestListPendingSwapsForAccount(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")
	maker := mustFund(t, service, 1, gold, "50")
	taker := mustFund(t, service, 2, silver, "50")

	swapId := insertTestSwap(t, service, InsertSwapParams{
		MakerAccountId:  maker,
		TakerAccountId:  taker,
		MakerCurrencyId: gold,
		TakerCurrencyId: silver,
		MakerAmount:     "10",
		TakerAmount:     "20",
	})

	asMaker, err := service.ListPendingSwapsForAccount(ctx, maker, true)
	if err != nil {
		t.Fatalf("ListPendingSwapsForAccount(maker) failed: %v", err)
	}
	if len(asMaker) != 1 || asMaker[0].Id != swapId {
		t.Errorf("Expected maker listing to contain swap %d", swapId)
	}

	asTaker, err := service.ListPendingSwapsForAccount(ctx, taker, false)
	if err != nil {
		t.Fatalf("ListPendingSwapsForAccount(taker) failed: %v", err)
	}
	if len(asTaker) != 1 || asTaker[0].Id != swapId {
		t.Errorf("Expected taker listing to contain swap %d", swapId)
	}
}

func TestGetSwapNotFound(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.GetSwap(context.Background(), 9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
