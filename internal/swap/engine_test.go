package swap

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"guildmint/internal/database"
	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func setupEngine(t *testing.T) (*Engine, *database.Service) {
	t.Helper()
	cfg := models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	}

	db, err := database.NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create database service: %v", err)
	}
	t.Cleanup(db.Close)

	return NewEngine(db), db
}

func fund(t *testing.T, db *database.Service, ownerId int64, ticker, amount string) {
	t.Helper()
	ctx := context.Background()

	currency, err := db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		t.Fatalf("GetCurrencyByTicker(%s) failed: %v", ticker, err)
	}

	err = db.WithTx(ctx, "test fund", func(tx *sql.Tx) error {
		account, err := db.GetOrCreateAccountTx(ctx, tx, ownerId, currency.Id)
		if err != nil {
			return err
		}
		_, err = db.AdjustTx(ctx, tx, account.Id, decimal.RequireFromString(amount))
		return err
	})
	if err != nil {
		t.Fatalf("Failed to fund owner %d: %v", ownerId, err)
	}
}

func balance(t *testing.T, db *database.Service, ownerId int64, ticker string) decimal.Decimal {
	t.Helper()
	ctx := context.Background()

	currency, err := db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		t.Fatalf("GetCurrencyByTicker(%s) failed: %v", ticker, err)
	}
	amount, err := db.GetBalance(ctx, ownerId, currency.Id)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	return amount
}

func setupCurrencies(t *testing.T, db *database.Service) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.CreateCurrency(ctx, 100, "Gold", "GLD"); err != nil {
		t.Fatalf("CreateCurrency(GLD) failed: %v", err)
	}
	if _, err := db.CreateCurrency(ctx, 200, "Silver", "SLV"); err != nil {
		t.Fatalf("CreateCurrency(SLV) failed: %v", err)
	}
}

const (
	maker    = int64(1)
	taker    = int64(2)
	stranger = int64(3)
)

func makeTargetedSwap(t *testing.T, engine *Engine) *models.Swap {
	t.Helper()
	swap, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		TakerOwnerId: taker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return swap
}

func TestCreateEscrowsMakerFunds(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	if swap.Status != models.SwapStatusPending {
		t.Errorf("Expected pending status, got %s", swap.Status)
	}
	if swap.TakerAccountId == "" {
		t.Error("Expected targeted swap to carry the taker account")
	}

	// The offered amount leaves the maker's balance immediately.
	if got := balance(t, db, maker, "GLD"); !got.Equal(decimal.RequireFromString("70")) {
		t.Errorf("Expected maker balance 70, got %s", got)
	}
}

func TestCreateInsufficientBalance(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "10")

	_, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		TakerOwnerId: taker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	var balErr *store.InsufficientBalanceError
	if !errors.As(err, &balErr) || balErr.Ticker != "GLD" {
		t.Errorf("Expected detail for GLD, got %v", err)
	}

	// Nothing was escrowed.
	if got := balance(t, db, maker, "GLD"); !got.Equal(decimal.RequireFromString("10")) {
		t.Errorf("Expected maker balance untouched at 10, got %s", got)
	}
}

func TestCreateTakerCannotAfford(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "10")

	// A targeted offer the named taker cannot currently cover is refused,
	// even though the taker is not debited until accept.
	_, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		TakerOwnerId: taker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	var balErr *store.InsufficientBalanceError
	if !errors.As(err, &balErr) || balErr.Ticker != "SLV" {
		t.Errorf("Expected detail for SLV, got %v", err)
	}

	// The refused create rolled back the maker's escrow too.
	if got := balance(t, db, maker, "GLD"); !got.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected maker balance untouched at 100, got %s", got)
	}
}

func TestCreateValidation(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")

	ctx := context.Background()
	var validationErr *store.ValidationError

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"zero maker amount", CreateParams{
			MakerOwnerId: maker, TakerOwnerId: taker,
			MakerTicker: "GLD", MakerAmount: decimal.Zero,
			TakerTicker: "SLV", TakerAmount: decimal.RequireFromString("60"),
		}},
		{"negative taker amount", CreateParams{
			MakerOwnerId: maker, TakerOwnerId: taker,
			MakerTicker: "GLD", MakerAmount: decimal.RequireFromString("30"),
			TakerTicker: "SLV", TakerAmount: decimal.RequireFromString("-1"),
		}},
		{"same currency both sides", CreateParams{
			MakerOwnerId: maker, TakerOwnerId: taker,
			MakerTicker: "GLD", MakerAmount: decimal.RequireFromString("30"),
			TakerTicker: "gld", TakerAmount: decimal.RequireFromString("60"),
		}},
		{"self trade", CreateParams{
			MakerOwnerId: maker, TakerOwnerId: maker,
			MakerTicker: "GLD", MakerAmount: decimal.RequireFromString("30"),
			TakerTicker: "SLV", TakerAmount: decimal.RequireFromString("60"),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Create(ctx, tc.params); !errors.As(err, &validationErr) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAcceptSettlesBothSides(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	settled, err := engine.Accept(context.Background(), swap.Id, taker)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if settled.Status != models.SwapStatusAccepted {
		t.Errorf("Expected accepted status, got %s", settled.Status)
	}

	checks := []struct {
		owner    int64
		ticker   string
		expected string
	}{
		{maker, "GLD", "70"},
		{maker, "SLV", "60"},
		{taker, "SLV", "40"},
		{taker, "GLD", "30"},
	}
	for _, c := range checks {
		if got := balance(t, db, c.owner, c.ticker); !got.Equal(decimal.RequireFromString(c.expected)) {
			t.Errorf("Owner %d %s: expected %s, got %s", c.owner, c.ticker, c.expected, got)
		}
	}

	// Settlement leaves a price point: 60 SLV for 30 GLD is 2 SLV per GLD.
	ctx := context.Background()
	gold, _ := db.GetCurrencyByTicker(ctx, "GLD")
	silver, _ := db.GetCurrencyByTicker(ctx, "SLV")
	price, err := db.LatestPrice(ctx, gold.Id, silver.Id)
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if price == nil || !price.Equal(decimal.RequireFromString("2")) {
		t.Errorf("Expected trade price 2, got %v", price)
	}
}

func TestAcceptByWrongActor(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")
	fund(t, db, stranger, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	_, err := engine.Accept(context.Background(), swap.Id, stranger)
	if !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	// The swap stays pending and the escrow stays out of the maker's balance.
	current, err := engine.Get(context.Background(), swap.Id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.Status != models.SwapStatusPending {
		t.Errorf("Expected still pending, got %s", current.Status)
	}
}

func TestAcceptOwnOpenSwap(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, maker, "SLV", "100")

	swap, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var validationErr *store.ValidationError
	if _, err := engine.Accept(context.Background(), swap.Id, maker); !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for self-accept, got %v", err)
	}
}

func TestAcceptInsufficientTakerBalance(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	// The creation-time check was advisory: the taker spends down to 10
	// before accepting, and the settlement must catch it.
	fund(t, db, taker, "SLV", "-90")

	_, err := engine.Accept(context.Background(), swap.Id, taker)
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	// The failed accept rolled back in full: still pending, escrow intact,
	// taker untouched.
	current, err := engine.Get(context.Background(), swap.Id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if current.Status != models.SwapStatusPending {
		t.Errorf("Expected still pending, got %s", current.Status)
	}
	if got := balance(t, db, taker, "SLV"); !got.Equal(decimal.RequireFromString("10")) {
		t.Errorf("Expected taker balance 10, got %s", got)
	}
}

func TestDenyRefundsEscrow(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	cancelled, err := engine.Deny(context.Background(), swap.Id, maker)
	if err != nil {
		t.Fatalf("Deny failed: %v", err)
	}
	if cancelled.Status != models.SwapStatusCancelled {
		t.Errorf("Expected cancelled status, got %s", cancelled.Status)
	}
	if got := balance(t, db, maker, "GLD"); !got.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected escrow refunded to 100, got %s", got)
	}

	// Terminal states are final.
	if _, err := engine.Accept(context.Background(), swap.Id, taker); !errors.Is(err, store.ErrNotPending) {
		t.Errorf("Expected ErrNotPending after cancel, got %v", err)
	}
}

func TestDenyByNamedTaker(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	if _, err := engine.Deny(context.Background(), swap.Id, taker); err != nil {
		t.Fatalf("Expected named taker to be able to decline, got %v", err)
	}
	if got := balance(t, db, maker, "GLD"); !got.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected escrow refunded to maker, got %s", got)
	}
}

func TestDenyByStranger(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")

	swap := makeTargetedSwap(t, engine)

	if _, err := engine.Deny(context.Background(), swap.Id, stranger); !errors.Is(err, store.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestOpenSwapClaimedByAnyone(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, stranger, "SLV", "100")

	swap, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if swap.TakerAccountId != "" {
		t.Fatal("Expected open swap without a taker")
	}

	open, err := db.ListOpenSwaps(context.Background())
	if err != nil {
		t.Fatalf("ListOpenSwaps failed: %v", err)
	}
	if len(open) != 1 || open[0].Id != swap.Id {
		t.Fatalf("Expected the swap listed as open, got %+v", open)
	}

	settled, err := engine.Accept(context.Background(), swap.Id, stranger)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if settled.TakerAccountId == "" {
		t.Error("Expected taker bound after claim")
	}
	if got := balance(t, db, stranger, "GLD"); !got.Equal(decimal.RequireFromString("30")) {
		t.Errorf("Expected claimer to receive 30 GLD, got %s", got)
	}
}

func TestConcurrentAcceptSettlesOnce(t *testing.T) {
	engine, db := setupEngine(t)
	setupCurrencies(t, db)
	fund(t, db, maker, "GLD", "100")
	fund(t, db, taker, "SLV", "100")
	fund(t, db, stranger, "SLV", "100")

	swap, err := engine.Create(context.Background(), CreateParams{
		MakerOwnerId: maker,
		MakerTicker:  "GLD",
		MakerAmount:  decimal.RequireFromString("30"),
		TakerTicker:  "SLV",
		TakerAmount:  decimal.RequireFromString("60"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	results := make(chan error, 2)
	var g errgroup.Group
	for _, actor := range []int64{taker, stranger} {
		actor := actor
		g.Go(func() error {
			_, err := engine.Accept(context.Background(), swap.Id, actor)
			results <- err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("errgroup failed: %v", err)
	}
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("Expected exactly one accept to win, got %d", successes)
	}

	// The maker was paid exactly once.
	if got := balance(t, db, maker, "SLV"); !got.Equal(decimal.RequireFromString("60")) {
		t.Errorf("Expected maker paid 60 SLV once, got %s", got)
	}
	final, err := engine.Get(context.Background(), swap.Id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if final.Status != models.SwapStatusAccepted {
		t.Errorf("Expected accepted, got %s", final.Status)
	}
}
