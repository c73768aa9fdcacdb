package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNormalizePair(t *testing.T) {
	cases := []struct {
		a, b     string
		base     string
		quote    string
		reversed bool
	}{
		{"GLD", "SLV", "GLD", "SLV", false},
		{"SLV", "GLD", "GLD", "SLV", true},
		{"gld", "SLV", "GLD", "SLV", false},
		{"ZZZ", "AAA", "AAA", "ZZZ", true},
	}

	for _, tc := range cases {
		base, quote, reversed := NormalizePair(tc.a, tc.b)
		if base != tc.base || quote != tc.quote || reversed != tc.reversed {
			t.Errorf("NormalizePair(%s, %s) = (%s, %s, %v), want (%s, %s, %v)",
				tc.a, tc.b, base, quote, reversed, tc.base, tc.quote, tc.reversed)
		}
	}
}

func insertTestTrade(t *testing.T, service *Service, baseId, quoteId int64, price, baseAmount, quoteAmount string) {
	t.Helper()
	ctx := context.Background()
	err := service.WithTx(ctx, "test trade", func(tx *sql.Tx) error {
		return service.InsertTradeTx(ctx, tx, baseId, quoteId,
			decimal.RequireFromString(price),
			decimal.RequireFromString(baseAmount),
			decimal.RequireFromString(quoteAmount))
	})
	if err != nil {
		t.Fatalf("InsertTradeTx failed: %v", err)
	}
}

func TestLatestPrice(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")

	// No trades yet: nil price, no error.
	price, err := service.LatestPrice(ctx, gold, silver)
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if price != nil {
		t.Fatalf("Expected nil price for untraded pair, got %s", price)
	}

	insertTestTrade(t, service, gold, silver, "2", "10", "20")
	insertTestTrade(t, service, gold, silver, "2.5", "4", "10")

	price, err = service.LatestPrice(ctx, gold, silver)
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if price == nil || !price.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected latest price 2.5, got %v", price)
	}
}

func TestVWAP(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")

	// 10 base for 20 quote, then 30 base for 90 quote:
	// VWAP = (20+90)/(10+30) = 2.75
	insertTestTrade(t, service, gold, silver, "2", "10", "20")
	insertTestTrade(t, service, gold, silver, "3", "30", "90")

	vwap, err := service.VWAP(ctx, gold, silver, time.Hour)
	if err != nil {
		t.Fatalf("VWAP failed: %v", err)
	}
	if vwap == nil || !vwap.Equal(decimal.RequireFromString("2.75")) {
		t.Errorf("Expected VWAP 2.75, got %v", vwap)
	}
}

func TestVWAPEmptyWindow(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	gold := mustCreateCurrency(t, service, 100, "Gold", "GLD")
	silver := mustCreateCurrency(t, service, 200, "Silver", "SLV")

	vwap, err := service.VWAP(ctx, gold, silver, time.Hour)
	if err != nil {
		t.Fatalf("VWAP failed: %v", err)
	}
	if vwap != nil {
		t.Errorf("Expected nil VWAP for empty window, got %s", vwap)
	}
}
