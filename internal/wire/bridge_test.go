package wire

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"guildmint/internal/database"
	"guildmint/internal/extbank"
	"guildmint/internal/models"
	"guildmint/internal/store"

	"github.com/shopspring/decimal"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// fakePartner is an in-memory stand-in for the partner balance service.
type fakePartner struct {
	mu       sync.Mutex
	banks    map[string]int64
	failNext int    // HTTP status to return on the next PATCH, 0 for none
	onFail   func() // runs before the injected failure is written
}

func (f *fakePartner) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// users/{guild}/{user}/balance
		if len(parts) != 4 || parts[0] != "users" || parts[3] != "balance" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		userId := parts[2]

		switch r.Method {
		case http.MethodGet:
			bank, ok := f.banks[userId]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(models.RemoteBalance{UserId: userId, Bank: bank})
		case http.MethodPatch:
			if f.failNext != 0 {
				status := f.failNext
				f.failNext = 0
				if f.onFail != nil {
					f.onFail()
				}
				w.WriteHeader(status)
				return
			}
			var body models.BalanceModifyRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Bank == nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			updated := f.banks[userId] + *body.Bank
			if updated < 0 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(models.ErrorBody{Error: "balance cannot go negative"})
				return
			}
			f.banks[userId] = updated
			json.NewEncoder(w).Encode(models.RemoteBalance{UserId: userId, Bank: updated})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func setupBridge(t *testing.T) (*Bridge, *database.Service, *fakePartner) {
	t.Helper()

	partner := &fakePartner{banks: make(map[string]int64)}
	server := httptest.NewServer(partner.handler())
	t.Cleanup(server.Close)

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

	client, err := extbank.NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("Failed to create partner client: %v", err)
	}

	bridge := NewBridge(db, client, testEncryptionKey)

	ctx := context.Background()
	if _, err := db.CreateCurrency(ctx, 100, "Gold", "GLD"); err != nil {
		t.Fatalf("CreateCurrency failed: %v", err)
	}
	if err := bridge.SetCredential(ctx, "GLD", "partner-token"); err != nil {
		t.Fatalf("SetCredential failed: %v", err)
	}

	return bridge, db, partner
}

func fundLocal(t *testing.T, db *database.Service, ownerId int64, ticker, amount string) {
	t.Helper()
	ctx := context.Background()

	currency, err := db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		t.Fatalf("GetCurrencyByTicker failed: %v", err)
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
		t.Fatalf("Failed to fund account: %v", err)
	}
}

func localBalance(t *testing.T, db *database.Service, ownerId int64, ticker string) decimal.Decimal {
	t.Helper()
	ctx := context.Background()

	currency, err := db.GetCurrencyByTicker(ctx, ticker)
	if err != nil {
		t.Fatalf("GetCurrencyByTicker failed: %v", err)
	}
	amount, err := db.GetBalance(ctx, ownerId, currency.Id)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	return amount
}

func TestWireInMovesFunds(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	partner.banks[strconv.Itoa(42)] = 500

	result, err := bridge.WireIn(context.Background(), 42, "GLD", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("WireIn failed: %v", err)
	}
	if !result.LocalBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected local balance 200, got %s", result.LocalBalance)
	}
	if result.RemoteBank != 300 {
		t.Errorf("Expected remote bank 300, got %d", result.RemoteBank)
	}
	if partner.banks["42"] != 300 {
		t.Errorf("Expected partner bank debited to 300, got %d", partner.banks["42"])
	}
	if got := localBalance(t, db, 42, "GLD"); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected local balance 200, got %s", got)
	}
}

func TestWireInRejectsFractionalAmount(t *testing.T) {
	bridge, _, partner := setupBridge(t)
	partner.banks["42"] = 500

	var validationErr *store.ValidationError
	_, err := bridge.WireIn(context.Background(), 42, "GLD", decimal.RequireFromString("10.5"))
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for fractional amount, got %v", err)
	}
	if partner.banks["42"] != 500 {
		t.Errorf("Expected partner untouched, got %d", partner.banks["42"])
	}
}

func TestWireInInsufficientPartnerBank(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	partner.banks["42"] = 50

	_, err := bridge.WireIn(context.Background(), 42, "GLD", decimal.NewFromInt(100))
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	// Unknown partner user counts as an empty bank, not an error.
	_, err = bridge.WireIn(context.Background(), 99, "GLD", decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance for unknown user, got %v", err)
	}

	// Nothing landed locally.
	ctx := context.Background()
	currency, _ := db.GetCurrencyByTicker(ctx, "GLD")
	if _, err := db.GetBalance(ctx, 42, currency.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected no local account created, got %v", err)
	}
}

func TestWireOutMovesFunds(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	partner.banks["42"] = 10
	fundLocal(t, db, 42, "GLD", "300")

	result, err := bridge.WireOut(context.Background(), 42, "GLD", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("WireOut failed: %v", err)
	}
	if !result.LocalBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected local balance 200, got %s", result.LocalBalance)
	}
	if result.RemoteBank != 110 {
		t.Errorf("Expected remote bank 110, got %d", result.RemoteBank)
	}
}

func TestWireOutInsufficientLocalBalance(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	fundLocal(t, db, 42, "GLD", "30")

	_, err := bridge.WireOut(context.Background(), 42, "GLD", decimal.NewFromInt(100))
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if got := localBalance(t, db, 42, "GLD"); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected balance untouched at 30, got %s", got)
	}
	if partner.banks["42"] != 0 {
		t.Errorf("Expected partner untouched, got %d", partner.banks["42"])
	}
}

func TestWireOutCompensatesOnPartnerFailure(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	fundLocal(t, db, 42, "GLD", "300")
	partner.failNext = http.StatusBadGateway

	_, err := bridge.WireOut(context.Background(), 42, "GLD", decimal.NewFromInt(100))

	var apiErr *store.ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected ExternalAPIError, got %v", err)
	}
	if apiErr.Kind != store.ExternalServer {
		t.Errorf("Expected server kind, got %s", apiErr.Kind)
	}
	if !apiErr.Restored {
		t.Error("Expected the error to report the local balance as restored")
	}

	// The compensating transaction put the snapshot back.
	if got := localBalance(t, db, 42, "GLD"); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected balance restored to 300, got %s", got)
	}
	if partner.banks["42"] != 0 {
		t.Errorf("Expected partner untouched, got %d", partner.banks["42"])
	}
}

func TestWireOutCompensationFailureEscalates(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	fundLocal(t, db, 42, "GLD", "300")

	// The partner call fails after the local debit committed, and the
	// database goes away before the compensating transaction can run. The
	// ledgers are now desynchronized and only an operator can fix it.
	partner.failNext = http.StatusInternalServerError
	partner.onFail = db.Close

	_, err := bridge.WireOut(context.Background(), 42, "GLD", decimal.NewFromInt(100))

	var compErr *store.CompensationFailureError
	if !errors.As(err, &compErr) {
		t.Fatalf("Expected CompensationFailureError, got %v", err)
	}
	if !errors.Is(err, store.ErrCompensationFailed) {
		t.Errorf("Expected ErrCompensationFailed in the chain, got %v", err)
	}
	if compErr.AccountId == "" {
		t.Error("Expected the error to name the desynchronized account")
	}

	// The partner failure must not be reported as restored.
	var apiErr *store.ExternalAPIError
	if errors.As(err, &apiErr) && apiErr.Restored {
		t.Error("Expected no restored marker when compensation failed")
	}
}

func TestWireInCompensatesOnPartnerFailure(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	partner.banks["42"] = 500
	fundLocal(t, db, 42, "GLD", "100")
	partner.failNext = http.StatusInternalServerError

	_, err := bridge.WireIn(context.Background(), 42, "GLD", decimal.NewFromInt(200))

	var apiErr *store.ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected ExternalAPIError, got %v", err)
	}
	if !apiErr.Restored {
		t.Error("Expected the error to report the local balance as restored")
	}

	if got := localBalance(t, db, 42, "GLD"); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected balance restored to 100, got %s", got)
	}
	if partner.banks["42"] != 500 {
		t.Errorf("Expected partner bank unchanged at 500, got %d", partner.banks["42"])
	}
}

func TestWireRequiresCredential(t *testing.T) {
	bridge, db, _ := setupBridge(t)

	ctx := context.Background()
	if _, err := db.CreateCurrency(ctx, 300, "Silver", "SLV"); err != nil {
		t.Fatalf("CreateCurrency failed: %v", err)
	}

	var configErr *store.ConfigError
	_, err := bridge.WireIn(ctx, 42, "SLV", decimal.NewFromInt(10))
	if !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigError without a provisioned credential, got %v", err)
	}
}

func TestSetCredentialReplacesToken(t *testing.T) {
	bridge, db, partner := setupBridge(t)
	partner.banks["42"] = 100

	// Rotating the token keeps wires working.
	if err := bridge.SetCredential(context.Background(), "GLD", "rotated-token"); err != nil {
		t.Fatalf("SetCredential failed: %v", err)
	}
	if _, err := bridge.WireIn(context.Background(), 42, "GLD", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("WireIn after rotation failed: %v", err)
	}

	// The stored form is the encrypted envelope, not the plaintext.
	ctx := context.Background()
	currency, _ := db.GetCurrencyByTicker(ctx, "GLD")
	credential, err := db.GetCredential(ctx, currency.Id, ApiTypePartnerBank)
	if err != nil || credential == nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if credential.EncryptedToken == "rotated-token" {
		t.Error("Expected the stored token to be encrypted")
	}
}
