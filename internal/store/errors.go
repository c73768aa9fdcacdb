package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the settlement engine. Typed errors below wrap
// these so callers can branch with errors.Is without losing the detail.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotPending          = errors.New("swap is not pending")
	ErrUnauthorized        = errors.New("actor not authorized")
	ErrCompensationFailed  = errors.New("compensation failed")
)

// ValidationError covers bad caller input: non-positive amounts, unknown or
// duplicate tickers, self-trades, fractional wire amounts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Kind string // "currency", "account", "swap", "transaction"
	Ref  string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.Ref) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError reports an operation against a swap in the wrong state or by the
// wrong actor. Status carries the swap's actual terminal status when the
// problem is a missed pending check.
type StateError struct {
	SwapId int64
	Status string
	Msg    string
}

func (e *StateError) Error() string { return e.Msg }

func (e *StateError) Unwrap() error {
	if e.Status != "" {
		return ErrNotPending
	}
	return ErrUnauthorized
}

func NotPending(swapId int64, status string) *StateError {
	return &StateError{
		SwapId: swapId,
		Status: status,
		Msg:    fmt.Sprintf("swap %d is %s, not pending", swapId, status),
	}
}

func Unauthorized(swapId int64, msg string) *StateError {
	return &StateError{SwapId: swapId, Msg: msg}
}

// InsufficientBalanceError carries what was needed and what was there.
type InsufficientBalanceError struct {
	Ticker string
	Need   decimal.Decimal
	Have   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: have %s, need %s", e.Ticker, e.Have, e.Need)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// ConfigError reports missing operator-provisioned configuration (encryption
// key, partner credential). Fatal for bridge operations only.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// PersistenceError wraps a storage-layer failure. The enclosing transaction
// has been rolled back in full and the operation is safe to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// ExternalKind sub-types an ExternalAPIError by the partner's response.
type ExternalKind int

const (
	ExternalUnknown ExternalKind = iota
	ExternalBadRequest
	ExternalAuth
	ExternalNotFound
	ExternalRateLimited
	ExternalServer
)

func (k ExternalKind) String() string {
	switch k {
	case ExternalBadRequest:
		return "bad_request"
	case ExternalAuth:
		return "auth"
	case ExternalNotFound:
		return "not_found"
	case ExternalRateLimited:
		return "rate_limited"
	case ExternalServer:
		return "server"
	default:
		return "unknown"
	}
}

// ExternalAPIError maps a non-2xx partner response. RetryAfter and IsGlobal
// are only meaningful for ExternalRateLimited.
type ExternalAPIError struct {
	Kind       ExternalKind
	Status     int
	Msg        string
	RetryAfter time.Duration
	IsGlobal   bool
	Restored   bool // local balance was compensated before surfacing
}

func (e *ExternalAPIError) Error() string {
	if e.Restored {
		return fmt.Sprintf("partner api error (%s, status %d): %s; local balance restored", e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("partner api error (%s, status %d): %s", e.Kind, e.Status, e.Msg)
}

// CompensationFailureError is the highest-severity outcome: the local ledger
// and the partner are desynchronized and need manual reconciliation. Never
// retried automatically.
type CompensationFailureError struct {
	AccountId string
	Err       error
}

func (e *CompensationFailureError) Error() string {
	return fmt.Sprintf("compensating transaction failed for account %s, ledgers desynchronized: %v", e.AccountId, e.Err)
}

func (e *CompensationFailureError) Unwrap() error { return ErrCompensationFailed }

// ThrottledError reports an advisory inbound throttle hit: the caller may
// simply retry after Remaining.
type ThrottledError struct {
	Op        string
	Remaining time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("operation %s throttled, retry in %s", e.Op, e.Remaining)
}
