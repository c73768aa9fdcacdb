package models

// RemoteBalance is the partner service's balance record for one user in one
// guild. Cash and bank are whole units; the partner API does not carry
// fractional amounts.
type RemoteBalance struct {
	UserId string `json:"user_id"`
	Cash   int64  `json:"cash"`
	Bank   int64  `json:"bank"`
}

// BalanceUpdateRequest is the PUT body: a full-value override, not an
// increment. Nil fields are left untouched by the partner.
type BalanceUpdateRequest struct {
	Cash *int64 `json:"cash,omitempty"`
	Bank *int64 `json:"bank,omitempty"`
}

// BalanceModifyRequest is the PATCH body: increments/decrements.
type BalanceModifyRequest struct {
	Cash *int64 `json:"cash,omitempty"`
	Bank *int64 `json:"bank,omitempty"`
}

// RateLimitBody is the 429 response payload.
type RateLimitBody struct {
	Message    string `json:"message"`
	RetryAfter *int64 `json:"retry_after"`
	Global     *bool  `json:"global"`
}

// ErrorBody is the generic error payload on 4xx responses.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
