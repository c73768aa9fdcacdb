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

package extbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"guildmint/internal/models"
	"guildmint/internal/ratelimit"
	"guildmint/internal/store"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Client talks to the partner balance service. Tokens are passed per call
// because each currency carries its own credential; the client itself only
// owns the transport and the outbound rate limiter.
type Client struct {
	baseURL    string
	httpClient http.Client
	limiter    *ratelimit.SlidingWindow
}

func NewClient(baseURL string, limiter *ratelimit.SlidingWindow) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("partner base url cannot be empty")
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    limiter,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// GetBalance reads a user's partner balance. A partner-side 404 surfaces as
// an ExternalAPIError with ExternalNotFound; the bridge decides whether that
// means "zero" for the operation at hand.
func (c *Client) GetBalance(ctx context.Context, token string, guildId, userId int64) (*models.RemoteBalance, error) {
	return c.doBalanceRequest(ctx, http.MethodGet, token, guildId, userId, nil)
}

// SetBalance overrides the user's partner balance with absolute values. The
// compensation path depends on this being an override: replaying it lands on
// the same state.
func (c *Client) SetBalance(ctx context.Context, token string, guildId, userId int64, req models.BalanceUpdateRequest) (*models.RemoteBalance, error) {
	return c.doBalanceRequest(ctx, http.MethodPut, token, guildId, userId, req)
}

// ModifyBalance applies signed deltas to the user's partner balance.
func (c *Client) ModifyBalance(ctx context.Context, token string, guildId, userId int64, req models.BalanceModifyRequest) (*models.RemoteBalance, error) {
	return c.doBalanceRequest(ctx, http.MethodPatch, token, guildId, userId, req)
}

func (c *Client) doBalanceRequest(ctx context.Context, method, token string, guildId, userId int64, body any) (*models.RemoteBalance, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := fmt.Sprintf("%s/users/%d/%d/balance", c.baseURL, guildId, userId)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("unable to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("unable to build partner request: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &store.ExternalAPIError{Kind: store.ExternalUnknown, Msg: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.ExternalAPIError{Kind: store.ExternalUnknown, Status: resp.StatusCode, Msg: err.Error()}
	}

	if resp.StatusCode == http.StatusOK {
		var balance models.RemoteBalance
		if err := json.Unmarshal(raw, &balance); err != nil {
			return nil, &store.ExternalAPIError{Kind: store.ExternalUnknown, Status: resp.StatusCode,
				Msg: fmt.Sprintf("unable to decode balance response: %v", err)}
		}
		return &balance, nil
	}

	apiErr := mapErrorResponse(resp.StatusCode, raw)
	zap.L().Warn("Partner API request failed",
		zap.String("method", method),
		zap.Int64("guild_id", guildId),
		zap.Int64("user_id", userId),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", apiErr.Kind.String()))
	return nil, apiErr
}

func mapErrorResponse(status int, raw []byte) *store.ExternalAPIError {
	switch {
	case status == http.StatusBadRequest:
		return &store.ExternalAPIError{Kind: store.ExternalBadRequest, Status: status, Msg: errorDetail(raw)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &store.ExternalAPIError{Kind: store.ExternalAuth, Status: status, Msg: "partner rejected the credential"}
	case status == http.StatusNotFound:
		return &store.ExternalAPIError{Kind: store.ExternalNotFound, Status: status, Msg: "user or guild not found"}
	case status == http.StatusTooManyRequests:
		var body models.RateLimitBody
		apiErr := &store.ExternalAPIError{Kind: store.ExternalRateLimited, Status: status, Msg: "rate limited"}
		if err := json.Unmarshal(raw, &body); err == nil {
			if body.Message != "" {
				apiErr.Msg = body.Message
			}
			if body.RetryAfter != nil {
				apiErr.RetryAfter = time.Duration(*body.RetryAfter) * time.Millisecond
			}
			if body.Global != nil {
				apiErr.IsGlobal = *body.Global
			}
		}
		return apiErr
	case status >= 500:
		return &store.ExternalAPIError{Kind: store.ExternalServer, Status: status, Msg: errorDetail(raw)}
	default:
		return &store.ExternalAPIError{Kind: store.ExternalUnknown, Status: status, Msg: errorDetail(raw)}
	}
}

func errorDetail(raw []byte) string {
	var body models.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "no detail provided"
}
