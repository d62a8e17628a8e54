package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/nexpass/gocardless-sync/pkg/logging"
	"github.com/nexpass/gocardless-sync/pkg/models"
	"github.com/sony/gobreaker"
)

const (
	defaultTimeout = 20 * time.Second

	// Tokens are refreshed lazily once they are within this margin of
	// their expiry.
	tokenExpiryMargin = 30 * time.Second

	maxRetries       = 3
	baseRetryDelay   = 300 * time.Millisecond
	retryJitterBound = 200 * time.Millisecond
)

// Client is a minimal GoCardless Bank Account Data client with token
// caching, bounded retries and a circuit breaker around every round trip.
// It is not safe for concurrent use; the pipeline is strictly sequential.
type Client struct {
	secretID  string
	secretKey string
	baseURL   string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	accessToken  string
	tokenExpires time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a Client against the given API base URL,
// e.g. "https://bankaccountdata.gocardless.com/api/v2".
func NewClient(secretID, secretKey, baseURL string) *Client {
	return &Client{
		secretID:   secretID,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gocardless",
			Timeout: 60 * time.Second,
		}),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

type tokenResponse struct {
	Access        string `json:"access"`
	AccessExpires int64  `json:"access_expires"`
}

type transactionsResponse struct {
	Transactions struct {
		Booked  []models.Transaction `json:"booked"`
		Pending []models.Transaction `json:"pending"`
	} `json:"transactions"`
}

type balancesResponse struct {
	Balances []models.Balance `json:"balances"`
}

// GetTransactions fetches the booked transactions for an account. When
// dateFrom is non-empty the API filters server-side to transactions booked
// on or after that date. Pending transactions are out of scope.
func (c *Client) GetTransactions(ctx context.Context, accountID, dateFrom string) ([]models.Transaction, error) {
	path := fmt.Sprintf("/accounts/%s/transactions/", accountID)
	if dateFrom != "" {
		path += "?date_from=" + url.QueryEscape(dateFrom)
	}

	var resp transactionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for account %s: %w", accountID, err)
	}
	return resp.Transactions.Booked, nil
}

// GetBalances fetches the balances for an account.
func (c *Client) GetBalances(ctx context.Context, accountID string) ([]models.Balance, error) {
	var resp balancesResponse
	if err := c.get(ctx, fmt.Sprintf("/accounts/%s/balances/", accountID), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch balances for account %s: %w", accountID, err)
	}
	return resp.Balances, nil
}

// get performs an authenticated GET with the retry policy applied.
func (c *Client) get(ctx context.Context, path string, out any) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(backoff(attempt))
		}

		token, err := c.getAccessToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := c.roundTrip(ctx, http.MethodGet, path, token, nil)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("gocardless request failed")
			lastErr = err
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response for %s: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("request to %s failed after %d attempts: %w", path, maxRetries, lastErr)
}

// getAccessToken returns the cached bearer token, requesting a new one once
// the cached token is within the expiry margin.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	if c.accessToken != "" && c.now().Before(c.tokenExpires.Add(-tokenExpiryMargin)) {
		return c.accessToken, nil
	}

	payload, err := json.Marshal(map[string]string{
		"secret_id":  c.secretID,
		"secret_key": c.secretKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	body, err := c.roundTrip(ctx, http.MethodPost, "/token/new/", "", payload)
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tok.Access
	c.tokenExpires = c.now().Add(time.Duration(tok.AccessExpires) * time.Second)
	return c.accessToken, nil
}

// roundTrip performs a single HTTP exchange through the circuit breaker.
func (c *Client) roundTrip(ctx context.Context, method, path, token string, payload []byte) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// backoff returns the delay before the given retry attempt: exponential
// growth from the base delay plus a small random jitter.
func backoff(attempt int) time.Duration {
	delay := baseRetryDelay << (attempt - 1)
	return delay + time.Duration(rand.Int63n(int64(retryJitterBound)))
}
