package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/http/dto"
)

// ErrAlreadySettled is returned when the ledger answers 409 to a trigger:
// another caller concluded or finalized first, or the gate is not open yet.
var ErrAlreadySettled = errors.New("already settled")

// TokenSource mints the bearer token sent with every request.
type TokenSource func() (string, error)

// LedgerClient talks to the ledger API on behalf of the settlement worker.
type LedgerClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	maxElapsed time.Duration
	log        *zap.Logger
}

func NewLedgerClient(baseURL string, tokens TokenSource, log *zap.Logger) *LedgerClient {
	return &LedgerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxElapsed: 30 * time.Second,
		log:        log,
	}
}

// Due lists the sales and proposals waiting for a trigger.
func (c *LedgerClient) Due(ctx context.Context) (*dto.DueResponse, error) {
	var envelope struct {
		OK   bool            `json:"ok"`
		Data dto.DueResponse `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/due", &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// Conclude triggers settlement of a closed sale.
func (c *LedgerClient) Conclude(ctx context.Context, propertyID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/properties/%s/conclude", propertyID), nil)
}

// Finalize closes a proposal whose voting window ended.
func (c *LedgerClient) Finalize(ctx context.Context, proposalID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/proposals/%s/finalize", proposalID), nil)
}

// do retries transport failures and 5xx answers; any other status is final.
func (c *LedgerClient) do(ctx context.Context, method, path string, out any) error {
	op := func() error {
		token, err := c.tokens()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("mint token: %w", err))
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ledger api unavailable: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusConflict:
			return backoff.Permanent(ErrAlreadySettled)
		case resp.StatusCode >= 500:
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("ledger api returned %d: %s", resp.StatusCode, string(body))
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("ledger api returned %d: %s", resp.StatusCode, string(body)))
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxElapsed
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		c.log.Warn("ledger api call failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
