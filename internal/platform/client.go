// Package platform is the typed client for the gaming platform's admin REST
// backend. The caller's bearer token is passed on every call and never kept.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
	"github.com/gaming/risk-service/internal/pkg/logger"
)

var (
	ErrNotFound           = errors.New("platform: resource not found")
	ErrUnauthorized       = errors.New("platform: unauthorized")
	ErrBackendUnavailable = errors.New("platform: backend unavailable")
)

// APIError is a non-success answer from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses to sentinel errors
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// envelope is the backend's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// userDetails is the payload of GET /admin/users/{id}
type userDetails struct {
	User struct {
		ID         string           `json:"id"`
		Username   string           `json:"username"`
		KYCStatus  domain.KYCStatus `json:"kycStatus"`
		LoginCount int              `json:"loginCount"`
		LastActive *time.Time       `json:"lastActive"`
	} `json:"user"`
	Statistics      domain.Statistics    `json:"statistics"`
	Wallet          domain.Wallet        `json:"wallet"`
	AllTransactions []domain.Transaction `json:"allTransactions"`
	AllGames        []domain.Game        `json:"allGames"`
}

func (d *userDetails) toProfile() *domain.UserRiskProfile {
	return &domain.UserRiskProfile{
		UserID:          d.User.ID,
		Username:        d.User.Username,
		Statistics:      d.Statistics,
		Wallet:          d.Wallet,
		KYCStatus:       d.User.KYCStatus,
		LoginCount:      d.User.LoginCount,
		LastActive:      d.User.LastActive,
		AllTransactions: d.AllTransactions,
		AllGames:        d.AllGames,
	}
}

// Client talks to the platform backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// NewClient creates a new platform client
func NewClient(cfg config.PlatformConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("platform_client"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "platform-backend",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	})

	return c
}

// GetUserDetails fetches the aggregated risk profile of a user
func (c *Client) GetUserDetails(ctx context.Context, token string, userID uuid.UUID) (*domain.UserRiskProfile, error) {
	var details userDetails
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+userID.String(), token, nil, &details); err != nil {
		return nil, fmt.Errorf("get user details %s: %w", userID, err)
	}
	profile := details.toProfile()
	if profile.UserID == "" {
		profile.UserID = userID.String()
	}
	return profile, nil
}

// GetWithdrawal fetches a withdrawal request
func (c *Client) GetWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := c.do(ctx, http.MethodGet, "/admin/withdrawals/"+withdrawalID.String(), token, nil, &w); err != nil {
		return nil, fmt.Errorf("get withdrawal %s: %w", withdrawalID, err)
	}
	return &w, nil
}

// ApproveWithdrawal approves a pending withdrawal
func (c *Client) ApproveWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID, note string) error {
	body := map[string]string{"note": note}
	if err := c.do(ctx, http.MethodPost, "/admin/withdrawals/"+withdrawalID.String()+"/approve", token, body, nil); err != nil {
		return fmt.Errorf("approve withdrawal %s: %w", withdrawalID, err)
	}
	return nil
}

// RejectWithdrawal rejects a pending withdrawal with a reason
func (c *Client) RejectWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPost, "/admin/withdrawals/"+withdrawalID.String()+"/reject", token, body, nil); err != nil {
		return fmt.Errorf("reject withdrawal %s: %w", withdrawalID, err)
	}
	return nil
}

// BreakerState reports the current circuit breaker state
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// do performs a request through the circuit breaker. Only transport errors
// and 5xx answers count as breaker failures; a canceled or expired caller
// context is returned as is and leaves the breaker counts alone.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return callerGone(ctx, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return callerGone(ctx, err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: messageOf(raw, resp.Status)}
		}
		return &rawResponse{status: resp.StatusCode, body: raw}, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	r := res.(*rawResponse)
	if r.err != nil {
		return r.err
	}
	if r.status < 200 || r.status > 299 {
		return &APIError{StatusCode: r.status, Message: messageOf(r.body, http.StatusText(r.status))}
	}

	var env envelope
	if err := json.Unmarshal(r.body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return &APIError{StatusCode: r.status, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

type rawResponse struct {
	status int
	body   []byte
	err    error
}

// callerGone reports a failure caused by the caller's context as a successful
// breaker call carrying the error, so it is not counted against the backend.
func callerGone(ctx context.Context, err error) (interface{}, error) {
	if ctx.Err() != nil {
		return &rawResponse{err: err}, nil
	}
	return nil, err
}

func messageOf(raw []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallback
}
