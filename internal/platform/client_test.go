package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
	"github.com/gaming/risk-service/internal/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(config.PlatformConfig{
		BaseURL:                 srv.URL + "/api/",
		Timeout:                 2 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          time.Minute,
		BreakerFailureThreshold: 2,
	}, logger.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetUserDetails(t *testing.T) {
	userID := uuid.New()
	lastActive := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/admin/users/"+userID.String(), r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"user": map[string]interface{}{
					"id":         userID,
					"username":   "lucky",
					"kycStatus":  "PENDING",
					"loginCount": 4,
					"lastActive": lastActive,
				},
				"statistics": map[string]interface{}{"totalGames": 12, "gamesWon": 5, "totalWinnings": 340, "winRate": 41.6},
				"wallet":     map[string]interface{}{"withdrawableBalance": 120},
				"allTransactions": []map[string]interface{}{
					{"type": "DEPOSIT", "amount": 100, "status": "COMPLETED"},
				},
				"allGames": []map[string]interface{}{
					{"status": "COMPLETED", "result": "WON", "entryFee": 10, "winAmount": 40},
				},
			},
		})
	})

	profile, err := client.GetUserDetails(context.Background(), "admin-token", userID)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), profile.UserID)
	assert.Equal(t, "lucky", profile.Username)
	assert.Equal(t, domain.KYCStatusPending, profile.KYCStatus)
	assert.Equal(t, 4, profile.LoginCount)
	require.NotNil(t, profile.LastActive)
	assert.True(t, lastActive.Equal(*profile.LastActive))
	assert.Equal(t, 340.0, profile.Statistics.TotalWinnings)
	assert.Equal(t, 0.0, profile.Statistics.TotalDeposits)
	assert.Equal(t, 120.0, profile.Wallet.WithdrawableBalance)
	require.Len(t, profile.AllTransactions, 1)
	assert.Equal(t, domain.TransactionDeposit, profile.AllTransactions[0].Type)
	require.Len(t, profile.AllGames, 1)
	assert.Equal(t, domain.GameResultWon, profile.AllGames[0].Result)
}

func TestGetUserDetails_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
		want   error
	}{
		{"not found", http.StatusNotFound, map[string]interface{}{"success": false, "message": "User not found"}, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid token"}, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, map[string]interface{}{"success": false}, ErrUnauthorized},
		{"server error", http.StatusBadGateway, map[string]interface{}{"success": false}, ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.GetUserDetails(context.Background(), "tok", uuid.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": "withdrawal already processed"})
	})

	err := client.ApproveWithdrawal(context.Background(), "tok", uuid.New(), "ok")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "withdrawal already processed", apiErr.Message)
}

func TestRejectWithdrawalSendsReason(t *testing.T) {
	withdrawalID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/withdrawals/"+withdrawalID.String()+"/reject", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "winnings without deposits", body["reason"])

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})

	require.NoError(t, client.RejectWithdrawal(context.Background(), "tok", withdrawalID, "winnings without deposits"))
}

func TestGetWithdrawal(t *testing.T) {
	withdrawalID := uuid.New()
	userID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"id": withdrawalID, "userId": userID, "amount": 250, "status": "PENDING", "method": "UPI",
			},
		})
	})

	wd, err := client.GetWithdrawal(context.Background(), "tok", withdrawalID)
	require.NoError(t, err)
	assert.Equal(t, userID, wd.UserID)
	assert.Equal(t, 250.0, wd.Amount)
	assert.True(t, wd.IsPending())
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if atomic.LoadInt32(&calls) <= 3 {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
	})
	ctx := context.Background()

	// client errors never trip the breaker
	for i := 0; i < 3; i++ {
		_, err := client.GetWithdrawal(ctx, "tok", uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())

	for i := 0; i < 2; i++ {
		_, err := client.GetWithdrawal(ctx, "tok", uuid.New())
		assert.ErrorIs(t, err, ErrBackendUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	before := atomic.LoadInt32(&calls)
	_, err := client.GetWithdrawal(ctx, "tok", uuid.New())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "open breaker must not reach the backend")
}

func TestCallerContextDoesNotTripBreaker(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	withdrawalID := uuid.New()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": withdrawalID, "status": "PENDING"},
		})
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetWithdrawal(canceled, "tok", withdrawalID)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)

	// more expired calls than the failure threshold
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := client.GetWithdrawal(ctx, "tok", withdrawalID)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrBackendUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, client.BreakerState())

	slow.Store(false)
	wd, err := client.GetWithdrawal(context.Background(), "tok", withdrawalID)
	require.NoError(t, err)
	assert.Equal(t, withdrawalID, wd.ID)
}
