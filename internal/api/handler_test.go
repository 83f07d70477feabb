package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
	"github.com/gaming/risk-service/internal/pkg/logger"
	"github.com/gaming/risk-service/internal/platform"
	"github.com/gaming/risk-service/internal/repository"
	"github.com/gaming/risk-service/internal/review"
)

const testJWTSecret = "test-secret"

var testSecurity = config.SecurityConfig{JWTSecret: testJWTSecret, AdminRole: "admin"}

type MockRiskService struct {
	mock.Mock
}

func (m *MockRiskService) Review(ctx context.Context, token string, withdrawalID uuid.UUID) (*domain.ReviewResult, error) {
	args := m.Called(ctx, token, withdrawalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewResult), args.Error(1)
}

func (m *MockRiskService) AssessUser(ctx context.Context, token string, userID uuid.UUID, bypassCache bool) (*domain.RiskAssessment, error) {
	args := m.Called(ctx, token, userID, bypassCache)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RiskAssessment), args.Error(1)
}

func (m *MockRiskService) AssessProfile(ctx context.Context, profile *domain.UserRiskProfile) *domain.RiskAssessment {
	args := m.Called(ctx, profile)
	return args.Get(0).(*domain.RiskAssessment)
}

func (m *MockRiskService) Stats() review.Stats {
	return review.Stats{ReviewCount: 7}
}

type MockProfileSource struct {
	mock.Mock
}

func (m *MockProfileSource) GetUserDetails(ctx context.Context, token string, userID uuid.UUID) (*domain.UserRiskProfile, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserRiskProfile), args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) GetLatestAssessment(ctx context.Context, userID uuid.UUID) (*domain.AssessmentRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssessmentRecord), args.Error(1)
}

func (m *MockHistory) ListAlertsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FraudAlert, error) {
	args := m.Called(ctx, userID, limit)
	alerts, _ := args.Get(0).([]*domain.FraudAlert)
	return alerts, args.Error(1)
}

func generateTestToken(role string, expiresIn time.Duration) string {
	claims := AdminClaims{
		AdminID: uuid.NewString(),
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(testJWTSecret))
	return tokenString
}

type testServer struct {
	echo     *echo.Echo
	risk     *MockRiskService
	profiles *MockProfileSource
	history  *MockHistory
}

func setupTestServer() *testServer {
	s := &testServer{
		echo:     echo.New(),
		risk:     &MockRiskService{},
		profiles: &MockProfileSource{},
		history:  &MockHistory{},
	}
	h := NewHandler(s.risk, s.profiles, s.history, logger.NewNop())
	RegisterRoutes(s.echo, h, testSecurity)
	return s
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := setupTestServer()

	rec := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"reviewCount":7`)
}

func TestAdminAuth(t *testing.T) {
	s := setupTestServer()
	path := fmt.Sprintf("/api/v1/users/%s/risk", uuid.New())

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"expired token", generateTestToken("admin", -time.Hour), http.StatusUnauthorized},
		{"non-admin role", generateTestToken("player", time.Hour), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, path, tt.token, "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
	s.risk.AssertNotCalled(t, "AssessUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminAuth_RejectsWrongSecret(t *testing.T) {
	s := setupTestServer()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{Role: "admin"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/alerts", uuid.New()), signed, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserRisk_ForwardsTokenAndRefresh(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	userID := uuid.New()

	s.risk.On("AssessUser", mock.Anything, token, userID, true).Return(&domain.RiskAssessment{
		Score:          20,
		Level:          domain.RiskLevelHigh,
		Recommendation: domain.RecommendationHold,
	}, nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/risk?refresh=true", userID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.RecommendationHold, got.Recommendation)
	s.risk.AssertExpectations(t)
}

func TestGetUserRisk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", fmt.Errorf("fetch user: %w", platform.ErrNotFound), http.StatusNotFound},
		{"unauthorized", fmt.Errorf("fetch user: %w", platform.ErrUnauthorized), http.StatusUnauthorized},
		{"breaker open", fmt.Errorf("%w: circuit breaker is open", platform.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{"backend error", &platform.APIError{StatusCode: http.StatusConflict, Message: "conflict"}, http.StatusBadGateway},
		{"deadline", fmt.Errorf("fetch user: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer()
			s.risk.On("AssessUser", mock.Anything, mock.Anything, mock.Anything, false).Return(nil, tt.err)

			rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/risk", uuid.New()), generateTestToken("admin", time.Hour), "")
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestBadInput(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/users/not-a-uuid/risk", token, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/withdrawals/123/review", token, "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/risk/assess", token, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/alerts?limit=-3", uuid.New()), token, "").Code)
}

func TestAssessProfile(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)

	s.risk.On("AssessProfile", mock.Anything, mock.MatchedBy(func(p *domain.UserRiskProfile) bool {
		return p.Username == "lucky_star" && p.LoginCount == 0
	})).Return(&domain.RiskAssessment{Score: 30, Level: domain.RiskLevelHigh, Recommendation: domain.RecommendationHold})

	rec := s.do(http.MethodPost, "/api/v1/risk/assess", token, `{"username":"lucky_star","statistics":{"totalGames":4}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendation":"HOLD"`)
}

func TestAssessProfile_AcceptsOpaqueUserID(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)

	s.risk.On("AssessProfile", mock.Anything, mock.MatchedBy(func(p *domain.UserRiskProfile) bool {
		return p.UserID == "player-1234"
	})).Return(&domain.RiskAssessment{Level: domain.RiskLevelLow, Recommendation: domain.RecommendationApprove})

	rec := s.do(http.MethodPost, "/api/v1/risk/assess", token, `{"userId":"player-1234","username":"lucky_star"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	s.risk.AssertExpectations(t)
}

func TestGetUserRiskReport(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	userID := uuid.New()
	profile := &domain.UserRiskProfile{UserID: userID.String(), Username: "lucky_star"}

	s.profiles.On("GetUserDetails", mock.Anything, token, userID).Return(profile, nil)
	s.risk.On("AssessProfile", mock.Anything, profile).Return(&domain.RiskAssessment{
		Score:          60,
		Level:          domain.RiskLevelCritical,
		Recommendation: domain.RecommendationReject,
		Findings:       []domain.RiskFinding{{Severity: domain.SeverityCritical, Code: "GAMES_WITHOUT_LOGIN", Message: "Games played without any login"}},
		CriticalCount:  1,
	})

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/risk/report", userID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, echo.MIMETextPlainCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "FRAUD RISK REPORT: lucky_star")
	assert.Contains(t, rec.Body.String(), "60/100")
}

func TestListUserAlerts(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	userID := uuid.New()
	alert := domain.NewFraudAlert(userID, nil, &domain.RiskAssessment{
		Score:          30,
		Level:          domain.RiskLevelHigh,
		Recommendation: domain.RecommendationHold,
	})

	s.history.On("ListAlertsByUser", mock.Anything, userID, 10).Return([]*domain.FraudAlert{alert}, nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/alerts?limit=10", userID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), alert.AlertNumber)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestListUserAlerts_CapsLimit(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	userID := uuid.New()

	s.history.On("ListAlertsByUser", mock.Anything, userID, maxAlertLimit).Return([]*domain.FraudAlert{}, nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/alerts?limit=10000", userID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
	s.history.AssertExpectations(t)
}

func TestGetLatestUserRisk(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	userID := uuid.New()
	record := &domain.AssessmentRecord{
		ID:     uuid.New(),
		UserID: userID,
		Assessment: &domain.RiskAssessment{
			Score:          40,
			Level:          domain.RiskLevelHigh,
			Recommendation: domain.RecommendationHold,
		},
	}

	taggedWithUser := mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(logger.UserIDKey) == userID.String()
	})
	s.history.On("GetLatestAssessment", taggedWithUser, userID).Return(record, nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/risk/latest", userID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendation":"HOLD"`)
	assert.Contains(t, rec.Body.String(), record.ID.String())
	s.profiles.AssertNotCalled(t, "GetUserDetails", mock.Anything, mock.Anything, mock.Anything)
	s.history.AssertExpectations(t)
}

func TestGetLatestUserRisk_NotFound(t *testing.T) {
	s := setupTestServer()
	s.history.On("GetLatestAssessment", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%s/risk/latest", uuid.New()), generateTestToken("admin", time.Hour), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewWithdrawal(t *testing.T) {
	s := setupTestServer()
	token := generateTestToken("admin", time.Hour)
	withdrawalID := uuid.New()

	taggedWithWithdrawal := mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(logger.WithdrawalIDKey) == withdrawalID.String()
	})
	s.risk.On("Review", taggedWithWithdrawal, token, withdrawalID).Return(&domain.ReviewResult{
		ReviewID: uuid.New(),
		Decision: domain.RecommendationApprove,
	}, nil)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/v1/withdrawals/%s/review", withdrawalID), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"decision":"APPROVE"`)
	s.risk.AssertExpectations(t)
}
