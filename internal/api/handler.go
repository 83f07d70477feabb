package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gaming/risk-service/internal/domain"
	"github.com/gaming/risk-service/internal/pkg/logger"
	"github.com/gaming/risk-service/internal/platform"
	"github.com/gaming/risk-service/internal/report"
	"github.com/gaming/risk-service/internal/repository"
	"github.com/gaming/risk-service/internal/review"
)

// RiskService is the review engine as seen by the HTTP layer
type RiskService interface {
	Review(ctx context.Context, token string, withdrawalID uuid.UUID) (*domain.ReviewResult, error)
	AssessUser(ctx context.Context, token string, userID uuid.UUID, bypassCache bool) (*domain.RiskAssessment, error)
	AssessProfile(ctx context.Context, profile *domain.UserRiskProfile) *domain.RiskAssessment
	Stats() review.Stats
}

// ProfileSource loads user profiles from the platform backend
type ProfileSource interface {
	GetUserDetails(ctx context.Context, token string, userID uuid.UUID) (*domain.UserRiskProfile, error)
}

// History reads persisted assessments and fraud alerts
type History interface {
	GetLatestAssessment(ctx context.Context, userID uuid.UUID) (*domain.AssessmentRecord, error)
	ListAlertsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FraudAlert, error)
}

// maxAlertLimit caps the page size of the alert listing
const maxAlertLimit = 200

// Handler serves the risk API
type Handler struct {
	risk     RiskService
	profiles ProfileSource
	history  History
	log      *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(risk RiskService, profiles ProfileSource, history History, log *logger.Logger) *Handler {
	return &Handler{
		risk:     risk,
		profiles: profiles,
		history:  history,
		log:      log.Named("api"),
	}
}

// Health reports liveness and review metrics
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"review": h.risk.Stats(),
	})
}

// AssessProfile scores a profile supplied in the request body
func (h *Handler) AssessProfile(c echo.Context) error {
	var profile domain.UserRiskProfile
	if err := c.Bind(&profile); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile body")
	}

	return c.JSON(http.StatusOK, h.risk.AssessProfile(c.Request().Context(), &profile))
}

// GetUserRisk fetches and scores a user. refresh=true skips the cache.
func (h *Handler) GetUserRisk(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	withContextID(c, logger.UserIDKey, userID)

	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))

	a, err := h.risk.AssessUser(c.Request().Context(), tokenFrom(c), userID, refresh)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// GetLatestUserRisk returns the most recent persisted assessment of a user
// without contacting the platform backend
func (h *Handler) GetLatestUserRisk(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	withContextID(c, logger.UserIDKey, userID)

	rec, err := h.history.GetLatestAssessment(c.Request().Context(), userID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetUserRiskReport renders the plain-text fraud report for a user
func (h *Handler) GetUserRiskReport(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	withContextID(c, logger.UserIDKey, userID)

	ctx := c.Request().Context()
	profile, err := h.profiles.GetUserDetails(ctx, tokenFrom(c), userID)
	if err != nil {
		return h.httpError(c, err)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, profile.Username, h.risk.AssessProfile(ctx, profile)); err != nil {
		return h.httpError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
}

// ListUserAlerts returns a user's persisted fraud alerts
func (h *Handler) ListUserAlerts(c echo.Context) error {
	userID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	withContextID(c, logger.UserIDKey, userID)

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts, err := h.history.ListAlertsByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return h.httpError(c, err)
	}

	summaries := make([]*domain.AlertSummary, 0, len(alerts))
	for _, a := range alerts {
		summaries = append(summaries, a.ToSummary())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"alerts": summaries,
		"count":  len(summaries),
	})
}

// ReviewWithdrawal runs the withdrawal review workflow
func (h *Handler) ReviewWithdrawal(c echo.Context) error {
	withdrawalID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	withContextID(c, logger.WithdrawalIDKey, withdrawalID)

	result, err := h.risk.Review(c.Request().Context(), tokenFrom(c), withdrawalID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// withContextID tags the request context so handler and engine logs carry the id
func withContextID(c echo.Context, key logger.ContextKey, id uuid.UUID) {
	ctx := context.WithValue(c.Request().Context(), key, id.String())
	c.SetRequest(c.Request().WithContext(ctx))
}

// httpError maps service errors onto HTTP status codes
func (h *Handler) httpError(c echo.Context, err error) error {
	var apiErr *platform.APIError

	switch {
	case errors.Is(err, platform.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, platform.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "backend rejected credentials")
	case errors.Is(err, platform.ErrBackendUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "platform backend unavailable")
	case errors.As(err, &apiErr):
		return echo.NewHTTPError(http.StatusBadGateway, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	}

	h.log.WithContext(c.Request().Context()).Error("request failed", logger.ErrorField(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
