package api

import (
	"github.com/labstack/echo/v4"

	"github.com/gaming/risk-service/internal/config"
)

// RegisterRoutes mounts the health check and the admin-only /api/v1 group
func RegisterRoutes(e *echo.Echo, h *Handler, sec config.SecurityConfig) {
	e.GET("/health", h.Health)

	v1 := e.Group("/api/v1", RequestContext(), AdminAuth(sec))

	v1.POST("/risk/assess", h.AssessProfile)
	v1.GET("/users/:id/risk", h.GetUserRisk)
	v1.GET("/users/:id/risk/latest", h.GetLatestUserRisk)
	v1.GET("/users/:id/risk/report", h.GetUserRiskReport)
	v1.GET("/users/:id/alerts", h.ListUserAlerts)
	v1.POST("/withdrawals/:id/review", h.ReviewWithdrawal)
}
