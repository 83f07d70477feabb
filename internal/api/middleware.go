package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/pkg/logger"
)

// ctxKeyToken holds the raw bearer token for forwarding to the backend
const ctxKeyToken = "auth_token"

// AdminClaims are the JWT claims issued by the platform to dashboard admins
type AdminClaims struct {
	AdminID string `json:"id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth validates an HS256 bearer token and requires the admin role.
// The raw token is kept on the context so it can be forwarded to the backend.
func AdminAuth(cfg config.SecurityConfig) echo.MiddlewareFunc {
	secret := []byte(cfg.JWTSecret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims := &AdminClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if claims.Role != cfg.AdminRole {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}

			c.Set(ctxKeyToken, raw)

			ctx := context.WithValue(c.Request().Context(), logger.AdminIDKey, claims.AdminID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequestContext extracts incoming trace headers and copies the request and
// trace ids into the request context for logging.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				ctx = context.WithValue(ctx, logger.RequestIDKey, id)
			}
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				ctx = context.WithValue(ctx, logger.TraceIDKey, sc.TraceID().String())
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func tokenFrom(c echo.Context) string {
	token, _ := c.Get(ctxKeyToken).(string)
	return token
}
