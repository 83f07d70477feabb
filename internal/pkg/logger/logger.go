package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with risk-review specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey    ContextKey = "request_id"
	AdminIDKey      ContextKey = "admin_id"
	UserIDKey       ContextKey = "user_id"
	TraceIDKey      ContextKey = "trace_id"
	WithdrawalIDKey ContextKey = "withdrawal_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// Wrap adapts an existing zap logger, mostly for tests
func Wrap(z *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: z, serviceName: serviceName}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return Wrap(zap.NewNop(), "nop")
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	for _, key := range []ContextKey{RequestIDKey, AdminIDKey, UserIDKey, TraceIDKey, WithdrawalIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// ReviewStarted logs the start of a withdrawal review. Ids come from the
// context the logger was built with.
func (l *Logger) ReviewStarted() {
	l.Info("withdrawal review started")
}

// ReviewCompleted logs the completion of a withdrawal review
func (l *Logger) ReviewCompleted(decision string, riskScore int, durationMs int64) {
	l.Info("withdrawal review completed",
		zap.String("decision", decision),
		zap.Int("risk_score", riskScore),
		zap.Int64("duration_ms", durationMs),
	)
}

// AssessmentCompleted logs a scored profile
func (l *Logger) AssessmentCompleted(level string, riskScore, criticals, warnings int) {
	l.Info("risk assessment completed",
		zap.String("risk_level", level),
		zap.Int("risk_score", riskScore),
		zap.Int("critical_findings", criticals),
		zap.Int("warning_findings", warnings),
	)
}

// AlertRaised logs fraud alert creation
func (l *Logger) AlertRaised(alertID, alertNumber string, riskScore int) {
	l.Warn("fraud alert raised",
		zap.String("alert_id", alertID),
		zap.String("alert_number", alertNumber),
		zap.Int("risk_score", riskScore),
	)
}

// WithdrawalActioned logs an automatic approve or reject
func (l *Logger) WithdrawalActioned(action string) {
	l.Info("withdrawal auto-actioned", zap.String("action", action))
}

// CacheHit logs an assessment served from cache
func (l *Logger) CacheHit() {
	l.Debug("assessment cache hit")
}

// LatencyWarning logs when a step exceeds expected latency
func (l *Logger) LatencyWarning(step string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("step", step),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}
