package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		l, err := New("risk-service", env, true)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	}
}

func TestWithContextAddsKnownKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), "test")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, AdminIDKey, "admin-7")
	ctx = context.WithValue(ctx, UserIDKey, "")

	l.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "admin-7", fields["admin_id"])
	assert.NotContains(t, fields, "user_id")
}

func TestDomainHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core), "test").Named("review")

	ctx := context.WithValue(context.Background(), UserIDKey, "u1")
	l.WithContext(ctx).AssessmentCompleted("HIGH", 40, 1, 1)
	l.AlertRaised("a1", "FRA-1", 40)

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "risk assessment completed", first.Message)
	assert.Equal(t, int64(40), first.ContextMap()["risk_score"])
	assert.Equal(t, "u1", first.ContextMap()["user_id"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}
