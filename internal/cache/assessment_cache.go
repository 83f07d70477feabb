package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
)

// ErrCacheMiss is returned when no assessment is cached for a user
var ErrCacheMiss = errors.New("cache: miss")

const assessmentKeyPrefix = "risk:assessment:"

// AssessmentCache stores recent assessments in Redis as JSON
type AssessmentCache struct {
	client redis.Cmdable
}

// NewAssessmentCache creates a cache over any redis client
func NewAssessmentCache(client redis.Cmdable) *AssessmentCache {
	return &AssessmentCache{client: client}
}

// NewRedisClient creates a Redis client and verifies connectivity
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return client, nil
}

func assessmentKey(userID uuid.UUID) string {
	return assessmentKeyPrefix + userID.String()
}

// Get returns the cached assessment for a user
func (c *AssessmentCache) Get(ctx context.Context, userID uuid.UUID) (*domain.RiskAssessment, error) {
	raw, err := c.client.Get(ctx, assessmentKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get cached assessment: %w", err)
	}

	var a domain.RiskAssessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode cached assessment: %w", err)
	}
	return &a, nil
}

// Set caches an assessment for ttl
func (c *AssessmentCache) Set(ctx context.Context, userID uuid.UUID, a *domain.RiskAssessment, ttl time.Duration) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	if err := c.client.Set(ctx, assessmentKey(userID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache assessment: %w", err)
	}
	return nil
}

// Invalidate drops the cached assessment for a user
func (c *AssessmentCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, assessmentKey(userID)).Err()
}
