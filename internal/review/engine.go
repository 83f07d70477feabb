package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/gaming/risk-service/internal/cache"
	"github.com/gaming/risk-service/internal/config"
	"github.com/gaming/risk-service/internal/domain"
	"github.com/gaming/risk-service/internal/pkg/logger"
	"github.com/gaming/risk-service/internal/scoring"
)

var tracer = otel.Tracer("github.com/gaming/risk-service/internal/review")

// Backend is the gaming platform API used by the engine
type Backend interface {
	GetUserDetails(ctx context.Context, token string, userID uuid.UUID) (*domain.UserRiskProfile, error)
	GetWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID) (*domain.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID, note string) error
	RejectWithdrawal(ctx context.Context, token string, withdrawalID uuid.UUID, reason string) error
}

// AssessmentCache caches assessments by user
type AssessmentCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.RiskAssessment, error)
	Set(ctx context.Context, userID uuid.UUID, a *domain.RiskAssessment, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Store persists assessments and alerts
type Store interface {
	SaveAssessment(ctx context.Context, rec *domain.AssessmentRecord) error
	SaveAlert(ctx context.Context, alert *domain.FraudAlert) error
}

// Publisher emits risk events
type Publisher interface {
	PublishAssessment(ctx context.Context, ev *domain.AssessmentEvent) error
	PublishAlert(ctx context.Context, alert *domain.FraudAlert) error
}

// Engine runs withdrawal reviews against the fraud-risk scorer
type Engine struct {
	backend   Backend
	cache     AssessmentCache
	store     Store
	publisher Publisher

	cfg      config.ReviewConfig
	cacheTTL time.Duration
	log      *logger.Logger

	// Metrics
	reviewCount  int64
	avgLatencyMs float64
	latencyMu    sync.RWMutex
}

// Stats is a snapshot of engine metrics
type Stats struct {
	ReviewCount  int64   `json:"reviewCount"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// NewEngine creates a new review engine
func NewEngine(
	backend Backend,
	cache AssessmentCache,
	store Store,
	publisher Publisher,
	cfg config.ReviewConfig,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Engine {
	return &Engine{
		backend:   backend,
		cache:     cache,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		cacheTTL:  cacheTTL,
		log:       log.Named("review_engine"),
	}
}

// Review scores the owner of a pending withdrawal and records the outcome
func (e *Engine) Review(ctx context.Context, token string, withdrawalID uuid.UUID) (*domain.ReviewResult, error) {
	ctx, span := tracer.Start(ctx, "review.Review")
	defer span.End()
	span.SetAttributes(attribute.String("withdrawal.id", withdrawalID.String()))

	startTime := time.Now()
	ctx = context.WithValue(ctx, logger.WithdrawalIDKey, withdrawalID.String())
	e.log.WithContext(ctx).ReviewStarted()

	withdrawal, err := e.backend.GetWithdrawal(ctx, token, withdrawalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch withdrawal")
		return nil, fmt.Errorf("fetch withdrawal %s: %w", withdrawalID, err)
	}

	ctx = context.WithValue(ctx, logger.UserIDKey, withdrawal.UserID.String())
	log := e.log.WithContext(ctx)

	// Money-moving auto-actions never run on a cached assessment
	fresh := withdrawal.IsPending() && (e.cfg.AutoApprove || e.cfg.AutoReject)

	assessment, err := e.assess(ctx, token, withdrawal.UserID, fresh)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assess user")
		return nil, err
	}

	result := &domain.ReviewResult{
		ReviewID:   uuid.New(),
		Withdrawal: withdrawal,
		Assessment: assessment,
		Decision:   assessment.Recommendation,
		CreatedAt:  time.Now().UTC(),
	}

	if assessment.RequiresAlert() {
		alert := domain.NewFraudAlert(withdrawal.UserID, &withdrawal.ID, assessment)
		if err := e.store.SaveAlert(ctx, alert); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("save alert: %w", err)
		}
		result.Alert = alert
		log.AlertRaised(alert.ID.String(), alert.AlertNumber, assessment.Score)
	}

	e.recordSideEffects(ctx, log, withdrawal, assessment, result.Alert)

	if withdrawal.IsPending() {
		actioned, err := e.autoAction(ctx, token, withdrawal, assessment)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		result.AutoActioned = actioned
		if actioned {
			log.WithdrawalActioned(string(assessment.Recommendation))
			// The action changes the user's wallet, so the cached score is stale
			if err := e.cache.Invalidate(ctx, withdrawal.UserID); err != nil {
				log.Warn("assessment cache invalidation failed", logger.ErrorField(err))
			}
		}
	}

	durationMs := time.Since(startTime).Milliseconds()
	result.DurationMs = durationMs
	e.recordLatency(durationMs)

	if e.cfg.MaxReviewLatency > 0 && durationMs > e.cfg.MaxReviewLatency.Milliseconds() {
		log.LatencyWarning("withdrawal_review", durationMs, e.cfg.MaxReviewLatency.Milliseconds())
	}

	span.SetAttributes(
		attribute.Int("risk.score", assessment.Score),
		attribute.String("risk.decision", string(assessment.Recommendation)),
	)
	log.ReviewCompleted(string(result.Decision), assessment.Score, durationMs)

	return result, nil
}

// AssessUser fetches a user's profile and scores it. The cache is consulted
// first unless bypassCache is set.
func (e *Engine) AssessUser(ctx context.Context, token string, userID uuid.UUID, bypassCache bool) (*domain.RiskAssessment, error) {
	ctx, span := tracer.Start(ctx, "review.AssessUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	a, err := e.assess(ctx, token, userID, bypassCache)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assess user")
		return nil, err
	}
	return a, nil
}

// AssessProfile scores a caller-supplied profile
func (e *Engine) AssessProfile(ctx context.Context, profile *domain.UserRiskProfile) *domain.RiskAssessment {
	a := scoring.Assess(profile)
	if profile != nil {
		ctx = context.WithValue(ctx, logger.UserIDKey, profile.UserID)
	}
	e.log.WithContext(ctx).AssessmentCompleted(string(a.Level), a.Score, a.CriticalCount, a.WarningCount)
	return a
}

// Stats returns a snapshot of review metrics
func (e *Engine) Stats() Stats {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return Stats{ReviewCount: e.reviewCount, AvgLatencyMs: e.avgLatencyMs}
}

// assess returns the user's assessment, from the cache when possible.
// Fresh assessments are written back to the cache.
func (e *Engine) assess(ctx context.Context, token string, userID uuid.UUID, bypassCache bool) (*domain.RiskAssessment, error) {
	ctx = context.WithValue(ctx, logger.UserIDKey, userID.String())
	log := e.log.WithContext(ctx)

	if !bypassCache {
		a, err := e.cache.Get(ctx, userID)
		switch {
		case err == nil:
			log.CacheHit()
			return a, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			log.Warn("assessment cache read failed", logger.ErrorField(err))
		}
	}

	profile, err := e.backend.GetUserDetails(ctx, token, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}

	a := scoring.Assess(profile)
	log.AssessmentCompleted(string(a.Level), a.Score, a.CriticalCount, a.WarningCount)

	if err := e.cache.Set(ctx, userID, a, e.cacheTTL); err != nil {
		log.Warn("assessment cache write failed", logger.ErrorField(err))
	}

	return a, nil
}

// recordSideEffects persists and publishes in parallel. Failures are logged,
// never returned.
func (e *Engine) recordSideEffects(
	ctx context.Context,
	log *logger.Logger,
	w *domain.Withdrawal,
	a *domain.RiskAssessment,
	alert *domain.FraudAlert,
) {
	var g errgroup.Group

	g.Go(func() error {
		rec := &domain.AssessmentRecord{
			ID:           uuid.New(),
			UserID:       w.UserID,
			WithdrawalID: &w.ID,
			Assessment:   a,
			CreatedAt:    time.Now().UTC(),
		}
		if err := e.store.SaveAssessment(ctx, rec); err != nil {
			return fmt.Errorf("persist assessment: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := e.publisher.PublishAssessment(ctx, domain.NewAssessmentEvent(w.UserID, &w.ID, a)); err != nil {
			return fmt.Errorf("publish assessment event: %w", err)
		}
		return nil
	})

	if alert != nil {
		g.Go(func() error {
			if err := e.publisher.PublishAlert(ctx, alert); err != nil {
				return fmt.Errorf("publish fraud alert: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn("review side effects incomplete", logger.ErrorField(err))
	}
}

// autoAction approves or rejects the withdrawal when the matching switch is on
func (e *Engine) autoAction(ctx context.Context, token string, w *domain.Withdrawal, a *domain.RiskAssessment) (bool, error) {
	switch {
	case e.cfg.AutoApprove && a.Recommendation == domain.RecommendationApprove:
		if err := e.backend.ApproveWithdrawal(ctx, token, w.ID, "auto-approved: no suspicious patterns detected"); err != nil {
			return false, fmt.Errorf("approve withdrawal %s: %w", w.ID, err)
		}
		return true, nil
	case e.cfg.AutoReject && a.Recommendation == domain.RecommendationReject:
		reason := "auto-rejected: fraud risk"
		if top, ok := a.TopFinding(); ok {
			reason = top.Message
		}
		if err := e.backend.RejectWithdrawal(ctx, token, w.ID, reason); err != nil {
			return false, fmt.Errorf("reject withdrawal %s: %w", w.ID, err)
		}
		return true, nil
	}
	return false, nil
}

// recordLatency records review latency for metrics
func (e *Engine) recordLatency(durationMs int64) {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()

	e.reviewCount++
	// Exponential moving average
	e.avgLatencyMs = e.avgLatencyMs*0.9 + float64(durationMs)*0.1
}
