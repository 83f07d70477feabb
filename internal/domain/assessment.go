package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation represents the suggested action for a withdrawal review
type Recommendation string

const (
	RecommendationApprove Recommendation = "APPROVE"
	RecommendationReview  Recommendation = "REVIEW"
	RecommendationHold    Recommendation = "HOLD"
	RecommendationReject  Recommendation = "REJECT"
)

// RiskLevel represents the risk severity
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// Severity classifies a single finding
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityClean    Severity = "CLEAN"
)

// RiskFinding is one labeled observation produced by the scorer
type RiskFinding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// RiskAssessment is the scorer's output for one profile.
// Score is additive and not clamped to 100.
type RiskAssessment struct {
	Score          int            `json:"score"`
	Level          RiskLevel      `json:"level"`
	Recommendation Recommendation `json:"recommendation"`
	Findings       []RiskFinding  `json:"findings"`
	CriticalCount  int            `json:"criticalCount"`
	WarningCount   int            `json:"warningCount"`
}

// Thresholds shared by the level and recommendation ladders
const (
	ThresholdCritical = 50
	ThresholdHigh     = 20
	ThresholdMedium   = 10
)

// CalculateRiskLevel returns the risk level based on score
func CalculateRiskLevel(score int) RiskLevel {
	switch {
	case score >= ThresholdCritical:
		return RiskLevelCritical
	case score >= ThresholdHigh:
		return RiskLevelHigh
	case score >= ThresholdMedium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// CalculateRecommendation returns the suggested action based on score
func CalculateRecommendation(score int) Recommendation {
	switch {
	case score >= ThresholdCritical:
		return RecommendationReject
	case score >= ThresholdHigh:
		return RecommendationHold
	case score >= ThresholdMedium:
		return RecommendationReview
	default:
		return RecommendationApprove
	}
}

// IsClean returns true if no rule fired
func (a *RiskAssessment) IsClean() bool {
	return a.CriticalCount == 0 && a.WarningCount == 0
}

// RequiresAlert returns true if the assessment should raise a fraud alert
func (a *RiskAssessment) RequiresAlert() bool {
	return a.Recommendation == RecommendationHold || a.Recommendation == RecommendationReject
}

// TopFinding returns the most severe finding, which is always first
func (a *RiskAssessment) TopFinding() (RiskFinding, bool) {
	if len(a.Findings) == 0 {
		return RiskFinding{}, false
	}
	return a.Findings[0], true
}

// ReviewResult represents the outcome of a withdrawal review
type ReviewResult struct {
	ReviewID     uuid.UUID       `json:"reviewId"`
	Withdrawal   *Withdrawal     `json:"withdrawal"`
	Assessment   *RiskAssessment `json:"assessment"`
	Alert        *FraudAlert     `json:"alert,omitempty"`
	Decision     Recommendation  `json:"decision"`
	AutoActioned bool            `json:"autoActioned"`
	DurationMs   int64           `json:"durationMs"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// AssessmentRecord is the persisted form of an assessment
type AssessmentRecord struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"userId" db:"user_id"`
	WithdrawalID *uuid.UUID      `json:"withdrawalId,omitempty" db:"withdrawal_id"`
	Assessment   *RiskAssessment `json:"assessment" db:"-"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// AssessmentEvent is published to Kafka after every assessment
type AssessmentEvent struct {
	EventID      uuid.UUID      `json:"eventId"`
	EventType    string         `json:"eventType"`
	Timestamp    time.Time      `json:"timestamp"`
	UserID       uuid.UUID      `json:"userId"`
	WithdrawalID *uuid.UUID     `json:"withdrawalId,omitempty"`
	Score        int            `json:"score"`
	Level        RiskLevel      `json:"level"`
	Decision     Recommendation `json:"decision"`
	FindingCodes []string       `json:"findingCodes,omitempty"`
}

// NewAssessmentEvent builds the event payload for an assessment
func NewAssessmentEvent(userID uuid.UUID, withdrawalID *uuid.UUID, a *RiskAssessment) *AssessmentEvent {
	codes := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		if f.Severity != SeverityClean {
			codes = append(codes, f.Code)
		}
	}
	return &AssessmentEvent{
		EventID:      uuid.New(),
		EventType:    "risk.assessment.completed",
		Timestamp:    time.Now().UTC(),
		UserID:       userID,
		WithdrawalID: withdrawalID,
		Score:        a.Score,
		Level:        a.Level,
		Decision:     a.Recommendation,
		FindingCodes: codes,
	}
}
