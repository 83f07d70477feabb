package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	AlertStatusNew       AlertStatus = "NEW"
	AlertStatusReviewing AlertStatus = "REVIEWING"
	AlertStatusDismissed AlertStatus = "DISMISSED"
	AlertStatusResolved  AlertStatus = "RESOLVED"
)

// FraudAlert is raised when a withdrawal review lands on HOLD or REJECT
type FraudAlert struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AlertNumber string    `json:"alertNumber" db:"alert_number"`

	// Subject
	UserID       uuid.UUID  `json:"userId" db:"user_id"`
	WithdrawalID *uuid.UUID `json:"withdrawalId,omitempty" db:"withdrawal_id"`

	// Classification
	Status    AlertStatus    `json:"status" db:"status"`
	Level     RiskLevel      `json:"level" db:"level"`
	RiskScore int            `json:"riskScore" db:"risk_score"`
	Decision  Recommendation `json:"decision" db:"decision"`

	// Details
	Title        string   `json:"title" db:"title"`
	Description  string   `json:"description" db:"description"`
	FindingCodes []string `json:"findingCodes,omitempty" db:"finding_codes"`

	// Resolution
	ReviewedBy *uuid.UUID `json:"reviewedBy,omitempty" db:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty" db:"reviewed_at"`
	Resolution string     `json:"resolution,omitempty" db:"resolution"`

	// Timestamps
	DetectedAt time.Time `json:"detectedAt" db:"detected_at"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// NewFraudAlert builds an alert from an assessment
func NewFraudAlert(userID uuid.UUID, withdrawalID *uuid.UUID, a *RiskAssessment) *FraudAlert {
	now := time.Now().UTC()
	id := uuid.New()

	codes := make([]string, 0, len(a.Findings))
	messages := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		if f.Severity == SeverityClean {
			continue
		}
		codes = append(codes, f.Code)
		messages = append(messages, fmt.Sprintf("[%s] %s", f.Severity, f.Message))
	}

	return &FraudAlert{
		ID:           id,
		AlertNumber:  fmt.Sprintf("FRA-%s-%s", now.Format("20060102"), strings.ToUpper(id.String()[:8])),
		UserID:       userID,
		WithdrawalID: withdrawalID,
		Status:       AlertStatusNew,
		Level:        a.Level,
		RiskScore:    a.Score,
		Decision:     a.Recommendation,
		Title:        fmt.Sprintf("%s risk withdrawal review: %s", a.Level, a.Recommendation),
		Description:  strings.Join(messages, "\n"),
		FindingCodes: codes,
		DetectedAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsResolved returns true if the alert has been resolved
func (a *FraudAlert) IsResolved() bool {
	return a.Status == AlertStatusDismissed || a.Status == AlertStatusResolved
}

// RequiresEscalation returns true if alert should be escalated
func (a *FraudAlert) RequiresEscalation() bool {
	return a.Level == RiskLevelCritical
}

// AlertSummary is a lean DTO for list views
type AlertSummary struct {
	ID          uuid.UUID   `json:"id"`
	AlertNumber string      `json:"alertNumber"`
	UserID      uuid.UUID   `json:"userId"`
	Status      AlertStatus `json:"status"`
	Level       RiskLevel   `json:"level"`
	RiskScore   int         `json:"riskScore"`
	Title       string      `json:"title"`
	DetectedAt  time.Time   `json:"detectedAt"`
}

// ToSummary converts FraudAlert to AlertSummary
func (a *FraudAlert) ToSummary() *AlertSummary {
	return &AlertSummary{
		ID:          a.ID,
		AlertNumber: a.AlertNumber,
		UserID:      a.UserID,
		Status:      a.Status,
		Level:       a.Level,
		RiskScore:   a.RiskScore,
		Title:       a.Title,
		DetectedAt:  a.DetectedAt,
	}
}
