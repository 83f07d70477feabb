package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gaming/risk-service/internal/domain"
)

// AssessmentRepository persists assessments and fraud alerts
type AssessmentRepository struct {
	db DB
}

// NewAssessmentRepository creates a new repository
func NewAssessmentRepository(db DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// SaveAssessment stores an assessment record
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, rec *domain.AssessmentRecord) error {
	findings, err := json.Marshal(rec.Assessment.Findings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO risk_assessments (
			id, user_id, withdrawal_id, score, level, recommendation,
			findings, critical_count, warning_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.WithdrawalID,
		rec.Assessment.Score,
		string(rec.Assessment.Level),
		string(rec.Assessment.Recommendation),
		findings,
		rec.Assessment.CriticalCount,
		rec.Assessment.WarningCount,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// GetLatestAssessment returns the most recent assessment for a user
func (r *AssessmentRepository) GetLatestAssessment(ctx context.Context, userID uuid.UUID) (*domain.AssessmentRecord, error) {
	query := `
		SELECT id, user_id, withdrawal_id, score, level, recommendation,
		       findings, critical_count, warning_count, created_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rec domain.AssessmentRecord
	var a domain.RiskAssessment
	var level, recommendation string
	var findings []byte

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.WithdrawalID,
		&a.Score,
		&level,
		&recommendation,
		&findings,
		&a.CriticalCount,
		&a.WarningCount,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select assessment: %w", err)
	}

	if err := json.Unmarshal(findings, &a.Findings); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	a.Level = domain.RiskLevel(level)
	a.Recommendation = domain.Recommendation(recommendation)
	rec.Assessment = &a

	return &rec, nil
}

// SaveAlert stores a fraud alert
func (r *AssessmentRepository) SaveAlert(ctx context.Context, alert *domain.FraudAlert) error {
	query := `
		INSERT INTO fraud_alerts (
			id, alert_number, user_id, withdrawal_id, status, level, risk_score,
			decision, title, description, finding_codes, detected_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Exec(ctx, query,
		alert.ID,
		alert.AlertNumber,
		alert.UserID,
		alert.WithdrawalID,
		string(alert.Status),
		string(alert.Level),
		alert.RiskScore,
		string(alert.Decision),
		alert.Title,
		alert.Description,
		alert.FindingCodes,
		alert.DetectedAt,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// ListAlertsByUser returns a user's alerts, newest first
func (r *AssessmentRepository) ListAlertsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.FraudAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, alert_number, user_id, withdrawal_id, status, level, risk_score,
		       decision, title, description, finding_codes, detected_at, created_at, updated_at
		FROM fraud_alerts
		WHERE user_id = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*domain.FraudAlert, 0)
	for rows.Next() {
		var alert domain.FraudAlert
		var status, level, decision string
		if err := rows.Scan(
			&alert.ID,
			&alert.AlertNumber,
			&alert.UserID,
			&alert.WithdrawalID,
			&status,
			&level,
			&alert.RiskScore,
			&decision,
			&alert.Title,
			&alert.Description,
			&alert.FindingCodes,
			&alert.DetectedAt,
			&alert.CreatedAt,
			&alert.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alert.Status = domain.AlertStatus(status)
		alert.Level = domain.RiskLevel(level)
		alert.Decision = domain.Recommendation(decision)
		alerts = append(alerts, &alert)
	}

	return alerts, rows.Err()
}
