package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType is the reason a compliance alert was raised
type AlertType string

const (
	AlertSARConsideration AlertType = "SAR_CONSIDERATION"
	AlertCriticalRisk     AlertType = "CRITICAL_RISK"
	AlertManualReview     AlertType = "MANUAL_REVIEW"
)

// ComplianceAlert is published for the compliance team to act on
type ComplianceAlert struct {
	ID          uuid.UUID  `json:"id"`
	AlertType   AlertType  `json:"alert_type"`
	CustomerRef string     `json:"customer_ref"`
	DocumentID  *uuid.UUID `json:"document_id,omitempty"`
	RiskLevel   RiskLevel  `json:"risk_level,omitempty"`
	RiskScore   int        `json:"risk_score,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DetectedAt  time.Time  `json:"detected_at"`
}

// NewComplianceAlert creates an alert stamped with now
func NewComplianceAlert(alertType AlertType, customerRef, title, description string, now time.Time) *ComplianceAlert {
	return &ComplianceAlert{
		ID:          uuid.New(),
		AlertType:   alertType,
		CustomerRef: customerRef,
		Title:       title,
		Description: description,
		DetectedAt:  now,
	}
}

// RequiresEscalation returns true if the alert needs senior attention
func (a *ComplianceAlert) RequiresEscalation() bool {
	return a.AlertType == AlertSARConsideration || a.RiskLevel == RiskLevelCritical
}
