package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LegalBasis is the GDPR Article 6 ground for processing
type LegalBasis string

const (
	LegalBasisConsent            LegalBasis = "CONSENT"
	LegalBasisLegalObligation    LegalBasis = "LEGAL_OBLIGATION"
	LegalBasisContract           LegalBasis = "CONTRACT"
	LegalBasisLegitimateInterest LegalBasis = "LEGITIMATE_INTEREST"
	LegalBasisVitalInterest      LegalBasis = "VITAL_INTEREST"
	LegalBasisPublicTask         LegalBasis = "PUBLIC_TASK"
)

// ParseLegalBasis validates a legal basis string
func ParseLegalBasis(s string) (LegalBasis, error) {
	switch b := LegalBasis(s); b {
	case LegalBasisConsent, LegalBasisLegalObligation, LegalBasisContract,
		LegalBasisLegitimateInterest, LegalBasisVitalInterest, LegalBasisPublicTask:
		return b, nil
	}
	return "", &InvariantError{Field: "legal_basis", Value: s}
}

// AuditAction is what was done to customer data
type AuditAction string

const (
	AuditView             AuditAction = "VIEW"
	AuditCreate           AuditAction = "CREATE"
	AuditUpdate           AuditAction = "UPDATE"
	AuditDelete           AuditAction = "DELETE"
	AuditProcess          AuditAction = "PROCESS"
	AuditExport           AuditAction = "EXPORT"
	AuditAnonymize        AuditAction = "ANONYMIZE"
	AuditConsentGiven     AuditAction = "CONSENT_GIVEN"
	AuditConsentWithdrawn AuditAction = "CONSENT_WITHDRAWN"
	AuditAccessDenied     AuditAction = "ACCESS_DENIED"
)

// Data categories touched by an operation
const (
	DataDocument  = "DOCUMENT"
	DataBiometric = "BIOMETRIC"
	DataIdentity  = "IDENTITY"
	DataFinancial = "FINANCIAL"
	DataRisk      = "RISK_PROFILE"
	DataConsent   = "CONSENT"
)

// Performers recorded in the audit trail
const (
	PerformedBySystem     = "SYSTEM"
	PerformedByAgent      = "AI_AGENT"
	PerformedByRisk       = "RISK_ENGINE"
	PerformedByCompliance = "COMPLIANCE_API"
)

// AccessRecord is one GDPR audit-trail entry
type AccessRecord struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CustomerRef    string          `json:"customer_ref" db:"customer_id"`
	Action         AuditAction     `json:"action" db:"action"`
	LegalBasis     LegalBasis      `json:"legal_basis" db:"legal_basis"`
	PerformedBy    string          `json:"performed_by" db:"performed_by"`
	DataCategories []string        `json:"data_categories" db:"data_categories"`
	Success        bool            `json:"success" db:"success"`
	Details        json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
