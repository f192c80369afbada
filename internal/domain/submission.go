package domain

import "github.com/google/uuid"

// Submission outcome values
const (
	SubmissionSuccess       = "SUCCESS"
	SubmissionRejected      = "REJECTED"
	SubmissionInternalError = "INTERNAL_ERROR"
	SubmissionFailed        = "FAILED" // metric label only; failed submissions return an error
)

// Rejection and fallback messages surfaced to callers and findings
const (
	MsgConsentRequired    = "Consent required for KYC processing"
	MsgPrivacyCheckFailed = "Privacy check failed - unable to process"
	MsgProcessed          = "Document processed successfully"
	MsgInternalError      = "Internal error while processing submission"
	MsgOracleUnavailable  = "AI assessment unavailable - using rule-based scoring only"
)

// RiskLevelPending is reported while no assessment has run
const RiskLevelPending = "PENDING"

// KycStatus is the caller-facing snapshot of a customer's KYC state
type KycStatus struct {
	DocumentStatus  string             `json:"documentStatus"`
	RiskLevel       string             `json:"riskLevel"`
	ConfidenceScore float64            `json:"confidenceScore"`
	OverallStatus   KycAggregateStatus `json:"overallStatus"`
	Findings        []string           `json:"findings"`
}

// SubmissionResult is returned by ProcessSubmission
type SubmissionResult struct {
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	DocumentID *uuid.UUID `json:"documentId,omitempty"`
	KycStatus  *KycStatus `json:"kycStatus,omitempty"`
}

// IsRejected returns true for policy rejections
func (r *SubmissionResult) IsRejected() bool {
	return r.Status == SubmissionRejected
}

// Rejected builds a policy-rejection result
func Rejected(message string) *SubmissionResult {
	return &SubmissionResult{Status: SubmissionRejected, Message: message}
}
