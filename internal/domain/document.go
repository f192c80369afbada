package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType is the kind of submitted KYC artifact
type DocumentType string

const (
	DocumentIDCard         DocumentType = "ID_CARD"
	DocumentPassport       DocumentType = "PASSPORT"
	DocumentDriversLicense DocumentType = "DRIVERS_LICENSE"
	DocumentProofOfAddress DocumentType = "PROOF_OF_ADDRESS"
	DocumentUtilityBill    DocumentType = "UTILITY_BILL"
	DocumentBankStatement  DocumentType = "BANK_STATEMENT"
)

// ParseDocumentType validates a document type string
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocumentIDCard, DocumentPassport, DocumentDriversLicense,
		DocumentProofOfAddress, DocumentUtilityBill, DocumentBankStatement:
		return t, nil
	}
	return "", &InvariantError{Field: "document_type", Value: s}
}

// IsIdentity returns true for documents satisfying the identity requirement
func (t DocumentType) IsIdentity() bool {
	return t == DocumentIDCard || t == DocumentPassport
}

// IsAddress returns true for documents satisfying the address requirement
func (t DocumentType) IsAddress() bool {
	return t == DocumentProofOfAddress || t == DocumentUtilityBill
}

// VerificationStatus is the per-document lifecycle state
type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "PENDING"
	VerificationInProgress  VerificationStatus = "IN_PROGRESS"
	VerificationVerified    VerificationStatus = "VERIFIED"
	VerificationRejected    VerificationStatus = "REJECTED"
	VerificationNeedsReview VerificationStatus = "NEEDS_REVIEW"
	VerificationExpired     VerificationStatus = "EXPIRED"
)

// ParseVerificationStatus validates a stored status string
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch v := VerificationStatus(s); v {
	case VerificationPending, VerificationInProgress, VerificationVerified,
		VerificationRejected, VerificationNeedsReview, VerificationExpired:
		return v, nil
	}
	return "", &InvariantError{Field: "verification_status", Value: s}
}

// NotScored marks a document whose confidence was never computed
const NotScored = -1.0

// KycDocument is one submitted artifact and its verification state
type KycDocument struct {
	ID                   uuid.UUID          `json:"id" db:"id"`
	CustomerID           string             `json:"customer_id" db:"customer_id"`
	DocumentType         DocumentType       `json:"document_type" db:"document_type"`
	StoragePath          string             `json:"-" db:"storage_path"`
	VerificationStatus   VerificationStatus `json:"verification_status" db:"verification_status"`
	ConfidenceScore      float64            `json:"confidence_score" db:"confidence_score"`
	RiskLevel            *RiskLevel         `json:"risk_level,omitempty" db:"risk_level"`
	ExtractedData        *ExtractedFields   `json:"extracted_data,omitempty" db:"extracted_data"`
	Findings             []string           `json:"findings" db:"findings"`
	ProcessingLegalBasis LegalBasis         `json:"processing_legal_basis" db:"processing_legal_basis"`
	ConsentTimestamp     *time.Time         `json:"consent_timestamp,omitempty" db:"consent_timestamp"`
	DataRetentionUntil   *time.Time         `json:"data_retention_until,omitempty" db:"data_retention_until"`
	ProcessedAt          *time.Time         `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy          string             `json:"processed_by,omitempty" db:"processed_by"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
}

// NewKycDocument creates a document in the PENDING state
func NewKycDocument(customerID string, docType DocumentType, basis LegalBasis, now time.Time) *KycDocument {
	return &KycDocument{
		ID:                   uuid.New(),
		CustomerID:           customerID,
		DocumentType:         docType,
		VerificationStatus:   VerificationPending,
		ConfidenceScore:      NotScored,
		Findings:             []string{},
		ProcessingLegalBasis: basis,
		ConsentTimestamp:     &now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// AppendFindings adds findings that are not already present, preserving order
func (d *KycDocument) AppendFindings(findings ...string) {
	seen := make(map[string]struct{}, len(d.Findings))
	for _, f := range d.Findings {
		seen[f] = struct{}{}
	}
	for _, f := range findings {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		d.Findings = append(d.Findings, f)
	}
}

// IsScored returns true once an extraction confidence was recorded
func (d *KycDocument) IsScored() bool {
	return d.ConfidenceScore != NotScored
}

// Address is a postal address read from a document
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// ExtractedFields are the structured fields read from a document
type ExtractedFields struct {
	FullName       string   `json:"full_name,omitempty"`
	DateOfBirth    string   `json:"date_of_birth,omitempty"`
	DocumentNumber string   `json:"document_number,omitempty"`
	Nationality    string   `json:"nationality,omitempty"`
	IssueDate      string   `json:"issue_date,omitempty"`
	ExpiryDate     string   `json:"expiry_date,omitempty"`
	IssuingCountry string   `json:"issuing_country,omitempty"`
	Address        *Address `json:"address,omitempty"`
}

// ResidenceCountry returns the address country, if any
func (f *ExtractedFields) ResidenceCountry() string {
	if f == nil || f.Address == nil {
		return ""
	}
	return f.Address.Country
}

// DocumentAnalysis is the Document Analysis collaborator's verdict
type DocumentAnalysis struct {
	ExtractedFields    ExtractedFields    `json:"extracted_data"`
	FieldConfidence    map[string]float64 `json:"field_confidence"`
	OverallConfidence  float64            `json:"overall_confidence"`
	ValidDocument      bool               `json:"document_valid"`
	NotExpired         bool               `json:"not_expired"`
	SuspiciousPatterns []string           `json:"suspicious_patterns"`
	Warnings           []string           `json:"validation_warnings"`
}

// KycAggregateStatus is the customer-level status derived from all documents
type KycAggregateStatus string

const (
	KycStatusIncomplete               KycAggregateStatus = "INCOMPLETE"
	KycStatusPending                  KycAggregateStatus = "PENDING"
	KycStatusUnderReview              KycAggregateStatus = "UNDER_REVIEW"
	KycStatusRejected                 KycAggregateStatus = "REJECTED"
	KycStatusApproved                 KycAggregateStatus = "APPROVED"
	KycStatusApprovedWithRestrictions KycAggregateStatus = "APPROVED_WITH_RESTRICTIONS"
)
