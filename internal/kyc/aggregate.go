package kyc

import (
	"fmt"

	"github.com/banking/kyc-service/internal/domain"
)

// Document status labels used in the status summary
const (
	NoDocuments = "NO_DOCUMENTS"
)

// AggregateStatus derives the customer-level status from the current
// document set. The first matching rule wins.
func AggregateStatus(docs []domain.KycDocument) domain.KycAggregateStatus {
	var (
		hasIdentity, hasAddress           bool
		identityVerified, addressVerified bool
		needsReview, rejected             bool
	)

	for i := range docs {
		d := &docs[i]
		verified := d.VerificationStatus == domain.VerificationVerified

		if d.DocumentType.IsIdentity() {
			hasIdentity = true
			identityVerified = identityVerified || verified
		}
		if d.DocumentType.IsAddress() {
			hasAddress = true
			addressVerified = addressVerified || verified
		}

		switch d.VerificationStatus {
		case domain.VerificationNeedsReview:
			needsReview = true
		case domain.VerificationRejected:
			rejected = true
		}
	}

	switch {
	case !hasIdentity || !hasAddress:
		return domain.KycStatusIncomplete
	case needsReview:
		return domain.KycStatusUnderReview
	case rejected:
		return domain.KycStatusRejected
	case !identityVerified || !addressVerified:
		return domain.KycStatusPending
	case HighestRiskLevel(docs) == domain.RiskLevelCritical:
		return domain.KycStatusApprovedWithRestrictions
	}
	return domain.KycStatusApproved
}

// HighestRiskLevel returns the highest risk level set on any document, or
// the empty level if none is set
func HighestRiskLevel(docs []domain.KycDocument) domain.RiskLevel {
	var highest domain.RiskLevel
	for i := range docs {
		if l := docs[i].RiskLevel; l != nil && l.Rank() > highest.Rank() {
			highest = *l
		}
	}
	return highest
}

// Summarize builds the caller-facing status snapshot for a customer
func Summarize(docs []domain.KycDocument) *domain.KycStatus {
	if len(docs) == 0 {
		return &domain.KycStatus{
			DocumentStatus:  NoDocuments,
			RiskLevel:       domain.RiskLevelPending,
			ConfidenceScore: 0,
			OverallStatus:   domain.KycStatusIncomplete,
			Findings:        []string{},
		}
	}

	var verified, pending, rejected int
	var confidenceSum float64
	var scored int
	findings := []string{}

	for i := range docs {
		d := &docs[i]
		switch d.VerificationStatus {
		case domain.VerificationVerified:
			verified++
		case domain.VerificationPending, domain.VerificationInProgress:
			pending++
		case domain.VerificationRejected:
			rejected++
		}
		if d.IsScored() {
			confidenceSum += d.ConfidenceScore
			scored++
		}
		findings = append(findings, d.Findings...)
	}

	level := HighestRiskLevel(docs)
	if level == "" {
		level = domain.RiskLevelLow
	}

	confidence := 0.0
	if scored > 0 {
		confidence = confidenceSum / float64(scored)
	}

	return &domain.KycStatus{
		DocumentStatus:  fmt.Sprintf("%d verified, %d pending, %d rejected", verified, pending, rejected),
		RiskLevel:       string(level),
		ConfidenceScore: confidence,
		OverallStatus:   AggregateStatus(docs),
		Findings:        findings,
	}
}
