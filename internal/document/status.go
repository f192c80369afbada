package document

import (
	"fmt"

	"github.com/banking/kyc-service/internal/domain"
)

// DefaultConfidenceThreshold is the minimum overall extraction confidence
// for a document to be decided without review
const DefaultConfidenceThreshold = 0.7

// Evaluate decides the outcome of an IN_PROGRESS document. The checks are
// ordered: low confidence, then invalid or expired, then suspicious patterns.
func Evaluate(a *domain.DocumentAnalysis, threshold float64) domain.VerificationStatus {
	switch {
	case a.OverallConfidence < threshold:
		return domain.VerificationNeedsReview
	case !a.ValidDocument || !a.NotExpired:
		return domain.VerificationRejected
	case len(a.SuspiciousPatterns) > 0:
		return domain.VerificationNeedsReview
	}
	return domain.VerificationVerified
}

// AnalysisFindings lists the findings an analysis contributes to its document
func AnalysisFindings(a *domain.DocumentAnalysis, threshold float64) []string {
	var findings []string
	if a.OverallConfidence < threshold {
		findings = append(findings, fmt.Sprintf("Low extraction confidence: %.2f", a.OverallConfidence))
	}
	if !a.ValidDocument {
		findings = append(findings, "Document failed validation")
	}
	if !a.NotExpired {
		findings = append(findings, "Document is expired")
	}
	findings = append(findings, a.Warnings...)
	for _, p := range a.SuspiciousPatterns {
		findings = append(findings, "Suspicious pattern: "+p)
	}
	return findings
}
