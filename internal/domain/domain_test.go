package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsers(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) error
		ok    []string
		bad   []string
	}{
		{"document type", func(s string) error { _, err := ParseDocumentType(s); return err },
			[]string{"PASSPORT", "UTILITY_BILL"}, []string{"", "passport", "SELFIE"}},
		{"verification status", func(s string) error { _, err := ParseVerificationStatus(s); return err },
			[]string{"PENDING", "NEEDS_REVIEW", "EXPIRED"}, []string{"", "LOST"}},
		{"legal basis", func(s string) error { _, err := ParseLegalBasis(s); return err },
			[]string{"CONSENT", "PUBLIC_TASK"}, []string{"", "WHIM"}},
		{"risk level", func(s string) error { _, err := ParseRiskLevel(s); return err },
			[]string{"LOW", "MEDIUM_HIGH", "CRITICAL"}, []string{"", "PENDING", "SEVERE"}},
		{"product tier", func(s string) error { _, err := ParseProductRiskTier(s); return err },
			[]string{"LOW", "CRITICAL"}, []string{"", "EXTREME"}},
		{"direction", func(s string) error { _, err := ParseDirection(s); return err },
			[]string{"INBOUND", "OUTBOUND"}, []string{"", "SIDEWAYS"}},
		{"payment method", func(s string) error { _, err := ParsePaymentMethod(s); return err },
			[]string{"CASH", "CRYPTO", "ACH"}, []string{"", "CHEQUE"}},
		{"pep level", func(s string) error { _, err := ParsePEPLevel(s); return err },
			[]string{"", "DOMESTIC_SENIOR_OFFICIAL"}, []string{"MAYOR"}},
		{"entity type", func(s string) error { _, err := ParseEntityType(s); return err },
			[]string{"", "INDIVIDUAL"}, []string{"TRUST_FUND_BABY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.ok {
				assert.NoError(t, tt.parse(s), s)
			}
			for _, s := range tt.bad {
				err := tt.parse(s)
				require.Error(t, err, s)
				assert.True(t, IsInvariant(err), s)
				assert.True(t, IsInvariant(fmt.Errorf("wrapped: %w", err)))
			}
		})
	}
}

func TestParseEntityTypeDefaultsToIndividual(t *testing.T) {
	e, err := ParseEntityType("")
	require.NoError(t, err)
	assert.Equal(t, EntityIndividual, e)
}

func TestRiskLevelRank(t *testing.T) {
	order := []RiskLevel{RiskLevelLow, RiskLevelMediumLow, RiskLevelMedium, RiskLevelMediumHigh, RiskLevelHigh, RiskLevelCritical}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
	}
	assert.Equal(t, 0, RiskLevel("PENDING").Rank())
	assert.False(t, RiskLevel("PENDING").IsValid())
}

func TestAppendFindings(t *testing.T) {
	doc := NewKycDocument("cust-1", DocumentPassport, LegalBasisLegalObligation, time.Now())
	doc.AppendFindings("Risk Score: 45 (MEDIUM)", "", "Factors: Cust=10, Geo=15, Prod=10, Tx=10")
	doc.AppendFindings("Risk Score: 45 (MEDIUM)", "Risk Score: 70 (MEDIUM_HIGH)")

	assert.Equal(t, []string{
		"Risk Score: 45 (MEDIUM)",
		"Factors: Cust=10, Geo=15, Prod=10, Tx=10",
		"Risk Score: 70 (MEDIUM_HIGH)",
	}, doc.Findings)
}

func TestNewKycDocument(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	doc := NewKycDocument("cust-1", DocumentPassport, LegalBasisConsent, now)

	assert.Equal(t, VerificationPending, doc.VerificationStatus)
	assert.False(t, doc.IsScored())
	assert.Nil(t, doc.RiskLevel)
	assert.Equal(t, now, *doc.ConsentTimestamp)
	assert.NotNil(t, doc.Findings)
}

func TestDocumentTypeCategories(t *testing.T) {
	assert.True(t, DocumentPassport.IsIdentity())
	assert.False(t, DocumentPassport.IsAddress())
	assert.True(t, DocumentUtilityBill.IsAddress())
	assert.False(t, DocumentUtilityBill.IsIdentity())
}

func TestAccountAgeMonths(t *testing.T) {
	opened := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	c := &Customer{AccountOpenedAt: &opened}

	assert.Equal(t, 0, (&Customer{}).AccountAgeMonths(time.Now()))
	assert.Equal(t, 11, c.AccountAgeMonths(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, c.AccountAgeMonths(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, c.AccountAgeMonths(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTransactionFlags(t *testing.T) {
	tx := &FinancialTransaction{PaymentMethod: PaymentCrypto, SourceCountry: "DE", DestinationCountry: "AE"}
	assert.True(t, tx.IsCrypto())
	assert.False(t, tx.IsCash())
	assert.True(t, tx.IsCrossBorder())

	tx = &FinancialTransaction{PaymentMethod: PaymentCash, SourceCountry: "DE"}
	assert.True(t, tx.IsCash())
	assert.False(t, tx.IsCrossBorder())
}

func TestComplianceAlertEscalation(t *testing.T) {
	now := time.Now()
	assert.True(t, NewComplianceAlert(AlertSARConsideration, "ref", "t", "d", now).RequiresEscalation())

	review := NewComplianceAlert(AlertManualReview, "ref", "t", "d", now)
	assert.False(t, review.RequiresEscalation())
	review.RiskLevel = RiskLevelCritical
	assert.True(t, review.RequiresEscalation())
}

func TestOpinionCountSeverity(t *testing.T) {
	o := &RiskAssessmentOpinion{Factors: []OpinionFactor{
		{Severity: SeverityHigh}, {Severity: SeverityMedium}, {Severity: SeverityHigh},
	}}
	assert.Equal(t, 2, o.CountSeverity(SeverityHigh))
	assert.Equal(t, 0, o.CountSeverity(SeverityLow))
}

func TestSubmissionResult(t *testing.T) {
	r := Rejected(MsgPrivacyCheckFailed)
	assert.True(t, r.IsRejected())
	assert.Equal(t, "Privacy check failed - unable to process", r.Message)
	assert.False(t, (&SubmissionResult{Status: SubmissionSuccess}).IsRejected())
}
