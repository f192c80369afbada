package domain

import (
	"time"
)

// RiskLevel represents the six-tier customer risk taxonomy
type RiskLevel string

const (
	RiskLevelLow        RiskLevel = "LOW"
	RiskLevelMediumLow  RiskLevel = "MEDIUM_LOW"
	RiskLevelMedium     RiskLevel = "MEDIUM"
	RiskLevelMediumHigh RiskLevel = "MEDIUM_HIGH"
	RiskLevelHigh       RiskLevel = "HIGH"
	RiskLevelCritical   RiskLevel = "CRITICAL"
)

var riskLevelRank = map[RiskLevel]int{
	RiskLevelLow:        1,
	RiskLevelMediumLow:  2,
	RiskLevelMedium:     3,
	RiskLevelMediumHigh: 4,
	RiskLevelHigh:       5,
	RiskLevelCritical:   6,
}

// Rank orders risk levels; unknown levels rank 0
func (l RiskLevel) Rank() int {
	return riskLevelRank[l]
}

// IsValid reports whether l is a known level
func (l RiskLevel) IsValid() bool {
	_, ok := riskLevelRank[l]
	return ok
}

// ParseRiskLevel converts a stored string into a RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(s)
	if !l.IsValid() {
		return "", &InvariantError{Field: "risk_level", Value: s}
	}
	return l, nil
}

// DueDiligenceLevel is the depth of customer verification required
type DueDiligenceLevel string

const (
	DueDiligenceSimplified DueDiligenceLevel = "SIMPLIFIED"
	DueDiligenceStandard   DueDiligenceLevel = "STANDARD"
	DueDiligenceEnhanced   DueDiligenceLevel = "ENHANCED"
)

// MonitoringFrequency is how often the customer is re-reviewed
type MonitoringFrequency string

const (
	MonitoringAnnual     MonitoringFrequency = "ANNUAL"
	MonitoringSemiAnnual MonitoringFrequency = "SEMI_ANNUAL"
	MonitoringQuarterly  MonitoringFrequency = "QUARTERLY"
	MonitoringMonthly    MonitoringFrequency = "MONTHLY"
	MonitoringContinuous MonitoringFrequency = "CONTINUOUS"
	MonitoringRealTime   MonitoringFrequency = "REAL_TIME"
)

// Sub-score caps of the baseline model
const (
	MaxCustomerScore    = 30
	MaxGeographicScore  = 25
	MaxProductScore     = 20
	MaxTransactionScore = 25
)

// BaselineRiskScore is the deterministic four-factor score
type BaselineRiskScore struct {
	CustomerScore    int `json:"customer_score"`
	GeographicScore  int `json:"geographic_score"`
	ProductScore     int `json:"product_score"`
	TransactionScore int `json:"transaction_score"`
	Total            int `json:"total"`
}

// CombinedRiskScore is the baseline blended with the oracle opinion
type CombinedRiskScore struct {
	BaselineScore    int                 `json:"baseline_score"`
	AdjustedScore    int                 `json:"adjusted_score"`
	Adjustment       int                 `json:"adjustment"`
	AdjustmentReason string              `json:"adjustment_reason"`
	RiskLevel        RiskLevel           `json:"risk_level"`
	DueDiligence     DueDiligenceLevel   `json:"due_diligence"`
	Monitoring       MonitoringFrequency `json:"monitoring"`
	OracleUsed       bool                `json:"oracle_used"`
}

// FactorCategory groups oracle risk factors
type FactorCategory string

const (
	FactorGeographic  FactorCategory = "GEOGRAPHIC"
	FactorCustomer    FactorCategory = "CUSTOMER"
	FactorTransaction FactorCategory = "TRANSACTION"
	FactorBusiness    FactorCategory = "BUSINESS"
)

// Severity of an oracle risk factor
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// OpinionFactor is one weighted factor reported by the oracle
type OpinionFactor struct {
	Category FactorCategory `json:"category"`
	Factor   string         `json:"factor"`
	Severity Severity       `json:"severity"`
	Weight   float64        `json:"weight"`
}

// ComplianceFlags are the oracle's compliance recommendations
type ComplianceFlags struct {
	EnhancedDueDiligenceRequired bool `json:"edd_required"`
	SourceOfWealthVerification   bool `json:"source_of_wealth_verification"`
	SeniorApprovalRequired       bool `json:"senior_approval_required"`
	SARConsideration             bool `json:"sar_consideration"`
}

// RiskAssessmentOpinion is the advisory output of the risk oracle.
// Only LOW, MEDIUM, HIGH and CRITICAL appear in RiskLevel.
type RiskAssessmentOpinion struct {
	RiskLevel           RiskLevel       `json:"risk_level"`
	RiskScore           int             `json:"risk_score"`
	Factors             []OpinionFactor `json:"risk_factors"`
	MitigatingFactors   []string        `json:"mitigating_factors"`
	RecommendedActions  []string        `json:"recommended_actions"`
	Flags               ComplianceFlags `json:"compliance"`
	HumanReviewRequired bool            `json:"human_review_required"`
	Rationale           string          `json:"decision_rationale"`
}

// CountSeverity returns the number of factors with severity s
func (o *RiskAssessmentOpinion) CountSeverity(s Severity) int {
	n := 0
	for _, f := range o.Factors {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// RiskAssessment is the complete outcome of one customer assessment
type RiskAssessment struct {
	CustomerRef     string                 `json:"customer_ref"`
	Baseline        BaselineRiskScore      `json:"baseline"`
	Combined        CombinedRiskScore      `json:"combined"`
	Opinion         *RiskAssessmentOpinion `json:"opinion,omitempty"`
	Fallback        bool                   `json:"fallback"`
	UnusualPatterns string                 `json:"unusual_patterns"`
	Findings        []string               `json:"findings"`
	Recommendations []string               `json:"recommendations"`
	AssessedAt      time.Time              `json:"assessed_at"`
}

// IsHighRisk returns true for HIGH and CRITICAL outcomes
func (a *RiskAssessment) IsHighRisk() bool {
	return a.Combined.RiskLevel.Rank() >= RiskLevelHigh.Rank()
}
