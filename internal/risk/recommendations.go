package risk

import (
	"github.com/banking/kyc-service/internal/domain"
)

const (
	recSeniorApproval  = "CRITICAL: Senior management approval required before onboarding or continuing the relationship"
	recConsiderSAR     = "Consider filing a Suspicious Activity Report (SAR) within 24 hours"
	recComplianceCheck = "HIGH RISK: Compliance officer review required within 48 hours"
	recEDDMandatory    = "Enhanced due diligence is mandatory"
	recSourceOfWealth  = "Verify source of wealth and source of funds with supporting documentation"
)

var monitoringRecommendations = map[domain.MonitoringFrequency]string{
	domain.MonitoringRealTime:   "Apply real-time transaction monitoring",
	domain.MonitoringContinuous: "Apply continuous transaction monitoring",
	domain.MonitoringMonthly:    "Review customer activity monthly",
	domain.MonitoringQuarterly:  "Review customer activity quarterly",
	domain.MonitoringSemiAnnual: "Review customer activity every six months",
	domain.MonitoringAnnual:     "Review customer activity annually",
}

// Recommendations lists the compliance actions for a combined score.
// opinion may be nil.
func Recommendations(combined domain.CombinedRiskScore, opinion *domain.RiskAssessmentOpinion) []string {
	var recs []string

	switch combined.RiskLevel {
	case domain.RiskLevelCritical:
		recs = append(recs, recSeniorApproval, recConsiderSAR)
	case domain.RiskLevelHigh:
		recs = append(recs, recComplianceCheck, recEDDMandatory)
	}

	if combined.DueDiligence == domain.DueDiligenceEnhanced {
		recs = append(recs, recSourceOfWealth)
	}

	if line, ok := monitoringRecommendations[combined.Monitoring]; ok {
		recs = append(recs, line)
	}

	if opinion != nil {
		for _, action := range opinion.RecommendedActions {
			if action != "" {
				recs = append(recs, "AI Insight: "+action)
			}
		}
	}

	return recs
}
