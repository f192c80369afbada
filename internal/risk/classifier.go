package risk

import "github.com/banking/kyc-service/internal/domain"

// Score thresholds of the six-tier taxonomy
const (
	criticalThreshold   = 91
	highThreshold       = 76
	mediumHighThreshold = 61
	mediumThreshold     = 41
	mediumLowThreshold  = 21
)

// ClassifyLevel maps a 0-100 score onto the six-tier taxonomy
func ClassifyLevel(score int) domain.RiskLevel {
	switch {
	case score >= criticalThreshold:
		return domain.RiskLevelCritical
	case score >= highThreshold:
		return domain.RiskLevelHigh
	case score >= mediumHighThreshold:
		return domain.RiskLevelMediumHigh
	case score >= mediumThreshold:
		return domain.RiskLevelMedium
	case score >= mediumLowThreshold:
		return domain.RiskLevelMediumLow
	}
	return domain.RiskLevelLow
}

// DueDiligence selects the due-diligence level. SIMPLIFIED is never chosen here.
func DueDiligence(score int, eddRequired bool) domain.DueDiligenceLevel {
	if score >= mediumHighThreshold || eddRequired {
		return domain.DueDiligenceEnhanced
	}
	return domain.DueDiligenceStandard
}

// Monitoring selects the review frequency for a score
func Monitoring(score int) domain.MonitoringFrequency {
	switch {
	case score >= highThreshold:
		return domain.MonitoringContinuous
	case score >= mediumHighThreshold:
		return domain.MonitoringMonthly
	}
	return domain.MonitoringAnnual
}
