package risk

import (
	"fmt"
	"strings"

	"github.com/banking/kyc-service/internal/domain"
)

// Combination constants
const (
	highFactorWeight      = 2
	maxHighFactorUplift   = 10
	maxMitigatingRelief   = 5
	sarUplift             = 10
	eddUplift             = 5
	eddUpliftCeiling      = 61
	maxDownwardAdjustment = 10
)

// Combine blends a baseline score with the oracle opinion.
// The adjusted score never drops more than 10 below the baseline.
func Combine(baseline domain.BaselineRiskScore, opinion *domain.RiskAssessmentOpinion) domain.CombinedRiskScore {
	if opinion == nil {
		return Fallback(baseline)
	}

	var reasons []string
	adjustment := 0

	if high := opinion.CountSeverity(domain.SeverityHigh); high > 0 {
		uplift := min(maxHighFactorUplift, highFactorWeight*high)
		adjustment += uplift
		reasons = append(reasons, fmt.Sprintf("+%d for %d high-severity factors", uplift, high))
	}

	if n := len(opinion.MitigatingFactors); n > 0 {
		relief := min(maxMitigatingRelief, n)
		adjustment -= relief
		reasons = append(reasons, fmt.Sprintf("-%d for %d mitigating factors", relief, n))
	}

	if opinion.Flags.SARConsideration {
		adjustment += sarUplift
		reasons = append(reasons, fmt.Sprintf("+%d for SAR consideration", sarUplift))
	}

	if opinion.Flags.EnhancedDueDiligenceRequired && baseline.Total < eddUpliftCeiling {
		adjustment += eddUplift
		reasons = append(reasons, fmt.Sprintf("+%d for EDD required below %d", eddUplift, eddUpliftCeiling))
	}

	floor := max(baseline.Total-maxDownwardAdjustment, 0)
	adjusted := min(max(baseline.Total+adjustment, floor), 100)

	reason := "no adjustment"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return domain.CombinedRiskScore{
		BaselineScore:    baseline.Total,
		AdjustedScore:    adjusted,
		Adjustment:       adjusted - baseline.Total,
		AdjustmentReason: reason,
		RiskLevel:        ClassifyLevel(adjusted),
		DueDiligence:     DueDiligence(adjusted, opinion.Flags.EnhancedDueDiligenceRequired),
		Monitoring:       Monitoring(adjusted),
		OracleUsed:       true,
	}
}

// Fallback classifies from the baseline alone when the oracle is unavailable
func Fallback(baseline domain.BaselineRiskScore) domain.CombinedRiskScore {
	total := min(max(baseline.Total, 0), 100)
	return domain.CombinedRiskScore{
		BaselineScore:    baseline.Total,
		AdjustedScore:    total,
		AdjustmentReason: domain.MsgOracleUnavailable,
		RiskLevel:        ClassifyLevel(total),
		DueDiligence:     domain.DueDiligenceStandard,
		Monitoring:       domain.MonitoringAnnual,
	}
}
