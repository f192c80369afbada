package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banking/kyc-service/internal/domain"
)

func baselineOf(total int) domain.BaselineRiskScore {
	return domain.BaselineRiskScore{Total: total}
}

func highFactors(n int) []domain.OpinionFactor {
	out := make([]domain.OpinionFactor, n)
	for i := range out {
		out[i] = domain.OpinionFactor{Category: domain.FactorCustomer, Factor: "factor", Severity: domain.SeverityHigh}
	}
	return out
}

func TestCombine_Adjustments(t *testing.T) {
	tests := []struct {
		name     string
		baseline int
		opinion  domain.RiskAssessmentOpinion
		want     int
	}{
		{"no adjustment", 40, domain.RiskAssessmentOpinion{}, 40},
		{"two high factors", 40, domain.RiskAssessmentOpinion{Factors: highFactors(2)}, 44},
		{"high factor uplift capped", 40, domain.RiskAssessmentOpinion{Factors: highFactors(8)}, 50},
		{"mitigating relief", 40, domain.RiskAssessmentOpinion{MitigatingFactors: []string{"a", "b", "c"}}, 37},
		{"mitigating relief capped", 40, domain.RiskAssessmentOpinion{MitigatingFactors: make([]string, 9)}, 35},
		{"sar uplift", 40, domain.RiskAssessmentOpinion{Flags: domain.ComplianceFlags{SARConsideration: true}}, 50},
		{"edd uplift below ceiling", 60, domain.RiskAssessmentOpinion{Flags: domain.ComplianceFlags{EnhancedDueDiligenceRequired: true}}, 65},
		{"edd uplift skipped at ceiling", 61, domain.RiskAssessmentOpinion{Flags: domain.ComplianceFlags{EnhancedDueDiligenceRequired: true}}, 61},
		{"ceiling at 100", 95, domain.RiskAssessmentOpinion{Factors: highFactors(5), Flags: domain.ComplianceFlags{SARConsideration: true}}, 100},
		{"floor at zero", 2, domain.RiskAssessmentOpinion{MitigatingFactors: make([]string, 5)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := tt.opinion
			got := Combine(baselineOf(tt.baseline), &op)
			assert.Equal(t, tt.want, got.AdjustedScore)
			assert.Equal(t, tt.baseline, got.BaselineScore)
			assert.Equal(t, got.AdjustedScore-tt.baseline, got.Adjustment)
			assert.True(t, got.OracleUsed)
			assert.Equal(t, ClassifyLevel(got.AdjustedScore), got.RiskLevel)
		})
	}
}

func TestCombine_NeverDropsMoreThanTenBelowBaseline(t *testing.T) {
	for baseline := 0; baseline <= 100; baseline++ {
		op := &domain.RiskAssessmentOpinion{MitigatingFactors: make([]string, 20)}
		got := Combine(baselineOf(baseline), op)
		assert.GreaterOrEqual(t, got.AdjustedScore, max(baseline-10, 0))
		assert.LessOrEqual(t, got.AdjustedScore, 100)
	}
}

func TestCombine_EDDFlagForcesEnhancedDueDiligence(t *testing.T) {
	op := &domain.RiskAssessmentOpinion{Flags: domain.ComplianceFlags{EnhancedDueDiligenceRequired: true}}
	got := Combine(baselineOf(10), op)
	assert.Equal(t, 15, got.AdjustedScore)
	assert.Equal(t, domain.DueDiligenceEnhanced, got.DueDiligence)
	assert.Equal(t, domain.MonitoringAnnual, got.Monitoring)
}

func TestCombine_NilOpinionFallsBack(t *testing.T) {
	got := Combine(baselineOf(70), nil)
	assert.Equal(t, Fallback(baselineOf(70)), got)
}

func TestFallback(t *testing.T) {
	got := Fallback(baselineOf(85))
	assert.Equal(t, 85, got.AdjustedScore)
	assert.Equal(t, 0, got.Adjustment)
	assert.Equal(t, domain.RiskLevelHigh, got.RiskLevel)
	assert.Equal(t, domain.DueDiligenceStandard, got.DueDiligence)
	assert.Equal(t, domain.MonitoringAnnual, got.Monitoring)
	assert.Equal(t, domain.MsgOracleUnavailable, got.AdjustmentReason)
	assert.False(t, got.OracleUsed)
}

func TestClassifyLevel_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.RiskLevelLow},
		{20, domain.RiskLevelLow},
		{21, domain.RiskLevelMediumLow},
		{40, domain.RiskLevelMediumLow},
		{41, domain.RiskLevelMedium},
		{60, domain.RiskLevelMedium},
		{61, domain.RiskLevelMediumHigh},
		{75, domain.RiskLevelMediumHigh},
		{76, domain.RiskLevelHigh},
		{90, domain.RiskLevelHigh},
		{91, domain.RiskLevelCritical},
		{100, domain.RiskLevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLevel(tt.score), "score %d", tt.score)
	}
}

func TestClassification_At95(t *testing.T) {
	assert.Equal(t, domain.RiskLevelCritical, ClassifyLevel(95))
	assert.Equal(t, domain.MonitoringContinuous, Monitoring(95))
	assert.Equal(t, domain.DueDiligenceEnhanced, DueDiligence(95, false))
}

func TestDueDiligenceAndMonitoring(t *testing.T) {
	assert.Equal(t, domain.DueDiligenceStandard, DueDiligence(60, false))
	assert.Equal(t, domain.DueDiligenceEnhanced, DueDiligence(60, true))
	assert.Equal(t, domain.DueDiligenceEnhanced, DueDiligence(61, false))

	assert.Equal(t, domain.MonitoringAnnual, Monitoring(60))
	assert.Equal(t, domain.MonitoringMonthly, Monitoring(61))
	assert.Equal(t, domain.MonitoringMonthly, Monitoring(75))
	assert.Equal(t, domain.MonitoringContinuous, Monitoring(76))
}
