package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/jurisdiction"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/banking/kyc-service/internal/risk")

// AssessmentObserver records assessment outcomes, e.g. as metrics
type AssessmentObserver interface {
	ObserveAssessment(level domain.RiskLevel, fallback bool, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAssessment(domain.RiskLevel, bool, time.Duration) {}

// Assessor runs the baseline, oracle and combination steps for a profile
type Assessor struct {
	scorer    *BaselineScorer
	oracle    Oracle
	retriever ContextRetriever
	observer  AssessmentObserver

	agentsCfg *config.AgentsConfig
	riskCfg   *config.RiskConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewAssessor creates a new assessor. oracle, retriever and observer may be nil.
func NewAssessor(
	oracle Oracle,
	retriever ContextRetriever,
	observer AssessmentObserver,
	agentsCfg *config.AgentsConfig,
	riskCfg *config.RiskConfig,
	log *logger.Logger,
) *Assessor {
	if oracle == nil {
		oracle = BaselineOnlyOracle{}
	}
	if retriever == nil {
		retriever = NoContext{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Assessor{
		scorer:    NewBaselineScorer(),
		oracle:    oracle,
		retriever: retriever,
		observer:  observer,
		agentsCfg: agentsCfg,
		riskCfg:   riskCfg,
		log:       log.Named("risk_assessor"),
		now:       time.Now,
	}
}

// Assess scores a profile. Oracle failures never fail the assessment;
// they take the baseline-only path instead.
func (a *Assessor) Assess(ctx context.Context, profile *domain.CustomerRiskProfile) (*domain.RiskAssessment, error) {
	if profile == nil {
		return nil, errors.New("assess: nil profile")
	}

	ctx, span := tracer.Start(ctx, "risk.Assess")
	defer span.End()

	start := a.now()
	log := a.log.WithCustomer(profile.CustomerRef)

	baseline := a.scorer.Score(profile)
	span.SetAttributes(attribute.Int("risk.baseline_score", baseline.Total))

	patterns := strings.Join(UnusualPatterns(profile), "; ")
	patterns = WithRegulatoryContext(a.regulatoryContext(ctx, profile), patterns)

	opinion, err := a.askOracle(ctx, profile, patterns)
	if err != nil {
		log.OracleFallback(profile.CustomerRef, err)
		span.RecordError(err)
	}

	var combined domain.CombinedRiskScore
	if opinion != nil {
		combined = Combine(baseline, opinion)
	} else {
		combined = Fallback(baseline)
	}

	assessment := &domain.RiskAssessment{
		CustomerRef:     profile.CustomerRef,
		Baseline:        baseline,
		Combined:        combined,
		Opinion:         opinion,
		Fallback:        opinion == nil,
		UnusualPatterns: patterns,
		AssessedAt:      a.now(),
	}
	assessment.Findings = Findings(assessment)
	assessment.Recommendations = Recommendations(combined, opinion)

	elapsed := time.Since(start)
	a.observer.ObserveAssessment(combined.RiskLevel, assessment.Fallback, elapsed)

	log.RiskAssessed(profile.CustomerRef, baseline.Total, combined.AdjustedScore,
		string(combined.RiskLevel), assessment.Fallback, elapsed.Milliseconds())

	if budget := a.riskCfg.MaxAssessmentLatency; budget > 0 && elapsed > budget {
		log.LatencyWarning("risk_assessment", elapsed.Milliseconds(), budget.Milliseconds())
	}

	span.SetAttributes(
		attribute.Int("risk.adjusted_score", combined.AdjustedScore),
		attribute.String("risk.level", string(combined.RiskLevel)),
		attribute.Bool("risk.fallback", assessment.Fallback),
	)
	span.SetStatus(codes.Ok, "")

	return assessment, nil
}

// regulatoryContext is best effort; failures yield no context
func (a *Assessor) regulatoryContext(ctx context.Context, p *domain.CustomerRiskProfile) string {
	rctx, cancel := withOptionalTimeout(ctx, a.agentsCfg.KnowledgeTimeout)
	defer cancel()

	text, err := a.retriever.RetrieveContext(rctx, ContextQuery(p))
	if err != nil {
		a.log.Debug("regulatory context unavailable", logger.ErrorField(err))
		return ""
	}
	return text
}

func (a *Assessor) askOracle(ctx context.Context, p *domain.CustomerRiskProfile, patterns string) (*domain.RiskAssessmentOpinion, error) {
	octx, cancel := withOptionalTimeout(ctx, a.agentsCfg.OracleTimeout)
	defer cancel()

	opinion, err := a.oracle.AssessRisk(octx, BuildOracleRequest(p, patterns))
	if err != nil {
		return nil, err
	}
	if opinion == nil {
		return nil, fmt.Errorf("%w: empty opinion", domain.ErrOracleUnavailable)
	}
	return opinion, nil
}

// BuildOracleRequest maps a profile onto the oracle's input
func BuildOracleRequest(p *domain.CustomerRiskProfile, patterns string) *OracleRequest {
	return &OracleRequest{
		CustomerRef:       p.CustomerRef,
		Nationality:       p.Nationality,
		ResidenceCountry:  p.ResidenceCountry,
		Occupation:        p.Occupation,
		Industry:          p.Industry,
		IncomeRange:       p.IncomeRange,
		SourceOfWealth:    p.SourceOfWealth,
		IsPEP:             p.IsPEP,
		PEPLevel:          string(p.PEPLevel),
		AdverseMediaHits:  p.AdverseMediaHits,
		SanctionsMatch:    p.SanctionsMatch,
		NationalityRisk:   string(jurisdiction.Nationality(p.Nationality)),
		ResidenceRisk:     string(jurisdiction.Residence(p.ResidenceCountry)),
		FatfStatus:        string(jurisdiction.Status(p.Nationality)),
		EntityType:        string(p.EntityType),
		IsCorporate:       p.IsCorporate(),
		CashIntensive:     p.Transactions.HasCashActivity,
		AccountAgeMonths:  p.AccountAgeMonths,
		TransactionVolume: p.Transactions.TotalVolume.StringFixed(2),
		UnusualPatterns:   patterns,
	}
}

// Findings renders the lines appended to each document after an assessment
func Findings(a *domain.RiskAssessment) []string {
	c := a.Combined
	b := a.Baseline
	findings := []string{
		fmt.Sprintf("Risk Score: %d (%s)", c.AdjustedScore, c.RiskLevel),
		fmt.Sprintf("Factors: Cust=%d, Geo=%d, Prod=%d, Tx=%d",
			b.CustomerScore, b.GeographicScore, b.ProductScore, b.TransactionScore),
	}

	if op := a.Opinion; op != nil {
		for _, f := range op.Factors {
			if f.Severity == domain.SeverityHigh || f.Severity == domain.SeverityMedium {
				findings = append(findings, fmt.Sprintf("Risk Factor: %s (%s)", f.Factor, f.Severity))
			}
		}
		if op.Rationale != "" {
			findings = append(findings, "Assessment Rationale: "+op.Rationale)
		}
	}

	if a.Fallback {
		findings = append(findings, domain.MsgOracleUnavailable)
	}

	return findings
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
