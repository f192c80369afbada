package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// OracleRequest is the structured profile sent to the risk oracle
type OracleRequest struct {
	CustomerRef       string `json:"customer_ref"`
	Nationality       string `json:"nationality"`
	ResidenceCountry  string `json:"residence_country"`
	Occupation        string `json:"occupation"`
	Industry          string `json:"industry"`
	IncomeRange       string `json:"income_range"`
	SourceOfWealth    string `json:"source_of_wealth"`
	IsPEP             bool   `json:"pep_status"`
	PEPLevel          string `json:"pep_level,omitempty"`
	AdverseMediaHits  int    `json:"adverse_media_count"`
	SanctionsMatch    bool   `json:"sanctions_match"`
	PreviousSAR       bool   `json:"previous_sar"`
	NationalityRisk   string `json:"nationality_risk"`
	ResidenceRisk     string `json:"residence_risk"`
	FatfStatus        string `json:"fatf_status"`
	EntityType        string `json:"entity_type,omitempty"`
	IsCorporate       bool   `json:"is_corporate"`
	CashIntensive     bool   `json:"cash_intensive"`
	AccountAgeMonths  int    `json:"account_age_months"`
	TransactionVolume string `json:"transaction_volume"`
	UnusualPatterns   string `json:"unusual_patterns"`
}

// Oracle is the external contextual risk-opinion provider.
// Implementations may be slow, non-deterministic, or fail.
type Oracle interface {
	AssessRisk(ctx context.Context, req *OracleRequest) (*domain.RiskAssessmentOpinion, error)
}

// BaselineOnlyOracle never produces an opinion, forcing rule-only scoring
type BaselineOnlyOracle struct{}

// AssessRisk always reports the oracle as unavailable
func (BaselineOnlyOracle) AssessRisk(context.Context, *OracleRequest) (*domain.RiskAssessmentOpinion, error) {
	return nil, domain.ErrOracleUnavailable
}

// StaticOracle returns a fixed opinion
type StaticOracle struct {
	Opinion *domain.RiskAssessmentOpinion
}

// AssessRisk returns a copy of the configured opinion
func (o StaticOracle) AssessRisk(context.Context, *OracleRequest) (*domain.RiskAssessmentOpinion, error) {
	if o.Opinion == nil {
		return nil, domain.ErrOracleUnavailable
	}
	op := *o.Opinion
	return &op, nil
}

// BreakerSettings configures BreakerOracle
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerOracle guards an oracle with a circuit breaker. An open
// breaker surfaces as ErrOracleUnavailable.
type BreakerOracle struct {
	next Oracle
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerOracle wraps next with a circuit breaker
func NewBreakerOracle(next Oracle, s BreakerSettings, log *logger.Logger) *BreakerOracle {
	l := log.Named("oracle_breaker")
	threshold := s.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "risk-oracle",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed",
				logger.StringField("breaker", name),
				logger.StringField("from", from.String()),
				logger.StringField("to", to.String()),
			)
		},
	})
	return &BreakerOracle{next: next, cb: cb}
}

// AssessRisk calls the wrapped oracle unless the breaker is open
func (b *BreakerOracle) AssessRisk(ctx context.Context, req *OracleRequest) (*domain.RiskAssessmentOpinion, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.AssessRisk(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
		}
		return nil, err
	}
	opinion, _ := res.(*domain.RiskAssessmentOpinion)
	if opinion == nil {
		return nil, fmt.Errorf("%w: empty opinion", domain.ErrOracleUnavailable)
	}
	return opinion, nil
}

// State exposes the breaker state
func (b *BreakerOracle) State() gobreaker.State {
	return b.cb.State()
}

// Check reports the oracle as unhealthy while the breaker is open.
// Assessments keep running on the baseline path in that state.
func (b *BreakerOracle) Check(context.Context) error {
	if b.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", domain.ErrOracleUnavailable)
	}
	return nil
}
