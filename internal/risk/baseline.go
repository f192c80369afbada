package risk

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/jurisdiction"
)

// Customer factor weights
const (
	pepForeignSeniorScore  = 12
	pepDomesticSeniorScore = 10
	pepDefaultScore        = 8
	sanctionsMatchScore    = 10
	highRiskOccupation     = 10
	occupationPresentScore = 2
)

// Geographic factor weights
const (
	nationalityCriticalScore = 15
	nationalityHighScore     = 10
	residenceHighScore       = 10
	residenceMediumScore     = 5
)

// Transaction factor weights
const (
	volumeAnomalyScore = 8
	cryptoMethodScore  = 6
	cashMethodScore    = 4
	volumeRatioTrigger = 2
)

var absoluteVolumeTrigger = decimal.NewFromInt(100000)

var highRiskOccupationKeywords = []string{"crypto", "arms", "gambling"}

var productTierScores = map[domain.ProductRiskTier]int{
	domain.ProductRiskLow:      2,
	domain.ProductRiskMedium:   8,
	domain.ProductRiskHigh:     15,
	domain.ProductRiskCritical: 15,
}

// BaselineScorer computes the deterministic four-factor risk score.
// It holds no state; Score is safe for concurrent use.
type BaselineScorer struct{}

// NewBaselineScorer creates a new baseline scorer
func NewBaselineScorer() *BaselineScorer {
	return &BaselineScorer{}
}

// Score computes the baseline score for a profile
func (s *BaselineScorer) Score(p *domain.CustomerRiskProfile) domain.BaselineRiskScore {
	score := domain.BaselineRiskScore{
		CustomerScore:    capScore(s.customerScore(p), domain.MaxCustomerScore),
		GeographicScore:  capScore(s.geographicScore(p), domain.MaxGeographicScore),
		ProductScore:     capScore(s.productScore(p.Products), domain.MaxProductScore),
		TransactionScore: capScore(s.transactionScore(p), domain.MaxTransactionScore),
	}
	score.Total = score.CustomerScore + score.GeographicScore + score.ProductScore + score.TransactionScore
	return score
}

func (s *BaselineScorer) customerScore(p *domain.CustomerRiskProfile) int {
	score := pepScore(p)

	if p.SanctionsMatch {
		score += sanctionsMatchScore
	}

	score += adverseMediaScore(p.AdverseMediaHits)
	score += occupationScore(p.Occupation)

	return score
}

func pepScore(p *domain.CustomerRiskProfile) int {
	if !p.IsPEP {
		return 0
	}
	switch domain.PEPLevel(strings.ToUpper(string(p.PEPLevel))) {
	case domain.PEPLevelForeignSeniorOfficial:
		return pepForeignSeniorScore
	case domain.PEPLevelDomesticSeniorOfficial:
		return pepDomesticSeniorScore
	}
	return pepDefaultScore
}

func adverseMediaScore(hits int) int {
	switch {
	case hits >= 5:
		return 8
	case hits >= 3:
		return 6
	case hits >= 1:
		return 3
	}
	return 0
}

func occupationScore(occupation string) int {
	occ := strings.ToLower(strings.TrimSpace(occupation))
	if occ == "" {
		return 0
	}
	for _, kw := range highRiskOccupationKeywords {
		if strings.Contains(occ, kw) {
			return highRiskOccupation
		}
	}
	return occupationPresentScore
}

func (s *BaselineScorer) geographicScore(p *domain.CustomerRiskProfile) int {
	score := 0

	switch jurisdiction.Nationality(p.Nationality) {
	case jurisdiction.NationalityCritical:
		score += nationalityCriticalScore
	case jurisdiction.NationalityHigh:
		score += nationalityHighScore
	}

	switch jurisdiction.Residence(p.ResidenceCountry) {
	case jurisdiction.ResidenceHigh:
		score += residenceHighScore
	case jurisdiction.ResidenceMedium:
		score += residenceMediumScore
	}

	return score
}

func (s *BaselineScorer) productScore(products []domain.Product) int {
	best := 0
	for _, p := range products {
		score := productTierScores[domain.ProductRiskTier(strings.ToUpper(string(p.RiskTier)))]
		if p.RiskScore != nil && *p.RiskScore > score {
			score = *p.RiskScore
		}
		best = max(best, score)
	}
	return best
}

func (s *BaselineScorer) transactionScore(p *domain.CustomerRiskProfile) int {
	score := volumeScore(p.Transactions.TotalVolume, p.ExpectedMonthlyVolume)

	// Pattern contribution is reserved and currently scores 0

	if p.Transactions.HasCryptoActivity {
		score += cryptoMethodScore
	}
	if p.Transactions.HasCashActivity {
		score += cashMethodScore
	}

	return score
}

func volumeScore(actual, expected decimal.Decimal) int {
	if !expected.IsPositive() {
		if actual.GreaterThan(absoluteVolumeTrigger) {
			return volumeAnomalyScore
		}
		return 0
	}
	if actual.Div(expected).GreaterThanOrEqual(decimal.NewFromInt(volumeRatioTrigger)) {
		return volumeAnomalyScore
	}
	return 0
}

func capScore(score, limit int) int {
	return min(max(score, 0), limit)
}
