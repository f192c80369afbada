package risk

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
)

// structuringBand is how close below the reporting threshold a cash
// deposit must be to count towards structuring
var structuringBand = decimal.NewFromFloat(0.9)

// TransactionAnalyzer summarises trailing transaction activity
type TransactionAnalyzer struct {
	cfg *config.PatternsConfig
}

// NewTransactionAnalyzer creates a new analyzer
func NewTransactionAnalyzer(cfg *config.PatternsConfig) *TransactionAnalyzer {
	return &TransactionAnalyzer{cfg: cfg}
}

// Summarize computes TransactionMetrics for the given transactions
func (a *TransactionAnalyzer) Summarize(txs []domain.FinancialTransaction) domain.TransactionMetrics {
	m := domain.TransactionMetrics{TotalVolume: decimal.Zero}
	if len(txs) == 0 {
		return m
	}

	sorted := make([]domain.FinancialTransaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	for i := range sorted {
		tx := &sorted[i]
		m.TotalVolume = m.TotalVolume.Add(tx.Amount.Abs())
		m.TransactionCount++
		if tx.IsCrypto() {
			m.CryptoCount++
		}
		if tx.IsCash() {
			m.CashCount++
		}
	}

	m.HasCryptoActivity = m.CryptoCount > 0
	m.HasCashActivity = m.CashCount > 0
	m.StructuringDetected = a.detectStructuring(sorted)
	m.RapidMovementDetected = a.detectRapidMovement(sorted)

	return m
}

// detectStructuring looks for repeated cash deposits just under the
// reporting threshold within the structuring window
func (a *TransactionAnalyzer) detectStructuring(sorted []domain.FinancialTransaction) bool {
	if a.cfg.StructuringMinTxCount <= 0 || a.cfg.StructuringThreshold <= 0 {
		return false
	}
	threshold := decimal.NewFromFloat(a.cfg.StructuringThreshold)
	lower := threshold.Mul(structuringBand)
	window := time.Duration(a.cfg.StructuringWindowHours) * time.Hour

	var hits []time.Time
	for _, tx := range sorted {
		if !tx.IsCash() {
			continue
		}
		amt := tx.Amount.Abs()
		if amt.LessThan(lower) || amt.GreaterThanOrEqual(threshold) {
			continue
		}
		hits = append(hits, tx.OccurredAt)
	}

	start := 0
	for end := range hits {
		for hits[end].Sub(hits[start]) > window {
			start++
		}
		if end-start+1 >= a.cfg.StructuringMinTxCount {
			return true
		}
	}
	return false
}

// detectRapidMovement looks for inbound funds moved out again within the
// rapid-cycling window
func (a *TransactionAnalyzer) detectRapidMovement(sorted []domain.FinancialTransaction) bool {
	if a.cfg.RapidCyclingThreshold <= 0 || a.cfg.RapidCyclingWindowMins <= 0 {
		return false
	}
	ratio := decimal.NewFromFloat(a.cfg.RapidCyclingThreshold)
	window := time.Duration(a.cfg.RapidCyclingWindowMins) * time.Minute

	for i, in := range sorted {
		if in.Direction != domain.DirectionInbound || !in.Amount.IsPositive() {
			continue
		}
		out := decimal.Zero
		for _, tx := range sorted[i+1:] {
			if tx.OccurredAt.Sub(in.OccurredAt) > window {
				break
			}
			if tx.Direction == domain.DirectionOutbound {
				out = out.Add(tx.Amount.Abs())
			}
		}
		if out.GreaterThanOrEqual(in.Amount.Mul(ratio)) {
			return true
		}
	}
	return false
}
