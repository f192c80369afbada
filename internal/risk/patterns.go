package risk

import (
	"context"
	"strings"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/jurisdiction"
)

// ContextRetriever looks up regulatory text relevant to a query.
// An empty string means nothing matched.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string) (string, error)
}

// NoContext is a retriever that never finds anything
type NoContext struct{}

// RetrieveContext always returns an empty string
func (NoContext) RetrieveContext(context.Context, string) (string, error) {
	return "", nil
}

// ContextQuery builds the retrieval query for a profile
func ContextQuery(p *domain.CustomerRiskProfile) string {
	var b strings.Builder
	b.WriteString("KYC AML risk assessment ")
	if p.IsPEP {
		b.WriteString("politically exposed person PEP ")
	}
	if p.Nationality != "" {
		b.WriteString(p.Nationality)
		b.WriteString(" ")
	}
	if p.Occupation != "" {
		b.WriteString(p.Occupation)
		b.WriteString(" ")
	}
	if p.Transactions.HasCryptoActivity {
		b.WriteString("cryptocurrency virtual assets ")
	}
	if p.Transactions.HasCashActivity {
		b.WriteString("cash intensive ")
	}
	return strings.TrimSpace(b.String())
}

// DescribeTransactionPatterns renders the transaction flags as sentences
func DescribeTransactionPatterns(m domain.TransactionMetrics) string {
	var parts []string
	if m.StructuringDetected {
		parts = append(parts, "Structuring detected.")
	}
	if m.RapidMovementDetected {
		parts = append(parts, "Rapid movement of funds.")
	}
	if m.HasCryptoActivity {
		parts = append(parts, "Crypto activity detected.")
	}
	if m.HasCashActivity {
		parts = append(parts, "High cash intensity.")
	}
	if len(parts) == 0 {
		return "No significant unusual patterns."
	}
	return strings.Join(parts, " ")
}

// UnusualPatterns collects document findings, jurisdiction reasons and
// transaction pattern sentences, in that order
func UnusualPatterns(p *domain.CustomerRiskProfile) []string {
	patterns := make([]string, 0, len(p.DocumentFindings)+3)
	patterns = append(patterns, p.DocumentFindings...)
	if reason, ok := jurisdiction.Reason(p.Nationality); ok {
		patterns = append(patterns, "Nationality Risk: "+reason)
	}
	if reason, ok := jurisdiction.Reason(p.ResidenceCountry); ok {
		patterns = append(patterns, "Residence Risk: "+reason)
	}
	return append(patterns, DescribeTransactionPatterns(p.Transactions))
}

// WithRegulatoryContext prefixes the customer patterns with retrieved context
func WithRegulatoryContext(regulatoryContext, patterns string) string {
	if regulatoryContext == "" {
		return patterns
	}
	return "REGULATORY CONTEXT:\n" + regulatoryContext + "\n\nCUSTOMER PATTERNS:\n" + patterns
}
