package domain

import "github.com/google/uuid"

// ProductType enumerates the financial products a customer can hold
type ProductType string

const (
	ProductSavingsAccount    ProductType = "SAVINGS_ACCOUNT"
	ProductSalaryAccount     ProductType = "SALARY_ACCOUNT"
	ProductInvestmentAccount ProductType = "INVESTMENT_ACCOUNT"
	ProductBrokerage         ProductType = "BROKERAGE"
	ProductCryptoTrading     ProductType = "CRYPTO_TRADING"
	ProductInternationalWire ProductType = "INTERNATIONAL_WIRE"
	ProductPrepaidCard       ProductType = "PREPAID_CARD"
	ProductLoan              ProductType = "LOAN"
	ProductCreditCard        ProductType = "CREDIT_CARD"
)

// ProductRiskTier is the configured inherent risk of a product
type ProductRiskTier string

const (
	ProductRiskLow      ProductRiskTier = "LOW"
	ProductRiskMedium   ProductRiskTier = "MEDIUM"
	ProductRiskHigh     ProductRiskTier = "HIGH"
	ProductRiskCritical ProductRiskTier = "CRITICAL"
)

// ParseProductRiskTier validates a stored product risk tier
func ParseProductRiskTier(s string) (ProductRiskTier, error) {
	switch t := ProductRiskTier(s); t {
	case ProductRiskLow, ProductRiskMedium, ProductRiskHigh, ProductRiskCritical:
		return t, nil
	}
	return "", &InvariantError{Field: "product_risk_level", Value: s}
}

// Product is a product the customer is enrolled in
type Product struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	Type     ProductType     `json:"product_type" db:"product_type"`
	Name     string          `json:"name" db:"name"`
	RiskTier ProductRiskTier `json:"risk_level" db:"risk_level"`
	// RiskScore overrides the tier score when configured
	RiskScore *int `json:"risk_score,omitempty" db:"risk_score"`
}
