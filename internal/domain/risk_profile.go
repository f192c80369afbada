package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PEPLevel classifies a politically exposed person
type PEPLevel string

const (
	PEPLevelForeignSeniorOfficial  PEPLevel = "FOREIGN_SENIOR_OFFICIAL"
	PEPLevelDomesticSeniorOfficial PEPLevel = "DOMESTIC_SENIOR_OFFICIAL"
	PEPLevelInternationalOrg       PEPLevel = "INTERNATIONAL_ORGANIZATION"
	PEPLevelFamilyMember           PEPLevel = "FAMILY_MEMBER"
	PEPLevelCloseAssociate         PEPLevel = "CLOSE_ASSOCIATE"
)

// ParsePEPLevel validates a stored PEP level. Empty means not a PEP.
func ParsePEPLevel(s string) (PEPLevel, error) {
	switch l := PEPLevel(s); l {
	case "", PEPLevelForeignSeniorOfficial, PEPLevelDomesticSeniorOfficial,
		PEPLevelInternationalOrg, PEPLevelFamilyMember, PEPLevelCloseAssociate:
		return l, nil
	}
	return "", &InvariantError{Field: "pep_level", Value: s}
}

// EntityType distinguishes natural persons from legal entities
type EntityType string

const (
	EntityIndividual  EntityType = "INDIVIDUAL"
	EntityCorporation EntityType = "CORPORATION"
)

// ParseEntityType validates a stored entity type. Empty defaults to INDIVIDUAL.
func ParseEntityType(s string) (EntityType, error) {
	switch e := EntityType(s); e {
	case "":
		return EntityIndividual, nil
	case EntityIndividual, EntityCorporation:
		return e, nil
	}
	return "", &InvariantError{Field: "entity_type", Value: s}
}

// Customer is the stored customer record
type Customer struct {
	ID                    string          `json:"id" db:"id"`
	FullName              string          `json:"full_name" db:"full_name"`
	Nationality           string          `json:"nationality" db:"nationality"`
	ResidenceCountry      string          `json:"residence_country" db:"residence_country"`
	Occupation            string          `json:"occupation,omitempty" db:"occupation"`
	Industry              string          `json:"industry,omitempty" db:"industry"`
	IncomeRange           string          `json:"income_range,omitempty" db:"income_range"`
	SourceOfWealth        string          `json:"source_of_wealth,omitempty" db:"source_of_wealth"`
	EntityType            EntityType      `json:"entity_type" db:"entity_type"`
	NetWorth              decimal.Decimal `json:"net_worth" db:"net_worth"`
	AccountOpenedAt       *time.Time      `json:"account_opened_at,omitempty" db:"account_opened_at"`
	ExpectedMonthlyVolume decimal.Decimal `json:"expected_monthly_volume" db:"expected_monthly_volume"`

	// Latest stored screening results
	IsPEP            bool     `json:"is_pep" db:"is_pep"`
	PEPLevel         PEPLevel `json:"pep_level,omitempty" db:"pep_level"`
	SanctionsMatch   bool     `json:"sanctions_match" db:"sanctions_match"`
	AdverseMediaHits int      `json:"adverse_media_hits" db:"adverse_media_hits"`
}

// AccountAgeMonths returns whole months since the account was opened
func (c *Customer) AccountAgeMonths(now time.Time) int {
	if c.AccountOpenedAt == nil || now.Before(*c.AccountOpenedAt) {
		return 0
	}
	opened := *c.AccountOpenedAt
	months := (now.Year()-opened.Year())*12 + int(now.Month()-opened.Month())
	if now.Day() < opened.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// TransactionMetrics summarises a customer's trailing transaction activity
type TransactionMetrics struct {
	TotalVolume           decimal.Decimal `json:"total_volume"`
	TransactionCount      int             `json:"transaction_count"`
	CryptoCount           int             `json:"crypto_count"`
	CashCount             int             `json:"cash_count"`
	HasCryptoActivity     bool            `json:"has_crypto_activity"`
	HasCashActivity       bool            `json:"has_cash_activity"`
	StructuringDetected   bool            `json:"structuring_detected"`
	RapidMovementDetected bool            `json:"rapid_movement_detected"`
}

// CustomerRiskProfile is assembled fresh for every assessment and never persisted
type CustomerRiskProfile struct {
	// Pseudonymised customer identifier
	CustomerRef string `json:"customer_ref"`

	Nationality           string          `json:"nationality"`
	ResidenceCountry      string          `json:"residence_country"`
	Occupation            string          `json:"occupation"`
	Industry              string          `json:"industry"`
	IncomeRange           string          `json:"income_range"`
	SourceOfWealth        string          `json:"source_of_wealth"`
	EntityType            EntityType      `json:"entity_type"`
	NetWorth              decimal.Decimal `json:"net_worth"`
	AccountAgeMonths      int             `json:"account_age_months"`
	ExpectedMonthlyVolume decimal.Decimal `json:"expected_monthly_volume"`

	// Screening results
	IsPEP            bool     `json:"is_pep"`
	PEPLevel         PEPLevel `json:"pep_level,omitempty"`
	SanctionsMatch   bool     `json:"sanctions_match"`
	AdverseMediaHits int      `json:"adverse_media_hits"`

	Products     []Product          `json:"products"`
	Transactions TransactionMetrics `json:"transactions"`

	// Findings carried from the verified document
	DocumentFindings []string `json:"document_findings,omitempty"`
}

// IsCorporate returns true for legal entities
func (p *CustomerRiskProfile) IsCorporate() bool {
	return p.EntityType == EntityCorporation
}
