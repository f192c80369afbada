// Package jurisdiction classifies ISO 3166 alpha-2 country codes by FATF status.
package jurisdiction

import "strings"

// NationalityRisk tiers
type NationalityRisk string

const (
	NationalityLow      NationalityRisk = "LOW"
	NationalityHigh     NationalityRisk = "HIGH"
	NationalityCritical NationalityRisk = "CRITICAL"
)

// ResidenceRisk tiers
type ResidenceRisk string

const (
	ResidenceLow    ResidenceRisk = "LOW"
	ResidenceMedium ResidenceRisk = "MEDIUM"
	ResidenceHigh   ResidenceRisk = "HIGH"
)

// FatfStatus of a jurisdiction
type FatfStatus string

const (
	FatfNone        FatfStatus = "NONE"
	FatfGreylisted  FatfStatus = "GREYLISTED"
	FatfBlacklisted FatfStatus = "BLACKLISTED"
)

const (
	blacklistReason = "Country is on the FATF Blacklist (High-Risk Jurisdictions)"
	greylistReason  = "Country is on the FATF Greylist (Increased Monitoring)"
)

// High-risk jurisdictions subject to a call for action
var blacklist = map[string]struct{}{
	"KP": {}, "IR": {}, "MM": {},
}

// Jurisdictions under increased monitoring
var greylist = map[string]struct{}{
	"BG": {}, "BF": {}, "CM": {}, "CD": {}, "HR": {}, "HT": {}, "JM": {},
	"JO": {}, "ML": {}, "MZ": {}, "NG": {}, "PH": {}, "SN": {}, "ZA": {},
	"SS": {}, "SY": {}, "TZ": {}, "TR": {}, "UG": {}, "VN": {}, "YE": {},
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isBlacklisted(code string) bool {
	_, ok := blacklist[normalize(code)]
	return ok
}

func isGreylisted(code string) bool {
	_, ok := greylist[normalize(code)]
	return ok
}

// Nationality returns the nationality risk of a country code
func Nationality(code string) NationalityRisk {
	switch {
	case isBlacklisted(code):
		return NationalityCritical
	case isGreylisted(code):
		return NationalityHigh
	}
	return NationalityLow
}

// Residence returns the residence risk of a country code
func Residence(code string) ResidenceRisk {
	switch {
	case isBlacklisted(code):
		return ResidenceHigh
	case isGreylisted(code):
		return ResidenceMedium
	}
	return ResidenceLow
}

// Status returns the FATF status of a country code
func Status(code string) FatfStatus {
	switch {
	case isBlacklisted(code):
		return FatfBlacklisted
	case isGreylisted(code):
		return FatfGreylisted
	}
	return FatfNone
}

// Reason explains why a country is risky; ok is false for clean codes
func Reason(code string) (reason string, ok bool) {
	switch {
	case isBlacklisted(code):
		return blacklistReason, true
	case isGreylisted(code):
		return greylistReason, true
	}
	return "", false
}
