package domain

// MatchType represents the type of watchlist match
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT"
	MatchTypeFuzzy MatchType = "FUZZY"
	MatchTypeAlias MatchType = "ALIAS"
)

// SanctionsMatch represents a match against a sanctions list
type SanctionsMatch struct {
	Matched    bool      `json:"matched"`
	MatchScore float64   `json:"match_score,omitempty"`
	MatchType  MatchType `json:"match_type,omitempty"`
	ListedName string    `json:"listed_name,omitempty"`
	Program    string    `json:"program,omitempty"`
}

// PEPMatch represents a match against the PEP database
type PEPMatch struct {
	Matched    bool      `json:"matched"`
	MatchScore float64   `json:"match_score,omitempty"`
	MatchType  MatchType `json:"match_type,omitempty"`
	PEPName    string    `json:"pep_name,omitempty"`
	Position   string    `json:"position,omitempty"`
	Country    string    `json:"country,omitempty"`
	Level      PEPLevel  `json:"level,omitempty"`
}

// ScreeningOutcome is the combined result of screening one person
type ScreeningOutcome struct {
	Sanctions SanctionsMatch `json:"sanctions"`
	PEP       PEPMatch       `json:"pep"`
}
