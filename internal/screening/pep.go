package screening

import (
	"strings"
	"sync"
	"time"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// PEPEntry represents a Politically Exposed Person entry
type PEPEntry struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name,omitempty"`
	Position       string     `json:"position"`
	Country        string     `json:"country"`
	Category       string     `json:"category"` // domestic, foreign, international_org, family, associate
	StartDate      time.Time  `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	IsActive       bool       `json:"is_active"`
	Aliases        []string   `json:"aliases,omitempty"`
}

// PEPChecker performs Politically Exposed Persons screening
type PEPChecker struct {
	log         *logger.Logger
	threshold   float64
	homeCountry string

	exactIndex map[string]PEPEntry
	entries    []indexedName[PEPEntry]
	indexMu    sync.RWMutex
}

// NewPEPChecker creates a new PEP checker. homeCountry decides whether an
// uncategorised entry counts as domestic or foreign.
func NewPEPChecker(log *logger.Logger, threshold float64, homeCountry string) *PEPChecker {
	return &PEPChecker{
		log:         log.Named("pep_checker"),
		threshold:   threshold,
		homeCountry: strings.ToUpper(homeCountry),
		exactIndex:  make(map[string]PEPEntry),
	}
}

// Check performs PEP screening against a name
func (c *PEPChecker) Check(name, country string) domain.PEPMatch {
	normalized := normalizeName(name)
	if normalized == "" {
		return domain.PEPMatch{}
	}

	c.indexMu.RLock()
	defer c.indexMu.RUnlock()

	if entry, ok := c.exactIndex[normalized]; ok {
		return c.match(entry, 1.0, domain.MatchTypeExact)
	}

	best, score := bestFuzzy(c.entries, normalized, c.threshold, func(e PEPEntry) string { return e.Country }, country)
	if score == 0 {
		return domain.PEPMatch{}
	}
	return c.match(best, score, domain.MatchTypeFuzzy)
}

func (c *PEPChecker) match(entry PEPEntry, score float64, mt domain.MatchType) domain.PEPMatch {
	return domain.PEPMatch{
		Matched:    true,
		MatchScore: score,
		MatchType:  mt,
		PEPName:    entry.Name,
		Position:   entry.Position,
		Country:    entry.Country,
		Level:      c.determineLevel(entry),
	}
}

// determineLevel maps an entry's category onto the PEP level used for scoring
func (c *PEPChecker) determineLevel(entry PEPEntry) domain.PEPLevel {
	switch strings.ToLower(entry.Category) {
	case "foreign":
		return domain.PEPLevelForeignSeniorOfficial
	case "domestic":
		return domain.PEPLevelDomesticSeniorOfficial
	case "international_org":
		return domain.PEPLevelInternationalOrg
	case "family":
		return domain.PEPLevelFamilyMember
	case "associate":
		return domain.PEPLevelCloseAssociate
	}

	if c.homeCountry != "" && entry.Country != "" && !strings.EqualFold(entry.Country, c.homeCountry) {
		return domain.PEPLevelForeignSeniorOfficial
	}
	return domain.PEPLevelDomesticSeniorOfficial
}

// Load replaces the index with entries
func (c *PEPChecker) Load(entries []PEPEntry) {
	exact := make(map[string]PEPEntry, len(entries))
	names := make([]indexedName[PEPEntry], 0, len(entries))

	for _, entry := range entries {
		key := entry.NormalizedName
		if key == "" {
			key = normalizeName(entry.Name)
		}
		if key == "" {
			continue
		}
		exact[key] = entry
		names = append(names, indexedName[PEPEntry]{name: key, entry: entry})
		for _, alias := range entry.Aliases {
			if a := normalizeName(alias); a != "" {
				exact[a] = entry
				names = append(names, indexedName[PEPEntry]{name: a, entry: entry})
			}
		}
	}

	c.indexMu.Lock()
	c.exactIndex = exact
	c.entries = names
	c.indexMu.Unlock()

	c.log.Info("pep index loaded", logger.IntField("entries", len(entries)))
}

// Size returns the number of indexed names and aliases
func (c *PEPChecker) Size() int {
	c.indexMu.RLock()
	defer c.indexMu.RUnlock()
	return len(c.entries)
}
