package screening

import (
	"strings"
	"sync"

	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// SanctionsEntry is one listed party from a sanctions list such as the OFAC SDN list
type SanctionsEntry struct {
	EntityID       string   `json:"entity_id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`    // Individual, Entity, Vessel, Aircraft
	Program        string   `json:"program"` // SDGT, SDNT, etc.
	Country        string   `json:"country,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
	Remarks        string   `json:"remarks,omitempty"`
	NormalizedName string   `json:"normalized_name,omitempty"`
}

// SanctionsChecker screens names against an in-memory sanctions index
type SanctionsChecker struct {
	log       *logger.Logger
	threshold float64

	exactIndex map[string]SanctionsEntry
	entries    []indexedName[SanctionsEntry]
	indexMu    sync.RWMutex
}

// indexedName is a normalised name or alias pointing at its entry
type indexedName[T any] struct {
	name  string
	entry T
}

// NewSanctionsChecker creates a new sanctions checker with an empty index
func NewSanctionsChecker(log *logger.Logger, threshold float64) *SanctionsChecker {
	return &SanctionsChecker{
		log:        log.Named("sanctions_checker"),
		threshold:  threshold,
		exactIndex: make(map[string]SanctionsEntry),
	}
}

// Check screens a name. country narrows fuzzy matches when both sides carry one.
func (c *SanctionsChecker) Check(name, country string) domain.SanctionsMatch {
	normalized := normalizeName(name)
	if normalized == "" {
		return domain.SanctionsMatch{}
	}

	c.indexMu.RLock()
	defer c.indexMu.RUnlock()

	if entry, ok := c.exactIndex[normalized]; ok {
		return domain.SanctionsMatch{
			Matched:    true,
			MatchScore: 1.0,
			MatchType:  domain.MatchTypeExact,
			ListedName: entry.Name,
			Program:    entry.Program,
		}
	}

	best, score := bestFuzzy(c.entries, normalized, c.threshold, func(e SanctionsEntry) string { return e.Country }, country)
	if score == 0 {
		return domain.SanctionsMatch{}
	}

	return domain.SanctionsMatch{
		Matched:    true,
		MatchScore: score,
		MatchType:  domain.MatchTypeFuzzy,
		ListedName: best.Name,
		Program:    best.Program,
	}
}

// Load replaces the index with entries
func (c *SanctionsChecker) Load(entries []SanctionsEntry) {
	exact := make(map[string]SanctionsEntry, len(entries))
	names := make([]indexedName[SanctionsEntry], 0, len(entries))

	for _, entry := range entries {
		key := entry.NormalizedName
		if key == "" {
			key = normalizeName(entry.Name)
		}
		if key == "" {
			continue
		}
		exact[key] = entry
		names = append(names, indexedName[SanctionsEntry]{name: key, entry: entry})
		for _, alias := range entry.Aliases {
			if a := normalizeName(alias); a != "" {
				exact[a] = entry
				names = append(names, indexedName[SanctionsEntry]{name: a, entry: entry})
			}
		}
	}

	c.indexMu.Lock()
	c.exactIndex = exact
	c.entries = names
	c.indexMu.Unlock()

	c.log.Info("sanctions index loaded", logger.IntField("entries", len(entries)))
}

// Size returns the number of indexed names and aliases
func (c *SanctionsChecker) Size() int {
	c.indexMu.RLock()
	defer c.indexMu.RUnlock()
	return len(c.entries)
}

// bestFuzzy returns the highest scoring entry at or above threshold.
// A zero score means no match.
func bestFuzzy[T any](names []indexedName[T], normalized string, threshold float64, countryOf func(T) string, country string) (T, float64) {
	var (
		best      T
		bestScore float64
	)
	for _, n := range names {
		if ec := countryOf(n.entry); ec != "" && country != "" && !strings.EqualFold(ec, country) {
			continue
		}
		score := jaroWinkler(normalized, n.name)
		if score >= threshold && score > bestScore {
			best, bestScore = n.entry, score
		}
	}
	return best, bestScore
}
