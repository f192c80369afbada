package screening

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

func testScreeningConfig() *config.ScreeningConfig {
	return &config.ScreeningConfig{
		FuzzyMatchThreshold: 0.9,
		HomeCountry:         "GB",
		MaxScreeningLatency: time.Second,
	}
}

func testSource() StaticSource {
	return StaticSource{
		Sanctions: []SanctionsEntry{
			{EntityID: "1", Name: "Ivan Petrovich Sidorov", Program: "UKRAINE-EO13662", Country: "RU", Aliases: []string{"Vanya Sidorov"}},
			{EntityID: "2", Name: "Kim Chol", Program: "DPRK3", Country: "KP"},
		},
		PEPs: []PEPEntry{
			{ID: "p1", Name: "Amina Bello", Position: "minister", Country: "NG", Category: "foreign", IsActive: true},
			{ID: "p2", Name: "John Smith-Jones", Position: "senior judge", Country: "GB", IsActive: true},
			{ID: "p3", Name: "Pierre Laurent", Position: "ambassador", Country: "FR", IsActive: true},
		},
	}
}

func newLoadedScreener(t *testing.T) *Screener {
	t.Helper()
	s := NewScreener(testSource(), testScreeningConfig(), logger.NewNop())
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "john smith jones", normalizeName("  Mr. John   Smith-Jones "))
	assert.Equal(t, "jose alvarez", normalizeName("dr jose alvarez"))
	assert.Equal(t, "o brien", normalizeName("O' Brien"))
	assert.Equal(t, "", normalizeName("  ..  "))
}

func TestJaroWinkler(t *testing.T) {
	assert.Equal(t, 1.0, jaroWinkler("martha", "martha"))
	assert.Equal(t, 0.0, jaroWinkler("", "martha"))
	assert.InDelta(t, 0.961, jaroWinkler("martha", "marhta"), 0.001)
	assert.InDelta(t, 0.840, jaroWinkler("dwayne", "duane"), 0.001)
	assert.Less(t, jaroWinkler("kim chol", "anna schmidt"), 0.7)
}

func TestScreener_ExactSanctionsMatch(t *testing.T) {
	s := newLoadedScreener(t)

	got, err := s.Screen(context.Background(), "IVAN PETROVICH SIDOROV", "")
	require.NoError(t, err)
	assert.True(t, got.Sanctions.Matched)
	assert.Equal(t, domain.MatchTypeExact, got.Sanctions.MatchType)
	assert.Equal(t, "UKRAINE-EO13662", got.Sanctions.Program)
	assert.False(t, got.PEP.Matched)
}

func TestScreener_AliasMatch(t *testing.T) {
	s := newLoadedScreener(t)

	got, err := s.Screen(context.Background(), "vanya sidorov", "RU")
	require.NoError(t, err)
	assert.True(t, got.Sanctions.Matched)
	assert.Equal(t, "Ivan Petrovich Sidorov", got.Sanctions.ListedName)
}

func TestScreener_FuzzyMatchRespectsCountry(t *testing.T) {
	s := newLoadedScreener(t)

	got, err := s.Screen(context.Background(), "Kim Choll", "KP")
	require.NoError(t, err)
	assert.True(t, got.Sanctions.Matched)
	assert.Equal(t, domain.MatchTypeFuzzy, got.Sanctions.MatchType)
	assert.GreaterOrEqual(t, got.Sanctions.MatchScore, 0.9)

	got, err = s.Screen(context.Background(), "Kim Choll", "FR")
	require.NoError(t, err)
	assert.False(t, got.Sanctions.Matched)
}

func TestScreener_PEPLevels(t *testing.T) {
	s := newLoadedScreener(t)

	tests := []struct {
		name string
		want domain.PEPLevel
	}{
		{"Amina Bello", domain.PEPLevelForeignSeniorOfficial},
		{"John Smith Jones", domain.PEPLevelDomesticSeniorOfficial},
		{"Pierre Laurent", domain.PEPLevelForeignSeniorOfficial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Screen(context.Background(), tt.name, "")
			require.NoError(t, err)
			assert.True(t, got.PEP.Matched)
			assert.Equal(t, tt.want, got.PEP.Level)
		})
	}
}

func TestScreener_NoMatch(t *testing.T) {
	s := newLoadedScreener(t)

	got, err := s.Screen(context.Background(), "Anna Schmidt", "DE")
	require.NoError(t, err)
	assert.False(t, got.Sanctions.Matched)
	assert.False(t, got.PEP.Matched)
	assert.Equal(t, int64(1), s.GetScreeningCount())
	assert.GreaterOrEqual(t, s.GetAverageLatency(), 0.0)
}

func TestScreener_CancelledContext(t *testing.T) {
	s := newLoadedScreener(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Screen(ctx, "Anna Schmidt", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScreener_RefreshReplacesIndex(t *testing.T) {
	s := newLoadedScreener(t)
	sanctions, peps := s.IndexSizes()
	assert.Equal(t, 3, sanctions)
	assert.Equal(t, 3, peps)

	s.source = StaticSource{}
	require.NoError(t, s.Refresh(context.Background()))
	sanctions, peps = s.IndexSizes()
	assert.Zero(t, sanctions)
	assert.Zero(t, peps)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	sanctionsPath := filepath.Join(dir, "sanctions.json")
	require.NoError(t, os.WriteFile(sanctionsPath, []byte(`[{"entity_id":"9","name":"Listed Person","program":"SDGT"}]`), 0o600))

	src := FileSource{SanctionsPath: sanctionsPath, PEPPath: filepath.Join(dir, "missing.json")}

	sanctions, err := src.SanctionsEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, sanctions, 1)
	assert.Equal(t, "SDGT", sanctions[0].Program)

	peps, err := src.PEPEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, peps)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = FileSource{PEPPath: bad}.PEPEntries(context.Background())
	assert.Error(t, err)
}
