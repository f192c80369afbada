package screening

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banking/kyc-service/internal/config"
	"github.com/banking/kyc-service/internal/domain"
	"github.com/banking/kyc-service/internal/pkg/logger"
)

// WatchlistSource supplies the sanctions and PEP lists
type WatchlistSource interface {
	SanctionsEntries(ctx context.Context) ([]SanctionsEntry, error)
	PEPEntries(ctx context.Context) ([]PEPEntry, error)
}

// Screener runs sanctions and PEP checks for a person in parallel
type Screener struct {
	sanctions *SanctionsChecker
	pep       *PEPChecker
	source    WatchlistSource

	cfg *config.ScreeningConfig
	log *logger.Logger

	// Metrics
	screeningCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewScreener creates a new screener with empty indexes; call Refresh to load them
func NewScreener(source WatchlistSource, cfg *config.ScreeningConfig, log *logger.Logger) *Screener {
	return &Screener{
		sanctions: NewSanctionsChecker(log, cfg.FuzzyMatchThreshold),
		pep:       NewPEPChecker(log, cfg.FuzzyMatchThreshold, cfg.HomeCountry),
		source:    source,
		cfg:       cfg,
		log:       log.Named("screener"),
	}
}

// Screen checks a person against both watchlists.
// Target: <200ms p99 latency
func (s *Screener) Screen(ctx context.Context, fullName, country string) (*domain.ScreeningOutcome, error) {
	start := time.Now()
	outcome := &domain.ScreeningOutcome{}

	screenCtx := ctx
	if s.cfg.MaxScreeningLatency > 0 {
		var cancel context.CancelFunc
		screenCtx, cancel = context.WithTimeout(ctx, s.cfg.MaxScreeningLatency)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(screenCtx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		outcome.Sanctions = s.sanctions.Check(fullName, country)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		outcome.PEP = s.pep.Check(fullName, country)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("screen name: %w", err)
	}

	durationMs := time.Since(start).Milliseconds()
	s.recordLatency(durationMs)

	if budget := s.cfg.MaxScreeningLatency.Milliseconds(); budget > 0 && durationMs > budget {
		s.log.LatencyWarning("watchlist_screening", durationMs, budget)
	}

	if outcome.Sanctions.Matched || outcome.PEP.Matched {
		s.log.Info("watchlist match",
			logger.BoolField("sanctions", outcome.Sanctions.Matched),
			logger.BoolField("pep", outcome.PEP.Matched),
			logger.Float64Field("sanctions_score", outcome.Sanctions.MatchScore),
			logger.Float64Field("pep_score", outcome.PEP.MatchScore),
		)
	}

	return outcome, nil
}

// Refresh reloads both indexes from the source
func (s *Screener) Refresh(ctx context.Context) error {
	var (
		sanctions []SanctionsEntry
		peps      []PEPEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := s.source.SanctionsEntries(gctx)
		if err != nil {
			return fmt.Errorf("load sanctions list: %w", err)
		}
		sanctions = entries
		return nil
	})
	g.Go(func() error {
		entries, err := s.source.PEPEntries(gctx)
		if err != nil {
			return fmt.Errorf("load pep list: %w", err)
		}
		peps = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.sanctions.Load(sanctions)
	s.pep.Load(peps)
	return nil
}

// Run refreshes the indexes every WatchlistRefresh until ctx ends
func (s *Screener) Run(ctx context.Context) {
	if s.cfg.WatchlistRefresh <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.WatchlistRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("watchlist refresh failed", logger.ErrorField(err))
			}
		}
	}
}

// IndexSizes returns the number of indexed sanctions and PEP names
func (s *Screener) IndexSizes() (sanctions, peps int) {
	return s.sanctions.Size(), s.pep.Size()
}

// recordLatency records screening latency for metrics
func (s *Screener) recordLatency(durationMs int64) {
	s.latencyMu.Lock()
	defer s.latencyMu.Unlock()

	s.screeningCount++
	// Exponential moving average
	s.avgLatencyMs = s.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// GetAverageLatency returns the average screening latency
func (s *Screener) GetAverageLatency() float64 {
	s.latencyMu.RLock()
	defer s.latencyMu.RUnlock()
	return s.avgLatencyMs
}

// GetScreeningCount returns total screenings performed
func (s *Screener) GetScreeningCount() int64 {
	s.latencyMu.RLock()
	defer s.latencyMu.RUnlock()
	return s.screeningCount
}
