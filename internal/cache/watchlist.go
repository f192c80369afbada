package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/banking/kyc-service/internal/pkg/logger"
	"github.com/banking/kyc-service/internal/screening"
)

const (
	sanctionsKey = keyPrefix + "watchlist:sanctions"
	pepKey       = keyPrefix + "watchlist:peps"
)

// WatchlistSource serves sanctions and PEP lists shared through Redis so
// every replica screens against the same snapshot. When a list is missing it
// is loaded from seed and written back.
type WatchlistSource struct {
	client redis.UniversalClient
	seed   screening.WatchlistSource
	log    *logger.Logger
}

// NewWatchlistSource creates a Redis-backed watchlist source. seed may be nil.
func NewWatchlistSource(client redis.UniversalClient, seed screening.WatchlistSource, log *logger.Logger) *WatchlistSource {
	return &WatchlistSource{client: client, seed: seed, log: log.Named("watchlist")}
}

// SanctionsEntries returns the shared sanctions list
func (w *WatchlistSource) SanctionsEntries(ctx context.Context) ([]screening.SanctionsEntry, error) {
	var entries []screening.SanctionsEntry
	found, err := w.load(ctx, sanctionsKey, &entries)
	if err != nil || found || w.seed == nil {
		return entries, err
	}

	if entries, err = w.seed.SanctionsEntries(ctx); err != nil {
		return nil, err
	}
	w.store(ctx, sanctionsKey, entries)
	return entries, nil
}

// PEPEntries returns the shared PEP list
func (w *WatchlistSource) PEPEntries(ctx context.Context) ([]screening.PEPEntry, error) {
	var entries []screening.PEPEntry
	found, err := w.load(ctx, pepKey, &entries)
	if err != nil || found || w.seed == nil {
		return entries, err
	}

	if entries, err = w.seed.PEPEntries(ctx); err != nil {
		return nil, err
	}
	w.store(ctx, pepKey, entries)
	return entries, nil
}

// Publish replaces both shared lists
func (w *WatchlistSource) Publish(ctx context.Context, sanctions []screening.SanctionsEntry, peps []screening.PEPEntry) error {
	s, err := json.Marshal(sanctions)
	if err != nil {
		return fmt.Errorf("encode sanctions list: %w", err)
	}
	p, err := json.Marshal(peps)
	if err != nil {
		return fmt.Errorf("encode pep list: %w", err)
	}

	_, err = w.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sanctionsKey, s, 0)
		pipe.Set(ctx, pepKey, p, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish watchlists: %w", err)
	}
	return nil
}

func (w *WatchlistSource) load(ctx context.Context, key string, out any) (bool, error) {
	data, err := w.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (w *WatchlistSource) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = w.client.Set(ctx, key, data, 0).Err()
	}
	if err != nil {
		w.log.Warn("Failed to share watchlist", zap.String("key", key), zap.Error(err))
	}
}
