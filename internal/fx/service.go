package fx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/cache"
	"tally/internal/core"
)

// Service wraps a Provider with an LRU of monthly snapshots so repeated
// dashboard builds for the same months do not refetch. Snapshots are
// immutable once cached; freshness comes from the TTL, not mutation.
type Service struct {
	provider Provider
	cache    *cache.LRU[*core.RateCache]
}

// NewService creates a rate service keeping up to cacheSize monthly
// snapshots, each valid for ttl.
func NewService(provider Provider, cacheSize int, ttl time.Duration) *Service {
	if cacheSize <= 0 {
		cacheSize = 24
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		provider: provider,
		cache:    cache.NewLRU[*core.RateCache](cacheSize, ttl),
	}
}

// Cache exposes the snapshot cache for janitor registration.
func (s *Service) Cache() cache.Cleaner {
	return s.cache
}

// RateCacheFor returns the rate cache for one month, consulting the LRU
// before the provider.
func (s *Service) RateCacheFor(ctx context.Context, month core.MonthKey) (*core.RateCache, error) {
	if cached, ok := s.cache.Get(string(month)); ok {
		return cached, nil
	}

	snap, err := s.provider.MonthlyRates(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("rates for %s: %w", month, err)
	}

	rc := &core.RateCache{Month: month, AsOf: snap.AsOf, Rates: snap.Rates}
	s.cache.Set(string(month), rc)
	slog.DebugContext(ctx, "Cached rate snapshot",
		"month", month,
		"currencies", len(snap.Rates),
		"as_of", snap.AsOf)
	return rc, nil
}

// BuildRateSet batch-fetches one snapshot per distinct month, concurrently,
// and assembles them into a RateSet with current as the fallback month. A
// single failed fetch fails the whole build; a dashboard with partially
// loaded rate history is not meaningful.
func (s *Service) BuildRateSet(ctx context.Context, current core.MonthKey, months []core.MonthKey) (*core.RateSet, error) {
	caches := make([]*core.RateCache, len(months))

	g, gctx := errgroup.WithContext(ctx)
	for i, month := range months {
		g.Go(func() error {
			rc, err := s.RateCacheFor(gctx, month)
			if err != nil {
				return err
			}
			caches[i] = rc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build rate set: %w", err)
	}

	return core.NewRateSet(current, caches...), nil
}
