// Package fetch acquires live readings for a list of cities. Two strategies
// implement the same contract: sequential (one request after another) and
// concurrent (all requests in flight at once over the shared connection pool).
// Both isolate per-city failures; one failed city never aborts the others.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/cache"
	"github.com/cherrryana/temperature-monitor/internal/client"
	"github.com/cherrryana/temperature-monitor/internal/models"
	"github.com/cherrryana/temperature-monitor/internal/observability"
)

// Result pairs a city with either its live reading or the failure that left it
// unavailable. Err set means "reading unavailable", never a default temperature.
type Result struct {
	City    string
	Reading models.LiveReading
	Err     error
}

// Fetcher acquires live readings for all given cities. Results come back in
// input order, slotted by input position rather than completion order.
type Fetcher interface {
	Name() string
	FetchAll(ctx context.Context, cities []string) []Result
}

// New returns the fetcher for a config name ("sequential" or "concurrent").
func New(name string, source *Source) (Fetcher, error) {
	switch name {
	case "sequential":
		return &Sequential{source: source}, nil
	case "concurrent", "":
		return &Concurrent{source: source}, nil
	}
	return nil, fmt.Errorf("unknown fetch strategy %q", name)
}

// Source fetches one city's reading, consulting the live-reading cache before
// the weather API. Shared by both strategies so they differ only in scheduling.
type Source struct {
	client client.WeatherClient
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSource creates a Source. cache may be nil to disable caching.
func NewSource(wc client.WeatherClient, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Source {
	return &Source{client: wc, cache: c, ttl: ttl, logger: logger}
}

// Fetch returns the live reading for one city.
func (s *Source) Fetch(ctx context.Context, city string) (models.LiveReading, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, city)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("cache get failed", zap.String("city", city), zap.Error(err))
			}
		} else if ok {
			observability.CacheHitsTotal.Inc()
			return cached, nil
		}
	}

	reading, err := s.client.CurrentReading(ctx, city)
	if err != nil {
		return models.LiveReading{}, fmt.Errorf("fetch weather for %s: %w", city, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, city, reading, s.ttl); err != nil && s.logger != nil {
			s.logger.Warn("cache set failed", zap.String("city", city), zap.Error(err))
		}
	}
	return reading, nil
}

// Sequential issues one request after another; aggregate latency is roughly
// N times the per-request latency. The baseline the concurrent strategy is
// measured against.
type Sequential struct {
	source *Source
}

func (*Sequential) Name() string { return "sequential" }

func (f *Sequential) FetchAll(ctx context.Context, cities []string) []Result {
	start := time.Now()
	results := make([]Result, len(cities))
	for i, city := range cities {
		if err := ctx.Err(); err != nil {
			results[i] = Result{City: city, Err: err}
			continue
		}
		reading, err := f.source.Fetch(ctx, city)
		results[i] = Result{City: city, Reading: reading, Err: err}
	}
	observability.FetchDuration.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
	return results
}

// Concurrent issues all requests at once, one goroutine per city, sharing the
// client's connection pool. Completion order is not relied upon: each goroutine
// writes its result into the slot for its input position, so duplicate city
// names each get their own fetch. Cancelling ctx abandons in-flight requests
// without corrupting results already collected.
type Concurrent struct {
	source *Source
}

func (*Concurrent) Name() string { return "concurrent" }

func (f *Concurrent) FetchAll(ctx context.Context, cities []string) []Result {
	start := time.Now()

	results := make([]Result, len(cities))
	var wg sync.WaitGroup
	for i, city := range cities {
		i, city := i, city
		wg.Add(1)
		go func() {
			defer wg.Done()
			reading, err := f.source.Fetch(ctx, city)
			results[i] = Result{City: city, Reading: reading, Err: err}
		}()
	}
	wg.Wait()

	observability.FetchDuration.WithLabelValues(f.Name()).Observe(time.Since(start).Seconds())
	return results
}
