package rolling

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cherrryana/temperature-monitor/internal/ingest"
	"github.com/cherrryana/temperature-monitor/internal/models"
)

// Strategy computes rolling statistics for every city in a dataset. Sequential
// and Parallel must produce numerically identical results; only latency differs,
// so both are individually invokable and timeable by the caller.
type Strategy interface {
	Name() string
	Compute(ds *ingest.Dataset, window int) map[string][]models.RollingStat
}

// NewStrategy returns the strategy for a config name ("sequential" or "parallel").
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "sequential", "":
		return Sequential{}, nil
	case "parallel":
		return Parallel{}, nil
	}
	return nil, fmt.Errorf("unknown rolling strategy %q", name)
}

// Sequential iterates all cities in one worker.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

func (Sequential) Compute(ds *ingest.Dataset, window int) map[string][]models.RollingStat {
	out := make(map[string][]models.RollingStat, len(ds.Cities()))
	for _, city := range ds.Cities() {
		out[city] = ComputeSeries(ds.Series(city), window)
	}
	return out
}

// Parallel dispatches each city's series to its own worker, bounded by Workers
// (GOMAXPROCS when zero), and merges results back by city key. Workers share no
// mutable state; each owns one city's series exclusively, so the merge is a pure
// reduction and merge order does not matter.
type Parallel struct {
	// Workers caps concurrent city workers. Zero means GOMAXPROCS.
	Workers int
}

func (Parallel) Name() string { return "parallel" }

func (p Parallel) Compute(ds *ingest.Dataset, window int) map[string][]models.RollingStat {
	cities := ds.Cities()
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type cityStats struct {
		city  string
		stats []models.RollingStat
	}

	sem := make(chan struct{}, workers)
	results := make(chan cityStats, len(cities))
	var wg sync.WaitGroup
	for _, city := range cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- cityStats{city: city, stats: ComputeSeries(ds.Series(city), window)}
		}()
	}
	wg.Wait()
	close(results)

	out := make(map[string][]models.RollingStat, len(cities))
	for r := range results {
		out[r.city] = r.stats
	}
	return out
}
