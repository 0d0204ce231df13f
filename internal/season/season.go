// Package season aggregates per-city seasonal temperature profiles and derives
// the baselines used by the live anomaly check.
package season

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/ingest"
	"github.com/cherrryana/temperature-monitor/internal/models"
)

// ErrBaselineUnavailable means a (city, season) pair has too little historical
// data to judge normalcy. Distinct from "value is normal".
var ErrBaselineUnavailable = errors.New("seasonal baseline unavailable")

// Key identifies one (city, season) group.
type Key struct {
	City   string
	Season models.Season
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.City, k.Season)
}

// Aggregate groups all readings by (city, season) and computes each group's
// mean and sample standard deviation. Groups with fewer than two readings are
// omitted: a single reading leaves the sample std undefined, and the pair must
// surface to callers as "no baseline" rather than zero variance. Re-running on
// the same dataset produces identical results.
func Aggregate(ds *ingest.Dataset) map[Key]models.SeasonalProfile {
	sums := make(map[Key]*accumulator)
	for _, city := range ds.Cities() {
		for _, r := range ds.Series(city) {
			k := Key{City: city, Season: r.Season}
			acc := sums[k]
			if acc == nil {
				acc = &accumulator{}
				sums[k] = acc
			}
			acc.add(r.Temperature)
		}
	}

	profiles := make(map[Key]models.SeasonalProfile, len(sums))
	for k, acc := range sums {
		if acc.count < 2 {
			continue
		}
		mean, std := acc.stats()
		profiles[k] = models.SeasonalProfile{MeanTemp: mean, StdTemp: std, Count: acc.count}
	}
	return profiles
}

type accumulator struct {
	count  int
	values []float64
}

func (a *accumulator) add(v float64) {
	a.count++
	a.values = append(a.values, v)
}

// stats computes mean and sample (n-1) std in two passes for stability.
func (a *accumulator) stats() (mean, std float64) {
	n := float64(a.count)
	var sum float64
	for _, v := range a.values {
		sum += v
	}
	mean = sum / n
	var sq float64
	for _, v := range a.values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}

// Baseline derives the normal range for (city, season) from the aggregated
// profiles. Returns ErrBaselineUnavailable when the pair has no defined profile.
func Baseline(profiles map[Key]models.SeasonalProfile, city string, s models.Season, multiplier float64) (models.SeasonalBaseline, error) {
	p, ok := profiles[Key{City: city, Season: s}]
	if !ok {
		return models.SeasonalBaseline{}, fmt.Errorf("%w: %s/%s", ErrBaselineUnavailable, city, s)
	}
	return models.SeasonalBaseline{
		Mean:  p.MeanTemp,
		Std:   p.StdTemp,
		Lower: p.MeanTemp - multiplier*p.StdTemp,
		Upper: p.MeanTemp + multiplier*p.StdTemp,
	}, nil
}

// Current maps a date to its calendar season: Dec-Feb winter, Mar-May spring,
// Jun-Aug summer, Sep-Nov autumn.
func Current(t time.Time) models.Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return models.Winter
	case time.March, time.April, time.May:
		return models.Spring
	case time.June, time.July, time.August:
		return models.Summer
	default:
		return models.Autumn
	}
}
