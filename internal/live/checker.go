// Package live checks current readings against seasonal baselines. The checker
// performs no I/O: readings are handed to it by the fetch layer, and the
// baselines come from the seasonal aggregation of historical data.
package live

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/anomaly"
	"github.com/cherrryana/temperature-monitor/internal/client"
	"github.com/cherrryana/temperature-monitor/internal/fetch"
	"github.com/cherrryana/temperature-monitor/internal/models"
	"github.com/cherrryana/temperature-monitor/internal/observability"
	"github.com/cherrryana/temperature-monitor/internal/season"
)

// Failure kinds for an unavailable live check. "Baseline unavailable" is not
// conflated with "reading was normal": a missing baseline means the check
// cannot confirm or deny an anomaly.
const (
	FailureUnauthorized = "unauthorized"
	FailureNotFound     = "city_not_found"
	FailureNetwork      = "network"
	FailureNoBaseline   = "no_baseline"
)

// CheckResult is the outcome of one city's live check. Exactly one of Verdict
// or Err is meaningful: Err set means the check is unavailable, with Failure
// naming why.
type CheckResult struct {
	City    string
	Season  models.Season
	Reading models.LiveReading
	Verdict models.AnomalyVerdict
	Err     error
	Failure string
}

// Checker classifies live readings against the seasonal baseline for the
// caller's current date. Pure given its inputs; now is injectable for tests.
type Checker struct {
	profiles   map[season.Key]models.SeasonalProfile
	multiplier float64
	now        func() time.Time
	logger     *zap.Logger
}

// NewChecker creates a Checker over aggregated seasonal profiles.
func NewChecker(profiles map[season.Key]models.SeasonalProfile, multiplier float64, logger *zap.Logger) *Checker {
	return &Checker{
		profiles:   profiles,
		multiplier: multiplier,
		now:        time.Now,
		logger:     logger,
	}
}

// SetNow overrides the clock in place. For tests.
func (c *Checker) SetNow(now func() time.Time) {
	c.now = now
}

// Check classifies one live reading against the (city, current season)
// baseline. Returns season.ErrBaselineUnavailable when the pair has no
// established baseline.
func (c *Checker) Check(reading models.LiveReading) (models.AnomalyVerdict, error) {
	s := season.Current(c.now())
	baseline, err := season.Baseline(c.profiles, reading.City, s, c.multiplier)
	if err != nil {
		return models.AnomalyVerdict{}, err
	}
	return anomaly.CheckLive(reading.Temperature, baseline), nil
}

// Evaluate turns one fetch result into a CheckResult, distinguishing
// credential failures from network failures from missing baselines.
func (c *Checker) Evaluate(res fetch.Result) CheckResult {
	out := CheckResult{City: res.City, Season: season.Current(c.now())}

	if res.Err != nil {
		out.Err = res.Err
		out.Failure = classifyFetchError(res.Err)
		observability.LiveChecksTotal.WithLabelValues(out.Failure).Inc()
		if c.logger != nil {
			c.logger.Warn("live reading unavailable",
				zap.String("city", res.City),
				zap.String("failure", out.Failure),
				zap.String("category", string(client.CategorizeError(res.Err))),
				zap.Error(res.Err))
		}
		return out
	}

	out.Reading = res.Reading
	verdict, err := c.Check(res.Reading)
	if err != nil {
		out.Err = err
		out.Failure = FailureNoBaseline
		observability.LiveChecksTotal.WithLabelValues(FailureNoBaseline).Inc()
		if c.logger != nil {
			c.logger.Warn("no seasonal baseline for live check",
				zap.String("city", res.City),
				zap.String("season", string(out.Season)))
		}
		return out
	}

	out.Verdict = verdict
	observability.LiveChecksTotal.WithLabelValues(observability.LiveCheckOutcome(verdict.Status)).Inc()
	if c.logger != nil {
		c.logger.Info("live check",
			zap.String("city", res.City),
			zap.Float64("temperature", res.Reading.Temperature),
			zap.String("status", verdict.Status),
			zap.Bool("anomaly", verdict.IsAnomaly))
	}
	return out
}

// EvaluateAll runs Evaluate over a batch of fetch results.
func (c *Checker) EvaluateAll(results []fetch.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = c.Evaluate(r)
	}
	return out
}

func classifyFetchError(err error) string {
	switch {
	case errors.Is(err, client.ErrInvalidAPIKey):
		return FailureUnauthorized
	case errors.Is(err, client.ErrCityNotFound):
		return FailureNotFound
	default:
		return FailureNetwork
	}
}
