// Package anomaly classifies temperatures against mean±k·std bands. The same
// decision rule serves two modes: historical readings against their own rolling
// band, and live readings against the seasonal baseline.
package anomaly

import (
	"math"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

// DefaultMultiplier is the band width in standard deviations.
const DefaultMultiplier = 2.0

// Bands derives the [mean-k·std, mean+k·std] interval for each position.
// Positions with undefined rolling stats get undefined bands.
func Bands(stats []models.RollingStat, multiplier float64) []models.Band {
	bands := make([]models.Band, len(stats))
	for i, s := range stats {
		if !s.Defined {
			continue
		}
		bands[i] = models.Band{
			Lower:   s.Mean - multiplier*s.Std,
			Upper:   s.Mean + multiplier*s.Std,
			Defined: true,
		}
	}
	return bands
}

// Outside reports whether v falls strictly outside [lower, upper].
// Values on the bounds are normal.
func Outside(v, lower, upper float64) bool {
	return v < lower || v > upper
}

// Flag classifies each reading of one city series against its own band.
// Readings with undefined bands are never flagged; that is a boundary policy,
// not an error.
func Flag(series []models.Reading, bands []models.Band) []bool {
	flags := make([]bool, len(series))
	for i, b := range bands {
		if !b.Defined {
			continue
		}
		flags[i] = Outside(series[i].Temperature, b.Lower, b.Upper)
	}
	return flags
}

// CheckLive compares a live temperature against the seasonal baseline and
// produces the verdict with its status label and absolute deviation from the
// seasonal mean.
func CheckLive(temperature float64, baseline models.SeasonalBaseline) models.AnomalyVerdict {
	verdict := models.AnomalyVerdict{
		Status:    models.StatusNormal,
		Deviation: math.Abs(temperature - baseline.Mean),
		Baseline:  baseline,
	}
	switch {
	case temperature < baseline.Lower:
		verdict.IsAnomaly = true
		verdict.Status = models.StatusColder
	case temperature > baseline.Upper:
		verdict.IsAnomaly = true
		verdict.Status = models.StatusWarmer
	}
	return verdict
}
