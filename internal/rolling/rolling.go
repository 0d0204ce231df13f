// Package rolling computes centered moving mean/std statistics per city.
package rolling

import (
	"math"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

// DefaultWindow is the moving-average window in days.
const DefaultWindow = 30

// ComputeSeries produces one RollingStat per reading of a single city series.
// Position i covers the centered window [i-w/2, i+w/2] and is defined only when
// that window lies fully inside the series; edge positions have Defined=false.
// Std uses the sample (n-1) estimator. A series shorter than the window yields
// all-undefined stats, which is not an error.
func ComputeSeries(series []models.Reading, window int) []models.RollingStat {
	stats := make([]models.RollingStat, len(series))
	if window <= 0 {
		return stats
	}
	half := window / 2
	for i := half; i < len(series)-half; i++ {
		mean, std := windowStats(series, i-half, i+half)
		stats[i] = models.RollingStat{Mean: mean, Std: std, Defined: true}
	}
	return stats
}

// windowStats computes mean and sample std over series[lo..hi] inclusive.
func windowStats(series []models.Reading, lo, hi int) (mean, std float64) {
	n := float64(hi - lo + 1)
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += series[i].Temperature
	}
	mean = sum / n

	if n < 2 {
		return mean, 0
	}
	var sq float64
	for i := lo; i <= hi; i++ {
		d := series[i].Temperature - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}
