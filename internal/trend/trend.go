// Package trend fits per-city linear temperature trends with ordinary least
// squares on (days since first reading, temperature) pairs.
package trend

import (
	"errors"
	"math"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

// ErrDegenerateSeries is returned when a city has fewer than two distinct day
// offsets, leaving the slope undefined. Callers report this per city instead of
// defaulting the trend to zero.
var ErrDegenerateSeries = errors.New("trend requires at least 2 distinct days")

// DayOffsets converts timestamps to whole days since the city's earliest reading.
func DayOffsets(series []models.Reading) []float64 {
	if len(series) == 0 {
		return nil
	}
	t0 := series[0].Timestamp
	for _, r := range series[1:] {
		if r.Timestamp.Before(t0) {
			t0 = r.Timestamp
		}
	}
	days := make([]float64, len(series))
	for i, r := range series {
		days[i] = float64(r.Timestamp.Sub(t0) / (24 * time.Hour))
	}
	return days
}

// Fit computes the OLS trend for one city series: slope in °C/day, intercept,
// r² and the two-sided p-value of the slope. A series whose readings all fall
// on one day is degenerate.
func Fit(series []models.Reading) (models.TrendModel, error) {
	days := DayOffsets(series)
	if !hasDistinct(days) {
		return models.TrendModel{}, ErrDegenerateSeries
	}

	n := float64(len(series))
	var sumX, sumY float64
	for i, r := range series {
		sumX += days[i]
		sumY += r.Temperature
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy, syy float64
	for i, r := range series {
		dx := days[i] - meanX
		dy := r.Temperature - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}

	slope := sxy / sxx
	model := models.TrendModel{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}

	if syy == 0 {
		// Constant temperature: the fit is exact but correlation is undefined.
		// Report r²=0 and no significance.
		model.PValue = 1
		return model, nil
	}

	r := sxy / math.Sqrt(sxx*syy)
	model.R2 = r * r
	model.PValue = slopePValue(r, len(series))
	return model, nil
}

// Fitted evaluates the trend line at every reading's day offset.
func Fitted(series []models.Reading, model models.TrendModel) []float64 {
	days := DayOffsets(series)
	fitted := make([]float64, len(days))
	for i, d := range days {
		fitted[i] = model.FittedAt(d)
	}
	return fitted
}

// slopePValue approximates the two-sided p-value of the slope from the
// t-statistic t = r·sqrt((n-2)/(1-r²)) using the normal distribution. For the
// multi-year daily series this system works with, n is large enough that the
// normal approximation is indistinguishable from Student's t.
func slopePValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	r2 := r * r
	if r2 >= 1 {
		return 1e-10
	}
	t := math.Abs(r) * math.Sqrt(float64(n-2)/(1-r2))
	p := math.Erfc(t / math.Sqrt2)
	if p < 1e-10 {
		p = 1e-10
	}
	return p
}

func hasDistinct(days []float64) bool {
	if len(days) < 2 {
		return false
	}
	for _, d := range days[1:] {
		if d != days[0] {
			return true
		}
	}
	return false
}
