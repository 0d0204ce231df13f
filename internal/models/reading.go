package models

import (
	"fmt"
	"time"
)

// Season is one of the four calendar seasons used for baseline grouping.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// ParseSeason validates a season label from ingested data.
func ParseSeason(s string) (Season, error) {
	switch Season(s) {
	case Winter, Spring, Summer, Autumn:
		return Season(s), nil
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// Reading is a single historical temperature observation. Immutable once ingested.
type Reading struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Season      Season    `json:"season"`
}

// RollingStat is the centered-window mean/std pair derived for one reading.
// Defined is false at series edges where a full window is not available; Mean
// and Std are meaningless there and must not be read.
type RollingStat struct {
	Mean    float64
	Std     float64
	Defined bool
}

// Band is the normal-range interval derived from a RollingStat.
type Band struct {
	Lower   float64
	Upper   float64
	Defined bool
}

// TrendModel is the per-city ordinary least squares fit of temperature on
// day offset (whole days since the city's earliest reading).
type TrendModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	PValue    float64 `json:"pValue"`
}

// FittedAt evaluates the trend line at the given day offset.
func (m TrendModel) FittedAt(day float64) float64 {
	return m.Slope*day + m.Intercept
}

// SeasonalProfile is the mean/std of all readings for one city and season.
// Std uses the sample (n-1) estimator and is only defined for Count >= 2;
// callers must treat a missing or single-reading group as "baseline unavailable".
type SeasonalProfile struct {
	MeanTemp float64 `json:"meanTemp"`
	StdTemp  float64 `json:"stdTemp"`
	Count    int     `json:"count"`
}

// SeasonalBaseline is the normal range derived from a SeasonalProfile for the
// live anomaly check.
type SeasonalBaseline struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}
