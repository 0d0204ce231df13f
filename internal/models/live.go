package models

// LiveReading is a current-weather observation returned by the weather API.
// Not persisted; consumed once by the live anomaly check.
type LiveReading struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Description string  `json:"description"`
}

// Verdict statuses for a live reading compared against its seasonal baseline.
const (
	StatusColder = "colder than normal"
	StatusWarmer = "warmer than normal"
	StatusNormal = "within normal range"
)

// AnomalyVerdict is the outcome of checking one live reading against the
// seasonal baseline for its city.
type AnomalyVerdict struct {
	IsAnomaly bool             `json:"isAnomaly"`
	Status    string           `json:"status"`
	Deviation float64          `json:"deviation"`
	Baseline  SeasonalBaseline `json:"baseline"`
}
