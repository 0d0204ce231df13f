package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/analysis"
	"github.com/cherrryana/temperature-monitor/internal/fetch"
	"github.com/cherrryana/temperature-monitor/internal/live"
	"github.com/cherrryana/temperature-monitor/internal/models"
	"github.com/cherrryana/temperature-monitor/internal/validation"
)

var validate = validator.New()

// Handler serves the reporting API over the latest analysis report and, when
// the live path is configured, on-demand live checks.
type Handler struct {
	report     *analysis.Report
	comparison *analysis.Comparison
	source     *fetch.Source // nil when no API key configured
	checker    *live.Checker
	logger     *zap.Logger
	startTime  time.Time
	cachePing  func() error // nil unless backend is memcached
}

// NewHandler returns a new Handler. source and checker may be nil when the
// live path is disabled.
func NewHandler(report *analysis.Report, comparison *analysis.Comparison, source *fetch.Source, checker *live.Checker, logger *zap.Logger) *Handler {
	return &Handler{
		report:     report,
		comparison: comparison,
		source:     source,
		checker:    checker,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// SetCachePing installs a cache reachability probe for the health check.
func (h *Handler) SetCachePing(ping func() error) {
	h.cachePing = ping
}

// Router builds the mux router with all routes and middleware applied.
func (h *Handler) Router(metricsHandler http.Handler, middleware ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	for _, m := range middleware {
		router.Use(m)
	}
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", metricsHandler)
	router.HandleFunc("/cities", h.ListCities).Methods("GET")
	router.HandleFunc("/cities/{city}", h.GetCityAnalysis).Methods("GET")
	router.HandleFunc("/cities/{city}/trend", h.GetCityTrend).Methods("GET")
	router.HandleFunc("/cities/{city}/seasons", h.GetCitySeasons).Methods("GET")
	router.HandleFunc("/cities/{city}/live", h.GetCityLiveCheck).Methods("GET")
	router.HandleFunc("/strategies", h.GetStrategyComparison).Methods("GET")
	return router
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"dataset": "loaded",
	}
	if h.source != nil {
		checks["liveWeather"] = "configured"
	} else {
		checks["liveWeather"] = "disabled"
	}
	status := "healthy"
	statusCode := http.StatusOK
	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			status = "degraded"
		}
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "temperature-monitor",
		"checks":    checks,
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// citySummary is the per-city row returned by /cities.
type citySummary struct {
	City         string             `json:"city"`
	Readings     int                `json:"readings"`
	AnomalyCount int                `json:"anomalyCount"`
	Trend        *models.TrendModel `json:"trend,omitempty"`
}

// ListCities handles GET /cities.
func (h *Handler) ListCities(w http.ResponseWriter, r *http.Request) {
	summaries := make([]citySummary, 0, len(h.report.Cities))
	for _, city := range sortedCities(h.report) {
		cr := h.report.Cities[city]
		summaries = append(summaries, citySummary{
			City:         cr.City,
			Readings:     len(cr.Points),
			AnomalyCount: cr.AnomalyCount,
			Trend:        cr.Trend,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generatedAt":    h.report.GeneratedAt,
		"windowSize":     h.report.WindowSize,
		"bandMultiplier": h.report.BandMultiplier,
		"strategy":       h.report.Strategy,
		"cities":         summaries,
	})
}

type cityQuery struct {
	Limit int `validate:"gte=0,lte=1000000"`
}

// GetCityAnalysis handles GET /cities/{city}. The optional limit query param
// caps the number of trailing points returned.
func (h *Handler) GetCityAnalysis(w http.ResponseWriter, r *http.Request) {
	cr, ok := h.cityReport(w, r)
	if !ok {
		return
	}

	q := cityQuery{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit out of range")
		return
	}

	out := *cr
	if q.Limit > 0 && q.Limit < len(cr.Points) {
		out.Points = cr.Points[len(cr.Points)-q.Limit:]
	}
	writeJSON(w, http.StatusOK, &out)
}

// GetCityTrend handles GET /cities/{city}/trend.
func (h *Handler) GetCityTrend(w http.ResponseWriter, r *http.Request) {
	cr, ok := h.cityReport(w, r)
	if !ok {
		return
	}
	if cr.Trend == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "TREND_UNDEFINED", cr.TrendError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"city":         cr.City,
		"slope":        cr.Trend.Slope,
		"slopePerYear": cr.Trend.Slope * 365.25,
		"intercept":    cr.Trend.Intercept,
		"r2":           cr.Trend.R2,
		"pValue":       cr.Trend.PValue,
	})
}

// GetCitySeasons handles GET /cities/{city}/seasons. Seasons without an
// established profile are absent from the response, not zeroed.
func (h *Handler) GetCitySeasons(w http.ResponseWriter, r *http.Request) {
	cr, ok := h.cityReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"city":    cr.City,
		"seasons": cr.Seasons,
	})
}

// GetCityLiveCheck handles GET /cities/{city}/live: fetches the current
// reading and classifies it against the seasonal baseline.
func (h *Handler) GetCityLiveCheck(w http.ResponseWriter, r *http.Request) {
	city, ok := h.cityParam(w, r)
	if !ok {
		return
	}
	if h.source == nil || h.checker == nil {
		writeError(w, r, http.StatusServiceUnavailable, "LIVE_DISABLED", "live weather checks are not configured (no API key)")
		return
	}

	reading, err := h.source.Fetch(r.Context(), city)
	result := h.checker.Evaluate(fetch.Result{City: city, Reading: reading, Err: err})
	if result.Err != nil {
		writeLiveError(w, r, result)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"city":    city,
		"season":  result.Season,
		"reading": result.Reading,
		"verdict": result.Verdict,
	})
}

// GetStrategyComparison handles GET /strategies.
func (h *Handler) GetStrategyComparison(w http.ResponseWriter, r *http.Request) {
	if h.comparison == nil {
		writeError(w, r, http.StatusNotFound, "NO_COMPARISON", "strategy comparison was not run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rolling": map[string]interface{}{
			"sequential": h.comparison.Sequential.String(),
			"parallel":   h.comparison.Parallel.String(),
			"speedup":    h.comparison.Speedup,
		},
	})
}

// cityParam validates the {city} path variable.
func (h *Handler) cityParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	city, err := validation.ValidateCity(mux.Vars(r)["city"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return "", false
	}
	return city, true
}

// cityReport resolves the {city} path variable to its report or writes a 404.
func (h *Handler) cityReport(w http.ResponseWriter, r *http.Request) (*analysis.CityReport, bool) {
	city, ok := h.cityParam(w, r)
	if !ok {
		return nil, false
	}
	cr, ok := h.report.Cities[city]
	if !ok {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_CITY", "no historical data for city: "+city)
		return nil, false
	}
	return cr, true
}

// writeLiveError maps a failed live check to a status code that distinguishes
// credential failures from upstream failures from missing baselines.
func writeLiveError(w http.ResponseWriter, r *http.Request, result live.CheckResult) {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("live check unavailable", zap.String("city", result.City), zap.Error(result.Err))
	}
	switch result.Failure {
	case live.FailureUnauthorized:
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_UNAUTHORIZED", "weather API rejected the credential")
	case live.FailureNotFound:
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "weather API does not know city: "+result.City)
	case live.FailureNoBaseline:
		writeError(w, r, http.StatusConflict, "BASELINE_UNAVAILABLE",
			"no seasonal baseline for "+result.City+" in "+string(result.Season))
	default:
		if errors.Is(result.Err, context.DeadlineExceeded) {
			writeError(w, r, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "weather API request timed out")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "unable to fetch weather data")
	}
}

func sortedCities(report *analysis.Report) []string {
	cities := make([]string, 0, len(report.Cities))
	for city := range report.Cities {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
