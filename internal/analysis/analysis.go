// Package analysis runs the historical pipeline: rolling statistics, anomaly
// bands, per-city trends and seasonal profiles, assembled into reports for the
// reporting collaborators.
package analysis

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/anomaly"
	"github.com/cherrryana/temperature-monitor/internal/ingest"
	"github.com/cherrryana/temperature-monitor/internal/models"
	"github.com/cherrryana/temperature-monitor/internal/observability"
	"github.com/cherrryana/temperature-monitor/internal/rolling"
	"github.com/cherrryana/temperature-monitor/internal/season"
	"github.com/cherrryana/temperature-monitor/internal/trend"
)

// Point is one reading with all its derived values. Pointer fields are nil
// where the underlying quantity is undefined (window edges, degenerate trend);
// they serialize as JSON null, never as zero.
type Point struct {
	Timestamp   time.Time     `json:"timestamp"`
	Temperature float64       `json:"temperature"`
	Season      models.Season `json:"season"`
	MovingMean  *float64      `json:"movingMean"`
	MovingStd   *float64      `json:"movingStd"`
	LowerBound  *float64      `json:"lowerBound"`
	UpperBound  *float64      `json:"upperBound"`
	IsAnomaly   bool          `json:"isAnomaly"`
	FittedTrend *float64      `json:"fittedTrend"`
}

// CityReport is the full analysis output for one city.
type CityReport struct {
	City         string                                   `json:"city"`
	Points       []Point                                  `json:"points"`
	Trend        *models.TrendModel                       `json:"trend"`
	TrendError   string                                   `json:"trendError,omitempty"`
	AnomalyCount int                                      `json:"anomalyCount"`
	Seasons      map[models.Season]models.SeasonalProfile `json:"seasons"`
}

// Report is the output of one pipeline run over the whole dataset.
type Report struct {
	GeneratedAt    time.Time                              `json:"generatedAt"`
	WindowSize     int                                    `json:"windowSize"`
	BandMultiplier float64                                `json:"bandMultiplier"`
	Strategy       string                                 `json:"strategy"`
	Duration       time.Duration                          `json:"-"`
	Cities         map[string]*CityReport                 `json:"cities"`
	Profiles       map[season.Key]models.SeasonalProfile  `json:"-"`
}

// Pipeline orchestrates the historical analysis. The rolling strategy is
// injected so correctness tests run against both without duplicated assertions.
type Pipeline struct {
	window     int
	multiplier float64
	strategy   rolling.Strategy
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline. window and multiplier fall back to the
// package defaults when non-positive.
func NewPipeline(strategy rolling.Strategy, window int, multiplier float64, logger *zap.Logger) *Pipeline {
	if window <= 0 {
		window = rolling.DefaultWindow
	}
	if multiplier <= 0 {
		multiplier = anomaly.DefaultMultiplier
	}
	return &Pipeline{window: window, multiplier: multiplier, strategy: strategy, logger: logger}
}

// Run executes the full pipeline over the dataset. Per-city failures
// (degenerate trends) are recorded on the city report, never abort the batch.
func (p *Pipeline) Run(ds *ingest.Dataset) *Report {
	start := time.Now()

	stats := p.strategy.Compute(ds, p.window)

	report := &Report{
		GeneratedAt:    time.Now().UTC(),
		WindowSize:     p.window,
		BandMultiplier: p.multiplier,
		Strategy:       p.strategy.Name(),
		Cities:         make(map[string]*CityReport, len(ds.Cities())),
		Profiles:       season.Aggregate(ds),
	}

	for _, city := range ds.Cities() {
		report.Cities[city] = p.analyzeCity(city, ds.Series(city), stats[city], report.Profiles)
	}

	report.Duration = time.Since(start)
	observability.AnalysisDuration.WithLabelValues(p.strategy.Name()).Observe(report.Duration.Seconds())
	if p.logger != nil {
		p.logger.Info("analysis complete",
			zap.String("strategy", p.strategy.Name()),
			zap.Int("cities", len(report.Cities)),
			zap.Duration("duration", report.Duration))
	}
	return report
}

func (p *Pipeline) analyzeCity(city string, series []models.Reading, stats []models.RollingStat, profiles map[season.Key]models.SeasonalProfile) *CityReport {
	bands := anomaly.Bands(stats, p.multiplier)
	flags := anomaly.Flag(series, bands)

	report := &CityReport{
		City:    city,
		Points:  make([]Point, len(series)),
		Seasons: make(map[models.Season]models.SeasonalProfile),
	}

	var fitted []float64
	model, err := trend.Fit(series)
	if err != nil {
		// Degenerate input is reported per city, not defaulted to zero.
		report.TrendError = err.Error()
		if p.logger != nil && errors.Is(err, trend.ErrDegenerateSeries) {
			p.logger.Warn("trend undefined", zap.String("city", city), zap.Error(err))
		}
	} else {
		report.Trend = &model
		fitted = trend.Fitted(series, model)
	}

	for i, r := range series {
		pt := Point{
			Timestamp:   r.Timestamp,
			Temperature: r.Temperature,
			Season:      r.Season,
			IsAnomaly:   flags[i],
		}
		if stats[i].Defined {
			pt.MovingMean = ptr(stats[i].Mean)
			pt.MovingStd = ptr(stats[i].Std)
			pt.LowerBound = ptr(bands[i].Lower)
			pt.UpperBound = ptr(bands[i].Upper)
		}
		if fitted != nil {
			pt.FittedTrend = ptr(fitted[i])
		}
		if flags[i] {
			report.AnomalyCount++
		}
		report.Points[i] = pt
	}
	observability.AnomaliesDetected.WithLabelValues(city).Set(float64(report.AnomalyCount))

	for k, profile := range profiles {
		if k.City == city {
			report.Seasons[k.Season] = profile
		}
	}
	return report
}

func ptr(v float64) *float64 { return &v }

// Comparison holds the timing of both rolling strategies over one dataset.
// The parallel strategy pays per-worker startup overhead and only wins on
// large series; this makes the trade-off observable.
type Comparison struct {
	Sequential time.Duration `json:"sequential"`
	Parallel   time.Duration `json:"parallel"`
	Speedup    float64       `json:"speedup"`
}

// CompareStrategies times both rolling strategies on the same dataset and logs
// the comparison. Results of the two runs are identical by construction; only
// latency differs.
func CompareStrategies(ds *ingest.Dataset, window int, logger *zap.Logger) Comparison {
	t0 := time.Now()
	rolling.Sequential{}.Compute(ds, window)
	seq := time.Since(t0)
	observability.AnalysisDuration.WithLabelValues("sequential").Observe(seq.Seconds())

	t0 = time.Now()
	rolling.Parallel{}.Compute(ds, window)
	par := time.Since(t0)
	observability.AnalysisDuration.WithLabelValues("parallel").Observe(par.Seconds())

	cmp := Comparison{Sequential: seq, Parallel: par}
	if par > 0 {
		cmp.Speedup = seq.Seconds() / par.Seconds()
	}
	if logger != nil {
		logger.Info("rolling strategy comparison",
			zap.Duration("sequential", seq),
			zap.Duration("parallel", par),
			zap.Float64("speedup", cmp.Speedup))
	}
	return cmp
}
