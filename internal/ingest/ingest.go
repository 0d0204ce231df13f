package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

// Dataset holds the historical readings grouped by city. The grouping is built
// once at load time; downstream components index into it instead of re-filtering
// the full set. Series are ordered by timestamp within each city.
type Dataset struct {
	series map[string][]models.Reading
	cities []string
	total  int
}

// Cities returns the distinct city names in sorted order.
func (d *Dataset) Cities() []string {
	return d.cities
}

// Series returns the ordered readings for one city, or nil if the city is unknown.
func (d *Dataset) Series(city string) []models.Reading {
	return d.series[city]
}

// Len returns the total number of readings across all cities.
func (d *Dataset) Len() int {
	return d.total
}

// NewDataset groups already-sorted readings by city, preserving relative order.
// Exposed for tests and for callers that obtain readings from something other
// than a CSV file.
func NewDataset(readings []models.Reading) *Dataset {
	series := make(map[string][]models.Reading)
	for _, r := range readings {
		series[r.City] = append(series[r.City], r)
	}
	cities := make([]string, 0, len(series))
	for city := range series {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return &Dataset{series: series, cities: cities, total: len(readings)}
}

// LoadCSV reads the historical dataset from a CSV file with a
// timestamp,city,temperature,season header, sorts it globally by timestamp, and
// groups it by city. Structurally invalid rows (missing fields, unparseable
// timestamp or temperature, unknown season) abort the whole load.
func LoadCSV(path string, logger *zap.Logger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", path, err)
	}
	if logger != nil {
		logger.Info("dataset loaded",
			zap.String("path", path),
			zap.Int("readings", ds.Len()),
			zap.Int("cities", len(ds.Cities())))
	}
	return ds, nil
}

// ReadCSV parses readings from r. See LoadCSV for the expected format.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var readings []models.Reading
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reading, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, reading)
	}

	// Global timestamp sort before grouping; rolling windows assume
	// time order within each city.
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return NewDataset(readings), nil
}

type columns struct {
	timestamp   int
	city        int
	temperature int
	season      int
}

func columnIndexes(header []string) (columns, error) {
	cols := columns{timestamp: -1, city: -1, temperature: -1, season: -1}
	for i, name := range header {
		switch name {
		case "timestamp":
			cols.timestamp = i
		case "city":
			cols.city = i
		case "temperature":
			cols.temperature = i
		case "season":
			cols.season = i
		}
	}
	if cols.timestamp < 0 || cols.city < 0 || cols.temperature < 0 || cols.season < 0 {
		return cols, fmt.Errorf("header must contain timestamp, city, temperature, season; got %v", header)
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (models.Reading, error) {
	ts, err := parseTimestamp(record[cols.timestamp])
	if err != nil {
		return models.Reading{}, err
	}
	city := record[cols.city]
	if city == "" {
		return models.Reading{}, fmt.Errorf("empty city")
	}
	temp, err := strconv.ParseFloat(record[cols.temperature], 64)
	if err != nil {
		return models.Reading{}, fmt.Errorf("parse temperature %q: %w", record[cols.temperature], err)
	}
	season, err := models.ParseSeason(record[cols.season])
	if err != nil {
		return models.Reading{}, err
	}
	return models.Reading{City: city, Timestamp: ts, Temperature: temp, Season: season}, nil
}

var timestampLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
