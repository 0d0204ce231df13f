package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

func TestReadCSV(t *testing.T) {
	input := `timestamp,city,temperature,season
2024-01-03,Berlin,3.5,winter
2024-01-01,Berlin,1.0,winter
2024-01-02,Cairo,18.2,winter
2024-01-02,Berlin,2.0,winter
`
	ds, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if ds.Len() != 4 {
		t.Errorf("Len() = %d, want 4", ds.Len())
	}

	cities := ds.Cities()
	if len(cities) != 2 || cities[0] != "Berlin" || cities[1] != "Cairo" {
		t.Errorf("Cities() = %v, want [Berlin Cairo]", cities)
	}

	berlin := ds.Series("Berlin")
	if len(berlin) != 3 {
		t.Fatalf("Berlin series len = %d, want 3", len(berlin))
	}
	for i := 1; i < len(berlin); i++ {
		if berlin[i].Timestamp.Before(berlin[i-1].Timestamp) {
			t.Errorf("Berlin series not sorted at position %d", i)
		}
	}
	if berlin[0].Temperature != 1.0 || berlin[2].Temperature != 3.5 {
		t.Errorf("Berlin series out of order: %+v", berlin)
	}

	if got := ds.Series("Atlantis"); got != nil {
		t.Errorf("Series(unknown) = %v, want nil", got)
	}
}

func TestReadCSV_ColumnOrderIndependent(t *testing.T) {
	input := `city,season,timestamp,temperature
Berlin,summer,2024-07-01,24.5
`
	ds, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	r := ds.Series("Berlin")[0]
	if r.Temperature != 24.5 || r.Season != models.Summer {
		t.Errorf("reading = %+v, want temp 24.5 season summer", r)
	}
}

func TestReadCSV_TimestampLayouts(t *testing.T) {
	input := `timestamp,city,temperature,season
2024-01-01,Berlin,1.0,winter
2024-01-02T06:30:00Z,Berlin,2.0,winter
2024-01-03 12:00:00,Berlin,3.0,winter
`
	ds, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	series := ds.Series("Berlin")
	if len(series) != 3 {
		t.Fatalf("series len = %d, want 3", len(series))
	}
	want := time.Date(2024, 1, 2, 6, 30, 0, 0, time.UTC)
	if !series[1].Timestamp.Equal(want) {
		t.Errorf("series[1].Timestamp = %v, want %v", series[1].Timestamp, want)
	}
}

func TestReadCSV_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing header column",
			input: "timestamp,city,temperature\n2024-01-01,Berlin,1.0\n",
		},
		{
			name:  "bad timestamp",
			input: "timestamp,city,temperature,season\nyesterday,Berlin,1.0,winter\n",
		},
		{
			name:  "bad temperature",
			input: "timestamp,city,temperature,season\n2024-01-01,Berlin,chilly,winter\n",
		},
		{
			name:  "unknown season",
			input: "timestamp,city,temperature,season\n2024-01-01,Berlin,1.0,monsoon\n",
		},
		{
			name:  "empty city",
			input: "timestamp,city,temperature,season\n2024-01-01,,1.0,winter\n",
		},
		{
			name:  "wrong field count",
			input: "timestamp,city,temperature,season\n2024-01-01,Berlin,1.0,winter,extra\n",
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("ReadCSV() expected error")
			}
		})
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader("timestamp,city,temperature,season\n"))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if ds.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ds.Len())
	}
	if len(ds.Cities()) != 0 {
		t.Errorf("Cities() = %v, want empty", ds.Cities())
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	if _, err := LoadCSV("/nonexistent/readings.csv", nil); err == nil {
		t.Error("LoadCSV() expected error for missing file")
	}
}

func TestNewDataset(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := []models.Reading{
		{City: "Oslo", Timestamp: base, Temperature: -2, Season: models.Winter},
		{City: "Berlin", Timestamp: base, Temperature: 3, Season: models.Winter},
		{City: "Oslo", Timestamp: base.AddDate(0, 0, 1), Temperature: -1, Season: models.Winter},
	}

	ds := NewDataset(readings)
	cities := ds.Cities()
	if len(cities) != 2 || cities[0] != "Berlin" || cities[1] != "Oslo" {
		t.Errorf("Cities() = %v, want sorted [Berlin Oslo]", cities)
	}
	if len(ds.Series("Oslo")) != 2 {
		t.Errorf("Oslo series len = %d, want 2", len(ds.Series("Oslo")))
	}
}
