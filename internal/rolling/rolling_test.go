package rolling

import (
	"math"
	"testing"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/ingest"
	"github.com/cherrryana/temperature-monitor/internal/models"
)

func makeSeries(city string, temps ...float64) []models.Reading {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]models.Reading, len(temps))
	for i, temp := range temps {
		series[i] = models.Reading{
			City:        city,
			Timestamp:   base.AddDate(0, 0, i),
			Temperature: temp,
			Season:      models.Winter,
		}
	}
	return series
}

func constantSeries(city string, n int, temp float64) []models.Reading {
	temps := make([]float64, n)
	for i := range temps {
		temps[i] = temp
	}
	return makeSeries(city, temps...)
}

func TestComputeSeries_EdgesUndefined(t *testing.T) {
	series := makeSeries("Berlin", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	window := 4
	half := window / 2

	stats := ComputeSeries(series, window)
	if len(stats) != len(series) {
		t.Fatalf("len(stats) = %d, want %d", len(stats), len(series))
	}

	for i, s := range stats {
		wantDefined := i >= half && i <= len(series)-1-half
		if s.Defined != wantDefined {
			t.Errorf("stats[%d].Defined = %v, want %v", i, s.Defined, wantDefined)
		}
	}
}

func TestComputeSeries_CenteredWindowValues(t *testing.T) {
	series := makeSeries("Berlin", 10, 20, 30, 40, 50)

	// window 2, half 1: position i covers [i-1, i+1].
	stats := ComputeSeries(series, 2)

	if stats[0].Defined || stats[4].Defined {
		t.Error("edge positions must be undefined")
	}
	tests := []struct {
		idx      int
		wantMean float64
	}{
		{1, 20}, // (10+20+30)/3
		{2, 30},
		{3, 40},
	}
	for _, tt := range tests {
		s := stats[tt.idx]
		if !s.Defined {
			t.Fatalf("stats[%d] not defined", tt.idx)
		}
		if math.Abs(s.Mean-tt.wantMean) > 1e-9 {
			t.Errorf("stats[%d].Mean = %v, want %v", tt.idx, s.Mean, tt.wantMean)
		}
		if math.Abs(s.Std-10) > 1e-9 {
			t.Errorf("stats[%d].Std = %v, want 10 (sample estimator)", tt.idx, s.Std)
		}
	}
}

func TestComputeSeries_ConstantSeries(t *testing.T) {
	// 60 identical readings with the default window: every defined stat has
	// the constant mean and zero std.
	series := constantSeries("Berlin", 60, 15.0)

	stats := ComputeSeries(series, DefaultWindow)

	defined := 0
	for i, s := range stats {
		if !s.Defined {
			continue
		}
		defined++
		if s.Mean != 15.0 {
			t.Errorf("stats[%d].Mean = %v, want 15.0", i, s.Mean)
		}
		if s.Std != 0 {
			t.Errorf("stats[%d].Std = %v, want 0", i, s.Std)
		}
	}
	if defined == 0 {
		t.Fatal("expected defined stats for a 60-reading series with window 30")
	}
}

func TestComputeSeries_ShortSeriesAllUndefined(t *testing.T) {
	series := makeSeries("Oslo", 1, 2, 3)

	stats := ComputeSeries(series, DefaultWindow)
	if len(stats) != 3 {
		t.Fatalf("len(stats) = %d, want 3", len(stats))
	}
	for i, s := range stats {
		if s.Defined {
			t.Errorf("stats[%d].Defined = true, want false for series shorter than window", i)
		}
	}
}

func TestComputeSeries_EmptyAndZeroWindow(t *testing.T) {
	if got := ComputeSeries(nil, DefaultWindow); len(got) != 0 {
		t.Errorf("ComputeSeries(nil) len = %d, want 0", len(got))
	}

	series := makeSeries("Oslo", 1, 2, 3)
	stats := ComputeSeries(series, 0)
	for i, s := range stats {
		if s.Defined {
			t.Errorf("stats[%d].Defined = true with zero window", i)
		}
	}
}

func TestStrategies_IdenticalResults(t *testing.T) {
	readings := append(makeSeries("Berlin", seq(0, 80)...), makeSeries("Cairo", seq(100, 50)...)...)
	readings = append(readings, makeSeries("Oslo", seq(-20, 45)...)...)
	ds := ingest.NewDataset(readings)

	seqOut := Sequential{}.Compute(ds, DefaultWindow)
	parOut := Parallel{Workers: 3}.Compute(ds, DefaultWindow)

	if len(seqOut) != len(parOut) {
		t.Fatalf("city count mismatch: sequential %d, parallel %d", len(seqOut), len(parOut))
	}
	for city, want := range seqOut {
		got, ok := parOut[city]
		if !ok {
			t.Fatalf("parallel output missing city %q", city)
		}
		if len(got) != len(want) {
			t.Fatalf("city %q: len mismatch %d vs %d", city, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("city %q position %d: parallel %+v, sequential %+v", city, i, got[i], want[i])
			}
		}
	}
}

func TestStrategies_CityIsolation(t *testing.T) {
	berlin := makeSeries("Berlin", seq(0, 60)...)
	cairo := makeSeries("Cairo", seq(500, 60)...)

	aloneStats := ComputeSeries(berlin, DefaultWindow)

	ds := ingest.NewDataset(append(append([]models.Reading{}, berlin...), cairo...))
	combined := Sequential{}.Compute(ds, DefaultWindow)

	got := combined["Berlin"]
	if len(got) != len(aloneStats) {
		t.Fatalf("len mismatch: %d vs %d", len(got), len(aloneStats))
	}
	for i := range aloneStats {
		if got[i] != aloneStats[i] {
			t.Errorf("position %d: with other cities %+v, alone %+v", i, got[i], aloneStats[i])
		}
	}
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		wantName string
		wantErr  bool
	}{
		{"sequential", "sequential", "sequential", false},
		{"default", "", "sequential", false},
		{"parallel", "parallel", "parallel", false},
		{"unknown", "quantum", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStrategy(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewStrategy() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStrategy() error = %v", err)
			}
			if s.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}

func seq(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*0.5
	}
	return out
}

func BenchmarkSequential(b *testing.B) {
	ds := benchDataset()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sequential{}.Compute(ds, DefaultWindow)
	}
}

func BenchmarkParallel(b *testing.B) {
	ds := benchDataset()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parallel{}.Compute(ds, DefaultWindow)
	}
}

func benchDataset() *ingest.Dataset {
	var readings []models.Reading
	cities := []string{"Berlin", "Cairo", "Dubai", "Moscow", "Tokyo"}
	for _, city := range cities {
		readings = append(readings, makeSeries(city, seq(10, 3650)...)...)
	}
	return ingest.NewDataset(readings)
}
