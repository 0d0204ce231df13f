package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/cache"
	"github.com/cherrryana/temperature-monitor/internal/client"
	"github.com/cherrryana/temperature-monitor/internal/models"
)

// fakeClient serves canned readings per city, with optional per-city errors and
// artificial latency to exercise completion-order handling.
type fakeClient struct {
	readings map[string]models.LiveReading
	errs     map[string]error
	delays   map[string]time.Duration
	calls    int32
}

func (f *fakeClient) CurrentReading(ctx context.Context, city string) (models.LiveReading, error) {
	atomic.AddInt32(&f.calls, 1)
	if d := f.delays[city]; d > 0 {
		select {
		case <-ctx.Done():
			return models.LiveReading{}, ctx.Err()
		case <-time.After(d):
		}
	}
	if err := f.errs[city]; err != nil {
		return models.LiveReading{}, err
	}
	return f.readings[city], nil
}

func (f *fakeClient) ValidateAPIKey(ctx context.Context) error { return nil }

func threeCityClient() *fakeClient {
	return &fakeClient{
		readings: map[string]models.LiveReading{
			"Berlin": {City: "Berlin", Temperature: 12.5},
			"Cairo":  {City: "Cairo", Temperature: 31.0},
			"Oslo":   {City: "Oslo", Temperature: -3.2},
		},
	}
}

func TestNew(t *testing.T) {
	source := NewSource(threeCityClient(), nil, 0, nil)

	tests := []struct {
		arg      string
		wantName string
		wantErr  bool
	}{
		{"sequential", "sequential", false},
		{"concurrent", "concurrent", false},
		{"", "concurrent", false},
		{"eager", "", true},
	}
	for _, tt := range tests {
		f, err := New(tt.arg, source)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q) expected error", tt.arg)
			}
			continue
		}
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.arg, err)
		}
		if f.Name() != tt.wantName {
			t.Errorf("New(%q).Name() = %q, want %q", tt.arg, f.Name(), tt.wantName)
		}
	}
}

func TestConcurrent_DuplicateCityFillsEverySlot(t *testing.T) {
	f := &Concurrent{source: NewSource(threeCityClient(), nil, 0, nil)}
	cities := []string{"Berlin", "Cairo", "Berlin"}

	results := f.FetchAll(context.Background(), cities)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range cities {
		if results[i].City != want {
			t.Errorf("results[%d].City = %q, want %q", i, results[i].City, want)
		}
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, results[i].Err)
		}
	}
	if got := results[0].Reading.Temperature; got != 12.5 {
		t.Errorf("results[0].Reading.Temperature = %v, want 12.5", got)
	}
	if got := results[2].Reading.Temperature; got != 12.5 {
		t.Errorf("results[2].Reading.Temperature = %v, want 12.5", got)
	}
}

func TestFetchers_InputOrderPreserved(t *testing.T) {
	cities := []string{"Oslo", "Berlin", "Cairo"}

	fetchers := []Fetcher{
		&Sequential{source: NewSource(threeCityClient(), nil, 0, nil)},
		&Concurrent{source: NewSource(&fakeClient{
			readings: threeCityClient().readings,
			// Reverse the completion order; results must still come back
			// in input order.
			delays: map[string]time.Duration{
				"Oslo":   30 * time.Millisecond,
				"Berlin": 15 * time.Millisecond,
				"Cairo":  time.Millisecond,
			},
		}, nil, 0, nil)},
	}

	for _, f := range fetchers {
		t.Run(f.Name(), func(t *testing.T) {
			results := f.FetchAll(context.Background(), cities)
			if len(results) != len(cities) {
				t.Fatalf("len(results) = %d, want %d", len(results), len(cities))
			}
			for i, city := range cities {
				if results[i].City != city {
					t.Errorf("results[%d].City = %q, want %q", i, results[i].City, city)
				}
				if results[i].Err != nil {
					t.Errorf("results[%d].Err = %v, want nil", i, results[i].Err)
				}
			}
			if results[0].Reading.Temperature != -3.2 {
				t.Errorf("Oslo temperature = %v, want -3.2", results[0].Reading.Temperature)
			}
		})
	}
}

func TestFetchers_PartialFailureIsolation(t *testing.T) {
	fc := threeCityClient()
	fc.errs = map[string]error{"Cairo": client.ErrCityNotFound}
	cities := []string{"Berlin", "Cairo", "Oslo"}

	fetchers := []Fetcher{
		&Sequential{source: NewSource(fc, nil, 0, nil)},
		&Concurrent{source: NewSource(fc, nil, 0, nil)},
	}

	for _, f := range fetchers {
		t.Run(f.Name(), func(t *testing.T) {
			results := f.FetchAll(context.Background(), cities)

			if results[0].Err != nil || results[2].Err != nil {
				t.Errorf("healthy cities failed: %v, %v", results[0].Err, results[2].Err)
			}
			if !errors.Is(results[1].Err, client.ErrCityNotFound) {
				t.Errorf("Cairo Err = %v, want ErrCityNotFound", results[1].Err)
			}
			if results[1].Reading != (models.LiveReading{}) {
				t.Errorf("failed city carries a reading: %+v", results[1].Reading)
			}
		})
	}
}

func TestFetchers_UnauthorizedReportedPerCity(t *testing.T) {
	fc := &fakeClient{
		errs: map[string]error{
			"Berlin": client.ErrInvalidAPIKey,
			"Cairo":  client.ErrInvalidAPIKey,
		},
	}
	f := &Concurrent{source: NewSource(fc, nil, 0, nil)}

	results := f.FetchAll(context.Background(), []string{"Berlin", "Cairo"})
	for _, r := range results {
		if !errors.Is(r.Err, client.ErrInvalidAPIKey) {
			t.Errorf("%s Err = %v, want ErrInvalidAPIKey", r.City, r.Err)
		}
	}
}

func TestSource_CacheHitSkipsClient(t *testing.T) {
	fc := threeCityClient()
	c := cache.NewInMemoryCache()
	source := NewSource(fc, c, time.Minute, nil)
	ctx := context.Background()

	first, err := source.Fetch(ctx, "Berlin")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := source.Fetch(ctx, "Berlin")
	if err != nil {
		t.Fatalf("Fetch() second error = %v", err)
	}

	if first != second {
		t.Errorf("cached reading differs: %+v vs %+v", first, second)
	}
	if got := atomic.LoadInt32(&fc.calls); got != 1 {
		t.Errorf("client called %d times, want 1 (second fetch served from cache)", got)
	}
}

func TestSource_ErrorsNotCached(t *testing.T) {
	fc := &fakeClient{errs: map[string]error{"Berlin": client.ErrUpstreamFailure}}
	source := NewSource(fc, cache.NewInMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	if _, err := source.Fetch(ctx, "Berlin"); err == nil {
		t.Fatal("Fetch() expected error")
	}
	if _, err := source.Fetch(ctx, "Berlin"); err == nil {
		t.Fatal("Fetch() second call expected error")
	}
	if got := atomic.LoadInt32(&fc.calls); got != 2 {
		t.Errorf("client called %d times, want 2 (failures must not populate the cache)", got)
	}
}

func TestSequential_CancelledContext(t *testing.T) {
	f := &Sequential{source: NewSource(threeCityClient(), nil, 0, nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := f.FetchAll(ctx, []string{"Berlin", "Cairo"})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s Err = %v, want context.Canceled", r.City, r.Err)
		}
	}
}

func TestConcurrent_CancelledMidFlight(t *testing.T) {
	fc := threeCityClient()
	fc.delays = map[string]time.Duration{
		"Berlin": time.Millisecond,
		"Cairo":  200 * time.Millisecond,
	}
	f := &Concurrent{source: NewSource(fc, nil, 0, nil)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := f.FetchAll(ctx, []string{"Berlin", "Cairo"})

	if results[0].Err != nil {
		t.Errorf("Berlin Err = %v, want nil (completed before cancellation)", results[0].Err)
	}
	if !errors.Is(results[1].Err, context.DeadlineExceeded) {
		t.Errorf("Cairo Err = %v, want context.DeadlineExceeded", results[1].Err)
	}
}
