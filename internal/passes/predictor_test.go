package passes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/star/satconsole/internal/propagation"
	"github.com/star/satconsole/internal/tle"
)

// Terra-like sun-synchronous elements, epoch 2026-01-01 12:00 UTC.
const (
	terraLine1 = "1 25994U 99068A   26001.50000000  .00001000  00000-0  10000-4 0  9995"
	terraLine2 = "2 25994  98.2000 101.5000 0001500  90.0000 270.0000 14.57490000    05"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

var svalbard = DefaultConfig().Station

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func terra(t testing.TB) *propagation.SGP4Propagator {
	t.Helper()
	prop, err := propagation.NewSGP4Propagator(terraLine1, terraLine2, 25994)
	if err != nil {
		t.Fatalf("NewSGP4Propagator: %v", err)
	}
	return prop
}

func TestFind(t *testing.T) {
	passes, err := Find(context.Background(), terra(t), Request{
		Station:      svalbard,
		Start:        epoch,
		Horizon:      24 * time.Hour,
		MinElevation: 0,
		MaxPasses:    20,
	})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	// A polar orbiter is visible from 78N on most of its ~14.6 daily orbits.
	if len(passes) < 8 {
		t.Fatalf("got %d passes over Svalbard in 24h, want at least 8", len(passes))
	}

	for i, p := range passes {
		if p.DurationSeconds < 10 {
			t.Errorf("pass %d: duration %.1fs too short", i, p.DurationSeconds)
		}
		if p.MaxElevationDeg <= 0 || p.MaxElevationDeg > 90 {
			t.Errorf("pass %d: max elevation %.2f out of range", i, p.MaxElevationDeg)
		}
		for _, az := range []float64{p.StartAzimuthDeg, p.AzimuthAtMaxDeg, p.EndAzimuthDeg} {
			if az < 0 || az >= 360 {
				t.Errorf("pass %d: azimuth %.2f out of range", i, az)
			}
		}
		if p.Start.After(p.MaxElevationTime) || !p.MaxElevationTime.Before(p.End) {
			t.Errorf("pass %d: time ordering violated: start=%v max=%v end=%v", i, p.Start, p.MaxElevationTime, p.End)
		}
		if i > 0 && !passes[i-1].End.Before(p.Start) {
			t.Errorf("pass %d overlaps the previous one", i)
		}
		if len(p.GroundTrack) == 0 {
			t.Errorf("pass %d: no ground track", i)
		}
		for j, gt := range p.GroundTrack {
			if gt.ElevationDeg < 0 || gt.ElevationDeg > 90 {
				t.Errorf("pass %d gt %d: elevation %.2f out of range", i, j, gt.ElevationDeg)
			}
			if gt.AltitudeKm < 600 || gt.AltitudeKm > 900 {
				t.Errorf("pass %d gt %d: altitude %.0f km out of range", i, j, gt.AltitudeKm)
			}
			if d := haversineKm(svalbard.LatitudeDeg, svalbard.LongitudeDeg, gt.Latitude, gt.Longitude); d > 3500 {
				t.Errorf("pass %d gt %d: sub-point %.0f km from station while visible", i, j, d)
			}
		}
	}
}

func TestFindMinElevationFilter(t *testing.T) {
	find := func(minEl float64) []Pass {
		passes, err := Find(context.Background(), terra(t), Request{
			Station:      svalbard,
			Start:        epoch,
			Horizon:      24 * time.Hour,
			MinElevation: minEl,
			MaxPasses:    20,
		})
		if err != nil {
			t.Fatalf("Find(min %.0f): %v", minEl, err)
		}
		return passes
	}

	low, high := find(0), find(45)
	if len(low) == 0 {
		t.Fatal("expected passes with min elevation 0")
	}
	if len(high) >= len(low) {
		t.Errorf("min elevation 45 gave %d passes, want fewer than %d", len(high), len(low))
	}
	for _, p := range high {
		if p.MaxElevationDeg < 45 {
			t.Errorf("pass peaks at %.1f, below the 45 degree minimum", p.MaxElevationDeg)
		}
	}
}

func TestFindMaxPasses(t *testing.T) {
	passes, err := Find(context.Background(), terra(t), Request{
		Station:   svalbard,
		Start:     epoch,
		Horizon:   24 * time.Hour,
		MaxPasses: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(passes) != 2 {
		t.Errorf("got %d passes, want 2", len(passes))
	}
}

func TestFindCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Find(ctx, terra(t), Request{Station: svalbard, Start: epoch, Horizon: time.Hour, MaxPasses: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFindInvalidRequest(t *testing.T) {
	if _, err := Find(context.Background(), terra(t), Request{Start: epoch, Horizon: time.Hour}); err == nil {
		t.Error("expected error for zero MaxPasses")
	}
	if _, err := Find(context.Background(), terra(t), Request{Start: epoch, MaxPasses: 1}); err == nil {
		t.Error("expected error for zero horizon")
	}
}

// mapSource serves propagators from a fixed map.
type mapSource struct {
	props map[int]*propagation.SGP4Propagator
}

func (s *mapSource) SGP4(noradID int) (*propagation.SGP4Propagator, error) {
	prop, ok := s.props[noradID]
	if !ok {
		return nil, propagation.ErrUnknownSatellite
	}
	return prop, nil
}

func TestPredictorNextCaches(t *testing.T) {
	src := &mapSource{props: map[int]*propagation.SGP4Propagator{25994: terra(t)}}
	p := NewPredictor(src, DefaultConfig(), testLogger())

	first, err := p.Next(context.Background(), 25994, epoch)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.Start.Before(epoch) {
		t.Errorf("pass starts %v, before the query time", first.Start)
	}
	if first.MaxElevationDeg < DefaultConfig().MinElevation {
		t.Errorf("max elevation %.1f below configured minimum", first.MaxElevationDeg)
	}

	// A later query before the pass ends reuses the cached result.
	again, err := p.Next(context.Background(), 25994, first.Start)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Start.Equal(first.Start) {
		t.Errorf("cached pass start = %v, want %v", again.Start, first.Start)
	}
	if e := p.next[25994]; !e.from.Equal(epoch) {
		t.Errorf("cache entry recomputed from %v, want %v", e.from, epoch)
	}

	// After the pass ends the next one is computed.
	later, err := p.Next(context.Background(), 25994, first.End.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !later.Start.After(first.End) {
		t.Errorf("next pass starts %v, not after the previous end %v", later.Start, first.End)
	}
}

func TestPredictorUnknownSatellite(t *testing.T) {
	p := NewPredictor(&mapSource{}, DefaultConfig(), testLogger())
	if _, err := p.Next(context.Background(), 1, epoch); !errors.Is(err, propagation.ErrUnknownSatellite) {
		t.Errorf("Next err = %v, want ErrUnknownSatellite", err)
	}
	if _, err := p.Upcoming(context.Background(), 1, epoch, time.Hour, 3); !errors.Is(err, propagation.ErrUnknownSatellite) {
		t.Errorf("Upcoming err = %v, want ErrUnknownSatellite", err)
	}
}

func TestPredictorNoPass(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinElevation = 89.99
	cfg.Horizon = time.Hour
	src := &mapSource{props: map[int]*propagation.SGP4Propagator{25994: terra(t)}}
	p := NewPredictor(src, cfg, testLogger())

	if _, err := p.Next(context.Background(), 25994, epoch); !errors.Is(err, ErrNoPass) {
		t.Errorf("err = %v, want ErrNoPass", err)
	}
}

func TestPredictorUpcomingFromPropagator(t *testing.T) {
	set, err := tle.LoadFleet(testLogger())
	if err != nil {
		t.Fatal(err)
	}
	store := tle.NewStore()
	store.Set(set)
	prop := propagation.NewPropagator(store, propagation.PropConfig{Workers: 1}, testLogger())
	p := NewPredictor(prop, DefaultConfig(), testLogger())

	passes, err := p.Upcoming(context.Background(), 40697, epoch, 12*time.Hour, 3)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(passes) == 0 || len(passes) > 3 {
		t.Errorf("got %d passes, want 1-3", len(passes))
	}
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return r * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func BenchmarkNextPassFleet(b *testing.B) {
	prop := terra(b)
	req := Request{Station: svalbard, Start: epoch, Horizon: 24 * time.Hour, MinElevation: 10, MaxPasses: 1}
	for b.Loop() {
		if _, err := Find(context.Background(), prop, req); err != nil {
			b.Fatal(err)
		}
	}
}
