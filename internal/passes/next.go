package passes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/satconsole/internal/propagation"
)

// Source hands out the propagator for a NORAD ID.
// *propagation.Propagator implements it.
type Source interface {
	SGP4(noradID int) (*propagation.SGP4Propagator, error)
}

// Config sets the station and search window used by a Predictor.
type Config struct {
	Station      propagation.Station
	MinElevation float64
	Horizon      time.Duration
}

// DefaultConfig observes from Svalbard, where polar orbiters pass on
// almost every revolution.
func DefaultConfig() Config {
	return Config{
		Station: propagation.Station{
			Name:         "Svalbard",
			LatitudeDeg:  78.2298,
			LongitudeDeg: 15.4078,
			AltitudeKm:   0.5,
		},
		MinElevation: 10,
		Horizon:      24 * time.Hour,
	}
}

// noPassRetry is how long a negative result is reused.
const noPassRetry = 15 * time.Minute

type nextEntry struct {
	prop  *propagation.SGP4Propagator
	from  time.Time
	pass  Pass
	found bool
}

// Predictor answers pass queries for one station. Next results are cached
// per satellite until the pass ends or the element set changes.
type Predictor struct {
	src    Source
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	next map[int]nextEntry
}

// NewPredictor returns a Predictor over src.
func NewPredictor(src Source, cfg Config, logger *slog.Logger) *Predictor {
	return &Predictor{
		src:    src,
		cfg:    cfg,
		logger: logger,
		next:   make(map[int]nextEntry),
	}
}

// Station returns the station passes are predicted for.
func (p *Predictor) Station() propagation.Station { return p.cfg.Station }

// Next returns the first pass that has not ended by from. It returns
// ErrNoPass when none starts within the configured horizon.
func (p *Predictor) Next(ctx context.Context, noradID int, from time.Time) (Pass, error) {
	prop, err := p.src.SGP4(noradID)
	if err != nil {
		return Pass{}, err
	}

	p.mu.Lock()
	e, ok := p.next[noradID]
	p.mu.Unlock()
	if ok && e.prop == prop && !from.Before(e.from) {
		switch {
		case e.found && from.Before(e.pass.End):
			return e.pass, nil
		case !e.found && from.Before(e.from.Add(noPassRetry)):
			return Pass{}, fmt.Errorf("NORAD %d: %w", noradID, ErrNoPass)
		}
	}

	start := time.Now()
	found, err := Find(ctx, prop, Request{
		Station:      p.cfg.Station,
		Start:        from,
		Horizon:      p.cfg.Horizon,
		MinElevation: p.cfg.MinElevation,
		MaxPasses:    1,
	})
	if err != nil {
		return Pass{}, fmt.Errorf("predicting passes for NORAD %d: %w", noradID, err)
	}
	p.logger.Debug("next pass predicted",
		"component", "passes",
		"norad_id", noradID,
		"station", p.cfg.Station.Name,
		"found", len(found) > 0,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	e = nextEntry{prop: prop, from: from, found: len(found) > 0}
	if e.found {
		e.pass = found[0]
	}
	p.mu.Lock()
	p.next[noradID] = e
	p.mu.Unlock()

	if !e.found {
		return Pass{}, fmt.Errorf("NORAD %d: %w", noradID, ErrNoPass)
	}
	return e.pass, nil
}

// Upcoming lists up to maxPasses passes starting from from within horizon.
func (p *Predictor) Upcoming(ctx context.Context, noradID int, from time.Time, horizon time.Duration, maxPasses int) ([]Pass, error) {
	prop, err := p.src.SGP4(noradID)
	if err != nil {
		return nil, err
	}
	found, err := Find(ctx, prop, Request{
		Station:      p.cfg.Station,
		Start:        from,
		Horizon:      horizon,
		MinElevation: p.cfg.MinElevation,
		MaxPasses:    maxPasses,
	})
	if err != nil {
		return nil, fmt.Errorf("predicting passes for NORAD %d: %w", noradID, err)
	}
	if found == nil {
		found = []Pass{}
	}
	return found, nil
}
