package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/satconsole/internal/metrics"
	"github.com/star/satconsole/internal/tle"
)

// ErrNoElements is returned when the store holds no element set.
var ErrNoElements = errors.New("no element set loaded")

// ErrUnknownSatellite is returned by PointAt for a NORAD ID missing from the
// current element set.
var ErrUnknownSatellite = errors.New("no element set for satellite")

// sgp4Cache holds preinitialized SGP4 propagators for one element set.
// Immutable after construction; safe for concurrent reads.
type sgp4Cache struct {
	props    map[int]*SGP4Propagator
	loadedAt time.Time
}

// Propagator computes ground points for the element set held in a store.
type Propagator struct {
	store  *tle.Store
	pool   *WorkerPool
	config PropConfig
	logger *slog.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a new propagation orchestrator.
func NewPropagator(store *tle.Store, config PropConfig, logger *slog.Logger) *Propagator {
	return &Propagator{
		store:  store,
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// cachedProps returns preinitialized propagators for set, rebuilding the
// cache when the set has changed (double-checked locking).
func (p *Propagator) cachedProps(set *tle.Set) map[int]*SGP4Propagator {
	if c := p.sgp4.Load(); c != nil && c.loadedAt.Equal(set.LoadedAt) {
		return c.props
	}

	p.sgp4Mu.Lock()
	defer p.sgp4Mu.Unlock()

	if c := p.sgp4.Load(); c != nil && c.loadedAt.Equal(set.LoadedAt) {
		return c.props
	}

	props := make(map[int]*SGP4Propagator, len(set.Elements))
	var skipped int
	for _, e := range set.Elements {
		if _, ok := props[e.NORADID]; ok {
			continue
		}
		sp, err := NewSGP4Propagator(e.Line1, e.Line2, e.NORADID)
		if err != nil {
			p.logger.Warn("sgp4 cache init failed", "component", "propagation", "norad_id", e.NORADID, "error", err)
			skipped++
			continue
		}
		props[e.NORADID] = sp
	}

	p.logger.Info("sgp4 propagator cache rebuilt",
		"component", "propagation",
		"cached", len(props),
		"skipped", skipped,
		"source", set.Source,
	)
	p.sgp4.Store(&sgp4Cache{props: props, loadedAt: set.LoadedAt})
	return props
}

// PropagateAt computes ground points for every satellite in the current
// element set, sorted by NORAD ID.
func (p *Propagator) PropagateAt(ctx context.Context, targetTime time.Time) (*Snapshot, error) {
	set := p.store.Get()
	if set == nil {
		return nil, ErrNoElements
	}

	props := p.cachedProps(set)

	start := time.Now()
	points, successCount, errorCount := p.pool.PropagateBatch(ctx, set.Elements, targetTime, props)
	duration := time.Since(start)

	metrics.RecordPropagation(duration, successCount, errorCount)

	p.logger.Debug("propagation complete",
		"component", "propagation",
		"success", successCount,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(points, func(i, j int) bool { return points[i].NORADID < points[j].NORADID })
	return &Snapshot{Timestamp: targetTime, Points: points}, nil
}

// SGP4 returns the cached propagator for one satellite of the current
// element set. The pointer changes when a new set is loaded.
func (p *Propagator) SGP4(noradID int) (*SGP4Propagator, error) {
	set := p.store.Get()
	if set == nil {
		return nil, ErrNoElements
	}
	prop, ok := p.cachedProps(set)[noradID]
	if !ok {
		return nil, fmt.Errorf("NORAD %d: %w", noradID, ErrUnknownSatellite)
	}
	return prop, nil
}

// PointAt computes one satellite's ground point at targetTime.
func (p *Propagator) PointAt(noradID int, targetTime time.Time) (GroundPoint, error) {
	prop, err := p.SGP4(noradID)
	if err != nil {
		return GroundPoint{}, err
	}

	start := time.Now()
	point, err := prop.SubPoint(targetTime)
	if err != nil {
		metrics.RecordPropagation(time.Since(start), 0, 1)
		return GroundPoint{}, err
	}
	metrics.RecordPropagation(time.Since(start), 1, 0)
	return point, nil
}

// Track computes n ground points for one satellite starting at start and
// spaced step apart.
func (p *Propagator) Track(ctx context.Context, noradID int, start time.Time, step time.Duration, n int) ([]GroundPoint, error) {
	track := make([]GroundPoint, 0, max(n, 0))
	for i := range n {
		if err := ctx.Err(); err != nil {
			return track, err
		}
		t := start.Add(time.Duration(i) * step)
		point, err := p.PointAt(noradID, t)
		if err != nil {
			return track, fmt.Errorf("track point %d at %s: %w", i, t.Format(time.RFC3339), err)
		}
		track = append(track, point)
	}
	return track, nil
}
