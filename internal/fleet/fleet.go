// Package fleet reports the status of the monitored satellites and, for
// satellites in service, where they are right now.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/satconsole/internal/passes"
	"github.com/star/satconsole/internal/propagation"
)

// ErrNotFound is returned for an unknown satellite ID.
var ErrNotFound = errors.New("satellite not found")

// ErrNoPosition is returned when a satellite cannot be located, either
// because it is in maintenance or because no element set is known for it.
var ErrNoPosition = errors.New("satellite position unavailable")

// Status is a satellite's operational state.
type Status string

const (
	StatusOperational Status = "operational"
	StatusMaintenance Status = "maintenance"
	StatusWarning     Status = "warning"
)

// Orbit summarizes the nominal orbit of a satellite.
type Orbit struct {
	AltitudeKm     float64 `json:"altitude_km"`
	InclinationDeg float64 `json:"inclination_deg"`
	PeriodMin      float64 `json:"period_min"`
}

// Satellite is one fleet member as reported by the console.
type Satellite struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	NORADID     int                      `json:"norad_id"`
	Status      Status                   `json:"status"`
	Signal      int                      `json:"signal"`
	Orbit       Orbit                    `json:"orbit"`
	NextPass    string                   `json:"next_pass"`
	GroundTrack string                   `json:"ground_track"`
	Position    *propagation.GroundPoint `json:"position,omitempty"`
	Pass        *passes.Pass             `json:"upcoming_pass,omitempty"`
}

// Locator computes ground points for NORAD catalog numbers.
// *propagation.Propagator implements it.
type Locator interface {
	PropagateAt(ctx context.Context, t time.Time) (*propagation.Snapshot, error)
	PointAt(noradID int, t time.Time) (propagation.GroundPoint, error)
	Track(ctx context.Context, noradID int, start time.Time, step time.Duration, n int) ([]propagation.GroundPoint, error)
}

// PassPredictor predicts passes over one ground station.
type PassPredictor interface {
	Station() propagation.Station
	Next(ctx context.Context, noradID int, from time.Time) (passes.Pass, error)
	Upcoming(ctx context.Context, noradID int, from time.Time, horizon time.Duration, maxPasses int) ([]passes.Pass, error)
}

var seed = []Satellite{
	{ID: "SAT-001", Name: "Terra Observatory", NORADID: 25994, Status: StatusOperational, Signal: 98,
		Orbit: Orbit{AltitudeKm: 705, InclinationDeg: 98.2, PeriodMin: 98.8}, NextPass: "14:23 UTC", GroundTrack: "Los Angeles, CA"},
	{ID: "SAT-002", Name: "Aqua Research", NORADID: 27424, Status: StatusOperational, Signal: 94,
		Orbit: Orbit{AltitudeKm: 705, InclinationDeg: 98.2, PeriodMin: 98.8}, NextPass: "15:47 UTC", GroundTrack: "London, UK"},
	{ID: "SAT-003", Name: "Landsat-9", NORADID: 49260, Status: StatusMaintenance, Signal: 0,
		Orbit: Orbit{AltitudeKm: 705, InclinationDeg: 98.2, PeriodMin: 99.0}, NextPass: "N/A", GroundTrack: "Maintenance Mode"},
	{ID: "SAT-004", Name: "Sentinel-2A", NORADID: 40697, Status: StatusOperational, Signal: 89,
		Orbit: Orbit{AltitudeKm: 786, InclinationDeg: 98.6, PeriodMin: 100.6}, NextPass: "16:12 UTC", GroundTrack: "Paris, France"},
	{ID: "SAT-005", Name: "MODIS Alpha", NORADID: 25995, Status: StatusWarning, Signal: 76,
		Orbit: Orbit{AltitudeKm: 705, InclinationDeg: 98.2, PeriodMin: 98.9}, NextPass: "17:35 UTC", GroundTrack: "Tokyo, Japan"},
}

// Service answers fleet queries. The fleet itself is static; positions are
// computed on every call.
type Service struct {
	satellites []Satellite
	locator    Locator
	passes     PassPredictor
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for positions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasses computes next_pass from live predictions instead of the
// static schedule.
func WithPasses(p PassPredictor) Option {
	return func(s *Service) { s.passes = p }
}

// NewService returns a Service over the seeded fleet. A nil locator reports
// every satellite without a position.
func NewService(locator Locator, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		satellites: append([]Satellite(nil), seed...),
		locator:    locator,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every satellite in fleet order, each located at the current
// time where possible. Positions come from one batch propagation.
func (s *Service) List(ctx context.Context) []Satellite {
	now := s.now()
	points := s.batch(ctx, now)
	out := make([]Satellite, len(s.satellites))
	for i, sat := range s.satellites {
		if sat.Status != StatusMaintenance && points != nil {
			if p, ok := points[sat.NORADID]; ok {
				sat.Position = &p
			} else {
				s.logger.Warn("satellite missing from propagation batch",
					"component", "fleet",
					"satellite", sat.ID,
					"norad_id", sat.NORADID,
				)
			}
		}
		out[i] = s.withPass(ctx, sat, now)
	}
	return out
}

// batch propagates the whole element set at t and indexes the points by
// NORAD ID. It returns nil when nothing could be propagated.
func (s *Service) batch(ctx context.Context, t time.Time) map[int]propagation.GroundPoint {
	if s.locator == nil {
		return nil
	}
	snap, err := s.locator.PropagateAt(ctx, t)
	if err != nil {
		s.logger.Warn("fleet propagation failed", "component", "fleet", "error", err)
		return nil
	}
	points := make(map[int]propagation.GroundPoint, len(snap.Points))
	for _, p := range snap.Points {
		points[p.NORADID] = p
	}
	return points
}

// Get returns one satellite by ID.
func (s *Service) Get(ctx context.Context, id string) (Satellite, error) {
	sat, ok := s.find(id)
	if !ok {
		return Satellite{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s.locate(ctx, sat, s.now()), nil
}

// Track returns n ground points for one satellite starting now and spaced
// step apart.
func (s *Service) Track(ctx context.Context, id string, step time.Duration, n int) ([]propagation.GroundPoint, error) {
	sat, ok := s.find(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if sat.Status == StatusMaintenance || s.locator == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrNoPosition)
	}
	track, err := s.locator.Track(ctx, sat.NORADID, s.now(), step, n)
	if err != nil {
		if errors.Is(err, propagation.ErrUnknownSatellite) || errors.Is(err, propagation.ErrNoElements) {
			return nil, fmt.Errorf("%s: %w", id, ErrNoPosition)
		}
		return nil, fmt.Errorf("tracking %s: %w", id, err)
	}
	return track, nil
}

// Passes returns the station and up to maxPasses passes of one satellite
// within horizon from now.
func (s *Service) Passes(ctx context.Context, id string, horizon time.Duration, maxPasses int) (propagation.Station, []passes.Pass, error) {
	sat, ok := s.find(id)
	if !ok {
		return propagation.Station{}, nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if sat.Status == StatusMaintenance || s.passes == nil {
		return propagation.Station{}, nil, fmt.Errorf("%s: %w", id, ErrNoPosition)
	}
	found, err := s.passes.Upcoming(ctx, sat.NORADID, s.now(), horizon, maxPasses)
	if err != nil {
		if errors.Is(err, propagation.ErrUnknownSatellite) || errors.Is(err, propagation.ErrNoElements) {
			return propagation.Station{}, nil, fmt.Errorf("%s: %w", id, ErrNoPosition)
		}
		return propagation.Station{}, nil, fmt.Errorf("predicting passes for %s: %w", id, err)
	}
	return s.passes.Station(), found, nil
}

func (s *Service) find(id string) (Satellite, bool) {
	for _, sat := range s.satellites {
		if sat.ID == id {
			return sat, true
		}
	}
	return Satellite{}, false
}

// locate attaches a position and the next pass to sat unless it is in
// maintenance. Failures are logged and leave the fields as seeded.
func (s *Service) locate(ctx context.Context, sat Satellite, now time.Time) Satellite {
	if sat.Status == StatusMaintenance {
		return sat
	}
	if s.locator != nil {
		point, err := s.locator.PointAt(sat.NORADID, now)
		if err != nil {
			s.logger.Warn("locating satellite failed",
				"component", "fleet",
				"satellite", sat.ID,
				"norad_id", sat.NORADID,
				"error", err,
			)
		} else {
			sat.Position = &point
		}
	}
	return s.withPass(ctx, sat, now)
}

// withPass fills in the next pass from the predictor.
func (s *Service) withPass(ctx context.Context, sat Satellite, now time.Time) Satellite {
	if sat.Status == StatusMaintenance || s.passes == nil {
		return sat
	}
	pass, err := s.passes.Next(ctx, sat.NORADID, now)
	switch {
	case err == nil:
		sat.Pass = &pass
		sat.NextPass = pass.Start.UTC().Format("15:04 UTC")
	case errors.Is(err, passes.ErrNoPass):
		sat.NextPass = "N/A"
	default:
		s.logger.Warn("predicting next pass failed",
			"component", "fleet",
			"satellite", sat.ID,
			"norad_id", sat.NORADID,
			"error", err,
		)
	}
	return sat
}
