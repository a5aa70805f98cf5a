// Package passes predicts when satellites rise above a ground station's
// horizon.
package passes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/star/satconsole/internal/propagation"
)

// ErrNoPass is returned by Next when no pass starts within the horizon.
var ErrNoPass = errors.New("no pass within horizon")

// Sky reports where a satellite appears from a station.
// *propagation.SGP4Propagator implements it.
type Sky interface {
	Look(st propagation.Station, t time.Time) (propagation.LookAngle, propagation.GroundPoint, error)
}

// TrackPoint is a sub-satellite position sampled during a pass.
type TrackPoint struct {
	Time         time.Time `json:"time"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	AltitudeKm   float64   `json:"altitude_km"`
	ElevationDeg float64   `json:"elevation_deg"`
}

// Pass is one satellite pass over a station.
type Pass struct {
	Start            time.Time    `json:"start"`
	MaxElevationTime time.Time    `json:"max_elevation_time"`
	End              time.Time    `json:"end"`
	DurationSeconds  float64      `json:"duration_seconds"`
	MaxElevationDeg  float64      `json:"max_elevation_deg"`
	AzimuthAtMaxDeg  float64      `json:"azimuth_at_max_deg"`
	StartAzimuthDeg  float64      `json:"start_azimuth_deg"`
	EndAzimuthDeg    float64      `json:"end_azimuth_deg"`
	GroundTrack      []TrackPoint `json:"ground_track"`
}

// Request holds the parameters of one pass search.
type Request struct {
	Station      propagation.Station
	Start        time.Time
	Horizon      time.Duration
	MinElevation float64 // degrees
	MaxPasses    int
}

const (
	coarseStep      = 30 * time.Second
	fineStep        = time.Second
	groundTrackStep = 10 * time.Second
	minPassDur      = 10 * time.Second
)

// Find returns the passes of one satellite that rise above the minimum
// elevation between req.Start and req.Start+req.Horizon, in time order.
// A pass still in progress at req.Start is reported from req.Start.
func Find(ctx context.Context, sky Sky, req Request) ([]Pass, error) {
	if req.MaxPasses < 1 {
		return nil, fmt.Errorf("max passes must be positive, got %d", req.MaxPasses)
	}
	if req.Horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %s", req.Horizon)
	}

	end := req.Start.Add(req.Horizon)
	var passes []Pass

	// Coarse scan for any time above the horizon, then refine.
	t := req.Start
	for t.Before(end) && len(passes) < req.MaxPasses {
		if err := ctx.Err(); err != nil {
			return passes, err
		}

		la, _, err := sky.Look(req.Station, t)
		if err != nil || la.ElevationDeg <= 0 {
			t = t.Add(coarseStep)
			continue
		}

		pass, windowEnd := refine(ctx, sky, req.Station, t, req.Start, end, req.MinElevation)
		if pass != nil && pass.End.Sub(pass.Start) >= minPassDur {
			passes = append(passes, *pass)
		}
		t = windowEnd.Add(coarseStep)
	}

	return passes, ctx.Err()
}

// refine scans at one-second resolution from just before a coarse hit to
// the set time. It returns the pass, or nil if the satellite never reached
// minElev, and the time scanning stopped.
func refine(ctx context.Context, sky Sky, st propagation.Station, coarseHit, windowStart, windowEnd time.Time, minElev float64) (*Pass, time.Time) {
	searchStart := coarseHit.Add(-coarseStep)
	if searchStart.Before(windowStart) {
		searchStart = windowStart
	}

	var (
		p         Pass
		wasAbove  bool
		foundRise bool
		lastTrack time.Time
	)

	t := searchStart
	for t.Before(windowEnd) {
		if ctx.Err() != nil {
			break
		}

		la, gp, err := sky.Look(st, t)
		if err != nil {
			t = t.Add(fineStep)
			continue
		}

		above := la.ElevationDeg >= minElev

		if above && !wasAbove && !foundRise {
			foundRise = true
			p.Start = t
			p.StartAzimuthDeg = la.AzimuthDeg
			p.MaxElevationDeg = la.ElevationDeg
			p.MaxElevationTime = t
			p.AzimuthAtMaxDeg = la.AzimuthDeg
			lastTrack = t.Add(-groundTrackStep)
		}

		if above && foundRise {
			if la.ElevationDeg > p.MaxElevationDeg {
				p.MaxElevationDeg = la.ElevationDeg
				p.MaxElevationTime = t
				p.AzimuthAtMaxDeg = la.AzimuthDeg
			}
			if t.Sub(lastTrack) >= groundTrackStep {
				lastTrack = t
				p.GroundTrack = append(p.GroundTrack, TrackPoint{
					Time:         t,
					Latitude:     gp.Latitude,
					Longitude:    gp.Longitude,
					AltitudeKm:   gp.AltitudeKm,
					ElevationDeg: la.ElevationDeg,
				})
			}
		}

		if !above && wasAbove && foundRise {
			p.End = t
			p.EndAzimuthDeg = la.AzimuthDeg
			break
		}

		// Below minElev for the whole window: give up once the satellite sets.
		if !foundRise && la.ElevationDeg <= 0 && t.After(coarseHit) {
			return nil, t
		}

		wasAbove = above
		t = t.Add(fineStep)
	}

	// Still above at the end of the window: close the pass there.
	if foundRise && p.End.IsZero() {
		p.End = t
		if la, _, err := sky.Look(st, t); err == nil {
			p.EndAzimuthDeg = la.AzimuthDeg
		}
	}

	if !foundRise {
		return nil, t
	}

	p.DurationSeconds = p.End.Sub(p.Start).Seconds()
	return &p, p.End
}
