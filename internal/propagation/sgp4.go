package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Propagate() takes Satellite by value so SGP4 error codes are not visible
// to the caller. Failures are detected by checking the output for NaN/Inf
// and unreasonable position magnitudes.

// SGP4Propagator wraps the go-satellite library for a single satellite.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator creates an SGP4 propagator from TLE lines.
//
// Lines are validated before reaching the library, because go-satellite
// calls log.Fatal on malformed input.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// eci propagates to t and checks the result. It returns the ECI position
// and velocity (km, km/s) and the Greenwich sidereal time at t.
func (p *SGP4Propagator) eci(t time.Time) (pos, vel satellite.Vector3, gmst float64, err error) {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	pos, vel = satellite.Propagate(p.sat, year, int(month), day, hour, minute, sec)

	if !finite(pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z) {
		return pos, vel, 0, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	// Position magnitude should be between ~6200km and ~50000km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return pos, vel, 0, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	gmst = satellite.GSTimeFromDate(year, int(month), day, hour, minute, sec)
	return pos, vel, gmst, nil
}

// SubPoint computes the sub-satellite point at t.
func (p *SGP4Propagator) SubPoint(t time.Time) (GroundPoint, error) {
	t = t.UTC()
	pos, vel, gmst, err := p.eci(t)
	if err != nil {
		return GroundPoint{}, err
	}
	return p.groundPoint(t, pos, vel, gmst), nil
}

func (p *SGP4Propagator) groundPoint(t time.Time, pos, vel satellite.Vector3, gmst float64) GroundPoint {
	alt, _, lla := satellite.ECIToLLA(pos, gmst)
	return GroundPoint{
		NORADID:    p.noradID,
		Time:       t,
		Latitude:   lla.Latitude * 180 / math.Pi,
		Longitude:  wrapLongitude(lla.Longitude * 180 / math.Pi),
		AltitudeKm: alt,
		SpeedKmS:   math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
	}
}

// wrapLongitude maps any angle in degrees onto [-180, 180].
func wrapLongitude(deg float64) float64 {
	return math.Remainder(deg, 360)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
