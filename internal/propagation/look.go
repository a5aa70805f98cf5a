package propagation

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Station is a ground station that satellites are observed from.
type Station struct {
	Name         string  `json:"name"`
	LatitudeDeg  float64 `json:"latitude"`
	LongitudeDeg float64 `json:"longitude"`
	AltitudeKm   float64 `json:"altitude_km"`
}

// LookAngle is the direction from a station to a satellite.
type LookAngle struct {
	AzimuthDeg   float64 `json:"azimuth_deg"`   // [0, 360), clockwise from north
	ElevationDeg float64 `json:"elevation_deg"` // [-90, 90], above the horizon when positive
	RangeKm      float64 `json:"range_km"`
}

// Look computes where the satellite appears from st at t, together with its
// sub-satellite point at the same instant.
func (p *SGP4Propagator) Look(st Station, t time.Time) (LookAngle, GroundPoint, error) {
	t = t.UTC()
	pos, vel, gmst, err := p.eci(t)
	if err != nil {
		return LookAngle{}, GroundPoint{}, err
	}

	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	jday := satellite.JDay(year, int(month), day, hour, minute, sec)

	obs := satellite.LatLong{
		Latitude:  st.LatitudeDeg * math.Pi / 180,
		Longitude: st.LongitudeDeg * math.Pi / 180,
	}
	la := satellite.ECIToLookAngles(pos, obs, st.AltitudeKm, jday)

	angle := LookAngle{
		AzimuthDeg:   math.Mod(la.Az*180/math.Pi+360, 360),
		ElevationDeg: la.El * 180 / math.Pi,
		RangeKm:      la.Rg,
	}
	return angle, p.groundPoint(t, pos, vel, gmst), nil
}
