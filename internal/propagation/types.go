package propagation

import "time"

// GroundPoint is a satellite's sub-satellite point at one instant.
type GroundPoint struct {
	NORADID    int       `json:"norad_id"`
	Time       time.Time `json:"time"`
	Latitude   float64   `json:"latitude"`  // degrees, [-90, 90]
	Longitude  float64   `json:"longitude"` // degrees, [-180, 180]
	AltitudeKm float64   `json:"altitude_km"`
	SpeedKmS   float64   `json:"speed_km_s"`
}

// Snapshot holds the ground points of every propagated satellite at a single
// instant.
type Snapshot struct {
	Timestamp time.Time
	Points    []GroundPoint
}

// PropConfig holds propagation configuration.
type PropConfig struct {
	Workers int // Worker pool size (default: runtime.NumCPU())
}
