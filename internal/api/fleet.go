package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/star/satconsole/internal/fleet"
	"github.com/star/satconsole/internal/passes"
	"github.com/star/satconsole/internal/propagation"
)

// maxTrackPoints bounds the CPU one track request can consume.
const maxTrackPoints = 720

func (s *Server) listFleet(w http.ResponseWriter, r *http.Request) {
	sats := s.deps.Fleet.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"satellites": sats, "count": len(sats)})
}

func (s *Server) getSatellite(w http.ResponseWriter, r *http.Request) {
	sat, err := s.deps.Fleet.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			writeError(w, http.StatusNotFound, "satellite not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sat)
}

type trackResponse struct {
	ID          string                    `json:"id"`
	StepSeconds int                       `json:"step_seconds"`
	Points      []propagation.GroundPoint `json:"points"`
}

// satelliteTrack returns the upcoming ground track.
// GET /api/v1/fleet/{id}/track?points=90&step=60
func (s *Server) satelliteTrack(w http.ResponseWriter, r *http.Request) {
	points, ok := intParam(r, "points", 90, 1, maxTrackPoints)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid points parameter, must be 1-"+strconv.Itoa(maxTrackPoints))
		return
	}
	step, ok := intParam(r, "step", 60, 1, 3600)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid step parameter, must be 1-3600")
		return
	}

	id := r.PathValue("id")
	track, err := s.deps.Fleet.Track(r.Context(), id, time.Duration(step)*time.Second, points)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, trackResponse{ID: id, StepSeconds: step, Points: track})
	case errors.Is(err, fleet.ErrNotFound):
		writeError(w, http.StatusNotFound, "satellite not found")
	case errors.Is(err, fleet.ErrNoPosition):
		writeError(w, http.StatusConflict, "satellite position unavailable")
	default:
		s.logger.Warn("track failed", "component", "api", "satellite", id, "error", err)
		writeError(w, http.StatusInternalServerError, "propagation failed")
	}
}

type passesResponse struct {
	ID      string              `json:"id"`
	Station propagation.Station `json:"station"`
	Passes  []passes.Pass       `json:"passes"`
	Count   int                 `json:"count"`
}

// satellitePasses predicts passes over the configured ground station.
// GET /api/v1/fleet/{id}/passes?hours=24&max=10
func (s *Server) satellitePasses(w http.ResponseWriter, r *http.Request) {
	hours, ok := intParam(r, "hours", 24, 1, 72)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid hours parameter, must be 1-72")
		return
	}
	maxPasses, ok := intParam(r, "max", 10, 1, 50)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid max parameter, must be 1-50")
		return
	}

	id := r.PathValue("id")
	st, found, err := s.deps.Fleet.Passes(r.Context(), id, time.Duration(hours)*time.Hour, maxPasses)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, passesResponse{ID: id, Station: st, Passes: found, Count: len(found)})
	case errors.Is(err, fleet.ErrNotFound):
		writeError(w, http.StatusNotFound, "satellite not found")
	case errors.Is(err, fleet.ErrNoPosition):
		writeError(w, http.StatusConflict, "satellite position unavailable")
	default:
		s.logger.Warn("pass prediction failed", "component", "api", "satellite", id, "error", err)
		writeError(w, http.StatusInternalServerError, "pass prediction failed")
	}
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
