package api

import (
	"errors"
	"net/http"

	"github.com/star/satconsole/internal/pipeline"
)

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	ps := s.deps.Pipelines.List()
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": ps, "count": len(ps)})
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Pipelines.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			writeError(w, http.StatusNotFound, "pipeline not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	priority := pipeline.Priority(r.URL.Query().Get("priority"))
	if priority != "" && !priority.Valid() {
		writeError(w, http.StatusBadRequest, "priority must be high, medium or low")
		return
	}
	jobs := s.deps.Pipelines.Jobs(priority)
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}
