package api

import "net/http"

func (s *Server) getAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Analytics.Report())
}
