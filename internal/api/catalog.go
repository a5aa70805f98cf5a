package api

import (
	"net/http"

	"github.com/star/satconsole/internal/catalog"
)

type datasetsResponse struct {
	Datasets []catalog.Record `json:"datasets"`
	Count    int              `json:"count"`
	Total    int              `json:"total"`
}

// queryOrAll returns the named query parameter, mapping absent or empty
// values to catalog.All.
func queryOrAll(r *http.Request, name string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return catalog.All
}

// listDatasets filters the catalog.
// GET /api/v1/datasets?q=modis&satellite=Terra&type=all
func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	records := catalog.Filter(s.deps.Datasets,
		r.URL.Query().Get("q"),
		queryOrAll(r, "satellite"),
		queryOrAll(r, "type"),
	)
	writeJSON(w, http.StatusOK, datasetsResponse{
		Datasets: records,
		Count:    len(records),
		Total:    len(s.deps.Datasets),
	})
}

func (s *Server) datasetFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.FacetsOf(s.deps.Datasets))
}

func (s *Server) datasetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Summarize(s.deps.Datasets))
}
