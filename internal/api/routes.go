package api

import (
	"net/http"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
)

// sourceParam reads ?source=, falling back to def when it is absent or blank.
func sourceParam(r *http.Request, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get("source")); v != "" {
		return v
	}
	return def
}

// endpoints reads the required from_name/to_name pair.
func endpoints(w http.ResponseWriter, r *http.Request) (from, to string, ok bool) {
	q := r.URL.Query()
	from, to = q.Get("from_name"), q.Get("to_name")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		writeProblem(w, http.StatusBadRequest, "Missing parameters", "from_name and to_name are required", r.URL.Path)
		return "", "", false
	}
	return from, to, true
}

// SourcesHandler handles GET /api/routes/sources
func (s *Server) SourcesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Layout.List())
}

// RoutesHandler handles GET /api/routes?source=
func (s *Server) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Cache.Get(r.Context(), sourceParam(r, sources.KeyAll))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := snap.Containers
	if out == nil {
		out = []model.RouteContainer{}
	}
	writeJSON(w, http.StatusOK, out)
}

// NodesHandler handles GET /api/routes/nodes?source=
func (s *Server) NodesHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Cache.Get(r.Context(), sourceParam(r, sources.KeyAllAgg))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Graph.Nodes())
}

// SearchHandler handles GET /api/routes/search?from_name=&to_name=&source=
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	from, to, ok := endpoints(w, r)
	if !ok {
		return
	}
	snap, err := s.Cache.Get(r.Context(), sourceParam(r, sources.KeyAllAgg))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := snap.Graph.Search(from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GeoJSONHandler handles GET /api/routes/geojson?from_name=&to_name=&source=
func (s *Server) GeoJSONHandler(w http.ResponseWriter, r *http.Request) {
	from, to, ok := endpoints(w, r)
	if !ok {
		return
	}
	fc, err := s.Geometry.Resolve(r.Context(), from, to, sourceParam(r, sources.KeyAllAgg))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}
