package api

import (
	"errors"
	"net/http"

	"github.com/Rhujeraphorn/web-evana/internal/geometry"
	"github.com/Rhujeraphorn/web-evana/internal/routegraph"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// Problem titles shown to map clients.
const (
	titleNoSuchPlace = "ไม่พบจุดเริ่มต้นหรือปลายทางในข้อมูล"
	titleNoPath      = "ไม่พบเส้นทางตามข้อมูล"
	titleNoGeometry  = "GeoJSON not found"
)

// writeError maps domain sentinels to problem responses; anything else is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sources.ErrUnknownSource):
		writeProblem(w, http.StatusBadRequest, "Unknown source", err.Error(), r.URL.Path)
	case errors.Is(err, routegraph.ErrNoSuchPlace):
		writeProblem(w, http.StatusNotFound, titleNoSuchPlace, err.Error(), r.URL.Path)
	case errors.Is(err, routegraph.ErrNoPathFound):
		writeProblem(w, http.StatusNotFound, titleNoPath, err.Error(), r.URL.Path)
	case errors.Is(err, geometry.ErrGeometryNotFound):
		writeProblem(w, http.StatusNotFound, titleNoGeometry, err.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Store unavailable", err.Error(), r.URL.Path)
	default:
		s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), r.URL.Path)
	}
}
