package api

import (
	"net/http"
	"strconv"

	"github.com/Rhujeraphorn/web-evana/internal/itinerary"
)

// agentParams parses the {id} path value and the optional ?day=.
func agentParams(w http.ResponseWriter, r *http.Request) (id int64, day *int, ok bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid agent id", err.Error(), r.URL.Path)
		return 0, nil, false
	}
	if v := r.URL.Query().Get("day"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid day", err.Error(), r.URL.Path)
			return 0, nil, false
		}
		day = &d
	}
	return id, day, true
}

// AgentHandler handles GET /api/agents/{id}?day=
func (s *Server) AgentHandler(w http.ResponseWriter, r *http.Request) {
	id, day, ok := agentParams(w, r)
	if !ok {
		return
	}
	d, err := s.Itinerary.Detail(r.Context(), id, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// AgentPolylineHandler handles GET /api/agents/{id}/polyline?day=
func (s *Server) AgentPolylineHandler(w http.ResponseWriter, r *http.Request) {
	id, day, ok := agentParams(w, r)
	if !ok {
		return
	}
	pts, err := s.Itinerary.Polyline(r.Context(), id, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pts)
}

// AgentMapsLinkHandler redirects to Google Maps directions along the polyline.
func (s *Server) AgentMapsLinkHandler(w http.ResponseWriter, r *http.Request) {
	id, day, ok := agentParams(w, r)
	if !ok {
		return
	}
	pts, err := s.Itinerary.Polyline(r.Context(), id, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, itinerary.MapsLink(pts), http.StatusFound)
}
