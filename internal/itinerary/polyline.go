package itinerary

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

const earthRadiusKm = 6371.0088

// Polyline returns the agent's route vertices in leg order. A day with no
// vertices falls back to the previous day, since some imports index days
// from zero.
func (r *Reconstructor) Polyline(ctx context.Context, agentID int64, day *int) ([]model.LatLng, error) {
	if r.store == nil {
		return nil, store.ErrNotConfigured
	}
	pts, err := r.polylineFor(ctx, agentID, day)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 && day != nil && *day > 0 {
		prev := *day - 1
		if pts, err = r.polylineFor(ctx, agentID, &prev); err != nil {
			return nil, err
		}
	}
	return pts, nil
}

func (r *Reconstructor) polylineFor(ctx context.Context, agentID int64, day *int) ([]model.LatLng, error) {
	legs, err := r.store.AgentRoutes(ctx, agentID, day)
	if err != nil {
		return nil, err
	}
	pts := []model.LatLng{}
	for _, leg := range legs {
		for _, p := range vertices(leg.Geometry) {
			ll := model.LatLng{Lat: p.Lat(), Lon: p.Lon()}
			if n := len(pts); n > 0 && pts[n-1] == ll {
				continue
			}
			pts = append(pts, ll)
		}
	}
	return pts, nil
}

// vertices flattens a GeoJSON geometry into its points. Unparseable or
// areal geometries yield nothing.
func vertices(raw []byte) []orb.Point {
	if len(raw) == 0 {
		return nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g == nil {
		return nil
	}
	switch geo := g.Geometry().(type) {
	case orb.Point:
		return []orb.Point{geo}
	case orb.MultiPoint:
		return geo
	case orb.LineString:
		return geo
	case orb.MultiLineString:
		var out []orb.Point
		for _, ls := range geo {
			out = append(out, ls...)
		}
		return out
	}
	return nil
}

// lastVertex is where a leg ends.
func lastVertex(raw []byte) (orb.Point, bool) {
	pts := vertices(raw)
	if len(pts) == 0 {
		if g, err := geojson.UnmarshalGeometry(raw); err == nil && g != nil {
			if poly, ok := g.Geometry().(orb.Polygon); ok && len(poly) > 0 {
				pts = poly[len(poly)-1]
			}
		}
	}
	if len(pts) == 0 {
		return orb.Point{}, false
	}
	return pts[len(pts)-1], true
}

// PolylineLength is the great-circle length of pts in kilometres, rounded
// to metres.
func PolylineLength(pts []model.LatLng) float64 {
	var rad float64
	for i := 1; i < len(pts); i++ {
		a := s2.LatLngFromDegrees(pts[i-1].Lat, pts[i-1].Lon)
		b := s2.LatLngFromDegrees(pts[i].Lat, pts[i].Lon)
		rad += a.Distance(b).Radians()
	}
	return math.Round(rad*earthRadiusKm*1000) / 1000
}

// Default map centre when an itinerary has no geometry.
var defaultCentre = model.LatLng{Lat: 18.79, Lon: 98.99}

const maxMapsWaypoints = 10

// MapsLink builds a Google Maps URL for the polyline: directions through the
// first waypoints, or a pin when there is at most one point.
func MapsLink(pts []model.LatLng) string {
	switch len(pts) {
	case 0:
		return "https://www.google.com/maps/?q=" + latLonText(defaultCentre)
	case 1:
		return "https://www.google.com/maps/?q=" + latLonText(pts[0])
	}
	if len(pts) > maxMapsWaypoints {
		pts = pts[:maxMapsWaypoints]
	}
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = latLonText(p)
	}
	return "https://www.google.com/maps/dir/" + strings.Join(parts, "/")
}

func latLonText(p model.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}
