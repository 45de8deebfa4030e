package itinerary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// tripStart pulls the hotel name out of a log line such as
// "เริ่มทริป วันที่ 1 เริ่มจากโรงแรม: <name> แบต 80%".
var tripStart = regexp.MustCompile(`เริ่มทริป.*เริ่มจากโรงแรม[:\s]+([^(\s]+.*?)(?:\sแบต|\(|$)`)

func placeholder(n int) string { return fmt.Sprintf("จุดที่ %d", n) }

type coordKey struct{ lat, lon int64 }

func keyOf(lat, lon float64) coordKey {
	return coordKey{int64(math.Round(lat * 1e6)), int64(math.Round(lon * 1e6))}
}

// stopList keeps the first label seen for each coordinate.
type stopList struct {
	stops []model.Stop
	seen  map[coordKey]struct{}
}

func (l *stopList) add(label string, lat, lon float64) {
	k := keyOf(lat, lon)
	if _, ok := l.seen[k]; ok {
		return
	}
	l.seen[k] = struct{}{}
	l.stops = append(l.stops, model.Stop{Label: label, Lat: lat, Lon: lon})
}

func (l *stopList) hasLabel(names []string) bool {
	for _, s := range l.stops {
		got := strings.ToLower(strings.TrimSpace(s.Label))
		if got == "" {
			continue
		}
		for _, n := range names {
			if got == strings.ToLower(strings.TrimSpace(n)) {
				return true
			}
		}
	}
	return false
}

// anchors returns the names logged for the trip in order, with the hotel name
// recovered from trip-start lines that carry no POI.
func anchors(logs []model.AgentLog) []string {
	var out []string
	for _, l := range logs {
		if l.POIName != nil && *l.POIName != "" {
			out = append(out, *l.POIName)
			continue
		}
		if m := tripStart.FindStringSubmatch(l.Action); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// visitedNames lists logged POI names, led by the anchors and without repeats.
func visitedNames(logs []model.AgentLog, anchor []string) []string {
	var names []string
	for _, l := range logs {
		if l.POIName != nil && *l.POIName != "" {
			names = append(names, *l.POIName)
		}
	}
	if len(anchor) == 0 {
		return names
	}
	seen := make(map[string]struct{})
	var out []string
	for _, n := range append(append([]string{}, anchor...), names...) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// stops merges four sources of stop positions, most trusted first:
// POI tables for logged names, leg end points, logged coordinates and
// finally the first polyline point for an unplaced trip start.
func (r *Reconstructor) stops(ctx context.Context, agentID int64, day *int, logs []model.AgentLog, poly []model.LatLng) ([]model.Stop, error) {
	anchor := anchors(logs)
	names := visitedNames(logs, anchor)
	list := &stopList{stops: []model.Stop{}, seen: make(map[coordKey]struct{})}

	for _, n := range names {
		m, ok, err := r.findPOI(ctx, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		label := m.Label
		if label == "" {
			label = n
		}
		list.add(label, m.Lat, m.Lon)
	}

	legs, err := r.store.AgentRoutes(ctx, agentID, day)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 && day != nil && *day > 0 {
		prev := *day - 1
		if legs, err = r.store.AgentRoutes(ctx, agentID, &prev); err != nil {
			return nil, err
		}
	}
	for _, leg := range legs {
		end, ok := lastVertex(leg.Geometry)
		if !ok {
			continue
		}
		var fallback string
		if len(names) > len(list.stops) {
			fallback = names[len(list.stops)]
		}
		preferred := leg.Target
		if preferred == "" {
			preferred = fallback
		}

		m, ok, err := r.findPOI(ctx, preferred)
		if err == nil && !ok {
			m, ok, err = r.findPOI(ctx, fallback)
		}
		if err != nil {
			return nil, err
		}
		if ok {
			label := m.Label
			if label == "" {
				label = preferred
			}
			list.add(label, m.Lat, m.Lon)
			continue
		}
		label := preferred
		if label == "" {
			label = placeholder(len(list.stops) + 1)
		}
		list.add(label, end.Lat(), end.Lon())
	}

	for _, l := range logs {
		if l.Lat == nil || l.Lon == nil {
			continue
		}
		label := placeholder(len(list.stops) + 1)
		if l.POIName != nil && *l.POIName != "" {
			label = *l.POIName
		}
		list.add(label, *l.Lat, *l.Lon)
	}

	if len(anchor) > 0 && !list.hasLabel(anchor) && len(poly) > 0 {
		list.add(anchor[0], poly[0].Lat, poly[0].Lon)
	}
	return list.stops, nil
}

// findPOI resolves a name against the POI tables: an exact pass over every
// table, then a substring pass.
func (r *Reconstructor) findPOI(ctx context.Context, name string) (model.POIMatch, bool, error) {
	if strings.TrimSpace(name) == "" {
		return model.POIMatch{}, false, nil
	}
	for _, substring := range []bool{false, true} {
		for _, t := range store.POITables {
			m, err := r.store.LookupPOI(ctx, t, name, substring)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return model.POIMatch{}, false, err
			}
			return m, true, nil
		}
	}
	return model.POIMatch{}, false, nil
}
