package sources

import (
	"github.com/Rhujeraphorn/web-evana/internal/jsontree"
	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// extFileKey tags segments read from a user drop directory with their file.
const extFileKey = "_ext_file"

func isContainer(v jsontree.Value) bool {
	if v.Kind != jsontree.Object {
		return false
	}
	segs, ok := v.Get("segments")
	return ok && segs.Kind == jsontree.Array
}

func isSegment(v jsontree.Value) bool {
	return v.Kind == jsontree.Object && v.Has("from") && v.Has("to")
}

// routeLike matches what the recursive adapters yield: containers first,
// then bare segments.
func routeLike(v jsontree.Value) bool {
	return isContainer(v) || isSegment(v)
}

func decodeSegment(v jsontree.Value, origin model.Origin) model.Segment {
	seg := model.Segment{Raw: v, Origin: origin}
	if f, ok := v.Get("from"); ok {
		seg.From = f.Text()
	}
	if t, ok := v.Get("to"); ok {
		seg.To = t.Text()
	}
	seg.DistanceKm = number(v, "distance_km")
	seg.TravelTimeMin = number(v, "travel_time_min")
	seg.EnergyKWh = number(v, "energy_kwh")
	seg.EVCostTHB = number(v, "ev_cost_thb")
	return seg
}

func number(v jsontree.Value, key string) *float64 {
	field, ok := v.Get(key)
	if !ok {
		return nil
	}
	f, ok := field.Float()
	if !ok {
		return nil
	}
	return &f
}

// decodeContainer reads a container-shaped object. Non-object segment items
// stay in Raw but carry no graph edge.
func decodeContainer(v jsontree.Value, origin model.Origin) model.RouteContainer {
	c := model.RouteContainer{Raw: v}
	if id, ok := v.Get("agent_id"); ok {
		c.AgentID, _ = id.Int()
	}
	segs, _ := v.Get("segments")
	for _, item := range segs.Items {
		if item.Kind != jsontree.Object {
			continue
		}
		c.Segments = append(c.Segments, decodeSegment(item, origin))
	}
	return c
}

// wrapSegment puts a bare segment into a synthetic container with id 0.
func wrapSegment(v jsontree.Value, origin model.Origin) model.RouteContainer {
	return model.RouteContainer{Segments: []model.Segment{decodeSegment(v, origin)}}
}

// containersFrom converts route-like objects, wrapping bare segments.
func containersFrom(found []jsontree.Value, origin model.Origin) []model.RouteContainer {
	out := make([]model.RouteContainer, 0, len(found))
	for _, v := range found {
		if isContainer(v) {
			out = append(out, decodeContainer(v, origin))
		} else if isSegment(v) {
			out = append(out, wrapSegment(v, origin))
		}
	}
	return out
}

// decodeStoreAttrs reads one route_segments.attrs value, which importers may
// have stored double-encoded as a JSON string.
func decodeStoreAttrs(b []byte) (jsontree.Value, bool) {
	v, err := jsontree.Parse(b)
	if err != nil {
		return jsontree.Value{}, false
	}
	if v.Kind == jsontree.String {
		if v, err = jsontree.Parse([]byte(v.Str)); err != nil {
			return jsontree.Value{}, false
		}
	}
	return v, v.Kind == jsontree.Object
}
