package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Rhujeraphorn/web-evana/internal/jsontree"
)

// Core domain types

// Origin records where a segment was loaded from. It is not serialised.
type Origin struct {
	Adapter  string
	Province string
	Path     string
}

// Segment is a directed leg between two named waypoints. Raw keeps the source
// object so every attribute round-trips to clients untouched.
type Segment struct {
	From          string
	To            string
	DistanceKm    *float64
	TravelTimeMin *float64
	EnergyKWh     *float64
	EVCostTHB     *float64
	Raw           jsontree.Value
	Origin        Origin
}

func (s Segment) MarshalJSON() ([]byte, error) {
	if s.Raw.Kind == jsontree.Object {
		return s.Raw.MarshalJSON()
	}
	out := map[string]any{"from": s.From, "to": s.To}
	for k, v := range map[string]*float64{
		"distance_km":     s.DistanceKm,
		"travel_time_min": s.TravelTimeMin,
		"energy_kwh":      s.EnergyKWh,
		"ev_cost_thb":     s.EVCostTHB,
	} {
		if v != nil {
			out[k] = *v
		}
	}
	return json.Marshal(out)
}

// RouteContainer groups segments under one agent or batch id. Bare segments
// are wrapped into a container with AgentID 0.
type RouteContainer struct {
	AgentID  int64
	Segments []Segment
	Raw      jsontree.Value
}

func (c RouteContainer) MarshalJSON() ([]byte, error) {
	if c.Raw.Kind == jsontree.Object {
		return c.Raw.MarshalJSON()
	}
	var buf bytes.Buffer
	buf.WriteString(`{"agent_id":`)
	buf.WriteString(strconv.FormatInt(c.AgentID, 10))
	buf.WriteString(`,"segments":`)
	segs := c.Segments
	if segs == nil {
		segs = []Segment{}
	}
	b, err := json.Marshal(segs)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PathResult is a shortest-hop path with summed segment attributes.
type PathResult struct {
	Path        []*Segment `json:"path"`
	TotalDist   float64    `json:"totalDist"`
	TotalTime   float64    `json:"totalTime"`
	TotalEnergy float64    `json:"totalEnergy"`
	TotalCost   float64    `json:"totalCost"`
}

// SourceInfo describes one selectable source key and whether its backing
// file or directory exists.
type SourceInfo struct {
	Key    string `json:"key"`
	NameTH string `json:"name_th"`
	File   string `json:"file"`
	Exists bool   `json:"exists"`
}

// Agent is the metadata row of a pre-computed trip simulation.
type Agent struct {
	ID      int64
	Label   string
	Style   string
	Days    int
	TotalKm float64
}

// AgentLog is one line of an agent's activity timeline.
type AgentLog struct {
	TSText  string   `json:"ts_text"`
	Day     int      `json:"day"`
	Action  string   `json:"action"`
	POIName *string  `json:"poi_name"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// AgentRoute is one geometry leg of an agent's trip. Geometry holds GeoJSON.
type AgentRoute struct {
	Day       *int
	Action    string
	Target    string
	POIType   string
	TStartMin *float64
	TEndMin   *float64
	DistanceM *float64
	Geometry  []byte
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Stop struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// POIMatch is a canonical point of interest found by name.
type POIMatch struct {
	Table string
	Label string
	Lat   float64
	Lon   float64
}

type AgentDetail struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Style      string     `json:"style"`
	TotalKm    float64    `json:"total_km"`
	Days       int        `json:"days"`
	Timeline   []AgentLog `json:"timeline"`
	Polyline   []LatLng   `json:"polyline"`
	PolylineKm float64    `json:"polyline_km"`
	Stops      []Stop     `json:"stops"`
}
