package store

import (
	"context"
	"errors"

	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// RouteStore serves imported route segments and their geometries.
type RouteStore interface {
	// SegmentAttrs returns the raw attrs JSON of every imported segment of a
	// province, in import order.
	SegmentAttrs(ctx context.Context, province string) ([][]byte, error)
	// SegmentFingerprint summarises the segment rows of a province cheaply
	// enough to run on every request.
	SegmentFingerprint(ctx context.Context, province string) (Fingerprint, error)
	// RouteGeometry returns the first geometry row whose endpoints equal from
	// and to, ignoring case. ErrNotFound when there is none.
	RouteGeometry(ctx context.Context, province, from, to string) (GeometryRow, error)
}

// AgentStore serves agent itineraries.
type AgentStore interface {
	GetAgent(ctx context.Context, id int64) (model.Agent, error)
	// AgentLogs returns timeline rows in insertion order; a nil day means all days.
	AgentLogs(ctx context.Context, agentID int64, day *int) ([]model.AgentLog, error)
	// AgentRoutes returns legs ordered by day then start minute, nulls first.
	AgentRoutes(ctx context.Context, agentID int64, day *int) ([]model.AgentRoute, error)
	// LookupPOI finds a named point with coordinates in one POI table, by
	// case-insensitive equality or, when substring is set, containment.
	LookupPOI(ctx context.Context, table POITable, name string, substring bool) (model.POIMatch, error)
}

// Store is the persistence interface used by the API server.
type Store interface {
	RouteStore
	AgentStore
	Ping(ctx context.Context) error
	Close() error
}

// Fingerprint changes whenever rows are added, removed or re-imported, and
// when attrs are updated in place. On SQLite an in-place edit that keeps the
// attrs length unchanged goes unnoticed; Postgres hashes the attrs text.
type Fingerprint struct {
	Count       int64
	MaxID       int64
	AttrsDigest string
}

// GeometryRow is a stored route geometry; Attrs may be empty.
type GeometryRow struct {
	GeoJSON []byte
	Attrs   []byte
}

// POITable names a canonical point-of-interest table.
type POITable string

const (
	Chargers    POITable = "chargers"
	Attractions POITable = "attractions"
	Foods       POITable = "foods"
	Cafes       POITable = "cafes"
	Hotels      POITable = "hotels"
)

// POITables lists the tables in name-resolution precedence.
var POITables = []POITable{Chargers, Attractions, Foods, Cafes, Hotels}

// nameColumn is the display-name column searched in each POI table.
func (t POITable) nameColumn() string {
	if t == Chargers {
		return "name"
	}
	return "name_th"
}

func (t POITable) valid() bool {
	for _, p := range POITables {
		if p == t {
			return true
		}
	}
	return false
}

var (
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("store not configured")
)
