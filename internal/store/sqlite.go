package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite keeps geometries as GeoJSON text, so no conversion is needed.
var sqliteDialect = dialect{
	name:     "sqlite",
	geomExpr: func(col string) string { return col },
	// No hash function in SQLite: total and position-weighted attrs size.
	attrsDigest: `COALESCE(SUM(LENGTH(attrs)), 0) || ':' || COALESCE(SUM(id * LENGTH(attrs)), 0)`,
	like:        "LIKE",
}

// NewSQLite opens an embedded database file, used for development and tests.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, d: sqliteDialect}, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS route_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		province TEXT NOT NULL,
		source_file TEXT,
		seg_id TEXT,
		from_name TEXT,
		to_name TEXT,
		distance_km REAL,
		travel_time_min REAL,
		energy_kwh REAL,
		ev_cost_thb REAL,
		attrs TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS route_segments_province ON route_segments(province)`,
	`CREATE TABLE IF NOT EXISTS route_geoms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		province TEXT NOT NULL,
		source_file TEXT,
		from_name TEXT,
		to_name TEXT,
		geom TEXT,
		attrs TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		label TEXT,
		style TEXT,
		days INTEGER,
		total_km REAL,
		province_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS agent_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER,
		ts_text TEXT,
		day_num INTEGER,
		action TEXT,
		poi_name TEXT,
		poi_id TEXT,
		lat REAL,
		lon REAL
	)`,
	`CREATE TABLE IF NOT EXISTS agent_routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER,
		day INTEGER,
		action TEXT,
		target TEXT,
		poi_type_th TEXT,
		t_start_min REAL,
		t_end_min REAL,
		distance_m REAL,
		geom TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS chargers (id TEXT PRIMARY KEY, name TEXT NOT NULL, lat REAL, lon REAL)`,
	`CREATE TABLE IF NOT EXISTS attractions (id TEXT PRIMARY KEY, name_th TEXT, lat REAL, lon REAL)`,
	`CREATE TABLE IF NOT EXISTS foods (id TEXT PRIMARY KEY, name_th TEXT, lat REAL, lon REAL)`,
	`CREATE TABLE IF NOT EXISTS cafes (id TEXT PRIMARY KEY, name_th TEXT, lat REAL, lon REAL)`,
	`CREATE TABLE IF NOT EXISTS hotels (id TEXT PRIMARY KEY, name_th TEXT, lat REAL, lon REAL)`,
}

// Migrate creates the subset of the schema this service reads. Only the
// embedded backend is bootstrapped here; Postgres is owned by the importers.
func (s *DB) Migrate(ctx context.Context) error {
	if s.d.name != sqliteDialect.name {
		return fmt.Errorf("migrate: unsupported for %s", s.d.name)
	}
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Exec runs a raw statement; used by seeding tools and tests.
func (s *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}
