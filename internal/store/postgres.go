package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	name:        "postgres",
	geomExpr:    func(col string) string { return "ST_AsGeoJSON(" + col + ")" },
	attrsDigest: `COALESCE(md5(string_agg(COALESCE(attrs::text, ''), '|' ORDER BY id)), '')`,
	like:        "ILIKE",
	numbered:    true,
}

// NewPostgres connects to a PostGIS database populated by the import tooling.
func NewPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db, d: postgresDialect}, nil
}
