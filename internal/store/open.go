package store

import (
	"context"

	"github.com/Rhujeraphorn/web-evana/internal/config"
)

// Open connects to the database named by a DATABASE_URL value. The embedded
// backend is migrated on open; Postgres schemas belong to the importers.
func Open(ctx context.Context, url string) (*DB, error) {
	driver, dsn := config.DatabaseDSN(url)
	switch driver {
	case "":
		return nil, ErrNotConfigured
	case config.DriverSQLite:
		db, err := NewSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	default:
		return NewPostgres(ctx, dsn)
	}
}
