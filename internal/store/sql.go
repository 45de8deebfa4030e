package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// dialect captures the few places the Postgres and SQLite schemas differ.
type dialect struct {
	name string
	// geomExpr renders a geometry column as GeoJSON text.
	geomExpr func(col string) string
	// attrsDigest aggregates the attrs column of the matched rows into text
	// that changes when any row's attrs are edited in place.
	attrsDigest string
	// like is the case-insensitive pattern operator.
	like string
	// numbered placeholders ($1) instead of ?
	numbered bool
}

// DB implements Store over database/sql.
type DB struct {
	db *sql.DB
	d  dialect
}

func (s *DB) rebind(q string) string {
	if !s.d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *DB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) SegmentAttrs(ctx context.Context, province string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT attrs FROM route_segments WHERE province = ? ORDER BY id`), province)
	if err != nil {
		return nil, fmt.Errorf("query route_segments: %w", err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var attrs sql.NullString
		if err := rows.Scan(&attrs); err != nil {
			return nil, err
		}
		if attrs.Valid {
			out = append(out, []byte(attrs.String))
		}
	}
	return out, rows.Err()
}

func (s *DB) SegmentFingerprint(ctx context.Context, province string) (Fingerprint, error) {
	var fp Fingerprint
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*), COALESCE(MAX(id), 0), `+s.d.attrsDigest+` FROM route_segments WHERE province = ?`), province,
	).Scan(&fp.Count, &fp.MaxID, &fp.AttrsDigest)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint route_segments: %w", err)
	}
	return fp, nil
}

func (s *DB) RouteGeometry(ctx context.Context, province, from, to string) (GeometryRow, error) {
	q := `SELECT ` + s.d.geomExpr("geom") + `, attrs FROM route_geoms
		WHERE province = ? AND lower(from_name) = lower(?) AND lower(to_name) = lower(?)
		ORDER BY id ASC LIMIT 1`
	var geom, attrs sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(q), province, strings.TrimSpace(from), strings.TrimSpace(to)).Scan(&geom, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return GeometryRow{}, ErrNotFound
	}
	if err != nil {
		return GeometryRow{}, fmt.Errorf("query route_geoms: %w", err)
	}
	if !geom.Valid || geom.String == "" {
		return GeometryRow{}, ErrNotFound
	}
	row := GeometryRow{GeoJSON: []byte(geom.String)}
	if attrs.Valid {
		row.Attrs = []byte(attrs.String)
	}
	return row, nil
}

func (s *DB) GetAgent(ctx context.Context, id int64) (model.Agent, error) {
	var (
		label, style sql.NullString
		days         sql.NullInt64
		totalKm      sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT label, style, days, total_km FROM agents WHERE id = ?`), id,
	).Scan(&label, &style, &days, &totalKm)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Agent{}, ErrNotFound
	}
	if err != nil {
		return model.Agent{}, fmt.Errorf("get agent %d: %w", id, err)
	}
	return model.Agent{
		ID:      id,
		Label:   label.String,
		Style:   style.String,
		Days:    int(days.Int64),
		TotalKm: totalKm.Float64,
	}, nil
}

func (s *DB) AgentLogs(ctx context.Context, agentID int64, day *int) ([]model.AgentLog, error) {
	q := `SELECT ts_text, day_num, action, poi_name, lat, lon FROM agent_logs WHERE agent_id = ?`
	args := []any{agentID}
	if day != nil {
		q += ` AND day_num = ?`
		args = append(args, *day)
	}
	q += ` ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query agent_logs: %w", err)
	}
	defer rows.Close()

	var out []model.AgentLog
	for rows.Next() {
		var (
			ts, action, poi sql.NullString
			dayNum          sql.NullInt64
			lat, lon        sql.NullFloat64
		)
		if err := rows.Scan(&ts, &dayNum, &action, &poi, &lat, &lon); err != nil {
			return nil, err
		}
		out = append(out, model.AgentLog{
			TSText:  ts.String,
			Day:     int(dayNum.Int64),
			Action:  action.String,
			POIName: nullString(poi),
			Lat:     nullFloat(lat),
			Lon:     nullFloat(lon),
		})
	}
	return out, rows.Err()
}

func (s *DB) AgentRoutes(ctx context.Context, agentID int64, day *int) ([]model.AgentRoute, error) {
	q := `SELECT day, action, target, poi_type_th, t_start_min, t_end_min, distance_m, ` + s.d.geomExpr("geom") + `
		FROM agent_routes WHERE agent_id = ?`
	args := []any{agentID}
	if day != nil {
		q += ` AND day = ?`
		args = append(args, *day)
	}
	q += ` ORDER BY day ASC NULLS FIRST, t_start_min ASC NULLS FIRST, id ASC`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query agent_routes: %w", err)
	}
	defer rows.Close()

	var out []model.AgentRoute
	for rows.Next() {
		var (
			d                       sql.NullInt64
			action, target, poiType sql.NullString
			start, end, dist        sql.NullFloat64
			geom                    sql.NullString
		)
		if err := rows.Scan(&d, &action, &target, &poiType, &start, &end, &dist, &geom); err != nil {
			return nil, err
		}
		r := model.AgentRoute{
			Action:    action.String,
			Target:    target.String,
			POIType:   poiType.String,
			TStartMin: nullFloat(start),
			TEndMin:   nullFloat(end),
			DistanceM: nullFloat(dist),
		}
		if d.Valid {
			v := int(d.Int64)
			r.Day = &v
		}
		if geom.Valid {
			r.Geometry = []byte(geom.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *DB) LookupPOI(ctx context.Context, table POITable, name string, substring bool) (model.POIMatch, error) {
	if !table.valid() {
		return model.POIMatch{}, fmt.Errorf("unknown poi table %q", table)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.POIMatch{}, ErrNotFound
	}
	col := table.nameColumn()
	cond := `lower(` + col + `) = lower(?)`
	arg := name
	if substring {
		cond = col + ` ` + s.d.like + ` ? ESCAPE '\'`
		arg = "%" + likeEscaper.Replace(name) + "%"
	}
	q := `SELECT ` + col + `, lat, lon FROM ` + string(table) + `
		WHERE ` + cond + ` AND lat IS NOT NULL AND lon IS NOT NULL
		ORDER BY id ASC LIMIT 1`

	var label sql.NullString
	m := model.POIMatch{Table: string(table)}
	err := s.db.QueryRowContext(ctx, s.rebind(q), arg).Scan(&label, &m.Lat, &m.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return model.POIMatch{}, ErrNotFound
	}
	if err != nil {
		return model.POIMatch{}, fmt.Errorf("lookup %s: %w", table, err)
	}
	m.Label = label.String
	return m, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
