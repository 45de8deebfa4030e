package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhujeraphorn/web-evana/internal/store"
	"github.com/Rhujeraphorn/web-evana/internal/store/storetest"
)

func TestSegmentAttrsAndFingerprint(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	fp, err := db.SegmentFingerprint(ctx, "lampang")
	require.NoError(t, err)
	assert.Zero(t, fp.Count)
	assert.Zero(t, fp.MaxID)

	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES (?, ?)`, "lampang", `{"from":"A","to":"B"}`)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES (?, ?)`, "lampang", `"{\"from\":\"B\",\"to\":\"C\"}"`)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES (?, ?)`, "lamphun", `{"from":"X","to":"Y"}`)

	attrs, err := db.SegmentAttrs(ctx, "lampang")
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.JSONEq(t, `{"from":"A","to":"B"}`, string(attrs[0]))

	fp, err = db.SegmentFingerprint(ctx, "lampang")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fp.Count)
	assert.Equal(t, int64(2), fp.MaxID)
}

func TestFingerprintTracksAttrsUpdate(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES (?, ?)`, "lampang", `{"from":"A","to":"B"}`)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES (?, ?)`, "lampang", `{"from":"B","to":"C"}`)

	before, err := db.SegmentFingerprint(ctx, "lampang")
	require.NoError(t, err)

	storetest.MustExec(t, db, `UPDATE route_segments SET attrs = ? WHERE id = 1`, `{"from":"A","to":"B","distance_km":4.5}`)
	after, err := db.SegmentFingerprint(ctx, "lampang")
	require.NoError(t, err)
	assert.Equal(t, before.Count, after.Count)
	assert.Equal(t, before.MaxID, after.MaxID)
	assert.NotEqual(t, before, after)

	storetest.MustExec(t, db, `UPDATE route_segments SET attrs = ? WHERE id = 1`, `{"from":"A","to":"B"}`)
	storetest.MustExec(t, db, `UPDATE route_segments SET attrs = ? WHERE id = 2`, `{"from":"B","to":"C","distance_km":4.5}`)
	moved, err := db.SegmentFingerprint(ctx, "lampang")
	require.NoError(t, err)
	assert.NotEqual(t, after, moved, "the same growth on another row still counts")
}

func TestRouteGeometry(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()
	storetest.MustExec(t, db, `INSERT INTO route_geoms (province, from_name, to_name, geom, attrs) VALUES (?, ?, ?, ?, ?)`,
		"chiang-mai", "Hotel A", "Doi Suthep", `{"type":"LineString","coordinates":[[98.9,18.7],[98.92,18.8]]}`, `{"kind":"drive"}`)
	storetest.MustExec(t, db, `INSERT INTO route_geoms (province, from_name, to_name, geom) VALUES (?, ?, ?, ?)`,
		"chiang-mai", "hotel a", "doi suthep", `{"type":"Point","coordinates":[1,2]}`)

	row, err := db.RouteGeometry(ctx, "chiang-mai", " HOTEL A ", "doi SUTHEP")
	require.NoError(t, err)
	assert.Contains(t, string(row.GeoJSON), "LineString")
	assert.JSONEq(t, `{"kind":"drive"}`, string(row.Attrs))

	_, err = db.RouteGeometry(ctx, "lampang", "Hotel A", "Doi Suthep")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAgentQueries(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()

	_, err := db.GetAgent(ctx, 7)
	assert.ErrorIs(t, err, store.ErrNotFound)

	storetest.MustExec(t, db, `INSERT INTO agents (id, label, days, total_km) VALUES (7, NULL, 2, 123.5)`)
	a, err := db.GetAgent(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Empty(t, a.Label)
	assert.Equal(t, 2, a.Days)
	assert.InDelta(t, 123.5, a.TotalKm, 1e-9)

	storetest.MustExec(t, db, `INSERT INTO agent_logs (agent_id, ts_text, day_num, action, poi_name, lat, lon) VALUES (7, '08:00', 1, 'start', 'Hotel A', 18.7, 98.9)`)
	storetest.MustExec(t, db, `INSERT INTO agent_logs (agent_id, ts_text, day_num, action) VALUES (7, '09:00', 2, 'drive')`)

	logs, err := db.AgentLogs(ctx, 7, nil)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].POIName)
	assert.Equal(t, "Hotel A", *logs[0].POIName)
	assert.Nil(t, logs[1].POIName)
	assert.Nil(t, logs[1].Lat)

	day := 2
	logs, err = db.AgentLogs(ctx, 7, &day)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "drive", logs[0].Action)

	storetest.MustExec(t, db, `INSERT INTO agent_routes (agent_id, day, t_start_min, target, geom) VALUES (7, 1, 30, 'second', '{}')`)
	storetest.MustExec(t, db, `INSERT INTO agent_routes (agent_id, day, t_start_min, target, geom) VALUES (7, 1, 10, 'first', '{}')`)
	storetest.MustExec(t, db, `INSERT INTO agent_routes (agent_id, day, t_start_min, target) VALUES (7, NULL, NULL, 'undated')`)

	legs, err := db.AgentRoutes(ctx, 7, nil)
	require.NoError(t, err)
	require.Len(t, legs, 3)
	assert.Equal(t, "undated", legs[0].Target)
	assert.Nil(t, legs[0].Day)
	assert.Nil(t, legs[0].Geometry)
	assert.Equal(t, "first", legs[1].Target)
	assert.Equal(t, "second", legs[2].Target)
}

func TestLookupPOI(t *testing.T) {
	db := storetest.New(t)
	ctx := t.Context()
	storetest.MustExec(t, db, `INSERT INTO hotels (id, name_th, lat, lon) VALUES ('h1', 'Riverside Hotel', 18.78, 98.99)`)
	storetest.MustExec(t, db, `INSERT INTO hotels (id, name_th, lat, lon) VALUES ('h0', 'No Coords', NULL, NULL)`)
	storetest.MustExec(t, db, `INSERT INTO chargers (id, name, lat, lon) VALUES ('c1', 'PEA Volta 50%', 18.1, 98.1)`)

	m, err := db.LookupPOI(ctx, store.Hotels, "riverside hotel", false)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Hotel", m.Label)
	assert.Equal(t, "hotels", m.Table)

	_, err = db.LookupPOI(ctx, store.Hotels, "riverside", false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	m, err = db.LookupPOI(ctx, store.Hotels, "riverside", true)
	require.NoError(t, err)
	assert.InDelta(t, 18.78, m.Lat, 1e-9)

	_, err = db.LookupPOI(ctx, store.Hotels, "No Coords", false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	m, err = db.LookupPOI(ctx, store.Chargers, "volta 50%", true)
	require.NoError(t, err)
	assert.Equal(t, "PEA Volta 50%", m.Label)

	_, err = db.LookupPOI(ctx, store.Chargers, "volta 5_%", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = db.LookupPOI(ctx, store.POITable("users"), "x", false)
	assert.Error(t, err)
}
