package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhujeraphorn/web-evana/internal/api"
	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/events"
	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
)

const lamphunBundle = `[{"agent_id":3,"segments":[
	{"from":"Hotel","to":"Wat","distance_km":2,"travel_time_min":5},
	{"from":"Wat","to":"Market","distance_km":3,"travel_time_min":7}]}]`

func writeBundle(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Lamphun_trip_segments_ev.json"), []byte(lamphunBundle), 0o644))
}

func testServer(t *testing.T, broker events.Bus) (*api.Server, *httptest.Server) {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	root := t.TempDir()
	layout := sources.Layout{DataDir: filepath.Join(root, "data"), OutputRoot: filepath.Join(root, "out"), Catalog: catalog}
	writeBundle(t, layout.DataDir)

	srv := api.NewServer(config.Config{}, layout, nil, broker, config.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchAgainstServer(t *testing.T) {
	_, ts := testServer(t, nil)

	out, err := execute(t, "--server", ts.URL, "search", "hotel", "market", "--source", "lamphun")
	require.NoError(t, err)
	assert.Contains(t, out, `"totalDist": 5`)
	assert.Contains(t, out, `"totalTime": 12`)

	_, err = execute(t, "--server", ts.URL, "nodes", "--source", "bangkok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400 Unknown source")
}

func TestLocalBackend(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	writeBundle(t, dataDir)
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("OUTPUT_ROUTES_DIR", filepath.Join(root, "out"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROVINCES_FILE", "")

	out, err := execute(t, "--server=", "nodes", "--source", "lamphun")
	require.NoError(t, err)
	assert.Contains(t, out, `"Hotel"`)
	assert.Contains(t, out, `"Market"`)

	_, err = execute(t, "--server=", "agent", "1")
	assert.Error(t, err)
}

type fakeBackend struct{ backend }

func (fakeBackend) Agent(_ context.Context, id int64, day *int) (any, error) {
	return model.AgentDetail{
		ID:       id,
		Polyline: []model.LatLng{{Lat: 18.5, Lon: 99}, {Lat: 18.6, Lon: 99.1}},
	}, nil
}

func (fakeBackend) Close() error { return nil }

func TestAgentMapsLink(t *testing.T) {
	orig := newBackend
	newBackend = func(context.Context) (backend, error) { return fakeBackend{}, nil }
	t.Cleanup(func() { newBackend = orig })

	out, err := execute(t, "agent", "12", "--maps")
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps/dir/18.5,99/18.6,99.1\n", out)

	out, err = execute(t, "agent", "12", "--maps=false")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": 12`)

	_, err = execute(t, "agent", "twelve")
	assert.Error(t, err)
}

func TestWSURL(t *testing.T) {
	u, err := wsURL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/routes/events/ws", u)

	u, err = wsURL("https://routes.example.com/base")
	require.NoError(t, err)
	assert.Equal(t, "wss://routes.example.com/base/api/routes/events/ws", u)

	_, err = wsURL("ftp://host")
	assert.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchPrintsFilteredEvents(t *testing.T) {
	broker := events.NewBroker()
	srv, ts := testServer(t, broker)

	target, err := wsURL(ts.URL)
	require.NoError(t, err)
	c, _, err := websocket.DefaultDialer.Dial(target, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watch(ctx, c, "lamphun", &out) }()

	assert.Eventually(t, func() bool { return broker.Subscribers(events.TopicSources) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = srv.Cache.Get(context.Background(), sources.KeyBaseScan)
	require.NoError(t, err)
	_, err = srv.Cache.Get(context.Background(), "lamphun")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), `"source":"lamphun"`) }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.HasPrefix(out.String(), events.SourceRebuilt+" "))
	assert.NotContains(t, out.String(), sources.KeyBaseScan)

	cancel()
	_ = c.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return")
	}
}
