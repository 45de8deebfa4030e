package sources

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/store"
	"github.com/Rhujeraphorn/web-evana/internal/store/storetest"
)

func newTestLayout(t *testing.T) Layout {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	root := t.TempDir()
	return Layout{
		DataDir:    filepath.Join(root, "data"),
		OutputRoot: filepath.Join(root, "out"),
		Catalog:    catalog,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func segmentPairs(cs []model.RouteContainer) []string {
	var out []string
	for _, c := range cs {
		for _, s := range c.Segments {
			out = append(out, s.From+">"+s.To)
		}
	}
	return out
}

func TestResolve(t *testing.T) {
	l := newTestLayout(t)

	sel, err := l.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, KeyAll, sel.Key)
	assert.Len(t, sel.Bundles, 4)
	assert.True(t, sel.Scan)
	assert.False(t, sel.StoreEligible)
	assert.Empty(t, sel.Provinces)

	sel, err = l.Resolve("lampang")
	require.NoError(t, err)
	assert.Equal(t, []string{"lampang"}, sel.Provinces)
	assert.True(t, sel.StoreEligible)
	assert.False(t, sel.TouchesOutputRoot())

	sel, err = l.Resolve("lampang-ext")
	require.NoError(t, err)
	assert.False(t, sel.StoreEligible)
	require.Len(t, sel.UserDirs, 1)
	assert.Equal(t, "Lampang", sel.UserDirs[0].UserDir)

	sel, err = l.Resolve("mae-hong-son-agg")
	require.NoError(t, err)
	assert.True(t, sel.StoreEligible)
	require.Len(t, sel.Aggregated, 1)

	sel, err = l.Resolve("all-agg")
	require.NoError(t, err)
	assert.Equal(t, []string{"chiang-mai", "lamphun", "lampang", "mae-hong-son"}, sel.Provinces)

	sel, err = l.Resolve("output-base-scan")
	require.NoError(t, err)
	assert.True(t, sel.Scan)
	assert.Empty(t, sel.Provinces)

	for _, bad := range []string{"nan", "nan-ext", "-agg", "chiang-mai-foo"} {
		_, err = l.Resolve(bad)
		assert.ErrorIs(t, err, ErrUnknownSource, bad)
	}
}

func TestResolveOutputRoot(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	data := filepath.Join(dir, "data")

	assert.Equal(t, out, ResolveOutputRoot(out, data))
	assert.Equal(t, filepath.Join(".", "output", "routes"), ResolveOutputRoot("", data))

	require.NoError(t, os.MkdirAll(filepath.Join(data, "routes"), 0o755))
	assert.Equal(t, filepath.Join(data, "routes"), ResolveOutputRoot(out, data))

	require.NoError(t, os.MkdirAll(out, 0o755))
	assert.Equal(t, out, ResolveOutputRoot(out, data))
}

func TestListSources(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.DataDir, "Lamphun_trip_segments_ev.json"), `[]`)
	require.NoError(t, os.MkdirAll(filepath.Join(l.OutputRoot, "Chiangmai"), 0o755))

	list := l.List()
	require.Len(t, list, 13)
	byKey := map[string]model.SourceInfo{}
	for _, s := range list {
		byKey[s.Key] = s
	}
	assert.True(t, byKey["lamphun"].Exists)
	assert.Equal(t, "ลำพูน", byKey["lamphun"].NameTH)
	assert.False(t, byKey["lampang"].Exists)
	assert.True(t, byKey["chiang-mai-ext"].Exists)
	assert.False(t, byKey["lampang-agg"].Exists)
	assert.Equal(t, "output-base-scan", list[len(list)-1].Key)
	assert.True(t, list[len(list)-1].Exists)
}

func TestBundleAdapter(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.DataDir, "Chiangmai_trip_segments_ev.json"), "\ufeff"+`[
		{"agent_id": 4, "segments": [{"from":"A","to":"B","distance_km":"10"}, 7]},
		{"from":"loose","to":"ignored"},
		{"agent_id": 5, "segments": []}
	]`)
	writeFile(t, filepath.Join(l.DataDir, "Lampang_trip_segments_ev.json"), `{"agent_id":1,"segments":[{"from":"X","to":"Y"}]}`)

	loader := NewLoader(l, nil, nil)
	sel, err := l.Resolve("chiang-mai")
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, int64(4), cs[0].AgentID)
	require.Len(t, cs[0].Segments, 1)
	require.NotNil(t, cs[0].Segments[0].DistanceKm)
	assert.Equal(t, 10.0, *cs[0].Segments[0].DistanceKm)
	assert.Equal(t, AdapterBundle, cs[0].Segments[0].Origin.Adapter)

	sel, err = l.Resolve("lampang")
	require.NoError(t, err)
	cs, err = loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestUserDirAdapter(t *testing.T) {
	l := newTestLayout(t)
	dir := filepath.Join(l.OutputRoot, "Lampang")
	writeFile(t, filepath.Join(dir, "a.json"), `{"from":"Hotel","to":"Temple","distance_km":3}`)
	writeFile(t, filepath.Join(dir, "b.JSON"), `[{"from":"Temple","to":"Cafe"},{"note":"x"},{"segments":[{"from":"Cafe","to":"Hotel"}]}]`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"from":`)
	writeFile(t, filepath.Join(dir, "readme.txt"), `{"from":"no","to":"no"}`)
	writeFile(t, filepath.Join(dir, "nested", "c.json"), `{"from":"deep","to":"skip"}`)

	skips := 0
	loader := NewLoader(l, nil, nil)
	loader.OnSkip = func(adapter string) {
		assert.Equal(t, AdapterUserDir, adapter)
		skips++
	}
	sel, err := l.Resolve("lampang-ext")
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hotel>Temple", "Temple>Cafe", "Cafe>Hotel"}, segmentPairs(cs))
	assert.Equal(t, 1, skips)

	out, err := json.Marshal(cs[0])
	require.NoError(t, err)
	var decoded struct {
		AgentID  int              `json:"agent_id"`
		Segments []map[string]any `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, 0, decoded.AgentID)
	assert.Equal(t, filepath.Join(dir, "a.json"), decoded.Segments[0]["_ext_file"])
	assert.EqualValues(t, 3, decoded.Segments[0]["distance_km"])

	_, tagged := cs[2].Segments[0].Raw.Get(extFileKey)
	assert.False(t, tagged, "containers are kept as-is")
}

func TestAggregatedAdapterFindsNestedRecords(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.OutputRoot, "Maehongson_all.json"), `{
		"meta": {"generated": "today"},
		"days": [
			{"routes": [{"agent_id": 9, "segments": [{"from":"P","to":"Q"}]}]},
			{"extra": {"legs": [{"from":"Q","to":"R","inner":{"from":"no","to":"no"}}]}}
		],
		"tail": {"from":"R","to":"S"}
	}`)

	loader := NewLoader(l, nil, nil)
	sel, err := l.Resolve("mae-hong-son-agg")
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"P>Q", "Q>R", "R>S"}, segmentPairs(cs))
	assert.Equal(t, int64(9), cs[0].AgentID)
	assert.Equal(t, int64(0), cs[1].AgentID)
}

func TestAllCombinesAdaptersInOrder(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.DataDir, "Lamphun_trip_segments_ev.json"), `[{"segments":[{"from":"bundle","to":"x"}]}]`)
	writeFile(t, filepath.Join(l.OutputRoot, "Lamphun", "u.json"), `{"from":"user","to":"x"}`)
	writeFile(t, filepath.Join(l.OutputRoot, "Lamphun_routes.json"), `[{"from":"agg","to":"x"}]`)

	loader := NewLoader(l, nil, nil)
	sel, err := l.Resolve(KeyAll)
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)
	// The scan revisits every .json below the output root in lexical order.
	assert.Equal(t, []string{"bundle>x", "user>x", "agg>x", "user>x", "agg>x"}, segmentPairs(cs))

	sel, err = l.Resolve(KeyBaseScan)
	require.NoError(t, err)
	cs, err = loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"user>x", "agg>x"}, segmentPairs(cs))
}

func TestStoreReplacesFilesForEligibleKeys(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.OutputRoot, "Lampang_routes_all.json"), `[{"from":"file","to":"x"}]`)
	writeFile(t, filepath.Join(l.OutputRoot, "Lampang", "u.json"), `{"from":"user","to":"x"}`)

	db := storetest.New(t)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES ('lampang', ?)`, `{"from":"db","to":"x"}`)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES ('lampang', ?)`, `"{\"from\":\"db2\",\"to\":\"y\"}"`)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES ('lampang', ?)`, `[1,2]`)

	loader := NewLoader(l, db, nil)
	sel, err := l.Resolve("lampang-agg")
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"db>x", "db2>y"}, segmentPairs(cs))
	assert.Equal(t, AdapterStore, cs[0].Segments[0].Origin.Adapter)

	sel, err = l.Resolve("lampang-ext")
	require.NoError(t, err)
	cs, err = loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"user>x"}, segmentPairs(cs))
}

type failingStore struct{ store.RouteStore }

func (failingStore) SegmentAttrs(context.Context, string) ([][]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) SegmentFingerprint(context.Context, string) (store.Fingerprint, error) {
	return store.Fingerprint{}, errors.New("connection refused")
}

func TestStoreFailureFallsBackToFiles(t *testing.T) {
	l := newTestLayout(t)
	writeFile(t, filepath.Join(l.OutputRoot, "Lampang_routes_all.json"), `[{"from":"file","to":"x"}]`)

	loader := NewLoader(l, failingStore{}, nil)
	sel, err := l.Resolve("lampang-agg")
	require.NoError(t, err)
	cs, err := loader.Load(t.Context(), sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"file>x"}, segmentPairs(cs))

	sig := loader.Signature(t.Context(), sel)
	require.Len(t, sig.Store, 1)
	assert.True(t, sig.Store[0].Failed)
}

func TestSignature(t *testing.T) {
	l := newTestLayout(t)
	bundle := filepath.Join(l.DataDir, "Chiangmai_trip_segments_ev.json")
	writeFile(t, bundle, `[]`)
	agg := filepath.Join(l.OutputRoot, "Chiangmai_routes_all.json")
	writeFile(t, agg, `[]`)
	writeFile(t, filepath.Join(l.OutputRoot, "Chiangmai", "x.geojson"), `{}`)

	loader := NewLoader(l, nil, nil)
	sel, err := l.Resolve("chiang-mai")
	require.NoError(t, err)
	sig := loader.Signature(t.Context(), sel)
	require.Len(t, sig.Files, 1)
	assert.Equal(t, bundle, sig.Files[0].Path)

	all, err := l.Resolve(KeyAll)
	require.NoError(t, err)
	first := loader.Signature(t.Context(), all)
	assert.Len(t, first.Files, 2)
	assert.True(t, first.Equal(loader.Signature(t.Context(), all)))
	assert.Equal(t, first.Digest(), loader.Signature(t.Context(), all).Digest())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(agg, later, later))
	second := loader.Signature(t.Context(), all)
	assert.False(t, first.Equal(second))
	assert.NotEqual(t, first.Digest(), second.Digest())
}

func TestSignatureTracksStoreFingerprint(t *testing.T) {
	l := newTestLayout(t)
	db := storetest.New(t)
	loader := NewLoader(l, db, nil)
	sel, err := l.Resolve("lamphun")
	require.NoError(t, err)

	before := loader.Signature(t.Context(), sel)
	storetest.MustExec(t, db, `INSERT INTO route_segments (province, attrs) VALUES ('lamphun', '{}')`)
	after := loader.Signature(t.Context(), sel)
	assert.False(t, before.Equal(after))
	assert.Equal(t, int64(1), after.Store[0].Count)

	storetest.MustExec(t, db, `UPDATE route_segments SET attrs = '{"from":"Wat","to":"Market"}' WHERE province = 'lamphun'`)
	edited := loader.Signature(t.Context(), sel)
	assert.False(t, after.Equal(edited))
	assert.NotEqual(t, after.Digest(), edited.Digest())

	ext, err := l.Resolve("lamphun-ext")
	require.NoError(t, err)
	assert.Empty(t, loader.Signature(t.Context(), ext).Store)
}
