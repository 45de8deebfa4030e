package sources

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/jsontree"
	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// Adapter names, used for provenance, logs and metrics labels.
const (
	AdapterStore      = "store"
	AdapterBundle     = "bundle"
	AdapterUserDir    = "userdir"
	AdapterAggregated = "aggregated"
	AdapterScan       = "scan"
)

// readJSON parses one file. Failures are reported through skip and yield
// ok=false; a missing file is not a failure.
func (l *Loader) readJSON(adapter, path string) (jsontree.Value, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.skip(adapter, path, err)
		}
		return jsontree.Value{}, false
	}
	v, err := jsontree.Parse(data)
	if err != nil {
		l.skip(adapter, path, err)
		return jsontree.Value{}, false
	}
	return v, true
}

// loadBundle reads a static bundle: a top-level array of containers.
func (l *Loader) loadBundle(p config.Province) []model.RouteContainer {
	path := l.Layout.BundlePath(p)
	if path == "" {
		return nil
	}
	v, ok := l.readJSON(AdapterBundle, path)
	if !ok || v.Kind != jsontree.Array {
		return nil
	}
	origin := model.Origin{Adapter: AdapterBundle, Province: p.Key, Path: path}
	var out []model.RouteContainer
	for _, item := range v.Items {
		if isContainer(item) {
			out = append(out, decodeContainer(item, origin))
		}
	}
	return out
}

// loadUserDir reads the .json files directly under a province's drop
// directory. Bare segments are tagged with their file and wrapped.
func (l *Loader) loadUserDir(p config.Province) []model.RouteContainer {
	dir := l.Layout.UserDirPath(p)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			l.skip(AdapterUserDir, dir, err)
		}
		return nil
	}
	var out []model.RouteContainer
	for _, e := range entries {
		if e.IsDir() || !hasJSONExt(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		v, ok := l.readJSON(AdapterUserDir, path)
		if !ok {
			continue
		}
		origin := model.Origin{Adapter: AdapterUserDir, Province: p.Key, Path: path}
		items := []jsontree.Value{v}
		if v.Kind == jsontree.Array {
			items = v.Items
		}
		for _, obj := range items {
			switch {
			case isContainer(obj):
				out = append(out, decodeContainer(obj, origin))
			case isSegment(obj):
				tagged := obj.With(extFileKey, jsontree.StringValue(path))
				out = append(out, wrapSegment(tagged, origin))
			}
		}
	}
	return out
}

// loadAggregated searches an aggregated export at any depth.
func (l *Loader) loadAggregated(p config.Province) []model.RouteContainer {
	path := l.Layout.AggregatedJSONPath(p)
	if path == "" {
		return nil
	}
	v, ok := l.readJSON(AdapterAggregated, path)
	if !ok {
		return nil
	}
	origin := model.Origin{Adapter: AdapterAggregated, Province: p.Key, Path: path}
	return containersFrom(jsontree.Find(v, routeLike), origin)
}

// loadScan applies the aggregated search to every .json file below the
// output root.
func (l *Loader) loadScan(ctx context.Context) []model.RouteContainer {
	root := l.Layout.OutputRoot
	if !isDir(root) {
		return nil
	}
	var out []model.RouteContainer
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.skip(AdapterScan, path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !hasJSONExt(d.Name()) {
			return nil
		}
		v, ok := l.readJSON(AdapterScan, path)
		if !ok {
			return nil
		}
		origin := model.Origin{Adapter: AdapterScan, Path: path}
		out = append(out, containersFrom(jsontree.Find(v, routeLike), origin)...)
		return nil
	})
	if err != nil {
		l.skip(AdapterScan, root, err)
	}
	return out
}

// loadStore reads every imported segment of the selected provinces.
func (l *Loader) loadStore(ctx context.Context, provinces []string) ([]model.RouteContainer, error) {
	var out []model.RouteContainer
	for _, prov := range provinces {
		rows, err := l.Store.SegmentAttrs(ctx, prov)
		if err != nil {
			return nil, err
		}
		origin := model.Origin{Adapter: AdapterStore, Province: prov}
		for _, attrs := range rows {
			v, ok := decodeStoreAttrs(attrs)
			if !ok {
				l.skip(AdapterStore, prov, errBadAttrs)
				continue
			}
			out = append(out, wrapSegment(v, origin))
		}
	}
	return out, nil
}

func hasJSONExt(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}
