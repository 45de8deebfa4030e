package geometry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/jsontree"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

type storeTier struct {
	layout sources.Layout
	store  store.RouteStore
}

func (storeTier) Name() string { return "store" }

func (t storeTier) Lookup(ctx context.Context, q Query) (json.RawMessage, error) {
	for _, prov := range scope(t.layout, q.Selection) {
		row, err := t.store.RouteGeometry(ctx, prov, q.From, q.To)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		g, err := jsontree.Parse(row.GeoJSON)
		if err != nil {
			return nil, fmt.Errorf("route_geoms geometry: %w", err)
		}
		if !isGeometry(g) {
			return nil, fmt.Errorf("route_geoms geometry: unexpected geojson type %q", typeOf(g))
		}
		props := decodeProps(row.Attrs)
		props = setDefault(props, "from", strings.TrimSpace(q.From))
		props = setDefault(props, "to", strings.TrimSpace(q.To))
		return collectionOf(feature(g, props))
	}
	return nil, ErrGeometryNotFound
}

// siblingTier looks for a user-dropped segment file with matching endpoints
// and returns the .geojson stored next to it.
type siblingTier struct {
	layout sources.Layout
	logger *slog.Logger
}

func (siblingTier) Name() string { return "sibling" }

func (t siblingTier) Lookup(_ context.Context, q Query) (json.RawMessage, error) {
	for _, prov := range scope(t.layout, q.Selection) {
		p, ok := t.layout.Catalog.Lookup(prov)
		if !ok {
			continue
		}
		dir := t.layout.UserDirPath(p)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if !fileHasPair(path, q.From, q.To) {
				continue
			}
			sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".geojson"
			data, err := os.ReadFile(sibling)
			if err != nil {
				continue
			}
			out, err := siblingCollection(data, q.From, q.To)
			if err != nil {
				t.logger.Debug("invalid sibling geojson", "path", sibling, "error", err)
				continue
			}
			return out, nil
		}
	}
	return nil, ErrGeometryNotFound
}

func fileHasPair(path, from, to string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	v, err := jsontree.Parse(data)
	if err != nil {
		return false
	}
	items := []jsontree.Value{v}
	if v.Kind == jsontree.Array {
		items = v.Items
	}
	for _, obj := range items {
		if obj.Kind == jsontree.Object && hasPair(obj, from, to) {
			return true
		}
	}
	return false
}

// siblingCollection returns a FeatureCollection file byte for byte. A single
// Feature is wrapped as is; a bare geometry becomes a feature carrying the
// trimmed pair as properties.
func siblingCollection(data []byte, from, to string) (json.RawMessage, error) {
	v, err := jsontree.Parse(data)
	if err != nil {
		return nil, err
	}
	switch typ := typeOf(v); {
	case typ == "FeatureCollection":
		return json.RawMessage(trimBOM(data)), nil
	case typ == "Feature":
		return collectionOf(v)
	case isGeometry(v):
		props := jsontree.Value{Kind: jsontree.Object}.
			With("from", jsontree.StringValue(strings.TrimSpace(from))).
			With("to", jsontree.StringValue(strings.TrimSpace(to)))
		return collectionOf(feature(v, props))
	default:
		return nil, fmt.Errorf("unexpected geojson type %q", typ)
	}
}

// aggregatedTier searches each province's aggregated .geojson export for a
// feature whose properties carry the pair.
type aggregatedTier struct {
	layout sources.Layout
	logger *slog.Logger
}

func (aggregatedTier) Name() string { return "aggregated" }

func (t aggregatedTier) Lookup(ctx context.Context, q Query) (json.RawMessage, error) {
	for _, prov := range scope(t.layout, q.Selection) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := t.layout.Catalog.Lookup(prov)
		if !ok {
			continue
		}
		path := t.layout.AggregatedGeoJSONPath(p)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		v, err := jsontree.Parse(data)
		if err != nil {
			t.logger.Debug("invalid aggregated geojson", "path", path, "error", err)
			continue
		}
		for _, f := range features(v) {
			props, _ := f.Get("properties")
			if hasPair(props, q.From, q.To) {
				return collectionOf(f)
			}
		}
	}
	return nil, ErrGeometryNotFound
}

// features lists the object members of a FeatureCollection, or a single
// Feature. Malformed entries are returned too; matching only reads their
// properties.
func features(v jsontree.Value) []jsontree.Value {
	switch typeOf(v) {
	case "Feature":
		return []jsontree.Value{v}
	case "FeatureCollection":
		list, _ := v.Get("features")
		out := make([]jsontree.Value, 0, len(list.Items))
		for _, it := range list.Items {
			if it.Kind == jsontree.Object {
				out = append(out, it)
			}
		}
		return out
	}
	return nil
}

// hasPair compares obj's from/to with the query; a missing field reads as "".
func hasPair(obj jsontree.Value, from, to string) bool {
	f, _ := obj.Get("from")
	tv, _ := obj.Get("to")
	return samePlace(f.Text(), from) && samePlace(tv.Text(), to)
}

func samePlace(a, b string) bool {
	return strings.ToLower(strings.TrimSpace(a)) == strings.ToLower(strings.TrimSpace(b))
}

var geometryTypes = map[string]bool{
	"Point": true, "MultiPoint": true,
	"LineString": true, "MultiLineString": true,
	"Polygon": true, "MultiPolygon": true,
	"GeometryCollection": true,
}

func typeOf(v jsontree.Value) string {
	t, _ := v.Get("type")
	if t.Kind != jsontree.String {
		return ""
	}
	return t.Str
}

func isGeometry(v jsontree.Value) bool {
	return geometryTypes[typeOf(v)]
}

func feature(geom, props jsontree.Value) jsontree.Value {
	return jsontree.Value{Kind: jsontree.Object, Members: []jsontree.Member{
		{Key: "type", Value: jsontree.StringValue("Feature")},
		{Key: "geometry", Value: geom},
		{Key: "properties", Value: props},
	}}
}

func collectionOf(f jsontree.Value) (json.RawMessage, error) {
	fc := jsontree.Value{Kind: jsontree.Object, Members: []jsontree.Member{
		{Key: "type", Value: jsontree.StringValue("FeatureCollection")},
		{Key: "features", Value: jsontree.Value{Kind: jsontree.Array, Items: []jsontree.Value{f}}},
	}}
	return fc.MarshalJSON()
}

// decodeProps reads stored attrs, which may be double-encoded. Anything but
// an object yields empty properties.
func decodeProps(b []byte) jsontree.Value {
	empty := jsontree.Value{Kind: jsontree.Object}
	if len(b) == 0 {
		return empty
	}
	v, err := jsontree.Parse(b)
	if err != nil {
		return empty
	}
	if v.Kind == jsontree.String {
		if v, err = jsontree.Parse([]byte(v.Str)); err != nil {
			return empty
		}
	}
	if v.Kind != jsontree.Object {
		return empty
	}
	return v
}

func setDefault(props jsontree.Value, key, val string) jsontree.Value {
	if props.Has(key) {
		return props
	}
	return props.With(key, jsontree.StringValue(val))
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
