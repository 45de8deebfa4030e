// Package sources maps source keys onto the adapters that read route segments
// from the relational store, static bundles, user drop directories and
// aggregated exports.
package sources

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// Well-known source keys besides the per-province ones.
const (
	KeyAll      = "all"
	KeyAllAgg   = "all-agg"
	KeyBaseScan = "output-base-scan"

	extSuffix = "-ext"
	aggSuffix = "-agg"
)

var ErrUnknownSource = errors.New("unknown source")

// Layout locates every file the adapters read.
type Layout struct {
	DataDir    string
	OutputRoot string
	Catalog    config.Catalog
}

// NewLayout resolves the output root the same way for every caller.
func NewLayout(cfg config.Config, catalog config.Catalog) Layout {
	return Layout{
		DataDir:    cfg.DataDir,
		OutputRoot: ResolveOutputRoot(cfg.OutputRoutesDir, cfg.DataDir),
		Catalog:    catalog,
	}
}

// ResolveOutputRoot picks OUTPUT_ROUTES_DIR when it is a directory, then
// DATA_DIR/routes, then the conventional ./output/routes.
func ResolveOutputRoot(outputDir, dataDir string) string {
	if outputDir != "" && isDir(outputDir) {
		return outputDir
	}
	if dataDir != "" {
		if repo := filepath.Join(dataDir, "routes"); isDir(repo) {
			return repo
		}
	}
	if outputDir != "" {
		return outputDir
	}
	return filepath.Join(".", "output", "routes")
}

func (l Layout) BundlePath(p config.Province) string {
	if p.Bundle == "" {
		return ""
	}
	return filepath.Join(l.DataDir, p.Bundle)
}

func (l Layout) UserDirPath(p config.Province) string {
	if p.UserDir == "" {
		return ""
	}
	return filepath.Join(l.OutputRoot, p.UserDir)
}

func (l Layout) AggregatedJSONPath(p config.Province) string {
	if p.AggregatedJSON == "" {
		return ""
	}
	return filepath.Join(l.OutputRoot, p.AggregatedJSON)
}

func (l Layout) AggregatedGeoJSONPath(p config.Province) string {
	if p.AggregatedGeoJSON == "" {
		return ""
	}
	return filepath.Join(l.OutputRoot, p.AggregatedGeoJSON)
}

// Selection is what a source key resolves to.
type Selection struct {
	Key string
	// Provinces the key is scoped to; empty when it maps to none.
	Provinces []string

	Bundles    []config.Province
	UserDirs   []config.Province
	Aggregated []config.Province
	Scan       bool

	// StoreEligible keys are served from route_segments when a store is
	// configured; the file adapters are the fallback.
	StoreEligible bool
}

// TouchesOutputRoot reports whether any adapter reads below the output root.
func (s Selection) TouchesOutputRoot() bool {
	return s.Scan || len(s.UserDirs) > 0 || len(s.Aggregated) > 0
}

// Resolve maps a source key onto its adapters. An empty key means all.
func (l Layout) Resolve(key string) (Selection, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.EqualFold(key, KeyAll) {
		return Selection{
			Key:        KeyAll,
			Bundles:    l.Catalog.Provinces,
			UserDirs:   l.Catalog.Provinces,
			Aggregated: l.Catalog.Provinces,
			Scan:       true,
		}, nil
	}

	switch key {
	case KeyBaseScan:
		return Selection{Key: key, Scan: true}, nil
	case KeyAllAgg:
		sel := Selection{Key: key, StoreEligible: true}
		for _, p := range l.Catalog.Provinces {
			if p.AggregatedJSON == "" {
				continue
			}
			sel.Aggregated = append(sel.Aggregated, p)
			sel.Provinces = append(sel.Provinces, p.Key)
		}
		return sel, nil
	}

	if p, ok := l.Catalog.Lookup(key); ok {
		return Selection{Key: key, Provinces: []string{p.Key}, Bundles: []config.Province{p}, StoreEligible: true}, nil
	}
	if base, ok := strings.CutSuffix(key, extSuffix); ok {
		if p, ok := l.Catalog.Lookup(base); ok {
			return Selection{Key: key, Provinces: []string{p.Key}, UserDirs: []config.Province{p}}, nil
		}
	}
	if base, ok := strings.CutSuffix(key, aggSuffix); ok {
		if p, ok := l.Catalog.Lookup(base); ok {
			return Selection{Key: key, Provinces: []string{p.Key}, Aggregated: []config.Province{p}, StoreEligible: true}, nil
		}
	}
	return Selection{}, fmt.Errorf("%w: %q", ErrUnknownSource, key)
}

// List reports every selectable source with the file or directory backing it.
func (l Layout) List() []model.SourceInfo {
	var out []model.SourceInfo
	for _, p := range l.Catalog.Provinces {
		path := l.BundlePath(p)
		out = append(out, model.SourceInfo{Key: p.Key, NameTH: p.NameTH, File: p.Bundle, Exists: isFile(path)})
	}
	for _, p := range l.Catalog.Provinces {
		dir := l.UserDirPath(p)
		out = append(out, model.SourceInfo{Key: p.Key + extSuffix, NameTH: p.NameTH + " (ext)", File: dir, Exists: isDir(dir)})
	}
	for _, p := range l.Catalog.Provinces {
		path := l.AggregatedJSONPath(p)
		out = append(out, model.SourceInfo{Key: p.Key + aggSuffix, NameTH: p.NameTH + " (agg)", File: path, Exists: isFile(path)})
	}
	out = append(out, model.SourceInfo{Key: KeyBaseScan, NameTH: "output base scan", File: l.OutputRoot, Exists: isDir(l.OutputRoot)})
	return out
}

// Keys lists every key Resolve accepts, in listing order.
func (l Layout) Keys() []string {
	keys := []string{KeyAll, KeyAllAgg}
	for _, s := range l.List() {
		keys = append(keys, s.Key)
	}
	return keys
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
