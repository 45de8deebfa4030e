// Package geometry finds the drawn line for a from/to pair, trying the
// relational store, then per-segment sibling files, then aggregated exports.
package geometry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Rhujeraphorn/web-evana/internal/metrics"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

var ErrGeometryNotFound = errors.New("geometry not found")

// Query is a geometry lookup scoped to a resolved source key.
type Query struct {
	From, To  string
	Selection sources.Selection
}

// Tier is one ranked geometry provider. It returns an encoded GeoJSON
// FeatureCollection, or ErrGeometryNotFound to pass the query to the next
// tier.
type Tier interface {
	Name() string
	Lookup(ctx context.Context, q Query) (json.RawMessage, error)
}

type Resolver struct {
	layout sources.Layout
	tiers  []Tier
	logger *slog.Logger
}

// NewResolver wires the standard tiers. st may be nil.
func NewResolver(layout sources.Layout, st store.RouteStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	var tiers []Tier
	if st != nil {
		tiers = append(tiers, storeTier{layout: layout, store: st})
	}
	tiers = append(tiers, siblingTier{layout: layout, logger: logger}, aggregatedTier{layout: layout, logger: logger})
	return &Resolver{layout: layout, tiers: tiers, logger: logger}
}

// Resolve returns an encoded FeatureCollection for the pair. Source documents
// are passed through without re-encoding coordinates, so altitude and number
// spelling survive. Tier failures are logged and the next tier is tried.
func (r *Resolver) Resolve(ctx context.Context, from, to, key string) (json.RawMessage, error) {
	sel, err := r.layout.Resolve(key)
	if err != nil {
		return nil, err
	}
	q := Query{From: from, To: to, Selection: sel}
	for _, t := range r.tiers {
		fc, err := t.Lookup(ctx, q)
		if errors.Is(err, ErrGeometryNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("geometry tier failed", "tier", t.Name(), "from", from, "to", to, "error", err)
			continue
		}
		metrics.GeometryResolved.WithLabelValues(t.Name()).Inc()
		return fc, nil
	}
	metrics.GeometryResolved.WithLabelValues("none").Inc()
	return nil, ErrGeometryNotFound
}

// scope returns the provinces a query searches: the key's own, or every
// configured province when the key maps to none. It bounds the file tiers as
// well as the store, so a province-scoped key never answers with a sibling or
// aggregated file from another province.
func scope(layout sources.Layout, sel sources.Selection) []string {
	if len(sel.Provinces) > 0 {
		return sel.Provinces
	}
	return layout.Catalog.Keys()
}
