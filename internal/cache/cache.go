// Package cache keeps one immutable graph snapshot per source key and
// rebuilds it when the key's source signature changes.
package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Rhujeraphorn/web-evana/internal/events"
	"github.com/Rhujeraphorn/web-evana/internal/metrics"
	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/routegraph"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
)

// Snapshot is never mutated after it is published. Graph is always built
// from exactly Containers.
type Snapshot struct {
	Key        string
	Signature  sources.Signature
	Containers []model.RouteContainer
	Graph      *routegraph.Graph
	Generation uint64
	ID         uuid.UUID
	BuiltAt    time.Time
}

// GraphCache serves snapshots by source key.
type GraphCache struct {
	loader *sources.Loader
	pub    events.Publisher
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Snapshot

	generation atomic.Uint64
	flight     singleflight.Group
}

// New creates a cache. pub may be nil.
func New(loader *sources.Loader, pub events.Publisher, logger *slog.Logger) *GraphCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphCache{
		loader:  loader,
		pub:     pub,
		logger:  logger,
		entries: map[string]*Snapshot{},
	}
}

// Layout exposes the resolver the cache was built with.
func (c *GraphCache) Layout() sources.Layout { return c.loader.Layout }

// Get returns the snapshot for key, rebuilding it first when the signature of
// its inputs no longer matches. Unknown keys fail with
// sources.ErrUnknownSource.
func (c *GraphCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	sel, err := c.loader.Layout.Resolve(key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sig := c.loader.Signature(ctx, sel)
	metrics.SignatureDuration.Observe(time.Since(start).Seconds())

	if cur := c.current(sel.Key); cur != nil && cur.Signature.Equal(sig) {
		metrics.CacheHits.WithLabelValues(sel.Key).Inc()
		return cur, nil
	}

	// The build outlives any single caller that joined the flight.
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := c.flight.Do(sel.Key+"|"+sig.Digest(), func() (any, error) {
		return c.rebuild(buildCtx, sel, sig)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *GraphCache) current(key string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *GraphCache) rebuild(ctx context.Context, sel sources.Selection, sig sources.Signature) (*Snapshot, error) {
	if cur := c.current(sel.Key); cur != nil && cur.Signature.Equal(sig) {
		return cur, nil
	}

	start := time.Now()
	containers, err := c.loader.Load(ctx, sel)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Key:        sel.Key,
		Signature:  sig,
		Containers: containers,
		Graph:      routegraph.Build(containers),
		Generation: c.generation.Add(1),
		ID:         uuid.New(),
		BuiltAt:    time.Now().UTC(),
	}
	elapsed := time.Since(start)

	c.mu.Lock()
	c.entries[sel.Key] = snap
	c.mu.Unlock()

	metrics.GraphRebuilds.WithLabelValues(sel.Key).Inc()
	metrics.GraphRebuildDuration.WithLabelValues(sel.Key).Observe(elapsed.Seconds())
	metrics.GraphNodes.WithLabelValues(sel.Key).Set(float64(snap.Graph.NodeCount()))
	c.logger.Info("graph rebuilt",
		"source", sel.Key,
		"generation", snap.Generation,
		"containers", len(containers),
		"nodes", snap.Graph.NodeCount(),
		"edges", snap.Graph.EdgeCount(),
		"files", len(sig.Files),
		"took", elapsed,
	)
	c.publish(snap)
	return snap, nil
}

func (c *GraphCache) publish(snap *Snapshot) {
	if c.pub == nil {
		return
	}
	c.pub.Publish(events.TopicSources, events.Event{
		Type: events.SourceRebuilt,
		Data: map[string]any{
			"source":     snap.Key,
			"generation": snap.Generation,
			"snapshotId": snap.ID.String(),
			"builtAt":    snap.BuiltAt.Format(time.RFC3339Nano),
			"containers": len(snap.Containers),
			"nodes":      snap.Graph.NodeCount(),
			"edges":      snap.Graph.EdgeCount(),
			"signature":  snap.Signature.Digest(),
		},
	})
	metrics.EventsPublished.WithLabelValues(events.SourceRebuilt).Inc()
}

// Keys lists the source keys that currently hold a snapshot, sorted.
func (c *GraphCache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Refresh re-validates every cached key, rebuilding the stale ones.
func (c *GraphCache) Refresh(ctx context.Context) {
	for _, key := range c.Keys() {
		if _, err := c.Get(ctx, key); err != nil {
			c.logger.Warn("refresh failed", "source", key, "error", err)
		}
	}
}
