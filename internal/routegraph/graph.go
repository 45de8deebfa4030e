// Package routegraph indexes route segments as a directed multigraph of
// normalised waypoint labels and answers fewest-hop path queries over it.
package routegraph

import (
	"slices"

	"github.com/Rhujeraphorn/web-evana/internal/label"
	"github.com/Rhujeraphorn/web-evana/internal/model"
)

// Graph is immutable once built. Segment pointers refer into the containers
// it was built from.
type Graph struct {
	adj map[string][]*model.Segment
	// normalised key -> raw labels seen for it
	labels map[string][]string
	keys   []string
	nodes  []string
	edges  int
}

// Build indexes every segment with non-empty endpoints, in container order.
// Parallel edges are kept.
func Build(containers []model.RouteContainer) *Graph {
	g := &Graph{
		adj:    map[string][]*model.Segment{},
		labels: map[string][]string{},
	}
	seen := map[string]map[string]bool{}
	addLabel := func(key, raw string) {
		if seen[key] == nil {
			seen[key] = map[string]bool{}
		}
		if !seen[key][raw] {
			seen[key][raw] = true
			g.labels[key] = append(g.labels[key], raw)
		}
	}

	for ci := range containers {
		segs := containers[ci].Segments
		for si := range segs {
			s := &segs[si]
			if s.From == "" || s.To == "" {
				continue
			}
			from := label.Normalize(s.From)
			to := label.Normalize(s.To)
			g.adj[from] = append(g.adj[from], s)
			g.edges++
			addLabel(from, s.From)
			addLabel(to, s.To)
		}
	}

	all := map[string]bool{}
	for key, raws := range g.labels {
		slices.Sort(raws)
		g.keys = append(g.keys, key)
		for _, r := range raws {
			all[r] = true
		}
	}
	slices.Sort(g.keys)
	for r := range all {
		g.nodes = append(g.nodes, r)
	}
	slices.Sort(g.nodes)
	return g
}

// Nodes returns the sorted, de-duplicated raw labels.
func (g *Graph) Nodes() []string {
	if g.nodes == nil {
		return []string{}
	}
	return g.nodes
}

// Out returns the outgoing segments of a normalised key in load order.
func (g *Graph) Out(key string) []*model.Segment { return g.adj[key] }

// Labels returns the sorted raw labels recorded for a normalised key.
func (g *Graph) Labels(key string) []string { return g.labels[key] }

// Has reports whether key names a node.
func (g *Graph) Has(key string) bool {
	_, ok := g.labels[key]
	return ok
}

// NodeCount is the number of distinct normalised keys.
func (g *Graph) NodeCount() int { return len(g.keys) }

// EdgeCount counts parallel edges separately.
func (g *Graph) EdgeCount() int { return g.edges }
