package routegraph

import (
	"errors"
	"strings"

	"github.com/Rhujeraphorn/web-evana/internal/label"
)

var ErrNoSuchPlace = errors.New("no such place")

// Match resolves free text to a node key: an exact normalised key first, then
// the first raw label whose normalised form starts with the query, then one
// that contains it. Keys and their raw labels are visited in sorted order.
func (g *Graph) Match(query string) (string, error) {
	q := label.Normalize(query)
	if q == "" {
		return "", ErrNoSuchPlace
	}
	if g.Has(q) {
		return q, nil
	}
	if key, ok := g.scan(func(norm string) bool { return strings.HasPrefix(norm, q) }); ok {
		return key, nil
	}
	if key, ok := g.scan(func(norm string) bool { return strings.Contains(norm, q) }); ok {
		return key, nil
	}
	return "", ErrNoSuchPlace
}

func (g *Graph) scan(pred func(norm string) bool) (string, bool) {
	for _, key := range g.keys {
		for _, raw := range g.labels[key] {
			if pred(label.Normalize(raw)) {
				return key, true
			}
		}
	}
	return "", false
}
