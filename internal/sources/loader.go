package sources

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

var (
	// ErrNotApplicable lets a provider pass a selection to the next one.
	ErrNotApplicable = errors.New("provider not applicable")

	errBadAttrs = errors.New("attrs is not a JSON object")
)

// Provider produces the containers for a selection.
type Provider interface {
	Name() string
	Load(ctx context.Context, sel Selection) ([]model.RouteContainer, error)
}

// Loader reads containers for a selection from the first provider that
// succeeds: the store for store-eligible keys, then the file adapters.
type Loader struct {
	Layout Layout
	// Store is optional; nil means files only.
	Store  store.RouteStore
	Logger *slog.Logger
	// OnSkip is called once per unreadable file or row.
	OnSkip func(adapter string)
}

func NewLoader(layout Layout, st store.RouteStore, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Layout: layout, Store: st, Logger: logger}
}

func (l *Loader) skip(adapter, path string, err error) {
	l.Logger.Debug("source skipped", "adapter", adapter, "path", path, "error", err)
	if l.OnSkip != nil {
		l.OnSkip(adapter)
	}
}

func (l *Loader) providers() []Provider {
	if l.Store == nil {
		return []Provider{fileProvider{l}}
	}
	return []Provider{storeProvider{l}, fileProvider{l}}
}

// Load returns the containers for sel in adapter order.
func (l *Loader) Load(ctx context.Context, sel Selection) ([]model.RouteContainer, error) {
	for _, p := range l.providers() {
		containers, err := p.Load(ctx, sel)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.Logger.Warn("source provider failed, trying next", "provider", p.Name(), "source", sel.Key, "error", err)
			continue
		}
		return containers, nil
	}
	return nil, nil
}

type storeProvider struct{ l *Loader }

func (storeProvider) Name() string { return AdapterStore }

func (p storeProvider) Load(ctx context.Context, sel Selection) ([]model.RouteContainer, error) {
	if !sel.StoreEligible || len(sel.Provinces) == 0 {
		return nil, ErrNotApplicable
	}
	return p.l.loadStore(ctx, sel.Provinces)
}

type fileProvider struct{ l *Loader }

func (fileProvider) Name() string { return "files" }

func (p fileProvider) Load(ctx context.Context, sel Selection) ([]model.RouteContainer, error) {
	var out []model.RouteContainer
	for _, prov := range sel.Bundles {
		out = append(out, p.l.loadBundle(prov)...)
	}
	for _, prov := range sel.UserDirs {
		out = append(out, p.l.loadUserDir(prov)...)
	}
	for _, prov := range sel.Aggregated {
		out = append(out, p.l.loadAggregated(prov)...)
	}
	if sel.Scan {
		out = append(out, p.l.loadScan(ctx)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
