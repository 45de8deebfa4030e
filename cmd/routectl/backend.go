package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Rhujeraphorn/web-evana/internal/api"
	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// backend answers the read-only queries routectl exposes. Results are
// printed as JSON, so both implementations return marshalable values.
type backend interface {
	Sources(ctx context.Context) (any, error)
	Nodes(ctx context.Context, source string) (any, error)
	Search(ctx context.Context, from, to, source string) (any, error)
	GeoJSON(ctx context.Context, from, to, source string) (any, error)
	Agent(ctx context.Context, id int64, day *int) (any, error)
	Close() error
}

// localBackend runs the same components the API server wires.
type localBackend struct {
	srv *api.Server
	db  *store.DB
}

func newLocalBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*localBackend, error) {
	catalog, err := config.LoadCatalog(cfg.ProvincesFile)
	if err != nil {
		return nil, err
	}
	layout := sources.NewLayout(cfg, catalog)

	b := &localBackend{}
	var st store.Store
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database unavailable, reading files only", "error", err)
		} else {
			b.db = db
			st = db
		}
	}
	b.srv = api.NewServer(cfg, layout, st, nil, logger)
	return b, nil
}

func (b *localBackend) Sources(context.Context) (any, error) {
	return b.srv.Layout.List(), nil
}

func (b *localBackend) Nodes(ctx context.Context, source string) (any, error) {
	snap, err := b.srv.Cache.Get(ctx, source)
	if err != nil {
		return nil, err
	}
	return snap.Graph.Nodes(), nil
}

func (b *localBackend) Search(ctx context.Context, from, to, source string) (any, error) {
	snap, err := b.srv.Cache.Get(ctx, source)
	if err != nil {
		return nil, err
	}
	return snap.Graph.Search(from, to)
}

func (b *localBackend) GeoJSON(ctx context.Context, from, to, source string) (any, error) {
	return b.srv.Geometry.Resolve(ctx, from, to, source)
}

func (b *localBackend) Agent(ctx context.Context, id int64, day *int) (any, error) {
	return b.srv.Itinerary.Detail(ctx, id, day)
}

func (b *localBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// remoteBackend calls a running API.
type remoteBackend struct {
	base   string
	client *http.Client
}

func newRemoteBackend(base string) *remoteBackend {
	return &remoteBackend{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// problem mirrors the API's RFC7807 error body.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (p problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
	}
	return fmt.Sprintf("%d %s", p.Status, p.Title)
}

func (b *remoteBackend) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := b.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var p problem
		if json.Unmarshal(body, &p) != nil || p.Title == "" {
			p = problem{Title: http.StatusText(resp.StatusCode), Detail: strings.TrimSpace(string(body))}
		}
		p.Status = resp.StatusCode
		return nil, p
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not JSON", path)
	}
	return json.RawMessage(body), nil
}

func pairQuery(from, to, source string) url.Values {
	q := url.Values{"from_name": {from}, "to_name": {to}}
	if source != "" {
		q.Set("source", source)
	}
	return q
}

func (b *remoteBackend) Sources(ctx context.Context) (any, error) {
	return b.get(ctx, "/api/routes/sources", nil)
}

func (b *remoteBackend) Nodes(ctx context.Context, source string) (any, error) {
	return b.get(ctx, "/api/routes/nodes", url.Values{"source": {source}})
}

func (b *remoteBackend) Search(ctx context.Context, from, to, source string) (any, error) {
	return b.get(ctx, "/api/routes/search", pairQuery(from, to, source))
}

func (b *remoteBackend) GeoJSON(ctx context.Context, from, to, source string) (any, error) {
	return b.get(ctx, "/api/routes/geojson", pairQuery(from, to, source))
}

func (b *remoteBackend) Agent(ctx context.Context, id int64, day *int) (any, error) {
	var q url.Values
	if day != nil {
		q = url.Values{"day": {strconv.Itoa(*day)}}
	}
	return b.get(ctx, "/api/agents/"+strconv.FormatInt(id, 10), q)
}

func (b *remoteBackend) Close() error { return nil }
