// Package api implements the HTTP surface of the route graph service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rhujeraphorn/web-evana/internal/cache"
	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/events"
	"github.com/Rhujeraphorn/web-evana/internal/geometry"
	"github.com/Rhujeraphorn/web-evana/internal/itinerary"
	"github.com/Rhujeraphorn/web-evana/internal/metrics"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

type Server struct {
	Config    config.Config
	Layout    sources.Layout
	Store     store.Store // nil when DATABASE_URL is unset
	Cache     *cache.GraphCache
	Geometry  *geometry.Resolver
	Itinerary *itinerary.Reconstructor
	Broker    events.Bus
	Logger    *slog.Logger
}

// NewServer wires the domain components over layout. st and broker may be
// nil; without a broker source events are not streamed.
func NewServer(cfg config.Config, layout sources.Layout, st store.Store, broker events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var routes store.RouteStore
	var agents store.AgentStore
	if st != nil {
		routes, agents = st, st
	}
	loader := sources.NewLoader(layout, routes, logger.With("component", "sources"))
	loader.OnSkip = metrics.SkipCounter

	var pub events.Publisher
	if broker != nil {
		pub = broker
	}
	return &Server{
		Config:    cfg,
		Layout:    layout,
		Store:     st,
		Cache:     cache.New(loader, pub, logger.With("component", "cache")),
		Geometry:  geometry.NewResolver(layout, routes, logger.With("component", "geometry")),
		Itinerary: itinerary.New(agents, logger.With("component", "itinerary")),
		Broker:    broker,
		Logger:    logger,
	}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	// Route graph
	mux.HandleFunc("GET /api/routes/sources", s.SourcesHandler)
	mux.HandleFunc("GET /api/routes", s.RoutesHandler)
	mux.HandleFunc("GET /api/routes/nodes", s.NodesHandler)
	mux.HandleFunc("GET /api/routes/search", s.SearchHandler)
	mux.HandleFunc("GET /api/routes/geojson", s.GeoJSONHandler)

	// Source events
	mux.HandleFunc("GET /api/routes/events/stream", s.EventsStreamHandler)
	mux.HandleFunc("GET /api/routes/events/ws", s.EventsWSHandler)

	// Agents
	mux.HandleFunc("GET /api/agents/{id}", s.AgentHandler)
	mux.HandleFunc("GET /api/agents/{id}/polyline", s.AgentPolylineHandler)
	mux.HandleFunc("GET /api/agents/{id}/maps-link", s.AgentMapsLinkHandler)

	// Ops
	mux.HandleFunc("GET /api/health", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /debug/info", s.DebugJSON)
	mux.HandleFunc("GET /openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("GET /openapi.json", s.OpenAPIHandler)
	mux.HandleFunc("GET /docs", s.DocsHandler)
}

// Handler returns the routed mux wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Routes(mux)
	var h http.Handler = mux
	h = rateLimit(s.Config.RateRPS, s.Config.RateBurst)(h)
	h = cors(s.Config.AllowedOrigins)(h)
	h = observe(s.Logger)(h)
	return requestID(h)
}
