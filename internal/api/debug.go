package api

import (
	"net/http"
	"time"

	"github.com/Rhujeraphorn/web-evana/internal/buildinfo"
)

// DebugJSON handles GET /debug/info
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":             s.Config.Port,
			"DATA_DIR":         s.Layout.DataDir,
			"OUTPUT_ROOT":      s.Layout.OutputRoot,
			"PROVINCES":        s.Layout.Catalog.Keys(),
			"ALLOWED_ORIGINS":  s.Config.AllowedOrigins,
			"RATE_RPS":         s.Config.RateRPS,
			"RATE_BURST":       s.Config.RateBurst,
			"WATCH_SOURCES":    s.Config.WatchSources,
			"HAS_DATABASE_URL": s.Config.DatabaseURL != "",
			"HAS_REDIS_URL":    s.Config.RedisURL != "",
		},
		"cachedSources": s.Cache.Keys(),
	}
	writeJSON(w, http.StatusOK, info)
}
