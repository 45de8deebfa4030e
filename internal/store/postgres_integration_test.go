//go:build postgres_integration

package store

import (
	"os"
	"testing"
)

func TestPostgresConnectivity(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(t.Context(), dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	if err := p.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := p.SegmentFingerprint(t.Context(), "chiang-mai"); err != nil {
		t.Fatalf("SegmentFingerprint: %v", err)
	}
	if _, err := p.AgentRoutes(t.Context(), 1, nil); err != nil {
		t.Fatalf("AgentRoutes: %v", err)
	}
}
