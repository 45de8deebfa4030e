// Package itinerary rebuilds a stored agent trip for display: its timeline,
// the route polyline and a best-effort list of labelled stops.
package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/store"
)

// Reconstructor is stateless; every call reads the store afresh.
type Reconstructor struct {
	store  store.AgentStore
	logger *slog.Logger
}

// New returns a Reconstructor. A nil store makes every call fail with
// store.ErrNotConfigured.
func New(st store.AgentStore, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{store: st, logger: logger}
}

// Detail assembles the full view of one agent, optionally limited to a day.
func (r *Reconstructor) Detail(ctx context.Context, agentID int64, day *int) (model.AgentDetail, error) {
	if r.store == nil {
		return model.AgentDetail{}, store.ErrNotConfigured
	}
	a, err := r.store.GetAgent(ctx, agentID)
	if err != nil {
		return model.AgentDetail{}, err
	}
	logs, err := r.store.AgentLogs(ctx, agentID, day)
	if err != nil {
		return model.AgentDetail{}, err
	}
	poly, err := r.Polyline(ctx, agentID, day)
	if err != nil {
		return model.AgentDetail{}, err
	}
	stops, err := r.stops(ctx, agentID, day, logs, poly)
	if err != nil {
		return model.AgentDetail{}, err
	}

	d := model.AgentDetail{
		ID:         a.ID,
		Title:      a.Label,
		Style:      a.Style,
		TotalKm:    a.TotalKm,
		Days:       a.Days,
		Timeline:   logs,
		Polyline:   poly,
		PolylineKm: PolylineLength(poly),
		Stops:      stops,
	}
	if d.Title == "" {
		d.Title = fmt.Sprintf("Agent #%d", a.ID)
	}
	if d.Style == "" {
		d.Style = "mix"
	}
	if d.Timeline == nil {
		d.Timeline = []model.AgentLog{}
	}
	r.logger.Debug("itinerary rebuilt", "agent", agentID, "points", len(poly), "stops", len(stops))
	return d, nil
}

// Stops returns only the labelled stops of an agent.
func (r *Reconstructor) Stops(ctx context.Context, agentID int64, day *int) ([]model.Stop, error) {
	if r.store == nil {
		return nil, store.ErrNotConfigured
	}
	logs, err := r.store.AgentLogs(ctx, agentID, day)
	if err != nil {
		return nil, err
	}
	poly, err := r.Polyline(ctx, agentID, day)
	if err != nil {
		return nil, err
	}
	return r.stops(ctx, agentID, day, logs, poly)
}
