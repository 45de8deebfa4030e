package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Rhujeraphorn/web-evana/internal/config"
	"github.com/Rhujeraphorn/web-evana/internal/itinerary"
	"github.com/Rhujeraphorn/web-evana/internal/model"
	"github.com/Rhujeraphorn/web-evana/internal/sources"
)

var (
	serverURL string
	verbose   bool
	agentDay  int
	mapsLink  bool

	nodesSource   string
	searchSource  string
	geojsonSource string
	watchSource   string

	// newBackend is swapped in tests.
	newBackend = defaultBackend

	rootCmd = &cobra.Command{
		Use:   "routectl",
		Short: "Query the EV tourism route graph",
		Long: `routectl answers the same questions as the route API. Without --server it
loads the data directory (and DATABASE_URL, if set) in-process.`,
		SilenceUsage: true,
	}
	sourcesCmd = &cobra.Command{
		Use:   "sources",
		Short: "List the source keys and whether their files exist",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b backend, _ []string) (any, error) {
			return b.Sources(ctx)
		}),
	}
	nodesCmd = &cobra.Command{
		Use:   "nodes",
		Short: "List the normalised place names of a source",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b backend, _ []string) (any, error) {
			return b.Nodes(ctx, nodesSource)
		}),
	}
	searchCmd = &cobra.Command{
		Use:   "search [from] [to]",
		Short: "Find the fewest-hop route between two places",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(ctx context.Context, b backend, args []string) (any, error) {
			return b.Search(ctx, args[0], args[1], searchSource)
		}),
	}
	geojsonCmd = &cobra.Command{
		Use:   "geojson [from] [to]",
		Short: "Print the drawn line for a from/to pair as a FeatureCollection",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(ctx context.Context, b backend, args []string) (any, error) {
			return b.GeoJSON(ctx, args[0], args[1], geojsonSource)
		}),
	}
	agentCmd = &cobra.Command{
		Use:   "agent [id]",
		Short: "Reconstruct an agent's itinerary",
		Args:  cobra.ExactArgs(1),
		RunE:  runAgent,
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Stream source change events from a running server",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Base URL of a running API, e.g. http://localhost:8080")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at LOG_LEVEL instead of warnings only")

	nodesCmd.Flags().StringVar(&nodesSource, "source", sources.KeyAllAgg, "Source key")
	searchCmd.Flags().StringVar(&searchSource, "source", sources.KeyAllAgg, "Source key")
	geojsonCmd.Flags().StringVar(&geojsonSource, "source", sources.KeyAllAgg, "Source key")
	watchCmd.Flags().StringVar(&watchSource, "source", "", "Only show events for this source key")

	agentCmd.Flags().IntVar(&agentDay, "day", 0, "Restrict to one trip day")
	agentCmd.Flags().BoolVar(&mapsLink, "maps", false, "Print a Google Maps directions link instead of JSON")

	rootCmd.AddCommand(sourcesCmd, nodesCmd, searchCmd, geojsonCmd, agentCmd, watchCmd)
}

func defaultBackend(ctx context.Context) (backend, error) {
	if serverURL != "" {
		return newRemoteBackend(serverURL), nil
	}
	cfg := config.Load()
	level := slog.LevelWarn
	if verbose {
		level = cfg.LogLevel
	}
	logger, _ := config.SetupLogger("", level)
	return newLocalBackend(ctx, cfg, logger)
}

type query func(ctx context.Context, b backend, args []string) (any, error)

// withBackend opens a backend, runs q and prints its result as indented JSON.
func withBackend(q query) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		b, err := newBackend(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = b.Close() }()
		out, err := q(ctx, b, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func runAgent(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid agent id %q", args[0])
	}
	var day *int
	if cmd.Flags().Changed("day") {
		day = &agentDay
	}
	if !mapsLink {
		return withBackend(func(ctx context.Context, b backend, _ []string) (any, error) {
			return b.Agent(ctx, id, day)
		})(cmd, args)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := newBackend(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()
	out, err := b.Agent(ctx, id, day)
	if err != nil {
		return err
	}
	pts, err := polylineOf(out)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), itinerary.MapsLink(pts))
	return err
}

// polylineOf extracts the polyline from either backend's agent detail.
func polylineOf(v any) ([]model.LatLng, error) {
	if d, ok := v.(model.AgentDetail); ok {
		return d.Polyline, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d struct {
		Polyline []model.LatLng `json:"polyline"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d.Polyline, nil
}
