package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/medpanel/internal/api"
	"github.com/hugo-lorenzo-mato/medpanel/internal/specialty"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the consultation HTTP API",
	Long: `Start the HTTP API. Cases are submitted with POST /api/v1/cases and
their deliberation is streamed as server-sent events from
/api/v1/events?case_id=<id>.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Catalog.Watch && a.cfg.Catalog.Path != "" {
		w, err := specialty.Watch(a.cfg.Catalog.Path,
			func(c *specialty.Catalog) {
				a.recruiter.Reload(specialty.NewScorer(c))
				a.logger.Info("specialty catalog reloaded", "path", a.cfg.Catalog.Path, "specialties", c.Len())
			},
			func(err error) {
				a.logger.Warn("specialty catalog reload failed, keeping previous catalog", "error", err)
			})
		if err != nil {
			return fmt.Errorf("watching specialty catalog: %w", err)
		}
		defer func() { _ = w.Close() }()
	}

	opts := []api.ServerOption{
		api.WithLogger(a.logger),
		api.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
		api.WithCatalog(a.recruiter.Catalog),
		api.WithExplain(a.cfg.Panel.Explain),
		api.WithBaseContext(ctx),
	}
	var server *api.Server
	if a.store != nil {
		server = api.NewServer(a.runner, a.store, a.bus, opts...)
	} else {
		server = api.NewServer(a.runner, nil, a.bus, opts...)
	}

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	return server.ListenAndServe(ctx, addr)
}
