package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/texpad/internal/api"
	"github.com/dgallion1/texpad/internal/pipeline"
	"github.com/dgallion1/texpad/internal/project"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the texpad HTTP server",
	Long: `Start the texpad HTTP API.

A default project seeded with a sample article is created at startup.
Projects live in memory only.

Examples:
  texpad serve                   # Start on the configured port (8090)
  texpad serve --port 3000       # Start on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger(os.Stdout, cfg.LogLevel)

		if servePort != "" {
			cfg.Port = servePort
		}

		// Initialize pipeline.
		orch, err := pipeline.NewOrchestrator(cfg, newRegistry(cfg), log)
		if err != nil {
			return err
		}
		// Workers outlive ctx until the HTTP server has drained.
		orch.Start(context.WithoutCancel(ctx))

		projects := project.NewStore()
		seed := projects.Create("")
		log.Info("seeded default project", "project_id", seed.ID)

		// Initialize HTTP server.
		srv := api.NewServer(orch, projects, log, cfg)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			<-ctx.Done()
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting texpad", "port", cfg.Port, "formats", orch.Renderers().Formats())
		err = httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			orch.Stop()
			log.Error("server error", "error", err)
			return err
		}
		<-drained
		orch.Stop()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
