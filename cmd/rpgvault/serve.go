// RPG Vault Ingest API
//
//	@title			RPG Vault Ingest API
//	@version		1.0
//	@description	TTRPG PDF ingestion pipeline API: identify, extract, and persist source books.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/app"
	"github.com/rpgvault/ingest/internal/docstore"
	"github.com/rpgvault/ingest/internal/server"
)

var (
	serveHost     string
	servePort     string
	serveDevStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rpgvault HTTP server",
	Long: `serve starts the rpgvault Session API over HTTP: upload, analyze,
extract, cancel, progress_stream (SSE), status, artifact, health,
browse_collection, and list_collections.

Examples:
  rpgvault serve                    # Start on default port 8080
  rpgvault serve --port 3000        # Start on custom port
  rpgvault serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfgMgr, h, logger, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		if serveDevStore {
			dev, err := docstore.NewDevManager(docstore.DevConfig{DataPath: filepath.Join(h.Path(), "docstore")})
			if err != nil {
				return fmt.Errorf("dev document store: %w", err)
			}
			if err := dev.Start(ctx); err != nil {
				return fmt.Errorf("dev document store: %w", err)
			}
			defer dev.Stop(ctx)
			logger.Info("dev document store ready", "url", dev.URL())
			cfg.DocumentStoreURL = dev.URL()
		}

		a, err := app.Build(cfg, h)
		if err != nil {
			return err
		}

		go a.Orchestrator.Sessions.RunSweeper(ctx, time.Minute)

		srv, err := server.New(server.Config{
			Host:         serveHost,
			Port:         servePort,
			Orchestrator: a.Orchestrator,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "port to listen on")
	serveCmd.Flags().BoolVar(&serveDevStore, "dev-docstore", false, "start a local Docker container for the document store instead of using DOCUMENT_STORE_URL")
	rootCmd.AddCommand(serveCmd)
}
