package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facescan/internal/analyzer"
	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/inference"
	"github.com/kozaktomas/facescan/internal/live"
	"github.com/kozaktomas/facescan/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facescan web server.
The server hosts a browser page that shows the camera feed with a box and
label drawn over every detected face. The browser pushes frames; the server
detects faces on a fixed interval and matches them against the profile.

The profile is read from --profile (or PROFILE_PATH), a JSON or YAML file
mapping labels to reference embeddings. Without a file, references are read
from PhotoPrism face markers (PHOTOPRISM_DATABASE_URL) or from PostgreSQL
(DATABASE_URL).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("profile", "", "Reference profile file (JSON or YAML)")
}

// applyServeFlags overrides config values with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if path := mustGetString(cmd, "profile"); path != "" {
		cfg.Profile.Path = path
	}
}

// loadModelsInBackground loads inference models without blocking startup.
// Sessions report loading until it succeeds.
func loadModelsInBackground(ctx context.Context, manager *live.Manager) {
	go func() {
		fmt.Printf("Loading inference models...\n")
		if err := manager.LoadModels(ctx); err != nil {
			fmt.Printf("Warning: failed to load inference models: %v\n", err)
			return
		}
		fmt.Printf("Inference models loaded\n")
	}()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := buildMatcher(ctx, cfg, false)
	if err != nil {
		return err
	}

	client := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
	a := analyzer.New(client, analyzer.OptionsFromConfig(cfg.Capture))
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	manager := live.NewManager(a, m, client, cfg.Capture, logger)

	server := web.NewServer(cfg, manager)
	loadModelsInBackground(ctx, manager)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facescan on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
