package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"repograph/internal/api"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the repograph HTTP API server. It exposes the repository listing,
graph, commits, contributors, issues, pull requests and file summaries under /api.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides server.host)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	logger := newLogger(cfg, os.Stderr)

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics()
	}

	a, err := newApp(cmd.Context(), cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close cache store", "error", err)
		}
	}()

	addr := cfg.Addr()
	server := api.NewServer(a.explorer, api.ServerOptions{
		Addr:           addr,
		ReadTimeout:    seconds(cfg.Server.ReadTimeoutSeconds),
		WriteTimeout:   seconds(cfg.Server.WriteTimeoutSeconds),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gzip:           cfg.Server.Gzip,
		Metrics:        metrics,
		MetricsPath:    cfg.Metrics.Endpoint,
	}, logger.With("component", "api"))

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting repograph HTTP API server",
			"addr", addr,
			"cache", cfg.Cache.Backend,
		)
		fmt.Printf("repograph listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err.Error())
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", "error", err.Error())
			return err
		}

		logger.Info("Server stopped gracefully")
	}

	return nil
}
