package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/fleet/internal/config"
	"github.com/alfredjeanlab/fleet/internal/events"
	"github.com/alfredjeanlab/fleet/internal/export"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/server"
	"github.com/alfredjeanlab/fleet/internal/store"
	"github.com/alfredjeanlab/fleet/internal/store/memory"
	"github.com/alfredjeanlab/fleet/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the fleet HTTP and gRPC servers",
	GroupID: "system",
	// No client is needed to serve.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		inMemory, _ := cmd.Flags().GetBool("memory")

		cfg, err := config.Parse()
		if err != nil {
			return err
		}
		if !inMemory && cfg.DatabaseURL == "" {
			return errors.New("FLEET_DATABASE_URL is required (or pass --memory)")
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
		slog.SetDefault(logger)

		// Open the store.
		var st store.Store
		if inMemory {
			st = memory.Fixture()
			logger.Info("serving the in-memory fixture")
		} else {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
		}
		defer func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()

		svc := listing.New(st, listing.Options{MaxPerPage: cfg.MaxPerPage, Logger: logger})
		if err := svc.Validate(st); err != nil {
			return err
		}

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (FLEET_NATS_URL not set)")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		opts := server.Options{
			AuthToken:    cfg.AuthToken,
			Publisher:    publisher,
			ExportPrefix: cfg.ExportS3Prefix,
			Logger:       logger,
		}
		if cfg.ExportS3Bucket != "" {
			dest, err := export.NewS3Destination(context.Background(), cfg.ExportS3Bucket, cfg.ExportS3Region, cfg.ExportS3Endpoint)
			if err != nil {
				return err
			}
			opts.Destination = dest
			logger.Info("export uploads enabled", "bucket", cfg.ExportS3Bucket, "prefix", cfg.ExportS3Prefix)
		}
		srv := server.New(svc, st, opts)

		// Start gRPC listener.
		grpcServer, healthServer := srv.NewGRPCServer()
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		healthCtx, stopHealth := context.WithCancel(context.Background())
		defer stopHealth()
		go srv.WatchHealth(healthCtx, healthServer, cfg.HealthInterval)

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("fleet server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		stopHealth()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("memory", false, "serve the built-in sample fleet instead of PostgreSQL")
}
