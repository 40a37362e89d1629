package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itemstore/services/items/internal/config"
	"github.com/itemstore/services/items/internal/db"
	grpcserver "github.com/itemstore/services/items/internal/grpc"
	"github.com/itemstore/services/items/internal/health"
	"go.uber.org/zap"
)

// serve migrates the schema and runs the health and metrics endpoints until signalled
func serve(cfg *config.Config, log *zap.Logger) error {
	log.Info("Items service starting")

	a, err := openApp(cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("Running database migrations...")
	if err := db.RunMigrations(a.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	checker := health.NewChecker(a.db, a.publisher, log)

	grpcServer := grpcserver.NewServer(checker, a.metrics, log)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      newOpsMux(checker, a),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()
	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
	case serveErr = <-errCh:
		log.Error("Server failed", zap.Error(serveErr))
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("Server stopped")
	return serveErr
}

func newOpsMux(checker *health.Checker, a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.LivenessHandler())
	mux.HandleFunc("/readyz", health.ReadinessHandler)
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
