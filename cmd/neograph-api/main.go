package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neograph"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/access"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/auth"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/config"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/httpapi"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/logging"
	"github.com/saulfrancisco-ruizacevedo/go-neograph/internal/metrics"
)

const serviceName = "neograph-api"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Connect to Neo4j and make sure it answers before serving traffic.
	executor, err := neograph.NewNeo4jExecutor(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		neograph.WithTxTimeout(cfg.Neo4j.TxTimeout),
		neograph.WithConnectTimeout(cfg.Neo4j.ConnectTimeout),
		neograph.WithMaxPoolSize(cfg.Neo4j.MaxPoolSize),
	)
	if err != nil {
		return fmt.Errorf("create neo4j driver: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := executor.Close(closeCtx); err != nil {
			logger.Error("Failed to close neo4j driver", zap.Error(err))
		}
	}()

	verifyCtx, cancel := context.WithTimeout(context.Background(), cfg.Neo4j.ConnectTimeout)
	err = executor.Verify(verifyCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	logger.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4j.URI), zap.String("database", cfg.Neo4j.Database))

	store, err := neograph.NewGraphStore(executor,
		neograph.WithRelationshipType(cfg.Graph.RelationshipType),
		neograph.WithAllowedLabels(cfg.Graph.AllowedLabels...),
	)
	if err != nil {
		return fmt.Errorf("create graph store: %w", err)
	}

	verifier, err := auth.NewStaticSecret(cfg.Auth.APISecret)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("neograph")
	service := access.NewService(store, verifier,
		access.WithLogger(logger.Named("access")),
		access.WithMetrics(collector),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.BuildRouter(httpapi.RouterDeps{
		Service:        service,
		Store:          store,
		Metrics:        collector,
		Logger:         logger.Named("http"),
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-sigChan:
		logger.Info("Shutting down server...", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
