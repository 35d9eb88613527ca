package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/primary/http/handlers"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/primary/http/middleware"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/artifact"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/registry"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/sqlite"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Request schema: manifest order defines the model's column order; a
	// missing manifest switches the API into open mode.
	manifest, err := domain.LoadManifest(cfg.Model.FeatureFile)
	if err != nil {
		log.Fatalf("load feature manifest: %v", err)
	}
	if manifest == nil {
		log.Warn("no feature manifest found, relying on caller-supplied feature set")
	} else {
		log.Infof("loaded %d feature names from %s", len(manifest), cfg.Model.FeatureFile)
	}
	schema := services.BuildSchema(manifest)

	reg, closeRegistry, err := registry.FromConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("create registry backend: %v", err)
	}
	defer closeRegistry()

	// No serving without a model: resolution failure fails startup.
	resolver := services.NewResolverService(reg, artifact.NewLoader(), cfg.Model.Experiment)
	model, err := resolver.Resolve(context.Background(), cfg.Model.Name)
	if err != nil {
		log.Fatalf("resolve serving model: %v", err)
	}

	scoringSvc := services.NewScoringService(schema, model)

	txStore, err := sqlite.NewTransactionStore(cfg.Data.DBPath)
	if err != nil {
		log.Fatalf("open transaction store: %v", err)
	}
	defer txStore.Close()

	h := handlers.New(scoringSvc, txStore)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), middleware.Metrics(), gin.Recovery())
	h.RegisterRoutes(router, cfg.Auth.APIKey)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("serving %s on %s", model.URI(), addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
