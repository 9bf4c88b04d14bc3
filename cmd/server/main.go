// Command server runs the operational surface for the registration core:
// it applies the schema, verifies infrastructure connectivity, and serves
// health, readiness and metrics endpoints. The registration API itself is
// hosted by the consuming system, which embeds the service layer directly.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"compreg/internal/platform/config"
	"compreg/internal/platform/httpserver"
	"compreg/internal/platform/logger"
	"compreg/internal/platform/postgres"
	platformredis "compreg/internal/platform/redis"
	regmetrics "compreg/internal/registration/metrics"
	regpostgres "compreg/internal/registration/store/postgres"
	"compreg/internal/registration/stream"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := regpostgres.Migrate(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	cancel()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if len(cfg.KafkaBrokers) > 0 {
		opts := []stream.Option{stream.WithLogger(log)}
		if cfg.KafkaTopic != "" {
			opts = append(opts, stream.WithTopic(cfg.KafkaTopic))
		}
		publisher, err := stream.New(cfg.KafkaBrokers, opts...)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
	}

	// Registers the collectors with the default registry served below.
	_ = regmetrics.New()

	router := opsRouter(db, redisClient)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting compreg", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

func opsRouter(db *sql.DB, redisClient *platformredis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
