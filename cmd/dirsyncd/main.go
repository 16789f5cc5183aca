package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dhawalhost/dirsync/internal/credential"
	"github.com/dhawalhost/dirsync/internal/events"
	"github.com/dhawalhost/dirsync/internal/identity"
	"github.com/dhawalhost/dirsync/internal/provider"
	"github.com/dhawalhost/dirsync/internal/record"
	"github.com/dhawalhost/dirsync/internal/sync"
	"github.com/dhawalhost/dirsync/pkg/database"
	"github.com/dhawalhost/dirsync/pkg/logger"
	"github.com/dhawalhost/dirsync/pkg/middleware"
	"github.com/dhawalhost/dirsync/pkg/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	log, err := logger.New(os.Getenv("DIRSYNC_DEBUG") == "true")
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	dbConfig := database.Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOrInt("DB_PORT", 3306),
		User:     envOr("DB_USER", "dirsync"),
		Password: envOr("DB_PASSWORD", "dirsync"),
		DBName:   envOr("DB_NAME", "legacy_users"),
	}
	db, err := database.NewConnection(dbConfig)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	chunkSize, err := provider.ParseChunkSize(envOr("SYNC_CHUNK_SIZE", "100"))
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	cfg := provider.Config{
		Realm:             envOr("REALM", "master"),
		ProviderID:        envOr("PROVIDER_ID", "mysql-user-directory"),
		ChunkSize:         chunkSize,
		MapNames:          envOr("MAP_NAMES", "true") == "true",
		FullSyncPeriod:    envOrDuration("FULL_SYNC_PERIOD", 24*time.Hour),
		ChangedSyncPeriod: envOrDuration("CHANGED_SYNC_PERIOD", 15*time.Minute),
	}

	policy := credential.Policy{
		Algorithm: envOr("PASSWORD_HASH_ALGORITHM", credential.AlgorithmBcrypt),
		Cost:      envOrInt("PASSWORD_HASH_COST", 12),
	}

	// The identity store and federated attribute storage belong to the
	// host identity provider; the in-memory implementations stand in
	// until the host wires its own.
	identities := identity.NewMemStore()
	attrs := identity.NewMemAttributeStore()

	store := record.NewSQLStore(db)
	p, err := provider.NewProvider(cfg, store, identities, attrs, policy, log)
	if err != nil {
		log.Fatal("Provider activation rejected", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	p.Engine().SetMetrics(metrics)

	dispatcher := events.NewDispatcher(webhookEndpoints(), log)
	p.Engine().OnUserCreated(func(ev sync.Event) {
		log.Info("user created in identity store",
			zap.String("event_id", ev.ID),
			zap.String("username", ev.Username))
		dispatcher.Publish(ev)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := provider.NewScheduler(p, log)
	go scheduler.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(observability.PrometheusMiddleware(metrics))
	router.GET("/metrics", gin.WrapH(observability.PrometheusHandler()))

	handler := provider.NewHTTPHandler(p, log)
	// Sync triggers are operator actions; keep them from being hammered.
	handler.RegisterRoutes(router, middleware.RateLimitMiddleware(rate.Limit(1), 2))

	addr := ":" + envOr("HTTP_PORT", "8084")
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// webhookEndpoints reads WEBHOOK_URLS (comma separated) and an
// optional shared WEBHOOK_SECRET. Empty means no deliveries.
func webhookEndpoints() []events.Endpoint {
	urls := os.Getenv("WEBHOOK_URLS")
	if urls == "" {
		return nil
	}
	secret := os.Getenv("WEBHOOK_SECRET")
	var endpoints []events.Endpoint
	for _, u := range strings.Split(urls, ",") {
		if u = strings.TrimSpace(u); u != "" {
			endpoints = append(endpoints, events.Endpoint{URL: u, Secret: secret})
		}
	}
	return endpoints
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
