package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/api"
	apimiddleware "github.com/libreshelf/bookstore-be/internal/api/middleware"
	"github.com/libreshelf/bookstore-be/internal/auth"
	"github.com/libreshelf/bookstore-be/internal/config"
	"github.com/libreshelf/bookstore-be/internal/database"
	"github.com/libreshelf/bookstore-be/internal/logger"
	"github.com/libreshelf/bookstore-be/internal/metrics"
	"github.com/libreshelf/bookstore-be/internal/monitoring"
	"github.com/libreshelf/bookstore-be/internal/services"
	"github.com/libreshelf/bookstore-be/internal/session"
	"github.com/libreshelf/bookstore-be/internal/websocket"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the active-session store
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	sessions := session.NewStore(rdb, cfg.TokenTTL)

	// Set up metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Set up the live event feed
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	bookService := services.NewBookService(db)
	eventService := services.NewEventService(db, hub)

	tokenManager := auth.NewTokenManager(cfg, sessions)

	// Set up and run the background stats updater
	statsUpdater := monitoring.NewStatsUpdater(bookService, sessions, collector)
	if err := statsUpdater.Run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start stats updater")
	}

	// Login throttling
	loginLimiter := apimiddleware.NewLoginLimiter(apimiddleware.DefaultLoginLimiterConfig())

	// Set up router
	router := api.NewRouter(api.Deps{
		Users:     userService,
		Books:     bookService,
		Events:    eventService,
		Tokens:    tokenManager,
		Sessions:  sessions,
		Hub:       hub,
		Collector: collector,
		Gatherer:  registry,
		Limiter:   loginLimiter,
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statsUpdater.Stop()
	loginLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
