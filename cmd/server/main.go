package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/circlerush/backend/internal/auth"
	"github.com/circlerush/backend/internal/lifecycle"
	"github.com/circlerush/backend/internal/metrics"
	"github.com/circlerush/backend/internal/middleware"
	"github.com/circlerush/backend/internal/notify"
	"github.com/circlerush/backend/internal/service"
	"github.com/circlerush/backend/internal/storage/sqlite"
	"github.com/circlerush/backend/internal/sweep"
	"github.com/circlerush/backend/pkg/logging"
)

const defaultTokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration, using fallback", "key", key, "value", value, "fallback", fallback)
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/circles.db")
	port := getEnv("PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	metrics.Register()

	jwtManager := auth.NewJWTManager(jwtSecret, defaultTokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)
	engine := lifecycle.NewEngine(store)

	authSvc := service.NewAuthService(authenticator, jwtManager, store, slog.Default())
	circleSvc := service.NewCircleService(engine)

	// Protected routes sit behind the JWT middleware; auth and metrics
	// stay public.
	protected := http.NewServeMux()
	circleSvc.Routes(protected)
	protected.HandleFunc("GET /api/auth/me", authSvc.Me)
	protectedHandler := middleware.RequireAuth(jwtManager, protected)

	mux := http.NewServeMux()
	authSvc.Routes(mux)
	mux.Handle("/api/circles", protectedHandler)
	mux.Handle("/api/circles/", protectedHandler)
	mux.Handle("/api/auth/me", protectedHandler)
	mux.Handle("/metrics", promhttp.Handler())

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})
	handler := middleware.Logging(corsMiddleware.Handler(mux))

	// h2c allows HTTP/2 without TLS behind a terminating proxy.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers: the completion sweep and the notification
	// outbox drain.
	sweeper := sweep.New(store, getEnvDuration("SWEEP_INTERVAL", sweep.DefaultInterval))
	go sweeper.Run(ctx)

	dispatcher := notify.NewHTTPDispatcher(
		getEnv("MAIL_API_URL", "http://localhost:8025/send"),
		getEnv("MAIL_API_KEY", ""),
		getEnv("MAIL_FROM", "mail@circlerush.app"),
	)
	notifier := notify.NewWorker(store, dispatcher, getEnvDuration("NOTIFY_INTERVAL", notify.DefaultInterval))
	go notifier.Run(ctx)

	addr := fmt.Sprintf(":%s", port)
	server := &http.Server{Addr: addr, Handler: h2cHandler}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Circle server starting", "address", addr,
		"sweep_interval", sweeper.Interval, "notify_interval", notifier.Interval)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
