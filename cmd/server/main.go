// captcha-gate - member verification gatekeeper for chat communities.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/GalaxyBotTeam/captcha-gate/internal/api"
	"github.com/GalaxyBotTeam/captcha-gate/internal/captcha"
	"github.com/GalaxyBotTeam/captcha-gate/internal/config"
	"github.com/GalaxyBotTeam/captcha-gate/internal/generator"
	"github.com/GalaxyBotTeam/captcha-gate/internal/middleware"
	"github.com/GalaxyBotTeam/captcha-gate/internal/platform/gateway"
	"github.com/GalaxyBotTeam/captcha-gate/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting captcha-gate", "port", cfg.Port)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.Dial(ctx, cfg.GatewayURL, cfg.GatewayToken, logger)
	if err != nil {
		slog.Error("Failed to connect to platform gateway", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			slog.Error("Failed to close gateway connection", "error", closeErr)
		}
	}()

	// Initialize the verification flow. Config validation already ran in
	// config.Load; New re-validates so the process never starts with an
	// invalid engine.
	verifier, err := captcha.New(cfg.Captcha, generator.NewService(), gw, logger)
	if err != nil {
		slog.Error("Failed to initialize captcha", "error", err)
		os.Exit(1)
	}

	recorder := store.NewRecorder(repo, logger)
	verifier.Notify(recorder.Listen)
	verifier.Notify(func(ev captcha.Event) {
		slog.Debug("verification event",
			"kind", string(ev.Kind),
			"member_id", ev.Member.ID(),
			"attempts_taken", ev.AttemptsTaken)
	})

	// Present a challenge to every member that joins.
	go func() {
		for join := range gw.Joins() {
			member := join.Member
			slog.Info("member joined, presenting challenge",
				"member_id", member.ID(),
				"username", member.Username())
			if err := verifier.Present(ctx, member); err != nil {
				slog.Error("failed to present challenge",
					"member_id", member.ID(),
					"error", err)
			}
		}
	}()

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	apiHandler := api.NewHandler(repo)
	apiHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Admin API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
