package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/app"
	"github.com/Ritika1223/jensieBackend/internal/config"
	"github.com/Ritika1223/jensieBackend/internal/handlers"
	"github.com/Ritika1223/jensieBackend/internal/middleware"
	"github.com/Ritika1223/jensieBackend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := app.NewLogger("api")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := &handlers.Server{
		Val:            validation.New(),
		Log:            logger,
		Appointments:   deps.Appointments,
		Schedules:      deps.Schedules,
		Materializer:   deps.Materializer,
		Availability:   deps.Availability,
		Labels:         deps.Labels,
		Unavailability: deps.Unavailability,
		Checks:         deps.Checks,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingLimiter := middleware.NewRateLimiter(cfg.RateLimitAppointments, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	server.Routes(r, middleware.Authenticate(cfg.AdminAPIKey, deps.JWT), bookingLimiter)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
