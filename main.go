package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-onecall/internal/config"
	"github.com/fakhrymubarak/weather-onecall/internal/handler"
	"github.com/fakhrymubarak/weather-onecall/internal/middleware"
	"github.com/fakhrymubarak/weather-onecall/internal/redis"
	"github.com/gorilla/mux"
)

func newRouter(weather *handler.WeatherHandler, limiter *middleware.RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.Handle("/weather", limiter.Middleware(http.HandlerFunc(weather.HandleWeather)))
	return r
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.GetOpenWeatherMapAPIKey() == "" {
		logger.Warnw("OPENWEATHERMAP_API_KEY is not set; weather requests will fail")
	}
	if err := redis.Ping(ctx, 2*time.Second); err != nil {
		logger.Warnw("Redis unreachable; serving without snapshot cache", "addr", config.GetRedisAddr(), "error", err)
	}

	limiter := middleware.NewRateLimiter(middleware.LimitsFromConfig())
	limiter.StartCleanup(ctx, time.Minute)

	port := config.GetServerPort()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(handler.NewWeatherHandler(), limiter),
		ReadHeaderTimeout: config.GetServerTimeout("read_header_timeout"),
		ReadTimeout:       config.GetServerTimeout("read_timeout"),
		WriteTimeout:      config.GetServerTimeout("write_timeout"),
		IdleTimeout:       config.GetServerTimeout("idle_timeout"),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Weather API server running", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Errorw("Server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetServerTimeout("shutdown_timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}
