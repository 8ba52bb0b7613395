// HTTP API - действия, платные взаимодействия, кошельки, уровни
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/glkeru/affinity/internal/api"
	app "github.com/glkeru/affinity/internal/app"
	config "github.com/glkeru/affinity/internal/config"
	kafka "github.com/glkeru/affinity/internal/external/kafka"
	interf "github.com/glkeru/affinity/internal/interfaces"
	otel "github.com/glkeru/affinity/observability/otel"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// log
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// config
	config.LoadDotEnv(logger)
	port := config.MustEnv("AFFINITY_HTTP_PORT")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// tracing
	shutdown, err := otel.InitTracer(ctx, logger, "affinity-api")
	if err != nil {
		panic(err)
	}
	defer shutdown()

	// level-up events
	var publisher interf.LevelUpPublisher
	writer, err := kafka.NewLevelUpWriter()
	if err != nil {
		logger.Error("level-up events are disabled", zap.Error(err))
	} else {
		publisher = writer
		defer writer.Close()
	}

	// services
	core, err := app.New(ctx, logger, publisher)
	if err != nil {
		panic(err)
	}
	defer core.Close()

	// api handlers
	h := api.NewHandler(core.Scores, core.Ledger, core.Interactions, logger)
	limiter := api.NewRateLimiter(config.CountEnv("AFFINITY_RATE_LIMIT", 20), logger)
	h.Router().Use(limiter.Middleware)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", otelhttp.NewHandler(h, "affinity-api"))

	srv := &http.Server{
		Handler:      mux,
		Addr:         ":" + port,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", zap.Error(err))
			cancel()
		}
	}()

	// лимитеры клиентов сбрасываем раз в 10 минут
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Reset()
			}
		}
	}()

	// shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interrupt:
	case <-ctx.Done():
	}
	timeout, tcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer tcancel()
	if err = srv.Shutdown(timeout); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
