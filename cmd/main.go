package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tiaraboard/tiara/internal/adapters/http/api"
	"github.com/tiaraboard/tiara/internal/adapters/http/swagger"
	"github.com/tiaraboard/tiara/internal/app"
	"github.com/tiaraboard/tiara/internal/config"
	"github.com/tiaraboard/tiara/pkg/logger"
	"github.com/tiaraboard/tiara/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// The custom registry carries all service metrics; the default Go and
	// process collectors would double up under scrape.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is format-configured, so initialization errors go to stderr.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Load and validate the event definition before anything listens.
	event, err := config.LoadEvent(ctx, cfg.EventFile)
	if err != nil {
		log.Error(ctx, "failed to load event definition",
			logger.String("event_file", cfg.EventFile), logger.Error(err))
		os.Exit(1)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithEvent(event),
		app.WithStoreDriver(cfg.StoreDriver, cfg.StoreDSN),
		app.WithQueueCapacity(cfg.QueueCapacity),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithCoalesceMaxSize(cfg.CoalesceMaxSize),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API documentation under /api-docs.
	swagger.Register(ctx, mux)

	auth := api.NewAuthService(
		cfg.JWTSecret,
		cfg.AdminAccessCode,
		time.Duration(cfg.TokenTTLMinutes)*time.Minute,
		svc,
	)
	apiServer := api.NewServer(svc, svc, auth)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("event", event.Name),
			logger.String("store_driver", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater periodically mirrors service statistics into
// the Prometheus gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if depth, ok := stats["queueDepth"].(int); ok {
		metrics.UpdateQueueDepth(depth)
	}
	if count, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(count)
	}
	if scores, ok := stats["scores"].(int); ok {
		metrics.UpdateScoreRows(scores)
	}
	if locks, ok := stats["locks"].(int); ok {
		metrics.UpdateSubmissionLocks(locks)
	}
	if judges, ok := stats["judges"].(int); ok {
		metrics.UpdateJudges(judges)
	}
	if contestants, ok := stats["contestants"].(int); ok {
		metrics.UpdateContestants(contestants)
	}
}
