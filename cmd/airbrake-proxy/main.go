package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/airbrake-proxy/common/id"
	"basegraph.app/airbrake-proxy/common/logger"
	"basegraph.app/airbrake-proxy/common/otel"
	"basegraph.app/airbrake-proxy/core/config"
	"basegraph.app/airbrake-proxy/core/db"
	"basegraph.app/airbrake-proxy/internal/airbrake"
	"basegraph.app/airbrake-proxy/internal/forwarder"
	"basegraph.app/airbrake-proxy/internal/http/middleware"
	httprouter "basegraph.app/airbrake-proxy/internal/http/router"
	"basegraph.app/airbrake-proxy/internal/metrics"
	"basegraph.app/airbrake-proxy/internal/sentry"
	"basegraph.app/airbrake-proxy/internal/service"
	"basegraph.app/airbrake-proxy/internal/store"
	"basegraph.app/airbrake-proxy/internal/supervisor"
)

const shutdownTimeout = 30 * time.Second

func main() {
	worker := pflag.Bool("worker", false, "serve HTTP in this process instead of supervising workers")
	pflag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	if !*worker && cfg.Listen.Workers > 0 {
		fmt.Printf("%s\n", banner)
		logger.Setup(cfg)
		os.Exit(runSupervisor(ctx, cfg))
	}

	if !*worker {
		fmt.Printf("%s\n", banner)
	}
	os.Exit(runWorker(ctx, cfg))
}

func runSupervisor(ctx context.Context, cfg config.Config) int {
	spawner, err := supervisor.NewExecSpawner(pflag.Args())
	if err != nil {
		slog.ErrorContext(ctx, "failed to prepare worker spawner", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "airbrake-proxy supervisor starting",
		"env", cfg.Env,
		"workers", cfg.Listen.Workers,
		"address", cfg.Listen.Address())

	sup := supervisor.New(spawner, supervisor.Config{Workers: cfg.Listen.Workers})
	if err := sup.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "supervisor error", "error", err)
		return 1
	}
	return 0
}

func runWorker(ctx context.Context, cfg config.Config) int {
	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		return 1
	}

	logger.Setup(cfg)
	if slot, ok := os.LookupEnv(supervisor.SlotEnv); ok {
		if n, err := strconv.Atoi(slot); err == nil {
			ctx = logger.WithLogFields(ctx, logger.LogFields{WorkerSlot: logger.Ptr(n)})
		}
	}

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "airbrake-proxy worker starting",
		"env", cfg.Env,
		"pid", os.Getpid(),
		"airbrake", cfg.Airbrake.BaseURL(),
		"sentry_enabled", cfg.Sentry.Enabled())

	database, err := db.New(ctx, cfg.Redis)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		return 1
	}
	defer database.Close()
	slog.InfoContext(ctx, "redis connected", "key", database.Key())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(reg, cfg.StatsD.Prefix)
	backends := metrics.NewBackendCollectors(reg)

	stores := store.NewStores(database.Client(), database.Key())

	airbrakeForwarder := forwarder.NewAirbrake(
		newBackendClient(backends, "airbrake"), cfg.Airbrake, stores.Correlations(), sink)

	var sentryForwarder forwarder.Forwarder
	if cfg.Sentry.Enabled() {
		translator := sentry.NewTranslator(cfg.Sentry.Projects)
		sentryForwarder = forwarder.NewSentry(newBackendClient(backends, "sentry"), cfg.Sentry, translator, sink)
		slog.InfoContext(ctx, "sentry relay enabled",
			"store_url", cfg.Sentry.StoreURL(),
			"projects", len(cfg.Sentry.Projects))
	}

	dispatcher := forwarder.NewDispatcher(airbrakeForwarder, sentryForwarder, stores.Correlations(), sink)

	services := service.NewServices(
		stores,
		dispatcher,
		id.NewGenerator(),
		airbrake.NewAcknowledgement(cfg.Listen.PublicHost, cfg.Listen.Port),
		cfg.Airbrake.LocateURL,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, sink, reg)
	server := &http.Server{
		Handler:           router,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := supervisor.Listen(ctx, cfg.Listen.Address())
	if err != nil {
		slog.ErrorContext(ctx, "failed to bind listener", "error", err)
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "http server starting", "address", cfg.Listen.Address())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-quit:
	case err := <-serveErr:
		slog.ErrorContext(ctx, "http server error", "error", err)
		exitCode = 1
	}

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	// Accepted notices are still relayed; only then may the store connection close.
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		slog.WarnContext(shutdownCtx, "in-flight relays abandoned", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
	return exitCode
}

func setupRouter(cfg config.Config, services *service.Services, sink metrics.Sink, reg *prometheus.Registry) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(httprouter.HealthPath, httprouter.MetricsPath))

	httprouter.SetupRoutes(router, services, sink, httprouter.RouterConfig{
		MaxBodyBytes: cfg.Listen.MaxBodyBytes,
		Gatherer:     reg,
	})

	return router
}

// newBackendClient builds a client that opens a fresh connection per relay.
// Per-call deadlines come from the forwarders' contexts.
func newBackendClient(backends *metrics.BackendCollectors, backend string) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	return &http.Client{Transport: backends.RoundTripper(backend, transport)}
}

const banner = `
  _   _ ___ _ __ | |__  _ __ __ _| | _____       _ __  _ __ _____  ___   _
 / _' | | '__| '_ \| '__/ _' | |/ / _ \_____| '_ \| '__/ _ \ \/ / | | |
| (_| | | |  | |_) | | | (_| |   <  __/_____| |_) | | | (_) >  <| |_| |
 \__,_|_|_|  |_.__/|_|  \__,_|_|\_\___|     | .__/|_|  \___/_/\_\\__, |
                                            |_|                  |___/
`
