package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"

	"dispatchd/internal/api"
	"dispatchd/internal/cache"
	"dispatchd/internal/config"
	"dispatchd/internal/dispatch"
	"dispatchd/internal/hub"
	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
	"dispatchd/internal/pipeline"
	"dispatchd/internal/store"
	"dispatchd/internal/stream"
)

func main() {
	_ = godotenv.Load()
	log := logger.New("api")

	cfg, err := config.Load(os.Getenv("DISPATCHD_CONFIG"))
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Errorf("parse redis url: %v", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Errorf("redis ping: %v", err)
		os.Exit(1)
	}

	var st store.Store
	if cfg.DatabaseURL == "" {
		log.Warnf("no database_url configured, using in-memory store")
		st = store.NewMemory()
	} else {
		pg, err := store.Connect(cfg.DatabaseURL, log)
		if err != nil {
			log.Errorf("connect postgres: %v", err)
			os.Exit(1)
		}
		defer func() { _ = pg.Close() }()
		if err := pg.Migrate(ctx); err != nil {
			log.Errorf("migrate: %v", err)
			os.Exit(1)
		}
		st = pg
	}

	state := cache.NewState(cache.NewRedis(rdb))
	streams := stream.New(rdb)
	svc := dispatch.NewService(state, streams, st, log)

	if err := svc.Hydrate(ctx); err != nil {
		log.Errorf("hydrate state cache: %v", err)
		os.Exit(1)
	}

	h := hub.New(logger.New("hub"))
	results := &pipeline.ResultsConsumer{
		Streams: streams,
		State:   state,
		Hub:     h,
		Block:   cfg.Block(),
		Backoff: cfg.Backoff(),
		Log:     logger.New("results"),
	}
	go func() {
		if err := results.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("results consumer stopped: %v", err)
		}
	}()

	srvDeps := api.NewServer(cfg, svc, h, rdb, st, log)

	mux := http.NewServeMux()

	// Board state and commands
	mux.HandleFunc("/api/state", srvDeps.StateHandler)
	mux.HandleFunc("/api/assign", srvDeps.AssignHandler)
	mux.HandleFunc("/api/save", srvDeps.SaveHandler)
	mux.HandleFunc("/api/optimize", srvDeps.OptimizeHandler)
	mux.HandleFunc("/api/hydrate", srvDeps.HydrateHandler)

	// Vehicles and orders
	mux.HandleFunc("/api/vehicles", srvDeps.VehiclesHandler)
	mux.HandleFunc("/api/vehicles/", srvDeps.VehicleByIDHandler)
	mux.HandleFunc("/api/drop-vehicle", srvDeps.DropVehicleHandler)
	mux.HandleFunc("/api/orders", srvDeps.OrdersHandler)
	mux.HandleFunc("/api/orders/", srvDeps.OrderByIDHandler)

	// Notifications
	mux.HandleFunc("/api/optimization-events", srvDeps.OptimizationEventsHandler)
	mux.HandleFunc("/api/ws", srvDeps.WSHandler)

	// Health and metrics
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Instrument(mux, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("API listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("server error: %v", err)
		os.Exit(1)
	}
	log.Infof("API stopped")
}
