package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"

	"dispatchd/internal/cache"
	"dispatchd/internal/config"
	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
	"dispatchd/internal/pipeline"
	"dispatchd/internal/store"
	"dispatchd/internal/stream"
)

func main() {
	_ = godotenv.Load()
	log := logger.New("worker")

	cfg, err := config.Load(os.Getenv("DISPATCHD_CONFIG"))
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}
	metrics.RegisterDefault()

	consumer := cfg.ConsumerName()

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

	save := &pipeline.SavePipeline{
		Streams:  streams,
		State:    state,
		Store:    st,
		Consumer: consumer,
		Block:    cfg.Block(),
		Backoff:  cfg.Backoff(),
		Log:      logger.New("save"),
	}
	optimize := &pipeline.OptimizePipeline{
		Streams:   streams,
		State:     state,
		Optimizer: pipeline.NewShuffleOptimizer(),
		Consumer:  consumer,
		Block:     cfg.Block(),
		Backoff:   cfg.Backoff(),
		Log:       logger.New("optimize"),
	}

	log.Infof("worker %s starting", consumer)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := save.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("save pipeline stopped: %v", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		if err := optimize.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("optimize pipeline stopped: %v", err)
			stop()
		}
	}()
	wg.Wait()
	log.Infof("worker %s stopped", consumer)
}
