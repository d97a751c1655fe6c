package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dispatchd/internal/config"
	"dispatchd/internal/logger"
	"dispatchd/internal/model"
	"dispatchd/internal/store"
)

// fixture is the seed file shape: one document describes the whole board.
// Keys follow the model's json tags.
type fixture struct {
	Vehicles []model.Vehicle `json:"vehicles"`
	Orders   []model.Order   `json:"orders"`
	Solution model.Solution  `json:"solution"`
}

// parseFixture decodes yaml through a json round-trip so the model's json
// tags apply to the fixture keys as well.
func parseFixture(raw []byte) (fixture, error) {
	var node any
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return fixture{}, err
	}
	b, err := json.Marshal(node)
	if err != nil {
		return fixture{}, err
	}
	var fx fixture
	if err := json.Unmarshal(b, &fx); err != nil {
		return fixture{}, err
	}
	return fx, nil
}

func main() {
	_ = godotenv.Load()
	log := logger.New("seed")

	path := flag.String("file", "seed.yaml", "fixture file with vehicles, orders and a solution")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("DISPATCHD_CONFIG"))
	if err != nil {
		log.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Errorf("database_url is required for seeding")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Errorf("read fixture: %v", err)
		os.Exit(1)
	}
	fx, err := parseFixture(raw)
	if err != nil {
		log.Errorf("parse fixture: %v", err)
		os.Exit(1)
	}
	// fixture entries may omit ids
	for i := range fx.Vehicles {
		if fx.Vehicles[i].ID == "" {
			fx.Vehicles[i].ID = uuid.NewString()
		}
	}
	for i := range fx.Orders {
		if fx.Orders[i].ID == "" {
			fx.Orders[i].ID = uuid.NewString()
		}
	}

	ctx := context.Background()
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

	for _, v := range fx.Vehicles {
		if err := pg.UpsertVehicle(ctx, v); err != nil {
			log.Errorf("vehicle %s: %v", v.ID, err)
			os.Exit(1)
		}
	}
	for _, o := range fx.Orders {
		if err := pg.UpsertOrder(ctx, o); err != nil {
			log.Errorf("order %s: %v", o.ID, err)
			os.Exit(1)
		}
	}
	if err := pg.InsertSolution(ctx, fx.Solution); err != nil {
		log.Errorf("solution: %v", err)
		os.Exit(1)
	}
	log.Infof("seeded %d vehicles, %d orders, %d assignments",
		len(fx.Vehicles), len(fx.Orders), len(fx.Solution.Assignments))
}
