package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dispatchd/internal/logger"
	"dispatchd/internal/model"
)

const (
	connectAttempts = 10
	connectDelay    = 5 * time.Second
)

// Postgres implements Store. Entities are stored as jsonb documents keyed by
// their stable string id; solutions are an append-only table ordered by
// insertion.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Connect dials Postgres with the bounded startup retry policy: a process that
// can never reach its durable store should fail fast rather than run.
func Connect(dsn string, log logger.Logger) (*Postgres, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		p, err := NewPostgres(dsn)
		if err == nil {
			return p, nil
		}
		lastErr = err
		log.Errorf("connect to postgres (attempt %d/%d): %v", attempt, connectAttempts, err)
		if attempt < connectAttempts {
			time.Sleep(connectDelay)
		}
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectAttempts, lastErr)
}

// Migrate creates the schema if it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS solutions (
			id BIGSERIAL PRIMARY KEY,
			doc JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	return p.upsert(ctx, "vehicles", v.ID, v)
}

func (p *Postgres) UpsertOrder(ctx context.Context, o model.Order) error {
	return p.upsert(ctx, "orders", o.ID, o)
}

func (p *Postgres) upsert(ctx context.Context, table, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", table, id, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, doc) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		id, raw)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", table, id, err)
	}
	return nil
}

func (p *Postgres) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := p.list(ctx, "vehicles", func(raw []byte) error {
		var v model.Vehicle
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		vehicles = append(vehicles, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (p *Postgres) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := p.list(ctx, "orders", func(raw []byte) error {
		var o model.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return err
		}
		orders = append(orders, o)
		return nil
	}); err != nil {
		return nil, err
	}
	return orders, nil
}

func (p *Postgres) list(ctx context.Context, table string, each func([]byte) error) error {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM `+table+` ORDER BY id`)
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if err := each(raw); err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
	}
	return rows.Err()
}

func (p *Postgres) InsertSolution(ctx context.Context, s model.Solution) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, `INSERT INTO solutions (doc) VALUES ($1)`, raw); err != nil {
		return fmt.Errorf("insert solution: %w", err)
	}
	return nil
}

func (p *Postgres) LatestSolution(ctx context.Context) (model.Solution, bool, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT doc FROM solutions ORDER BY id DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Solution{}, false, nil
	}
	if err != nil {
		return model.Solution{}, false, fmt.Errorf("latest solution: %w", err)
	}
	var s model.Solution
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.Solution{}, false, fmt.Errorf("decode solution: %w", err)
	}
	return s, true, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
