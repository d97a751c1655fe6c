package store

import (
	"context"

	"dispatchd/internal/model"
)

// Store is the durable backing store behind the state cache. Vehicles and
// orders are upserted by id; solutions are append-only snapshots with the most
// recent one retrievable (older snapshots are kept for audit).
type Store interface {
	UpsertVehicle(ctx context.Context, v model.Vehicle) error
	UpsertOrder(ctx context.Context, o model.Order) error
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	ListOrders(ctx context.Context) ([]model.Order, error)

	InsertSolution(ctx context.Context, s model.Solution) error
	// LatestSolution returns ok=false when no snapshot has been written yet.
	LatestSolution(ctx context.Context) (model.Solution, bool, error)

	Ping(ctx context.Context) error
}
