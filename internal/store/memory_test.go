package store

import (
	"context"
	"testing"

	"dispatchd/internal/model"
)

func TestMemoryUpsertAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.UpsertVehicle(ctx, model.Vehicle{ID: "v2", Name: "Truck 2"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := m.UpsertVehicle(ctx, model.Vehicle{ID: "v1", Name: "Truck 1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// second upsert of the same id replaces, not duplicates
	if err := m.UpsertVehicle(ctx, model.Vehicle{ID: "v1", Name: "Truck 1b"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	vehicles, err := m.ListVehicles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(vehicles))
	}
	if vehicles[0].ID != "v1" || vehicles[0].Name != "Truck 1b" {
		t.Fatalf("unexpected first vehicle: %+v", vehicles[0])
	}
}

func TestMemorySolutionHistory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, err := m.LatestSolution(ctx); err != nil || ok {
		t.Fatalf("expected no snapshot yet, ok=%v err=%v", ok, err)
	}

	first := model.Solution{Assignments: []model.Assignment{{VehicleID: "v1", Route: []string{"o1"}}}}
	second := model.Solution{Assignments: []model.Assignment{{VehicleID: "v1", Route: []string{"o1", "o2"}}}}
	if err := m.InsertSolution(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.InsertSolution(ctx, second); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, ok, err := m.LatestSolution(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if len(got.Assignments) != 1 || len(got.Assignments[0].Route) != 2 {
		t.Fatalf("latest is not the second snapshot: %+v", got)
	}
	if m.SolutionCount() != 2 {
		t.Fatalf("history not retained: %d", m.SolutionCount())
	}
}
