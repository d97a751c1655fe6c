package store

import (
	"context"
	"sort"
	"sync"

	"dispatchd/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set, and by
// tests.
type Memory struct {
	mu        sync.Mutex
	vehicles  map[string]model.Vehicle
	orders    map[string]model.Order
	solutions []model.Solution
}

func NewMemory() *Memory {
	return &Memory{
		vehicles: map[string]model.Vehicle{},
		orders:   map[string]model.Order{},
	}
}

func (m *Memory) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
	return nil
}

func (m *Memory) UpsertOrder(ctx context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *Memory) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertSolution(ctx context.Context, s model.Solution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.solutions = append(m.solutions, cloneSolution(s))
	return nil
}

func (m *Memory) LatestSolution(ctx context.Context) (model.Solution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.solutions) == 0 {
		return model.Solution{}, false, nil
	}
	return cloneSolution(m.solutions[len(m.solutions)-1]), true, nil
}

// SolutionCount reports how many snapshots have accumulated. Test helper.
func (m *Memory) SolutionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.solutions)
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func cloneSolution(s model.Solution) model.Solution {
	out := model.Solution{Assignments: make([]model.Assignment, len(s.Assignments))}
	for i, a := range s.Assignments {
		out.Assignments[i] = model.Assignment{
			VehicleID: a.VehicleID,
			Route:     append([]string(nil), a.Route...),
		}
	}
	return out
}
