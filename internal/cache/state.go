package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"dispatchd/internal/model"
)

// State wraps a Cache with typed accessors for the three live entities. An
// absent key decodes to the empty value, so a cold cache behaves like an empty
// dispatch board.
type State struct {
	c Cache
}

func NewState(c Cache) *State {
	return &State{c: c}
}

func (s *State) Solution(ctx context.Context) (model.Solution, error) {
	var sol model.Solution
	if err := s.load(ctx, SolutionKey, &sol); err != nil {
		return model.Solution{}, err
	}
	return sol, nil
}

func (s *State) SetSolution(ctx context.Context, sol model.Solution) error {
	return s.save(ctx, SolutionKey, sol)
}

func (s *State) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := s.load(ctx, VehiclesKey, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (s *State) SetVehicles(ctx context.Context, vehicles []model.Vehicle) error {
	return s.save(ctx, VehiclesKey, vehicles)
}

func (s *State) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := s.load(ctx, OrdersKey, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *State) SetOrders(ctx context.Context, orders []model.Order) error {
	return s.save(ctx, OrdersKey, orders)
}

func (s *State) load(ctx context.Context, key string, v any) error {
	raw, ok, err := s.c.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *State) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.c.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
