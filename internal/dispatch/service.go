// Package dispatch implements the synchronous command surface of the board:
// cache-backed CRUD for vehicles and orders, order assignment, task
// enqueueing, and hydration from the durable store. All mutations are
// whole-value read-modify-write on the state cache; concurrent writers can
// lose updates (last writer wins).
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"dispatchd/internal/cache"
	"dispatchd/internal/logger"
	"dispatchd/internal/model"
	"dispatchd/internal/store"
	"dispatchd/internal/stream"
)

var (
	ErrUnknownOrder   = errors.New("unknown order")
	ErrUnknownVehicle = errors.New("unknown vehicle")
	ErrVehicleExists  = errors.New("vehicle already exists")
	ErrOrderExists    = errors.New("order already exists")
)

type Service struct {
	State   *cache.State
	Streams *stream.Streams
	Store   store.Store
	Log     logger.Logger
}

func NewService(state *cache.State, streams *stream.Streams, st store.Store, log logger.Logger) *Service {
	return &Service{State: state, Streams: streams, Store: st, Log: log}
}

// Solution returns the current solution from the state cache.
func (s *Service) Solution(ctx context.Context) (model.Solution, error) {
	return s.State.Solution(ctx)
}

// AssignOrder moves orderID onto vehicleID's route, removing it from any other
// route first so an order is never on two routes. An empty or unknown vehicle
// id unassigns the order everywhere. An unknown order id is rejected.
func (s *Service) AssignOrder(ctx context.Context, orderID, vehicleID string) error {
	orders, err := s.State.Orders(ctx)
	if err != nil {
		return err
	}
	if !orderKnown(orders, orderID) {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}

	solution, err := s.State.Solution(ctx)
	if err != nil {
		return err
	}

	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return err
	}
	if vehicleID == "" || !vehicleKnown(vehicles, vehicleID) {
		solution.RemoveOrder(orderID)
		return s.State.SetSolution(ctx, solution)
	}

	solution.RemoveOrderExcept(orderID, vehicleID)
	idx := solution.AssignmentIndex(vehicleID)
	if idx < 0 {
		solution.Assignments = append(solution.Assignments, model.Assignment{
			VehicleID: vehicleID,
			Route:     []string{orderID},
		})
		return s.State.SetSolution(ctx, solution)
	}
	if !contains(solution.Assignments[idx].Route, orderID) {
		solution.Assignments[idx].Route = append(solution.Assignments[idx].Route, orderID)
	}
	return s.State.SetSolution(ctx, solution)
}

// EnqueueSave appends a persist-now command to the save stream and returns the
// assigned message id. The flush happens asynchronously in the worker.
func (s *Service) EnqueueSave(ctx context.Context) (string, error) {
	return s.Streams.Publish(ctx, stream.SaveStream, stream.SaveTaskFields())
}

// EnqueueOptimize appends an optimize command for vehicleID onto the events
// stream. The vehicle must exist; whether it has an assignment is checked by
// the worker.
func (s *Service) EnqueueOptimize(ctx context.Context, vehicleID string) (string, error) {
	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return "", err
	}
	if !vehicleKnown(vehicles, vehicleID) {
		return "", fmt.Errorf("%w: %s", ErrUnknownVehicle, vehicleID)
	}
	return s.Streams.Publish(ctx, stream.EventsStream, stream.OptimizeEventFields(vehicleID))
}

// Hydrate overwrites the state cache from the durable store: the most recent
// solution snapshot (empty if none) plus the full vehicle and order
// collections. It is a full overwrite, safe to call at any time.
func (s *Service) Hydrate(ctx context.Context) error {
	solution, _, err := s.Store.LatestSolution(ctx)
	if err != nil {
		return fmt.Errorf("hydrate solution: %w", err)
	}
	vehicles, err := s.Store.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("hydrate vehicles: %w", err)
	}
	orders, err := s.Store.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("hydrate orders: %w", err)
	}

	if err := s.State.SetSolution(ctx, solution); err != nil {
		return err
	}
	if err := s.State.SetVehicles(ctx, vehicles); err != nil {
		return err
	}
	if err := s.State.SetOrders(ctx, orders); err != nil {
		return err
	}
	s.Log.Infof("hydrated cache: %d vehicles, %d orders, %d assignments",
		len(vehicles), len(orders), len(solution.Assignments))
	return nil
}

func orderKnown(orders []model.Order, id string) bool {
	for _, o := range orders {
		if o.ID == id && !o.Deleted {
			return true
		}
	}
	return false
}

func vehicleKnown(vehicles []model.Vehicle, id string) bool {
	for _, v := range vehicles {
		if v.ID == id && !v.Deleted {
			return true
		}
	}
	return false
}

func contains(route []string, id string) bool {
	for _, r := range route {
		if r == id {
			return true
		}
	}
	return false
}
