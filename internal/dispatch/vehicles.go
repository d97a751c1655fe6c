package dispatch

import (
	"context"
	"fmt"

	"dispatchd/internal/model"
)

// Vehicles lists non-deleted vehicles from the state cache.
func (s *Service) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.Deleted {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) CreateVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return model.Vehicle{}, err
	}
	for _, existing := range vehicles {
		if existing.ID == v.ID {
			return model.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleExists, v.ID)
		}
	}
	v.Deleted = false
	vehicles = append(vehicles, v)
	if err := s.State.SetVehicles(ctx, vehicles); err != nil {
		return model.Vehicle{}, err
	}
	return v, nil
}

func (s *Service) UpdateVehicle(ctx context.Context, id string, v model.Vehicle) (model.Vehicle, error) {
	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return model.Vehicle{}, err
	}
	for i := range vehicles {
		if vehicles[i].ID == id && !vehicles[i].Deleted {
			v.ID = id
			v.Deleted = false
			vehicles[i] = v
			if err := s.State.SetVehicles(ctx, vehicles); err != nil {
				return model.Vehicle{}, err
			}
			return v, nil
		}
	}
	return model.Vehicle{}, fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
}

// DropVehicle soft-deletes the vehicle and scrubs its assignment from the
// solution in the same operation, so the solution never references a deleted
// vehicle.
func (s *Service) DropVehicle(ctx context.Context, id string) error {
	vehicles, err := s.State.Vehicles(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range vehicles {
		if vehicles[i].ID == id && !vehicles[i].Deleted {
			vehicles[i].Deleted = true
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownVehicle, id)
	}
	if err := s.State.SetVehicles(ctx, vehicles); err != nil {
		return err
	}

	solution, err := s.State.Solution(ctx)
	if err != nil {
		return err
	}
	solution.RemoveVehicle(id)
	return s.State.SetSolution(ctx, solution)
}
