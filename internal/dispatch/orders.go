package dispatch

import (
	"context"
	"fmt"

	"dispatchd/internal/model"
)

// Orders lists non-deleted orders from the state cache.
func (s *Service) Orders(ctx context.Context) ([]model.Order, error) {
	orders, err := s.State.Orders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if !o.Deleted {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	orders, err := s.State.Orders(ctx)
	if err != nil {
		return model.Order{}, err
	}
	for _, existing := range orders {
		if existing.ID == o.ID {
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderExists, o.ID)
		}
	}
	o.Deleted = false
	orders = append(orders, o)
	if err := s.State.SetOrders(ctx, orders); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id string, o model.Order) (model.Order, error) {
	orders, err := s.State.Orders(ctx)
	if err != nil {
		return model.Order{}, err
	}
	for i := range orders {
		if orders[i].ID == id && !orders[i].Deleted {
			o.ID = id
			o.Deleted = false
			orders[i] = o
			if err := s.State.SetOrders(ctx, orders); err != nil {
				return model.Order{}, err
			}
			return o, nil
		}
	}
	return model.Order{}, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
}

// DeleteOrder soft-deletes the order and removes it from whichever route holds
// it.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	orders, err := s.State.Orders(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range orders {
		if orders[i].ID == id && !orders[i].Deleted {
			orders[i].Deleted = true
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	if err := s.State.SetOrders(ctx, orders); err != nil {
		return err
	}

	solution, err := s.State.Solution(ctx)
	if err != nil {
		return err
	}
	solution.RemoveOrder(id)
	return s.State.SetSolution(ctx, solution)
}
