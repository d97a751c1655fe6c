package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchd/internal/model"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewState(NewRedis(rdb))
}

func TestStateEmptyDefaults(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	sol, err := s.Solution(ctx)
	require.NoError(t, err)
	assert.Empty(t, sol.Assignments)

	vehicles, err := s.Vehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestStateRoundTrip(t *testing.T) {
	s := newTestState(t)
	ctx := context.Background()

	want := model.Solution{Assignments: []model.Assignment{
		{VehicleID: "v1", Route: []string{"o1", "o2"}},
	}}
	require.NoError(t, s.SetSolution(ctx, want))

	got, err := s.Solution(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	orders := []model.Order{{ID: "o1", WeightKg: 2.5}}
	require.NoError(t, s.SetOrders(ctx, orders))
	gotOrders, err := s.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders, gotOrders)
}
