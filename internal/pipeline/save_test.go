package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatchd/internal/cache"
	"dispatchd/internal/config"
	"dispatchd/internal/logger"
	"dispatchd/internal/model"
	"dispatchd/internal/store"
	"dispatchd/internal/stream"
)

type pipelineFixture struct {
	streams *stream.Streams
	state   *cache.State
	store   *store.Memory
}

func newFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &pipelineFixture{
		streams: stream.New(rdb),
		state:   cache.NewState(cache.NewRedis(rdb)),
		store:   store.NewMemory(),
	}
}

func (f *pipelineFixture) savePipeline(st store.Store) *SavePipeline {
	return &SavePipeline{
		Streams:  f.streams,
		State:    f.state,
		Store:    st,
		Consumer: "test-worker",
		Block:    50 * time.Millisecond,
		Backoff:  10 * time.Millisecond,
		Log:      logger.NopLogger{},
	}
}

func TestSavePipelineFlushesCacheToStore(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.state.SetVehicles(ctx, []model.Vehicle{{ID: "v1", Name: "Truck 1"}}))
	require.NoError(t, f.state.SetOrders(ctx, []model.Order{{ID: "o1", WeightKg: 3}}))
	require.NoError(t, f.state.SetSolution(ctx, model.Solution{
		Assignments: []model.Assignment{{VehicleID: "v1", Route: []string{"o1"}}},
	}))

	_, err := f.streams.Publish(ctx, stream.SaveStream, stream.SaveTaskFields())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.savePipeline(f.store).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, ok, err := f.store.LatestSolution(context.Background())
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	sol, ok, err := f.store.LatestSolution(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []model.Assignment{{VehicleID: "v1", Route: []string{"o1"}}}, sol.Assignments)

	vehicles, err := f.store.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
	orders, err := f.store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// the task was acknowledged only after the store writes landed
	require.Eventually(t, func() bool {
		pending, err := f.streams.Pending(context.Background(), stream.SaveStream, stream.SaveGroup, "test-worker")
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

// failingStore rejects solution snapshots until allowed.
type failingStore struct {
	*store.Memory
	attempts atomic.Int32
	allow    atomic.Bool
}

func (s *failingStore) InsertSolution(ctx context.Context, sol model.Solution) error {
	s.attempts.Add(1)
	if !s.allow.Load() {
		return errors.New("store unavailable")
	}
	return s.Memory.InsertSolution(ctx, sol)
}

func TestSavePipelineLeavesFailedTaskForRedelivery(t *testing.T) {
	f := newFixture(t)
	fs := &failingStore{Memory: f.store}

	ctx1, cancel1 := context.WithCancel(context.Background())
	_, err := f.streams.Publish(ctx1, stream.SaveStream, stream.SaveTaskFields())
	require.NoError(t, err)

	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		_ = f.savePipeline(fs).Run(ctx1)
	}()

	// the handler ran and failed; no snapshot, no ack
	require.Eventually(t, func() bool {
		return fs.attempts.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel1()
	<-done1

	_, ok, err := f.store.LatestSolution(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "failed flush must not be acked as done")

	pending, err := f.streams.Pending(context.Background(), stream.SaveStream, stream.SaveGroup, "test-worker")
	require.NoError(t, err)
	require.Len(t, pending, 1, "unacked task should still be pending")

	// a restarted consumer picks the task back up and succeeds
	fs.allow.Store(true)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		_ = f.savePipeline(fs).Run(ctx2)
	}()

	require.Eventually(t, func() bool {
		_, ok, err := f.store.LatestSolution(context.Background())
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)
	cancel2()
	<-done2
}

// A task read by a worker that dies before acking must reach the replacement
// process. That only works because the default consumer name is derived from
// the host, not generated fresh per boot: the restarted worker rejoins the
// group under the same identity and drains its own pending entries.
func TestSavePipelineRedeliveryWithDefaultConsumerName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.state.SetSolution(ctx, model.Solution{
		Assignments: []model.Assignment{{VehicleID: "v1", Route: []string{"o1"}}},
	}))
	_, err := f.streams.Publish(ctx, stream.SaveStream, stream.SaveTaskFields())
	require.NoError(t, err)

	// first boot: read the task, then die without acking
	name := (&config.Config{}).ConsumerName()
	require.NoError(t, f.streams.EnsureGroup(ctx, stream.SaveStream, stream.SaveGroup))
	msgs, err := f.streams.ReadGroup(ctx, stream.SaveStream, stream.SaveGroup, name, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// second boot: a fresh pipeline under the freshly derived name
	p := f.savePipeline(f.store)
	p.Consumer = (&config.Config{}).ConsumerName()

	ctx2, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx2)
	}()

	require.Eventually(t, func() bool {
		_, ok, err := f.store.LatestSolution(context.Background())
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond, "stranded task was never redelivered")

	require.Eventually(t, func() bool {
		pending, err := f.streams.Pending(context.Background(), stream.SaveStream, stream.SaveGroup, p.Consumer)
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestSavePipelineAcksMalformedAndKeepsGoing(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.streams.Publish(ctx, stream.SaveStream, map[string]any{"task": "vacuum"})
	require.NoError(t, err)
	_, err = f.streams.Publish(ctx, stream.SaveStream, stream.SaveTaskFields())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.savePipeline(f.store).Run(ctx)
	}()

	// the valid task behind the malformed one still gets processed
	require.Eventually(t, func() bool {
		_, ok, err := f.store.LatestSolution(context.Background())
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	// both messages are acked, including the malformed one
	require.Eventually(t, func() bool {
		pending, err := f.streams.Pending(context.Background(), stream.SaveStream, stream.SaveGroup, "test-worker")
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
