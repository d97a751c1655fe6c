package pipeline

import (
	"context"
	"fmt"
	"time"

	"dispatchd/internal/cache"
	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
	"dispatchd/internal/store"
	"dispatchd/internal/stream"
)

// SavePipeline drains persist-now commands and flushes the state cache into
// the durable store. The flush is derived entirely from current cache content,
// so handling a redelivered message twice is harmless.
type SavePipeline struct {
	Streams  *stream.Streams
	State    *cache.State
	Store    store.Store
	Consumer string
	Block    time.Duration
	Backoff  time.Duration
	Log      logger.Logger
}

// Run consumes until ctx is cancelled. Unacknowledged in-flight messages are
// left for redelivery; there is no drain protocol.
func (p *SavePipeline) Run(ctx context.Context) error {
	if err := p.Streams.EnsureGroup(ctx, stream.SaveStream, stream.SaveGroup); err != nil {
		return err
	}

	// reclaim our own unacked messages from a previous run first
	pending, err := p.Streams.Pending(ctx, stream.SaveStream, stream.SaveGroup, p.Consumer)
	if err != nil {
		p.Log.Errorf("read pending save tasks: %v", err)
	}
	for _, m := range pending {
		p.handle(ctx, m)
	}

	p.Log.Infof("save pipeline listening on %s as %s", stream.SaveStream, p.Consumer)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := p.Streams.ReadGroup(ctx, stream.SaveStream, stream.SaveGroup, p.Consumer, p.Block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Errorf("read save stream: %v", err)
			sleep(ctx, p.Backoff)
			continue
		}
		for _, m := range msgs {
			p.handle(ctx, m)
		}
	}
}

func (p *SavePipeline) handle(ctx context.Context, m stream.Message) {
	if err := stream.ParseSaveTask(m); err != nil {
		// a permanently malformed message must not block the stream forever
		p.Log.Warnf("dropping malformed save task: %v", err)
		metrics.TasksMalformed.WithLabelValues(stream.SaveStream).Inc()
		p.ack(ctx, m.ID)
		return
	}
	if err := p.flush(ctx); err != nil {
		// no ack: redelivery retries this task
		p.Log.Errorf("save task %s failed: %v", m.ID, err)
		metrics.TasksFailed.WithLabelValues(stream.SaveStream).Inc()
		return
	}
	p.ack(ctx, m.ID)
	metrics.TasksProcessed.WithLabelValues(stream.SaveStream).Inc()
	p.Log.Infof("save task %s completed", m.ID)
}

// flush upserts every vehicle and order by id and appends a new solution
// snapshot. Snapshots accumulate; the store keeps the most recent retrievable.
func (p *SavePipeline) flush(ctx context.Context) error {
	vehicles, err := p.State.Vehicles(ctx)
	if err != nil {
		return err
	}
	orders, err := p.State.Orders(ctx)
	if err != nil {
		return err
	}
	solution, err := p.State.Solution(ctx)
	if err != nil {
		return err
	}

	for _, v := range vehicles {
		if err := p.Store.UpsertVehicle(ctx, v); err != nil {
			return fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
	}
	for _, o := range orders {
		if err := p.Store.UpsertOrder(ctx, o); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	return p.Store.InsertSolution(ctx, solution)
}

func (p *SavePipeline) ack(ctx context.Context, id string) {
	if err := p.Streams.Ack(ctx, stream.SaveStream, stream.SaveGroup, id); err != nil {
		p.Log.Errorf("ack %s: %v", id, err)
	}
}
