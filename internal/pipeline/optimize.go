package pipeline

import (
	"context"
	"time"

	"dispatchd/internal/cache"
	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
	"dispatchd/internal/stream"
)

// OptimizePipeline drains optimize commands from the events stream, runs the
// pluggable optimizer on the vehicle's current route, and publishes the
// outcome onto the results stream. The candidate route is computed from
// current cache state, so duplicate delivery just produces another result.
type OptimizePipeline struct {
	Streams   *stream.Streams
	State     *cache.State
	Optimizer Optimizer
	Consumer  string
	Block     time.Duration
	Backoff   time.Duration
	Log       logger.Logger
}

func (p *OptimizePipeline) Run(ctx context.Context) error {
	if err := p.Streams.EnsureGroup(ctx, stream.EventsStream, stream.EventsGroup); err != nil {
		return err
	}

	pending, err := p.Streams.Pending(ctx, stream.EventsStream, stream.EventsGroup, p.Consumer)
	if err != nil {
		p.Log.Errorf("read pending events: %v", err)
	}
	for _, m := range pending {
		p.handle(ctx, m)
	}

	p.Log.Infof("optimize pipeline listening on %s as %s", stream.EventsStream, p.Consumer)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := p.Streams.ReadGroup(ctx, stream.EventsStream, stream.EventsGroup, p.Consumer, p.Block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Errorf("read events stream: %v", err)
			sleep(ctx, p.Backoff)
			continue
		}
		for _, m := range msgs {
			p.handle(ctx, m)
		}
	}
}

func (p *OptimizePipeline) handle(ctx context.Context, m stream.Message) {
	evt, err := stream.ParseEvent(m)
	if err != nil {
		p.Log.Warnf("dropping malformed event: %v", err)
		metrics.TasksMalformed.WithLabelValues(stream.EventsStream).Inc()
		p.ack(ctx, m.ID)
		return
	}
	if evt.Kind != stream.EventOptimizeRoute {
		// foreign event kinds are acknowledged so they never block this group
		p.ack(ctx, m.ID)
		return
	}
	if err := p.optimize(ctx, evt.VehicleID); err != nil {
		p.Log.Errorf("optimize task %s (vehicle %s) failed: %v", m.ID, evt.VehicleID, err)
		metrics.TasksFailed.WithLabelValues(stream.EventsStream).Inc()
		return
	}
	p.ack(ctx, m.ID)
	metrics.TasksProcessed.WithLabelValues(stream.EventsStream).Inc()
	p.Log.Infof("optimize task completed for vehicle %s", evt.VehicleID)
}

func (p *OptimizePipeline) optimize(ctx context.Context, vehicleID string) error {
	solution, err := p.State.Solution(ctx)
	if err != nil {
		return err
	}
	idx := solution.AssignmentIndex(vehicleID)
	if idx < 0 {
		// vehicle has no assignment: nothing to do is not an error
		p.Log.Infof("vehicle %s has no assignment, skipping", vehicleID)
		return nil
	}

	candidate := p.Optimizer.Optimize(solution.Assignments[idx].Route)

	fields, err := stream.ResultFields(vehicleID, candidate)
	if err != nil {
		return err
	}
	_, err = p.Streams.Publish(ctx, stream.ResultsStream, fields)
	return err
}

func (p *OptimizePipeline) ack(ctx context.Context, id string) {
	if err := p.Streams.Ack(ctx, stream.EventsStream, stream.EventsGroup, id); err != nil {
		p.Log.Errorf("ack %s: %v", id, err)
	}
}
