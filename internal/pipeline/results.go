package pipeline

import (
	"context"
	"time"

	"dispatchd/internal/cache"
	"dispatchd/internal/hub"
	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
	"dispatchd/internal/stream"
)

// ResultsConsumer merges optimizer outcomes into the live solution and
// notifies connected clients. It is a plain reader (no consumer group; there
// is exactly one logical reader) starting at only-new-messages, so a restart
// skips results published while it was down. That is accepted: a missed merge
// self-corrects on the next optimize cycle.
type ResultsConsumer struct {
	Streams *stream.Streams
	State   *cache.State
	Hub     *hub.Hub
	Block   time.Duration
	Backoff time.Duration
	Log     logger.Logger
}

func (c *ResultsConsumer) Run(ctx context.Context) error {
	lastID := "$"
	c.Log.Infof("results consumer listening on %s", stream.ResultsStream)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msgs, err := c.Streams.Read(ctx, stream.ResultsStream, lastID, c.Block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Errorf("read results stream: %v", err)
			sleep(ctx, c.Backoff)
			continue
		}
		for _, m := range msgs {
			lastID = m.ID
			c.merge(ctx, m)
		}
	}
}

func (c *ResultsConsumer) merge(ctx context.Context, m stream.Message) {
	res, err := stream.ParseResult(m)
	if err != nil {
		c.Log.Warnf("dropping malformed result: %v", err)
		metrics.TasksMalformed.WithLabelValues(stream.ResultsStream).Inc()
		return
	}

	solution, err := c.State.Solution(ctx)
	if err != nil {
		c.Log.Errorf("load solution for result %s: %v", m.ID, err)
		metrics.TasksFailed.WithLabelValues(stream.ResultsStream).Inc()
		return
	}

	// last writer wins per vehicle: the result replaces the route wholesale,
	// even over intervening manual edits. If the vehicle lost its assignment
	// meanwhile (e.g. deleted), the result is discarded.
	if idx := solution.AssignmentIndex(res.VehicleID); idx >= 0 {
		solution.Assignments[idx].Route = res.Route
		if err := c.State.SetSolution(ctx, solution); err != nil {
			c.Log.Errorf("store merged solution for %s: %v", res.VehicleID, err)
			metrics.TasksFailed.WithLabelValues(stream.ResultsStream).Inc()
			return
		}
	}

	metrics.TasksProcessed.WithLabelValues(stream.ResultsStream).Inc()
	c.Hub.Broadcast(res.VehicleID)
}
