// Package pipeline holds the three long-lived consumer loops: the save
// pipeline and optimize pipeline run in the worker process, the results
// consumer in the api process. All loops block on bounded stream reads so they
// observe shutdown between iterations, and treat every error as local:
// log, back off, keep going.
package pipeline

import (
	"context"
	"time"
)

// sleep pauses for d unless ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
