package pipeline

import (
	"math/rand"
	"time"
)

// Optimizer produces a new visiting order for a vehicle's route. The output
// must be a permutation of the input: same ids, none added, dropped, or
// duplicated.
type Optimizer interface {
	Optimize(route []string) []string
}

// ShuffleOptimizer is the placeholder solver: a uniform random permutation for
// routes with at least two stops, identity otherwise. Delay simulates solver
// runtime.
type ShuffleOptimizer struct {
	Delay time.Duration
	rnd   *rand.Rand
}

func NewShuffleOptimizer() *ShuffleOptimizer {
	return &ShuffleOptimizer{
		Delay: time.Second,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (o *ShuffleOptimizer) Optimize(route []string) []string {
	if o.Delay > 0 {
		time.Sleep(o.Delay)
	}
	out := append([]string(nil), route...)
	if len(out) < 2 {
		return out
	}
	o.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
