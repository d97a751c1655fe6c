package pipeline

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizePreservesRouteSet(t *testing.T) {
	o := NewShuffleOptimizer()
	o.Delay = 0

	for _, route := range [][]string{
		{},
		{"o1"},
		{"o1", "o2"},
		{"o1", "o2", "o3", "o4", "o5"},
	} {
		in := append([]string(nil), route...)
		out := o.Optimize(route)
		require.Len(t, out, len(in))

		sortedIn := append([]string(nil), in...)
		sortedOut := append([]string(nil), out...)
		sort.Strings(sortedIn)
		sort.Strings(sortedOut)
		assert.Equal(t, sortedIn, sortedOut, "route %v", in)

		// input untouched
		assert.Equal(t, in, route)
	}
}

func TestOptimizeShortRoutesUnchanged(t *testing.T) {
	o := NewShuffleOptimizer()
	o.Delay = 0
	assert.Empty(t, o.Optimize(nil))
	assert.Equal(t, []string{"o1"}, o.Optimize([]string{"o1"}))
}

func TestOptimizeActuallyShuffles(t *testing.T) {
	o := NewShuffleOptimizer()
	o.Delay = 0
	route := []string{"o1", "o2", "o3", "o4"}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		out := o.Optimize(route)
		key := ""
		for _, id := range out {
			key += id + ","
		}
		seen[key] = true
	}
	// statistical: 100 shuffles of 4 elements produce more than one ordering
	assert.Greater(t, len(seen), 1)
}
