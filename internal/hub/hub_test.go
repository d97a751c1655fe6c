package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"dispatchd/internal/logger"
)

type fakeClient struct {
	mu   sync.Mutex
	got  []Notification
	fail bool
}

func (c *fakeClient) Send(n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection closed")
	}
	c.got = append(c.got, n)
	return nil
}

func (c *fakeClient) received() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.got...)
}

func TestBroadcastDeliversToAll(t *testing.T) {
	h := New(logger.NopLogger{})
	a, b := &fakeClient{}, &fakeClient{}
	h.Register(a)
	h.Register(b)

	h.Broadcast("v1")

	assert.Equal(t, []Notification{{VehicleID: "v1"}}, a.received())
	assert.Equal(t, []Notification{{VehicleID: "v1"}}, b.received())
}

func TestBroadcastRemovesFailingClient(t *testing.T) {
	h := New(logger.NopLogger{})
	good1, bad, good2 := &fakeClient{}, &fakeClient{fail: true}, &fakeClient{}
	h.Register(good1)
	h.Register(bad)
	h.Register(good2)

	h.Broadcast("v1")

	assert.Len(t, good1.received(), 1)
	assert.Len(t, good2.received(), 1)
	assert.Equal(t, 2, h.Len())

	// the failed client stays gone on the next broadcast
	h.Broadcast("v2")
	assert.Len(t, good1.received(), 2)
	assert.Empty(t, bad.received())
}

func TestUnregisterDuringBroadcast(t *testing.T) {
	h := New(logger.NopLogger{})
	clients := make([]*fakeClient, 20)
	for i := range clients {
		clients[i] = &fakeClient{}
		h.Register(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			h.Broadcast("v1")
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			h.Unregister(c)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, h.Len())
}
