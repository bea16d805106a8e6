package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	if t != websocket.TextMessage {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, w := range f.written {
		out[i] = string(w)
	}
	return out
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := New("test", log.Discard())
	w := worker.New("hub", h.Run)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { worker.StopAndJoin(w, time.Second, time.Second) })
	return h
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := startHub(t)

	a, b := newFakeConn(), newFakeConn()
	for _, conn := range []*fakeConn{a, b} {
		c := NewClient(h, conn)
		require.NotNil(t, c)
		go c.Run()
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"state": "paused"}))

	for _, conn := range []*fakeConn{a, b} {
		require.Eventually(t, func() bool { return len(conn.Written()) == 1 }, time.Second, time.Millisecond)
		assert.JSONEq(t, `{"state":"paused"}`, conn.Written()[0])
	}
}

func TestHub_ReplaysLastToNewClient(t *testing.T) {
	h := startHub(t)
	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 1}))
	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 2}))

	conn := newFakeConn()
	c := NewClient(h, conn)
	require.NotNil(t, c)
	go c.Run()

	require.Eventually(t, func() bool { return len(conn.Written()) >= 1 }, time.Second, time.Millisecond)
	assert.JSONEq(t, `{"n":2}`, conn.Written()[0])
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := startHub(t)

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StoppedHubRejectsClients(t *testing.T) {
	h := New("test", log.Discard())
	w := worker.New("hub", h.Run)
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, worker.Joined, worker.StopAndJoin(w, time.Second, time.Second))

	assert.Nil(t, NewClient(h, newFakeConn()))
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("idle", log.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			h.Broadcast(Message{Data: []byte("x")})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}
