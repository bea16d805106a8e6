package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/orchestrator"
	"github.com/teslashibe/nova-guide/pkg/rooms"
)

type memRooms struct {
	mu    sync.Mutex
	rooms map[string]rooms.Point
	err   error
}

func (m *memRooms) All() map[string]rooms.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]rooms.Point, len(m.rooms))
	for k, v := range m.rooms {
		out[k] = v
	}
	return out
}

func (m *memRooms) Save(_ context.Context, name string, p rooms.Point) error {
	if m.err != nil {
		return m.err
	}
	name = rooms.NormalizeName(name)
	if name == "" {
		return rooms.ErrEmptyName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[name] = p
	return nil
}

type fixedStatus orchestrator.Status

func (f fixedStatus) Snapshot() orchestrator.Status { return orchestrator.Status(f) }

func newTestServer(t *testing.T) (*Server, *memRooms) {
	t.Helper()
	store := &memRooms{rooms: map[string]rooms.Point{"kitchen": {X: 1, Y: 2}}}
	return NewServer(":0", store, log.Discard()), store
}

func do(t *testing.T, s *Server, req *http.Request) (int, string) {
	t.Helper()
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)

	code, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.SetStatus(fixedStatus{State: orchestrator.Paused, Blocked: true, Task: "move_forward(50) to kitchen"})
	code, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, code)

	var got orchestrator.Status
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, orchestrator.Paused, got.State)
	assert.True(t, got.Blocked)
	assert.Equal(t, "move_forward(50) to kitchen", got.Task)
}

func TestRooms_ListAndSave(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(`{"name":" Living Room ","x":3.5,"y":-1}`))
	req.Header.Set("Content-Type", "application/json")
	code, body := do(t, s, req)
	require.Equal(t, http.StatusCreated, code, body)
	assert.JSONEq(t, `{"name":"living room","x":3.5,"y":-1}`, body)
	assert.Equal(t, rooms.Point{X: 3.5, Y: -1}, store.All()["living room"])

	code, body = do(t, s, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"kitchen","x":1,"y":2},{"name":"living room","x":3.5,"y":-1}]`, body)
}

func TestRooms_SaveErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		storeErr error
		want     int
	}{
		{name: "empty name", body: `{"name":"  ","x":1,"y":1}`, want: http.StatusBadRequest},
		{name: "bad json", body: `{"name":`, want: http.StatusBadRequest},
		{name: "store failure", body: `{"name":"hall","x":1,"y":1}`, storeErr: errors.New("disk full"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestServer(t)
			store.err = tt.storeErr

			req := httptest.NewRequest(http.MethodPost, "/api/rooms", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			code, body := do(t, s, req)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, body, `"error"`)
		})
	}
}

func TestStatusWS_RequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)
	code, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/ws/status", nil))
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

func TestPublishStatus_NeverBlocks(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < 1000; i++ {
		s.PublishStatus(orchestrator.Status{State: orchestrator.Listening})
	}
}
