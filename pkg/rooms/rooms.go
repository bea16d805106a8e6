// Package rooms remembers named places on the robot's floor plan.
//
// A room is a name mapped to a 2D coordinate. The map is loaded once at
// startup and extended by Save. A missing or corrupt store is never fatal:
// it loads as an empty map.
package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/teslashibe/nova-guide/internal/log"
)

// ErrEmptyName is returned when saving a room without a name.
var ErrEmptyName = errors.New("rooms: name cannot be empty")

// ErrCorrupt is returned when a store file exists but cannot be decoded.
var ErrCorrupt = errors.New("rooms: corrupt store file")

// Point is a floor-plan coordinate. It is stored as a JSON pair [x, y].
type Point struct {
	X float64
	Y float64
}

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("rooms: coordinate needs 2 values, got %d", len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("[%g, %g]", p.X, p.Y)
}

// Store is a persistence backend for rooms.
type Store interface {
	// Load returns every saved room. A store that does not exist yet
	// returns an empty map and no error.
	Load(ctx context.Context) (map[string]Point, error)

	// Save adds or replaces one room.
	Save(ctx context.Context, name string, p Point) error

	// Close releases any resources held by the store.
	Close() error
}

// NormalizeName case-folds and trims a room name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Registry is the in-memory room map backed by a Store.
type Registry struct {
	store  Store
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]Point
}

// NewRegistry loads the store. Load failures are logged and leave the
// registry empty.
func NewRegistry(ctx context.Context, store Store, logger *slog.Logger) *Registry {
	r := &Registry{
		store:  store,
		logger: log.OrDefault(logger, "rooms"),
		rooms:  make(map[string]Point),
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		r.logger.Warn("room data unreadable, starting with an empty map", "error", err)
		return r
	}
	for name, p := range loaded {
		if n := NormalizeName(name); n != "" {
			r.rooms[n] = p
		}
	}
	if len(r.rooms) == 0 {
		r.logger.Info("no room data found, starting with an empty map")
	} else {
		r.logger.Info("rooms loaded", "count", len(r.rooms))
	}
	return r
}

// Save persists a room and adds it to the map.
func (r *Registry) Save(ctx context.Context, name string, p Point) error {
	name = NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := r.store.Save(ctx, name, p); err != nil {
		return err
	}

	r.mu.Lock()
	r.rooms[name] = p
	r.mu.Unlock()

	r.logger.Info("room saved", "room", name, "coords", p.String())
	return nil
}

// Get returns the coordinate of a room.
func (r *Registry) Get(name string) (Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rooms[NormalizeName(name)]
	return p, ok
}

// Names returns all room names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rooms))
	for n := range r.rooms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of the room map.
func (r *Registry) All() map[string]Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Point, len(r.rooms))
	for k, v := range r.rooms {
		out[k] = v
	}
	return out
}

// Close releases the store.
func (r *Registry) Close() error {
	return r.store.Close()
}
