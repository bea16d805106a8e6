// Package obstacle carries the "path is blocked" signal from the vision
// worker to the orchestrator and debounces it.
//
// Two transports are provided. Cell is a single atomic boolean for a
// producer that already reduces detections to blocked/clear. Mailbox carries
// whole alert sets with latest-wins semantics: the reader drains it fully on
// every poll and superseded batches are discarded. Both have exactly one
// writer and one reader.
package obstacle

import (
	"sort"
	"strings"
	"sync/atomic"
)

// Monitor is polled by the orchestrator once per tick.
type Monitor interface {
	// Blocked reports whether the path is currently blocked.
	Blocked() bool
}

// Publisher is the writing side used by a vision worker.
type Publisher interface {
	Publish(alerts AlertSet)
}

// AlertSet is a small set of alert labels, e.g. {"Human", "Chair"}.
type AlertSet []string

// Blocking reports whether any alert is present.
func (a AlertSet) Blocking() bool { return len(a) > 0 }

// Normalize returns a sorted copy without duplicates.
func (a AlertSet) Normalize() AlertSet {
	if len(a) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a))
	out := make(AlertSet, 0, len(a))
	for _, s := range a {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same labels.
func (a AlertSet) Equal(b AlertSet) bool {
	na, nb := a.Normalize(), b.Normalize()
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// String joins the labels, e.g. "Chair Human".
func (a AlertSet) String() string {
	return strings.Join(a.Normalize(), " ")
}

// Cell is an atomic scalar blocked flag.
type Cell struct {
	v atomic.Bool
}

// NewCell returns a clear cell.
func NewCell() *Cell { return &Cell{} }

// Set stores the blocked flag.
func (c *Cell) Set(blocked bool) { c.v.Store(blocked) }

// Publish implements Publisher by reducing the set to a flag.
func (c *Cell) Publish(alerts AlertSet) { c.v.Store(alerts.Blocking()) }

// Blocked implements Monitor.
func (c *Cell) Blocked() bool { return c.v.Load() }

// Never is a Monitor that is never blocked. Used when vision is disabled.
type Never struct{}

// Blocked implements Monitor.
func (Never) Blocked() bool { return false }

var (
	_ Monitor   = (*Cell)(nil)
	_ Publisher = (*Cell)(nil)
	_ Monitor   = Never{}
)
