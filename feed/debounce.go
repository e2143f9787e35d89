package feed

import (
	"sync"
	"time"
)

// Debouncer collapses bursts of scroll events into one action that runs
// once the events stop for a full window. The caller schedules a delayed
// check of its ticket, such as a tea.Tick, and acts only if it is settled.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	seq    uint64
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Window returns the quiet window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Touch records an event and returns its ticket.
func (d *Debouncer) Touch() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// Settled reports whether no event was recorded after ticket. Event loops
// that schedule their own delayed message check their ticket with it.
func (d *Debouncer) Settled(ticket uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ticket == d.seq
}
