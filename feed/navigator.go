package feed

import "errors"

// ErrNothingToOpen is returned by Open when no item is below the open
// boundary.
var ErrNothingToOpen = errors.New("no item to open")

// EndMarker is the element after the last item. Next scrolls it into view
// once there is no further item.
type EndMarker interface {
	ScrollIntoView()
}

// Navigator moves between items. It only reads positions and never changes
// read state; the tracker sees the new positions on its next pass.
type Navigator struct {
	registry *Registry
	opts     Options
	end      EndMarker
}

// NewNavigator creates a navigator. end may be nil.
func NewNavigator(registry *Registry, opts Options, end EndMarker) *Navigator {
	return &Navigator{registry: registry, opts: opts, end: end}
}

// SetEndMarker replaces the end marker.
func (n *Navigator) SetEndMarker(end EndMarker) {
	n.end = end
}

// Next scrolls the first item whose top is below the next boundary to the
// top. With no such item it shows the end marker and returns false.
func (n *Navigator) Next() bool {
	for _, entry := range n.registry.Entries() {
		if entry.Handle.Position().Top > n.opts.NextBoundary {
			entry.Handle.ScrollToTop()
			return true
		}
	}

	if n.end != nil {
		n.end.ScrollIntoView()
	}
	return false
}

// Previous scrolls the last item whose top is above the previous boundary
// to the top. It returns false when there is none.
func (n *Navigator) Previous() bool {
	entries := n.registry.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Handle.Position().Top < n.opts.PreviousBoundary {
			entries[i].Handle.ScrollToTop()
			return true
		}
	}
	return false
}

// Current returns the first item whose top is below the open boundary, or
// nil.
func (n *Navigator) Current() *Entry {
	for _, entry := range n.registry.Entries() {
		if entry.Handle.Position().Top > n.opts.OpenBoundary {
			return entry
		}
	}
	return nil
}

// Open opens the link of the current item.
func (n *Navigator) Open() error {
	entry := n.Current()
	if entry == nil {
		return ErrNothingToOpen
	}
	return entry.Handle.OpenLink()
}
