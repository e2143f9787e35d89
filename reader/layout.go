package reader

import (
	"github.com/pevans/newsroom/feed"
)

// layout places rendered items on a column of terminal lines. Line 0 is the
// first line of the list; offset is how far the list is scrolled.
type layout struct {
	offset int
	height int

	// starts[i] is the first line of block i, ends[i] one past its last.
	starts []int
	ends   []int

	// endLine is the line of the end-of-list marker.
	endLine int

	links  []string
	opener func(url string) error
}

func newLayout(opener func(url string) error) *layout {
	return &layout{opener: opener}
}

// place records the heights of all blocks, in order.
func (l *layout) place(heights []int) {
	l.starts = l.starts[:0]
	l.ends = l.ends[:0]

	line := 0
	for _, h := range heights {
		l.starts = append(l.starts, line)
		line += h
		l.ends = append(l.ends, line)
	}
	l.endLine = line
	l.scrollTo(l.offset)
}

// scrollTo sets the offset. Every item, the last one included, can be
// scrolled up to the top and beyond, as far as the end marker.
func (l *layout) scrollTo(offset int) {
	l.offset = max(0, min(offset, l.endLine))
}

func (l *layout) scrollBy(delta int) {
	l.scrollTo(l.offset + delta)
}

func (l *layout) position(index int) feed.Position {
	if index >= len(l.starts) {
		// Registered but not placed yet: treat it as far below the view.
		return feed.Position{Top: l.endLine - l.offset + l.height, Bottom: l.endLine - l.offset + l.height + 1}
	}
	return feed.Position{Top: l.starts[index] - l.offset, Bottom: l.ends[index] - l.offset}
}

// ScrollIntoView implements feed.EndMarker.
func (l *layout) ScrollIntoView() {
	if l.endLine-l.offset >= l.height {
		l.scrollTo(l.endLine - l.height + 1)
	}
}

// itemHandle is the feed.Scrollable of one rendered item.
type itemHandle struct {
	layout *layout
	index  int
}

func (h *itemHandle) Position() feed.Position {
	return h.layout.position(h.index)
}

func (h *itemHandle) ScrollToTop() {
	if h.index < len(h.layout.starts) {
		h.layout.scrollTo(h.layout.starts[h.index])
	}
}

func (h *itemHandle) OpenLink() error {
	if h.index >= len(h.layout.links) || h.layout.links[h.index] == "" {
		return feed.ErrNothingToOpen
	}
	return h.layout.opener(h.layout.links[h.index])
}
