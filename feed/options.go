// Package feed holds the news feed controller: a pager that fetches pages of
// news into an append-only buffer, a tracker that marks items read as they
// scroll past, and a navigator that jumps between items.
//
// Nothing here knows about a concrete display. Positions are integers
// measured from a fixed origin, in pixels, terminal lines or whatever unit
// the view uses; the boundaries in Options are in the same unit. The scroll
// container may start below the origin, in which case an item scrolled to
// the top sits at the container top.
package feed

import "time"

// Options holds the thresholds of the controller.
type Options struct {
	// ReadBoundary: an item whose bottom edge is above this line is read.
	ReadBoundary int

	// LookAhead: fetch more once fewer items than this are still in view or
	// below it.
	LookAhead int

	// NextBoundary: Next jumps to the first item whose top is below this line.
	NextBoundary int

	// PreviousBoundary: Previous jumps to the last item whose top is above
	// this line.
	PreviousBoundary int

	// OpenBoundary: Open acts on the first item whose top is below this line.
	OpenBoundary int

	// Debounce is the quiet period after the last scroll event before a
	// tracking pass runs.
	Debounce time.Duration

	// PageSize is the limit for offset-paged sources.
	PageSize int

	// Retry bounds the mark-as-read retries.
	Retry RetryOptions
}

// RetryOptions bounds the retries of a mark-as-read batch.
type RetryOptions struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultOptions returns the thresholds of the web client, in pixels from
// the top of the window, with the scroll container starting below a header
// about 170 pixels tall.
func DefaultOptions() Options {
	return Options{
		ReadBoundary:     150,
		LookAhead:        12,
		NextBoundary:     170,
		PreviousBoundary: 100,
		OpenBoundary:     100,
		Debounce:         time.Second,
		PageSize:         30,
		Retry: RetryOptions{
			MaxTries:        4,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
	}
}
