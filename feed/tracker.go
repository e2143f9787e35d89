package feed

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/pevans/newsroom"
)

// ReadMarker confirms read items with the server.
type ReadMarker interface {
	MarkAsRead(ctx context.Context, newsItemIDs []string) error
}

// Batch is a set of items marked read locally and waiting for the server.
type Batch struct {
	IDs []string
}

// Empty reports whether there is nothing to submit.
func (b Batch) Empty() bool {
	return len(b.IDs) == 0
}

// Tracker marks items read as their bottom edge scrolls above the read
// boundary and submits them in batches. It also decides when the pager
// should look ahead. Navigation never goes through the tracker; it is the
// only writer of read state.
type Tracker struct {
	registry *Registry
	pager    *Pager
	marker   ReadMarker
	opts     Options
	logger   *log.Logger

	// tracking is off for views whose items are already read or saved.
	tracking bool
}

// NewTracker creates a tracker. With tracking false it only looks ahead.
func NewTracker(registry *Registry, pager *Pager, marker ReadMarker, opts Options, tracking bool, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tracker{
		registry: registry,
		pager:    pager,
		marker:   marker,
		opts:     opts,
		logger:   logger,
		tracking: tracking,
	}
}

// Tracking reports whether items are marked read by scrolling.
func (t *Tracker) Tracking() bool {
	return t.tracking
}

// Scan marks every item that scrolled past the read boundary as read and
// collects all read items not yet sent. Items in the batch are flagged as
// sent so they are never collected again.
func (t *Tracker) Scan() Batch {
	var batch Batch
	if !t.tracking {
		return batch
	}

	entries := t.registry.Entries()
	for _, entry := range entries {
		state := entry.State
		if state.IsRead || state.KeepUnread {
			continue
		}
		if entry.Handle.Position().Bottom < t.opts.ReadBoundary {
			state.IsRead = true
		}
	}

	for _, entry := range entries {
		state := entry.State
		if !state.IsRead || state.ReadStateSent || state.KeepUnread {
			continue
		}
		state.ReadStateSent = true
		batch.IDs = append(batch.IDs, entry.Item.ID)
	}

	return batch
}

// NeedsMore reports whether fewer than LookAhead items are still in view or
// below it. Items whose bottom edge is above the container are out of view.
func (t *Tracker) NeedsMore() bool {
	remaining := 0
	for _, entry := range t.registry.Entries() {
		if entry.Handle.Position().Bottom > 0 {
			remaining++
		}
	}
	return remaining < t.opts.LookAhead
}

// Submit sends a batch, retrying transport failures and server errors with
// capped exponential backoff. Rejected sessions are not retried.
func (t *Tracker) Submit(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = t.opts.Retry.InitialInterval
	retry.MaxInterval = t.opts.Retry.MaxInterval

	maxTries := t.opts.Retry.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := t.marker.MarkAsRead(ctx, batch.IDs)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(retry),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			t.logger.Debug("retrying mark as read", "items", len(batch.IDs), "wait", wait, "err", err)
		}),
	)
	return err
}

// Confirm applies the outcome of a submitted batch. Success lowers the
// unread counter by the batch size. Failure is logged only: the items stay
// read locally, stay flagged as sent, and the counter is left alone.
func (t *Tracker) Confirm(batch Batch, err error) {
	if batch.Empty() {
		return
	}
	if err != nil {
		t.logger.Warn("failed to mark items as read", "items", len(batch.IDs), "err", err)
		return
	}
	t.pager.MarkedRead(len(batch.IDs))
}

// Pass runs one full tracking pass synchronously: scan, submit, confirm,
// then look ahead. The returned error is the page fetch error, if any.
func (t *Tracker) Pass(ctx context.Context) error {
	batch := t.Scan()
	if !batch.Empty() {
		t.Confirm(batch, t.Submit(ctx, batch))
	}

	if t.NeedsMore() {
		return t.pager.FetchNextPage(ctx)
	}
	return nil
}

// retryable reports whether a failed mark-as-read may succeed later.
func retryable(err error) bool {
	if newsroom.IsAuthError(err) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *newsroom.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
