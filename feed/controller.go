package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Controller is the feed of one view: its pager, the registry of rendered
// items, the read tracker and the navigator.
type Controller struct {
	View      View
	Pager     *Pager
	Registry  *Registry
	Tracker   *Tracker
	Navigator *Navigator

	api NewsAPI
}

// NewController wires a controller for view. Read tracking is only enabled
// on the unread view.
func NewController(view View, api NewsAPI, opts Options, logger *log.Logger) *Controller {
	registry := NewRegistry()
	pager := NewPager(NewSource(view, api, opts.PageSize))

	return &Controller{
		View:      view,
		Pager:     pager,
		Registry:  registry,
		Tracker:   NewTracker(registry, pager, api, opts, view == ViewUnread, logger),
		Navigator: NewNavigator(registry, opts, nil),
		api:       api,
	}
}

// Refresh drops the buffer and every rendered item, and claims the fetch of
// the first page.
func (c *Controller) Refresh() Request {
	c.Registry.Reset()
	return c.Pager.Refresh()
}

// Sync registers buffered items that have no entry yet. handle builds the
// rendered handle of the i-th buffered item.
func (c *Controller) Sync(handle func(index int) Scrollable) []*Entry {
	items := c.Pager.Items()
	var added []*Entry
	for i := c.Registry.Len(); i < len(items); i++ {
		added = append(added, c.Registry.Register(items[i], handle(i)))
	}
	return added
}

var (
	// ErrSavePending is returned by BeginToggleSaved while the previous
	// toggle of the same item is still in flight.
	ErrSavePending = errors.New("save still in progress")

	// ErrNoSavedID is returned when unsaving an item whose saved ID is
	// unknown.
	ErrNoSavedID = errors.New("saved item ID unknown")
)

// SaveOp is a pending save or unsave started by BeginToggleSaved.
type SaveOp struct {
	ID      string
	Save    bool
	SavedID string
}

// BeginToggleSaved flips the saved state of an item at once and returns the
// server call still to be made. Only one toggle per item is in flight; the
// next one is refused until CompleteToggleSaved.
func (c *Controller) BeginToggleSaved(id string) (SaveOp, error) {
	entry := c.Registry.Find(id)
	if entry == nil {
		return SaveOp{}, fmt.Errorf("failed to find news item %q", id)
	}
	state := entry.State

	if state.SavePending {
		return SaveOp{}, ErrSavePending
	}
	if state.IsSaved && state.SavedNewsItemID == "" {
		return SaveOp{}, fmt.Errorf("failed to unsave news item %q: %w", id, ErrNoSavedID)
	}

	op := SaveOp{ID: id, Save: !state.IsSaved, SavedID: state.SavedNewsItemID}
	state.IsSaved = op.Save
	state.SavedNewsItemID = ""
	state.SavePending = true
	return op, nil
}

// RunSave makes the server call of op. It touches no controller state and
// may run on any goroutine. For a save it returns the new saved ID.
func (c *Controller) RunSave(ctx context.Context, op SaveOp) (string, error) {
	if op.Save {
		savedID, err := c.api.SaveNewsItem(ctx, op.ID)
		if err != nil {
			return "", fmt.Errorf("failed to save news item: %w", err)
		}
		return savedID, nil
	}

	if op.SavedID == "" {
		return "", fmt.Errorf("failed to unsave news item: %w", ErrNoSavedID)
	}
	if err := c.api.DeleteSavedNewsItem(ctx, op.SavedID); err != nil {
		return "", fmt.Errorf("failed to unsave news item: %w", err)
	}
	return "", nil
}

// CompleteToggleSaved applies the outcome of op. On error the item goes back
// to its state before BeginToggleSaved.
func (c *Controller) CompleteToggleSaved(op SaveOp, savedID string, err error) {
	entry := c.Registry.Find(op.ID)
	if entry == nil {
		return
	}
	state := entry.State
	state.SavePending = false

	if err != nil {
		state.IsSaved = !op.Save
		state.SavedNewsItemID = op.SavedID
		return
	}
	if op.Save {
		state.SavedNewsItemID = savedID
	}
}

// ToggleSaved saves or unsaves an item synchronously.
func (c *Controller) ToggleSaved(ctx context.Context, id string) error {
	op, err := c.BeginToggleSaved(id)
	if err != nil {
		return err
	}
	savedID, err := c.RunSave(ctx, op)
	c.CompleteToggleSaved(op, savedID, err)
	return err
}

// ToggleKeepUnread flips the keep-unread override of an item. It returns the
// new value.
func (c *Controller) ToggleKeepUnread(id string) (bool, error) {
	entry := c.Registry.Find(id)
	if entry == nil {
		return false, fmt.Errorf("failed to find news item %q", id)
	}
	entry.State.KeepUnread = !entry.State.KeepUnread
	return entry.State.KeepUnread, nil
}
