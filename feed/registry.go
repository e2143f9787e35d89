package feed

import (
	"sync"

	"github.com/pevans/newsroom"
)

// Position is where an item currently sits, measured from the origin of the
// view. Bottom is exclusive.
type Position struct {
	Top    int
	Bottom int
}

// Scrollable is the handle a rendered item registers with its feed.
type Scrollable interface {
	Position() Position
	ScrollToTop()
	OpenLink() error
}

// ItemState is the client-only state of one rendered item.
type ItemState struct {
	IsRead bool

	// KeepUnread suppresses automatic read marking. Never sent to the server.
	KeepUnread bool

	// ReadStateSent guards against submitting the same item twice.
	ReadStateSent bool

	IsSaved         bool
	SavedNewsItemID string

	// SavePending is set while a save or unsave is waiting for the server.
	SavePending bool
}

// Entry is one registered item.
type Entry struct {
	Item   newsroom.NewsItem
	State  *ItemState
	Handle Scrollable
}

// ID returns the news item ID.
func (e *Entry) ID() string {
	return e.Item.ID
}

// Registry is the ordered collection of items rendered by a view. Items
// register themselves as they are built; the view never hands its children
// to the controller up front.
type Registry struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an item and returns its entry. Initial state comes from
// the server's flags; items that arrive read are never submitted again.
func (r *Registry) Register(item newsroom.NewsItem, handle Scrollable) *Entry {
	state := &ItemState{
		IsRead:        item.IsRead,
		ReadStateSent: item.IsRead,
		IsSaved:       item.IsSaved,
	}
	if item.SavedNewsItemID != nil {
		state.SavedNewsItemID = *item.SavedNewsItemID
	}

	entry := &Entry{Item: item, State: state, Handle: handle}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return entry
}

// Entries returns the registered entries in document order.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]*Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Find returns the first entry for a news item ID, or nil.
func (r *Registry) Find(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.Item.ID == id {
			return entry
		}
	}
	return nil
}

// Reset drops every entry along with its view state.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
