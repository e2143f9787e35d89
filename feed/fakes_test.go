package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pevans/newsroom"
)

// fakeAPI serves scripted pages and records every call.
type fakeAPI struct {
	mu sync.Mutex

	pages      []*newsroom.NewsItemsPage
	pageErr    error
	saved      []newsroom.SavedNewsItem
	markErr    error
	saveErr    error
	savedIDSeq int

	fetchTokens []newsroom.PageToken
	readTokens  []newsroom.PageToken
	savedCalls  [][2]int
	markCalls   [][]string
	saveCalls   []string
	deleteCalls []string
}

func (f *fakeAPI) FetchNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchTokens = append(f.fetchTokens, token)
	return f.nextPage()
}

func (f *fakeAPI) FetchReadNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readTokens = append(f.readTokens, token)
	return f.nextPage()
}

func (f *fakeAPI) nextPage() (*newsroom.NewsItemsPage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if len(f.pages) == 0 {
		return nil, errors.New("no page scripted")
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeAPI) FetchSavedNews(ctx context.Context, offset, limit int) (*newsroom.SavedNewsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.savedCalls = append(f.savedCalls, [2]int{offset, limit})
	if offset >= len(f.saved) {
		return &newsroom.SavedNewsPage{}, nil
	}
	end := min(offset+limit, len(f.saved))
	return &newsroom.SavedNewsPage{Items: f.saved[offset:end]}, nil
}

func (f *fakeAPI) MarkAsRead(ctx context.Context, newsItemIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markCalls = append(f.markCalls, append([]string(nil), newsItemIDs...))
	return f.markErr
}

func (f *fakeAPI) SaveNewsItem(ctx context.Context, newsItemID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls = append(f.saveCalls, newsItemID)
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.savedIDSeq++
	return fmt.Sprintf("saved-%d", f.savedIDSeq), nil
}

func (f *fakeAPI) DeleteSavedNewsItem(ctx context.Context, savedNewsItemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleteCalls = append(f.deleteCalls, savedNewsItemID)
	return f.saveErr
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetchTokens) + len(f.readTokens) + len(f.savedCalls)
}

// fakeHandle is a rendered item at a fixed position.
type fakeHandle struct {
	pos      Position
	scrolled int
	opened   int
	openErr  error
}

func (h *fakeHandle) Position() Position { return h.pos }
func (h *fakeHandle) ScrollToTop()       { h.scrolled++ }
func (h *fakeHandle) OpenLink() error {
	h.opened++
	return h.openErr
}

// fakeEnd counts how often the end marker was shown.
type fakeEnd struct {
	shown int
}

func (e *fakeEnd) ScrollIntoView() { e.shown++ }

func makeItems(ids ...string) []newsroom.NewsItem {
	items := make([]newsroom.NewsItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, newsroom.NewsItem{ID: id, Title: "Item " + id})
	}
	return items
}

func numberedIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return ids
}

func intPtr(n int) *int {
	return &n
}

func boolPtr(b bool) *bool {
	return &b
}

// testOptions returns options that never sleep between retries.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = RetryOptions{MaxTries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return opts
}

// setupTestTracker registers items laid out at the given bottoms, 10 units
// tall, and returns a tracker over them. The list is fully loaded, so passes
// never fetch.
func setupTestTracker(api *fakeAPI, unread int, bottoms map[string]int, order ...string) (*Tracker, *Registry, *Pager) {
	registry := NewRegistry()
	pager := NewPager(&UnreadSource{API: api})
	pager.unread = unread
	pager.noMore = true

	for _, id := range order {
		bottom := bottoms[id]
		registry.Register(newsroom.NewsItem{ID: id}, &fakeHandle{pos: Position{Top: bottom - 10, Bottom: bottom}})
	}

	return NewTracker(registry, pager, api, testOptions(), true, nil), registry, pager
}
