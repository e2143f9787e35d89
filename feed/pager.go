package feed

import (
	"context"
	"sync"

	"github.com/pevans/newsroom"
)

// Request is a page fetch handed out by Pager.Begin. It must be given back
// to Complete together with the result.
type Request struct {
	Cursor     Cursor
	generation uint64
}

// Pager drives pagination of one list. It owns the feed buffer and the
// unread counter, and allows at most one fetch in flight: a trigger while
// loading is dropped, not queued.
type Pager struct {
	mu     sync.Mutex
	source Source

	items      []newsroom.NewsItem
	cursor     Cursor
	loading    bool
	noMore     bool
	unread     int
	lastErr    error
	generation uint64
}

// NewPager creates a pager over source. Nothing is fetched until Begin,
// FetchNextPage or Refresh is called.
func NewPager(source Source) *Pager {
	return &Pager{source: source}
}

// Begin claims the next fetch. It returns false, and nothing must be
// fetched, while a fetch is in flight, after the final page was seen, or
// after a failed fetch. Only Refresh resumes a pager that failed.
func (p *Pager) Begin() (Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loading || p.noMore || p.lastErr != nil {
		return Request{}, false
	}

	p.loading = true
	return Request{Cursor: p.cursor, generation: p.generation}, true
}

// Fetch runs req against the source. It does not touch pager state and may
// be called from any goroutine.
func (p *Pager) Fetch(ctx context.Context, req Request) (Page, error) {
	return p.source.FetchPage(ctx, req.Cursor)
}

// Complete applies the outcome of req. Results of requests issued before the
// last Refresh are dropped; Complete reports whether the result was applied.
// On error the buffer and cursor stay untouched.
func (p *Pager) Complete(req Request, page Page, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.generation != p.generation {
		return false
	}

	p.loading = false
	if err != nil {
		p.lastErr = err
		return true
	}

	p.items = append(p.items, page.Items...)
	p.cursor = page.Next
	p.noMore = page.NoMore
	if page.UnreadCount != nil {
		p.unread = max(*page.UnreadCount, 0)
	}
	return true
}

// FetchNextPage fetches and applies the next page synchronously. It is a
// no-op while loading, once the final page was seen, or after a failure.
func (p *Pager) FetchNextPage(ctx context.Context) error {
	req, ok := p.Begin()
	if !ok {
		return nil
	}

	page, err := p.Fetch(ctx, req)
	p.Complete(req, page, err)
	return err
}

// Refresh empties the buffer, rewinds to the first page and claims a fetch
// for it. A fetch still in flight is not cancelled, but its result will be
// dropped by Complete.
func (p *Pager) Refresh() Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	p.items = nil
	p.cursor = Cursor{}
	p.noMore = false
	p.lastErr = nil
	p.loading = true

	return Request{generation: p.generation}
}

// Items returns a copy of the buffer, in server order.
func (p *Pager) Items() []newsroom.NewsItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := make([]newsroom.NewsItem, len(p.items))
	copy(items, p.items)
	return items
}

// Len returns the number of buffered items.
func (p *Pager) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Loading reports whether a fetch is in flight.
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// NoMore reports whether the final page was seen.
func (p *Pager) NoMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.noMore
}

// Cursor returns where the next page starts.
func (p *Pager) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Err returns the error of the last fetch, if it failed.
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ErrorMessage is the user-visible form of Err, empty when there is none.
func (p *Pager) ErrorMessage() string {
	err := p.Err()
	if err == nil {
		return ""
	}
	return "An error occurred: " + err.Error()
}

// Unread returns the unread counter.
func (p *Pager) Unread() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread
}

// MarkedRead lowers the unread counter by n confirmed items, never below zero.
func (p *Pager) MarkedRead(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unread = max(p.unread-n, 0)
}
