package feed

import (
	"context"

	"github.com/pevans/newsroom"
)

// NewsAPI is the part of newsroom.Client the controller needs.
type NewsAPI interface {
	FetchNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error)
	FetchReadNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error)
	FetchSavedNews(ctx context.Context, offset, limit int) (*newsroom.SavedNewsPage, error)
	MarkAsRead(ctx context.Context, newsItemIDs []string) error
	SaveNewsItem(ctx context.Context, newsItemID string) (string, error)
	DeleteSavedNewsItem(ctx context.Context, savedNewsItemID string) error
}

// Cursor is where the next page starts: a token for token-paged lists, an
// offset for limit/offset lists. The zero Cursor is the first page.
type Cursor struct {
	Token  newsroom.PageToken
	Offset int
}

// Page is one fetched batch of news.
type Page struct {
	Items []newsroom.NewsItem
	Next  Cursor

	// UnreadCount is nil when the endpoint does not report one.
	UnreadCount *int

	// NoMore is true when this was the final page.
	NoMore bool
}

// Source fetches pages of news.
type Source interface {
	FetchPage(ctx context.Context, cursor Cursor) (Page, error)
}

// View selects which list a controller shows.
type View string

const (
	ViewUnread View = "unread"
	ViewRead   View = "read"
	ViewSaved  View = "saved"
)

// ParseView maps a user-supplied name to a View.
func ParseView(name string) (View, bool) {
	switch View(name) {
	case ViewUnread, ViewRead, ViewSaved:
		return View(name), true
	case "":
		return ViewUnread, true
	}
	return "", false
}

// NewSource returns the Source behind a view.
func NewSource(view View, api NewsAPI, pageSize int) Source {
	switch view {
	case ViewRead:
		return &ReadSource{API: api}
	case ViewSaved:
		return &SavedSource{API: api, Limit: pageSize}
	default:
		return &UnreadSource{API: api}
	}
}

// UnreadSource pages through GET /news-items.
type UnreadSource struct {
	API NewsAPI
}

// FetchPage implements Source.
func (s *UnreadSource) FetchPage(ctx context.Context, cursor Cursor) (Page, error) {
	resp, err := s.API.FetchNewsItems(ctx, cursor.Token)
	if err != nil {
		return Page{}, err
	}
	return tokenPage(resp), nil
}

// ReadSource pages through GET /news-items/read.
type ReadSource struct {
	API NewsAPI
}

// FetchPage implements Source.
func (s *ReadSource) FetchPage(ctx context.Context, cursor Cursor) (Page, error) {
	resp, err := s.API.FetchReadNewsItems(ctx, cursor.Token)
	if err != nil {
		return Page{}, err
	}
	return tokenPage(resp), nil
}

// tokenPage converts a token-paged response. An explicit has_more wins;
// otherwise the list ends at a DONE token or at a missing token, since
// sending an empty token back would restart from the first page.
func tokenPage(resp *newsroom.NewsItemsPage) Page {
	noMore := resp.Token.IsZero() || resp.Token.Exhausted()
	if resp.HasMore != nil {
		noMore = !*resp.HasMore
	}

	return Page{
		Items:       resp.NewsItems,
		Next:        Cursor{Token: resp.Token},
		UnreadCount: resp.NumberOfUnreadItems,
		NoMore:      noMore,
	}
}

// SavedSource pages through GET /saved-news with limit/offset.
type SavedSource struct {
	API   NewsAPI
	Limit int
}

// FetchPage implements Source.
func (s *SavedSource) FetchPage(ctx context.Context, cursor Cursor) (Page, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultOptions().PageSize
	}

	resp, err := s.API.FetchSavedNews(ctx, cursor.Offset, limit)
	if err != nil {
		return Page{}, err
	}

	items := make([]newsroom.NewsItem, 0, len(resp.Items))
	for _, saved := range resp.Items {
		items = append(items, saved.AsNewsItem())
	}

	return Page{
		Items:  items,
		Next:   Cursor{Offset: cursor.Offset + len(items)},
		NoMore: len(items) < limit,
	}, nil
}
