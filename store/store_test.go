package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh database with a controllable clock.
func createTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	return store, clock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type rssItem struct {
	title     string
	link      string
	published time.Time
}

// rssDocument renders a minimal RSS 2.0 document.
func rssDocument(title, link string, items ...rssItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0"?><rss version="2.0"><channel><title>%s</title><link>%s</link>`, title, link)
	for _, item := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>%s</link><description>&lt;p&gt;About %s&lt;/p&gt;</description><pubDate>%s</pubDate></item>`,
			item.title, item.link, item.title, item.published.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// fakeParser serves RSS documents by URL.
type fakeParser struct {
	mu    sync.Mutex
	docs  map[string]string
	calls int
}

func (p *fakeParser) ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error) {
	p.mu.Lock()
	p.calls++
	doc, ok := p.docs[feedURL]
	p.mu.Unlock()

	if !ok {
		return nil, errors.New("http error: 404 Not Found")
	}
	return gofeed.NewParser().ParseString(doc)
}

func ingestDoc(t *testing.T, store *Store, feed *Feed, doc string) int {
	t.Helper()

	parsed, err := gofeed.NewParser().ParseString(doc)
	require.NoError(t, err)
	added, err := store.Ingest(context.Background(), feed.FeedID, parsed)
	require.NoError(t, err)
	return added
}

func itemTitles(page *Page) []string {
	titles := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		titles = append(titles, item.Title)
	}
	return titles
}

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// TestOpen_ExistingDatabase verifies that reopening keeps data.
func TestOpen_ExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.AddFeed(ctx, "http://example.com/rss", "Example")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	feeds, err := store.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Example", feeds[0].Title)
}

// TestAddFeed_Duplicate verifies that a URL is subscribed once.
func TestAddFeed_Duplicate(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	feed, err := store.AddFeed(ctx, "http://example.com/rss", "")
	require.NoError(t, err)
	assert.NotEmpty(t, feed.FeedID)

	_, err = store.AddFeed(ctx, "http://example.com/rss", "")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := store.GetFeed(ctx, feed.FeedID)
	require.NoError(t, err)
	assert.Equal(t, feed.URL, got.URL)

	_, err = store.GetFeed(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestRemoveFeed verifies that removing a feed drops its items.
func TestRemoveFeed(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	feed, err := store.AddFeed(ctx, "http://a.example/rss", "A")
	require.NoError(t, err)
	ingestDoc(t, store, feed, rssDocument("A", "http://a.example", rssItem{"one", "http://a.example/1", baseTime}))

	require.NoError(t, store.RemoveFeed(ctx, feed.FeedID))
	assert.ErrorIs(t, store.RemoveFeed(ctx, feed.FeedID), ErrNotFound)

	n, err := store.UnreadCount(ctx, user.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestUsers verifies token registration and approval.
func TestUsers(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	_, err := store.AddUser(ctx, "pending", false)
	require.NoError(t, err)

	user, err := store.UserByToken(ctx, "pending")
	require.NoError(t, err)
	assert.False(t, user.Approved)

	require.NoError(t, store.ApproveUser(ctx, "pending"))
	user, err = store.UserByToken(ctx, "pending")
	require.NoError(t, err)
	assert.True(t, user.Approved)

	_, err = store.AddUser(ctx, "pending", true)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = store.AddUser(ctx, "", true)
	assert.Error(t, err)

	_, err = store.UserByToken(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.ApproveUser(ctx, "nobody"), ErrNotFound)
}

// TestIngest_DeliversOnce verifies that known links are not delivered again
// and that new users get existing items.
func TestIngest_DeliversOnce(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	alice, err := store.AddUser(ctx, "alice", true)
	require.NoError(t, err)
	feed, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)

	doc := rssDocument("Feed A", "http://a.example",
		rssItem{"one", "http://a.example/1", baseTime},
		rssItem{"two", "http://a.example/2", baseTime.Add(time.Hour)},
	)
	assert.Equal(t, 2, ingestDoc(t, store, feed, doc))
	assert.Equal(t, 0, ingestDoc(t, store, feed, doc))

	n, err := store.UnreadCount(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bob, err := store.AddUser(ctx, "bob", true)
	require.NoError(t, err)
	n, err = store.UnreadCount(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.GetFeed(ctx, feed.FeedID)
	require.NoError(t, err)
	assert.Equal(t, "Feed A", got.Title)
	assert.Equal(t, "http://a.example/favicon.ico", got.Favicon)
	assert.NotNil(t, got.LastFetchedAt)

	page, err := store.UnreadItems(ctx, alice.UserID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "two", page.Items[0].Title)
	assert.Equal(t, "Feed A", page.Items[0].FeedTitle)
	assert.Equal(t, baseTime.Add(time.Hour).Format(time.RFC3339), page.Items[0].Published)
	assert.Equal(t, "<p>About two</p>", page.Items[0].Description)
}

// TestIngest_CollapsesCrossPosts verifies that the same story from another
// feed becomes an alternate link.
func TestIngest_CollapsesCrossPosts(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	feedA, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)
	feedB, err := store.AddFeed(ctx, "http://b.example/rss", "")
	require.NoError(t, err)

	ingestDoc(t, store, feedA, rssDocument("Feed A", "http://a.example",
		rssItem{"Festival announced", "http://a.example/festival", baseTime},
		rssItem{"Old story", "http://a.example/old", baseTime},
	))
	ingestDoc(t, store, feedB, rssDocument("Feed B", "http://b.example",
		rssItem{"Festival announced", "http://b.example/festival", baseTime.Add(5 * time.Hour)},
		rssItem{"Old story", "http://b.example/old", baseTime.Add(72 * time.Hour)},
	))

	page, err := store.UnreadItems(ctx, user.UserID, nil, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"[Updated] Festival announced", "Old story", "Old story"}, itemTitles(page))

	for _, item := range page.Items {
		if item.Title != "[Updated] Festival announced" {
			assert.Empty(t, item.AlternateLinks)
			continue
		}
		assert.Equal(t, "http://a.example/festival", item.Link)
		assert.Equal(t, []string{"http://b.example/festival"}, item.AlternateLinks)
		assert.Equal(t, []string{"Feed B"}, item.AlternateTitleLinks)
		assert.Equal(t, []string{"http://b.example/favicon.ico"}, item.AlternateFavicons)
	}
}

// TestUnreadItems_Keyset verifies paging and that marking items read between
// pages skips nothing.
func TestUnreadItems_Keyset(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	feed, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)

	var items []rssItem
	for i := range 5 {
		items = append(items, rssItem{fmt.Sprintf("item %d", i), fmt.Sprintf("http://a.example/%d", i), baseTime.Add(time.Duration(i) * time.Hour)})
	}
	ingestDoc(t, store, feed, rssDocument("A", "http://a.example", items...))

	page, err := store.UnreadItems(ctx, user.UserID, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"item 4", "item 3"}, itemTitles(page))
	require.NotNil(t, page.Next)

	_, err = store.MarkAsRead(ctx, user.UserID, []string{page.Items[0].ID, page.Items[1].ID})
	require.NoError(t, err)

	page, err = store.UnreadItems(ctx, user.UserID, page.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"item 2", "item 1"}, itemTitles(page))
	require.NotNil(t, page.Next)

	page, err = store.UnreadItems(ctx, user.UserID, page.Next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"item 0"}, itemTitles(page))
	assert.Nil(t, page.Next)
}

// TestMarkAsRead verifies counting and the read list.
func TestMarkAsRead(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	other, err := store.AddUser(ctx, "other", true)
	require.NoError(t, err)
	feed, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)
	ingestDoc(t, store, feed, rssDocument("A", "http://a.example",
		rssItem{"a", "http://a.example/a", baseTime},
		rssItem{"b", "http://a.example/b", baseTime.Add(time.Hour)},
		rssItem{"c", "http://a.example/c", baseTime.Add(2 * time.Hour)},
	))

	page, err := store.UnreadItems(ctx, user.UserID, nil, 10)
	require.NoError(t, err)
	ids := map[string]string{}
	for _, item := range page.Items {
		ids[item.Title] = item.ID
	}

	n, err := store.MarkAsRead(ctx, user.UserID, []string{ids["a"], "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.MarkAsRead(ctx, user.UserID, []string{ids["c"], ids["a"]})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "already read items do not count")

	n, err = store.MarkAsRead(ctx, user.UserID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	unread, err := store.UnreadCount(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	unread, err = store.UnreadCount(ctx, other.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, unread, "other users are unaffected")

	read, err := store.ReadItems(ctx, user.UserID, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, itemTitles(read))
	assert.True(t, read.Items[0].IsRead)
	require.NotNil(t, read.Next)

	read, err = store.ReadItems(ctx, user.UserID, read.Next, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, itemTitles(read))
	assert.Nil(t, read.Next)
}

// TestSavedItems verifies save, list and delete.
func TestSavedItems(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	feed, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)
	ingestDoc(t, store, feed, rssDocument("A", "http://a.example",
		rssItem{"a", "http://a.example/a", baseTime},
		rssItem{"b", "http://a.example/b", baseTime.Add(time.Hour)},
	))
	page, err := store.UnreadItems(ctx, user.UserID, nil, 10)
	require.NoError(t, err)

	first, err := store.SaveItem(ctx, user.UserID, page.Items[0].ID)
	require.NoError(t, err)
	again, err := store.SaveItem(ctx, user.UserID, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	second, err := store.SaveItem(ctx, user.UserID, page.Items[1].ID)
	require.NoError(t, err)

	_, err = store.SaveItem(ctx, user.UserID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	saved, err := store.SavedItems(ctx, user.UserID, 0, 30)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, second, saved[0].SavedID)
	assert.Equal(t, page.Items[1].ID, saved[0].NewsItemID)
	assert.Equal(t, "a", saved[0].Title)

	saved, err = store.SavedItems(ctx, user.UserID, 1, 30)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, first, saved[0].SavedID)

	item, err := store.NewsItem(ctx, user.UserID, page.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, item.IsSaved)

	require.NoError(t, store.DeleteSaved(ctx, user.UserID, first))
	assert.ErrorIs(t, store.DeleteSaved(ctx, user.UserID, first), ErrNotFound)

	item, err = store.NewsItem(ctx, user.UserID, page.Items[0].ID)
	require.NoError(t, err)
	assert.False(t, item.IsSaved)
	assert.Nil(t, item.SavedNewsItemID)
}

// TestRefreshAll verifies concurrent refresh and error bookkeeping.
func TestRefreshAll(t *testing.T) {
	store, _ := createTestStore(t)
	ctx := context.Background()

	user, err := store.AddUser(ctx, "tok", true)
	require.NoError(t, err)
	good, err := store.AddFeed(ctx, "http://a.example/rss", "")
	require.NoError(t, err)
	bad, err := store.AddFeed(ctx, "http://broken.example/rss", "Broken")
	require.NoError(t, err)

	parser := &fakeParser{docs: map[string]string{
		good.URL: rssDocument("A", "http://a.example", rssItem{"one", "http://a.example/1", baseTime}),
	}}
	refresher := NewRefresher(store, parser, nil)
	refresher.SetConcurrency(2)

	results, err := refresher.RefreshAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, parser.calls)

	byURL := map[string]RefreshResult{}
	for _, result := range results {
		byURL[result.URL] = result
	}
	assert.NoError(t, byURL[good.URL].Err)
	assert.Equal(t, 1, byURL[good.URL].NewItems)
	assert.ErrorContains(t, byURL[bad.URL].Err, "404")

	broken, err := store.GetFeed(ctx, bad.FeedID)
	require.NoError(t, err)
	assert.Equal(t, 1, broken.FetchErrorCount)
	require.NotNil(t, broken.LastError)
	assert.Contains(t, *broken.LastError, "404")

	n, err := store.UnreadCount(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestParseCursor verifies cursor round trips and rejects garbage.
func TestParseCursor(t *testing.T) {
	c := Cursor{Key: 1714550400000000000, Seq: 42}
	parsed, err := ParseCursor(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)

	for _, bad := range []string{"", "12", "a:1", "1:b", "over"} {
		_, err := ParseCursor(bad)
		assert.Error(t, err, bad)
	}
}

// TestRefresher_Run verifies the refresher polls right away and stops with
// its context.
func TestRefresher_Run(t *testing.T) {
	store, _ := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := store.AddUser(ctx, "token", true)
	require.NoError(t, err)
	_, err = store.AddFeed(ctx, "http://a.example.com/rss", "")
	require.NoError(t, err)

	parser := &fakeParser{docs: map[string]string{
		"http://a.example.com/rss": rssDocument("A", "http://a.example.com",
			rssItem{title: "One", link: "http://a.example.com/1", published: baseTime}),
	}}
	refresher := NewRefresher(store, parser, nil)

	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		parser.mu.Lock()
		defer parser.mu.Unlock()
		return parser.calls == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
