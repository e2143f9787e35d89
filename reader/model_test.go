package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves one unread page and one read page and records calls.
type fakeAPI struct {
	mu sync.Mutex

	unread  []newsroom.NewsItem
	read    []newsroom.NewsItem
	pageErr error

	unreadCalls int
	readCalls   int
	markCalls   [][]string
	saveCalls   []string
}

func (f *fakeAPI) FetchNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadCalls++
	return f.page(f.unread)
}

func (f *fakeAPI) FetchReadNewsItems(ctx context.Context, token newsroom.PageToken) (*newsroom.NewsItemsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readCalls++
	return f.page(f.read)
}

func (f *fakeAPI) page(items []newsroom.NewsItem) (*newsroom.NewsItemsPage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	unread := len(f.unread)
	hasMore := false
	return &newsroom.NewsItemsPage{
		Token:               newsroom.DoneToken,
		NewsItems:           items,
		NumberOfUnreadItems: &unread,
		HasMore:             &hasMore,
	}, nil
}

func (f *fakeAPI) FetchSavedNews(ctx context.Context, offset, limit int) (*newsroom.SavedNewsPage, error) {
	return &newsroom.SavedNewsPage{}, nil
}

func (f *fakeAPI) MarkAsRead(ctx context.Context, newsItemIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, append([]string(nil), newsItemIDs...))
	return nil
}

func (f *fakeAPI) SaveNewsItem(ctx context.Context, newsItemID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls = append(f.saveCalls, newsItemID)
	return fmt.Sprintf("saved-%d", len(f.saveCalls)), nil
}

func (f *fakeAPI) DeleteSavedNewsItem(ctx context.Context, savedNewsItemID string) error {
	return nil
}

func makeItems(prefix string, n int) []newsroom.NewsItem {
	items := make([]newsroom.NewsItem, n)
	for i := range items {
		items[i] = newsroom.NewsItem{
			ID:        fmt.Sprintf("%s%d", prefix, i),
			Title:     fmt.Sprintf("Item %d", i),
			FeedTitle: "Feed",
			Link:      fmt.Sprintf("http://example.com/%d", i),
		}
	}
	return items
}

// lineOptions are the boundaries the reader runs with: positions in lines
// from the top of the list.
func lineOptions() feed.Options {
	return feed.Options{
		ReadBoundary:     1,
		LookAhead:        3,
		NextBoundary:     0,
		PreviousBoundary: 0,
		OpenBoundary:     -1,
		Debounce:         time.Millisecond,
		PageSize:         30,
		Retry:            feed.RetryOptions{MaxTries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}
}

// drain runs cmd and feeds every resulting message back into the model
// until no commands remain. Spinner ticks are dropped.
func drain(t *testing.T, model tea.Model, cmd tea.Cmd) Model {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 1000, "commands did not settle")

		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			var c tea.Cmd
			model, c = model.Update(msg)
			queue = append(queue, c)
		}
	}
	return model.(Model)
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()

	var msg tea.KeyMsg
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}

	model, cmd := m.Update(msg)
	return drain(t, model, cmd)
}

// setupTestModel starts a reader on a 12 line terminal and loads the first
// page. Every item is three lines: title, feed, separator.
func setupTestModel(t *testing.T, api *fakeAPI, options ...Option) Model {
	t.Helper()

	m := NewModel(context.Background(), api, feed.ViewUnread, lineOptions(), options...)
	m = drain(t, m, m.Init())
	model, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 12})
	return drain(t, model, cmd)
}

// TestModel_InitialLoad verifies the first page is fetched and rendered.
func TestModel_InitialLoad(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	assert.Equal(t, 5, m.Controller().Registry.Len())
	assert.Equal(t, 5, m.Controller().Pager.Unread())
	assert.Equal(t, []int{0, 3, 6, 9, 12}, m.layout.starts)

	view := m.View()
	assert.Contains(t, view, "newsroom · unread (5)")
	assert.Contains(t, view, "Item 0")
	assert.Contains(t, view, "Item 2")
	assert.NotContains(t, view, "Item 4")
	assert.Empty(t, api.markCalls)
}

// TestModel_NextMarksPassedItemsRead verifies j scrolls item by item and the
// items scrolled past are sent once the list settles.
func TestModel_NextMarksPassedItemsRead(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	m = press(t, m, "j")
	assert.Equal(t, 3, m.layout.offset)
	assert.Equal(t, [][]string{{"u0"}}, api.markCalls)
	assert.Equal(t, 4, m.Controller().Pager.Unread())

	m = press(t, m, "j")
	assert.Equal(t, 6, m.layout.offset)
	assert.Equal(t, [][]string{{"u0"}, {"u1"}}, api.markCalls)

	// Going back never changes read state
	m = press(t, m, "k")
	assert.Equal(t, 3, m.layout.offset)
	assert.Len(t, api.markCalls, 2)
	assert.True(t, m.Controller().Registry.Find("u1").State.IsRead)
}

// TestModel_KeepUnread verifies u keeps the current item out of batches.
func TestModel_KeepUnread(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	m = press(t, m, "u")
	assert.True(t, m.Controller().Registry.Find("u0").State.KeepUnread)

	m = press(t, m, "j")
	m = press(t, m, "j")
	assert.Equal(t, [][]string{{"u1"}}, api.markCalls)
	assert.False(t, m.Controller().Registry.Find("u0").State.IsRead)
}

// TestModel_ScrollByLine verifies arrow scrolling drives read tracking too.
func TestModel_ScrollByLine(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	m = press(t, m, "down")
	m = press(t, m, "down")
	assert.Equal(t, 2, m.layout.offset)
	assert.Empty(t, api.markCalls)

	m = press(t, m, "down")
	assert.Equal(t, [][]string{{"u0"}}, api.markCalls)
}

// TestModel_Open verifies o opens the link of the item at the top.
func TestModel_Open(t *testing.T) {
	var opened []string
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api, WithOpener(func(url string) error {
		opened = append(opened, url)
		return nil
	}))

	m = press(t, m, "o")
	m = press(t, m, "j")
	m = press(t, m, "o")
	assert.Equal(t, []string{"http://example.com/0", "http://example.com/1"}, opened)

	failing := setupTestModel(t, api, WithOpener(func(string) error { return errors.New("no browser") }))
	failing = press(t, failing, "o")
	assert.Contains(t, failing.View(), "no browser")
}

// TestModel_Save verifies s saves the current item.
func TestModel_Save(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	m = press(t, m, "s")
	assert.Equal(t, []string{"u0"}, api.saveCalls)

	state := m.Controller().Registry.Find("u0").State
	assert.True(t, state.IsSaved)
	assert.Equal(t, "saved-1", state.SavedNewsItemID)
	assert.Contains(t, m.View(), "★")
}

// TestModel_SaveTwiceBeforeReply verifies a second s is refused while the
// first save is still in flight.
func TestModel_SaveTwiceBeforeReply(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)
	s := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}

	model, saveCmd := m.Update(s)
	require.NotNil(t, saveCmd)
	model, cmd := model.Update(s)
	assert.Nil(t, cmd)
	assert.Contains(t, model.View(), feed.ErrSavePending.Error())

	m = drain(t, model, saveCmd)
	assert.Equal(t, []string{"u0"}, api.saveCalls)
	state := m.Controller().Registry.Find("u0").State
	assert.True(t, state.IsSaved)
	assert.Equal(t, "saved-1", state.SavedNewsItemID)
	assert.False(t, state.SavePending)
}

// TestModel_SwitchView verifies tab moves to the read view with a fresh
// controller that does not track reads.
func TestModel_SwitchView(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5), read: makeItems("r", 2)}
	m := setupTestModel(t, api)
	unread := m.Controller()

	m = press(t, m, "tab")
	assert.Equal(t, feed.ViewRead, m.Controller().View)
	assert.NotSame(t, unread, m.Controller())
	assert.False(t, m.Controller().Tracker.Tracking())
	assert.Equal(t, 1, api.readCalls)
	assert.Equal(t, 2, m.Controller().Registry.Len())

	m = press(t, m, "j")
	assert.Empty(t, api.markCalls)
}

// TestModel_StalePageAfterSwitch verifies a page for a replaced controller
// is dropped.
func TestModel_StalePageAfterSwitch(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5), read: makeItems("r", 2)}
	m := NewModel(context.Background(), api, feed.ViewUnread, lineOptions())
	initial := m.Init()

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = drain(t, model, initial)

	assert.Equal(t, feed.ViewRead, m.Controller().View)
	assert.Equal(t, 0, m.Controller().Registry.Len())
}

// TestModel_Refresh verifies r reloads from the first page.
func TestModel_Refresh(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 5)}
	m := setupTestModel(t, api)

	m = press(t, m, "j")
	m = press(t, m, "r")
	assert.Equal(t, 2, api.unreadCalls)
	assert.Equal(t, 0, m.layout.offset)
	assert.Equal(t, 5, m.Controller().Registry.Len())
}

// TestModel_FetchError verifies the error is shown in place of the list end.
func TestModel_FetchError(t *testing.T) {
	api := &fakeAPI{pageErr: errors.New("boom")}
	m := setupTestModel(t, api)

	assert.Contains(t, m.View(), "An error occurred: boom")
	assert.False(t, m.Controller().Pager.Loading())
}

// TestModel_EndOfList verifies the end marker shows after the last item.
func TestModel_EndOfList(t *testing.T) {
	api := &fakeAPI{unread: makeItems("u", 2)}
	m := setupTestModel(t, api)
	assert.Contains(t, m.View(), "No more items.")

	empty := setupTestModel(t, &fakeAPI{})
	assert.Contains(t, empty.View(), "Nothing here yet.")
}
