// Package reader is the terminal news reader. It renders one feed view at a
// time and drives a feed.Controller from scroll and key events.
package reader

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/feed"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// descriptionLines is how much of a description an item shows.
	descriptionLines = 3

	// chromeLines are the header and footer around the list.
	chromeLines = 2
)

var viewOrder = []feed.View{feed.ViewUnread, feed.ViewRead, feed.ViewSaved}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	readStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	markerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	endStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// Messages. Each carries the controller it was issued for, so results that
// arrive after a view switch are dropped.
type (
	pageMsg struct {
		ctrl *feed.Controller
		req  feed.Request
		page feed.Page
		err  error
	}

	settleMsg struct {
		ctrl   *feed.Controller
		ticket uint64
	}

	markedMsg struct {
		ctrl  *feed.Controller
		batch feed.Batch
		err   error
	}

	savedMsg struct {
		ctrl    *feed.Controller
		op      feed.SaveOp
		savedID string
		err     error
	}
)

// block is the rendering of one item: a title line followed by body lines.
type block struct {
	entry *feed.Entry
	body  []string
}

// Model is the bubbletea model of the reader.
type Model struct {
	ctx    context.Context
	api    feed.NewsAPI
	opts   feed.Options
	logger *log.Logger
	opener func(url string) error

	view      feed.View
	ctrl      *feed.Controller
	layout    *layout
	blocks    []block
	debouncer *feed.Debouncer

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	status string
	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithOpener replaces the function that opens links.
func WithOpener(opener func(url string) error) Option {
	return func(m *Model) {
		m.opener = opener
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// NewModel creates a reader showing view. Positions are in terminal lines
// from the top of the list, so opts should carry line-based boundaries.
func NewModel(ctx context.Context, api feed.NewsAPI, view feed.View, opts feed.Options, options ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := Model{
		ctx:       ctx,
		api:       api,
		opts:      opts,
		logger:    log.New(io.Discard),
		opener:    OpenBrowser,
		debouncer: feed.NewDebouncer(opts.Debounce),
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   s,
		width:     defaultWidth,
		height:    defaultHeight,
	}
	for _, opt := range options {
		opt(&m)
	}

	m.switchTo(view)
	return m
}

// switchTo replaces the controller with a fresh one for view. The old
// controller, its items and its bindings go away with it.
func (m *Model) switchTo(view feed.View) {
	m.view = view
	m.layout = newLayout(m.opener)
	m.layout.height = m.listHeight()
	m.blocks = nil
	m.ctrl = feed.NewController(view, m.api, m.opts, m.logger.With("view", view))
	m.ctrl.Navigator.SetEndMarker(m.layout)
	m.status = ""
}

// Controller returns the controller of the current view.
func (m Model) Controller() *feed.Controller {
	return m.ctrl
}

// Init starts fetching the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spinner.Tick)
}

func (m Model) listHeight() int {
	return max(m.height-chromeLines, 1)
}

// refresh drops the buffer and fetches the first page.
func (m *Model) refresh() tea.Cmd {
	req := m.ctrl.Refresh()
	m.blocks = nil
	m.layout.place(nil)
	m.layout.scrollTo(0)
	return m.fetch(req)
}

func (m Model) fetch(req feed.Request) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		page, err := ctrl.Pager.Fetch(ctx, req)
		return pageMsg{ctrl: ctrl, req: req, page: page, err: err}
	}
}

// scrolled records a scroll event and schedules a tracking pass once the
// list has been still for the debounce window.
func (m Model) scrolled() tea.Cmd {
	ticket := m.debouncer.Touch()
	ctrl := m.ctrl
	return tea.Tick(m.debouncer.Window(), func(time.Time) tea.Msg {
		return settleMsg{ctrl: ctrl, ticket: ticket}
	})
}

// pass scans for read items, submits them, and fetches the next page when
// the look-ahead runs low.
func (m Model) pass() tea.Cmd {
	var cmds []tea.Cmd

	batch := m.ctrl.Tracker.Scan()
	if !batch.Empty() {
		ctx, ctrl := m.ctx, m.ctrl
		cmds = append(cmds, func() tea.Msg {
			return markedMsg{ctrl: ctrl, batch: batch, err: ctrl.Tracker.Submit(ctx, batch)}
		})
	}

	if m.ctrl.Tracker.NeedsMore() {
		if req, ok := m.ctrl.Pager.Begin(); ok {
			cmds = append(cmds, m.fetch(req), m.spinner.Tick)
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout.height = m.listHeight()
		m.rebuild()
		return m, m.scrolled()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pageMsg:
		if msg.ctrl != m.ctrl || !m.ctrl.Pager.Complete(msg.req, msg.page, msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Error("failed to fetch news items", "err", msg.err)
			return m, nil
		}
		m.sync()
		return m, m.pass()

	case settleMsg:
		if msg.ctrl != m.ctrl || !m.debouncer.Settled(msg.ticket) {
			return m, nil
		}
		return m, m.pass()

	case markedMsg:
		if msg.ctrl == m.ctrl {
			m.ctrl.Tracker.Confirm(msg.batch, msg.err)
		}
		return m, nil

	case savedMsg:
		if msg.ctrl != m.ctrl {
			return m, nil
		}
		m.ctrl.CompleteToggleSaved(msg.op, msg.savedID, msg.err)
		if msg.err != nil {
			m.logger.Warn("failed to toggle saved", "item", msg.op.ID, "err", msg.err)
			m.status = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.ctrl.Pager.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		m.ctrl.Navigator.Next()
		return m, m.scrolled()

	case key.Matches(msg, m.keys.Previous):
		m.ctrl.Navigator.Previous()
		return m, m.scrolled()

	case key.Matches(msg, m.keys.Down):
		m.layout.scrollBy(1)
		return m, m.scrolled()

	case key.Matches(msg, m.keys.Up):
		m.layout.scrollBy(-1)
		return m, m.scrolled()

	case key.Matches(msg, m.keys.PageDown):
		m.layout.scrollBy(m.layout.height)
		return m, m.scrolled()

	case key.Matches(msg, m.keys.PageUp):
		m.layout.scrollBy(-m.layout.height)
		return m, m.scrolled()

	case key.Matches(msg, m.keys.Open):
		// Opening leaves the viewport where it is, so no tracking pass.
		if err := m.ctrl.Navigator.Open(); err != nil {
			m.status = err.Error()
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		cmd := m.refresh()
		return m, tea.Batch(cmd, m.spinner.Tick)

	case key.Matches(msg, m.keys.Save):
		cmd := m.toggleSaved()
		return m, cmd

	case key.Matches(msg, m.keys.KeepUnread):
		entry := m.ctrl.Navigator.Current()
		if entry == nil {
			return m, nil
		}
		if _, err := m.ctrl.ToggleKeepUnread(entry.ID()); err != nil {
			m.status = err.Error()
		}
		return m, nil

	case key.Matches(msg, m.keys.SwitchView):
		m.switchTo(nextView(m.view))
		cmd := m.refresh()
		return m, tea.Batch(cmd, m.spinner.Tick)
	}

	return m, nil
}

func (m *Model) toggleSaved() tea.Cmd {
	entry := m.ctrl.Navigator.Current()
	if entry == nil {
		return nil
	}

	op, err := m.ctrl.BeginToggleSaved(entry.ID())
	if err != nil {
		m.status = err.Error()
		return nil
	}

	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		savedID, err := ctrl.RunSave(ctx, op)
		return savedMsg{ctrl: ctrl, op: op, savedID: savedID, err: err}
	}
}

func nextView(view feed.View) feed.View {
	for i, v := range viewOrder {
		if v == view {
			return viewOrder[(i+1)%len(viewOrder)]
		}
	}
	return feed.ViewUnread
}

// sync registers newly buffered items and lays them out.
func (m *Model) sync() {
	m.ctrl.Sync(func(index int) feed.Scrollable {
		return &itemHandle{layout: m.layout, index: index}
	})
	m.rebuild()
}

// rebuild renders the body of every registered item and places the blocks.
func (m *Model) rebuild() {
	entries := m.ctrl.Registry.Entries()

	m.blocks = m.blocks[:0]
	m.layout.links = m.layout.links[:0]
	heights := make([]int, 0, len(entries))
	for _, entry := range entries {
		b := block{entry: entry, body: m.renderBody(entry.Item)}
		m.blocks = append(m.blocks, b)
		m.layout.links = append(m.layout.links, entry.Item.Link)
		heights = append(heights, 1+len(b.body))
	}
	m.layout.place(heights)
}

// renderBody renders everything below the title line, including the blank
// separator line.
func (m Model) renderBody(item newsroom.NewsItem) []string {
	width := max(m.width-2, 10)

	meta := item.FeedTitle
	if published, err := time.Parse(time.RFC3339, item.Published); err == nil {
		meta = fmt.Sprintf("%s · %s", meta, published.Local().Format("Jan 2 15:04"))
	}
	body := []string{metaStyle.Render(truncate(meta, width))}

	if alternates := item.Alternates(); len(alternates) > 0 {
		names := make([]string, 0, len(alternates))
		for _, alt := range alternates {
			names = append(names, alt.Title)
		}
		body = append(body, metaStyle.Render(truncate("also on "+strings.Join(names, ", "), width)))
	}

	body = append(body, wrapLines(item.PlainDescription(), width, descriptionLines)...)
	return append(body, "")
}

func (m Model) renderTitle(entry *feed.Entry) string {
	state := entry.State

	marker := "  "
	switch {
	case state.KeepUnread:
		marker = markerStyle.Render("• ")
	case state.IsSaved:
		marker = markerStyle.Render("★ ")
	}

	title := truncate(entry.Item.Title, max(m.width-2, 10))
	if state.IsRead && !state.KeepUnread {
		return marker + readStyle.Render(title)
	}
	return marker + titleStyle.Render(title)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// View renders the header, the visible part of the list and the footer.
func (m Model) View() string {
	lines := make([]string, 0, m.layout.endLine+1)
	for _, b := range m.blocks {
		lines = append(lines, m.renderTitle(b.entry))
		lines = append(lines, b.body...)
	}
	lines = append(lines, m.endLine())

	height := m.layout.height
	start := min(m.layout.offset, len(lines))
	end := min(start+height, len(lines))
	visible := lines[start:end]
	for len(visible) < height {
		visible = append(visible, "")
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(strings.Join(visible, "\n"))
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	title := fmt.Sprintf("newsroom · %s", m.view)
	if m.view == feed.ViewUnread {
		title = fmt.Sprintf("%s (%d)", title, m.ctrl.Pager.Unread())
	}
	header := headerStyle.Render(title)
	if m.ctrl.Pager.Loading() {
		header += " " + m.spinner.View()
	}
	return header
}

func (m Model) endLine() string {
	pager := m.ctrl.Pager
	switch {
	case pager.Err() != nil:
		return errorStyle.Render(pager.ErrorMessage())
	case pager.Loading():
		return endStyle.Render("Loading…")
	case pager.NoMore() && pager.Len() == 0:
		return endStyle.Render("Nothing here yet.")
	case pager.NoMore():
		return endStyle.Render("No more items.")
	}
	return ""
}

func (m Model) footer() string {
	if m.status != "" {
		return errorStyle.Render(m.status)
	}
	return m.help.View(m.keys)
}

// Run starts the reader on the terminal and blocks until the user quits.
func Run(ctx context.Context, api feed.NewsAPI, view feed.View, opts feed.Options, options ...Option) error {
	p := tea.NewProgram(NewModel(ctx, api, view, opts, options...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run reader: %w", err)
	}
	return nil
}
