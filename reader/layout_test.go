package reader

import (
	"testing"

	"github.com/pevans/newsroom/feed"
	"github.com/stretchr/testify/assert"
)

// TestLayout_Positions verifies positions follow the scroll offset.
func TestLayout_Positions(t *testing.T) {
	l := newLayout(nil)
	l.height = 5
	l.place([]int{3, 4, 2})

	first := &itemHandle{layout: l, index: 0}
	last := &itemHandle{layout: l, index: 2}
	assert.Equal(t, feed.Position{Top: 0, Bottom: 3}, first.Position())
	assert.Equal(t, feed.Position{Top: 7, Bottom: 9}, last.Position())

	last.ScrollToTop()
	assert.Equal(t, 7, l.offset)
	assert.Equal(t, feed.Position{Top: -7, Bottom: -4}, first.Position())
	assert.Equal(t, feed.Position{Top: 0, Bottom: 2}, last.Position())
}

// TestLayout_ScrollClamps verifies the offset stays between the top and the
// end marker.
func TestLayout_ScrollClamps(t *testing.T) {
	l := newLayout(nil)
	l.height = 5
	l.place([]int{3, 3})

	l.scrollBy(-4)
	assert.Equal(t, 0, l.offset)

	l.scrollBy(100)
	assert.Equal(t, 6, l.offset)
}

// TestLayout_ScrollIntoView verifies the end marker is brought to the last
// visible line only when it is below the view.
func TestLayout_ScrollIntoView(t *testing.T) {
	l := newLayout(nil)
	l.height = 4
	l.place([]int{3, 3, 3})

	l.ScrollIntoView()
	assert.Equal(t, 6, l.offset)

	l.ScrollIntoView()
	assert.Equal(t, 6, l.offset)
}

// TestItemHandle_OpenLink verifies links go to the opener.
func TestItemHandle_OpenLink(t *testing.T) {
	var opened string
	l := newLayout(func(url string) error {
		opened = url
		return nil
	})
	l.place([]int{2, 2})
	l.links = []string{"http://a", ""}

	assert.NoError(t, (&itemHandle{layout: l, index: 0}).OpenLink())
	assert.Equal(t, "http://a", opened)
	assert.ErrorIs(t, (&itemHandle{layout: l, index: 1}).OpenLink(), feed.ErrNothingToOpen)
}

// TestWrapLines verifies wrapping and truncation of descriptions.
func TestWrapLines(t *testing.T) {
	assert.Nil(t, wrapLines("", 20, 3))
	assert.Equal(t, []string{"short"}, wrapLines("short", 20, 3))

	lines := wrapLines("one two three four five six seven eight nine ten", 10, 2)
	assert.Len(t, lines, 2)
	assert.Equal(t, "one two", lines[0])
	assert.True(t, len([]rune(lines[1])) <= 10)
	assert.Contains(t, lines[1], "…")
}
