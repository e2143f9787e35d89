package newsroom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NewsItem is a single syndicated article as served by GET /news-items.
type NewsItem struct {
	ID         string `json:"_id"`
	FeedID     string `json:"feed_id"`
	FeedItemID string `json:"feed_item_id"`

	Published   string `json:"published"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	FeedTitle   string `json:"feed_title"`
	Favicon     string `json:"favicon"`

	// Cross-posted copies of the same story travel as three parallel arrays.
	AlternateLinks      []string `json:"alternate_links"`
	AlternateTitleLinks []string `json:"alternate_title_links"`
	AlternateFavicons   []string `json:"alternate_favicons"`

	IsRead          bool    `json:"is_read"`
	IsSaved         bool    `json:"is_saved"`
	SavedNewsItemID *string `json:"saved_news_item_id"`
}

// AlternateLink is one cross-posted copy of a news item.
type AlternateLink struct {
	Link    string
	Title   string
	Favicon string
}

// Alternates zips the parallel alternate arrays. Missing titles or favicons
// are left empty; the link array decides the length.
func (n NewsItem) Alternates() []AlternateLink {
	alternates := make([]AlternateLink, 0, len(n.AlternateLinks))
	for i, link := range n.AlternateLinks {
		alt := AlternateLink{Link: link}
		if i < len(n.AlternateTitleLinks) {
			alt.Title = n.AlternateTitleLinks[i]
		}
		if i < len(n.AlternateFavicons) {
			alt.Favicon = n.AlternateFavicons[i]
		}
		alternates = append(alternates, alt)
	}
	return alternates
}

// PlainDescription returns the description with markup stripped and
// whitespace collapsed. Descriptions that fail to parse are returned as-is.
func (n NewsItem) PlainDescription() string {
	return HTMLToText(n.Description)
}

// HTMLToText flattens an HTML fragment to its text content.
func HTMLToText(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	// Drop anything that never renders as text, and keep block boundaries
	// from gluing words together
	doc.Find("script, style").Remove()
	doc.Find("br, p, div, li, h1, h2, h3, h4").AfterHtml(" ")

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// SavedNewsItem is a starred snapshot of a news item, as served by
// GET /saved-news.
type SavedNewsItem struct {
	NewsItem
	SavedID    string `json:"saved_news_item_id"`
	NewsItemID string `json:"news_item_id"`
}

// AsNewsItem returns the embedded item with the saved markers filled in.
func (s SavedNewsItem) AsNewsItem() NewsItem {
	item := s.NewsItem
	if item.ID == "" {
		item.ID = s.NewsItemID
	}
	savedID := s.SavedID
	item.SavedNewsItemID = &savedID
	item.IsSaved = true
	return item
}

// NewsItemsPage is the response of GET /news-items and GET /news-items/read.
type NewsItemsPage struct {
	Token               PageToken  `json:"token"`
	NewsItems           []NewsItem `json:"news_items"`
	NumberOfUnreadItems *int       `json:"number_of_unread_items"`

	// HasMore is optional; servers that send it override token inspection.
	HasMore *bool `json:"has_more,omitempty"`
}

// SavedNewsPage is the response of GET /saved-news.
type SavedNewsPage struct {
	Items []SavedNewsItem `json:"items"`
}

// MarkAsReadRequest is the body of POST /news-items/mark-as-read.
type MarkAsReadRequest struct {
	NewsItemIDs []string `json:"news_item_ids"`
}

// SaveNewsItemRequest is the body of POST /saved-news.
type SaveNewsItemRequest struct {
	NewsItemID string `json:"news_item_id"`
}

// SaveNewsItemResponse is the response of POST /saved-news.
type SaveNewsItemResponse struct {
	SavedNewsItemID string `json:"saved_news_item_id"`
}
