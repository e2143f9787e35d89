package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// userAgent identifies the server to the sites it fetches.
const userAgent = "newsroomd/1.0 (RSS/Atom aggregator)"

// IconFinder looks up the icon a site declares in its HTML.
type IconFinder struct {
	client *http.Client
}

// NewIconFinder creates a finder. A nil client means one with a 10 second
// timeout.
func NewIconFinder(client *http.Client) *IconFinder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &IconFinder{client: client}
}

// FindIcon fetches the page at siteURL and returns the absolute URL of its
// first <link rel="icon">, or "" when the page declares none.
func (f *IconFinder) FindIcon(ctx context.Context, siteURL string) (string, error) {
	doc, err := f.fetchHTML(ctx, siteURL)
	if err != nil {
		return "", err
	}

	base, err := url.Parse(siteURL)
	if err != nil {
		return "", fmt.Errorf("invalid site URL: %w", err)
	}

	var icon string
	doc.Find("link[rel][href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !hasIconRel(rel) {
			return true
		}
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		icon = base.ResolveReference(ref).String()
		return false
	})
	return icon, nil
}

func hasIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "icon" || token == "apple-touch-icon" {
			return true
		}
	}
	return false
}

func (f *IconFinder) fetchHTML(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
