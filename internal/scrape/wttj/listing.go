package wttj

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"offerwatch/internal/browser"
	"offerwatch/internal/scrape/util"
)

// SearchURL builds the results page address, e.g.
// https://www.welcometothejungle.com/fr/jobs?query=data+scientist
func SearchURL(base, language, query string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if language == "" {
		language = "fr"
	}
	return fmt.Sprintf("%s/%s/jobs?%s", base, language, url.Values{"query": {query}}.Encode())
}

// ParseOfferLinks reads one link per item of the results list, resolved
// against base, in page order and without repeats. Links that differ only
// by tracking parameters count as repeats.
func ParseOfferLinks(doc *goquery.Document, base string) []string {
	seen := map[string]bool{}
	var out []string
	doc.Find(ResultItemSelector).Each(func(_ int, li *goquery.Selection) {
		href, ok := li.Find(ResultLinkSelector).First().Attr("href")
		if !ok {
			return
		}
		abs := util.ResolveURL(base, href)
		key := util.CanonicalizeURL(abs)
		if abs == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, abs)
	})
	return out
}

// Crawler lists offers from the script-rendered search page.
type Crawler struct {
	BaseURL  string
	Language string
	Settle   time.Duration
	Launch   browser.Launcher
}

// ListOfferLinks opens a browser session, renders the results for query
// and returns the offer URLs. The session is always closed before
// returning.
func (c *Crawler) ListOfferLinks(ctx context.Context, query string) (links []string, err error) {
	if c.Launch == nil {
		return nil, fmt.Errorf("crawler: no browser launcher")
	}
	r, err := c.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			log.Printf("[browser] close error: %v", cerr)
		}
	}()

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	searchURL := SearchURL(base, c.Language, query)
	log.Printf("[scrape] rendering search url=%s settle=%s", searchURL, c.Settle)

	html, err := r.Render(ctx, searchURL, c.Settle)
	if err != nil {
		return nil, fmt.Errorf("render search page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	links = ParseOfferLinks(doc, util.Origin(base))
	log.Printf("[scrape] search query=%q links=%d", query, len(links))
	return links, nil
}
