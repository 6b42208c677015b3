package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/enrich/models"
)

// DefaultDuckDuckGoURL is the JavaScript-free results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

// NewDuckDuckGo creates a DuckDuckGo searcher returning at most
// maxResults links.
func NewDuckDuckGo(client *http.Client, maxResults int) *DuckDuckGo {
	return &DuckDuckGo{client: client, baseURL: DefaultDuckDuckGoURL, maxResults: maxResults}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches the results page for query. Sponsored results are
// skipped and redirect links are decoded to their targets.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]string, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(d.baseURL, "/") + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch, "failed to build search request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch, "search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewPipelineError(models.ErrCodeSearch,
			fmt.Sprintf("search returned HTTP %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch, "failed to parse search results", err)
	}

	var urls []string
	seen := make(map[string]struct{})
	doc.Find("a.result__a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.Closest(".result--ad").Length() > 0 {
			return true
		}
		href, _ := a.Attr("href")
		var full bool
		urls, full = keepHTTP(urls, seen, resolveRedirect(href), d.maxResults)
		return !full
	})

	slog.Debug("search complete", "provider", d.Name(), "query", query, "results", len(urls))
	return urls, nil
}

// resolveRedirect returns the uddg target of a DuckDuckGo redirect link,
// or href itself.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
