package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/use-agent/enrich/models"
)

// DefaultGoogleURL is the Custom Search JSON API endpoint.
const DefaultGoogleURL = "https://www.googleapis.com/customsearch/v1"

// googleMaxNum is the largest page size the API accepts.
const googleMaxNum = 10

// Google queries a Programmable Search Engine.
type Google struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	engineID   string
	maxResults int
}

// NewGoogle creates a Custom Search client.
func NewGoogle(client *http.Client, apiKey, engineID string, maxResults int) *Google {
	return &Google{
		client:     client,
		baseURL:    DefaultGoogleURL,
		apiKey:     apiKey,
		engineID:   engineID,
		maxResults: maxResults,
	}
}

func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns the item links of the first result page.
func (g *Google) Search(ctx context.Context, query string) ([]string, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}

	num := g.maxResults
	if num <= 0 || num > googleMaxNum {
		num = googleMaxNum
	}
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch, "failed to build search request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch, "search request failed", err)
	}
	defer resp.Body.Close()

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeSearch,
			fmt.Sprintf("failed to decode search response (HTTP %d)", resp.StatusCode), err)
	}
	if resp.StatusCode != http.StatusOK || body.Error != nil {
		msg := fmt.Sprintf("search returned HTTP %d", resp.StatusCode)
		if body.Error != nil {
			msg += ": " + body.Error.Message
		}
		return nil, models.NewPipelineError(models.ErrCodeSearch, msg, nil)
	}

	var urls []string
	seen := make(map[string]struct{})
	for _, item := range body.Items {
		var full bool
		if urls, full = keepHTTP(urls, seen, item.Link, num); full {
			break
		}
	}

	slog.Debug("search complete", "provider", g.Name(), "query", query, "results", len(urls))
	return urls, nil
}
