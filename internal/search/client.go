// Package search answers web queries through DuckDuckGo's HTML endpoint,
// with a file-backed result cache and an idle-evicted client component.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// WebResult is one search hit.
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Engine performs live web searches. The production engine talks to
// DuckDuckGo; tests substitute a stub via the component loader.
type Engine interface {
	Search(ctx context.Context, query string, maxResults int) ([]WebResult, error)
}

const duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

// duckduckgo scrapes the JavaScript-free HTML endpoint. A rate limiter keeps
// a minimum interval between live requests so we stay a polite client.
type duckduckgo struct {
	client  *resty.Client
	limiter *rate.Limiter
}

func newDuckDuckGo(timeout, minInterval time.Duration) *duckduckgo {
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "agentd/1.0 (+local assistant)").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &duckduckgo{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (d *duckduckgo) Search(ctx context.Context, query string, maxResults int) ([]WebResult, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"q": query}).
		Post(duckduckgoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	if resp.StatusCode()/100 != 2 {
		return nil, fmt.Errorf("duckduckgo: status %d", resp.StatusCode())
	}
	return parseResults(strings.NewReader(resp.String()), maxResults)
}

// parseResults extracts hits from the html.duckduckgo.com result markup.
func parseResults(r *strings.Reader, maxResults int) ([]WebResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	var out []WebResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if title == "" && href == "" {
			return true
		}
		out = append(out, WebResult{
			Title:   title,
			URL:     href,
			Snippet: snippet,
			Source:  "duckduckgo",
		})
		return maxResults <= 0 || len(out) < maxResults
	})
	return out, nil
}
