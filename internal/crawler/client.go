// Package crawler talks to the external crawl subsystem: a streaming
// export client for pages the crawler already fetched, plus a headless
// direct fetcher for URLs the crawler has not seen.
package crawler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"infracal/internal/model"

	appLog "infracal/internal/log"
)

const DefaultBaseURL = "http://localhost:8002"

// Client streams crawled pages from the crawler service's NDJSON export
// endpoint. The underlying HTTP client and its connection pool are
// long-lived and reused across calls.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient constructs a crawler export client. token, when non-empty,
// is sent as a bearer Authorization header.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: timeout},
	}
}

// wirePage tolerates the crawler's loosely-typed export rows; fetched_at
// in particular arrives in whatever format the crawler emits.
type wirePage struct {
	PageID     int64  `json:"page_id"`
	PageURL    string `json:"page_url"`
	HTTPStatus int    `json:"http_status"`
	FetchedAt  string `json:"fetched_at"`
	ConfigID   string `json:"config_id"`
	PlainText  string `json:"plain_text"`
}

// Export calls /crawlers/export and parses the NDJSON response into
// pages. Lines that fail to decode are skipped, not fatal; a crawler
// export is best-effort by nature.
func (c *Client) Export(ctx context.Context, config string, limit int) ([]model.Page, error) {
	if config == "" {
		return nil, errors.New("crawler: config is empty")
	}

	q := url.Values{}
	q.Set("config", config)
	q.Set("include_html", "false")
	q.Set("include_plain_text", "true")
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/crawlers/export?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	appLog.Info("crawler export start", "config", config, "limit", limit)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crawler: export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crawler: export: unexpected status %s", resp.Status)
	}

	var pages []model.Page
	skipped := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var wp wirePage
		if err := json.Unmarshal([]byte(line), &wp); err != nil {
			skipped++
			continue
		}
		pages = append(pages, pageFromWire(wp))
	}
	if err := scanner.Err(); err != nil {
		return pages, fmt.Errorf("crawler: export read: %w", err)
	}

	appLog.Info("crawler export done", "config", config, "pages", len(pages), "skipped_lines", skipped)
	return pages, nil
}

func pageFromWire(wp wirePage) model.Page {
	p := model.Page{
		ID:         wp.PageID,
		URL:        wp.PageURL,
		HTTPStatus: wp.HTTPStatus,
		ConfigID:   wp.ConfigID,
		PlainText:  wp.PlainText,
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, wp.FetchedAt); err == nil {
			p.FetchedAt = t
			break
		}
	}
	return p
}
