package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tamadze/tamada/pkg/httpclient"
)

// WikipediaSummary is the trimmed page summary the engine keeps.
type WikipediaSummary struct {
	Content string
	Images  []string
	URL     string
}

type wikipediaSummaryWire struct {
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// WikipediaClient fetches REST page summaries. Wikipedia rejects
// requests without a User-Agent, so the client always sends one.
type WikipediaClient struct {
	baseURL string
	http    *httpclient.Client
}

func NewWikipediaClient(baseURL, userAgent string, timeout time.Duration) *WikipediaClient {
	return &WikipediaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: httpclient.New(
			httpclient.WithTimeout(timeout),
			httpclient.WithMaxRetries(2),
			httpclient.WithUserAgent(userAgent),
		),
	}
}

// Summary fetches the page summary for a title. Spaces become
// underscores per the REST path convention.
func (c *WikipediaClient) Summary(ctx context.Context, title string) (*WikipediaSummary, error) {
	page := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/page/summary/"+page, nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		drainBody(resp)
		return nil, fmt.Errorf("wikipedia: summary %q: %w", title, err)
	}
	defer resp.Body.Close()

	var wire wikipediaSummaryWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("wikipedia: decode summary %q: %w", title, err)
	}

	summary := &WikipediaSummary{
		Content: wire.Extract,
		Images:  []string{},
		URL:     wire.ContentURLs.Desktop.Page,
	}
	if wire.Thumbnail != nil && wire.Thumbnail.Source != "" {
		summary.Images = []string{wire.Thumbnail.Source}
	}
	return summary, nil
}

func drainBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
