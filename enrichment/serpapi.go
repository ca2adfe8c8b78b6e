package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tamadze/tamada/pkg/httpclient"
)

const serpAPIBaseURL = "https://serpapi.com"

// SerpResult is one organic Google hit with the practical-info snippet.
type SerpResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type serpSearchWire struct {
	OrganicResults []SerpResult `json:"organic_results"`
}

// SerpAPIClient queries Google through SerpAPI for opening hours and
// ticket info. A missing key disables the client.
type SerpAPIClient struct {
	key     string
	baseURL string
	http    *httpclient.Client
}

func NewSerpAPIClient(key string, timeout time.Duration) *SerpAPIClient {
	return &SerpAPIClient{
		key:     key,
		baseURL: serpAPIBaseURL,
		http: httpclient.New(
			httpclient.WithTimeout(timeout),
			httpclient.WithMaxRetries(2),
		),
	}
}

// Search runs a Google search localized to lang and returns the organic
// results.
func (c *SerpAPIClient) Search(ctx context.Context, query, lang string, num int) ([]SerpResult, error) {
	if c.key == "" {
		return nil, nil
	}
	if num <= 0 {
		num = 5
	}

	params := url.Values{}
	params.Set("api_key", c.key)
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("hl", lang)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		drainBody(resp)
		return nil, fmt.Errorf("serpapi: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	var wire serpSearchWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("serpapi: decode search %q: %w", query, err)
	}
	return wire.OrganicResults, nil
}
