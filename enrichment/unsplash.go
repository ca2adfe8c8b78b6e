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

const unsplashBaseURL = "https://api.unsplash.com"

// UnsplashImage is one landscape photo hit.
type UnsplashImage struct {
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Description  string `json:"description,omitempty"`
	Photographer string `json:"photographer"`
	Alt          string `json:"alt_description,omitempty"`
}

type unsplashSearchWire struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Thumb   string `json:"thumb"`
		} `json:"urls"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		User           struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// UnsplashClient searches for professional photos. A missing access key
// disables the client rather than erroring.
type UnsplashClient struct {
	key     string
	perPage int
	baseURL string
	http    *httpclient.Client
}

func NewUnsplashClient(key string, perPage int, timeout time.Duration) *UnsplashClient {
	if perPage <= 0 {
		perPage = 5
	}
	return &UnsplashClient{
		key:     key,
		perPage: perPage,
		baseURL: unsplashBaseURL,
		http: httpclient.New(
			httpclient.WithTimeout(timeout),
			httpclient.WithMaxRetries(2),
		),
	}
}

// SearchPhotos returns landscape photos for a query, newest relevance
// first as Unsplash ranks them.
func (c *UnsplashClient) SearchPhotos(ctx context.Context, query string) ([]UnsplashImage, error) {
	if c.key == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("unsplash: build request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		drainBody(resp)
		return nil, fmt.Errorf("unsplash: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	var wire unsplashSearchWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("unsplash: decode search %q: %w", query, err)
	}

	images := make([]UnsplashImage, 0, len(wire.Results))
	for _, photo := range wire.Results {
		images = append(images, UnsplashImage{
			URL:          photo.URLs.Regular,
			Thumbnail:    photo.URLs.Thumb,
			Description:  photo.Description,
			Photographer: photo.User.Name,
			Alt:          photo.AltDescription,
		})
	}
	return images, nil
}
