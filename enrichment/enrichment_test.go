package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/pkg/httpclient"
	"github.com/tamadze/tamada/search"
)

func newEnrichmentTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s := cache.New(config.RedisConfig{Enabled: false, DefaultTTL: 60})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNeedsMoreDescription(t *testing.T) {
	long := strings.Repeat("о", 300)

	assert.True(t, needsMoreDescription(&search.SearchResult{Payload: map[string]any{}}))
	assert.True(t, needsMoreDescription(&search.SearchResult{Payload: map[string]any{"description": "короткое"}}))
	assert.False(t, needsMoreDescription(&search.SearchResult{Payload: map[string]any{"description": long}}))

	// 200 Cyrillic characters span 400 bytes; the floor counts
	// characters, so this description is still short.
	short := strings.Repeat("и", 200)
	require.Len(t, []byte(short), 400)
	assert.True(t, needsMoreDescription(&search.SearchResult{Payload: map[string]any{"description": short}}))
}

func TestNeedsMoreImages(t *testing.T) {
	assert.True(t, needsMoreImages(&search.SearchResult{Payload: map[string]any{}}))
	assert.False(t, needsMoreImages(&search.SearchResult{Payload: map[string]any{"has_processed_image": true}}))
	assert.False(t, needsMoreImages(&search.SearchResult{Payload: map[string]any{"image_url": "https://img/1.jpg"}}))
}

func TestEnrichSkipsCompleteDocuments(t *testing.T) {
	e := NewEngine(config.EnrichmentConfig{}, newEnrichmentTestCache(t), nil, nil)

	long := strings.Repeat("о", 400)
	results := []search.SearchResult{
		{DocID: "doc-1", Payload: map[string]any{"name": "Нарикала", "description": long, "has_processed_image": true}},
		{DocID: "doc-2", Payload: map[string]any{"name": "Мтацминда", "description": long, "image_url": "https://img/2.jpg"}},
	}

	res, err := e.Enrich(context.Background(), results, "ru")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, e.Stats().Total)
}

func TestEnrichSkipsUnnamedDocuments(t *testing.T) {
	e := NewEngine(config.EnrichmentConfig{}, newEnrichmentTestCache(t), nil, nil)

	results := []search.SearchResult{{DocID: "doc-1", Payload: map[string]any{"description": "короткое"}}}

	res, err := e.Enrich(context.Background(), results, "ru")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestEnrichServesPermanentCache(t *testing.T) {
	c := newEnrichmentTestCache(t)
	e := NewEngine(config.EnrichmentConfig{}, c, nil, nil)
	ctx := context.Background()

	key := cache.Key("Нарикала|Мтацминда")
	seeded := Result{
		WikipediaContent: "Нарикала - древняя крепость над Тбилиси.",
		Sources:          []string{"wikipedia"},
		CacheKey:         key,
	}
	require.NoError(t, c.SetJSONPermanent(ctx, cache.NSEnrichmentPermanent, key, seeded))

	results := []search.SearchResult{
		{DocID: "doc-1", Payload: map[string]any{"name": "Нарикала"}},
		{DocID: "doc-2", Payload: map[string]any{"name": "Мтацминда"}},
	}

	res, err := e.Enrich(ctx, results, "ru")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, seeded.WikipediaContent, res.WikipediaContent)
	assert.Equal(t, []string{"wikipedia"}, res.Sources)

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.PermanentHits)
	assert.Zero(t, stats.WebFetches)
}

func TestEnrichFetchesFromWeb(t *testing.T) {
	wikiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page/summary/Narikala_Fortress", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{
			"extract": "Narikala is an ancient fortress overlooking Tbilisi.",
			"thumbnail": {"source": "https://upload.wikimedia.org/narikala.jpg"},
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Narikala"}}
		}`)
	}))
	defer wikiSrv.Close()

	unsplashSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "Narikala Fortress Georgia tourism", r.URL.Query().Get("query"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
		fmt.Fprint(w, `{"results": [
			{"urls": {"regular": "https://images.unsplash.com/1", "thumb": "https://images.unsplash.com/1t"},
			 "alt_description": "old fortress", "user": {"name": "Ana"}},
			{"urls": {"regular": "https://images.unsplash.com/2", "thumb": "https://images.unsplash.com/2t"},
			 "user": {"name": "Gio"}}
		]}`)
	}))
	defer unsplashSrv.Close()

	serpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Narikala Fortress Georgia tourism opening hours tickets", r.URL.Query().Get("q"))
		assert.Equal(t, "en", r.URL.Query().Get("hl"))
		fmt.Fprint(w, `{"organic_results": [
			{"title": "Narikala opening hours", "link": "https://example.com", "snippet": "Open daily 9:00-22:00"}
		]}`)
	}))
	defer serpSrv.Close()

	c := newEnrichmentTestCache(t)
	e := &Engine{
		cfg:       config.EnrichmentConfig{CacheTTL: 60},
		cache:     c,
		persister: NewPersister(nil, nil),
		wikipedia: &WikipediaClient{baseURL: wikiSrv.URL, http: httpclient.New(httpclient.WithUserAgent("test-agent"))},
		unsplash:  &UnsplashClient{key: "test-key", perPage: 5, baseURL: unsplashSrv.URL, http: httpclient.New()},
		serpapi:   &SerpAPIClient{key: "test-key", baseURL: serpSrv.URL, http: httpclient.New()},
		timeout:   5 * time.Second,
	}

	results := []search.SearchResult{{DocID: "doc-1", Payload: map[string]any{"name": "Narikala Fortress"}}}

	res, err := e.Enrich(context.Background(), results, "en")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Narikala is an ancient fortress overlooking Tbilisi.", res.WikipediaContent)
	assert.Equal(t, []string{"https://upload.wikimedia.org/narikala.jpg"}, res.WikipediaImages)
	require.Len(t, res.UnsplashImages, 2)
	assert.Equal(t, "Ana", res.UnsplashImages[0].Photographer)
	require.Len(t, res.SerpResults, 1)
	assert.Equal(t, "Open daily 9:00-22:00", res.SerpResults[0].Snippet)
	assert.Equal(t, []string{"wikipedia", "serpapi", "unsplash"}, res.Sources)
	assert.Equal(t, cache.Key("Narikala Fortress"), res.CacheKey)

	// The second round is answered by the permanent cache.
	res2, err := e.Enrich(context.Background(), results, "en")
	require.NoError(t, err)
	assert.Equal(t, res.WikipediaContent, res2.WikipediaContent)

	stats := e.Stats()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.PermanentHits)
	assert.Equal(t, int64(1), stats.WebFetches)
}

func TestEnrichMemoizesEmptyFetch(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such page", http.StatusNotFound)
	}))
	defer notFound.Close()

	c := newEnrichmentTestCache(t)
	e := &Engine{
		cfg:       config.EnrichmentConfig{CacheTTL: 60},
		cache:     c,
		persister: NewPersister(nil, nil),
		wikipedia: &WikipediaClient{baseURL: notFound.URL, http: httpclient.New()},
		unsplash:  &UnsplashClient{baseURL: notFound.URL, http: httpclient.New()},
		serpapi:   &SerpAPIClient{baseURL: notFound.URL, http: httpclient.New()},
		timeout:   5 * time.Second,
	}

	results := []search.SearchResult{{DocID: "doc-1", Payload: map[string]any{"name": "Гора Казбек"}}}

	res, err := e.Enrich(context.Background(), results, "ru")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Empty())

	_, err = e.Enrich(context.Background(), results, "ru")
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.WebFetches, "empty result should be memoized")
}

func TestWikipediaClientEncodesTitle(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"extract": "Old town."}`)
	}))
	defer srv.Close()

	c := &WikipediaClient{baseURL: srv.URL, http: httpclient.New()}
	summary, err := c.Summary(context.Background(), "Old Tbilisi")
	require.NoError(t, err)
	assert.Equal(t, "/page/summary/Old_Tbilisi", gotPath)
	assert.Equal(t, "Old town.", summary.Content)
	assert.Empty(t, summary.Images)
}

func TestUnsplashClientDisabledWithoutKey(t *testing.T) {
	c := &UnsplashClient{baseURL: "http://127.0.0.1:1", http: httpclient.New()}
	images, err := c.SearchPhotos(context.Background(), "Tbilisi")
	require.NoError(t, err)
	assert.Nil(t, images)
}

func TestSerpAPIClientDisabledWithoutKey(t *testing.T) {
	c := &SerpAPIClient{baseURL: "http://127.0.0.1:1", http: httpclient.New()}
	hits, err := c.Search(context.Background(), "Tbilisi", "en", 5)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestResultEmpty(t *testing.T) {
	var nilRes *Result
	assert.True(t, nilRes.Empty())
	assert.True(t, (&Result{}).Empty())
	assert.False(t, (&Result{Sources: []string{"wikipedia"}}).Empty())
}

func TestUnsplashFromPayload(t *testing.T) {
	images := unsplashFromPayload([]any{
		map[string]any{"url": "https://img/1.jpg", "photographer": "Ana", "alt": "fortress"},
		map[string]any{"photographer": "nobody"},
		"not a map",
	})

	require.Len(t, images, 1)
	assert.Equal(t, "https://img/1.jpg", images[0].URL)
	assert.Equal(t, "Ana", images[0].Photographer)
	assert.Equal(t, "fortress", images[0].Alt)
}

func TestAsStrings(t *testing.T) {
	assert.Nil(t, asStrings("not a slice"))
	assert.Equal(t, []string{"a", "b"}, asStrings([]any{"a", "", 7, "b"}))
}
