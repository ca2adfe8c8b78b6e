package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamadze/tamada"
	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/conversation"
	"github.com/tamadze/tamada/enrichment"
	"github.com/tamadze/tamada/llm"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/pipeline"
	"github.com/tamadze/tamada/search"
	"github.com/tamadze/tamada/taskqueue"
)

type stubSearcher struct {
	mu       sync.Mutex
	resp     *search.Response
	err      error
	lastTopK int
	lastLang string
	searches int
}

func (s *stubSearcher) Analyze(query, detectedLang string) search.QueryAnalysis {
	return search.QueryAnalysis{OriginalQuery: query, Language: detectedLang}
}

func (s *stubSearcher) Search(ctx context.Context, query string, analysis *search.QueryAnalysis, topK int) (*search.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	s.lastTopK = topK
	if analysis != nil {
		s.lastLang = analysis.Language
	}
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.resp
	if analysis != nil {
		resp.Analysis = *analysis
	}
	return &resp, nil
}

func (s *stubSearcher) Stats() search.EngineStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return search.EngineStats{TotalSearches: int64(s.searches)}
}

func (s *stubSearcher) CacheHealth() search.CacheHealth {
	return search.CacheHealth{Status: "excellent"}
}

type fakeCompleter struct{}

func (f *fakeCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (*llm.Completion, error) {
	return &llm.Completion{
		Text:         "Нарикала возвышается над старым Тбилиси.",
		Model:        "claude-sonnet-4-20250514",
		StopReason:   "end_turn",
		InputTokens:  90,
		OutputTokens: 40,
	}, nil
}

func attractionResults() *search.Response {
	return &search.Response{
		Results: []search.SearchResult{
			{DocID: "attr_001", Score: 0.93, Source: "hybrid", Payload: map[string]any{
				"id":          "attr_001",
				"name":        "Крепость Нарикала",
				"description": "Древняя крепость над старым Тбилиси",
				"category":    "Крепости",
				"location":    "Тбилиси, Грузия",
				"image_url":   "https://cdn.example/narikala.jpg",
			}},
			{DocID: "attr_002", Score: 0.71, Source: "hybrid", Payload: map[string]any{
				"id":          "attr_002",
				"name":        "Серные бани Абанотубани",
				"description": "Исторические серные бани",
				"category":    "Достопримечательности",
			}},
		},
		Performance: search.Performance{TotalTime: 0.042, StrategyUsed: "semantic_focus"},
	}
}

// newTestServer wires a real pipeline around stubbed retrieval and
// generation, returning the handler plus the seams tests poke at.
func newTestServer(t *testing.T, searcher pipeline.Searcher, opts ...func(*pipeline.Components)) (http.Handler, *cache.Store) {
	t.Helper()

	cfg := &config.Config{}
	cfg.SetDefaults()

	store := cache.New(cfg.Redis)
	t.Cleanup(func() { _ = store.Close() })

	comps := pipeline.Components{
		Detector:      multilingual.NewDetector(nil),
		Search:        searcher,
		Generator:     llm.NewGenerator(&fakeCompleter{}, nil, nil, 0),
		Conversations: conversation.New(nil, cfg.Conversation),
		Cache:         store,
	}
	for _, opt := range opts {
		opt(&comps)
	}

	pipe := pipeline.New(cfg, comps)
	return New(cfg, pipe, nil, nil).Handler(), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher)

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query": "Расскажи о крепости Нарикала"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.False(t, out.Error)
	assert.Equal(t, "Нарикала возвышается над старым Тбилиси.", out.Response)
	assert.Equal(t, "ru", out.Language)
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "Крепость Нарикала", out.Sources[0].Name)
	assert.Equal(t, "Тбилиси", out.Sources[0].Location)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Metadata.ModelUsed)
	assert.Equal(t, 130, out.Metadata.TotalTokens)
	assert.Equal(t, 5, searcher.lastTopK, "default top_k comes from config")
}

func TestQueryEndpointEnrichmentDefaultsOn(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher, func(c *pipeline.Components) {
		c.Enricher = &stubEnricher{}
	})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query": "Гамарджоба, друзья!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Metadata.EnrichmentEnabled, "absent enable_web_enrichment keeps the default")

	rec = doJSON(t, h, http.MethodPost, "/query", `{"query": "Гамарджоба, друзья!", "enable_web_enrichment": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Metadata.EnrichmentEnabled)
}

type stubEnricher struct{}

func (s *stubEnricher) Enrich(ctx context.Context, results []search.SearchResult, lang string) (*enrichment.Result, error) {
	return nil, nil
}

func TestQueryEndpointClampsTopK(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher)

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query": "Расскажи о Тбилиси", "top_k": 99}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxQueryTopK, searcher.lastTopK)
}

func TestQueryEndpointBadJSON(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"query": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "invalid request body", out.Error)
	assert.False(t, out.Timestamp.IsZero())
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher)

	rec := doJSON(t, h, http.MethodPost, "/search", `{"query": "крепость", "language": "ru", "top_k": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "attr_001", out.Results[0].ID)
	assert.Equal(t, "крепость", out.Query)
	assert.Equal(t, "ru", out.Language)
	assert.InDelta(t, 0.042, out.SearchTime, 1e-9)
	assert.Equal(t, "semantic_focus", out.Strategy)
	assert.Equal(t, 2, searcher.lastTopK)
	assert.Equal(t, "ru", searcher.lastLang, "explicit language skips detection")
}

func TestSearchEndpointDefaultsTopK(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher)

	rec := doJSON(t, h, http.MethodPost, "/search", `{"query": "beaches"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultSearchTopK, searcher.lastTopK)
}

func TestSearchEndpointEmptyQuery(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodPost, "/search", `{"query": "   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpointFailure(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{err: errors.New("qdrant unreachable")})

	rec := doJSON(t, h, http.MethodPost, "/search", `{"query": "крепость"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "search failed", out.Error)
	assert.Contains(t, out.Detail, "qdrant unreachable")
}

func TestHealthEndpointWarning(t *testing.T) {
	queue := taskqueue.New(1, 4, time.Second)
	t.Cleanup(func() { _ = queue.Shutdown(context.Background()) })

	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()}, func(c *pipeline.Components) {
		c.Queue = queue
	})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code, "warning state still serves 200")

	var out HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, "warning", out.Status)
	assert.True(t, out.Initialized)
	assert.False(t, out.WarmedUp)
	assert.Equal(t, "ok", out.Components["bm25_engine"])
	assert.Equal(t, "ok", out.Components["task_queue"])
	assert.Equal(t, "unavailable", out.Components["vector_store"])
	assert.Contains(t, out.Issues, "vector_store not available")
}

func TestHealthEndpointNotInitialized(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	pipe := pipeline.New(cfg, pipeline.Components{})
	h := New(cfg, pipe, nil, nil).Handler()

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var out HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "not_initialized", out.Status)
	assert.False(t, out.Initialized)
}

func TestLanguagesEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/languages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out LanguagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, 18, out.Total)
	require.Len(t, out.Languages, 18)
	assert.Equal(t, LanguageInfo{Code: "en", Name: "English", NativeName: "English"}, out.Languages[0])

	byCode := make(map[string]LanguageInfo, len(out.Languages))
	for _, l := range out.Languages {
		byCode[l.Code] = l
	}
	assert.Equal(t, "Georgian", byCode["ka"].Name)
	assert.Equal(t, "ქართული", byCode["ka"].NativeName)
	assert.Equal(t, "Deutsch", byCode["de"].NativeName)
}

func TestStatsEndpoint(t *testing.T) {
	searcher := &stubSearcher{resp: attractionResults()}
	h, _ := newTestServer(t, searcher)

	doJSON(t, h, http.MethodPost, "/query", `{"query": "Расскажи о Тбилиси"}`)

	rec := doJSON(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, tamada.Version, out.SystemInfo.Version)
	assert.True(t, out.SystemInfo.Initialized)
	assert.Equal(t, int64(1), out.SearchStats.TotalSearches)
	assert.Greater(t, out.Uptime, 0.0)
	assert.True(t, out.SystemInfo.Components["search_engine"])
	assert.False(t, out.SystemInfo.Components["redis"])
}

func TestSystemEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/system", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out SystemInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	assert.Equal(t, tamada.Version, out.Info.Version)
	assert.Equal(t, "claude-3-5-haiku-latest", out.Info.Model)
	assert.Equal(t, "georgian_attractions", out.Info.Collection)
	assert.Equal(t, uint64(0), out.Info.DocumentsCount, "no vector store wired")
	assert.Equal(t, 18, out.Info.SupportedLanguages)
	assert.Contains(t, out.Info.Features, "hybrid_search")
	assert.Equal(t, "critical", out.Status, "no vector store, no queue, not warmed up")
	assert.True(t, out.System.Initialized)
	assert.False(t, out.Timestamp.IsZero())
}

func TestClearCacheEndpoint(t *testing.T) {
	h, store := newTestServer(t, &stubSearcher{resp: attractionResults()})
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, cache.NSBM25Results, "q1", "cached", time.Minute))
	require.NoError(t, store.SetJSONPermanent(ctx, cache.NSTranslationPermanent, "t1", "kept"))

	rec := doJSON(t, h, http.MethodPost, "/cache/clear", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out ClearCacheResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, 1, out.EntriesCleared)
	assert.True(t, out.TempOnly)

	_, found := cache.GetJSON[string](ctx, store, cache.NSTranslationPermanent, "t1")
	assert.True(t, found, "temp-only clear keeps permanent entries")

	rec = doJSON(t, h, http.MethodPost, "/cache/clear", `{"temp_only": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.EntriesCleared)
	assert.False(t, out.TempOnly)

	_, found = cache.GetJSON[string](ctx, store, cache.NSTranslationPermanent, "t1")
	assert.False(t, found)
}

func TestClearCacheEndpointNamespace(t *testing.T) {
	h, store := newTestServer(t, &stubSearcher{resp: attractionResults()})
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, cache.NSBM25Results, "q1", "cached", time.Minute))
	require.NoError(t, store.SetJSON(ctx, cache.NSHybridFinal, "q1", "cached", time.Minute))

	rec := doJSON(t, h, http.MethodPost, "/cache/clear", `{"namespace": "`+cache.NSBM25Results+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out ClearCacheResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.EntriesCleared)
	assert.Equal(t, cache.NSBM25Results, out.Namespace)

	_, found := cache.GetJSON[string](ctx, store, cache.NSHybridFinal, "q1")
	assert.True(t, found, "other namespaces are untouched")
}

func TestCacheStatsEndpoint(t *testing.T) {
	h, store := newTestServer(t, &stubSearcher{resp: attractionResults()})
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, cache.NSBM25Results, "q1", "cached", time.Minute))
	cache.GetJSON[string](ctx, store, cache.NSBM25Results, "q1")
	cache.GetJSON[string](ctx, store, cache.NSBM25Results, "missing")

	rec := doJSON(t, h, http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out CacheStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "memory", out.CacheType)
	assert.Empty(t, out.Namespace)
	assert.Equal(t, int64(1), out.CacheHits)
	assert.Equal(t, int64(1), out.CacheMisses)
	assert.Equal(t, 1, out.CacheSize)
	assert.Greater(t, out.MaxCacheSize, 0)

	rec = doJSON(t, h, http.MethodGet, "/cache/stats?namespace="+cache.NSBM25Results, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, cache.NSBM25Results, out.Namespace)
	assert.Equal(t, int64(1), out.CacheHits)
	assert.Equal(t, int64(1), out.CacheMisses)
	assert.Equal(t, int64(2), out.TotalRequests)
}

func TestRootEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "tamada", out["service"])
	assert.Equal(t, tamada.Version, out["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestNotFound(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "not found", out.Error)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodGet, "/query", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, &stubSearcher{resp: attractionResults()})

	rec := doJSON(t, h, http.MethodOptions, "/query", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
