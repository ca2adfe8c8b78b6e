// Package enrichment fills gaps in corpus documents with live web data:
// Wikipedia summaries, Unsplash photos and SerpAPI practical info. Results
// are cached permanently and written back to the vector store in the
// background, so each place is fetched from the web at most once.
package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/search"
	"github.com/tamadze/tamada/taskqueue"
	"github.com/tamadze/tamada/vectorstore"
)

// descriptionFloor is the payload description character count below
// which a document is considered under-described and worth enriching.
const descriptionFloor = 300

// Result is one enrichment round for a place: Wikipedia summary text,
// image references and practical-info search hits. The zero value means
// nothing was found.
type Result struct {
	WikipediaContent string          `json:"wikipedia_content"`
	WikipediaImages  []string        `json:"wikipedia_images"`
	UnsplashImages   []UnsplashImage `json:"unsplash_images"`
	SerpResults      []SerpResult    `json:"serpapi_results"`
	Sources          []string        `json:"enrichment_sources"`
	CacheKey         string          `json:"cache_key,omitempty"`
}

// Empty reports whether no source produced anything.
func (r *Result) Empty() bool {
	return r == nil || len(r.Sources) == 0
}

// Engine coordinates the lookup ladder: permanent cache, document
// payload, negative cache, then the web.
type Engine struct {
	cfg       config.EnrichmentConfig
	cache     *cache.Store
	store     *vectorstore.Store
	persister *Persister
	wikipedia *WikipediaClient
	unsplash  *UnsplashClient
	serpapi   *SerpAPIClient
	timeout   time.Duration

	total         atomic.Int64
	permanentHits atomic.Int64
	metadataHits  atomic.Int64
	webFetches    atomic.Int64
}

// NewEngine wires the web clients from config. The queue may be nil;
// payload write-back then happens synchronously.
func NewEngine(cfg config.EnrichmentConfig, cacheStore *cache.Store, store *vectorstore.Store, queue *taskqueue.Queue) *Engine {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		cfg:       cfg,
		cache:     cacheStore,
		store:     store,
		persister: NewPersister(store, queue),
		wikipedia: NewWikipediaClient(cfg.WikipediaBaseURL, cfg.UserAgent, timeout),
		unsplash:  NewUnsplashClient(cfg.UnsplashKey, cfg.UnsplashPerPage, timeout),
		serpapi:   NewSerpAPIClient(cfg.SerpAPIKey, timeout),
		timeout:   timeout,
	}
}

// Enrich resolves enrichment for the top results. Returns nil when the
// documents are already complete enough that no enrichment is needed.
// Source failures degrade to whatever the other sources returned.
func (e *Engine) Enrich(ctx context.Context, results []search.SearchResult, lang string) (*Result, error) {
	top := results
	if len(top) > 3 {
		top = top[:3]
	}

	var needsDesc, needsImg bool
	for i := range top {
		if needsMoreDescription(&top[i]) {
			needsDesc = true
		}
		if needsMoreImages(&top[i]) {
			needsImg = true
		}
	}
	if !needsDesc && !needsImg {
		return nil, nil
	}

	names := make([]string, 0, len(top))
	for i := range top {
		if name := top[i].PayloadString("name"); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.total.Add(1)
	key := cache.Key(strings.Join(names, "|"))
	place := names[0]

	if cached, ok := cache.GetJSON[Result](ctx, e.cache, cache.NSEnrichmentPermanent, key); ok {
		e.permanentHits.Add(1)
		slog.Info("enrichment cache hit", "place", place)
		return &cached, nil
	}

	docID := top[0].DocID
	if res := e.fromDocumentPayload(ctx, docID); res != nil {
		e.metadataHits.Add(1)
		res.CacheKey = key
		if err := e.cache.SetJSONPermanent(ctx, cache.NSEnrichmentPermanent, key, res); err != nil {
			slog.Warn("failed to promote enrichment to cache", "place", place, "error", err)
		}
		slog.Info("enrichment served from document payload", "place", place, "id", docID)
		return res, nil
	}

	// A recent fetch that came back empty is memoized briefly so a hot
	// query does not hammer the web APIs.
	if cached, ok := cache.GetJSON[Result](ctx, e.cache, cache.NSEnrichmentTemp, key); ok {
		slog.Debug("enrichment negative cache hit", "place", place)
		return &cached, nil
	}

	res := e.fetch(ctx, place, lang, needsDesc, needsImg)
	res.CacheKey = key
	e.webFetches.Add(1)

	if len(res.Sources) > 0 {
		if err := e.cache.SetJSONPermanent(ctx, cache.NSEnrichmentPermanent, key, res); err != nil {
			slog.Warn("failed to cache enrichment", "place", place, "error", err)
		}
		if docID != "" {
			e.persister.PersistAsync(docID, res)
		}
		slog.Info("enrichment fetched", "place", place, "sources", res.Sources)
	} else {
		e.cache.SetJSON(ctx, cache.NSEnrichmentTemp, key, res, time.Duration(e.cfg.CacheTTL)*time.Second)
		slog.Warn("enrichment produced nothing", "place", place)
	}
	return res, nil
}

// fetch fans out to the web sources under a shared deadline. Only the
// channels the gate asked for run.
func (e *Engine) fetch(ctx context.Context, place, lang string, needsDesc, needsImg bool) *Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		wiki   *WikipediaSummary
		serp   []SerpResult
		photos []UnsplashImage
	)

	g, gctx := errgroup.WithContext(ctx)
	if needsDesc {
		g.Go(func() error {
			summary, err := e.wikipedia.Summary(gctx, place)
			if err != nil {
				slog.Warn("wikipedia lookup failed", "place", place, "error", err)
				return nil
			}
			wiki = summary
			return nil
		})
		g.Go(func() error {
			hits, err := e.serpapi.Search(gctx, place+" Georgia tourism opening hours tickets", lang, 5)
			if err != nil {
				slog.Warn("serpapi lookup failed", "place", place, "error", err)
				return nil
			}
			serp = hits
			return nil
		})
	}
	if needsImg {
		g.Go(func() error {
			imgs, err := e.unsplash.SearchPhotos(gctx, place+" Georgia tourism")
			if err != nil {
				slog.Warn("unsplash lookup failed", "place", place, "error", err)
				return nil
			}
			photos = imgs
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		WikipediaImages: []string{},
		UnsplashImages:  []UnsplashImage{},
		SerpResults:     []SerpResult{},
		Sources:         []string{},
	}
	if wiki != nil {
		res.WikipediaContent = wiki.Content
		if len(wiki.Images) > 0 {
			res.WikipediaImages = wiki.Images
		}
		if wiki.Content != "" {
			res.Sources = append(res.Sources, "wikipedia")
		}
	}
	if len(serp) > 0 {
		res.SerpResults = serp
		res.Sources = append(res.Sources, "serpapi")
	}
	if len(photos) > 0 {
		res.UnsplashImages = photos
		res.Sources = append(res.Sources, "unsplash")
	}
	return res
}

// fromDocumentPayload reads enrichment a previous run persisted onto the
// document itself. Returns nil unless the document is marked enriched.
func (e *Engine) fromDocumentPayload(ctx context.Context, id string) *Result {
	if id == "" || e.store == nil {
		return nil
	}
	points, err := e.store.Retrieve(ctx, []string{id}, true)
	if err != nil {
		slog.Warn("enrichment payload lookup failed", "id", id, "error", err)
		return nil
	}
	if len(points) == 0 || points[0].Payload == nil {
		return nil
	}
	payload := points[0].Payload
	if enriched, _ := payload["is_enriched"].(bool); !enriched {
		return nil
	}

	res := &Result{
		WikipediaContent: asString(payload["description_enriched"]),
		WikipediaImages:  asStrings(payload["images_wikipedia"]),
		UnsplashImages:   unsplashFromPayload(payload["images_unsplash"]),
		SerpResults:      []SerpResult{},
		Sources:          asStrings(payload["enrichment_sources"]),
	}
	if res.WikipediaImages == nil {
		res.WikipediaImages = []string{}
	}
	if res.UnsplashImages == nil {
		res.UnsplashImages = []UnsplashImage{}
	}
	if res.Sources == nil {
		res.Sources = []string{}
	}
	return res
}

func needsMoreDescription(r *search.SearchResult) bool {
	// Rune count, not byte length: Cyrillic and Georgian descriptions
	// run two to three bytes per character.
	return utf8.RuneCountInString(strings.TrimSpace(r.PayloadString("description"))) < descriptionFloor
}

func needsMoreImages(r *search.SearchResult) bool {
	return !r.PayloadBool("has_processed_image") && r.PayloadString("image_url") == ""
}

// EngineStats is a point-in-time counter snapshot.
type EngineStats struct {
	Total         int64 `json:"total_enrichments"`
	PermanentHits int64 `json:"permanent_cache_hits"`
	MetadataHits  int64 `json:"metadata_hits"`
	WebFetches    int64 `json:"web_fetches"`
}

// Stats reports how often each tier of the lookup ladder answered.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Total:         e.total.Load(),
		PermanentHits: e.permanentHits.Load(),
		MetadataHits:  e.metadataHits.Load(),
		WebFetches:    e.webFetches.Load(),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unsplashFromPayload(v any) []UnsplashImage {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]UnsplashImage, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		img := UnsplashImage{
			URL:          asString(m["url"]),
			Photographer: asString(m["photographer"]),
			Alt:          asString(m["alt"]),
		}
		if img.URL != "" {
			out = append(out, img)
		}
	}
	return out
}
