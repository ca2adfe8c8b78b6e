package search

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/embedder"
	"github.com/tamadze/tamada/observability"
	"github.com/tamadze/tamada/vectorstore"
)

const hybridResultTTL = time.Hour

// Engine runs the full retrieval pipeline: prefilter the corpus down
// to a candidate set, score it with the lexical and vector channels in
// parallel, and fuse the rankings. A query whose prefilter yields
// nothing degrades to a plain vector search.
type Engine struct {
	analyzer  *Analyzer
	prefilter *Prefilter
	bm25      *BM25
	dense     *Dense
	fusion    *Fusion

	store  *vectorstore.Store
	cache  *cache.Store
	tracer *observability.Tracer

	prefilterLimit int
	defaultTopK    int
	searches       atomic.Int64
}

func NewEngine(cfg config.SearchConfig, store *vectorstore.Store, reg *embedder.Registry, cacheStore *cache.Store, tracer *observability.Tracer) *Engine {
	limit := cfg.PrefilterLimit
	if limit <= 0 {
		limit = 200
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 10
	}
	return &Engine{
		analyzer:       NewAnalyzer(cfg),
		prefilter:      NewPrefilter(store, reg, cacheStore),
		bm25:           NewBM25(cfg, cacheStore),
		dense:          NewDense(store, reg, cacheStore, cfg),
		fusion:         NewFusion(cfg.RRFK),
		store:          store,
		cache:          cacheStore,
		tracer:         tracer,
		prefilterLimit: limit,
		defaultTopK:    topK,
	}
}

// Analyze classifies a query without searching. detectedLang, when
// known from an upstream detector, overrides script-based detection.
func (e *Engine) Analyze(query, detectedLang string) QueryAnalysis {
	return e.analyzer.Analyze(query, detectedLang)
}

// Search retrieves the topK best documents for the query. analysis may
// be nil, in which case the engine analyzes the query itself. The
// returned error is non-nil only when even the fallback channel failed;
// partial channel failures degrade silently.
func (e *Engine) Search(ctx context.Context, query string, analysis *QueryAnalysis, topK int) (*Response, error) {
	start := time.Now()
	e.searches.Add(1)

	if topK <= 0 {
		topK = e.defaultTopK
	}
	if analysis == nil {
		a := e.analyzer.Analyze(query, "")
		analysis = &a
	}
	slog.Info("Query analyzed",
		"intent", analysis.Intent,
		"language", analysis.Language,
		"strategy", analysis.FilterStrategy)

	key := cache.Key(query + "|" + strconv.Itoa(topK))
	if cached, ok := cache.GetJSON[Response](ctx, e.cache, cache.NSHybridFinal, key); ok {
		cached.CacheInfo = e.cacheInfo(true)
		cached.Performance.TotalTime = time.Since(start).Seconds()
		return &cached, nil
	}

	var (
		resp *Response
		err  error
	)
	switch analysis.FilterStrategy {
	case "strict", "moderate", "loose":
		resp, err = e.focusedSearch(ctx, analysis, topK)
	default:
		resp, err = e.fallbackSearch(ctx, analysis, topK)
	}
	if err != nil {
		return nil, err
	}
	resp.Performance.TotalTime = time.Since(start).Seconds()

	if len(resp.Results) > 0 {
		if serr := e.cache.SetJSON(ctx, cache.NSHybridFinal, key, resp, hybridResultTTL); serr != nil {
			slog.Warn("Hybrid result cache write failed", "error", serr)
		}
	}

	slog.Info("Search completed",
		"results", len(resp.Results),
		"total_time", resp.Performance.TotalTime,
		"strategy", resp.Performance.StrategyUsed)
	return resp, nil
}

func (e *Engine) focusedSearch(ctx context.Context, analysis *QueryAnalysis, topK int) (*Response, error) {
	pctx, pspan := e.tracer.StartStage(ctx, observability.SpanPrefilter)
	pre, err := e.prefilter.Candidates(pctx, analysis, e.prefilterLimit)
	pspan.End()
	if err != nil {
		slog.Warn("Prefilter failed, degrading to vector-only search", "error", err)
		return e.fallbackSearch(ctx, analysis, topK)
	}
	if len(pre.Candidates) == 0 {
		slog.Warn("Prefilter returned no candidates, degrading to vector-only search")
		return e.fallbackSearch(ctx, analysis, topK)
	}
	slog.Debug("Prefilter harvested candidates",
		"count", len(pre.Candidates),
		"strategy", pre.StrategyUsed,
		"search_time", pre.SearchTime)

	docs, err := e.store.Retrieve(ctx, pre.Candidates, true)
	if err != nil {
		slog.Error("Candidate document fetch failed", "error", err)
		docs = nil
	}

	var (
		bm25Results  []SearchResult
		denseResults []SearchResult
		bm25Time     float64
		denseTime    float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		cctx, span := e.tracer.StartStage(gctx, observability.SpanBM25)
		bm25Results = e.bm25.Search(cctx, analysis, docs, topK)
		span.End()
		bm25Time = time.Since(t).Seconds()
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		cctx, span := e.tracer.StartStage(gctx, observability.SpanDense)
		results, derr := e.dense.Search(cctx, analysis, pre.Candidates, topK)
		span.End()
		denseTime = time.Since(t).Seconds()
		if derr != nil {
			slog.Warn("Dense channel failed, continuing with lexical results only", "error", derr)
			return nil
		}
		denseResults = results
		return nil
	})
	_ = g.Wait()

	fstart := time.Now()
	_, fspan := e.tracer.StartStage(ctx, observability.SpanFuse)
	fused := e.fusion.Fuse(map[string][]SearchResult{
		"bm25_focused":  bm25Results,
		"dense_focused": denseResults,
	}, true, analysis, topK)
	fspan.End()

	return &Response{
		Results:  fused,
		Analysis: *analysis,
		Performance: Performance{
			PrefilterTime:       pre.SearchTime,
			BM25Time:            bm25Time,
			DenseTime:           denseTime,
			FusionTime:          time.Since(fstart).Seconds(),
			PrefilterCandidates: len(pre.Candidates),
			StrategyUsed:        analysis.FilterStrategy,
			FallbackUsed:        false,
		},
		CacheInfo: e.cacheInfo(false),
	}, nil
}

// fallbackSearch serves queries the prefilter could not narrow down.
func (e *Engine) fallbackSearch(ctx context.Context, analysis *QueryAnalysis, topK int) (*Response, error) {
	dctx, span := e.tracer.StartStage(ctx, observability.SpanDense)
	results, err := e.dense.Search(dctx, analysis, nil, topK)
	span.End()
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []SearchResult{}
	}
	return &Response{
		Results:  results,
		Analysis: *analysis,
		Performance: Performance{
			PrefilterTime: 0,
			StrategyUsed:  "fallback",
			FallbackUsed:  true,
		},
		CacheInfo: e.cacheInfo(false),
	}, nil
}

func (e *Engine) cacheInfo(hit bool) CacheInfo {
	stats := e.cache.Stats()
	return CacheInfo{
		Hit:           hit,
		BM25HitRate:   stats.Namespaces[cache.NSBM25Results].HitRatePercent,
		DenseHitRate:  stats.Namespaces[cache.NSDenseResults].HitRatePercent,
		HybridHitRate: stats.Namespaces[cache.NSHybridFinal].HitRatePercent,
	}
}

// CacheHealth grades the channel caches by their combined hit rate.
type CacheHealth struct {
	Status          string   `json:"status"`
	OverallHitRate  float64  `json:"overall_hit_rate"`
	BM25HitRate     float64  `json:"bm25_hit_rate"`
	DenseHitRate    float64  `json:"dense_hit_rate"`
	TotalRequests   int64    `json:"total_requests"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func (e *Engine) CacheHealth() CacheHealth {
	stats := e.cache.Stats()
	bm25Stats := stats.Namespaces[cache.NSBM25Results]
	denseStats := stats.Namespaces[cache.NSDenseResults]

	overall := (bm25Stats.HitRatePercent + denseStats.HitRatePercent) / 2
	status := cache.HealthLabel(overall)

	var recommendations []string
	if bm25Stats.HitRatePercent < 50 && bm25Stats.TotalRequests > 0 {
		recommendations = append(recommendations,
			"bm25 result cache hit rate is low; consider raising its TTL or warming common queries")
	}
	if denseStats.HitRatePercent < 50 && denseStats.TotalRequests > 0 {
		recommendations = append(recommendations,
			"dense result cache hit rate is low; consider raising its TTL or warming common queries")
	}

	return CacheHealth{
		Status:          status,
		OverallHitRate:  overall,
		BM25HitRate:     bm25Stats.HitRatePercent,
		DenseHitRate:    denseStats.HitRatePercent,
		TotalRequests:   bm25Stats.TotalRequests + denseStats.TotalRequests,
		Recommendations: recommendations,
	}
}

// EngineStats aggregates engine-level counters for status endpoints.
type EngineStats struct {
	TotalSearches int64            `json:"total_searches"`
	Fusion        FusionStats      `json:"fusion"`
	CacheHealth   CacheHealth      `json:"cache_health"`
	Cache         cache.StoreStats `json:"cache"`
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{
		TotalSearches: e.searches.Load(),
		Fusion:        e.fusion.Stats(),
		CacheHealth:   e.CacheHealth(),
		Cache:         e.cache.Stats(),
	}
}
