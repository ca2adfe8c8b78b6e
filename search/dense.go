package search

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/embedder"
	"github.com/tamadze/tamada/vectorstore"
)

const denseResultTTL = time.Hour

// Dense runs semantic vector search, focused on the prefiltered
// candidates when available. The results cache is keyed by the dense
// query alone, not the candidate set, so one entry serves different
// prefilter outcomes; hits are re-restricted before use.
type Dense struct {
	store    *vectorstore.Store
	embedder *embedder.Registry
	cache    *cache.Store
	minScore float64
}

func NewDense(store *vectorstore.Store, reg *embedder.Registry, cacheStore *cache.Store, cfg config.SearchConfig) *Dense {
	minScore := cfg.DenseMinScore
	if minScore <= 0 {
		minScore = 0.05
	}
	return &Dense{store: store, embedder: reg, cache: cacheStore, minScore: minScore}
}

// Search ranks documents against the dense query. With candidates the
// search is restricted to those ids (source dense_focused); without,
// the whole collection is searched under the analysis metadata filter
// (source dense_standard).
func (d *Dense) Search(ctx context.Context, analysis *QueryAnalysis, candidates []string, topK int) ([]SearchResult, error) {
	query := strings.TrimSpace(analysis.DenseQuery)
	if query == "" {
		slog.Warn("Empty dense query", "query", analysis.OriginalQuery)
		return nil, nil
	}

	var metadataFilter *vectorstore.Filter
	if len(candidates) == 0 {
		metadataFilter = buildStrategyFilter(analysis.Conditions, analysis.FilterStrategy)
	}

	key := cache.Key(strings.ToLower(query) + "|" + strconv.Itoa(topK) + "|" + metadataFilter.CacheKey())
	if cached, ok := cache.GetJSON[[]SearchResult](ctx, d.cache, cache.NSDenseResults, key); ok {
		slog.Debug("Dense cache hit", "results", len(cached))
		return restrictToCandidates(cached, candidates, topK), nil
	}

	vector, _, err := d.embedder.EmbedCached(ctx, query)
	if err != nil {
		return nil, newSearchError("dense", "embed", "dense query embedding failed", analysis.OriginalQuery, err)
	}

	filter := metadataFilter
	source := "dense_standard"
	if len(candidates) > 0 {
		filter = &vectorstore.Filter{Must: []vectorstore.Condition{vectorstore.HasIDs(candidates...)}}
		source = "dense_focused"
	}

	points, err := d.store.Search(ctx, vector, filter, topK*2, true)
	if err != nil {
		return nil, newSearchError("dense", "vector_search", "qdrant search failed", analysis.OriginalQuery, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, pt := range points {
		if float64(pt.Score) > d.minScore {
			results = append(results, SearchResult{
				DocID:   pt.ID,
				Score:   float64(pt.Score),
				Source:  source,
				Payload: pt.Payload,
			})
		}
	}

	if len(results) > 0 {
		d.cache.SetJSON(ctx, cache.NSDenseResults, key, results, denseResultTTL)
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func restrictToCandidates(results []SearchResult, candidates []string, topK int) []SearchResult {
	if len(candidates) > 0 {
		allowed := make(map[string]bool, len(candidates))
		for _, id := range candidates {
			allowed[id] = true
		}
		filtered := make([]SearchResult, 0, len(results))
		for _, r := range results {
			if allowed[r.DocID] {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
