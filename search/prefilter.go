package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/embedder"
	"github.com/tamadze/tamada/vectorstore"
)

// strategyFlags lists the boolean payload flags each strategy keeps.
// A missing entry (strict) keeps everything; text conditions always
// apply.
var strategyFlags = map[string]map[string]bool{
	"moderate": {
		"is_religious_site":  true,
		"is_nature_tourism":  true,
		"is_historical_site": true,
		"language":           true,
	},
	"loose": {
		"is_religious_site": true,
		"language":          true,
	},
}

// Prefilter harvests a bounded candidate id set by vector-searching
// the semantic query under the analysis metadata filter. Candidates
// feed the focused BM25 and dense channels.
type Prefilter struct {
	store    *vectorstore.Store
	embedder *embedder.Registry
	cache    *cache.Store
}

func NewPrefilter(store *vectorstore.Store, reg *embedder.Registry, cacheStore *cache.Store) *Prefilter {
	return &Prefilter{store: store, embedder: reg, cache: cacheStore}
}

// Candidates returns up to maxCandidates document ids. When the
// strategy filter yields nothing it retries loose, then unfiltered;
// the result records which rung of the ladder produced the ids.
func (p *Prefilter) Candidates(ctx context.Context, analysis *QueryAnalysis, maxCandidates int) (PrefilterResult, error) {
	start := time.Now()

	filter := buildStrategyFilter(analysis.Conditions, analysis.FilterStrategy)
	key := cache.Key(analysis.OriginalQuery, analysis.FilterStrategy, strconv.Itoa(maxCandidates), filter.CacheKey())

	if cached, ok := cache.GetJSON[PrefilterResult](ctx, p.cache, cache.NSPrefilter, key); ok {
		slog.Debug("Prefilter cache hit", "candidates", cached.Count)
		return cached, nil
	}

	vector, _, err := p.embedder.EmbedCached(ctx, analysis.SemanticQuery)
	if err != nil {
		return PrefilterResult{}, newSearchError("prefilter", "embed", "semantic query embedding failed", analysis.OriginalQuery, err)
	}

	candidates, err := p.searchIDs(ctx, vector, filter, maxCandidates)
	if err != nil {
		return PrefilterResult{}, newSearchError("prefilter", "candidate_search", "vector search failed", analysis.OriginalQuery, err)
	}

	result := PrefilterResult{
		Candidates:      candidates,
		Count:           len(candidates),
		StrategyUsed:    analysis.FilterStrategy,
		FiltersApplied:  logicalFilterCount(analysis.Conditions),
		SearchTime:      time.Since(start).Seconds(),
		FilterDetails:   filterDetails(analysis.Conditions),
		OriginalCount:   len(candidates),
		CaseInsensitive: true,
	}

	if len(candidates) == 0 && analysis.FilterStrategy != "loose" {
		slog.Warn("Prefilter found no candidates, applying fallback",
			"strategy", analysis.FilterStrategy, "query", analysis.CleanedQuery)
		result = p.fallback(ctx, analysis, vector, maxCandidates, result)
	}

	p.cache.SetJSON(ctx, cache.NSPrefilter, key, result, 0)
	slog.Debug("Prefilter completed",
		"candidates", result.Count,
		"strategy", result.StrategyUsed,
		"seconds", result.SearchTime)
	return result, nil
}

// fallback retries with the loose flag subset and, when that still
// yields fewer than two hits, with no filter at all. Errors here keep
// the original empty result so the caller can switch to the dense-only
// path.
func (p *Prefilter) fallback(ctx context.Context, analysis *QueryAnalysis, vector []float32, maxCandidates int, original PrefilterResult) PrefilterResult {
	looseFilter := buildStrategyFilter(analysis.Conditions, "loose")
	candidates, err := p.searchIDs(ctx, vector, looseFilter, maxCandidates)
	if err != nil {
		slog.Warn("Prefilter loose fallback failed", "error", err)
		return original
	}

	strategy := "loose_fallback"
	applied := 0
	if looseFilter != nil {
		applied = len(looseFilter.Must) + len(looseFilter.Should)
	}

	if len(candidates) < 2 {
		candidates, err = p.searchIDs(ctx, vector, nil, maxCandidates)
		if err != nil {
			slog.Warn("Prefilter unfiltered fallback failed", "error", err)
			return original
		}
		strategy = "no_filters_fallback"
		applied = 0
	}

	return PrefilterResult{
		Candidates:      candidates,
		Count:           len(candidates),
		StrategyUsed:    strategy,
		FiltersApplied:  applied,
		SearchTime:      original.SearchTime,
		FilterDetails:   filterDetails(analysis.Conditions),
		FallbackUsed:    true,
		OriginalCount:   original.Count,
		CaseInsensitive: true,
	}
}

func (p *Prefilter) searchIDs(ctx context.Context, vector []float32, filter *vectorstore.Filter, limit int) ([]string, error) {
	points, err := p.store.Search(ctx, vector, filter, limit, false)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(points))
	for _, pt := range points {
		ids = append(ids, pt.ID)
	}
	return ids, nil
}

// buildStrategyFilter splits conditions into text (OR) and boolean
// (AND) groups, expands text values into case variants, and keeps only
// the boolean flags the strategy allows. Returns nil when nothing
// survives.
func buildStrategyFilter(conds []vectorstore.Condition, strategy string) *vectorstore.Filter {
	var f vectorstore.Filter
	allowed := strategyFlags[strategy]

	for _, c := range conds {
		if len(c.MatchAny) > 0 {
			f.Should = append(f.Should, vectorstore.MatchAnyOf(c.Field, caseVariants(c.MatchAny)...))
			continue
		}
		if allowed == nil || allowed[c.Field] {
			f.Must = append(f.Must, c)
		}
	}
	if f.IsEmpty() {
		return nil
	}
	return &f
}

// caseVariants makes text matching case-insensitive the only way the
// keyword index allows: by enumerating lower, Title and UPPER forms.
func caseVariants(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, variant := range []string{strings.ToLower(v), titleWords(v), strings.ToUpper(v)} {
			if variant != "" && !seen[variant] {
				seen[variant] = true
				out = append(out, variant)
			}
		}
	}
	return out
}

// logicalFilterCount counts conditions the way strategy selection
// does: the entity name/tags pair is a single filter.
func logicalFilterCount(conds []vectorstore.Condition) int {
	n := 0
	for _, c := range conds {
		if len(c.MatchAny) > 0 && c.Field == "tags" {
			continue
		}
		n++
	}
	return n
}

func filterDetails(conds []vectorstore.Condition) map[string]any {
	if len(conds) == 0 {
		return nil
	}
	details := make(map[string]any, len(conds))
	for _, c := range conds {
		switch {
		case len(c.MatchAny) > 0:
			details[c.Field] = fmt.Sprintf("any(%v)", c.MatchAny)
		case c.GTE != nil || c.LTE != nil:
			gte, lte := "nil", "nil"
			if c.GTE != nil {
				gte = strconv.FormatFloat(*c.GTE, 'g', -1, 64)
			}
			if c.LTE != nil {
				lte = strconv.FormatFloat(*c.LTE, 'g', -1, 64)
			}
			details[c.Field] = fmt.Sprintf("range(gte=%s, lte=%s)", gte, lte)
		default:
			details[c.Field] = c.Match
		}
	}
	return details
}
