package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/vectorstore"
)

// fieldWeights repeat a payload field's content int(weight) times when
// composing the document token stream, so name terms count three times
// as much as description terms.
var fieldWeights = []struct {
	field  string
	weight float64
}{
	{"name", 3.0},
	{"location", 2.0},
	{"category", 1.5},
	{"description", 1.0},
}

const (
	bm25ResultTTL = time.Hour

	// Terms present in more than half the corpus get a negative raw
	// idf; they are floored to this fraction of the average idf.
	idfFloorEpsilon = 0.25
)

// BM25 scores the prefiltered candidates with Okapi BM25 over an
// ephemeral per-query corpus. Tiny candidate sets skip BM25 entirely:
// with five or fewer documents the statistics are meaningless, so a
// plain keyword containment score is used instead.
type BM25 struct {
	k1    float64
	b     float64
	cache *cache.Store
}

func NewBM25(cfg config.SearchConfig, cacheStore *cache.Store) *BM25 {
	k1, b := cfg.BM25K1, cfg.BM25B
	if k1 <= 0 {
		k1 = 1.2
	}
	if b <= 0 {
		b = 0.75
	}
	return &BM25{k1: k1, b: b, cache: cacheStore}
}

// Search ranks the candidate documents against the analysis keywords.
// It never fails: scoring problems degrade to simple keyword matching.
func (e *BM25) Search(ctx context.Context, analysis *QueryAnalysis, candidates []vectorstore.Point, topK int) []SearchResult {
	if len(candidates) == 0 || len(analysis.Keywords) == 0 {
		return nil
	}

	key := cache.Key("bm25", strings.TrimSpace(strings.ToLower(analysis.SemanticQuery)))
	if cached, ok := cache.GetJSON[[]SearchResult](ctx, e.cache, cache.NSBM25Results, key); ok {
		// The prefilter can harvest a different candidate set for the
		// same semantic query; drop cached hits that fell out of it.
		ids := make([]string, len(candidates))
		for i, doc := range candidates {
			ids[i] = doc.ID
		}
		slog.Debug("BM25 cache hit", "results", len(cached))
		return restrictToCandidates(cached, ids, topK)
	}

	corpus := make([][]string, 0, len(candidates))
	docs := make([]vectorstore.Point, 0, len(candidates))
	for _, doc := range candidates {
		tokens := tokenize(weightedText(doc.Payload), analysis.Language)
		if len(tokens) > 0 {
			corpus = append(corpus, tokens)
			docs = append(docs, doc)
		}
	}
	if len(corpus) == 0 {
		slog.Warn("BM25 corpus empty, no tokenizable candidates")
		return nil
	}

	if len(corpus) <= 5 {
		slog.Debug("Small candidate set, using simple keyword matching", "docs", len(corpus))
		return e.simpleMatch(analysis.Keywords, candidates, topK)
	}

	scores := okapiScores(corpus, analysis.Keywords, e.k1, e.b)

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})
	if len(order) > topK {
		order = order[:topK]
	}

	// Small corpora produce noisy, sometimes negative scores; keep
	// them unless clearly hopeless.
	threshold := 0.0
	if len(corpus) <= 20 {
		threshold = -0.5
	}

	results := make([]SearchResult, 0, len(order))
	for _, idx := range order {
		if scores[idx] <= threshold {
			continue
		}
		results = append(results, SearchResult{
			DocID:   docs[idx].ID,
			Score:   scores[idx],
			Source:  "bm25_focused",
			Payload: docs[idx].Payload,
		})
	}

	if len(results) == 0 {
		slog.Debug("BM25 scored nothing above threshold, falling back to simple matching")
		results = e.simpleMatch(analysis.Keywords, candidates, topK)
	}
	if len(results) > 0 {
		e.cache.SetJSON(ctx, cache.NSBM25Results, key, results, bm25ResultTTL)
	}
	return results
}

func (e *BM25) simpleMatch(keywords []string, candidates []vectorstore.Point, topK int) []SearchResult {
	var results []SearchResult
	for _, doc := range candidates {
		text := strings.ToLower(weightedText(doc.Payload))
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		results = append(results, SearchResult{
			DocID:   doc.ID,
			Score:   float64(matches) / float64(len(keywords)) * 10.0,
			Source:  "bm25_simple_match",
			Payload: doc.Payload,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func weightedText(payload map[string]any) string {
	var parts []string
	for _, fw := range fieldWeights {
		content, _ := payload[fw.field].(string)
		if content == "" {
			continue
		}
		for i := 0; i < int(fw.weight); i++ {
			parts = append(parts, content)
		}
	}
	return strings.Join(parts, " ")
}

// okapiScores computes Okapi BM25 scores for the query terms over the
// tokenized corpus. Raw idf is ln(N-df+0.5) - ln(df+0.5); negative
// values are floored to idfFloorEpsilon times the average.
func okapiScores(corpus [][]string, terms []string, k1, b float64) []float64 {
	n := len(corpus)
	termFreqs := make([]map[string]int, n)
	docFreq := make(map[string]int)
	totalLen := 0

	for i, tokens := range corpus {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		termFreqs[i] = tf
		totalLen += len(tokens)
		for t := range tf {
			docFreq[t]++
		}
	}
	avgLen := float64(totalLen) / float64(n)

	idf := make(map[string]float64, len(docFreq))
	var idfSum float64
	var negative []string
	for term, df := range docFreq {
		v := math.Log(float64(n)-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	if len(negative) > 0 && len(idf) > 0 {
		floor := idfFloorEpsilon * idfSum / float64(len(idf))
		for _, term := range negative {
			idf[term] = floor
		}
	}

	scores := make([]float64, n)
	for _, term := range terms {
		w, ok := idf[term]
		if !ok {
			continue
		}
		for i := range corpus {
			tf := float64(termFreqs[i][term])
			if tf == 0 {
				continue
			}
			docLen := float64(len(corpus[i]))
			scores[i] += w * (tf * (k1 + 1)) / (tf + k1*(1-b+b*docLen/avgLen))
		}
	}
	return scores
}
