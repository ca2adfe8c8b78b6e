package search

import (
	"log/slog"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Clean-mode source weights. Focused channels earn slightly more than
// their standalone counterparts because their inputs were already
// vetted by the prefilter.
var cleanWeights = map[string]float64{
	"bm25":          0.4,
	"bm25_focused":  0.45,
	"dense":         0.5,
	"dense_focused": 0.55,
	"metadata":      0.1,
}

const defaultSourceWeight = 0.3

var preferredSourceOrder = []string{"bm25", "bm25_focused", "dense", "dense_focused", "metadata"}

// Fusion merges per-channel rankings with reciprocal rank fusion.
// Prefiltered (focused) inputs go through the clean pipeline with
// per-source normalization, rank amplification and aggressive boosts;
// anything else takes the flat legacy path.
type Fusion struct {
	k float64

	mu          sync.Mutex
	cleanCount  int64
	legacyCount int64
	avgClean    float64
	avgLegacy   float64
}

func NewFusion(k int) *Fusion {
	if k <= 0 {
		k = 3
	}
	return &Fusion{k: float64(k)}
}

// FusionStats reports how often each pipeline ran and how long it took
// on average, in seconds.
type FusionStats struct {
	CleanFusions     int64   `json:"clean_fusions"`
	LegacyFusions    int64   `json:"legacy_fusions"`
	TotalFusions     int64   `json:"total_fusions"`
	CleanFusionRatio float64 `json:"clean_fusion_ratio"`
	AvgCleanSeconds  float64 `json:"avg_clean_time"`
	AvgLegacySeconds float64 `json:"avg_legacy_time"`
}

// Fuse merges the source rankings into one list of at most topK
// results. hasPrefilter marks that the inputs came from a prefiltered
// candidate set even if a focused channel returned nothing.
func (f *Fusion) Fuse(sources map[string][]SearchResult, hasPrefilter bool, analysis *QueryAnalysis, topK int) []SearchResult {
	start := time.Now()
	clean := shouldUseCleanFusion(sources, hasPrefilter)

	var fused []SearchResult
	if clean {
		fused = f.cleanFusion(sources, analysis, topK)
	} else {
		fused = f.legacyFusion(sources, analysis, topK)
	}
	f.record(clean, time.Since(start).Seconds())

	mode := "legacy"
	if clean {
		mode = "clean"
	}
	slog.Debug("Fusion completed", "mode", mode, "results", len(fused))
	return fused
}

func shouldUseCleanFusion(sources map[string][]SearchResult, hasPrefilter bool) bool {
	focused := len(sources["bm25_focused"]) > 0 || len(sources["dense_focused"]) > 0
	hasMain := false
	for _, s := range []string{"bm25", "bm25_focused", "dense", "dense_focused"} {
		if len(sources[s]) > 0 {
			hasMain = true
			break
		}
	}
	return (focused || hasPrefilter) && hasMain
}

type docScore struct {
	total        float64
	sourceScores map[string]float64
	rankInfo     map[string]int
	result       SearchResult
	boost        float64
}

func (f *Fusion) cleanFusion(sources map[string][]SearchResult, analysis *QueryAnalysis, topK int) []SearchResult {
	order := orderedSources(sources)
	weights := renormalizedWeights(sources, cleanWeights)

	docs := make(map[string]*docScore)
	for _, source := range order {
		results := normalizeClean(source, sources[source])
		weight := weights[source]

		for i, r := range results {
			rank := i + 1
			contribution := weight * (1.0 / (f.k + float64(rank))) * r.Score * 10.0
			switch rank {
			case 1:
				contribution *= 3.0
			case 2:
				contribution *= 2.0
			case 3:
				contribution *= 1.5
			}

			d := docs[r.DocID]
			if d == nil {
				d = &docScore{
					sourceScores: make(map[string]float64),
					rankInfo:     make(map[string]int),
					result:       r,
				}
				docs[r.DocID] = d
			}
			d.total += contribution
			d.sourceScores[source] = contribution
			d.rankInfo[source] = rank
		}
	}

	applyCleanBoosts(docs, analysis)
	return assemble(docs, topK, "clean", order)
}

func (f *Fusion) legacyFusion(sources map[string][]SearchResult, analysis *QueryAnalysis, topK int) []SearchResult {
	order := orderedSources(sources)
	w := analysis.SuggestedWeights
	weights := map[string]float64{"bm25": w.BM25, "dense": w.Dense, "metadata": w.Metadata}

	docs := make(map[string]*docScore)
	for _, source := range order {
		results := normalizeLegacy(source, sources[source])
		weight := weights[source]

		for i, r := range results {
			rank := i + 1
			contribution := weight / (f.k + float64(rank))

			d := docs[r.DocID]
			if d == nil {
				d = &docScore{
					sourceScores: make(map[string]float64),
					result:       r,
				}
				docs[r.DocID] = d
			}
			d.total += contribution
			d.sourceScores[source] = contribution
		}
	}

	applyLegacyBoosts(docs, analysis)
	return assemble(docs, topK, "legacy", order)
}

// normalizeClean rescales a channel's scores into a band that keeps
// discrimination: bm25 to [0.2,1.0], dense min-max to [0.3,1.0] (0.8
// when all equal), anything else to [0.1,1.0]. Non-positive scores
// drop to zero. The input slice is not modified.
func normalizeClean(source string, results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	copy(out, results)

	switch {
	case strings.Contains(source, "bm25"):
		maxScore := out[0].Score
		for _, r := range out[1:] {
			if r.Score > maxScore {
				maxScore = r.Score
			}
		}
		for i := range out {
			if out[i].Score > 0 {
				out[i].Score = 0.2 + 0.8*(out[i].Score/maxScore)
			} else {
				out[i].Score = 0
			}
		}

	case strings.Contains(source, "dense"):
		var minPos, maxPos float64
		seen := false
		for _, r := range out {
			if r.Score <= 0 {
				continue
			}
			if !seen {
				minPos, maxPos = r.Score, r.Score
				seen = true
				continue
			}
			if r.Score < minPos {
				minPos = r.Score
			}
			if r.Score > maxPos {
				maxPos = r.Score
			}
		}
		if !seen {
			return out
		}
		for i := range out {
			switch {
			case out[i].Score <= 0:
				out[i].Score = 0
			case maxPos > minPos:
				out[i].Score = 0.3 + 0.7*((out[i].Score-minPos)/(maxPos-minPos))
			default:
				out[i].Score = 0.8
			}
		}

	default:
		var maxPos float64
		for _, r := range out {
			if r.Score > maxPos {
				maxPos = r.Score
			}
		}
		if maxPos == 0 {
			return out
		}
		for i := range out {
			if out[i].Score > 0 {
				out[i].Score = 0.1 + 0.9*(out[i].Score/maxPos)
			} else {
				out[i].Score = 0
			}
		}
	}
	return out
}

// normalizeLegacy applies the older dampening: log scaling for bm25
// and a min-max squeeze for dense. The input slice is not modified.
func normalizeLegacy(source string, results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	copy(out, results)

	switch {
	case strings.Contains(source, "bm25"):
		denom := math.Log(61)
		for i := range out {
			if out[i].Score > 0 {
				out[i].Score = math.Log(1+out[i].Score) / denom
			} else {
				out[i].Score = 0
			}
		}
	case strings.Contains(source, "dense"):
		minScore, maxScore := out[0].Score, out[0].Score
		for _, r := range out[1:] {
			if r.Score < minScore {
				minScore = r.Score
			}
			if r.Score > maxScore {
				maxScore = r.Score
			}
		}
		if maxScore > minScore {
			for i := range out {
				out[i].Score = (out[i].Score-minScore)/(maxScore-minScore)*0.9 + 0.1
			}
		}
	}
	return out
}

func applyCleanBoosts(docs map[string]*docScore, analysis *QueryAnalysis) {
	queryLang := strings.ToUpper(analysis.Language)
	for _, d := range docs {
		boost := 1.0

		if d.result.PayloadString("language") == queryLang {
			boost *= 1.2
		}
		if n := len(d.sourceScores); n >= 2 {
			boost *= 1.0 + 0.3*float64(n-1)
		}

		topRanks, firstPlaces := 0, 0
		for _, rank := range d.rankInfo {
			if rank <= 3 {
				topRanks++
			}
			if rank == 1 {
				firstPlaces++
			}
		}
		if topRanks >= 2 {
			boost *= 1.5
		}
		if d.result.PayloadBool("is_fully_enriched") {
			boost *= 1.1
		}
		if firstPlaces >= 1 {
			boost *= 1.8
		}

		d.total *= boost
		d.boost = boost
	}
}

func applyLegacyBoosts(docs map[string]*docScore, analysis *QueryAnalysis) {
	queryLang := strings.ToUpper(analysis.Language)
	for _, d := range docs {
		boost := 1.0

		if d.result.PayloadString("language") == queryLang {
			boost *= 1.1
		}
		if analysis.Intent == IntentExploratory && d.result.PayloadBool("has_georgian_entities") {
			boost *= 1.15
		}
		if d.result.PayloadBool("is_fully_enriched") {
			boost *= 1.03
		}
		if len(analysis.Entities.Categories) > 0 {
			docCategory := strings.ToLower(d.result.PayloadString("category"))
			for _, cat := range analysis.Entities.Categories {
				if strings.Contains(docCategory, cat) {
					boost *= 1.2
					break
				}
			}
		}

		d.total *= boost
		d.boost = boost
	}
}

type fusedEntry struct {
	id string
	d  *docScore
}

// assemble orders documents by fused score with deterministic
// tie-breaking: multi-source documents first, then the stronger bm25
// contribution, then the lexically smaller id.
func assemble(docs map[string]*docScore, topK int, fusionType string, sourceOrder []string) []SearchResult {
	entries := make([]fusedEntry, 0, len(docs))
	for id, d := range docs {
		entries = append(entries, fusedEntry{id, d})
	}
	sort.Slice(entries, func(i, j int) bool { return lessFused(entries[i], entries[j]) })

	if len(entries) > topK {
		entries = entries[:topK]
	}

	final := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		sourcesUsed := make([]string, 0, len(e.d.sourceScores))
		for _, s := range sourceOrder {
			if _, ok := e.d.sourceScores[s]; ok {
				sourcesUsed = append(sourcesUsed, s)
			}
		}
		boost := e.d.boost
		if boost == 0 {
			boost = 1.0
		}
		final = append(final, SearchResult{
			DocID:   e.id,
			Score:   e.d.total,
			Source:  e.d.result.Source,
			Payload: e.d.result.Payload,
			Fusion: &FusionInfo{
				SourceScores: e.d.sourceScores,
				BoostFactor:  boost,
				SourcesUsed:  sourcesUsed,
				FusionType:   fusionType,
				RankInfo:     e.d.rankInfo,
			},
		})
	}
	return final
}

func lessFused(a, b fusedEntry) bool {
	if a.d.total != b.d.total {
		return a.d.total > b.d.total
	}
	aMulti, bMulti := len(a.d.sourceScores) >= 2, len(b.d.sourceScores) >= 2
	if aMulti != bMulti {
		return aMulti
	}
	aBM, bBM := bm25Contribution(a.d), bm25Contribution(b.d)
	if aBM != bBM {
		return aBM > bBM
	}
	return a.id < b.id
}

func bm25Contribution(d *docScore) float64 {
	var sum float64
	for source, score := range d.sourceScores {
		if strings.Contains(source, "bm25") {
			sum += score
		}
	}
	return sum
}

// orderedSources returns the map keys in a stable order so fusion
// output never depends on map iteration.
func orderedSources(sources map[string][]SearchResult) []string {
	out := make([]string, 0, len(sources))
	for _, s := range preferredSourceOrder {
		if _, ok := sources[s]; ok {
			out = append(out, s)
		}
	}
	var rest []string
	for s := range sources {
		if !slices.Contains(preferredSourceOrder, s) {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// renormalizedWeights assigns every present source its base weight
// (0.3 when unknown) and rescales the set to sum to one. Sources with
// empty result lists still participate, matching how the channel set,
// not the hit count, defines the mix.
func renormalizedWeights(sources map[string][]SearchResult, base map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(sources))
	var total float64
	for s := range sources {
		w, ok := base[s]
		if !ok {
			w = defaultSourceWeight
		}
		weights[s] = w
		total += w
	}
	if total > 0 {
		for s := range weights {
			weights[s] /= total
		}
	}
	return weights
}

func (f *Fusion) record(clean bool, seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if clean {
		f.cleanCount++
		f.avgClean += (seconds - f.avgClean) / float64(f.cleanCount)
	} else {
		f.legacyCount++
		f.avgLegacy += (seconds - f.avgLegacy) / float64(f.legacyCount)
	}
}

// Stats returns fusion mode counters and running average durations.
func (f *Fusion) Stats() FusionStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.cleanCount + f.legacyCount
	stats := FusionStats{
		CleanFusions:     f.cleanCount,
		LegacyFusions:    f.legacyCount,
		TotalFusions:     total,
		AvgCleanSeconds:  f.avgClean,
		AvgLegacySeconds: f.avgLegacy,
	}
	if total > 0 {
		stats.CleanFusionRatio = float64(f.cleanCount) / float64(total)
	}
	return stats
}
