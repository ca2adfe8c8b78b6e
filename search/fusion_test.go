package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldUseCleanFusion(t *testing.T) {
	hit := []SearchResult{{DocID: "d1", Score: 1}}
	tests := []struct {
		name         string
		sources      map[string][]SearchResult
		hasPrefilter bool
		want         bool
	}{
		{"focused bm25", map[string][]SearchResult{"bm25_focused": hit}, false, true},
		{"focused dense", map[string][]SearchResult{"dense_focused": hit}, false, true},
		{"prefilter with plain channel", map[string][]SearchResult{"bm25": hit}, true, true},
		{"plain channel only", map[string][]SearchResult{"bm25": hit}, false, false},
		{"prefilter but nothing found", map[string][]SearchResult{"bm25_focused": {}, "dense_focused": {}}, true, false},
		{"nothing at all", map[string][]SearchResult{}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldUseCleanFusion(tt.sources, tt.hasPrefilter))
		})
	}
}

func TestRenormalizedWeights(t *testing.T) {
	sources := map[string][]SearchResult{
		"bm25_focused":  {},
		"dense_focused": {{DocID: "d1", Score: 1}},
	}
	weights := renormalizedWeights(sources, cleanWeights)

	// Empty channels still take part in the mix.
	assert.InDelta(t, 0.45, weights["bm25_focused"], 1e-9)
	assert.InDelta(t, 0.55, weights["dense_focused"], 1e-9)

	sources = map[string][]SearchResult{
		"bm25": {{DocID: "d1", Score: 1}},
		"web":  {{DocID: "d2", Score: 1}},
	}
	weights = renormalizedWeights(sources, cleanWeights)
	assert.InDelta(t, 0.4/0.7, weights["bm25"], 1e-9)
	assert.InDelta(t, 0.3/0.7, weights["web"], 1e-9)
}

func TestNormalizeClean(t *testing.T) {
	results := func(scores ...float64) []SearchResult {
		out := make([]SearchResult, len(scores))
		for i, s := range scores {
			out[i] = SearchResult{DocID: string(rune('a' + i)), Score: s}
		}
		return out
	}

	tests := []struct {
		name   string
		source string
		in     []SearchResult
		want   []float64
	}{
		{"bm25 rescaled", "bm25_focused", results(5, 2.5, 0), []float64{1.0, 0.6, 0}},
		{"bm25 all zero", "bm25_focused", results(0, 0), []float64{0, 0}},
		{"dense min-max", "dense_focused", results(0.9, 0.5, 0.1), []float64{1.0, 0.65, 0.3}},
		{"dense all equal", "dense_focused", results(0.5, 0.5), []float64{0.8, 0.8}},
		{"dense no positives", "dense_focused", results(0, -0.1), []float64{0, -0.1}},
		{"other source", "metadata", results(10, 5, 0), []float64{1.0, 0.55, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeClean(tt.source, tt.in)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.InDelta(t, want, got[i].Score, 1e-9, "index %d", i)
			}
		})
	}
}

func TestNormalizeCleanDoesNotMutateInput(t *testing.T) {
	in := []SearchResult{{DocID: "a", Score: 5}}
	normalizeClean("bm25_focused", in)
	assert.Equal(t, 5.0, in[0].Score)
}

func TestNormalizeLegacy(t *testing.T) {
	results := func(scores ...float64) []SearchResult {
		out := make([]SearchResult, len(scores))
		for i, s := range scores {
			out[i] = SearchResult{DocID: string(rune('a' + i)), Score: s}
		}
		return out
	}

	tests := []struct {
		name   string
		source string
		in     []SearchResult
		want   []float64
	}{
		{"bm25 log scaled", "bm25", results(60, 0), []float64{1.0, 0}},
		{"dense min-max", "dense", results(0.2, 0.7), []float64{0.1, 1.0}},
		{"dense all equal untouched", "dense", results(0.5, 0.5), []float64{0.5, 0.5}},
		{"other untouched", "metadata", results(3), []float64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacy(tt.source, tt.in)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.InDelta(t, want, got[i].Score, 1e-9, "index %d", i)
			}
		})
	}
}

func TestCleanFusionSingleChannel(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru"}
	sources := map[string][]SearchResult{
		"bm25_focused": {
			{DocID: "doc-a", Score: 4, Source: "bm25_focused"},
			{DocID: "doc-b", Score: 2, Source: "bm25_focused"},
		},
		"dense_focused": {},
	}

	fused := f.Fuse(sources, true, analysis, 10)
	require.Len(t, fused, 2)

	// doc-a: 0.45 * 1/4 * 1.0 * 10 = 1.125, tripled for rank 1, then
	// the 1.8 first-place boost.
	assert.Equal(t, "doc-a", fused[0].DocID)
	assert.InDelta(t, 6.075, fused[0].Score, 1e-9)
	require.NotNil(t, fused[0].Fusion)
	assert.Equal(t, "clean", fused[0].Fusion.FusionType)
	assert.InDelta(t, 1.8, fused[0].Fusion.BoostFactor, 1e-9)
	assert.Equal(t, []string{"bm25_focused"}, fused[0].Fusion.SourcesUsed)
	assert.Equal(t, map[string]int{"bm25_focused": 1}, fused[0].Fusion.RankInfo)

	// doc-b: 0.45 * 1/5 * 0.6 * 10 = 0.54, doubled for rank 2.
	assert.Equal(t, "doc-b", fused[1].DocID)
	assert.InDelta(t, 1.08, fused[1].Score, 1e-9)
	assert.InDelta(t, 1.0, fused[1].Fusion.BoostFactor, 1e-9)
}

func TestCleanFusionMultiChannelBoosts(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru"}
	sources := map[string][]SearchResult{
		"bm25_focused": {
			{DocID: "doc-a", Score: 4, Source: "bm25_focused"},
			{DocID: "doc-b", Score: 2, Source: "bm25_focused"},
		},
		"dense_focused": {
			{DocID: "doc-a", Score: 0.9, Source: "dense_focused"},
			{DocID: "doc-b", Score: 0.5, Source: "dense_focused"},
		},
	}

	fused := f.Fuse(sources, true, analysis, 10)
	require.Len(t, fused, 2)

	// doc-a contributions: bm25 1.125*3, dense 1.375*3 = 7.5 total.
	// Boosts: two sources (1.3), two top-3 ranks (1.5), first place
	// (1.8) = 3.51.
	assert.Equal(t, "doc-a", fused[0].DocID)
	assert.InDelta(t, 26.325, fused[0].Score, 1e-9)
	assert.InDelta(t, 3.51, fused[0].Fusion.BoostFactor, 1e-9)
	assert.Equal(t, []string{"bm25_focused", "dense_focused"}, fused[0].Fusion.SourcesUsed)
	assert.Equal(t, map[string]int{"bm25_focused": 1, "dense_focused": 1}, fused[0].Fusion.RankInfo)

	// doc-b: (0.54 + 0.33) * 2 at rank 2 = 1.74, boosted by 1.3 * 1.5.
	assert.Equal(t, "doc-b", fused[1].DocID)
	assert.InDelta(t, 3.393, fused[1].Score, 1e-9)
	assert.InDelta(t, 1.95, fused[1].Fusion.BoostFactor, 1e-9)
}

func TestCleanFusionLanguageAndEnrichmentBoosts(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru"}
	sources := map[string][]SearchResult{
		"bm25_focused": {
			{
				DocID:  "doc-a",
				Score:  4,
				Source: "bm25_focused",
				Payload: map[string]any{
					"language":          "RU",
					"is_fully_enriched": true,
				},
			},
		},
	}

	fused := f.Fuse(sources, true, analysis, 10)
	require.Len(t, fused, 1)

	// Single channel renormalizes to weight 1.0: 1/4 * 10 * 3 = 7.5,
	// then 1.2 language, 1.1 enriched, 1.8 first place.
	assert.InDelta(t, 7.5*1.2*1.1*1.8, fused[0].Score, 1e-9)
	assert.InDelta(t, 1.2*1.1*1.8, fused[0].Fusion.BoostFactor, 1e-9)
}

func TestLegacyFusion(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{
		Language:         "ru",
		Intent:           IntentFactual,
		SuggestedWeights: Weights{BM25: 0.7, Dense: 0.2, Metadata: 0.1},
	}
	sources := map[string][]SearchResult{
		"bm25": {
			{DocID: "doc-a", Score: 10, Source: "bm25"},
			{DocID: "doc-b", Score: 5, Source: "bm25"},
		},
		"dense": {
			{DocID: "doc-b", Score: 0.8, Source: "dense"},
			{DocID: "doc-c", Score: 0.4, Source: "dense"},
		},
	}

	fused := f.Fuse(sources, false, analysis, 10)
	require.Len(t, fused, 3)

	// doc-b: 0.7/5 + 0.2/4 = 0.19 beats doc-a at 0.7/4 = 0.175.
	assert.Equal(t, "doc-b", fused[0].DocID)
	assert.InDelta(t, 0.19, fused[0].Score, 1e-9)
	assert.Equal(t, "bm25", fused[0].Source)
	assert.Equal(t, "legacy", fused[0].Fusion.FusionType)
	assert.Nil(t, fused[0].Fusion.RankInfo)

	assert.Equal(t, "doc-a", fused[1].DocID)
	assert.InDelta(t, 0.175, fused[1].Score, 1e-9)

	assert.Equal(t, "doc-c", fused[2].DocID)
	assert.InDelta(t, 0.04, fused[2].Score, 1e-9)
}

func TestLegacyFusionBoosts(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{
		Language:         "ru",
		Intent:           IntentExploratory,
		Entities:         Entities{Categories: []string{"церковь"}},
		SuggestedWeights: Weights{BM25: 0.5, Dense: 0.4, Metadata: 0.1},
	}
	sources := map[string][]SearchResult{
		"bm25": {
			{
				DocID:  "doc-a",
				Score:  3,
				Source: "bm25",
				Payload: map[string]any{
					"category":              "Церковь Сиони",
					"has_georgian_entities": true,
				},
			},
		},
	}

	fused := f.Fuse(sources, false, analysis, 10)
	require.Len(t, fused, 1)

	// 0.5/4 with the exploratory georgian-entity boost (1.15) and the
	// category match boost (1.2).
	assert.InDelta(t, 0.125*1.15*1.2, fused[0].Score, 1e-9)
	assert.InDelta(t, 1.15*1.2, fused[0].Fusion.BoostFactor, 1e-9)
}

func TestFuseTieBreaking(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{
		Language:         "ru",
		SuggestedWeights: Weights{BM25: 0.5, Dense: 0.5, Metadata: 0.5},
	}

	// Equal totals: the document with the bm25 contribution wins.
	fused := f.Fuse(map[string][]SearchResult{
		"bm25":  {{DocID: "doc-b", Score: 60, Source: "bm25"}},
		"dense": {{DocID: "doc-a", Score: 0.9, Source: "dense"}},
	}, false, analysis, 10)
	require.Len(t, fused, 2)
	assert.Equal(t, "doc-b", fused[0].DocID)
	assert.Equal(t, "doc-a", fused[1].DocID)

	// Equal totals, no bm25 on either side: ids break the tie.
	fused = f.Fuse(map[string][]SearchResult{
		"metadata": {{DocID: "doc-b", Score: 3, Source: "metadata"}},
		"dense":    {{DocID: "doc-a", Score: 0.9, Source: "dense"}},
	}, false, analysis, 10)
	require.Len(t, fused, 2)
	assert.Equal(t, "doc-a", fused[0].DocID)
	assert.Equal(t, "doc-b", fused[1].DocID)
}

func TestFuseCutsToTopK(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru"}
	var results []SearchResult
	for _, id := range []string{"d1", "d2", "d3", "d4", "d5"} {
		results = append(results, SearchResult{DocID: id, Score: 1, Source: "bm25_focused"})
	}

	fused := f.Fuse(map[string][]SearchResult{"bm25_focused": results}, true, analysis, 2)
	assert.Len(t, fused, 2)
}

func TestFuseEmptySources(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru"}

	fused := f.Fuse(map[string][]SearchResult{}, false, analysis, 10)
	assert.Empty(t, fused)
}

func TestFusionStats(t *testing.T) {
	f := NewFusion(3)
	analysis := &QueryAnalysis{Language: "ru", SuggestedWeights: Weights{BM25: 0.5, Dense: 0.5}}
	hit := []SearchResult{{DocID: "d1", Score: 1, Source: "bm25_focused"}}

	f.Fuse(map[string][]SearchResult{"bm25_focused": hit}, true, analysis, 10)
	f.Fuse(map[string][]SearchResult{"bm25": hit}, false, analysis, 10)

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.CleanFusions)
	assert.Equal(t, int64(1), stats.LegacyFusions)
	assert.Equal(t, int64(2), stats.TotalFusions)
	assert.InDelta(t, 0.5, stats.CleanFusionRatio, 1e-9)
	assert.GreaterOrEqual(t, stats.AvgCleanSeconds, 0.0)
}

func TestOrderedSources(t *testing.T) {
	sources := map[string][]SearchResult{
		"web":           nil,
		"dense_focused": nil,
		"bm25_focused":  nil,
		"archive":       nil,
	}
	assert.Equal(t,
		[]string{"bm25_focused", "dense_focused", "archive", "web"},
		orderedSources(sources))
}
