// Package search implements the hybrid retrieval core: query analysis,
// metadata prefiltering, BM25 and dense scoring over a shared candidate
// set, and reciprocal rank fusion of the channel results.
package search

import (
	"fmt"

	"github.com/tamadze/tamada/vectorstore"
)

// Intent classifies what the user is trying to do with a query.
type Intent string

const (
	IntentFactual      Intent = "factual"
	IntentExploratory  Intent = "exploratory"
	IntentComparative  Intent = "comparative"
	IntentNavigational Intent = "navigational"
	IntentFiltered     Intent = "filtered"
)

// Weights are the channel mixing weights the analyzer suggests for a
// query. They sum to 1.0 for every intent profile.
type Weights struct {
	BM25     float64 `json:"bm25"`
	Dense    float64 `json:"dense"`
	Metadata float64 `json:"metadata"`
}

// Entities groups the places and attraction categories recognized in a
// query, normalized to their canonical lowercase form.
type Entities struct {
	Locations  []string `json:"locations"`
	Categories []string `json:"categories"`
}

// QueryAnalysis is everything the analyzer derives from one raw query.
// It is immutable once built; downstream engines only read it.
type QueryAnalysis struct {
	OriginalQuery    string                  `json:"original_query"`
	CleanedQuery     string                  `json:"cleaned_query"`
	Language         string                  `json:"language"`
	DetectedLanguage string                  `json:"detected_language"`
	Intent           Intent                  `json:"intent_type"`
	Entities         Entities                `json:"entities"`
	Complexity       string                  `json:"query_complexity"`
	SuggestedWeights Weights                 `json:"suggested_weights"`
	EnhancedQuery    string                  `json:"enhanced_query"`
	ImplicitFilters  map[string]bool         `json:"implicit_filters,omitempty"`
	SemanticQuery    string                  `json:"semantic_query"`
	Keywords         []string                `json:"keywords"`
	Conditions       []vectorstore.Condition `json:"qdrant_filters,omitempty"`
	FilterStrategy   string                  `json:"filter_strategy"`
	DenseQuery       string                  `json:"dense_query"`
}

// HasGeorgianEntities reports whether the query mentions a known place.
func (a *QueryAnalysis) HasGeorgianEntities() bool {
	return len(a.Entities.Locations) > 0
}

// SearchResult is one scored document from a retrieval channel or from
// fusion. Payload is the raw Qdrant payload; Fusion is set only on
// fused results.
type SearchResult struct {
	DocID   string         `json:"doc_id"`
	Score   float64        `json:"score"`
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload,omitempty"`
	Fusion  *FusionInfo    `json:"fusion_info,omitempty"`
}

// Name resolves a display name: payload name, then title, then a
// truncated document id.
func (r *SearchResult) Name() string {
	if v, ok := r.Payload["name"].(string); ok && v != "" {
		return v
	}
	if v, ok := r.Payload["title"].(string); ok && v != "" {
		return v
	}
	id := r.DocID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Document %s...", id)
}

// Description returns the payload description, empty when absent.
func (r *SearchResult) Description() string {
	v, _ := r.Payload["description"].(string)
	return v
}

// PayloadString returns an arbitrary string payload field.
func (r *SearchResult) PayloadString(field string) string {
	v, _ := r.Payload[field].(string)
	return v
}

// PayloadBool returns an arbitrary boolean payload field.
func (r *SearchResult) PayloadBool(field string) bool {
	v, _ := r.Payload[field].(bool)
	return v
}

// FusionInfo explains how a fused score was assembled, per source.
type FusionInfo struct {
	SourceScores map[string]float64 `json:"source_scores"`
	BoostFactor  float64            `json:"boost_factor"`
	SourcesUsed  []string           `json:"sources_used"`
	FusionType   string             `json:"fusion_type"`
	RankInfo     map[string]int     `json:"rank_info,omitempty"`
}

// PrefilterResult reports the candidate harvest for one query.
type PrefilterResult struct {
	Candidates      []string       `json:"candidates"`
	Count           int            `json:"count"`
	StrategyUsed    string         `json:"strategy_used"`
	FiltersApplied  int            `json:"filters_applied"`
	SearchTime      float64        `json:"search_time"`
	FilterDetails   map[string]any `json:"filter_details,omitempty"`
	FallbackUsed    bool           `json:"fallback_used"`
	OriginalCount   int            `json:"original_count"`
	CaseInsensitive bool           `json:"case_insensitive"`
}

// Performance holds per-stage wall times in seconds for one search.
type Performance struct {
	TotalTime           float64 `json:"total_time"`
	PrefilterTime       float64 `json:"prefilter_time"`
	BM25Time            float64 `json:"bm25_time"`
	DenseTime           float64 `json:"dense_time"`
	FusionTime          float64 `json:"fusion_time"`
	PrefilterCandidates int     `json:"prefilter_candidates"`
	StrategyUsed        string  `json:"strategy_used"`
	FallbackUsed        bool    `json:"fallback_used"`
}

// CacheInfo summarizes result-cache behaviour for one search response.
type CacheInfo struct {
	Hit           bool    `json:"hit"`
	BM25HitRate   float64 `json:"bm25_hit_rate"`
	DenseHitRate  float64 `json:"dense_hit_rate"`
	HybridHitRate float64 `json:"hybrid_hit_rate"`
}

// Response is the hybrid engine's complete answer for one query.
type Response struct {
	Results     []SearchResult `json:"results"`
	Analysis    QueryAnalysis  `json:"query_analysis"`
	Performance Performance    `json:"performance"`
	CacheInfo   CacheInfo      `json:"cache_info"`
}

// SearchError identifies which retrieval component failed and during
// which operation, so pipeline callers can report the broken stage.
type SearchError struct {
	Component string
	Operation string
	Message   string
	Query     string
	Err       error
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.Component, e.Operation, e.Message)
	if e.Query != "" {
		msg += fmt.Sprintf(" (query %q)", truncate(e.Query, 60))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SearchError) Unwrap() error { return e.Err }

func newSearchError(component, operation, message, query string, err error) *SearchError {
	return &SearchError{
		Component: component,
		Operation: operation,
		Message:   message,
		Query:     query,
		Err:       err,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
