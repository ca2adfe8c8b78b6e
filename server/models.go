package server

import (
	"time"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/conversation"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/pipeline"
	"github.com/tamadze/tamada/search"
	"github.com/tamadze/tamada/taskqueue"
)

// HealthResponse is the GET /health body. Component states are strings
// ("ok" / "unavailable") so new intermediate states can be added without
// breaking clients.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Components  map[string]string `json:"components"`
	Issues      []string          `json:"issues"`
	Initialized bool              `json:"initialized"`
	WarmedUp    bool              `json:"warmed_up"`
}

// SearchRequest is the POST /search body: retrieval only, no answer
// generation.
type SearchRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// SearchResponse is the POST /search body.
type SearchResponse struct {
	Results    []pipeline.Source `json:"results"`
	Total      int               `json:"total"`
	Query      string            `json:"query"`
	Language   string            `json:"language"`
	SearchTime float64           `json:"search_time"`
	Strategy   string            `json:"strategy_used,omitempty"`
}

// StatsResponse aggregates runtime statistics for GET /stats.
type StatsResponse struct {
	CacheStats  cache.StoreStats   `json:"cache_stats"`
	SearchStats search.EngineStats `json:"search_stats"`
	SystemInfo  RuntimeInfo        `json:"system_info"`
	Uptime      float64            `json:"uptime"`
}

// RuntimeInfo is the system_info block of StatsResponse.
type RuntimeInfo struct {
	Version       string             `json:"version"`
	Initialized   bool               `json:"initialized"`
	WarmedUp      bool               `json:"warmed_up"`
	Components    map[string]bool    `json:"components"`
	Queue         taskqueue.Stats    `json:"queue"`
	Conversations conversation.Stats `json:"conversations"`
	Translation   multilingual.Stats `json:"translation"`
}

// ClearCacheRequest is the POST /cache/clear body. TempOnly defaults to
// true; permanent translations and enrichment are only dropped when the
// caller asks for it explicitly.
type ClearCacheRequest struct {
	Namespace string `json:"namespace,omitempty"`
	TempOnly  bool   `json:"temp_only"`
}

// ClearCacheResponse reports what a cache clear actually removed.
type ClearCacheResponse struct {
	Status         string `json:"status"`
	EntriesCleared int    `json:"entries_cleared"`
	Namespace      string `json:"namespace,omitempty"`
	TempOnly       bool   `json:"temp_only"`
}

// CacheStatsResponse is the GET /cache/stats body. Without a namespace
// parameter the numbers are store-wide; with one they cover that
// namespace only and the size fields stay store-wide.
type CacheStatsResponse struct {
	CacheType     string  `json:"cache_type"`
	Namespace     string  `json:"namespace,omitempty"`
	CacheSize     int     `json:"cache_size"`
	MaxCacheSize  int     `json:"max_cache_size"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name,omitempty"`
}

// LanguagesResponse is the GET /languages body.
type LanguagesResponse struct {
	Languages []LanguageInfo `json:"languages"`
	Total     int            `json:"total"`
}

// SystemInfo is the static identity block of GET /system.
type SystemInfo struct {
	Version            string   `json:"version"`
	Model              string   `json:"model"`
	Collection         string   `json:"collection"`
	DocumentsCount     uint64   `json:"documents_count"`
	SupportedLanguages int      `json:"supported_languages"`
	Features           []string `json:"features"`
}

// SystemInfoResponse is the GET /system body: static identity plus the
// live component/stats snapshot.
type SystemInfoResponse struct {
	Info      SystemInfo            `json:"info"`
	Status    string                `json:"status"`
	System    pipeline.SystemStatus `json:"system"`
	Timestamp time.Time             `json:"timestamp"`
}

// ErrorResponse is the body for transport-level failures (malformed
// JSON, unknown routes). Answer-level degradation never uses it; the
// /query envelope stays 200 with its own error fields.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Detail    string    `json:"detail,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
