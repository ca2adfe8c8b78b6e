package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/tamadze/tamada"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/pipeline"
)

// Bounds from the public API contract: /query answers with at most 20
// sources, /search returns at most 50 raw results.
const (
	maxQueryTopK  = 20
	maxSearchTopK = 50

	defaultSearchTopK = 10
)

var serviceFeatures = []string{
	"hybrid_search",
	"multilingual_answers",
	"query_translation",
	"web_enrichment",
	"conversation_memory",
	"two_tier_cache",
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "tamada",
		"message": "Georgian attractions question answering",
		"version": tamada.Version,
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// handleQuery answers one question. The response is always the full
// envelope with HTTP 200; degraded answers carry metadata.error_type
// instead of an error status.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Absent JSON fields keep these defaults, so enrichment stays on
	// unless the caller turns it off.
	req := pipeline.Request{EnableEnrichment: true}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TopK > maxQueryTopK {
		req.TopK = maxQueryTopK
	}

	resp := s.pipe.AnswerQuestion(r.Context(), req)

	status := "success"
	if resp.Metadata.ErrorType != "" {
		status = "error"
	}
	s.metrics.RecordRequest(r.Context(), "/query", resp.Language, status, time.Since(start))

	respondJSON(w, http.StatusOK, resp)
}

// handleSearch runs retrieval only. Unlike /query this is an
// operational endpoint, so failures are plain HTTP errors.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "invalid request body", "query is empty")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}

	sources, raw, err := s.pipe.SearchDocuments(r.Context(), req.Query, req.Language, topK)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{
		Results:    sources,
		Total:      len(sources),
		Query:      req.Query,
		Language:   raw.Analysis.Language,
		SearchTime: raw.Performance.TotalTime,
		Strategy:   raw.Performance.StrategyUsed,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.pipe.Health()

	components := make(map[string]string, len(h.Components))
	for name, up := range h.Components {
		if up {
			components[name] = "ok"
		} else {
			components[name] = "unavailable"
		}
	}

	status := http.StatusOK
	if h.Status == "critical" || h.Status == "not_initialized" {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, HealthResponse{
		Status:      h.Status,
		Timestamp:   h.Timestamp,
		Components:  components,
		Issues:      h.Issues,
		Initialized: h.Initialized,
		WarmedUp:    h.WarmedUp,
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := make([]LanguageInfo, 0, len(multilingual.SupportedLanguages))
	for _, code := range multilingual.SupportedLanguages {
		langs = append(langs, LanguageInfo{
			Code:       code,
			Name:       multilingual.LanguageName(code),
			NativeName: multilingual.NativeLanguageName(code),
		})
	}
	respondJSON(w, http.StatusOK, LanguagesResponse{Languages: langs, Total: len(langs)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.pipe.SystemStatus()

	respondJSON(w, http.StatusOK, StatsResponse{
		CacheStats:  st.CacheStats,
		SearchStats: st.SearchStats,
		SystemInfo: RuntimeInfo{
			Version:       tamada.Version,
			Initialized:   st.Initialized,
			WarmedUp:      st.WarmedUp,
			Components:    st.Components,
			Queue:         st.QueueStats,
			Conversations: st.Conversations,
			Translation:   st.Translation,
		},
		Uptime: st.UptimeSeconds,
	})
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SystemInfoResponse{
		Info: SystemInfo{
			Version:            tamada.Version,
			Model:              s.model,
			Collection:         s.collection,
			DocumentsCount:     s.pipe.DocumentCount(r.Context()),
			SupportedLanguages: len(multilingual.SupportedLanguages),
			Features:           serviceFeatures,
		},
		Status:    s.pipe.Health().Status,
		System:    s.pipe.SystemStatus(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	req := ClearCacheRequest{TempOnly: true}
	if !decodeJSON(w, r, &req) {
		return
	}

	cleared, err := s.pipe.ClearCache(r.Context(), req.Namespace, req.TempOnly)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cache clear failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ClearCacheResponse{
		Status:         "ok",
		EntriesCleared: cleared,
		Namespace:      req.Namespace,
		TempOnly:       req.TempOnly,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st := s.pipe.SystemStatus().CacheStats

	cacheType := "memory"
	if st.RedisConnected {
		cacheType = "redis+memory"
	}

	resp := CacheStatsResponse{
		CacheType:     cacheType,
		CacheSize:     st.MemoryCacheSize,
		MaxCacheSize:  st.MemoryCacheMax,
		CacheHits:     st.Hits,
		CacheMisses:   st.Misses,
		HitRate:       st.HitRatePercent,
		TotalRequests: st.TotalRequests,
	}

	if ns := r.URL.Query().Get("namespace"); ns != "" {
		nsStats := st.Namespaces[ns]
		resp.Namespace = ns
		resp.CacheHits = nsStats.Hits
		resp.CacheMisses = nsStats.Misses
		resp.HitRate = nsStats.HitRatePercent
		resp.TotalRequests = nsStats.TotalRequests
	}

	respondJSON(w, http.StatusOK, resp)
}
