// Package pipeline orchestrates one answered question end to end:
// language detection, query translation, conversation history, hybrid
// retrieval, optional web enrichment, context assembly and answer
// generation. Every outcome is an HTTP-ready envelope; failures
// degrade to localized fallback texts instead of errors.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tamadze/tamada/cache"
	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/conversation"
	"github.com/tamadze/tamada/embedder"
	"github.com/tamadze/tamada/enrichment"
	"github.com/tamadze/tamada/llm"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/observability"
	"github.com/tamadze/tamada/querylog"
	"github.com/tamadze/tamada/search"
	"github.com/tamadze/tamada/taskqueue"
	"github.com/tamadze/tamada/vectorstore"
)

const (
	maxQueryRunes      = 2000
	translationTimeout = 5 * time.Second
	enrichmentTimeout  = 10 * time.Second
	translationService = "gemini"
	defaultTopK        = 5
)

// Searcher runs hybrid retrieval. Satisfied by *search.Engine.
type Searcher interface {
	Analyze(query, detectedLang string) search.QueryAnalysis
	Search(ctx context.Context, query string, analysis *search.QueryAnalysis, topK int) (*search.Response, error)
	Stats() search.EngineStats
	CacheHealth() search.CacheHealth
}

// Enricher fetches live web context for retrieved documents.
// Satisfied by *enrichment.Engine; leave nil to disable enrichment.
type Enricher interface {
	Enrich(ctx context.Context, results []search.SearchResult, lang string) (*enrichment.Result, error)
}

// Components are the wired collaborators. Search and Generator are
// required for answering; everything else degrades gracefully when
// nil.
type Components struct {
	Detector      *multilingual.Detector
	Translator    *multilingual.Translator
	Search        Searcher
	Enricher      Enricher
	Generator     *llm.Generator
	Conversations *conversation.Store
	Cache         *cache.Store
	Queue         *taskqueue.Queue
	QueryLog      *querylog.Logger
	Vectors       *vectorstore.Store
	Embedders     *embedder.Registry
	Metrics       *observability.Metrics
	Tracer        *observability.Tracer
}

// Pipeline answers tourism questions over the attraction corpus.
type Pipeline struct {
	topK         int
	windowTokens int

	detector      *multilingual.Detector
	translator    *multilingual.Translator
	search        Searcher
	enricher      Enricher
	generator     *llm.Generator
	conversations *conversation.Store
	cache         *cache.Store
	queue         *taskqueue.Queue
	querylog      *querylog.Logger
	vectors       *vectorstore.Store
	embedders     *embedder.Registry
	metrics       *observability.Metrics
	tracer        *observability.Tracer

	started time.Time

	warmupMu sync.Mutex
	warmedUp atomic.Bool
	report   WarmupReport
}

// New wires a pipeline from configuration and components.
func New(cfg *config.Config, c Components) *Pipeline {
	topK := defaultTopK
	windowTokens := 2000
	if cfg != nil {
		if cfg.Search.TopK > 0 {
			topK = cfg.Search.TopK
		}
		if cfg.Conversation.WindowTokens > 0 {
			windowTokens = cfg.Conversation.WindowTokens
		}
	}
	return &Pipeline{
		topK:          topK,
		windowTokens:  windowTokens,
		detector:      c.Detector,
		translator:    c.Translator,
		search:        c.Search,
		enricher:      c.Enricher,
		generator:     c.Generator,
		conversations: c.Conversations,
		cache:         c.Cache,
		queue:         c.Queue,
		querylog:      c.QueryLog,
		vectors:       c.Vectors,
		embedders:     c.Embedders,
		metrics:       c.Metrics,
		tracer:        c.Tracer,
		started:       time.Now(),
	}
}

// Request is one question to answer.
type Request struct {
	Query            string `json:"query"`
	TargetLanguage   string `json:"target_language,omitempty"`
	ConversationID   string `json:"conversation_id,omitempty"`
	EnableEnrichment bool   `json:"enable_web_enrichment"`
	TopK             int    `json:"top_k,omitempty"`
}

// Source is one cited document in the answer envelope.
type Source struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Location    string  `json:"location,omitempty"`
	Score       float64 `json:"score"`
	Category    string  `json:"category,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ResponseMetadata describes how the answer was produced.
type ResponseMetadata struct {
	DetectedLanguage   string   `json:"detected_language,omitempty"`
	TargetLanguage     string   `json:"target_language,omitempty"`
	QueryWasTranslated bool     `json:"query_was_translated"`
	SearchQuery        string   `json:"search_query,omitempty"`
	SearchResultsCount int      `json:"search_results_count"`
	EnrichmentEnabled  bool     `json:"enrichment_enabled"`
	EnrichmentSources  []string `json:"enrichment_sources"`
	ProcessingTime     float64  `json:"processing_time"`
	ModelUsed          string   `json:"model_used,omitempty"`
	TotalTokens        int      `json:"total_tokens"`
	WithDisclaimer     bool     `json:"with_disclaimer"`
	TranslationService string   `json:"translation_service,omitempty"`
	ErrorType          string   `json:"error_type,omitempty"`
}

// Response is the answer envelope. It is always usable: degraded paths
// carry a localized message in Response and detail in Metadata.
type Response struct {
	Response       string           `json:"response"`
	Language       string           `json:"language,omitempty"`
	Sources        []Source         `json:"sources"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Error          bool             `json:"error,omitempty"`
	Metadata       ResponseMetadata `json:"metadata"`
}

// AnswerQuestion runs the full answer flow. It never returns nil and
// never fails: validation problems, retrieval errors and generation
// timeouts all come back as envelopes with a localized message.
func (p *Pipeline) AnswerQuestion(ctx context.Context, req Request) *Response {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" || utf8.RuneCountInString(query) > maxQueryRunes {
		lang := req.TargetLanguage
		if lang == "" {
			lang = p.detectLanguage(ctx, query)
		}
		p.metrics.RecordError(ctx, "validation")
		return &Response{
			Response:       rephraseMessage(lang),
			Language:       lang,
			Sources:        []Source{},
			ConversationID: req.ConversationID,
			Error:          true,
			Metadata: ResponseMetadata{
				EnrichmentSources: []string{},
				ProcessingTime:    time.Since(start).Seconds(),
				ErrorType:         "validation",
			},
		}
	}

	detected := p.detectLanguage(ctx, query)
	target := req.TargetLanguage
	if target == "" {
		target = detected
	}

	ctx, span := p.tracer.StartAnswer(ctx, detected)
	defer span.End()

	// Retrieval works best in English or Russian; other languages get
	// the query translated for search while the answer stays in the
	// target language.
	searchQuery := query
	translated := false
	if p.translator != nil && multilingual.ShouldTranslate(detected) {
		tctx, cancel := context.WithTimeout(ctx, translationTimeout)
		result := p.translator.Translate(tctx, query, detected, "en")
		cancel()
		if result != "" && result != query {
			searchQuery = result
			translated = true
			slog.Info("Query translated for search", "from", detected, "query", searchQuery)
		}
	}

	// The window is read before the new turn is appended, so the model
	// sees history up to but not including the current question.
	history := ""
	if req.ConversationID != "" && p.conversations != nil {
		history = p.conversations.Window(ctx, req.ConversationID, p.windowTokens)
	}

	analysis := Analyze(query, detected, target)
	slog.Info("Query analyzed",
		"intent", analysis.Intent,
		"entities", len(analysis.Entities),
		"needs_enrichment", analysis.NeedsEnrichment)

	if req.ConversationID != "" && p.conversations != nil {
		p.conversations.Append(ctx, req.ConversationID, "user", query, conversation.MessageMetadata{
			Language: detected,
			Intent:   string(analysis.Intent),
		})
	}

	topK := req.TopK
	if topK <= 0 {
		topK = p.topK
	}
	searchLang := detected
	if translated {
		searchLang = "en"
	}
	searchAnalysis := p.search.Analyze(searchQuery, searchLang)
	searchResp, err := p.search.Search(ctx, searchQuery, &searchAnalysis, topK)
	if err != nil {
		errorType := "search"
		var se *search.SearchError
		if errors.As(err, &se) && se.Component != "" {
			errorType = se.Component
		}
		p.metrics.RecordError(ctx, errorType)
		slog.Error("Search failed", "error", err, "query", searchQuery)
		return p.errorEnvelope(req, target, err, errorType, start)
	}
	results := searchResp.Results
	p.metrics.RecordSearch(ctx, len(results))

	md := ResponseMetadata{
		DetectedLanguage:   detected,
		TargetLanguage:     target,
		QueryWasTranslated: translated,
		SearchResultsCount: len(results),
		EnrichmentEnabled:  req.EnableEnrichment && p.enricher != nil,
		EnrichmentSources:  []string{},
	}
	if translated {
		md.SearchQuery = searchQuery
		md.TranslationService = translationService
	}

	if len(results) == 0 {
		msg := noInformationMessage(target)
		p.appendAssistant(ctx, req.ConversationID, msg, target, nil)
		md.ProcessingTime = time.Since(start).Seconds()
		return &Response{
			Response:       msg,
			Language:       target,
			Sources:        []Source{},
			ConversationID: req.ConversationID,
			Metadata:       md,
		}
	}

	var enriched *enrichment.Result
	if md.EnrichmentEnabled && analysis.NeedsEnrichment {
		ectx, cancel := context.WithTimeout(ctx, enrichmentTimeout)
		enriched, err = p.enricher.Enrich(ectx, results, detected)
		cancel()
		if err != nil {
			slog.Warn("Web enrichment failed", "error", err)
			enriched = nil
		}
	}
	if enriched != nil && len(enriched.Sources) > 0 {
		md.EnrichmentSources = enriched.Sources
	}

	llmCtx := assembleContext(results, enriched, detected, target)
	llmCtx.QueryInfo = llm.QueryInfo{
		OriginalQuery:      query,
		SearchQuery:        searchQuery,
		DetectedLanguage:   detected,
		TargetLanguage:     target,
		QueryWasTranslated: translated,
		Intent:             string(analysis.Intent),
	}
	llmCtx.ConversationHistory = history

	answer, genErr := p.generator.Generate(ctx, llmCtx)
	if genErr != nil {
		md.ErrorType = "generation"
		if answer.Err == "timeout" {
			md.ErrorType = "timeout"
		}
		p.metrics.RecordError(ctx, md.ErrorType)
		slog.Error("Answer generation degraded", "error", genErr, "language", target)
	}
	p.metrics.RecordAnswer(ctx, utf8.RuneCountInString(answer.Response),
		answer.TokenUsage.InputTokens, answer.TokenUsage.OutputTokens)

	p.appendAssistant(ctx, req.ConversationID, answer.Response, target, topDocIDs(results, 3))

	md.ProcessingTime = time.Since(start).Seconds()
	md.ModelUsed = answer.Model
	md.TotalTokens = answer.TokenUsage.Total()
	md.WithDisclaimer = answer.WithDisclaimer

	p.querylog.Record(querylog.Entry{
		Query:            query,
		DetectedLanguage: detected,
		TargetLanguage:   target,
		Intent:           string(analysis.Intent),
		ResultsCount:     len(results),
		AnswerChars:      utf8.RuneCountInString(answer.Response),
		TotalTokens:      md.TotalTokens,
		ProcessingMS:     time.Since(start).Milliseconds(),
		ErrorType:        md.ErrorType,
	})

	return &Response{
		Response:       answer.Response,
		Language:       target,
		Sources:        collectSources(results),
		ConversationID: req.ConversationID,
		Metadata:       md,
	}
}

// DocumentCount reports how many points the attraction corpus holds,
// zero when the vector store is unavailable.
func (p *Pipeline) DocumentCount(ctx context.Context) uint64 {
	if p.vectors == nil {
		return 0
	}
	n, err := p.vectors.Count(ctx)
	if err != nil {
		slog.Warn("Failed to count corpus documents", "error", err)
		return 0
	}
	return n
}

// SearchDocuments runs hybrid retrieval without answer generation.
// An empty language triggers detection; topK <= 0 falls back to the
// configured default. The raw search response carries per-stage
// timings and the analysis that produced the results.
func (p *Pipeline) SearchDocuments(ctx context.Context, query, language string, topK int) ([]Source, *search.Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil, errors.New("query is empty")
	}
	if p.search == nil {
		return nil, nil, errors.New("search engine is not available")
	}
	if language == "" {
		language = p.detectLanguage(ctx, query)
	}
	if topK <= 0 {
		topK = p.topK
	}

	analysis := p.search.Analyze(query, language)
	resp, err := p.search.Search(ctx, query, &analysis, topK)
	if err != nil {
		return nil, nil, err
	}
	return collectSources(resp.Results), resp, nil
}

// ProcessBatch answers several questions concurrently. Each question
// gets its own envelope; one failing never affects the others.
func (p *Pipeline) ProcessBatch(ctx context.Context, queries []string, base Request) []*Response {
	out := make([]*Response, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			req := base
			req.Query = q
			out[i] = p.AnswerQuestion(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Cache namespace groups for ClearCache. The temp set is safe to drop
// at any time; the full set also discards permanent translations and
// enrichment, which are expensive to rebuild.
var (
	tempNamespaces = []string{
		cache.NSTranslationTemp,
		cache.NSEnrichmentTemp,
		cache.NSDenseEmbeddings,
		cache.NSDenseResults,
		cache.NSBM25Results,
		cache.NSHybridFinal,
		cache.NSPrefilter,
	}
	allNamespaces = append(tempNamespaces[:len(tempNamespaces):len(tempNamespaces)],
		cache.NSTranslationPermanent,
		cache.NSEnrichmentPermanent,
	)
)

// ClearCache drops cached entries and reports how many were removed.
// A non-empty namespace clears exactly that namespace; otherwise the
// temp set is cleared, or everything when tempOnly is false.
func (p *Pipeline) ClearCache(ctx context.Context, namespace string, tempOnly bool) (int, error) {
	if p.cache == nil {
		return 0, nil
	}
	if namespace != "" {
		return p.cache.ClearNamespace(ctx, namespace)
	}

	namespaces := tempNamespaces
	if !tempOnly {
		namespaces = allNamespaces
	}
	total := 0
	for _, ns := range namespaces {
		n, err := p.cache.ClearNamespace(ctx, ns)
		if err != nil {
			slog.Warn("Cache clear failed", "namespace", ns, "error", err)
			continue
		}
		total += n
	}
	slog.Info("Cache cleared", "namespaces", len(namespaces), "entries", total, "temp_only", tempOnly)
	return total, nil
}

// SystemStatus is the full component and statistics snapshot.
type SystemStatus struct {
	Initialized   bool               `json:"initialized"`
	WarmedUp      bool               `json:"warmed_up"`
	Components    map[string]bool    `json:"components"`
	CacheStats    cache.StoreStats   `json:"cache_stats"`
	QueueStats    taskqueue.Stats    `json:"queue_status"`
	SearchStats   search.EngineStats `json:"search_stats"`
	Conversations conversation.Stats `json:"conversation_stats"`
	Translation   multilingual.Stats `json:"translation_stats"`
	UptimeSeconds float64            `json:"uptime_seconds"`
}

// SystemStatus reports which components are wired and their counters.
func (p *Pipeline) SystemStatus() SystemStatus {
	st := SystemStatus{
		Initialized:   p.initialized(),
		WarmedUp:      p.warmedUp.Load(),
		Components:    p.componentMap(),
		UptimeSeconds: time.Since(p.started).Seconds(),
	}
	if p.cache != nil {
		st.CacheStats = p.cache.Stats()
	}
	if p.queue != nil {
		st.QueueStats = p.queue.Stats()
	}
	if p.search != nil {
		st.SearchStats = p.search.Stats()
	}
	if p.conversations != nil {
		st.Conversations = p.conversations.Stats()
	}
	if p.translator != nil {
		st.Translation = p.translator.Stats()
	}
	return st
}

func (p *Pipeline) componentMap() map[string]bool {
	return map[string]bool{
		"vector_store":      p.vectors != nil,
		"search_engine":     p.search != nil,
		"cache":             p.cache != nil,
		"redis":             p.cache != nil && p.cache.RedisConnected(),
		"language_detector": p.detector != nil,
		"translator":        p.translator != nil,
		"web_enricher":      p.enricher != nil,
		"answer_generator":  p.generator != nil,
		"conversations":     p.conversations != nil,
		"task_queue":        p.queue != nil,
		"query_log":         p.querylog != nil,
		"metrics":           p.metrics != nil,
	}
}

func (p *Pipeline) initialized() bool {
	return p.search != nil && p.generator != nil
}

func (p *Pipeline) detectLanguage(ctx context.Context, text string) string {
	if p.detector == nil {
		return "en"
	}
	return p.detector.Detect(ctx, text)
}

func (p *Pipeline) appendAssistant(ctx context.Context, conversationID, text, language string, sources []string) {
	if conversationID == "" || p.conversations == nil {
		return
	}
	p.conversations.Append(ctx, conversationID, "assistant", text, conversation.MessageMetadata{
		Language: language,
		Sources:  sources,
	})
}

func (p *Pipeline) errorEnvelope(req Request, language string, err error, errorType string, start time.Time) *Response {
	return &Response{
		Response:       errorResponse(language, err),
		Language:       language,
		Sources:        []Source{},
		ConversationID: req.ConversationID,
		Error:          true,
		Metadata: ResponseMetadata{
			EnrichmentSources: []string{},
			ProcessingTime:    time.Since(start).Seconds(),
			ErrorType:         errorType,
		},
	}
}

func topDocIDs(results []search.SearchResult, n int) []string {
	if len(results) < n {
		n = len(results)
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, results[i].DocID)
	}
	return ids
}

// collectSources shapes the top documents for the envelope, trimming
// descriptions to a citation-sized preview.
func collectSources(results []search.SearchResult) []Source {
	top := results
	if len(top) > maxContextDocuments {
		top = top[:maxContextDocuments]
	}
	sources := make([]Source, 0, len(top))
	for i := range top {
		r := &top[i]
		id := r.PayloadString("id")
		if id == "" {
			id = r.DocID
		}
		name := r.PayloadString("name")
		if name == "" {
			name = "Unknown"
		}
		description := r.PayloadString("description")
		if runes := []rune(description); len(runes) > 200 {
			description = string(runes[:200])
		}
		sources = append(sources, Source{
			ID:          id,
			Name:        name,
			Location:    enrichment.ExtractLocation(r.Payload).Primary,
			Score:       r.Score,
			Category:    r.PayloadString("category"),
			ImageURL:    r.PayloadString("image_url"),
			Description: description,
		})
	}
	return sources
}
