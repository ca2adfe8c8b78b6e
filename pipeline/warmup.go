package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamadze/tamada/cache"
)

const warmupTopK = 5

// defaultWarmupQueries cover the popular corpus entry points in both
// source languages, so the first real users hit warm caches.
var defaultWarmupQueries = []string{
	"национальные парки Грузии",
	"крепость Нарикала",
	"Светицховели монастырь",
	"озеро Рица",
	"Тбилисский ботанический сад",

	"Tbilisi National Park",
	"Narikala Fortress",
	"Svetitskhoveli Cathedral",
	"Lake Ritsa",
	"Batumi Botanical Garden",

	"винный тур Кахетия",
	"mountain hiking Georgia",
	"старый город Тбилиси",
	"black sea resorts",
	"минеральные источники Боржоми",
}

// warmupPhrases prime language detection, one phrase per supported
// script family.
var warmupPhrases = []struct {
	lang   string
	phrase string
}{
	{"en", "Tell me about Tbilisi"},
	{"ru", "Расскажи о Тбилиси"},
	{"ka", "მითხარი თბილისის შესახებ"},
	{"de", "Erzählen Sie über Tiflis"},
	{"fr", "Parlez-moi de Tbilissi"},
	{"es", "Cuéntame sobre Tiflis"},
	{"it", "Parlami di Tbilisi"},
	{"ja", "トビリシについて"},
	{"ko", "트빌리시에 대해"},
	{"zh", "告诉我关于第比利斯"},
	{"ar", "أخبرني عن تبليسي"},
	{"tr", "Tiflis hakkında anlat"},
	{"az", "Tiflisdə danış"},
}

// WarmupReport summarizes one warmup run.
type WarmupReport struct {
	TotalTime         float64          `json:"total_time"`
	ModelLoadTime     float64          `json:"model_load_time"`
	MultilingualTime  float64          `json:"multilingual_time"`
	QueriesProcessed  int              `json:"queries_processed"`
	QueriesSuccessful int              `json:"queries_successful"`
	QueriesFailed     int              `json:"queries_failed"`
	CachesWarmed      []string         `json:"caches_warmed"`
	CacheStats        cache.StoreStats `json:"cache_stats"`
	Success           bool             `json:"success"`
	Timestamp         time.Time        `json:"timestamp"`
}

// Warmup primes the embedding model, the retrieval caches and language
// detection. It runs once: repeated calls return the first report. A
// nil queries slice uses the default set; success needs at least one
// query returning results.
func (p *Pipeline) Warmup(ctx context.Context, queries []string) WarmupReport {
	p.warmupMu.Lock()
	defer p.warmupMu.Unlock()
	if p.warmedUp.Load() {
		slog.Info("Warmup already completed")
		return p.report
	}

	start := time.Now()
	report := WarmupReport{CachesWarmed: []string{}, Timestamp: start.UTC()}
	if len(queries) == 0 {
		queries = defaultWarmupQueries
	}

	if p.embedders != nil {
		mstart := time.Now()
		if _, _, err := p.embedders.EmbedCached(ctx, "Тбилиси"); err != nil {
			slog.Warn("Embedding model warmup failed", "error", err)
		} else {
			report.CachesWarmed = append(report.CachesWarmed, "embedding_model")
		}
		report.ModelLoadTime = time.Since(mstart).Seconds()
	}
	if p.search != nil {
		report.CachesWarmed = append(report.CachesWarmed, "bm25", "prefilter")
	}

	if p.search != nil {
		for i, q := range queries {
			if ctx.Err() != nil {
				slog.Warn("Warmup interrupted", "completed", i, "total", len(queries))
				break
			}
			report.QueriesProcessed++
			resp, err := p.search.Search(ctx, q, nil, warmupTopK)
			if err != nil || resp == nil || len(resp.Results) == 0 {
				report.QueriesFailed++
				slog.Warn("Warmup query returned nothing", "query", q, "error", err)
				continue
			}
			report.QueriesSuccessful++
			slog.Debug("Warmup query done", "query", q, "results", len(resp.Results))
		}
	}

	if p.detector != nil {
		mlStart := time.Now()
		for _, wp := range warmupPhrases {
			detected := p.detector.Detect(ctx, wp.phrase)
			slog.Debug("Detection warmed", "expected", wp.lang, "detected", detected)
		}
		report.MultilingualTime = time.Since(mlStart).Seconds()
		report.CachesWarmed = append(report.CachesWarmed, "multilingual")
	}

	if p.cache != nil {
		report.CacheStats = p.cache.Stats()
	}

	report.TotalTime = time.Since(start).Seconds()
	report.Success = report.QueriesSuccessful > 0
	p.report = report
	if report.Success {
		p.warmedUp.Store(true)
		slog.Info("Warmup completed",
			"queries", report.QueriesSuccessful,
			"total", report.QueriesProcessed,
			"time", report.TotalTime)
	} else {
		slog.Warn("Warmup completed with no successful queries")
	}
	return report
}

// WarmedUp reports whether a successful warmup has run.
func (p *Pipeline) WarmedUp() bool {
	return p.warmedUp.Load()
}
