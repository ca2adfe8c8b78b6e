package cache

import (
	"math"
	"sync"
	"sync/atomic"
)

// counters tracks activity for one namespace.
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errors atomic.Int64
}

// statsSet mirrors every namespace tick into a global row so both
// per-namespace and whole-store hit rates are cheap to read.
type statsSet struct {
	mu sync.RWMutex
	ns map[string]*counters

	global        counters
	deletes       atomic.Int64
	permanentSets atomic.Int64
	temporarySets atomic.Int64
}

func newStatsSet() *statsSet {
	s := &statsSet{ns: make(map[string]*counters)}
	for _, name := range []string{
		NSTranslationTemp, NSTranslationPermanent,
		NSEnrichmentTemp, NSEnrichmentPermanent,
		NSDenseEmbeddings, NSDenseResults,
		NSBM25Results, NSHybridFinal, NSPrefilter,
	} {
		s.ns[name] = &counters{}
	}
	return s
}

func (s *statsSet) namespace(name string) *counters {
	s.mu.RLock()
	c, ok := s.ns[name]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.ns[name]; ok {
		return c
	}
	c = &counters{}
	s.ns[name] = c
	return c
}

func (s *statsSet) hit(name string) {
	s.namespace(name).hits.Add(1)
	s.global.hits.Add(1)
}

func (s *statsSet) miss(name string) {
	s.namespace(name).misses.Add(1)
	s.global.misses.Add(1)
}

func (s *statsSet) errored(name string) {
	s.namespace(name).errors.Add(1)
	s.global.errors.Add(1)
}

func (s *statsSet) set(name string, permanent bool) {
	s.namespace(name).sets.Add(1)
	s.global.sets.Add(1)
	if permanent {
		s.permanentSets.Add(1)
	} else {
		s.temporarySets.Add(1)
	}
}

func (s *statsSet) deleted() {
	s.deletes.Add(1)
}

// NamespaceStats is the exported snapshot of one namespace.
type NamespaceStats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Sets           int64   `json:"sets"`
	Errors         int64   `json:"errors"`
	TotalRequests  int64   `json:"total_requests"`
	HitRatePercent float64 `json:"hit_rate_percent"`
	IsPermanent    bool    `json:"is_permanent"`
}

// StoreStats is the exported snapshot of the whole store.
type StoreStats struct {
	Hits            int64                     `json:"hits"`
	Misses          int64                     `json:"misses"`
	Sets            int64                     `json:"sets"`
	Errors          int64                     `json:"errors"`
	Deletes         int64                     `json:"deletes"`
	TotalRequests   int64                     `json:"total_requests"`
	HitRatePercent  float64                   `json:"hit_rate_percent"`
	MemoryCacheSize int                       `json:"memory_cache_size"`
	MemoryCacheMax  int                       `json:"memory_cache_max"`
	RedisConnected  bool                      `json:"redis_connected"`
	PermanentSets   int64                     `json:"permanent_sets"`
	TemporarySets   int64                     `json:"temporary_sets"`
	Namespaces      map[string]NamespaceStats `json:"namespaces"`
}

func (s *statsSet) snapshot() StoreStats {
	s.mu.RLock()
	names := make([]string, 0, len(s.ns))
	for name := range s.ns {
		names = append(names, name)
	}
	s.mu.RUnlock()

	out := StoreStats{
		Hits:          s.global.hits.Load(),
		Misses:        s.global.misses.Load(),
		Sets:          s.global.sets.Load(),
		Errors:        s.global.errors.Load(),
		Deletes:       s.deletes.Load(),
		PermanentSets: s.permanentSets.Load(),
		TemporarySets: s.temporarySets.Load(),
		Namespaces:    make(map[string]NamespaceStats, len(names)),
	}
	out.TotalRequests = out.Hits + out.Misses
	out.HitRatePercent = hitRate(out.Hits, out.TotalRequests)

	for _, name := range names {
		c := s.namespace(name)
		ns := NamespaceStats{
			Hits:        c.hits.Load(),
			Misses:      c.misses.Load(),
			Sets:        c.sets.Load(),
			Errors:      c.errors.Load(),
			IsPermanent: isPermanentNamespace(name),
		}
		ns.TotalRequests = ns.Hits + ns.Misses
		ns.HitRatePercent = hitRate(ns.Hits, ns.TotalRequests)
		out.Namespaces[name] = ns
	}
	return out
}

func isPermanentNamespace(name string) bool {
	return name == NSTranslationPermanent || name == NSEnrichmentPermanent
}

func hitRate(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*10000) / 100
}

// HealthLabel grades a hit rate for status endpoints.
func HealthLabel(hitRatePercent float64) string {
	switch {
	case hitRatePercent >= 70:
		return "excellent"
	case hitRatePercent >= 50:
		return "good"
	case hitRatePercent >= 30:
		return "fair"
	default:
		return "poor"
	}
}
