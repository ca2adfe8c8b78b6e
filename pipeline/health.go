package pipeline

import "time"

// HealthReport is the liveness summary for the /health endpoint.
type HealthReport struct {
	Status      string          `json:"status"`
	Initialized bool            `json:"initialized"`
	WarmedUp    bool            `json:"warmed_up"`
	Components  map[string]bool `json:"components"`
	Issues      []string        `json:"issues"`
	Timestamp   time.Time       `json:"timestamp"`
}

// healthComponentOrder fixes the issue ordering so probes are stable.
var healthComponentOrder = []string{
	"query_analyzer",
	"bm25_engine",
	"dense_engine",
	"fusion_engine",
	"cache",
	"vector_store",
	"task_queue",
}

// Health grades the service: "healthy" with no issues, "warning" with
// up to two, "critical" beyond that. A pipeline missing its retrieval
// or generation core reports "not_initialized" instead.
func (p *Pipeline) Health() HealthReport {
	searchUp := p.search != nil
	components := map[string]bool{
		"query_analyzer": searchUp,
		"bm25_engine":    searchUp,
		"dense_engine":   searchUp,
		"fusion_engine":  searchUp,
		"cache":          p.cache != nil,
		"vector_store":   p.vectors != nil,
		"task_queue":     p.queue != nil,
	}

	initialized := p.initialized()
	warmedUp := p.warmedUp.Load()

	issues := []string{}
	if !initialized {
		issues = append(issues, "System not initialized")
	}
	for _, name := range healthComponentOrder {
		if !components[name] {
			issues = append(issues, name+" not available")
		}
	}
	if !warmedUp {
		issues = append(issues, "System not warmed up")
	}

	status := "healthy"
	switch {
	case !initialized:
		status = "not_initialized"
	case len(issues) > 2:
		status = "critical"
	case len(issues) > 0:
		status = "warning"
	}

	return HealthReport{
		Status:      status,
		Initialized: initialized,
		WarmedUp:    warmedUp,
		Components:  components,
		Issues:      issues,
		Timestamp:   time.Now().UTC(),
	}
}
