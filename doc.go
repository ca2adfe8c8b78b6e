// Package tamada is a multilingual question-answering service for
// Georgian tourist attractions.
//
// The service answers free-form questions in 18 languages over a fixed
// Qdrant corpus of attractions. Retrieval is hybrid: BM25 and dense
// vector search run concurrently against a prefiltered candidate set
// and are fused with reciprocal rank fusion. Answers are generated by
// an LLM that reads the retrieved documents in their original language
// (Russian or English) and responds in the caller's language.
//
// # Quick Start
//
// Install the server:
//
//	go install github.com/tamadze/tamada/cmd/tamada@latest
//
// Create a configuration file (see config.example.yaml) pointing at
// your Qdrant collection and API keys, then start the server:
//
//	tamada serve --config tamada.yaml
//
// Ask a question:
//
//	curl -X POST localhost:8080/query \
//	  -H 'Content-Type: application/json' \
//	  -d '{"query": "Расскажи о крепости Нарикала"}'
//
// # Architecture
//
//	HTTP (chi) → pipeline → search (prefilter + BM25 ∥ dense → RRF)
//	                      → enrichment (wikipedia, unsplash, serpapi)
//	                      → llm (answer generation)
//
// Cross-cutting components: a two-tier cache (Redis + in-process LRU),
// a bounded background task queue, a conversation store, language
// detection/translation, and OpenTelemetry metrics and traces.
//
// # Packages
//
//   - cache, taskqueue: shared infrastructure
//   - vectorstore, embedder, search: retrieval
//   - multilingual, llm, enrichment, conversation: answering
//   - pipeline, server, querylog: orchestration and surface
package tamada
