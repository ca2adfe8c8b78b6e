package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamadze/tamada/taskqueue"
	"github.com/tamadze/tamada/vectorstore"
)

const syncPersistTimeout = 30 * time.Second

// Persister writes enrichment back onto document payloads so the next
// query for the same place never reaches the web. Writes run on the
// background queue; the request path only enqueues.
type Persister struct {
	store *vectorstore.Store
	queue *taskqueue.Queue
}

func NewPersister(store *vectorstore.Store, queue *taskqueue.Queue) *Persister {
	return &Persister{store: store, queue: queue}
}

// PersistAsync queues the payload update. Without a queue the write runs
// inline; a full queue drops the task, the next fetch will re-enqueue.
func (p *Persister) PersistAsync(id string, res *Result) {
	if p == nil || p.store == nil || id == "" || res.Empty() {
		return
	}
	if p.queue == nil {
		slog.Warn("no task queue, persisting enrichment synchronously", "id", id)
		ctx, cancel := context.WithTimeout(context.Background(), syncPersistTimeout)
		defer cancel()
		if err := p.persist(ctx, id, res); err != nil {
			slog.Error("enrichment persist failed", "id", id, "error", err)
		}
		return
	}

	queued := p.queue.Enqueue("persist_enrichment_"+id, func(ctx context.Context) error {
		return p.persist(ctx, id, res)
	})
	if !queued {
		slog.Warn("task queue full, dropping enrichment persist", "id", id)
	}
}

// persist merges enrichment into the current payload and writes the
// whole payload back. Last writer wins; there is no per-field merge.
func (p *Persister) persist(ctx context.Context, id string, res *Result) error {
	points, err := p.store.Retrieve(ctx, []string{id}, true)
	if err != nil {
		return fmt.Errorf("retrieve %s: %w", id, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("document %s not found", id)
	}

	updated := make(map[string]any, len(points[0].Payload)+6)
	for k, v := range points[0].Payload {
		updated[k] = v
	}

	enrichedFields := []string{}
	if res.WikipediaContent != "" {
		updated["description_enriched"] = res.WikipediaContent
		enrichedFields = append(enrichedFields, "wikipedia_content")
	}
	if len(res.WikipediaImages) > 0 {
		updated["images_wikipedia"] = firstN(res.WikipediaImages, 5)
		enrichedFields = append(enrichedFields, "wikipedia_images")
	}
	if len(res.UnsplashImages) > 0 {
		// Corpus images are curated; web photos only fill true gaps.
		if asString(updated["image_url"]) == "" {
			images := make([]map[string]any, 0, 5)
			for _, img := range firstN(res.UnsplashImages, 5) {
				images = append(images, map[string]any{
					"url":          img.URL,
					"photographer": img.Photographer,
					"alt":          img.Alt,
				})
			}
			updated["images_unsplash"] = images
			enrichedFields = append(enrichedFields, "unsplash_images")
		} else {
			slog.Debug("skipping unsplash images, corpus image present", "id", id)
		}
	}

	updated["enriched_at"] = time.Now().UTC().Format(time.RFC3339)
	updated["enrichment_sources"] = res.Sources
	updated["is_enriched"] = true
	updated["enriched_fields"] = enrichedFields

	if err := p.store.SetPayload(ctx, id, updated); err != nil {
		return fmt.Errorf("set payload %s: %w", id, err)
	}
	slog.Info("enrichment persisted", "id", id, "fields", enrichedFields)
	return nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
