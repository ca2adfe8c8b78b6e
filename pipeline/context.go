package pipeline

import (
	"strings"

	"github.com/tamadze/tamada/enrichment"
	"github.com/tamadze/tamada/llm"
	"github.com/tamadze/tamada/multilingual"
	"github.com/tamadze/tamada/search"
)

const (
	maxContextDocuments = 5
	maxContextTags      = 10
	maxUnsplashImages   = 3
)

// assembleContext shapes retrieval output for the generator: the top
// documents with their curated photos, then up to three web photos
// from enrichment. Documents stay in their source language; only the
// model's answer switches to the target.
func assembleContext(results []search.SearchResult, enriched *enrichment.Result, detected, target string) *llm.Context {
	top := results
	if len(top) > maxContextDocuments {
		top = top[:maxContextDocuments]
	}

	docs := make([]llm.Document, 0, len(top))
	images := []llm.Image{}
	withImages := 0
	for i := range top {
		doc := documentFromResult(i+1, &top[i])
		if doc.HasImage {
			withImages++
			if doc.ImageURL != "" {
				images = append(images, llm.Image{
					Place:  doc.Name,
					URL:    doc.ImageURL,
					Source: "cloudinary",
					Type:   "attraction_photo",
				})
			}
		}
		docs = append(docs, doc)
	}

	sources := []string{}
	additional := 0
	if enriched != nil {
		if len(enriched.Sources) > 0 {
			sources = enriched.Sources
		}
		additional = len(enriched.UnsplashImages)
		for i, u := range enriched.UnsplashImages {
			if i == maxUnsplashImages {
				break
			}
			images = append(images, llm.Image{
				URL:          u.URL,
				Thumbnail:    u.Thumbnail,
				Source:       "unsplash",
				Photographer: u.Photographer,
				Type:         "professional_photo",
			})
		}
	}

	return &llm.Context{
		SearchResults: docs,
		Enrichment:    enriched,
		Images:        images,
		Metadata: llm.Metadata{
			TotalResults:      len(results),
			ResultsWithImages: withImages,
			EnrichmentSources: sources,
			AdditionalImages:  additional,
			LanguageInfo: llm.LanguageInfo{
				Detected:          detected,
				Target:            target,
				LanguageName:      multilingual.LanguageName(target),
				DocumentsLanguage: "original (RU/EN)",
				TranslationNote:   "Documents kept in original language for quality. LLM will respond in target language.",
			},
		},
	}
}

func documentFromResult(rank int, r *search.SearchResult) llm.Document {
	if len(r.Payload) == 0 {
		id := r.DocID
		if len(id) > 8 {
			id = id[:8]
		}
		return llm.Document{
			Rank:             rank,
			Name:             "Result " + id,
			Description:      "No description available",
			Category:         "unknown",
			Tags:             []string{},
			Score:            r.Score,
			OriginalLanguage: "RU",
		}
	}

	name := r.PayloadString("name")
	if name == "" {
		name = "Unknown"
	}
	description := r.PayloadString("description")
	if description == "" {
		description = r.PayloadString("content")
	}
	if description == "" {
		description = r.PayloadString("summary")
	}
	imageURL := r.PayloadString("image_url")
	originalLanguage := r.PayloadString("language")
	if originalLanguage == "" {
		originalLanguage = "RU"
	}

	return llm.Document{
		Rank:             rank,
		Name:             name,
		Description:      description,
		Category:         r.PayloadString("category"),
		Location:         enrichment.ExtractLocation(r.Payload).Primary,
		LocationFull:     r.PayloadString("location"),
		Tags:             payloadTags(r.Payload),
		Score:            r.Score,
		HasImage:         r.PayloadBool("has_processed_image") || imageURL != "",
		ImageURL:         imageURL,
		OriginalLanguage: originalLanguage,
	}
}

// payloadTags reads tags stored either as a list or as one
// comma-separated string.
func payloadTags(payload map[string]any) []string {
	tags := []string{}
	switch v := payload["tags"].(type) {
	case []string:
		tags = append(tags, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
	}
	if len(tags) > maxContextTags {
		tags = tags[:maxContextTags]
	}
	return tags
}
