package llm

import (
	"fmt"
	"strings"

	"github.com/tamadze/tamada/enrichment"
)

// Context carries everything one answer needs: the analyzed query, the
// retrieved documents, optional web enrichment, collected images and the
// assembly metadata. The pipeline builds it, the generator consumes it.
type Context struct {
	QueryInfo           QueryInfo          `json:"query_info"`
	SearchResults       []Document         `json:"search_results"`
	Enrichment          *enrichment.Result `json:"enrichment,omitempty"`
	Images              []Image            `json:"images"`
	ConversationHistory string             `json:"conversation_history,omitempty"`
	Metadata            Metadata           `json:"metadata_summary"`
}

// QueryInfo describes the user query after detection, translation and
// intent classification.
type QueryInfo struct {
	OriginalQuery      string `json:"original_query"`
	SearchQuery        string `json:"search_query"`
	DetectedLanguage   string `json:"detected_language"`
	TargetLanguage     string `json:"target_language"`
	QueryWasTranslated bool   `json:"query_was_translated"`
	Intent             string `json:"intent"`
}

// Document is one retrieved corpus document shaped for prompting.
type Document struct {
	Rank             int      `json:"rank"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Location         string   `json:"location"`
	LocationFull     string   `json:"location_full,omitempty"`
	Tags             []string `json:"tags"`
	Score            float64  `json:"score"`
	HasImage         bool     `json:"has_image"`
	ImageURL         string   `json:"image_url,omitempty"`
	OriginalLanguage string   `json:"original_language"`
}

// Image is a photo offered to the model: either a curated corpus image
// (source "cloudinary") or a web photo from enrichment.
type Image struct {
	Place        string `json:"place,omitempty"`
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Source       string `json:"source"`
	Photographer string `json:"photographer,omitempty"`
	Type         string `json:"type"`
}

// LanguageInfo records the language plan for this answer. Documents stay
// in their original language; only the model output switches.
type LanguageInfo struct {
	Detected          string `json:"detected"`
	Target            string `json:"target"`
	LanguageName      string `json:"language_name"`
	DocumentsLanguage string `json:"documents_language"`
	TranslationNote   string `json:"translation_note"`
}

// Metadata summarizes what went into the context.
type Metadata struct {
	TotalResults      int          `json:"total_results"`
	ResultsWithImages int          `json:"results_with_images"`
	EnrichmentSources []string     `json:"enrichment_sources"`
	AdditionalImages  int          `json:"additional_images"`
	LanguageInfo      LanguageInfo `json:"language_info"`
}

// FormatForLLM renders the documents as numbered blocks separated by
// --- lines, the long form used when a prompt needs the full context.
func (c *Context) FormatForLLM() string {
	blocks := make([]string, 0, len(c.SearchResults))
	for _, doc := range c.SearchResults {
		tags := "N/A"
		if len(doc.Tags) > 0 {
			t := doc.Tags
			if len(t) > 5 {
				t = t[:5]
			}
			tags = strings.Join(t, ", ")
		}
		blocks = append(blocks, fmt.Sprintf(
			"Document %d:\nName: %s\nCategory: %s\nLocation: %s\nDescription: %s\nTags: %s\nRelevance Score: %.2f\nHas Image: %t",
			doc.Rank, doc.Name, doc.Category, doc.Location, doc.Description, tags, doc.Score, doc.HasImage))
	}
	return strings.Join(blocks, "\n---\n")
}
