package llm

import (
	"fmt"
	"strconv"
	"strings"
)

// Intent-specific base prompts. The model reads documents in their
// original language; the language instruction prepended by the
// generator pins the output language.
var promptTemplates = map[string]string{
	"info_request": `You are an expert Georgian tourism guide. A user asked: "{query}"

RELEVANT INFORMATION ({total_results} results):
{results}

ADDITIONAL DETAILS:
{enrichment}

AVAILABLE VISUALS:
{images}

INSTRUCTIONS:
- Provide comprehensive, engaging information (200-300 words)
- Use markdown formatting (headers, lists, emojis)
- Highlight unique cultural aspects
- Be enthusiastic and inspiring
- Reference available photos when relevant
- Include practical tips if applicable

Create an amazing response that makes them want to visit!`,

	"recommendation": `You are an expert Georgian tourism guide helping with recommendations: "{query}"

RELEVANT INFORMATION ({total_results} results):
{results}

ADDITIONAL DETAILS:
{enrichment}

AVAILABLE VISUALS:
{images}

INSTRUCTIONS:
- Suggest top 3-5 best options based on their interests
- Explain WHY each recommendation fits their needs
- Provide practical details (location, accessibility, best time)
- Use engaging, persuasive language (200-300 words)
- Include cultural context
- Reference available photos

Help them discover the perfect Georgian experience!`,

	"route_planning": `You are an expert Georgian tourism guide helping plan an itinerary: "{query}"

RELEVANT INFORMATION ({total_results} results):
{results}

ADDITIONAL DETAILS:
{enrichment}

AVAILABLE VISUALS:
{images}

INSTRUCTIONS:
- Create a logical, efficient route/plan
- Include travel times and practical logistics
- Suggest optimal visiting times
- Highlight must-see vs optional stops
- Provide insider tips (200-300 words)
- Make it realistic and enjoyable

Design the perfect Georgian adventure!`,

	"follow_up": `You are continuing a conversation about Georgian tourism: "{query}"

RELEVANT INFORMATION ({total_results} results):
{results}

ADDITIONAL DETAILS:
{enrichment}

AVAILABLE VISUALS:
{images}

INSTRUCTIONS:
- Provide additional relevant information (150-200 words)
- Build on previous conversation context
- Include new details not mentioned before
- Keep enthusiastic, helpful tone
- Reference available photos

Continue helping them explore Georgia!`,
}

// promptTemplate picks the base prompt for an intent. Unknown intents
// (including "general") read as info requests.
func promptTemplate(intent string) string {
	if t, ok := promptTemplates[intent]; ok {
		return t
	}
	return promptTemplates["info_request"]
}

// fillTemplate interpolates the context into a base prompt. Descriptions
// are trimmed so three documents plus enrichment stay well under the
// model input budget.
func fillTemplate(template string, c *Context) string {
	var results strings.Builder
	docs := c.SearchResults
	if len(docs) > 3 {
		docs = docs[:3]
	}
	for _, doc := range docs {
		desc := doc.Description
		if runes := []rune(desc); len(runes) > 300 {
			desc = string(runes[:300]) + "..."
		}
		fmt.Fprintf(&results, "\nName: %s\nDescription: %s\nCategory: %s\nLocation: %s\nRelevance: %.3f\n\n",
			doc.Name, desc, doc.Category, doc.Location, doc.Score)
	}

	var enrichmentText string
	if c.Enrichment != nil && c.Enrichment.WikipediaContent != "" {
		wiki := c.Enrichment.WikipediaContent
		if runes := []rune(wiki); len(runes) > 200 {
			wiki = string(runes[:200])
		}
		enrichmentText = "Additional Info: " + wiki + "...\n\n"
	}

	imagesInfo := "No photos available"
	if len(c.Images) > 0 {
		imgs := c.Images
		if len(imgs) > 5 {
			imgs = imgs[:5]
		}
		lines := make([]string, 0, len(imgs))
		for _, img := range imgs {
			if img.URL == "" {
				continue
			}
			icon := "📸"
			if img.Source == "cloudinary" {
				icon = "🗄️"
			}
			place := img.Place
			if place == "" {
				place = "Unknown"
			}
			lines = append(lines, fmt.Sprintf("%s %s: %s", icon, place, img.URL))
		}
		if len(lines) > 0 {
			imagesInfo = "Available photos:\n" + strings.Join(lines, "\n")
		} else {
			imagesInfo = "Photos are available but URLs not provided"
		}
	}

	r := strings.NewReplacer(
		"{query}", c.QueryInfo.OriginalQuery,
		"{language}", c.Metadata.LanguageInfo.LanguageName,
		"{results}", results.String(),
		"{enrichment}", enrichmentText,
		"{images}", imagesInfo,
		"{total_results}", strconv.Itoa(c.Metadata.TotalResults),
	)
	return r.Replace(template)
}
