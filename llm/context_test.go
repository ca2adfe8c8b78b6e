package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForLLM(t *testing.T) {
	c := &Context{
		SearchResults: []Document{
			{
				Rank:        1,
				Name:        "Нарикала",
				Category:    "Крепости",
				Location:    "Тбилиси",
				Description: "Древняя крепость",
				Tags:        []string{"история", "крепость"},
				Score:       0.91,
				HasImage:    true,
			},
			{
				Rank:        2,
				Name:        "Мтацминда",
				Category:    "Парки",
				Location:    "Тбилиси",
				Description: "Гора и парк",
				Score:       0.87,
			},
		},
	}

	got := c.FormatForLLM()

	assert.Contains(t, got, "Document 1:\nName: Нарикала\nCategory: Крепости\nLocation: Тбилиси\nDescription: Древняя крепость\nTags: история, крепость\nRelevance Score: 0.91\nHas Image: true")
	assert.Contains(t, got, "\n---\nDocument 2:")
	assert.Contains(t, got, "Tags: N/A")
}

func TestFormatForLLMCapsTagsAtFive(t *testing.T) {
	c := &Context{
		SearchResults: []Document{
			{
				Rank: 1,
				Name: "Вардзия",
				Tags: []string{"t1", "t2", "t3", "t4", "t5", "t6"},
			},
		},
	}

	got := c.FormatForLLM()

	assert.Contains(t, got, "Tags: t1, t2, t3, t4, t5\n")
	assert.NotContains(t, got, "t6")
}

func TestFormatForLLMEmpty(t *testing.T) {
	c := &Context{}
	assert.Empty(t, c.FormatForLLM())
}
