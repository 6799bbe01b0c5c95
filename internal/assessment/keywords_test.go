package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywordsVocabularyMatch(t *testing.T) {
	got := ExtractKeywords("I have severe chest pain and shortness of breath since yesterday")
	assert.Contains(t, got, "chest pain")
	assert.Contains(t, got, "shortness of breath")
}

func TestExtractKeywordsFallbackFiltersStopwords(t *testing.T) {
	got := ExtractKeywords("I am having a weird pulling sensation in my left shoulder")
	assert.NotEmpty(t, got)
	assert.NotContains(t, got, "having")
	assert.NotContains(t, got, "the")
	assert.Contains(t, got, "shoulder")
}

func TestExtractKeywordsNeverEmptyForNonEmptyInput(t *testing.T) {
	// Every word is a stopword; the trimmed text itself is the fallback.
	got := ExtractKeywords("I am very just")
	assert.NotEmpty(t, got)
}

func TestExtractKeywordsEmptyInput(t *testing.T) {
	assert.Empty(t, ExtractKeywords("   "))
	assert.Empty(t, ExtractKeywords(""))
}

func TestExtractKeywordsDeduplicatesTokens(t *testing.T) {
	got := ExtractKeywords("shoulder shoulder shoulder hurting")
	count := 0
	for _, k := range got {
		if k == "shoulder" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
