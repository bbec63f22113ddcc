package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		parts    []string
		expected []string
	}{
		{
			name:     "lowercases and strips punctuation",
			parts:    []string{"The Morning, Show!"},
			expected: []string{"the", "morning", "show"},
		},
		{
			name:     "drops short tokens",
			parts:    []string{"an in-depth look at AI"},
			expected: []string{"depth", "look"},
		},
		{
			name:     "deduplicates preserving first appearance",
			parts:    []string{"news daily", "daily news roundup"},
			expected: []string{"news", "daily", "roundup"},
		},
		{
			name:     "keeps arabic text",
			parts:    []string{"برنامج وثائقي عن التاريخ"},
			expected: []string{"برنامج", "وثائقي", "التاريخ"},
		},
		{
			name:     "mixed arabic and latin",
			parts:    []string{"بودكاست tech أسبوعي"},
			expected: []string{"بودكاست", "tech", "أسبوعي"},
		},
		{
			name:     "empty input",
			parts:    []string{"", "  "},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractKeywords(tt.parts...))
		})
	}
}

func TestExtractKeywordsCapsAtTwenty(t *testing.T) {
	words := make([]string, 0, 30)
	for r := 'a'; r < 'a'+30; r++ {
		words = append(words, strings.Repeat(string(r), 3))
	}

	keywords := ExtractKeywords(strings.Join(words, " "))

	assert.Len(t, keywords, 20)
	assert.Equal(t, "aaa", keywords[0])
	assert.Equal(t, "ttt", keywords[19])
}

func TestExtractKeywordsDuplicateInWindowDoesNotPullLaterTokens(t *testing.T) {
	// 21 surviving tokens with the first one duplicated. The window is the
	// first 20 tokens (19 unique), so the 21st token never makes it in.
	words := []string{"aaa"}
	for r := 'a'; r < 'a'+20; r++ {
		words = append(words, strings.Repeat(string(r), 3))
	}

	keywords := ExtractKeywords(strings.Join(words, " "))

	assert.Len(t, keywords, 19)
	assert.Equal(t, "sss", keywords[18])
	assert.NotContains(t, keywords, "ttt")
}
