// Package search holds the text-processing helpers behind the discovery
// service's full-text index.
package search

import (
	"strings"
	"unicode"
)

const maxKeywords = 20

// arabicRanges covers the Arabic blocks plus their presentation forms, so
// vendor-normalized and ligature text still tokenizes.
var arabicRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// ExtractKeywords tokenizes free text into at most 20 unique keywords for
// the sidecar keyword column. Punctuation is stripped, tokens of two runes
// or fewer are dropped, and order of first appearance is preserved. Only the
// first 20 surviving tokens are considered; duplicates inside that window
// collapse rather than pulling later tokens in, so fewer than 20 keywords
// can come back even from longer text.
func ExtractKeywords(parts ...string) []string {
	text := strings.ToLower(strings.Join(parts, " "))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.Is(arabicRanges, r),
			r >= 'a' && r <= 'z',
			r >= '0' && r <= '9',
			r == '_',
			unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	window := 0
	for _, token := range strings.Fields(b.String()) {
		if len([]rune(token)) <= 2 {
			continue
		}
		if window == maxKeywords {
			break
		}
		window++
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}
	return keywords
}
