// Package wordlist loads and filters word lists for drill texts.
package wordlist

import (
	"strings"

	"github.com/verte-zerg/readaloud/internal/text"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns a language-specific filter for word lists.
func FilterForLang(lang string) FilterFunc {
	switch strings.ToLower(lang) {
	case "en", "en-us", "en-gb":
		return speakableEnglish
	default:
		return func(word string) bool { return word != "" }
	}
}

// speakableEnglish keeps lowercase ASCII words that survive normalization
// unchanged, so a drill never shows a word the matcher would rewrite.
func speakableEnglish(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return text.NormalizeWord(word) == word
}
