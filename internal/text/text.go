// Package text canonicalizes target texts and spoken fragments.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/readaloud/internal/model"
)

var punctuationPattern = regexp.MustCompile(`^[.!?,]+$`)

// IsPunctuation reports whether s consists solely of sentence punctuation.
func IsPunctuation(s string) bool {
	return punctuationPattern.MatchString(s)
}

func isPunctRune(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == ','
}

func isAllowed(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || isPunctRune(r)
}

// NormalizeWord lowercases w, folds accents and drops every character outside
// [a-z0-9 .!?,]. It is idempotent.
func NormalizeWord(w string) string {
	w = foldMarks(strings.ToLower(w))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if isAllowed(r) {
			return r
		}
		return -1
	}, w)
}

// foldMarks decomposes s and removes combining marks so "café" keeps its e.
func foldMarks(s string) string {
	for _, r := range s {
		if r >= unicode.MaxASCII {
			t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
			out, _, err := transform.String(t, s)
			if err != nil {
				return s
			}
			return out
		}
	}
	return s
}

// Tokenize converts raw text into an ordered token sequence. Each run of
// punctuation becomes its own token. The first content token is Current.
func Tokenize(raw string) []model.Token {
	cleaned := NormalizeWord(raw)

	var b strings.Builder
	b.Grow(len(cleaned) + 8)
	prevPunct := false
	for _, r := range cleaned {
		punct := isPunctRune(r)
		if punct != prevPunct {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prevPunct = punct
	}

	fields := strings.Fields(b.String())
	tokens := make([]model.Token, 0, len(fields))
	current := false
	for _, f := range fields {
		tok := model.Token{Text: f, IsPunctuation: IsPunctuation(f)}
		if !tok.IsPunctuation && !current {
			tok.Status = model.StatusCurrent
			current = true
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// LastWord returns the newest spoken word of a transcript, normalized and with
// punctuation removed. Empty when the transcript holds no word.
func LastWord(transcript string) string {
	fields := strings.Fields(NormalizeWord(transcript))
	if len(fields) == 0 {
		return ""
	}
	return StripPunctuation(fields[len(fields)-1])
}

// StripPunctuation removes sentence punctuation and surrounding spaces.
func StripPunctuation(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if isPunctRune(r) {
			return -1
		}
		return r
	}, s))
}

// ContentCount returns the number of non-punctuation tokens.
func ContentCount(tokens []model.Token) int {
	n := 0
	for _, t := range tokens {
		if !t.IsPunctuation {
			n++
		}
	}
	return n
}
