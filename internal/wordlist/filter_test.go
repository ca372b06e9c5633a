package wordlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilterEnglishASCII(t *testing.T) {
	filter := FilterForLang("en")
	if !filter("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"", "résumé", "naïve", "don’t", "co-op", "Hello", "r2d2"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterOtherLangKeepsNonEmpty(t *testing.T) {
	filter := FilterForLang("de")
	if !filter("straße") {
		t.Fatalf("expected non-english words to pass")
	}
	if filter("") {
		t.Fatalf("expected empty word to be rejected")
	}
}

func TestLoadWordsFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.txt")
	if err := os.WriteFile(path, []byte("# comment\nriver\n\nCaps\nstone\nco-op\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path, FilterForLang("en"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(words) != 2 || words[0] != "river" || words[1] != "stone" {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("Caps\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path, FilterForLang("en")); err == nil {
		t.Fatalf("expected error for list without usable words")
	}
}
