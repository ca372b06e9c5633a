package corpus

import (
	"math/rand"
	"strings"
	"time"
	"unicode"
)

const sentencePunct = ".!?"

// Generator builds drill texts from a word list.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a Generator seeded with the current time.
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed returns a deterministic Generator.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate picks count words uniformly and groups them into short sentences.
// Each sentence starts with a capital and ends with a random mark from ".!?".
func (g *Generator) Generate(words []string, count, sentenceLen int) string {
	if len(words) == 0 || count <= 0 {
		return ""
	}
	if sentenceLen <= 0 {
		sentenceLen = count
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		word := words[g.rnd.Intn(len(words))]
		if i%sentenceLen == 0 {
			word = capitalize(word)
		}
		if i%sentenceLen == sentenceLen-1 || i == count-1 {
			word = g.applyPunct(word)
		}
		result = append(result, word)
	}
	return strings.Join(result, " ")
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func (g *Generator) applyPunct(word string) string {
	punct := []rune(sentencePunct)
	return word + string(punct[g.rnd.Intn(len(punct))])
}
