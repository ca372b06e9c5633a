// Package corpus provides the practice texts for each difficulty level.
package corpus

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/readaloud/internal/model"
)

// ErrEmptyLevel is returned when a level has no texts.
var ErrEmptyLevel = errors.New("corpus: level has no texts")

var presets = map[model.Difficulty][]string{
	model.Beginner: {
		"A B C D E F G H I J K L M N O P Q R S T U V W X Y Z",
		"Z Y X W V U T S R Q P O N M L K J I H G F E D C B A",
		"1 2 3 4 5 6 7 8 9 10",
		"A E I O U",
	},
	model.Learning: {
		"Apple Ball Cat Dog Elephant Fish Game House Ice Juice King Lion Moon Nest Orange Pen Queen Rain Sun Tree Umbrella Van Water Xray Yellow Zoo",
		"Book Chair Door Eye Face Girl Hat Island Jump Kite Lamp Map Night Ocean Park Queen Room Star Time Up Van Wind Box Year Zebra",
		"Red Blue Green Yellow Pink Purple Orange Black White Brown",
		"One Two Three Four Five Six Seven Eight Nine Ten",
	},
	model.Expert: {
		"The quick brown fox jumps over the lazy dog.",
		"She sells seashells by the seashore.",
		"How much wood would a woodchuck chuck if a woodchuck could chuck wood?",
		"Peter Piper picked a peck of pickled peppers.",
		"Today is a beautiful day to learn and practice reading.",
		"The sun is shining brightly in the clear blue sky.",
		"Reading helps us learn new things and explore different worlds.",
		"Practice makes perfect, keep up the good work!",
		"Every day is a new opportunity to improve our reading skills.",
		"Learning to read is fun and exciting.",
		"Success is not final, failure is not fatal: it is the courage to continue that counts.",
		"Be the change you wish to see in the world.",
		"Every accomplishment starts with the decision to try.",
		"The only way to do great work is to love what you do.",
		"Believe you can and you're halfway there.",
		"Life is what happens while you're busy making other plans.",
	},
}

// Corpus maps difficulty levels to ordered candidate texts.
type Corpus struct {
	texts map[model.Difficulty][]string
}

// New returns a corpus of the built-in presets followed by the extra texts.
func New(extra map[model.Difficulty][]string) *Corpus {
	c := &Corpus{texts: make(map[model.Difficulty][]string, len(presets))}
	for level, texts := range presets {
		c.texts[level] = append([]string(nil), texts...)
	}
	for level, texts := range extra {
		c.Add(level, texts...)
	}
	return c
}

// Add appends texts to a level.
func (c *Corpus) Add(level model.Difficulty, texts ...string) {
	c.texts[level] = append(c.texts[level], texts...)
}

// Levels lists the levels in presentation order.
func (c *Corpus) Levels() []model.Difficulty {
	return model.Difficulties()
}

// Count returns the number of texts at a level.
func (c *Corpus) Count(level model.Difficulty) int {
	return len(c.texts[level])
}

// Text returns the text at index modulo the level's count. Negative indices wrap.
func (c *Corpus) Text(level model.Difficulty, index int) (string, error) {
	texts := c.texts[level]
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyLevel, level)
	}
	return texts[Wrap(index, len(texts))], nil
}

// Wrap maps index into [0, count).
func Wrap(index, count int) int {
	if count <= 0 {
		return 0
	}
	return ((index % count) + count) % count
}
