// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Config defines practice settings.
type Config struct {
	Level       Difficulty
	Index       int
	Source      string
	AdvanceOn   AdvanceOn
	Text        string
	Lang        string
	WordList    string
	Words       int
	MaxRestarts int
	NATSURL     string
	NATSSubject string
}

// Status is the alignment state of a single token.
type Status int

const (
	StatusWaiting Status = iota
	StatusCurrent
	StatusCorrect
	StatusIncorrect
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCurrent:
		return "current"
	case StatusCorrect:
		return "correct"
	case StatusIncorrect:
		return "incorrect"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Token is one word or punctuation unit of a canonicalized target text.
type Token struct {
	Text          string
	IsPunctuation bool
	Status        Status
	Confidence    float64
}

// Difficulty selects the preset texts and the matching policy.
type Difficulty string

const (
	Beginner Difficulty = "beginner"
	Learning Difficulty = "learning"
	Expert   Difficulty = "expert"
)

// Difficulties lists the levels in presentation order.
func Difficulties() []Difficulty {
	return []Difficulty{Beginner, Learning, Expert}
}

// ParseDifficulty accepts a level name. "intermediate" is an alias for learning.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, nil
	case "learning", "intermediate":
		return Learning, nil
	case "expert":
		return Expert, nil
	default:
		return "", fmt.Errorf("unknown level %q (available: beginner, learning, expert)", s)
	}
}

// Next returns the level after d, wrapping around.
func (d Difficulty) Next() Difficulty {
	levels := Difficulties()
	for i, l := range levels {
		if l == d {
			return levels[(i+1)%len(levels)]
		}
	}
	return levels[0]
}

// AdvanceOn controls which transcript updates may move the cursor.
type AdvanceOn string

const (
	// AdvanceOnAny ingests interim and final updates alike.
	AdvanceOnAny AdvanceOn = "any"
	// AdvanceOnFinal ignores interim updates.
	AdvanceOnFinal AdvanceOn = "final"
)

// ParseAdvanceOn validates an advance-on setting.
func ParseAdvanceOn(s string) (AdvanceOn, error) {
	switch AdvanceOn(strings.ToLower(strings.TrimSpace(s))) {
	case AdvanceOnAny, "":
		return AdvanceOnAny, nil
	case AdvanceOnFinal:
		return AdvanceOnFinal, nil
	default:
		return "", fmt.Errorf("unknown advance-on value %q (available: any, final)", s)
	}
}

// CustomText is a user-supplied practice text stored in the library.
type CustomText struct {
	ID        int64
	Level     Difficulty
	Body      string
	CreatedAt time.Time
}
