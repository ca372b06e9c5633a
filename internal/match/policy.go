package match

import (
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/text"
)

// Outcome is the verdict for one comparison of a spoken word against a target.
type Outcome int

const (
	// OutcomeNone means nothing was compared.
	OutcomeNone Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
	// OutcomePending means the spoken word looks like an unfinished partial.
	OutcomePending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	case OutcomePending:
		return "pending"
	default:
		return "none"
	}
}

// Result carries an outcome and the confidence in [0,100] behind it.
type Result struct {
	Outcome    Outcome
	Confidence float64
}

// Policy compares a target word with a spoken word.
type Policy interface {
	Name() string
	Match(target, spoken string) Result
}

// Tolerant accepts homophones and single-edit mistakes, and waits on short partials.
type Tolerant struct{}

// Name implements Policy.
func (Tolerant) Name() string { return "tolerant" }

// Match implements Policy.
func (Tolerant) Match(target, spoken string) Result {
	target, spoken = canonical(target), canonical(spoken)
	if spoken == "" {
		return Result{Outcome: OutcomeNone}
	}
	if SimilarSounding(target, spoken) {
		return Result{Outcome: OutcomeCorrect, Confidence: 100}
	}
	d := Distance(target, spoken)
	conf := Confidence(d)
	switch {
	case d <= 1:
		return Result{Outcome: OutcomeCorrect, Confidence: conf}
	case len(spoken) >= len(target):
		return Result{Outcome: OutcomeIncorrect, Confidence: conf}
	default:
		return Result{Outcome: OutcomePending, Confidence: conf}
	}
}

// Strict only accepts an exact normalized match.
type Strict struct{}

// Name implements Policy.
func (Strict) Name() string { return "strict" }

// Match implements Policy.
func (Strict) Match(target, spoken string) Result {
	target, spoken = canonical(target), canonical(spoken)
	if spoken == "" {
		return Result{Outcome: OutcomeNone}
	}
	if spoken == target {
		return Result{Outcome: OutcomeCorrect, Confidence: 100}
	}
	return Result{Outcome: OutcomeIncorrect, Confidence: Confidence(Distance(target, spoken))}
}

func canonical(w string) string {
	return text.StripPunctuation(text.NormalizeWord(w))
}

// PolicyFor returns the matching policy used at a difficulty level.
func PolicyFor(level model.Difficulty) Policy {
	if level == model.Beginner {
		return Strict{}
	}
	return Tolerant{}
}
