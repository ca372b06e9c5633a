// Package align tracks a reader's progress through a target text, one spoken
// word at a time.
//
// An Engine is owned by a single reading session. Ingest is not safe for
// concurrent use; callers serialize transcript updates. The in-flight guard
// only exists to surface a misbehaving caller.
package align

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/verte-zerg/readaloud/internal/match"
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/text"
)

var (
	// ErrNotInitialized is returned when Ingest is called on an Engine not built by New.
	ErrNotInitialized = errors.New("align: engine not initialized")
	// ErrConcurrentIngest is returned when Ingest is re-entered before the previous call returned.
	ErrConcurrentIngest = errors.New("align: concurrent ingest")
)

// Engine is the alignment state of one reading session.
type Engine struct {
	text   string
	policy match.Policy

	tokens       []model.Token
	cursor       int
	swept        int
	contentCount int
	correctCount int

	lastInput  string
	streak     int
	bestStreak int
	attempts   Counts
	progress   float64

	initialized bool
	inFlight    atomic.Bool
}

// Counts tallies settled comparisons in a session.
type Counts struct {
	Correct   int
	Incorrect int
}

// Snapshot is a read-only copy of the engine state for presenters.
type Snapshot struct {
	Text       string
	Policy     string
	Tokens     []model.Token
	Cursor     int
	Progress   float64
	Streak     int
	BestStreak int
	Counts     Counts
	Complete   bool
}

// New builds an engine for text. A nil policy means match.Tolerant.
func New(text string, policy match.Policy) *Engine {
	e := &Engine{}
	e.Retarget(text, policy)
	return e
}

// Retarget replaces the target text and policy and rebuilds all state from
// scratch. A nil policy keeps the current one.
func (e *Engine) Retarget(text string, policy match.Policy) {
	e.text = text
	if policy != nil {
		e.policy = policy
	}
	e.Reset()
}

// Reset rebuilds the token sequence from the current text and clears progress,
// streak and duplicate tracking.
func (e *Engine) Reset() {
	if e.policy == nil {
		e.policy = match.Tolerant{}
	}
	e.tokens = text.Tokenize(e.text)
	e.contentCount = text.ContentCount(e.tokens)
	e.cursor = e.nextContent(0)
	e.swept = 0
	e.correctCount = 0
	e.lastInput = ""
	e.streak = 0
	e.bestStreak = 0
	e.attempts = Counts{}
	e.progress = 0
	e.initialized = true
}

// Ingest feeds one transcript update. The newest word of the transcript is
// compared against the word at the cursor. Empty, duplicate and post-completion
// updates are ignored and report match.OutcomeNone.
func (e *Engine) Ingest(transcript string) (match.Outcome, error) {
	if e == nil || !e.initialized {
		return match.OutcomeNone, ErrNotInitialized
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return match.OutcomeNone, ErrConcurrentIngest
	}
	defer e.inFlight.Store(false)

	if strings.TrimSpace(transcript) == "" || transcript == e.lastInput {
		return match.OutcomeNone, nil
	}
	e.lastInput = transcript

	if e.Complete() {
		return match.OutcomeNone, nil
	}
	tok := &e.tokens[e.cursor]
	if tok.IsPunctuation {
		return match.OutcomeNone, nil
	}
	spoken := text.LastWord(transcript)
	if spoken == "" {
		return match.OutcomeNone, nil
	}

	res := e.policy.Match(tok.Text, spoken)
	switch res.Outcome {
	case match.OutcomeCorrect:
		tok.Status = model.StatusCorrect
		tok.Confidence = res.Confidence
		e.correctCount++
		e.attempts.Correct++
		e.streak++
		if e.streak > e.bestStreak {
			e.bestStreak = e.streak
		}
		e.advance()
		e.progress = float64(e.correctCount) / float64(e.contentCount)
	case match.OutcomeIncorrect:
		tok.Status = model.StatusIncorrect
		tok.Confidence = res.Confidence
		e.attempts.Incorrect++
		e.streak = 0
	case match.OutcomePending:
		tok.Status = model.StatusCurrent
		tok.Confidence = res.Confidence
	}
	return res.Outcome, nil
}

// advance moves the cursor past the matched token, marking every punctuation
// token it passes as correct.
func (e *Engine) advance() {
	e.cursor = e.nextContent(e.cursor + 1)
	for ; e.swept < e.cursor; e.swept++ {
		tok := &e.tokens[e.swept]
		if tok.IsPunctuation {
			tok.Status = model.StatusCorrect
			tok.Confidence = 100
		}
	}
	if e.cursor < len(e.tokens) {
		e.tokens[e.cursor].Status = model.StatusCurrent
		e.tokens[e.cursor].Confidence = 0
	}
}

func (e *Engine) nextContent(from int) int {
	for i := from; i < len(e.tokens); i++ {
		if !e.tokens[i].IsPunctuation {
			return i
		}
	}
	return len(e.tokens)
}

// Complete reports whether no target word remains.
func (e *Engine) Complete() bool {
	return e.cursor >= len(e.tokens)
}

// Cursor returns the index of the expected token, or len(Tokens()) when complete.
func (e *Engine) Cursor() int { return e.cursor }

// Progress returns the fraction of content tokens read correctly.
func (e *Engine) Progress() float64 { return e.progress }

// Streak returns the number of consecutive correct words.
func (e *Engine) Streak() int { return e.streak }

// BestStreak returns the longest streak since the last reset.
func (e *Engine) BestStreak() int { return e.bestStreak }

// Text returns the raw target text.
func (e *Engine) Text() string { return e.text }

// Policy returns the active matching policy.
func (e *Engine) Policy() match.Policy { return e.policy }

// Tokens returns a copy of the token sequence.
func (e *Engine) Tokens() []model.Token {
	out := make([]model.Token, len(e.tokens))
	copy(out, e.tokens)
	return out
}

// Snapshot copies the presentable state.
func (e *Engine) Snapshot() Snapshot {
	policy := ""
	if e.policy != nil {
		policy = e.policy.Name()
	}
	return Snapshot{
		Text:       e.text,
		Policy:     policy,
		Tokens:     e.Tokens(),
		Cursor:     e.cursor,
		Progress:   e.progress,
		Streak:     e.streak,
		BestStreak: e.bestStreak,
		Counts:     e.attempts,
		Complete:   e.Complete(),
	}
}
