// Package session owns one reading session: the alignment engine, the speech
// capture feeding it, and the selection of the practice text.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/readaloud/internal/align"
	"github.com/verte-zerg/readaloud/internal/corpus"
	"github.com/verte-zerg/readaloud/internal/match"
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/speech"
)

// DefaultMaxRestarts bounds consecutive capture restarts without a transcript.
const DefaultMaxRestarts = 5

var (
	// ErrRestartLimit is recorded when capture keeps ending without results.
	ErrRestartLimit = errors.New("session: capture restart limit reached")
	// ErrEmptyText is returned by SetText for blank input.
	ErrEmptyText = errors.New("session: empty text")
)

// Options configures a Session. Zero values take defaults.
type Options struct {
	Level     model.Difficulty
	Index     int
	AdvanceOn model.AdvanceOn
	// MaxRestarts of 0 means DefaultMaxRestarts; negative disables restarts.
	MaxRestarts int
	Logger      *zap.Logger
	Backoff     func(attempt int) time.Duration
	// Schedule runs fn after d. It must not call fn synchronously.
	Schedule func(d time.Duration, fn func())
}

// Snapshot is the observable session state.
type Snapshot struct {
	align.Snapshot
	Level  model.Difficulty
	Index  int
	Count  int
	Custom bool
	State  State
	Err    error
	Heard  string
}

// Session serializes capture callbacks into the alignment engine and restarts
// capture when it ends on its own.
type Session struct {
	corpus      *corpus.Corpus
	capture     speech.Capture
	logger      *zap.Logger
	advanceOn   model.AdvanceOn
	maxRestarts int
	backoff     func(int) time.Duration
	schedule    func(time.Duration, func())
	unsubscribe func()

	mu        sync.Mutex
	engine    *align.Engine
	level     model.Difficulty
	index     int
	custom    bool
	state     State
	err       error
	heard     string
	attempt   int
	gen       int
	ctx       context.Context
	observers []func(Snapshot)
}

// New selects the text at opts.Index for opts.Level and subscribes to capture.
func New(c *corpus.Corpus, capture speech.Capture, opts Options) (*Session, error) {
	if c == nil {
		return nil, errors.New("session: nil corpus")
	}
	if capture == nil {
		return nil, errors.New("session: nil capture")
	}
	if opts.Level == "" {
		opts.Level = model.Expert
	}
	if opts.AdvanceOn == "" {
		opts.AdvanceOn = model.AdvanceOnAny
	}
	if opts.MaxRestarts == 0 {
		opts.MaxRestarts = DefaultMaxRestarts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Backoff == nil {
		opts.Backoff = speech.Backoff
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}

	count := c.Count(opts.Level)
	text, err := c.Text(opts.Level, opts.Index)
	if err != nil {
		return nil, err
	}
	s := &Session{
		corpus:      c,
		capture:     capture,
		logger:      opts.Logger.Named("session"),
		advanceOn:   opts.AdvanceOn,
		maxRestarts: opts.MaxRestarts,
		backoff:     opts.Backoff,
		schedule:    opts.Schedule,
		engine:      align.New(text, match.PolicyFor(opts.Level)),
		level:       opts.Level,
		index:       corpus.Wrap(opts.Index, count),
		state:       StateIdle,
		ctx:         context.Background(),
	}
	s.unsubscribe = capture.Subscribe(s)
	return s, nil
}

// OnChange registers fn to receive a snapshot after every state change.
// Observers run outside the session lock and may call back into the session.
func (s *Session) OnChange(fn func(Snapshot)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Start begins listening. Starting from failed clears the failure first.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateFailed {
		s.state, _ = Transition(s.state, EventReset)
	}
	next, err := Transition(s.state, EventStart)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.ctx = ctx
	s.gen++
	gen := s.gen
	s.attempt = 0
	s.err = nil
	s.mu.Unlock()

	err = s.capture.Start(ctx)
	if errors.Is(err, speech.ErrAlreadyStarted) {
		err = nil
	}
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			if speech.Fatal(err) {
				s.failLocked(err)
			} else {
				s.state, _ = Transition(s.state, EventStop)
				s.err = err
				s.gen++
			}
		}
		s.mu.Unlock()
		s.logger.Warn("capture start failed", zap.Error(err))
		err = fmt.Errorf("failed to start capture: %w", err)
	} else {
		s.logger.Info("listening")
	}
	s.notify()
	return err
}

// Stop ends listening and cancels any pending restart.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.state.Active() {
		s.mu.Unlock()
		return nil
	}
	s.state, _ = Transition(s.state, EventStop)
	s.gen++
	s.mu.Unlock()

	err := s.capture.Stop()
	if errors.Is(err, speech.ErrNotStarted) {
		err = nil
	}
	s.logger.Info("stopped listening")
	s.notify()
	return err
}

// Close stops listening and detaches from the capture.
func (s *Session) Close() error {
	err := s.Stop()
	s.unsubscribe()
	return err
}

// Reset restarts the current text from the beginning and clears a failure.
func (s *Session) Reset() {
	s.mu.Lock()
	s.engine.Reset()
	s.heard = ""
	if s.state == StateFailed {
		s.state, _ = Transition(s.state, EventReset)
		s.err = nil
	}
	s.mu.Unlock()
	s.notify()
}

// NextText moves to the next text of the current level.
func (s *Session) NextText() error {
	return s.selectText(func(index int) int { return index + 1 })
}

// PrevText moves to the previous text of the current level.
func (s *Session) PrevText() error {
	return s.selectText(func(index int) int { return index - 1 })
}

func (s *Session) selectText(step func(int) int) error {
	s.mu.Lock()
	index := s.index
	if !s.custom {
		index = step(index)
	}
	err := s.loadLocked(s.level, index)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// SetLevel switches level, selecting its first text and matching policy.
func (s *Session) SetLevel(level model.Difficulty) error {
	s.mu.Lock()
	err := s.loadLocked(level, 0)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.logger.Info("level changed", zap.String("level", string(level)))
	s.notify()
	return nil
}

// SetText practices a custom text with the current level's policy.
func (s *Session) SetText(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyText
	}
	s.mu.Lock()
	s.engine.Retarget(body, match.PolicyFor(s.level))
	s.custom = true
	s.heard = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) loadLocked(level model.Difficulty, index int) error {
	text, err := s.corpus.Text(level, index)
	if err != nil {
		return err
	}
	s.level = level
	s.index = corpus.Wrap(index, s.corpus.Count(level))
	s.custom = false
	s.heard = ""
	s.engine.Retarget(text, match.PolicyFor(level))
	return nil
}

// State returns the listening state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Snapshot: s.engine.Snapshot(),
		Level:    s.level,
		Index:    s.index,
		Count:    s.corpus.Count(s.level),
		Custom:   s.custom,
		State:    s.state,
		Err:      s.err,
		Heard:    s.heard,
	}
}

// OnTranscript implements speech.Listener.
func (s *Session) OnTranscript(u speech.Update) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.attempt = 0
	s.heard = u.Text
	if s.advanceOn == model.AdvanceOnFinal && !u.Final {
		s.mu.Unlock()
		s.notify()
		return
	}
	outcome, err := s.engine.Ingest(u.Text)
	complete := s.engine.Complete()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("ingest failed", zap.Error(err))
	} else if outcome != match.OutcomeNone {
		s.logger.Debug("ingest",
			zap.String("transcript", u.Text),
			zap.Bool("final", u.Final),
			zap.Stringer("outcome", outcome),
			zap.Bool("complete", complete),
		)
	}
	s.notify()
}

// OnError implements speech.Listener. Permission and unsupported errors stop
// listening; transient ones wait for the end event.
func (s *Session) OnError(err error) {
	fatal := speech.Fatal(err)
	s.mu.Lock()
	if fatal {
		s.failLocked(err)
	} else {
		s.err = err
	}
	s.mu.Unlock()

	if fatal {
		s.logger.Error("capture failed", zap.Error(err))
		if stopErr := s.capture.Stop(); stopErr != nil && !errors.Is(stopErr, speech.ErrNotStarted) {
			s.logger.Warn("capture stop failed", zap.Error(stopErr))
		}
	} else {
		s.logger.Warn("capture error", zap.Error(err))
	}
	s.notify()
}

// OnEnd implements speech.Listener.
func (s *Session) OnEnd() {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state, _ = Transition(s.state, EventEnd)
	s.scheduleRestartLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Session) scheduleRestartLocked() {
	if s.maxRestarts < 0 || s.attempt >= s.maxRestarts {
		s.failLocked(ErrRestartLimit)
		s.logger.Warn("capture restart limit reached", zap.Int("attempts", s.attempt))
		return
	}
	delay := s.backoff(s.attempt)
	s.attempt++
	gen := s.gen
	s.logger.Info("restarting capture", zap.Int("attempt", s.attempt), zap.Duration("delay", delay))
	s.schedule(delay, func() { s.restart(gen) })
}

func (s *Session) restart(gen int) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateRestarting {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	err := s.capture.Start(ctx)
	started := err == nil
	if errors.Is(err, speech.ErrAlreadyStarted) {
		err = nil
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateRestarting {
		active := s.state.Active()
		s.mu.Unlock()
		if started && !active {
			_ = s.capture.Stop()
		}
		return
	}
	switch {
	case err == nil:
		s.state, _ = Transition(s.state, EventStart)
	case speech.Fatal(err):
		s.failLocked(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.state, _ = Transition(s.state, EventStop)
		s.gen++
	default:
		s.err = err
		s.scheduleRestartLocked()
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) failLocked(err error) {
	s.state, _ = Transition(s.state, EventFail)
	s.err = err
	s.gen++
}

func (s *Session) notify() {
	s.mu.Lock()
	if len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}
