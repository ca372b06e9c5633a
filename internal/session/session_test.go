package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/readaloud/internal/corpus"
	"github.com/verte-zerg/readaloud/internal/model"
	"github.com/verte-zerg/readaloud/internal/speech"
)

type manualClock struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (m *manualClock) schedule(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, fn)
}

func (m *manualClock) fire(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		t.Fatal("no pending restart")
	}
	fn := m.pending[0]
	m.pending = m.pending[1:]
	m.mu.Unlock()
	fn()
}

func (m *manualClock) scheduled() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

func newTestSession(t *testing.T, opts Options) (*Session, *speech.Fake, *manualClock) {
	t.Helper()
	fake := speech.NewFake()
	clock := &manualClock{}
	if opts.Schedule == nil {
		opts.Schedule = clock.schedule
	}
	s, err := New(corpus.New(nil), fake, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, fake, clock
}

func TestTranscriptsDriveEngine(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateListening, s.State())

	fake.Emit("the", false)
	fake.Emit("the quick", false)
	fake.Emit("the quick bro", false)

	snap := s.Snapshot()
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", snap.Text)
	assert.Equal(t, model.StatusCorrect, snap.Tokens[0].Status)
	assert.Equal(t, model.StatusCorrect, snap.Tokens[1].Status)
	assert.Equal(t, model.StatusCurrent, snap.Tokens[2].Status)
	assert.Equal(t, 2, snap.Cursor)
	assert.Equal(t, 2, snap.Streak)
	assert.Equal(t, "the quick bro", snap.Heard)
}

func TestTranscriptsIgnoredWhileIdle(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	fake.Emit("the", true)
	assert.Equal(t, 0, s.Snapshot().Cursor)
	assert.Empty(t, s.Snapshot().Heard)
}

func TestAdvanceOnFinalIgnoresInterim(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert, AdvanceOn: model.AdvanceOnFinal})
	require.NoError(t, s.Start(context.Background()))

	fake.Emit("the", false)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, "the", snap.Heard)

	fake.Emit("the", true)
	assert.Equal(t, 1, s.Snapshot().Cursor)
}

func TestEndRestartsCaptureWithBackoff(t *testing.T) {
	s, fake, clock := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))

	fake.End()
	assert.Equal(t, StateRestarting, s.State())
	clock.fire(t)
	assert.Equal(t, StateListening, s.State())
	assert.Equal(t, 2, fake.Starts())

	fake.End()
	clock.fire(t)
	assert.Equal(t, []time.Duration{speech.Backoff(0), speech.Backoff(1)}, clock.scheduled())
}

func TestTranscriptResetsRestartAttempts(t *testing.T) {
	s, fake, clock := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))

	fake.End()
	clock.fire(t)
	fake.Emit("the", true)
	fake.End()
	clock.fire(t)

	assert.Equal(t, []time.Duration{speech.Backoff(0), speech.Backoff(0)}, clock.scheduled())
	assert.Equal(t, StateListening, s.State())
}

func TestRestartLimitFails(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, fake, clock := newTestSession(t, Options{Level: model.Expert, MaxRestarts: 2, Logger: zap.New(core)})
	require.NoError(t, s.Start(context.Background()))

	fake.End()
	clock.fire(t)
	fake.End()
	clock.fire(t)
	fake.End()

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.ErrorIs(t, snap.Err, ErrRestartLimit)
	assert.Equal(t, 3, fake.Starts())
	assert.Equal(t, 1, logs.FilterMessage("capture restart limit reached").Len())
}

func TestNegativeMaxRestartsDisablesRestart(t *testing.T) {
	s, fake, clock := newTestSession(t, Options{Level: model.Expert, MaxRestarts: -1})
	require.NoError(t, s.Start(context.Background()))
	fake.End()
	assert.Equal(t, StateFailed, s.State())
	assert.Empty(t, clock.scheduled())
}

func TestStopCancelsPendingRestart(t *testing.T) {
	s, fake, clock := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))

	fake.End()
	require.NoError(t, s.Stop())
	clock.fire(t)

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, fake.Starts())
	assert.False(t, fake.Started())
}

func TestStopThenEndStaysIdle(t *testing.T) {
	s, fake, clock := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	assert.Equal(t, 1, fake.Stops())
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, clock.scheduled())
	require.NoError(t, s.Stop())
}

func TestFatalErrorStopsListening(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))

	fake.Fail(&speech.CaptureError{Kind: speech.KindPermission, Err: errors.New("denied")})
	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, speech.KindPermission, speech.KindOf(snap.Err))
	assert.False(t, fake.Started())

	s.Reset()
	snap = s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NoError(t, snap.Err)
}

func TestTransientErrorKeepsListening(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))
	fake.Fail(errors.New("network"))
	snap := s.Snapshot()
	assert.Equal(t, StateListening, snap.State)
	assert.EqualError(t, snap.Err, "network")
	assert.True(t, fake.Started())
}

func TestStartFailureThenRetry(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	fake.FailNextStart(&speech.CaptureError{Kind: speech.KindUnsupported})
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, speech.KindUnsupported, speech.KindOf(err))
	assert.Equal(t, StateFailed, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateListening, s.State())
	assert.ErrorContains(t, s.Start(context.Background()), "invalid transition")
}

func TestTransientStartFailureReturnsToIdle(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	fake.FailNextStart(errors.New("busy"))
	require.Error(t, s.Start(context.Background()))
	assert.Equal(t, StateIdle, s.State())
}

func TestTextNavigationWraps(t *testing.T) {
	c := corpus.New(nil)
	s, _, _ := newTestSession(t, Options{Level: model.Beginner})

	require.NoError(t, s.PrevText())
	snap := s.Snapshot()
	last := c.Count(model.Beginner) - 1
	assert.Equal(t, last, snap.Index)
	want, err := c.Text(model.Beginner, last)
	require.NoError(t, err)
	assert.Equal(t, want, snap.Text)
	assert.Equal(t, "strict", snap.Policy)

	require.NoError(t, s.NextText())
	assert.Equal(t, 0, s.Snapshot().Index)
}

func TestSetLevelSwitchesPolicy(t *testing.T) {
	s, _, _ := newTestSession(t, Options{Level: model.Beginner, Index: 2})
	assert.Equal(t, 2, s.Snapshot().Index)

	require.NoError(t, s.SetLevel(model.Learning))
	snap := s.Snapshot()
	assert.Equal(t, model.Learning, snap.Level)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "tolerant", snap.Policy)

	assert.Error(t, s.SetLevel(model.Difficulty("unknown")))
	assert.Equal(t, model.Learning, s.Snapshot().Level)
}

func TestSetTextUsesCustomBody(t *testing.T) {
	s, _, _ := newTestSession(t, Options{Level: model.Expert, Index: 3})
	assert.ErrorIs(t, s.SetText("   "), ErrEmptyText)

	require.NoError(t, s.SetText(" Hello there. "))
	snap := s.Snapshot()
	assert.True(t, snap.Custom)
	assert.Equal(t, "Hello there.", snap.Text)

	require.NoError(t, s.NextText())
	snap = s.Snapshot()
	assert.False(t, snap.Custom)
	assert.Equal(t, 3, snap.Index)
}

func TestResetRestartsText(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	require.NoError(t, s.Start(context.Background()))
	fake.Emit("the", false)
	fake.Emit("the quick", true)
	require.Equal(t, 2, s.Snapshot().Cursor)

	s.Reset()
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, 0, snap.Streak)
	assert.Empty(t, snap.Heard)
	assert.Equal(t, StateListening, snap.State)
}

func TestOnChangeObserversMayReenter(t *testing.T) {
	s, fake, _ := newTestSession(t, Options{Level: model.Expert})
	var states []State
	s.OnChange(func(snap Snapshot) {
		states = append(states, snap.State)
		_ = s.Snapshot()
	})
	require.NoError(t, s.Start(context.Background()))
	fake.Emit("the", true)
	require.NoError(t, s.Stop())
	assert.Equal(t, []State{StateListening, StateListening, StateIdle}, states)
}

func TestConcurrentTranscriptsAreSerialized(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s, fake, _ := newTestSession(t, Options{Level: model.Expert, Logger: zap.New(core)})
	require.NoError(t, s.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(final bool) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				fake.Emit("the", final)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Zero(t, logs.FilterMessage("ingest failed").Len())
	assert.Equal(t, 1, s.Snapshot().Cursor)
}

func TestNewRejectsEmptyLevel(t *testing.T) {
	_, err := New(corpus.New(nil), speech.NewFake(), Options{Level: model.Difficulty("none")})
	assert.ErrorIs(t, err, corpus.ErrEmptyLevel)
}
