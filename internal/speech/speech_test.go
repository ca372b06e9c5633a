package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	updates []Update
	errs    []error
	ends    int
	endCh   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{endCh: make(chan struct{}, 8)}
}

func (r *recorder) OnTranscript(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) OnEnd() {
	r.mu.Lock()
	r.ends++
	r.mu.Unlock()
	r.endCh <- struct{}{}
}

func (r *recorder) snapshot() ([]Update, []error, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...), append([]error(nil), r.errs...), r.ends
}

func TestBackoffIsMonotoneAndCapped(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, Backoff(-3))
	assert.Equal(t, 250*time.Millisecond, Backoff(0))
	assert.Equal(t, 500*time.Millisecond, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(4))
	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		d := Backoff(i)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, 5*time.Second)
		prev = d
	}
}

func TestErrorKinds(t *testing.T) {
	perm := &CaptureError{Kind: ParseErrorKind("not-allowed"), Err: errors.New("denied")}
	wrapped := fmt.Errorf("start: %w", perm)
	assert.Equal(t, KindPermission, KindOf(wrapped))
	assert.True(t, Fatal(wrapped))
	assert.ErrorContains(t, perm, "permission")

	assert.Equal(t, KindUnsupported, ParseErrorKind("audio-capture"))
	assert.Equal(t, KindTransient, ParseErrorKind("no-speech"))
	assert.Equal(t, KindTransient, KindOf(errors.New("plain")))
	assert.False(t, Fatal(errors.New("plain")))
}

func TestListenerFuncsIgnoresNil(t *testing.T) {
	var got []string
	l := ListenerFuncs{Transcript: func(u Update) { got = append(got, u.Text) }}
	l.OnTranscript(Update{Text: "hi"})
	l.OnError(errors.New("x"))
	l.OnEnd()
	assert.Equal(t, []string{"hi"}, got)
}

func TestFakeDeliversToSubscribers(t *testing.T) {
	f := NewFake()
	a, b := newRecorder(), newRecorder()
	unsubA := f.Subscribe(a)
	f.Subscribe(b)

	require.NoError(t, f.Start(context.Background()))
	assert.ErrorIs(t, f.Start(context.Background()), ErrAlreadyStarted)
	f.Emit("the", false)
	unsubA()
	unsubA()
	f.Emit("the quick", true)
	f.Fail(errors.New("boom"))
	require.NoError(t, f.Stop())
	assert.ErrorIs(t, f.Stop(), ErrNotStarted)

	ua, _, endsA := a.snapshot()
	ub, errsB, endsB := b.snapshot()
	assert.Equal(t, []Update{{Text: "the"}}, ua)
	assert.Equal(t, 0, endsA)
	assert.Equal(t, []Update{{Text: "the"}, {Text: "the quick", Final: true}}, ub)
	assert.Len(t, errsB, 1)
	assert.Equal(t, 1, endsB)
	assert.Equal(t, 1, f.Starts())
	assert.Equal(t, 1, f.Stops())
}

func TestFakeFailNextStart(t *testing.T) {
	f := NewFake()
	f.FailNextStart(&CaptureError{Kind: KindPermission})
	err := f.Start(context.Background())
	assert.Equal(t, KindPermission, KindOf(err))
	assert.False(t, f.Started())
	require.NoError(t, f.Start(context.Background()))
	assert.True(t, f.Started())
}

func TestKeyboardDeliversInOrderThenEnds(t *testing.T) {
	k := NewKeyboardCapture()
	rec := newRecorder()
	k.Subscribe(rec)

	assert.ErrorIs(t, k.Type("x"), ErrNotStarted)
	require.NoError(t, k.Start(context.Background()))
	assert.True(t, k.Listening())

	require.NoError(t, k.Type("t"))
	require.NoError(t, k.Type("th"))
	require.NoError(t, k.Type("the"))
	require.NoError(t, k.Submit("the"))
	require.NoError(t, k.Stop())
	assert.False(t, k.Listening())

	select {
	case <-rec.endCh:
	case <-time.After(2 * time.Second):
		t.Fatal("keyboard capture never ended")
	}
	updates, _, ends := rec.snapshot()
	assert.Equal(t, []Update{{Text: "t"}, {Text: "th"}, {Text: "the"}, {Text: "the", Final: true}}, updates)
	assert.Equal(t, 1, ends)
	assert.ErrorIs(t, k.Stop(), ErrNotStarted)
}

func TestNATSHandleDispatchesMessages(t *testing.T) {
	c := NewNATSCapture(NATSConfig{}, nil)
	assert.Equal(t, DefaultNATSSubject, c.cfg.Subject)
	rec := newRecorder()
	c.Subscribe(rec)

	c.handle([]byte(`{"text":"the quick","final":false}`))
	c.handle([]byte(`{"text":"the quick fox","final":true}`))
	c.handle([]byte(`not json`))
	c.handle([]byte(`{"error":"not-allowed"}`))
	c.handle([]byte(`{"end":true}`))

	updates, errs, ends := rec.snapshot()
	assert.Equal(t, []Update{{Text: "the quick"}, {Text: "the quick fox", Final: true}}, updates)
	require.Len(t, errs, 1)
	assert.Equal(t, KindPermission, KindOf(errs[0]))
	assert.Equal(t, 1, ends)
}

func TestNATSStopBeforeStart(t *testing.T) {
	c := NewNATSCapture(NATSConfig{URL: "nats://127.0.0.1:1"}, nil)
	assert.ErrorIs(t, c.Stop(), ErrNotStarted)
}

func TestNATSStartHonoursCancelledContext(t *testing.T) {
	c := NewNATSCapture(NATSConfig{URL: "nats://127.0.0.1:1"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Start(ctx), context.Canceled)
}
