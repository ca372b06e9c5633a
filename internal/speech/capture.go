// Package speech defines the continuous speech-capture capability consumed by a
// reading session, plus the transcript sources that implement it.
package speech

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

var (
	// ErrNotStarted is returned when a capture is used before Start.
	ErrNotStarted = errors.New("speech: capture not started")
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("speech: capture already started")
)

// Update is one transcript update. Text is the whole utterance recognized so
// far, not a delta.
type Update struct {
	Text  string
	Final bool
}

// Listener receives capture events.
type Listener interface {
	OnTranscript(Update)
	OnError(error)
	OnEnd()
}

// Capture is a continuous speech-to-text source.
//
// Start must not deliver events synchronously; the first event may arrive as
// soon as Start returns. Stop ends capture and is followed by OnEnd.
type Capture interface {
	Start(ctx context.Context) error
	Stop() error
	Subscribe(Listener) (unsubscribe func())
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Transcript func(Update)
	Error      func(error)
	End        func()
}

// OnTranscript implements Listener.
func (f ListenerFuncs) OnTranscript(u Update) {
	if f.Transcript != nil {
		f.Transcript(u)
	}
}

// OnError implements Listener.
func (f ListenerFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// OnEnd implements Listener.
func (f ListenerFuncs) OnEnd() {
	if f.End != nil {
		f.End()
	}
}

// ErrorKind classifies capture failures.
type ErrorKind string

const (
	// KindPermission means microphone access was denied.
	KindPermission ErrorKind = "permission"
	// KindUnsupported means the capability is unavailable.
	KindUnsupported ErrorKind = "unsupported"
	// KindTransient covers network hiccups, silence timeouts and similar.
	KindTransient ErrorKind = "transient"
)

// ParseErrorKind maps an engine error name to a kind. Unknown names are transient.
func ParseErrorKind(s string) ErrorKind {
	switch s {
	case "not-allowed", "service-not-allowed", string(KindPermission):
		return KindPermission
	case "audio-capture", "language-not-supported", string(KindUnsupported):
		return KindUnsupported
	default:
		return KindTransient
	}
}

// CaptureError is a classified capture failure.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech capture failed (%s)", e.Kind)
	}
	return fmt.Sprintf("speech capture failed (%s): %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// KindOf returns the kind of err, defaulting to KindTransient.
func KindOf(err error) ErrorKind {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// Fatal reports whether restarting capture after err is pointless.
func Fatal(err error) bool {
	k := KindOf(err)
	return k == KindPermission || k == KindUnsupported
}

const (
	backoffBase = 250 * time.Millisecond
	backoffMax  = 5 * time.Second
)

// Backoff returns the delay before restart attempt n (zero-based).
func Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return backoffBase
	}
	if attempt >= 5 {
		return backoffMax
	}
	return backoffBase << attempt
}

// listeners fans events out to subscribers.
type listeners struct {
	mu   sync.RWMutex
	next int
	subs map[int]Listener
}

func (l *listeners) Subscribe(lis Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.subs[id] = lis
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) snapshot() []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Listener, 0, len(l.subs))
	for _, id := range slices.Sorted(maps.Keys(l.subs)) {
		out = append(out, l.subs[id])
	}
	return out
}

func (l *listeners) transcript(u Update) {
	for _, lis := range l.snapshot() {
		lis.OnTranscript(u)
	}
}

func (l *listeners) fail(err error) {
	for _, lis := range l.snapshot() {
		lis.OnError(err)
	}
}

func (l *listeners) end() {
	for _, lis := range l.snapshot() {
		lis.OnEnd()
	}
}
