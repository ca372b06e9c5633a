package speech

import (
	"context"
	"sync"
)

// Fake is a scripted capture for tests. Events are delivered synchronously on
// the caller's goroutine.
type Fake struct {
	listeners

	mu       sync.Mutex
	started  bool
	starts   int
	stops    int
	startErr error
}

// NewFake returns an idle Fake.
func NewFake() *Fake {
	return &Fake{}
}

// FailNextStart makes the next Start return err.
func (f *Fake) FailNextStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

// Start implements Capture.
func (f *Fake) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.startErr; err != nil {
		f.startErr = nil
		return err
	}
	if f.started {
		return ErrAlreadyStarted
	}
	f.started = true
	f.starts++
	return nil
}

// Stop implements Capture and emits OnEnd.
func (f *Fake) Stop() error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return ErrNotStarted
	}
	f.started = false
	f.stops++
	f.mu.Unlock()
	f.end()
	return nil
}

// Emit delivers a transcript update.
func (f *Fake) Emit(text string, final bool) {
	f.transcript(Update{Text: text, Final: final})
}

// Fail delivers an error event.
func (f *Fake) Fail(err error) {
	f.fail(err)
}

// End simulates the engine ending capture on its own, e.g. after silence.
func (f *Fake) End() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
	f.end()
}

// Started reports whether the fake is capturing.
func (f *Fake) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Starts returns how many times Start succeeded.
func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Stops returns how many times Stop succeeded.
func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
