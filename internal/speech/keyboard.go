package speech

import (
	"context"
	"errors"
	"sync"
)

const keyboardBacklog = 256

// ErrBacklog is returned when typed updates arrive faster than they are consumed.
var ErrBacklog = errors.New("speech: keyboard backlog full")

// KeyboardCapture turns typed text into transcript updates. Every edit of the
// input line is an interim update; submitting the line is a final update.
// Delivery happens on a dedicated goroutine in the order updates were typed.
type KeyboardCapture struct {
	listeners

	mu    sync.Mutex
	queue chan Update
}

// NewKeyboardCapture returns an idle keyboard source.
func NewKeyboardCapture() *KeyboardCapture {
	return &KeyboardCapture{}
}

// Start implements Capture.
func (k *KeyboardCapture) Start(context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queue != nil {
		return ErrAlreadyStarted
	}
	q := make(chan Update, keyboardBacklog)
	k.queue = q
	go k.pump(q)
	return nil
}

func (k *KeyboardCapture) pump(q <-chan Update) {
	for u := range q {
		k.transcript(u)
	}
	k.end()
}

// Stop implements Capture. Updates already queued are still delivered before OnEnd.
func (k *KeyboardCapture) Stop() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queue == nil {
		return ErrNotStarted
	}
	close(k.queue)
	k.queue = nil
	return nil
}

// Listening reports whether the source is started.
func (k *KeyboardCapture) Listening() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.queue != nil
}

// Type queues an interim update carrying the current input line.
func (k *KeyboardCapture) Type(line string) error {
	return k.send(Update{Text: line})
}

// Submit queues a final update carrying the finished input line.
func (k *KeyboardCapture) Submit(line string) error {
	return k.send(Update{Text: line, Final: true})
}

func (k *KeyboardCapture) send(u Update) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.queue == nil {
		return ErrNotStarted
	}
	select {
	case k.queue <- u:
		return nil
	default:
		return ErrBacklog
	}
}
