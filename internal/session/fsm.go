package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for events the current state does not accept.
var ErrInvalidTransition = errors.New("invalid transition")

// State is the listening state of a session.
type State string

// Event drives listening state transitions.
type Event string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateRestarting State = "restarting"
	StateFailed     State = "failed"
)

const (
	EventStart Event = "start"
	EventStop  Event = "stop"
	EventEnd   Event = "end"
	EventFail  Event = "fail"
	EventReset Event = "reset"
)

// Transition returns the state reached from current on event.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateFailed, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateListening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateIdle, nil
		case EventEnd:
			return StateRestarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRestarting:
		switch event {
		case EventStart:
			return StateListening, nil
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFailed:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether the session wants capture running.
func (s State) Active() bool {
	return s == StateListening || s == StateRestarting
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
