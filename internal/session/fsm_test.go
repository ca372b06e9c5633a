package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventEnd)
	require.NoError(t, err)
	require.Equal(t, StateRestarting, next)

	next, err = Transition(next, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesFailed(t *testing.T) {
	states := []State{StateIdle, StateListening, StateRestarting, StateFailed}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateFailed, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle end invalid", state: StateIdle, event: EventEnd, want: StateIdle, wantErr: true},
		{name: "listening start invalid", state: StateListening, event: EventStart, want: StateListening, wantErr: true},
		{name: "listening reset invalid", state: StateListening, event: EventReset, want: StateListening, wantErr: true},
		{name: "restarting end invalid", state: StateRestarting, event: EventEnd, want: StateRestarting, wantErr: true},
		{name: "restarting stop valid", state: StateRestarting, event: EventStop, want: StateIdle, wantErr: false},
		{name: "failed start invalid", state: StateFailed, event: EventStart, want: StateFailed, wantErr: true},
		{name: "failed reset valid", state: StateFailed, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestActive(t *testing.T) {
	require.True(t, StateListening.Active())
	require.True(t, StateRestarting.Active())
	require.False(t, StateIdle.Active())
	require.False(t, StateFailed.Active())
}
