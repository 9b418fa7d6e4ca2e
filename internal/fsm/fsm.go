// Package fsm holds the capture-to-recognition cycle transition table.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle                State = "idle"
	StatePreparing           State = "preparing"
	StateRecording           State = "recording"
	StateFinalizing          State = "finalizing"
	StateAwaitingRecognition State = "awaiting_recognition"
	StateError               State = "error"
)

const (
	EventStart      Event = "start"
	EventRecord     Event = "record"
	EventStop       Event = "stop"
	EventRecorded   Event = "recorded"
	EventRecognized Event = "recognized"
	EventCancel     Event = "cancel"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

// table lists every legal edge. EventFail is accepted everywhere and is
// handled before the lookup.
var table = map[State]map[Event]State{
	StateIdle: {
		EventStart: StatePreparing,
	},
	// Stop during the countdown finalizes whatever the camera has so far.
	StatePreparing: {
		EventRecord: StateRecording,
		EventStop:   StateFinalizing,
		EventCancel: StateIdle,
	},
	StateRecording: {
		EventStop:   StateFinalizing,
		EventCancel: StateIdle,
	},
	StateFinalizing: {
		EventRecorded: StateAwaitingRecognition,
		EventCancel:   StateIdle,
	},
	// The upload is in flight; only its outcome moves the cycle on.
	StateAwaitingRecognition: {
		EventRecognized: StateIdle,
	},
	StateError: {
		EventReset: StateIdle,
	},
}

// Active reports whether a capture session currently owns the device.
func (s State) Active() bool {
	return s != StateIdle && s != StateError
}

// Transition returns the state reached from current on event. On error the
// returned state is current, unchanged.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	edges, known := table[current]
	if !known {
		return current, fmt.Errorf("unknown state %q", current)
	}
	next, ok := edges[event]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s on %s", current, event)
	}
	return next, nil
}

// Accepts reports whether event is legal in state s.
func (s State) Accepts(event Event) bool {
	if event == EventFail {
		return true
	}
	_, ok := table[s][event]
	return ok
}
