package store

import (
	"fmt"

	"github.com/arloliu/seqstore/errs"
)

// State is the lifecycle state of a Store.
type State uint8

const (
	// StateNotStarted is the initial state: nothing has been written yet.
	StateNotStarted State = iota + 1
	// StateWriting means a write session is open and accepts values.
	StateWriting
	// StateWriteFinished means the file is complete and can be read any number of times.
	StateWriteFinished
	// StateFileRemoved is terminal: the file has been deleted.
	StateFileRemoved
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateWriting:
		return "Writing"
	case StateWriteFinished:
		return "WriteFinished"
	case StateFileRemoved:
		return "FileRemoved"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Op is a store operation subject to the lifecycle rules.
type Op uint8

const (
	OpOpen Op = iota + 1
	OpAdd
	OpClose
	OpIterate
	OpRemoveFile
)

func (o Op) String() string {
	switch o {
	case OpOpen:
		return "Open"
	case OpAdd:
		return "Add"
	case OpClose:
		return "Close"
	case OpIterate:
		return "Iter"
	case OpRemoveFile:
		return "RemoveFile"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(o))
	}
}

// transitions lists the legal moves. Anything missing is a protocol violation.
var transitions = map[State]map[Op]State{
	StateNotStarted: {
		OpOpen:       StateWriting,
		OpIterate:    StateWriteFinished,
		OpRemoveFile: StateFileRemoved,
	},
	StateWriting: {
		OpAdd:   StateWriting,
		OpClose: StateWriteFinished,
	},
	StateWriteFinished: {
		OpClose:      StateWriteFinished,
		OpIterate:    StateWriteFinished,
		OpRemoveFile: StateFileRemoved,
	},
}

// Transition returns the state reached by applying op to s.
//
// Returns:
//   - State: The next state, or s itself when op is rejected
//   - error: *ProtocolError wrapping errs.ErrProtocolViolation if op is not allowed in s
func (s State) Transition(op Op) (State, error) {
	next, ok := transitions[s][op]
	if !ok {
		return s, &ProtocolError{Op: op, State: s}
	}

	return next, nil
}

// ProtocolError reports an operation called in a state that does not allow it.
type ProtocolError struct {
	Op    Op
	State State
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: invalid call of %s in %s state", errs.ErrProtocolViolation, e.Op, e.State)
}

func (e *ProtocolError) Unwrap() error {
	return errs.ErrProtocolViolation
}
