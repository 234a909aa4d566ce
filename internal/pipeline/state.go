package pipeline

import "fmt"

// State is the driver's position in the run lifecycle.
//
// The lifecycle is linear:
//
//	IDLE -> SCANNING -> INVOKING -> EMITTING -> DONE
//
// with FAILED reachable from any non-terminal state on an unrecoverable
// precondition failure. Per-job subsetting failures do NOT move the driver to
// FAILED; they are recorded on the summary and the run continues.
type State string

const (
	StateIdle     State = "IDLE"
	StateScanning State = "SCANNING"
	StateInvoking State = "INVOKING"
	StateEmitting State = "EMITTING"
	StateDone     State = "DONE"
	StateFailed   State = "FAILED"
)

// IsTerminal reports whether the state is terminal.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}

// transition validates and applies a state change. An invalid transition is a
// programming error surfaced as an error rather than a panic so the driver
// can fold it into its returned failure.
func (d *Driver) transition(to State) error {
	if !isAllowedTransition(d.state, to) {
		return fmt.Errorf("disallowed pipeline transition: %s -> %s", d.state, to)
	}
	d.state = to
	return nil
}

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return !IsTerminal(from)
	}
	switch from {
	case StateIdle:
		return to == StateScanning
	case StateScanning:
		return to == StateInvoking
	case StateInvoking:
		return to == StateEmitting
	case StateEmitting:
		return to == StateDone
	default:
		return false
	}
}
