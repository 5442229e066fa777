package pulse

import (
	"errors"
	"fmt"
)

// ErrTickInProgress is returned by RunOnce when a previous tick has not finished.
var ErrTickInProgress = errors.New("reconciliation tick already in progress")

// EvaluationError reports that a device's liveness could not be determined.
// The device is treated as unchanged and retried next tick.
type EvaluationError struct {
	DeviceID string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate device %s: %v", e.DeviceID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// PersistenceError reports that a detected transition could not be stored.
// Nothing is broadcast for it; the transition is detected again next tick.
type PersistenceError struct {
	DeviceID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist device %s: %v", e.DeviceID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
