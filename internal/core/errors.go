package core

import (
	"errors"
	"fmt"
)

var (
	ErrActorStopped        = errors.New("actor is stopped")
	ErrUnknownState        = errors.New("unknown state")
	ErrUnknownChild        = errors.New("unknown child actor")
	ErrDuplicateChild      = errors.New("child id already in use")
	ErrFingerprintMismatch = errors.New("checkpoint was taken from a different definition")
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrMicrostepLimit      = errors.New("raised event limit exceeded")
)

// ActionError reports an action that failed or panicked. The transition it
// belonged to is aborted; the actor keeps running.
type ActionError struct {
	ActorID string
	State   string
	Event   string
	Action  string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("actor %s: action %s in state %s on event %q: %v", e.ActorID, e.Action, e.State, e.Event, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// GuardError reports a guard whose evaluation failed. It is never treated as
// a false result: the event is dropped without trying further candidates.
type GuardError struct {
	ActorID string
	State   string
	Event   string
	Guard   string
	Err     error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("actor %s: guard %s in state %s on event %q: %v", e.ActorID, e.Guard, e.State, e.Event, e.Err)
}

func (e *GuardError) Unwrap() error { return e.Err }

// ActivityError reports an activity that returned an error or panicked. Only
// that activity stops.
type ActivityError struct {
	ActorID  string
	State    string
	Activity string
	Err      error
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("actor %s: activity %s of state %s: %v", e.ActorID, e.Activity, e.State, e.Err)
}

func (e *ActivityError) Unwrap() error { return e.Err }

func IsActionError(err error) bool {
	var e *ActionError
	return errors.As(err, &e)
}

func IsGuardError(err error) bool {
	var e *GuardError
	return errors.As(err, &e)
}

func IsActivityError(err error) bool {
	var e *ActivityError
	return errors.As(err, &e)
}
