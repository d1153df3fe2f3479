package primitives

import (
	"errors"
	"fmt"
)

// DefinitionError reports an invalid machine definition. It is returned by
// Define and is always fatal: no Definition is produced.
type DefinitionError struct {
	MachineID string
	// Path locates the offending element, e.g. "states.idle.on.START[0]".
	Path   string
	Reason error
}

func (e *DefinitionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("machine %q: invalid definition: %v", e.MachineID, e.Reason)
	}
	return fmt.Sprintf("machine %q: invalid definition at %s: %v", e.MachineID, e.Path, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return e.Reason
}

func NewDefinitionError(machineID, path string, reason error) *DefinitionError {
	return &DefinitionError{MachineID: machineID, Path: path, Reason: reason}
}

func IsDefinitionError(err error) bool {
	var e *DefinitionError
	return errors.As(err, &e)
}

var (
	ErrUnknownTarget    = errors.New("unknown target state")
	ErrUnknownDelayID   = errors.New("cancel references an undeclared delay id")
	ErrDuplicateDelayID = errors.New("delay id declared twice")
	ErrContextMismatch  = errors.New("context does not conform to shape")
)
