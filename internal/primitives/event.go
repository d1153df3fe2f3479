// Event provides the immutable event primitive used by the interpreter.
//
// # Immutability
//
// Event fields are exported for convenience in read-only contexts, but consumers MUST
// NOT modify them after construction.
package primitives

import "strings"

// Built-in event types produced by the interpreter itself.
const (
	// InitEvent is passed to the initial state's entry actions.
	InitEvent = "actorchart.init"
	// afterPrefix prefixes the type of events produced by fired delays.
	afterPrefix = "actorchart.after:"
)

type Event struct {
	Type string `json:"type" yaml:"type"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEvent creates and returns a new immutable Event.
func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}

// AfterEvent returns the event delivered when the delay with the given id fires.
func AfterEvent(delayID string) Event {
	return Event{Type: afterPrefix + delayID}
}

// DelayID reports the delay id carried by an event produced by AfterEvent.
func (e Event) DelayID() (string, bool) {
	return strings.CutPrefix(e.Type, afterPrefix)
}
