// Options for configuring Actor instances.
package core

import (
	"log/slog"
	"maps"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// Option applies configuration to an Actor via functional options pattern.
type Option func(*Actor)

// HandlerPrecedence orders per-state and global handlers for the same event.
type HandlerPrecedence int

const (
	// StateFirst tries the current state's handlers before global ones.
	StateFirst HandlerPrecedence = iota
	// GlobalFirst tries global handlers before the current state's.
	GlobalFirst
)

func (p HandlerPrecedence) String() string {
	if p == GlobalFirst {
		return "global-first"
	}
	return "state-first"
}

// WithID sets the actor id. The default is "<machineID>_<uuid>".
func WithID(id string) Option {
	return func(a *Actor) {
		a.id = id
	}
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Actor) {
		if l != nil {
			a.baseLogger = l
		}
	}
}

// WithInspector attaches an Inspector. Children inherit it.
func WithInspector(i Inspector) Option {
	return func(a *Actor) {
		a.inspector = i
	}
}

// WithPersister saves a checkpoint after every committed step.
func WithPersister(p Persister) Option {
	return func(a *Actor) {
		a.persister = p
	}
}

// WithPublisher forwards emitted values to p.
func WithPublisher(p Publisher) Option {
	return func(a *Actor) {
		a.publisher = p
	}
}

// WithEventSource sends every event from s to the actor until s closes or
// the actor stops.
func WithEventSource(s EventSource) Option {
	return func(a *Actor) {
		a.source = s
	}
}

// WithActivityTimeout bounds how long leaving a state waits for its
// activities to return.
func WithActivityTimeout(d time.Duration) Option {
	return func(a *Actor) {
		a.activityTimeout = d
	}
}

// WithHandlerPrecedence orders per-state and global handlers.
func WithHandlerPrecedence(p HandlerPrecedence) Option {
	return func(a *Actor) {
		a.precedence = p
	}
}

// WithMaxMicrosteps limits how many raised events one step may chain.
// Zero, the default, means no limit: a raise cycle never terminates.
func WithMaxMicrosteps(n int) Option {
	return func(a *Actor) {
		a.maxMicrosteps = n
	}
}

// WithSnapshot starts the actor from snap instead of the initial state.
// Entry actions do not run; the state's delays and activities are armed.
func WithSnapshot(snap primitives.Snapshot) Option {
	return func(a *Actor) {
		a.seed = &snap
	}
}

// WithChildSnapshots seeds children: a child spawned under one of these ids
// starts from the given snapshot.
func WithChildSnapshots(children map[string]primitives.Snapshot) Option {
	return func(a *Actor) {
		if a.childSeeds == nil {
			a.childSeeds = make(map[string]Checkpoint, len(children))
		}
		for id, snap := range children {
			a.childSeeds[id] = Checkpoint{ActorID: id, Snapshot: snap}
		}
	}
}

func withChildCheckpoints(children map[string]Checkpoint) Option {
	return func(a *Actor) {
		if a.childSeeds == nil {
			a.childSeeds = make(map[string]Checkpoint, len(children))
		}
		maps.Copy(a.childSeeds, children)
	}
}

func withParent(send func(primitives.Event)) Option {
	return func(a *Actor) {
		a.parent = send
	}
}
