package core

import (
	"context"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// Pluggable components. Implementations live in internal/extensibility and
// internal/production.

// EventSource feeds external events into an actor until its channel closes.
type EventSource interface {
	Events() <-chan primitives.Event
}

// Persister stores the checkpoint of an actor after every committed step.
// Load returns ErrCheckpointNotFound when nothing is stored under actorID.
type Persister interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, actorID string) (Checkpoint, error)
}

// Emission is a value produced by an emit action.
type Emission struct {
	ActorID   string           `json:"actorID" yaml:"actorID"`
	MachineID string           `json:"machineID" yaml:"machineID"`
	State     string           `json:"state" yaml:"state"`
	Cause     primitives.Event `json:"cause" yaml:"cause"`
	Value     any              `json:"value" yaml:"value"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// Publisher forwards emitted values out of process.
type Publisher interface {
	Publish(ctx context.Context, e Emission) error
}

type InspectionKind string

const (
	InspectEvent      InspectionKind = "event"
	InspectTransition InspectionKind = "transition"
	InspectSnapshot   InspectionKind = "snapshot"
	InspectEmit       InspectionKind = "emit"
	InspectError      InspectionKind = "error"
	InspectSpawn      InspectionKind = "spawn"
	InspectStop       InspectionKind = "stop"
)

// Inspection is one observation of an actor's internals. Only the fields
// relevant to Kind are set.
type Inspection struct {
	Kind      InspectionKind
	ActorID   string
	Event     primitives.Event
	From      string
	To        string
	Snapshot  primitives.Snapshot
	Value     any
	Err       error
	Timestamp time.Time
}

// Inspector observes actors. Inspect is called synchronously from the
// actor's processing goroutine and must not block.
type Inspector interface {
	Inspect(Inspection)
}
