// Package actorchart interprets flat state machines as actors.
//
// A machine is described once, validated by Define, and then interpreted
// any number of times. Each actor owns its snapshot, runs events to
// completion one at a time, schedules delayed transitions, supervises the
// activities of its current state and may spawn child actors.
//
//	def := actorchart.NewMachineBuilder("door", "closed").
//		State("closed").Transition("OPEN", "open").
//		State("open").Transition("CLOSE", "closed").
//		Done().
//		MustBuild()
//
//	a, err := actorchart.Interpret(def)
//	if err != nil { ... }
//	defer a.Stop()
//	a.Send(actorchart.NewEvent("OPEN", nil))
package actorchart

import (
	"context"
	"io"

	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/extensibility"
	"github.com/comalice/actorchart/internal/primitives"
)

// Definitions.
type (
	MachineConfig    = primitives.MachineConfig
	StateConfig      = primitives.StateConfig
	TransitionConfig = primitives.TransitionConfig
	DelayConfig      = primitives.DelayConfig
	ActivityConfig   = primitives.ActivityConfig
	Definition       = primitives.Definition
	DefinitionError  = primitives.DefinitionError
	MachineBuilder   = primitives.MachineBuilder
	StateBuilder     = primitives.StateBuilder
	Context          = primitives.Context
	Shape            = primitives.Shape
	FieldKind        = primitives.FieldKind
	Event            = primitives.Event
	Snapshot         = primitives.Snapshot
	Status           = primitives.Status
	Action           = primitives.Action
	Guard            = primitives.Guard
	Enqueuer         = primitives.Enqueuer
)

// Runtime.
type (
	Actor             = core.Actor
	Option            = core.Option
	Checkpoint        = core.Checkpoint
	Scope             = core.Scope
	LifetimeScope     = core.LifetimeScope
	HandlerPrecedence = core.HandlerPrecedence
	PendingDelay      = core.PendingDelay
	EventSource       = core.EventSource
	Persister         = core.Persister
	Publisher         = core.Publisher
	Emission          = core.Emission
	Inspector         = core.Inspector
	Inspection        = core.Inspection
	ActionError       = core.ActionError
	GuardError        = core.GuardError
	ActivityError     = core.ActivityError
	Implementations   = extensibility.Implementations
)

const (
	KindAny    = primitives.KindAny
	KindString = primitives.KindString
	KindInt    = primitives.KindInt
	KindFloat  = primitives.KindFloat
	KindBool   = primitives.KindBool
	KindMap    = primitives.KindMap
	KindList   = primitives.KindList

	StatusActive  = primitives.StatusActive
	StatusStopped = primitives.StatusStopped

	StateFirst  = core.StateFirst
	GlobalFirst = core.GlobalFirst

	InitEvent = primitives.InitEvent
)

var (
	ErrActorStopped        = core.ErrActorStopped
	ErrUnknownState        = core.ErrUnknownState
	ErrUnknownChild        = core.ErrUnknownChild
	ErrDuplicateChild      = core.ErrDuplicateChild
	ErrFingerprintMismatch = core.ErrFingerprintMismatch
	ErrCheckpointNotFound  = core.ErrCheckpointNotFound
	ErrMicrostepLimit      = core.ErrMicrostepLimit
	ErrUnknownTarget       = primitives.ErrUnknownTarget
	ErrUnknownDelayID      = primitives.ErrUnknownDelayID
	ErrDuplicateDelayID    = primitives.ErrDuplicateDelayID
	ErrContextMismatch     = primitives.ErrContextMismatch
)

// Define validates cfg and freezes it into a Definition.
func Define(cfg MachineConfig) (*Definition, error) { return primitives.Define(cfg) }

// MustDefine is like Define but panics on an invalid configuration.
func MustDefine(cfg MachineConfig) *Definition { return primitives.MustDefine(cfg) }

func NewMachineBuilder(id, initial string) *MachineBuilder {
	return primitives.NewMachineBuilder(id, initial)
}

func NewEvent(eventType string, data any) Event { return primitives.NewEvent(eventType, data) }

// Interpret starts an actor for def. The caller must Stop it.
func Interpret(def *Definition, opts ...Option) (*Actor, error) {
	return core.Interpret(def, opts...)
}

// InterpretScoped starts an actor that is stopped when scope closes.
func InterpretScoped(scope Scope, def *Definition, opts ...Option) (*Actor, error) {
	return core.InterpretScoped(scope, def, opts...)
}

// NewScope returns a scope that closes when ctx is done or Close is called.
func NewScope(ctx context.Context) *LifetimeScope { return core.NewScope(ctx) }

// Restore starts an actor from a checkpoint taken with Actor.Checkpoint.
func Restore(def *Definition, cp Checkpoint, opts ...Option) (*Actor, error) {
	return core.Restore(def, cp, opts...)
}

// Resume restores actorID from p, or starts it fresh when p has nothing stored.
func Resume(ctx context.Context, p Persister, def *Definition, actorID string, opts ...Option) (*Actor, error) {
	return core.Resume(ctx, p, def, actorID, opts...)
}

// LoadDefinition reads a YAML definition, resolving names through impl.
func LoadDefinition(r io.Reader, impl Implementations) (*Definition, error) {
	return extensibility.LoadDefinition(r, impl)
}

// Actor options.
var (
	WithID                = core.WithID
	WithLogger            = core.WithLogger
	WithInspector         = core.WithInspector
	WithPersister         = core.WithPersister
	WithPublisher         = core.WithPublisher
	WithEventSource       = core.WithEventSource
	WithActivityTimeout   = core.WithActivityTimeout
	WithHandlerPrecedence = core.WithHandlerPrecedence
	WithMaxMicrosteps     = core.WithMaxMicrosteps
	WithSnapshot          = core.WithSnapshot
	WithChildSnapshots    = core.WithChildSnapshots
)

// Actions and guards.
var (
	Assign         = primitives.Assign
	AssignAsync    = primitives.AssignAsync
	Raise          = primitives.Raise
	RaiseFunc      = primitives.RaiseFunc
	Cancel         = primitives.Cancel
	CancelFunc     = primitives.CancelFunc
	Emit           = primitives.Emit
	EmitFunc       = primitives.EmitFunc
	EnqueueActions = primitives.EnqueueActions
	SpawnChild     = primitives.SpawnChild
	StopChild      = primitives.StopChild
	SendTo         = primitives.SendTo
	SendToFunc     = primitives.SendToFunc
	SendParent     = primitives.SendParent
	SendParentFunc = primitives.SendParentFunc
	ForwardTo      = primitives.ForwardTo
	Exec           = primitives.Exec

	When      = primitives.When
	WhenAsync = primitives.WhenAsync
	And       = primitives.And
	Or        = primitives.Or
	Not       = primitives.Not
	Expr      = extensibility.Expr
	MustExpr  = extensibility.MustExpr
)

var (
	IsDefinitionError = primitives.IsDefinitionError
	IsActionError     = core.IsActionError
	IsGuardError      = core.IsGuardError
	IsActivityError   = core.IsActivityError
)
