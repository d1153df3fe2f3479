package primitives

import "context"

// Action is one step of an entry, exit or transition action list. Like Guard
// it is a closed set of tagged values; internal/core executes them in order.
type Action interface {
	actionName() string
}

// AssignAction computes a partial context patch and shallow-merges it into
// the context of the next snapshot. Exactly one of Fn and Async is set.
type AssignAction struct {
	Fn    func(c Context, evt Event) Context
	Async func(ctx context.Context, c Context, evt Event) (Context, error)
}

// RaiseAction queues a self-addressed event, processed before the current
// Send returns. Fn, when set, computes the event instead of Event.
type RaiseAction struct {
	Event Event
	Fn    func(c Context, evt Event) Event
}

// CancelAction removes a pending delay by id. Unknown ids are ignored.
type CancelAction struct {
	ID string
	Fn func(c Context, evt Event) string
}

// EmitAction delivers a value to the actor's emit listeners.
type EmitAction struct {
	Value any
	Fn    func(c Context, evt Event) any
}

// EnqueueAction builds an action list at run time. Whatever Collect appends
// is executed in place.
type EnqueueAction struct {
	Collect func(q *Enqueuer, c Context, evt Event)
}

// SpawnAction starts a child actor interpreting Definition under ID.
type SpawnAction struct {
	ID         string
	Definition *Definition
}

// StopChildAction stops and removes the child with ID.
type StopChildAction struct {
	ID string
}

// SendToAction delivers an event to the child with ID.
type SendToAction struct {
	ID    string
	Event Event
	Fn    func(c Context, evt Event) Event
}

// SendParentAction delivers an event to the parent actor, if any.
type SendParentAction struct {
	Event Event
	Fn    func(c Context, evt Event) Event
}

// ForwardAction re-sends the event being processed to the child with ID.
type ForwardAction struct {
	ID string
}

// ExecAction runs an arbitrary side effect. It may block; the whole
// transition waits for it. A non-nil error aborts the transition.
type ExecAction struct {
	Name string
	Fn   func(ctx context.Context, c Context, evt Event) error
}

func (AssignAction) actionName() string     { return "assign" }
func (RaiseAction) actionName() string      { return "raise" }
func (CancelAction) actionName() string     { return "cancel" }
func (EmitAction) actionName() string       { return "emit" }
func (EnqueueAction) actionName() string    { return "enqueueActions" }
func (SpawnAction) actionName() string      { return "spawnChild" }
func (StopChildAction) actionName() string  { return "stopChild" }
func (SendToAction) actionName() string     { return "sendTo" }
func (SendParentAction) actionName() string { return "sendParent" }
func (ForwardAction) actionName() string    { return "forwardTo" }
func (a ExecAction) actionName() string     { return nameOr(a.Name, "exec") }

// ActionName returns a printable name for a.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

func Assign(fn func(c Context, evt Event) Context) Action {
	return AssignAction{Fn: fn}
}

func AssignAsync(fn func(ctx context.Context, c Context, evt Event) (Context, error)) Action {
	return AssignAction{Async: fn}
}

func Raise(evt Event) Action {
	return RaiseAction{Event: evt}
}

func RaiseFunc(fn func(c Context, evt Event) Event) Action {
	return RaiseAction{Fn: fn}
}

func Cancel(id string) Action {
	return CancelAction{ID: id}
}

func CancelFunc(fn func(c Context, evt Event) string) Action {
	return CancelAction{Fn: fn}
}

func Emit(value any) Action {
	return EmitAction{Value: value}
}

func EmitFunc(fn func(c Context, evt Event) any) Action {
	return EmitAction{Fn: fn}
}

func EnqueueActions(collect func(q *Enqueuer, c Context, evt Event)) Action {
	return EnqueueAction{Collect: collect}
}

func SpawnChild(def *Definition, id string) Action {
	return SpawnAction{ID: id, Definition: def}
}

func StopChild(id string) Action {
	return StopChildAction{ID: id}
}

func SendTo(id string, evt Event) Action {
	return SendToAction{ID: id, Event: evt}
}

func SendToFunc(id string, fn func(c Context, evt Event) Event) Action {
	return SendToAction{ID: id, Fn: fn}
}

func SendParent(evt Event) Action {
	return SendParentAction{Event: evt}
}

func SendParentFunc(fn func(c Context, evt Event) Event) Action {
	return SendParentAction{Fn: fn}
}

func ForwardTo(id string) Action {
	return ForwardAction{ID: id}
}

func Exec(name string, fn func(ctx context.Context, c Context, evt Event) error) Action {
	return ExecAction{Name: name, Fn: fn}
}

// Enqueuer collects actions inside an EnqueueActions callback.
type Enqueuer struct {
	actions []Action
}

// Assign appends an assign action.
func (q *Enqueuer) Assign(fn func(c Context, evt Event) Context) {
	q.actions = append(q.actions, Assign(fn))
}

// Raise appends a raise action for evt.
func (q *Enqueuer) Raise(evt Event) {
	q.actions = append(q.actions, Raise(evt))
}

// Cancel appends a cancel action for id.
func (q *Enqueuer) Cancel(id string) {
	q.actions = append(q.actions, Cancel(id))
}

// Emit appends an emit action for value.
func (q *Enqueuer) Emit(value any) {
	q.actions = append(q.actions, Emit(value))
}

// Action appends any action.
func (q *Enqueuer) Action(a Action) {
	if a != nil {
		q.actions = append(q.actions, a)
	}
}

// Actions returns the collected actions in order.
func (q *Enqueuer) Actions() []Action {
	return q.actions
}
