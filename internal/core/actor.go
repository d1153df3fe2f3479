// Package core provides the runtime core tier of the actor engine.
// This includes the Actor runtime, event loop, guard evaluation, action
// execution, the delay scheduler and the activity supervisor.
// Dependencies: internal/primitives.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/actorchart/internal/primitives"
)

// Actor is a running instance of a Definition.
// Thread-safe: Send, Snapshot, Subscribe and Stop may be called from any
// goroutine. Events are processed one at a time in arrival order.
type Actor struct {
	def             *primitives.Definition
	id              string
	baseLogger      *slog.Logger
	logger          *slog.Logger
	inspector       Inspector
	persister       Persister
	publisher       Publisher
	source          EventSource
	activityTimeout time.Duration
	precedence      HandlerPrecedence
	maxMicrosteps   int
	seed            *primitives.Snapshot
	childSeeds      map[string]Checkpoint
	parent          func(primitives.Event)

	ctx    context.Context
	cancel context.CancelFunc
	snap   atomic.Pointer[primitives.Snapshot]
	sched  *scheduler
	sup    *supervisor

	// mu guards the queue and the lifecycle flags, never event processing.
	mu         sync.Mutex
	queue      []envelope
	processing bool
	stopped    bool
	done       chan struct{}

	childMu  sync.RWMutex
	children map[string]*Actor

	subscribers listeners[primitives.Snapshot]
	emitters    listeners[any]
	errs        listeners[error]
}

// Interpret creates and starts an actor for def.
//
// The caller owns the returned actor and must call Stop. An actor that is
// never stopped leaks: its timers keep firing, its activities keep running
// and its subscribers are retained. Prefer InterpretScoped.
func Interpret(def *primitives.Definition, opts ...Option) (*Actor, error) {
	if def == nil {
		return nil, errors.New("nil definition")
	}
	a := &Actor{
		def:        def,
		baseLogger: slog.Default(),
		children:   make(map[string]*Actor),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.id == "" {
		a.id = def.ID() + "_" + uuid.NewString()
	}
	a.logger = a.baseLogger.With("actor", a.id, "machine", def.ID())
	if a.seed != nil {
		snap, err := a.checkSnapshot(*a.seed)
		if err != nil {
			return nil, err
		}
		a.seed = &snap
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.sched = newScheduler()
	a.sup = newSupervisor(a.activityTimeout, a.logger)

	a.start()
	return a, nil
}

// InterpretScoped is Interpret with the actor's Stop registered on scope, so
// the actor is stopped when the scope closes.
func InterpretScoped(scope Scope, def *primitives.Definition, opts ...Option) (*Actor, error) {
	a, err := Interpret(def, opts...)
	if err != nil {
		return nil, err
	}
	scope.Cleanup(a.Stop)
	return a, nil
}

func (a *Actor) ID() string { return a.id }

// Definition returns the definition the actor interprets.
func (a *Actor) Definition() *primitives.Definition { return a.def }

// Send delivers evt. If the actor is idle the event, and every event it
// raises, is processed before Send returns; otherwise it is queued behind the
// event in flight. Sending to a stopped actor returns ErrActorStopped.
func (a *Actor) Send(evt primitives.Event) error {
	return a.deliver(envelope{event: evt}, true)
}

// Snapshot returns the current snapshot without waiting for processing.
func (a *Actor) Snapshot() primitives.Snapshot {
	return *a.snap.Load()
}

// Subscribe registers fn to receive every committed snapshot.
func (a *Actor) Subscribe(fn func(primitives.Snapshot)) (unsubscribe func()) {
	return a.subscribers.add(fn)
}

// OnEmit registers fn to receive values produced by emit actions.
func (a *Actor) OnEmit(fn func(any)) (unsubscribe func()) {
	return a.emitters.add(fn)
}

// OnError registers fn to receive ActionError, GuardError and ActivityError
// values reported by this actor.
func (a *Actor) OnError(fn func(error)) (unsubscribe func()) {
	return a.errs.add(fn)
}

// Children returns a copy of the child registry.
func (a *Actor) Children() map[string]*Actor {
	a.childMu.RLock()
	defer a.childMu.RUnlock()
	return maps.Clone(a.children)
}

// Child returns the child spawned under id.
func (a *Actor) Child(id string) (*Actor, bool) {
	a.childMu.RLock()
	defer a.childMu.RUnlock()
	c, ok := a.children[id]
	return c, ok
}

// PendingDelays lists the armed delays.
func (a *Actor) PendingDelays() []PendingDelay {
	return a.sched.pending()
}

// RunningActivities lists running activities as "<state>/<activity>".
func (a *Actor) RunningActivities() []string {
	return a.sup.ids()
}

// Done is closed once Stop has finished.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Stopped reports whether Stop has been called.
func (a *Actor) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Stop cancels every delay, persistent ones included, interrupts every
// activity, stops all children and drops all listeners. Queued events are
// discarded. It is idempotent.
func (a *Actor) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.queue = nil
	a.mu.Unlock()

	a.cancel()
	a.sched.close()
	a.sup.close()

	a.childMu.Lock()
	children := a.children
	a.children = make(map[string]*Actor)
	a.childMu.Unlock()
	for _, id := range slices.Sorted(maps.Keys(children)) {
		children[id].Stop()
	}

	final := a.Snapshot()
	final.Status = primitives.StatusStopped
	a.snap.Store(&final)

	a.subscribers.clear()
	a.emitters.clear()
	a.errs.clear()
	a.inspect(Inspection{Kind: InspectStop, Snapshot: final})
	a.logger.Debug("actor stopped", "state", final.State)
	close(a.done)
}

// ReplaceSnapshot overwrites the state and context of the actor, and of the
// named children, without running guards, actions, entry or exit. Delays and
// activities are left as they are. Subscribers are notified once.
func (a *Actor) ReplaceSnapshot(snap primitives.Snapshot, children map[string]primitives.Snapshot) error {
	snap, err := a.checkSnapshot(snap)
	if err != nil {
		return err
	}
	for id, cs := range children {
		child, ok := a.Child(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownChild, id)
		}
		if _, err := child.checkSnapshot(cs); err != nil {
			return fmt.Errorf("child %q: %w", id, err)
		}
	}
	return a.deliver(envelope{replace: &replacement{snapshot: snap, children: maps.Clone(children)}}, true)
}

// checkSnapshot validates a snapshot against the definition. The returned
// copy has its context normalized to the shape, so snapshots decoded from
// JSON or YAML come back with the declared kinds. A machine without a shape
// still gets whole numbers back as int.
func (a *Actor) checkSnapshot(snap primitives.Snapshot) (primitives.Snapshot, error) {
	if snap.MachineID != "" && snap.MachineID != a.def.ID() {
		return snap, fmt.Errorf("snapshot of machine %q cannot seed %q", snap.MachineID, a.def.ID())
	}
	if _, ok := a.def.State(snap.State); !ok {
		return snap, fmt.Errorf("%w: %q", ErrUnknownState, snap.State)
	}
	ctx, err := a.def.Shape().Normalize(snap.Context)
	if err != nil {
		return snap, fmt.Errorf("%w: %w", primitives.ErrContextMismatch, err)
	}
	snap.Context = ctx
	return snap, nil
}

// spawn starts a child for def under id. The child inherits logging,
// inspection and timing options and can reach this actor only through its
// sendParent capability.
func (a *Actor) spawn(id string, def *primitives.Definition) error {
	if def == nil {
		return fmt.Errorf("spawn %q: nil definition", id)
	}
	if _, dup := a.Child(id); dup {
		return fmt.Errorf("%w: %q", ErrDuplicateChild, id)
	}
	opts := []Option{
		WithID(id),
		WithLogger(a.baseLogger),
		WithInspector(a.inspector),
		WithActivityTimeout(a.activityTimeout),
		WithHandlerPrecedence(a.precedence),
		WithMaxMicrosteps(a.maxMicrosteps),
		withParent(a.sendInternal),
	}
	if seed, ok := a.childSeeds[id]; ok {
		if seed.Fingerprint != "" && seed.Fingerprint != def.Fingerprint() {
			a.logger.Warn("ignoring child snapshot from another definition", "child", id)
		} else {
			opts = append(opts, WithSnapshot(seed.Snapshot), withChildCheckpoints(seed.Children))
		}
	}
	child, err := Interpret(def, opts...)
	if err != nil {
		return fmt.Errorf("spawn %q: %w", id, err)
	}

	a.childMu.Lock()
	if a.Stopped() {
		a.childMu.Unlock()
		child.Stop()
		return nil
	}
	a.children[id] = child
	a.childMu.Unlock()
	a.inspect(Inspection{Kind: InspectSpawn, To: id, Snapshot: child.Snapshot()})
	return nil
}

// stopChild stops and forgets the child with id. Unknown ids are ignored.
func (a *Actor) stopChild(id string) {
	a.childMu.Lock()
	child, ok := a.children[id]
	delete(a.children, id)
	a.childMu.Unlock()
	if ok {
		child.Stop()
	}
}

// sendToChild delivers evt to the child with id; an unknown or stopped child
// is logged and otherwise ignored.
func (a *Actor) sendToChild(id string, evt primitives.Event) {
	child, ok := a.Child(id)
	if !ok {
		a.logger.Warn("send to unknown child", "child", id, "event", evt.Type)
		return
	}
	if err := child.Send(evt); err != nil {
		a.logger.Warn("send to child failed", "child", id, "event", evt.Type, "error", err)
	}
}

// sendInternal queues evt without processing it on the caller's goroutine.
func (a *Actor) sendInternal(evt primitives.Event) {
	_ = a.deliver(envelope{event: evt}, false)
}

func (a *Actor) reportError(err error) {
	var ae *ActivityError
	if errors.As(err, &ae) && ae.ActorID == "" {
		ae.ActorID = a.id
	}
	a.logger.Error("actor error", "error", err)
	a.inspect(Inspection{Kind: InspectError, Err: err})
	a.errs.call(err)
}

func (a *Actor) inspect(in Inspection) {
	if a.inspector == nil {
		return
	}
	in.ActorID = a.id
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	a.inspector.Inspect(in)
}

// listeners is a set of callbacks keyed by registration.
type listeners[T any] struct {
	mu   sync.RWMutex
	next uint64
	fns  map[uint64]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[uint64]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// call invokes the callbacks in registration order.
func (l *listeners[T]) call(v T) {
	l.mu.RLock()
	ids := slices.Sorted(maps.Keys(l.fns))
	fns := make([]func(T), len(ids))
	for i, id := range ids {
		fns[i] = l.fns[id]
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (l *listeners[T]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.fns)
}
