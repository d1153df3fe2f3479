package core

import (
	"maps"
	"slices"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// envelope is one entry of the actor queue.
type envelope struct {
	event primitives.Event
	// timerID and token identify a fired delay; see scheduler.claim.
	timerID string
	token   string
	// from is set for events sent by an activity.
	from    *activity
	replace *replacement
}

type replacement struct {
	snapshot primitives.Snapshot
	children map[string]primitives.Snapshot
}

// deliver queues env. When the actor is idle, the queue is drained on the
// caller's goroutine if inline is set and on a new goroutine otherwise.
// Timers, activities and children use the latter so that they never run a
// transition that could wait on themselves.
func (a *Actor) deliver(env envelope, inline bool) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrActorStopped
	}
	a.queue = append(a.queue, env)
	if a.processing {
		a.mu.Unlock()
		return nil
	}
	a.processing = true
	a.mu.Unlock()

	if inline {
		a.drain()
	} else {
		go a.drain()
	}
	return nil
}

// drain processes queued envelopes in arrival order until the queue is
// empty. The caller must have set processing.
func (a *Actor) drain() {
	for {
		a.mu.Lock()
		if a.stopped || len(a.queue) == 0 {
			a.queue = nil
			a.processing = false
			a.mu.Unlock()
			return
		}
		env := a.queue[0]
		a.queue[0] = envelope{}
		a.queue = a.queue[1:]
		a.mu.Unlock()

		a.process(env)
	}
}

// start enters the initial state, or the seeded one, and then drains
// whatever timers and activities queued meanwhile.
func (a *Actor) start() {
	a.mu.Lock()
	a.processing = true
	a.mu.Unlock()
	defer a.drain()

	if a.seed != nil {
		snap := *a.seed
		snap.MachineID = a.def.ID()
		snap.Status = primitives.StatusActive
		snap.Context = snap.Context.Clone()
		a.snap.Store(&snap)
		evt := primitives.NewEvent(primitives.InitEvent, nil)
		if snap.Event != nil {
			evt = *snap.Event
		}
		a.restoreChildren()
		a.arm(snap.State, snap.Context, evt)
		a.startSource()
		return
	}

	initial := a.def.InitialSnapshot()
	a.snap.Store(&initial)
	cfg, _ := a.def.State(initial.State)
	x := a.newExecution(initial.State, initial.Context, primitives.NewEvent(primitives.InitEvent, nil))
	if err := x.run(cfg.Entry); err != nil {
		a.reportError(err)
		x.raised = nil
	}
	a.arm(initial.State, x.ctx, x.event)
	a.commit(initial.State, x.ctx, nil)
	a.startSource()
	a.runToCompletion(x.raised)
}

// restoreChildren respawns seeded children whose definition is known from a
// static spawn action of this definition.
func (a *Actor) restoreChildren() {
	if len(a.childSeeds) == 0 {
		return
	}
	defs := spawnIndex(a.def)
	for _, id := range slices.Sorted(maps.Keys(a.childSeeds)) {
		def, ok := defs[id]
		if !ok {
			a.logger.Warn("no spawn action for restored child", "child", id)
			continue
		}
		if err := a.spawn(id, def); err != nil {
			a.reportError(err)
		}
	}
}

func (a *Actor) startSource() {
	if a.source == nil {
		return
	}
	events := a.source.Events()
	go func() {
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := a.Send(evt); err != nil {
					return
				}
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *Actor) process(env envelope) {
	if env.replace != nil {
		a.replace(env.replace)
		return
	}
	if env.from != nil && env.from.interrupted() {
		return
	}
	if env.timerID != "" {
		d, ok := a.sched.claim(env.timerID, env.token)
		if !ok {
			return
		}
		a.runToCompletion(a.step(env.event, &d.Transition))
		return
	}
	a.runToCompletion(a.step(env.event, nil))
}

// runToCompletion processes raised events depth first: the events raised by
// one step are handled, with everything they raise in turn, before the next
// sibling.
func (a *Actor) runToCompletion(raised []primitives.Event) {
	stack := reversed(raised)
	steps := 0
	for len(stack) > 0 {
		if a.Stopped() {
			return
		}
		if a.maxMicrosteps > 0 && steps >= a.maxMicrosteps {
			a.reportError(&ActionError{
				ActorID: a.id,
				State:   a.Snapshot().State,
				Event:   stack[len(stack)-1].Type,
				Action:  "raise",
				Err:     ErrMicrostepLimit,
			})
			return
		}
		steps++
		evt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, reversed(a.step(evt, nil))...)
	}
}

// step processes one event. fixed, when set, is the transition of a fired
// delay and replaces the handler lookup. It returns the events raised by the
// step's actions.
func (a *Actor) step(evt primitives.Event, fixed *primitives.TransitionConfig) []primitives.Event {
	cur := a.Snapshot()
	source := cur.State
	a.inspect(Inspection{Kind: InspectEvent, Event: evt, From: source})

	var candidates []primitives.TransitionConfig
	if fixed != nil {
		candidates = []primitives.TransitionConfig{*fixed}
	} else {
		candidates = a.candidates(source, evt.Type)
	}
	var chosen *primitives.TransitionConfig
	for i := range candidates {
		ok, err := EvaluateGuard(a.ctx, candidates[i].Guard, cur.Context, evt)
		if err != nil {
			a.reportError(&GuardError{
				ActorID: a.id,
				State:   source,
				Event:   evt.Type,
				Guard:   primitives.GuardName(candidates[i].Guard),
				Err:     err,
			})
			return nil
		}
		if ok {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		a.logger.Debug("event not handled", "state", source, "event", evt.Type)
		return nil
	}

	external := !chosen.IsSelf(source)
	target := source
	if external {
		target = chosen.Target
	}
	x := a.newExecution(source, cur.Context, evt)

	var cancelled []*timer
	if external {
		cancelled = a.disarm(source)
		srcCfg, _ := a.def.State(source)
		if err := x.run(srcCfg.Exit); err != nil {
			return a.abort(x, source, external, cancelled, err)
		}
	}
	if err := x.run(chosen.Actions); err != nil {
		return a.abort(x, source, external, cancelled, err)
	}
	if external {
		x.state = target
		dstCfg, _ := a.def.State(target)
		if err := x.run(dstCfg.Entry); err != nil {
			return a.abort(x, source, external, cancelled, err)
		}
		a.arm(target, x.ctx, evt)
	}

	a.logger.Debug("transition", "from", source, "to", target, "event", evt.Type)
	a.inspect(Inspection{Kind: InspectTransition, Event: evt, From: source, To: target})
	a.commit(target, x.ctx, &evt)
	return x.raised
}

// abort ends a step whose action failed. Context assigned before the failure
// is kept, the actor stays in source and, if source had been disarmed, its
// cancelled delays are armed again with their original deadlines and its
// activities restarted. Raised events are discarded.
func (a *Actor) abort(x *execution, source string, disarmed bool, cancelled []*timer, err error) []primitives.Event {
	a.reportError(err)
	if disarmed {
		a.sched.rearm(cancelled, a.fire)
		a.startActivities(source, x.ctx, x.event)
	}
	evt := x.event
	a.commit(source, x.ctx, &evt)
	return nil
}

// candidates returns the transitions for event in state, ordered by the
// configured precedence.
func (a *Actor) candidates(state, event string) []primitives.TransitionConfig {
	local, global := a.def.Handlers(state, event)
	if a.precedence == GlobalFirst {
		local, global = global, local
	}
	out := make([]primitives.TransitionConfig, 0, len(local)+len(global))
	out = append(out, local...)
	return append(out, global...)
}

// arm schedules the delays of state and starts its activities.
func (a *Actor) arm(state string, c primitives.Context, evt primitives.Event) {
	cfg, ok := a.def.State(state)
	if !ok {
		return
	}
	for _, d := range cfg.After {
		a.sched.schedule(state, d, a.fire)
	}
	a.startActivities(state, c, evt)
}

func (a *Actor) startActivities(state string, c primitives.Context, evt primitives.Event) {
	cfg, ok := a.def.State(state)
	if !ok {
		return
	}
	for _, act := range cfg.Activities {
		a.sup.start(a.ctx, state, act, c, evt, a.activitySend, a.reportError)
	}
}

// disarm cancels the ephemeral delays of state and interrupts its
// activities. It returns the cancelled timers.
func (a *Actor) disarm(state string) []*timer {
	cancelled := a.sched.cancelOwned(state)
	a.sup.interrupt(state)
	return cancelled
}

func (a *Actor) fire(id, token string) {
	_ = a.deliver(envelope{event: primitives.AfterEvent(id), timerID: id, token: token}, false)
}

func (a *Actor) activitySend(h *activity, evt primitives.Event) {
	_ = a.deliver(envelope{event: evt, from: h}, false)
}

// commit publishes a new snapshot, persists it and notifies subscribers.
func (a *Actor) commit(state string, c primitives.Context, evt *primitives.Event) {
	snap := &primitives.Snapshot{
		MachineID: a.def.ID(),
		State:     state,
		Context:   c,
		Event:     evt,
		Status:    primitives.StatusActive,
		Timestamp: time.Now(),
	}
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.snap.Store(snap)
	a.mu.Unlock()

	a.persist()
	a.inspect(Inspection{Kind: InspectSnapshot, Snapshot: *snap})
	a.subscribers.call(*snap)
}

func (a *Actor) replace(r *replacement) {
	for id, cs := range r.children {
		child, ok := a.Child(id)
		if !ok {
			a.logger.Warn("replace snapshot of unknown child", "child", id)
			continue
		}
		if err := child.ReplaceSnapshot(cs, nil); err != nil {
			a.logger.Warn("replace child snapshot failed", "child", id, "error", err)
		}
	}
	snap := r.snapshot
	snap.MachineID = a.def.ID()
	snap.Status = primitives.StatusActive
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.snap.Store(&snap)
	a.mu.Unlock()

	a.persist()
	a.inspect(Inspection{Kind: InspectSnapshot, Snapshot: snap})
	a.subscribers.call(snap)
}

func (a *Actor) persist() {
	if a.persister == nil {
		return
	}
	if err := a.persister.Save(a.ctx, a.Checkpoint()); err != nil {
		a.logger.Error("persist checkpoint", "error", err)
	}
}

func reversed(events []primitives.Event) []primitives.Event {
	out := slices.Clone(events)
	slices.Reverse(out)
	return out
}
