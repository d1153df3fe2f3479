package core

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// execution carries the state of one transition while its actions run.
type execution struct {
	actor  *Actor
	state  string
	ctx    primitives.Context
	event  primitives.Event
	raised []primitives.Event
}

func (a *Actor) newExecution(state string, c primitives.Context, evt primitives.Event) *execution {
	return &execution{actor: a, state: state, ctx: c, event: evt}
}

// run executes actions in order and stops at the first failure, which is
// returned as an *ActionError.
func (x *execution) run(actions []primitives.Action) error {
	for _, act := range actions {
		if err := x.exec(act); err != nil {
			var ae *ActionError
			if errors.As(err, &ae) {
				return err
			}
			return &ActionError{
				ActorID: x.actor.id,
				State:   x.state,
				Event:   x.event.Type,
				Action:  primitives.ActionName(act),
				Err:     err,
			}
		}
	}
	return nil
}

func (x *execution) exec(act primitives.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			x.actor.logger.Error("panic in action", "action", primitives.ActionName(act), "error", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	a := x.actor
	switch act := act.(type) {
	case nil:
		return nil
	case primitives.AssignAction:
		return x.assign(act)
	case primitives.RaiseAction:
		evt := act.Event
		if act.Fn != nil {
			evt = act.Fn(x.ctx, x.event)
		}
		x.raised = append(x.raised, evt)
	case primitives.CancelAction:
		id := act.ID
		if act.Fn != nil {
			id = act.Fn(x.ctx, x.event)
		}
		if !a.sched.cancel(id) {
			a.logger.Debug("cancel of unarmed delay", "delay", id)
		}
	case primitives.EmitAction:
		value := act.Value
		if act.Fn != nil {
			value = act.Fn(x.ctx, x.event)
		}
		x.emit(value)
	case primitives.EnqueueAction:
		if act.Collect == nil {
			return nil
		}
		q := &primitives.Enqueuer{}
		act.Collect(q, x.ctx, x.event)
		return x.run(q.Actions())
	case primitives.SpawnAction:
		return a.spawn(act.ID, act.Definition)
	case primitives.StopChildAction:
		a.stopChild(act.ID)
	case primitives.SendToAction:
		evt := act.Event
		if act.Fn != nil {
			evt = act.Fn(x.ctx, x.event)
		}
		a.sendToChild(act.ID, evt)
	case primitives.SendParentAction:
		if a.parent == nil {
			return nil
		}
		evt := act.Event
		if act.Fn != nil {
			evt = act.Fn(x.ctx, x.event)
		}
		a.parent(evt)
	case primitives.ForwardAction:
		a.sendToChild(act.ID, x.event)
	case primitives.ExecAction:
		if act.Fn != nil {
			return act.Fn(a.ctx, x.ctx, x.event)
		}
	default:
		return fmt.Errorf("unsupported action type %T", act)
	}
	return nil
}

// assign merges the patch into the pending context. A patch that breaks the
// shape is rejected and leaves the context as it was.
func (x *execution) assign(act primitives.AssignAction) error {
	var patch primitives.Context
	switch {
	case act.Async != nil:
		p, err := act.Async(x.actor.ctx, x.ctx, x.event)
		if err != nil {
			return err
		}
		patch = p
	case act.Fn != nil:
		patch = act.Fn(x.ctx, x.event)
	}
	if len(patch) == 0 {
		return nil
	}
	next := x.ctx.Merge(patch)
	if err := x.actor.def.Shape().Conforms(next); err != nil {
		return fmt.Errorf("%w: %w", primitives.ErrContextMismatch, err)
	}
	x.ctx = next
	return nil
}

func (x *execution) emit(value any) {
	a := x.actor
	a.inspect(Inspection{Kind: InspectEmit, Event: x.event, From: x.state, Value: value})
	a.emitters.call(value)
	if a.publisher == nil {
		return
	}
	e := Emission{
		ActorID:   a.id,
		MachineID: a.def.ID(),
		State:     x.state,
		Cause:     x.event,
		Value:     value,
		Timestamp: time.Now(),
	}
	if err := a.publisher.Publish(a.ctx, e); err != nil {
		a.logger.Error("publish emitted value", "error", err)
	}
}

// spawnIndex maps child ids to definitions for every static spawn action in
// def. Children spawned from EnqueueActions are not found.
func spawnIndex(def *primitives.Definition) map[string]*primitives.Definition {
	out := make(map[string]*primitives.Definition)
	collect := func(actions []primitives.Action) {
		for _, act := range actions {
			if s, ok := act.(primitives.SpawnAction); ok && s.Definition != nil {
				out[s.ID] = s.Definition
			}
		}
	}
	collectHandlers := func(ts []primitives.TransitionConfig) {
		for _, t := range ts {
			collect(t.Actions)
		}
	}
	for _, event := range def.GlobalEvents() {
		_, global := def.Handlers("", event)
		collectHandlers(global)
	}
	for _, sid := range def.StateIDs() {
		s, _ := def.State(sid)
		collect(s.Entry)
		collect(s.Exit)
		for _, ts := range s.On {
			collectHandlers(ts)
		}
		for _, d := range s.After {
			collect(d.Transition.Actions)
		}
	}
	return out
}
