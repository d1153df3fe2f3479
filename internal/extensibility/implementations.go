package extensibility

import (
	"context"
	"fmt"
	"strings"

	"github.com/comalice/actorchart/internal/primitives"
)

// ActivityFunc is the body of an activity, see primitives.ActivityConfig.
type ActivityFunc = func(ctx context.Context, c primitives.Context, evt primitives.Event, send func(primitives.Event)) error

// Implementations names the behaviour that a definition document refers to.
type Implementations struct {
	Guards     map[string]primitives.Guard
	Actions    map[string]primitives.Action
	Activities map[string]ActivityFunc
	// Machines are the definitions that spawn actions can start.
	Machines map[string]*primitives.Definition
}

// guard resolves a guard reference: a registered name, or an expression.
func (impl Implementations) guard(ref string) (primitives.Guard, error) {
	if g, ok := impl.Guards[ref]; ok {
		return g, nil
	}
	g, err := Expr(ref)
	if err != nil {
		return nil, fmt.Errorf("guard %q is neither registered nor a valid expression: %w", ref, err)
	}
	return g, nil
}

// action resolves an action reference. Besides registered names the
// following built-in forms are understood:
//
//	raise:EVENT  cancel:ID  emit:VALUE  sendParent:EVENT
//	sendTo:CHILD:EVENT  forwardTo:CHILD  stopChild:CHILD  spawn:MACHINE:CHILD
func (impl Implementations) action(ref string) (primitives.Action, error) {
	if a, ok := impl.Actions[ref]; ok {
		return a, nil
	}
	kind, arg, ok := strings.Cut(ref, ":")
	if !ok || arg == "" {
		return nil, fmt.Errorf("action %q is not registered", ref)
	}
	switch kind {
	case "raise":
		return primitives.Raise(primitives.NewEvent(arg, nil)), nil
	case "cancel":
		return primitives.Cancel(arg), nil
	case "emit":
		return primitives.Emit(arg), nil
	case "sendParent":
		return primitives.SendParent(primitives.NewEvent(arg, nil)), nil
	case "forwardTo":
		return primitives.ForwardTo(arg), nil
	case "stopChild":
		return primitives.StopChild(arg), nil
	case "sendTo":
		child, event, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("action %q: want sendTo:CHILD:EVENT", ref)
		}
		return primitives.SendTo(child, primitives.NewEvent(event, nil)), nil
	case "spawn":
		machine, child, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("action %q: want spawn:MACHINE:CHILD", ref)
		}
		def, found := impl.Machines[machine]
		if !found {
			return nil, fmt.Errorf("action %q: machine %q is not registered", ref, machine)
		}
		return primitives.SpawnChild(def, child), nil
	}
	return nil, fmt.Errorf("action %q is not registered", ref)
}

func (impl Implementations) activity(ref string) (ActivityFunc, error) {
	if fn, ok := impl.Activities[ref]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("activity %q is not registered", ref)
}
