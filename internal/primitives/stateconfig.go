// StateConfig represents one state of a machine: entry/exit actions, event
// handlers, activities and delays.
package primitives

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type StateConfig struct {
	ID         string                        `json:"id" yaml:"id"`
	On         map[string][]TransitionConfig `json:"on,omitempty" yaml:"on,omitempty"`
	Entry      []Action                      `json:"-" yaml:"-"`
	Exit       []Action                      `json:"-" yaml:"-"`
	Activities []ActivityConfig              `json:"-" yaml:"-"`
	After      []DelayConfig                 `json:"after,omitempty" yaml:"after,omitempty"`
}

// NewStateConfig creates a new StateConfig with ID.
func NewStateConfig(id string) *StateConfig {
	return &StateConfig{ID: id}
}

// AddTransition adds a transition for an event.
func (s *StateConfig) AddTransition(event string, trans TransitionConfig) *StateConfig {
	if s.On == nil {
		s.On = make(map[string][]TransitionConfig)
	}
	s.On[event] = append(s.On[event], trans)
	return s
}

// Transition adds a simple transition from event to target.
// Optionally override with full TransitionConfig via first arg.
func (s *StateConfig) Transition(event, target string, transOpts ...TransitionConfig) *StateConfig {
	trans := TransitionConfig{Target: target}
	if len(transOpts) > 0 {
		trans = transOpts[0]
		trans.Target = target
	}
	return s.AddTransition(event, trans)
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(actions ...Action) *StateConfig {
	s.Entry = append(s.Entry, actions...)
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(actions ...Action) *StateConfig {
	s.Exit = append(s.Exit, actions...)
	return s
}

// AddActivity declares an activity.
func (s *StateConfig) AddActivity(a ActivityConfig) *StateConfig {
	s.Activities = append(s.Activities, a)
	return s
}

// AddDelay declares a delayed transition.
func (s *StateConfig) AddDelay(d DelayConfig) *StateConfig {
	s.After = append(s.After, d)
	return s
}

// DelayIDs returns the resolved id of every declared delay, in order.
func (s *StateConfig) DelayIDs() []string {
	ids := make([]string, len(s.After))
	for i, d := range s.After {
		ids[i] = delayID(s.ID, d)
	}
	return ids
}

func delayID(state string, d DelayConfig) string {
	switch {
	case d.ID != "":
		return d.ID
	case d.Transition.DelayID != "":
		return d.Transition.DelayID
	}
	return GeneratedDelayID(state, d.Delay)
}

// Validate performs local validation of the StateConfig.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	for event, transitions := range s.On {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("empty event name in On map for state %s", s.ID)
		}
		for i := range transitions {
			if err := transitions[i].Validate(); err != nil {
				return fmt.Errorf("event %q transition %d: %w", event, i, err)
			}
		}
	}
	seen := make(map[string]struct{}, len(s.After))
	for i, d := range s.After {
		if d.Delay < 0 {
			return fmt.Errorf("delay %d of %s is negative (%s)", i, s.ID, d.Delay)
		}
		if d.Delay > maxDelay {
			return fmt.Errorf("delay %d of %s exceeds %s", i, s.ID, maxDelay)
		}
		if err := d.Transition.Validate(); err != nil {
			return fmt.Errorf("delay %d: %w", i, err)
		}
		id := delayID(s.ID, d)
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate delay id %q in state %s", id, s.ID)
		}
		seen[id] = struct{}{}
	}
	activities := make(map[string]struct{}, len(s.Activities))
	for i, a := range s.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity %d of %s has no ID", i, s.ID)
		}
		if a.Run == nil {
			return fmt.Errorf("activity %q of %s has no Run func", a.ID, s.ID)
		}
		if _, dup := activities[a.ID]; dup {
			return fmt.Errorf("duplicate activity id %q in state %s", a.ID, s.ID)
		}
		activities[a.ID] = struct{}{}
	}
	return nil
}

// clone copies the maps and slices so that a Definition cannot be changed
// through a StateConfig the caller still holds.
func (s *StateConfig) clone() *StateConfig {
	out := &StateConfig{
		ID:         s.ID,
		Entry:      append([]Action(nil), s.Entry...),
		Exit:       append([]Action(nil), s.Exit...),
		Activities: append([]ActivityConfig(nil), s.Activities...),
		After:      make([]DelayConfig, len(s.After)),
		On:         cloneHandlers(s.On),
	}
	for i, d := range s.After {
		d.ID = delayID(s.ID, d)
		d.Transition = d.Transition.clone()
		out.After[i] = d
	}
	return out
}

func (t TransitionConfig) clone() TransitionConfig {
	t.Actions = append([]Action(nil), t.Actions...)
	return t
}

func cloneHandlers(on map[string][]TransitionConfig) map[string][]TransitionConfig {
	out := make(map[string][]TransitionConfig, len(on))
	for event, ts := range on {
		cp := make([]TransitionConfig, len(ts))
		for i, t := range ts {
			cp[i] = t.clone()
		}
		out[event] = cp
	}
	return out
}

// maxDelay is a sanity bound; anything longer is almost certainly a unit mistake.
const maxDelay = 365 * 24 * time.Hour
