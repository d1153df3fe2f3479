// MachineConfig represents the top-level configuration of a machine: its ID,
// initial state, initial context and shape, states, and global handlers.
// Validation ensures ID/Initial presence, state validity, target existence
// and static cancel-id reachability.
package primitives

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// MachineConfig defines the complete machine configuration.
type MachineConfig struct {
	ID      string                  `json:"id" yaml:"id"`
	Initial string                  `json:"initial" yaml:"initial"`
	Context Context                 `json:"context,omitempty" yaml:"context,omitempty"`
	Shape   Shape                   `json:"shape,omitempty" yaml:"shape,omitempty"`
	States  map[string]*StateConfig `json:"states" yaml:"states"`
	// On holds handlers that apply in every state.
	On map[string][]TransitionConfig `json:"on,omitempty" yaml:"on,omitempty"`
}

// Validate validates the entire machine configuration:
// - Non-empty ID and Initial
// - Initial exists in States
// - Every state validates and is keyed by its own ID
// - All transition targets (state, global and delayed) exist in States
// - Initial context conforms to Shape
// - Delay ids are unique across all states
// - Static cancel ids name a declared delay
func (m *MachineConfig) Validate() error {
	if m.ID == "" {
		return NewDefinitionError(m.ID, "id", errors.New("machine ID is required"))
	}
	if m.Initial == "" {
		return NewDefinitionError(m.ID, "initial", errors.New("initial state ID is required"))
	}
	if len(m.States) == 0 {
		return NewDefinitionError(m.ID, "states", errors.New("states map is required and cannot be empty"))
	}
	if _, ok := m.States[m.Initial]; !ok {
		return NewDefinitionError(m.ID, "initial", fmt.Errorf("%w: %q", ErrUnknownTarget, m.Initial))
	}
	for kind := range maps.Values(m.Shape) {
		if !kind.valid() {
			return NewDefinitionError(m.ID, "shape", fmt.Errorf("unknown field kind %q", kind))
		}
	}
	if err := m.Shape.Conforms(m.Context); err != nil {
		return NewDefinitionError(m.ID, "context", fmt.Errorf("%w: %w", ErrContextMismatch, err))
	}

	delayIDs := make(map[string]string)
	for _, sid := range slices.Sorted(maps.Keys(m.States)) {
		state := m.States[sid]
		if state == nil {
			return NewDefinitionError(m.ID, "states."+sid, errors.New("nil state"))
		}
		if state.ID == "" {
			state.ID = sid
		}
		if state.ID != sid {
			return NewDefinitionError(m.ID, "states."+sid, fmt.Errorf("state keyed %q has ID %q", sid, state.ID))
		}
		if err := state.Validate(); err != nil {
			return NewDefinitionError(m.ID, "states."+sid, err)
		}
		// Timers are keyed by id across the whole actor.
		for _, id := range state.DelayIDs() {
			if owner, dup := delayIDs[id]; dup {
				return NewDefinitionError(m.ID, "states."+sid+".after", fmt.Errorf("%w: %q is also declared in state %s", ErrDuplicateDelayID, id, owner))
			}
			delayIDs[id] = sid
		}
	}

	check := func(path string, t TransitionConfig) error {
		if t.Target != "" {
			if _, ok := m.States[t.Target]; !ok {
				return NewDefinitionError(m.ID, path, fmt.Errorf("%w: %q", ErrUnknownTarget, t.Target))
			}
		}
		return m.checkCancels(path, t.Actions, delayIDs)
	}
	for _, sid := range slices.Sorted(maps.Keys(m.States)) {
		state := m.States[sid]
		for event, transitions := range state.On {
			for i, t := range transitions {
				if err := check(fmt.Sprintf("states.%s.on.%s[%d]", sid, event, i), t); err != nil {
					return err
				}
			}
		}
		for i, d := range state.After {
			if err := check(fmt.Sprintf("states.%s.after[%d]", sid, i), d.Transition); err != nil {
				return err
			}
		}
		if err := m.checkCancels("states."+sid+".entry", state.Entry, delayIDs); err != nil {
			return err
		}
		if err := m.checkCancels("states."+sid+".exit", state.Exit, delayIDs); err != nil {
			return err
		}
	}
	for event, transitions := range m.On {
		for i, t := range transitions {
			if err := t.Validate(); err != nil {
				return NewDefinitionError(m.ID, fmt.Sprintf("on.%s[%d]", event, i), err)
			}
			if err := check(fmt.Sprintf("on.%s[%d]", event, i), t); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCancels is best effort: computed ids and ids collected by
// EnqueueActions are only known at run time.
func (m *MachineConfig) checkCancels(path string, actions []Action, delayIDs map[string]string) error {
	for i, a := range actions {
		c, ok := a.(CancelAction)
		if !ok || c.Fn != nil {
			continue
		}
		if _, ok := delayIDs[c.ID]; !ok {
			return NewDefinitionError(m.ID, fmt.Sprintf("%s.actions[%d]", path, i), fmt.Errorf("%w: %q", ErrUnknownDelayID, c.ID))
		}
	}
	return nil
}
