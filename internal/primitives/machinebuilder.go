// Package primitives includes builder helpers for MachineConfig.
package primitives

import (
	"context"
	"time"
)

// MachineBuilder builds a MachineConfig fluently.
type MachineBuilder struct {
	config *MachineConfig
}

// NewMachineBuilder creates a new MachineBuilder.
func NewMachineBuilder(id, initial string) *MachineBuilder {
	return &MachineBuilder{
		config: &MachineConfig{
			ID:      id,
			Initial: initial,
			States:  make(map[string]*StateConfig),
		},
	}
}

// WithContext sets the initial context and its shape.
func (b *MachineBuilder) WithContext(c Context, shape Shape) *MachineBuilder {
	b.config.Context = c
	b.config.Shape = shape
	return b
}

// Global adds a handler that applies in every state.
func (b *MachineBuilder) Global(event string, t TransitionConfig) *MachineBuilder {
	if b.config.On == nil {
		b.config.On = make(map[string][]TransitionConfig)
	}
	b.config.On[event] = append(b.config.On[event], t)
	return b
}

// State creates or retrieves a state by id.
func (b *MachineBuilder) State(id string) *StateBuilder {
	s, ok := b.config.States[id]
	if !ok {
		s = NewStateConfig(id)
		b.config.States[id] = s
	}
	return &StateBuilder{state: s, mb: b}
}

// Config returns the configuration built so far without validating it.
func (b *MachineBuilder) Config() MachineConfig {
	return *b.config
}

// Build validates the configuration and returns the Definition.
func (b *MachineBuilder) Build() (*Definition, error) {
	return Define(*b.config)
}

// MustBuild is like Build but panics on error.
func (b *MachineBuilder) MustBuild() *Definition {
	return MustDefine(*b.config)
}

// StateBuilder for fluent state configuration.
type StateBuilder struct {
	state *StateConfig
	mb    *MachineBuilder
}

// Transition adds a transition to target on event.
func (sb *StateBuilder) Transition(event, target string, opts ...TransitionConfig) *StateBuilder {
	sb.state.Transition(event, target, opts...)
	return sb
}

// On adds a fully specified transition.
func (sb *StateBuilder) On(event string, t TransitionConfig) *StateBuilder {
	sb.state.AddTransition(event, t)
	return sb
}

// Entry appends entry actions.
func (sb *StateBuilder) Entry(actions ...Action) *StateBuilder {
	sb.state.AddEntry(actions...)
	return sb
}

// Exit appends exit actions.
func (sb *StateBuilder) Exit(actions ...Action) *StateBuilder {
	sb.state.AddExit(actions...)
	return sb
}

// Activity declares a background task tied to this state.
func (sb *StateBuilder) Activity(id string, run func(ctx context.Context, c Context, evt Event, send func(Event)) error) *StateBuilder {
	sb.state.AddActivity(ActivityConfig{ID: id, Run: run})
	return sb
}

// After declares an ephemeral delayed transition.
func (sb *StateBuilder) After(d time.Duration, t TransitionConfig) *StateBuilder {
	sb.state.AddDelay(DelayConfig{Delay: d, Transition: t})
	return sb
}

// AfterTable declares the numeric-keyed delay form.
func (sb *StateBuilder) AfterTable(table map[time.Duration]TransitionConfig) *StateBuilder {
	for _, d := range AfterTable(table) {
		sb.state.AddDelay(d)
	}
	return sb
}

// Delay declares a fully specified delay, persistent or not.
func (sb *StateBuilder) Delay(d DelayConfig) *StateBuilder {
	sb.state.AddDelay(d)
	return sb
}

// State switches to another state of the same machine.
func (sb *StateBuilder) State(id string) *StateBuilder {
	return sb.mb.State(id)
}

// Done returns the owning MachineBuilder.
func (sb *StateBuilder) Done() *MachineBuilder {
	return sb.mb
}
