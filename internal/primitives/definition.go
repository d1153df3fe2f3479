package primitives

import (
	"maps"
	"slices"
	"time"
)

// Definition is a validated, immutable MachineConfig. Create one with Define
// and share it freely between actors.
type Definition struct {
	cfg         MachineConfig
	fingerprint string
}

// Define validates cfg and returns an immutable Definition. The returned
// Definition holds its own copies of every map and slice in cfg, so later
// changes to cfg do not affect it. Errors are *DefinitionError.
func Define(cfg MachineConfig) (*Definition, error) {
	cp := MachineConfig{
		ID:      cfg.ID,
		Initial: cfg.Initial,
		Context: cfg.Context.Clone(),
		Shape:   maps.Clone(cfg.Shape),
		States:  make(map[string]*StateConfig, len(cfg.States)),
		On:      cloneHandlers(cfg.On),
	}
	for sid, s := range cfg.States {
		if s == nil {
			cp.States[sid] = nil
			continue
		}
		c := s.clone()
		if c.ID == "" {
			c.ID = sid
			for i := range c.After {
				c.After[i].ID = delayID(sid, s.After[i])
			}
		}
		cp.States[sid] = c
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	d := &Definition{cfg: cp}
	d.fingerprint = fingerprint(&d.cfg)
	return d, nil
}

// MustDefine is like Define but panics on error.
func MustDefine(cfg MachineConfig) *Definition {
	d, err := Define(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Definition) ID() string { return d.cfg.ID }

func (d *Definition) Initial() string { return d.cfg.Initial }

func (d *Definition) Shape() Shape { return d.cfg.Shape }

// InitialContext returns the declared initial context.
func (d *Definition) InitialContext() Context { return d.cfg.Context.Clone() }

// State returns the configuration of the named state.
func (d *Definition) State(id string) (*StateConfig, bool) {
	s, ok := d.cfg.States[id]
	return s, ok
}

// StateIDs returns all state ids in sorted order.
func (d *Definition) StateIDs() []string {
	return slices.Sorted(maps.Keys(d.cfg.States))
}

// Handlers returns the per-state and global transitions for event in state.
func (d *Definition) Handlers(state, event string) (local, global []TransitionConfig) {
	if s, ok := d.cfg.States[state]; ok {
		local = s.On[event]
	}
	return local, d.cfg.On[event]
}

// GlobalEvents returns the event types with global handlers, sorted.
func (d *Definition) GlobalEvents() []string {
	return slices.Sorted(maps.Keys(d.cfg.On))
}

// Fingerprint identifies the structure of the definition; see Fingerprint.
func (d *Definition) Fingerprint() string { return d.fingerprint }

// InitialSnapshot returns the snapshot an actor starts from before the
// initial state's entry actions run.
func (d *Definition) InitialSnapshot() Snapshot {
	return Snapshot{
		MachineID: d.cfg.ID,
		State:     d.cfg.Initial,
		Context:   d.InitialContext(),
		Status:    StatusActive,
	}
}

// Status of the actor a snapshot was taken from.
type Status string

const (
	StatusActive  Status = "active"
	StatusStopped Status = "stopped"
)

// Snapshot is the (state, context, last event) triple of an actor. It is
// replaced as a whole on every committed step and never mutated.
type Snapshot struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	State     string    `json:"state" yaml:"state"`
	Context   Context   `json:"context" yaml:"context"`
	Event     *Event    `json:"event,omitempty" yaml:"event,omitempty"`
	Status    Status    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Matches reports whether the snapshot is in state.
func (s Snapshot) Matches(state string) bool {
	return s.State == state
}
