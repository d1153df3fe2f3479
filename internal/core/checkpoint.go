package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/comalice/actorchart/internal/primitives"
)

// Checkpoint is the persisted form of an actor tree: the snapshot of the
// actor, the checkpoints of its children and the fingerprint of the
// definition the snapshot belongs to.
type Checkpoint struct {
	ActorID     string                `json:"actorID" yaml:"actorID"`
	Fingerprint string                `json:"fingerprint" yaml:"fingerprint"`
	Snapshot    primitives.Snapshot   `json:"snapshot" yaml:"snapshot"`
	Children    map[string]Checkpoint `json:"children,omitempty" yaml:"children,omitempty"`
	Timestamp   time.Time             `json:"timestamp" yaml:"timestamp"`
}

// Checkpoint captures the actor and, recursively, its children.
func (a *Actor) Checkpoint() Checkpoint {
	cp := Checkpoint{
		ActorID:     a.id,
		Fingerprint: a.def.Fingerprint(),
		Snapshot:    a.Snapshot(),
		Timestamp:   time.Now(),
	}
	children := a.Children()
	if len(children) > 0 {
		cp.Children = make(map[string]Checkpoint, len(children))
		for _, id := range slices.Sorted(maps.Keys(children)) {
			cp.Children[id] = children[id].Checkpoint()
		}
	}
	return cp
}

// Restore interprets def starting from cp. The actor keeps cp's id unless
// opts override it. Children found in cp are respawned when def spawns them
// statically. A checkpoint taken from a structurally different definition is
// rejected with ErrFingerprintMismatch.
func Restore(def *primitives.Definition, cp Checkpoint, opts ...Option) (*Actor, error) {
	if cp.Fingerprint != def.Fingerprint() {
		return nil, fmt.Errorf("%w: have %s, checkpoint %s", ErrFingerprintMismatch, def.Fingerprint(), cp.Fingerprint)
	}
	all := make([]Option, 0, len(opts)+3)
	if cp.ActorID != "" {
		all = append(all, WithID(cp.ActorID))
	}
	all = append(all, opts...)
	all = append(all, WithSnapshot(cp.Snapshot), withChildCheckpoints(cp.Children))
	return Interpret(def, all...)
}

// Resume loads the checkpoint stored for actorID and restores it, or starts
// a fresh actor with that id when nothing is stored. The persister is not
// attached to the actor; pass WithPersister in opts for that.
func Resume(ctx context.Context, p Persister, def *primitives.Definition, actorID string, opts ...Option) (*Actor, error) {
	cp, err := p.Load(ctx, actorID)
	switch {
	case errors.Is(err, ErrCheckpointNotFound):
		return Interpret(def, append([]Option{WithID(actorID)}, opts...)...)
	case err != nil:
		return nil, fmt.Errorf("load checkpoint %q: %w", actorID, err)
	}
	return Restore(def, cp, opts...)
}
