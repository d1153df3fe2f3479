package core

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Registry is an in-memory Persister that keeps the checkpoint history of
// every actor it has seen, oldest first.
type Registry struct {
	mu      sync.RWMutex
	limit   int
	history map[string][]Checkpoint
}

// NewRegistry returns a Registry keeping at most limit checkpoints per
// actor. A limit of zero keeps all of them.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit, history: make(map[string][]Checkpoint)}
}

func (r *Registry) Save(_ context.Context, cp Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := append(r.history[cp.ActorID], cp)
	if r.limit > 0 && len(h) > r.limit {
		h = slices.Clone(h[len(h)-r.limit:])
	}
	r.history[cp.ActorID] = h
	return nil
}

// Load returns the newest checkpoint of actorID.
func (r *Registry) Load(_ context.Context, actorID string) (Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h := r.history[actorID]
	if len(h) == 0 {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	return h[len(h)-1], nil
}

// History returns the retained checkpoints of actorID, oldest first.
func (r *Registry) History(actorID string) []Checkpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.history[actorID])
}

// Actors returns the ids of every actor with a checkpoint, sorted.
func (r *Registry) Actors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.history))
}
