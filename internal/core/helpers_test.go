package core

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/actorchart/internal/primitives"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startActor interprets def scoped to the test.
func startActor(t *testing.T, def *primitives.Definition, opts ...Option) *Actor {
	t.Helper()
	a, err := InterpretScoped(t, def, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return a
}

func send(t *testing.T, a *Actor, eventType string) {
	t.Helper()
	require.NoError(t, a.Send(primitives.NewEvent(eventType, nil)))
}

// trace records the order in which actions run.
type trace struct {
	mu      sync.Mutex
	entries []string
}

func (tr *trace) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries = append(tr.entries, s)
}

func (tr *trace) get() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return slices.Clone(tr.entries)
}

func (tr *trace) action(name string) primitives.Action {
	return primitives.Exec(name, func(context.Context, primitives.Context, primitives.Event) error {
		tr.add(name)
		return nil
	})
}

// recorder is an Inspector that keeps every inspection.
type recorder struct {
	mu  sync.Mutex
	all []Inspection
}

func (r *recorder) Inspect(in Inspection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, in)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []error
	for _, in := range r.all {
		if in.Kind == InspectError {
			out = append(out, in.Err)
		}
	}
	return out
}

func (r *recorder) count(kind InspectionKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, in := range r.all {
		if in.Kind == kind {
			n++
		}
	}
	return n
}

func inState(a *Actor, state string) func() bool {
	return func() bool { return a.Snapshot().State == state }
}
