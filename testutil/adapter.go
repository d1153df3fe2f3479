// Package testutil holds helpers for driving actors from tests.
package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/comalice/actorchart"
)

// RuntimeAdapter starts an actor in some particular way so that one test
// suite can cover every start path.
type RuntimeAdapter interface {
	Name() string
	Start(def *actorchart.Definition, opts ...actorchart.Option) (*actorchart.Actor, error)
}

// Adapters returns every start path: a fresh interpretation and one that is
// checkpointed, stopped and restored before the test sees it.
func Adapters() []RuntimeAdapter {
	return []RuntimeAdapter{FreshAdapter{}, RestoredAdapter{}}
}

// FreshAdapter interprets the definition directly.
type FreshAdapter struct{}

func (FreshAdapter) Name() string { return "Fresh" }

func (FreshAdapter) Start(def *actorchart.Definition, opts ...actorchart.Option) (*actorchart.Actor, error) {
	return actorchart.Interpret(def, opts...)
}

// RestoredAdapter interprets the definition, takes a checkpoint, stops the
// original and hands back the actor restored from that checkpoint.
type RestoredAdapter struct{}

func (RestoredAdapter) Name() string { return "Restored" }

func (RestoredAdapter) Start(def *actorchart.Definition, opts ...actorchart.Option) (*actorchart.Actor, error) {
	a, err := actorchart.Interpret(def, opts...)
	if err != nil {
		return nil, err
	}
	cp := a.Checkpoint()
	a.Stop()
	return actorchart.Restore(def, cp, opts...)
}

// Quiet is a logger option that discards everything.
func Quiet() actorchart.Option {
	return actorchart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// WaitForState polls a until it reaches state or timeout elapses.
func WaitForState(a *actorchart.Actor, state string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		current := a.Snapshot().State
		if current == state {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("actor %s: still in %q after %s, want %q", a.ID(), current, timeout, state)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Recorder collects every snapshot an actor publishes after it is attached.
type Recorder struct {
	mu    sync.Mutex
	snaps []actorchart.Snapshot
	stop  func()
}

// Record subscribes a new Recorder to a.
func Record(a *actorchart.Actor) *Recorder {
	r := &Recorder{}
	r.stop = a.Subscribe(func(s actorchart.Snapshot) {
		r.mu.Lock()
		r.snaps = append(r.snaps, s)
		r.mu.Unlock()
	})
	return r
}

// Snapshots returns a copy of what has been recorded so far.
func (r *Recorder) Snapshots() []actorchart.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.snaps)
}

// States returns the state of each recorded snapshot, consecutive repeats
// collapsed.
func (r *Recorder) States() []string {
	var out []string
	for _, s := range r.Snapshots() {
		if len(out) == 0 || out[len(out)-1] != s.State {
			out = append(out, s.State)
		}
	}
	return out
}

// Close detaches the recorder.
func (r *Recorder) Close() { r.stop() }
