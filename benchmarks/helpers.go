// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/comalice/actorchart/internal/core"
	"github.com/comalice/actorchart/internal/primitives"
)

func quiet() core.Option {
	return core.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// GenFlatConfig creates a machine with n states cycling via "tick" events.
func GenFlatConfig(n int) primitives.MachineConfig {
	if n < 1 {
		n = 1
	}
	config := primitives.MachineConfig{
		ID:      fmt.Sprintf("flat_%d", n),
		Initial: "s0",
		States:  make(map[string]*primitives.StateConfig, n),
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%d", i)
		target := fmt.Sprintf("s%d", (i+1)%n)
		config.States[id] = &primitives.StateConfig{
			ID: id,
			On: map[string][]primitives.TransitionConfig{"tick": {{Target: target}}},
		}
	}
	return config
}

// GenWideTransitions creates one main state with numTransitions guarded
// "tick" handlers where only the last guard passes, so every event
// evaluates them all.
func GenWideTransitions(numTransitions int) primitives.MachineConfig {
	if numTransitions < 1 {
		numTransitions = 1
	}
	config := primitives.MachineConfig{
		ID:      fmt.Sprintf("wide_%d", numTransitions),
		Initial: "main",
		States:  make(map[string]*primitives.StateConfig, numTransitions+1),
	}
	main := &primitives.StateConfig{ID: "main", On: map[string][]primitives.TransitionConfig{}}
	for i := 0; i < numTransitions; i++ {
		target := fmt.Sprintf("target%d", i)
		last := i == numTransitions-1
		main.On["tick"] = append(main.On["tick"], primitives.TransitionConfig{
			Target: target,
			Guard: primitives.SyncGuard{
				Name: fmt.Sprintf("g%d", i),
				Fn:   func(primitives.Context, primitives.Event) bool { return last },
			},
		})
		config.States[target] = &primitives.StateConfig{
			ID: target,
			On: map[string][]primitives.TransitionConfig{"tick": {{Target: "main"}}},
		}
	}
	config.States["main"] = main
	return config
}

// GenCounterConfig creates a single state machine whose "tick" self
// transition increments an int field, so every event commits new context.
func GenCounterConfig() primitives.MachineConfig {
	return primitives.MachineConfig{
		ID:      "counter",
		Initial: "idle",
		Context: primitives.Context{"n": 0, "label": "bench"},
		Shape:   primitives.Shape{"n": primitives.KindInt, "label": primitives.KindString},
		States: map[string]*primitives.StateConfig{
			"idle": {
				ID: "idle",
				On: map[string][]primitives.TransitionConfig{"tick": {{
					Actions: []primitives.Action{primitives.Assign(func(c primitives.Context, _ primitives.Event) primitives.Context {
						return primitives.Context{"n": c.Int("n") + 1}
					})},
				}}},
			},
		},
	}
}

// Start interprets config and stops the actor when the benchmark ends.
func Start(b testing.TB, config primitives.MachineConfig, opts ...core.Option) *core.Actor {
	b.Helper()
	def, err := primitives.Define(config)
	if err != nil {
		b.Fatal(err)
	}
	a, err := core.InterpretScoped(b, def, append([]core.Option{quiet()}, opts...)...)
	if err != nil {
		b.Fatal(err)
	}
	return a
}
