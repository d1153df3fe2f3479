package actorchart_test

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/comalice/actorchart"
)

func Example() {
	def := actorchart.NewMachineBuilder("door", "closed").
		WithContext(actorchart.Context{"opened": 0}, actorchart.Shape{"opened": actorchart.KindInt}).
		State("closed").
		On("OPEN", actorchart.TransitionConfig{
			Target: "open",
			Actions: []actorchart.Action{actorchart.Assign(func(c actorchart.Context, _ actorchart.Event) actorchart.Context {
				return actorchart.Context{"opened": c.Int("opened") + 1}
			})},
		}).
		State("open").Transition("CLOSE", "closed").
		Done().
		MustBuild()

	a, err := actorchart.Interpret(def, actorchart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		panic(err)
	}
	defer a.Stop()

	for _, evt := range []string{"OPEN", "CLOSE", "OPEN"} {
		_ = a.Send(actorchart.NewEvent(evt, nil))
	}
	snap := a.Snapshot()
	fmt.Println(snap.State, snap.Context.Int("opened"))
	// Output: open 2
}

func ExampleLoadDefinition() {
	doc := `
id: switch
initial: dark
states:
  dark:
    on:
      FLIP: {target: lit, actions: ["emit:lit"]}
  lit:
    on:
      FLIP: dark
`
	def, err := actorchart.LoadDefinition(strings.NewReader(doc), actorchart.Implementations{})
	if err != nil {
		panic(err)
	}
	a, err := actorchart.Interpret(def, actorchart.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		panic(err)
	}
	defer a.Stop()

	a.OnEmit(func(v any) { fmt.Println("emitted", v) })
	_ = a.Send(actorchart.NewEvent("FLIP", nil))
	fmt.Println(a.Snapshot().State)
	// Output:
	// emitted lit
	// lit
}
