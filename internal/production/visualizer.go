package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/comalice/actorchart/internal/primitives"
)

// DefinitionView is a serializable description of a definition: states,
// handlers and delays, with guards and actions reduced to their names.
type DefinitionView struct {
	ID      string           `json:"id" yaml:"id"`
	Initial string           `json:"initial" yaml:"initial"`
	Shape   primitives.Shape `json:"shape,omitempty" yaml:"shape,omitempty"`
	States  []StateView      `json:"states" yaml:"states"`
	Global  []TransitionView `json:"global,omitempty" yaml:"global,omitempty"`
}

type StateView struct {
	ID          string           `json:"id" yaml:"id"`
	Entry       []string         `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit        []string         `json:"exit,omitempty" yaml:"exit,omitempty"`
	Activities  []string         `json:"activities,omitempty" yaml:"activities,omitempty"`
	Transitions []TransitionView `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Delays      []DelayView      `json:"delays,omitempty" yaml:"delays,omitempty"`
}

type TransitionView struct {
	Event   string   `json:"event" yaml:"event"`
	Target  string   `json:"target,omitempty" yaml:"target,omitempty"`
	Guard   string   `json:"guard,omitempty" yaml:"guard,omitempty"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

type DelayView struct {
	ID         string   `json:"id" yaml:"id"`
	Delay      string   `json:"delay" yaml:"delay"`
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"`
	Guard      string   `json:"guard,omitempty" yaml:"guard,omitempty"`
	Actions    []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Persistent bool     `json:"persistent,omitempty" yaml:"persistent,omitempty"`
}

// View describes def. States and events are sorted by id.
func View(def *primitives.Definition) DefinitionView {
	v := DefinitionView{ID: def.ID(), Initial: def.Initial(), Shape: def.Shape()}
	for _, sid := range def.StateIDs() {
		s, _ := def.State(sid)
		sv := StateView{
			ID:    sid,
			Entry: actionNames(s.Entry),
			Exit:  actionNames(s.Exit),
		}
		for _, a := range s.Activities {
			sv.Activities = append(sv.Activities, a.ID)
		}
		sv.Transitions = transitionViews(s.On)
		for _, d := range s.After {
			sv.Delays = append(sv.Delays, DelayView{
				ID:         d.ID,
				Delay:      d.Delay.String(),
				Target:     d.Transition.Target,
				Guard:      primitives.GuardName(d.Transition.Guard),
				Actions:    actionNames(d.Transition.Actions),
				Persistent: d.Persistent,
			})
		}
		v.States = append(v.States, sv)
	}
	global := make(map[string][]primitives.TransitionConfig)
	for _, event := range def.GlobalEvents() {
		_, global[event] = def.Handlers("", event)
	}
	v.Global = transitionViews(global)
	return v
}

func transitionViews(on map[string][]primitives.TransitionConfig) []TransitionView {
	var out []TransitionView
	for _, event := range slices.Sorted(maps.Keys(on)) {
		for _, t := range on[event] {
			out = append(out, TransitionView{
				Event:   event,
				Target:  t.Target,
				Guard:   primitives.GuardName(t.Guard),
				Actions: actionNames(t.Actions),
			})
		}
	}
	return out
}

func actionNames(actions []primitives.Action) []string {
	var out []string
	for _, a := range actions {
		out = append(out, primitives.ActionName(a))
	}
	return out
}

// ExportJSON serializes View(def).
func ExportJSON(def *primitives.Definition) ([]byte, error) {
	return json.MarshalIndent(View(def), "", "  ")
}

// ExportDOT generates Graphviz DOT source for def. The current state, if
// not empty, is highlighted. Delayed transitions are dashed and global
// handlers are drawn from a separate "*" node.
func ExportDOT(def *primitives.Definition, current string) string {
	v := View(def)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", v.ID)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
  "__initial" [shape=point];
`)
	fmt.Fprintf(&buf, "  \"__initial\" -> %q;\n", v.Initial)

	for _, s := range v.States {
		label := s.ID
		for _, a := range s.Activities {
			label += "\\ndo / " + a
		}
		style := ""
		if s.ID == current {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=\"%s\"%s];\n", s.ID, label, style)
	}

	for _, s := range v.States {
		for _, t := range s.Transitions {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", s.ID, targetOf(s.ID, t.Target), edgeLabel(t.Event, t.Guard))
		}
		for _, d := range s.Delays {
			label := edgeLabel("after "+d.Delay, d.Guard)
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, style=dashed];\n", s.ID, targetOf(s.ID, d.Target), label)
		}
	}

	if len(v.Global) > 0 {
		buf.WriteString("  \"*\" [shape=plaintext];\n")
		for _, t := range v.Global {
			if t.Target == "" {
				continue
			}
			fmt.Fprintf(&buf, "  \"*\" -> %q [label=%q, style=dotted];\n", t.Target, edgeLabel(t.Event, t.Guard))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func targetOf(source, target string) string {
	if target == "" {
		return source
	}
	return target
}

func edgeLabel(event, guard string) string {
	if guard == "" {
		return event
	}
	return fmt.Sprintf("%s [%s]", event, strings.ReplaceAll(guard, `"`, `'`))
}
