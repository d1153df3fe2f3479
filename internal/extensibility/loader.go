package extensibility

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/actorchart/internal/primitives"
)

// A definition document is YAML of the form
//
//	id: light
//	initial: green
//	context: {cycles: 0}
//	shape: {cycles: int}
//	on:
//	  RESET: green
//	states:
//	  green:
//	    entry: [countCycle]
//	    on:
//	      TIMER: {target: yellow, guard: "cycles < 3"}
//	    after:
//	      - {delay: 1s, target: yellow}
//	    activities: [camera]
//
// A transition is a target name, a mapping, or a list of mappings tried in
// order. A null transition (PING: ~) stays in the state and runs nothing. Guards, actions and activities are looked up in Implementations.
type document struct {
	ID      string                    `yaml:"id"`
	Initial string                    `yaml:"initial"`
	Context map[string]any            `yaml:"context"`
	Shape   map[string]string         `yaml:"shape"`
	On      map[string]transitionList `yaml:"on"`
	States  map[string]stateDocument  `yaml:"states"`
}

type stateDocument struct {
	Entry      []string                  `yaml:"entry"`
	Exit       []string                  `yaml:"exit"`
	On         map[string]transitionList `yaml:"on"`
	Activities []string                  `yaml:"activities"`
	After      []delayDocument           `yaml:"after"`
}

type transitionDocument struct {
	Target  string   `yaml:"target"`
	Guard   string   `yaml:"guard"`
	Actions []string `yaml:"actions"`
}

type delayDocument struct {
	ID                 string `yaml:"id"`
	Delay              string `yaml:"delay"`
	Persistent         bool   `yaml:"persistent"`
	transitionDocument `yaml:",inline"`
}

type transitionList []transitionDocument

func (l *transitionList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = transitionList{{Target: n.Value}}
		return nil
	case yaml.MappingNode:
		var t transitionDocument
		if err := n.Decode(&t); err != nil {
			return err
		}
		*l = transitionList{t}
		return nil
	case yaml.SequenceNode:
		var ts []transitionDocument
		if err := n.Decode(&ts); err != nil {
			return err
		}
		*l = ts
		return nil
	}
	return fmt.Errorf("line %d: transition must be a target, a mapping or a list", n.Line)
}

// LoadOption configures the loader.
type LoadOption func(*loader)

// Lenient replaces references that cannot be resolved with inert
// placeholders: guards that pass, actions that do nothing and activities
// that wait to be interrupted. Useful for tools that only need the
// structure of a definition.
func Lenient() LoadOption {
	return func(l *loader) {
		l.lenient = true
	}
}

type loader struct {
	impl    Implementations
	lenient bool
	id      string
}

// ParseDefinition builds a Definition from a YAML document.
func ParseDefinition(data []byte, impl Implementations, opts ...LoadOption) (*primitives.Definition, error) {
	l := &loader{impl: impl}
	for _, opt := range opts {
		opt(l)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse definition: empty document")
		}
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	l.id = doc.ID

	cfg := primitives.MachineConfig{
		ID:      doc.ID,
		Initial: doc.Initial,
		Context: primitives.Context(doc.Context),
		States:  make(map[string]*primitives.StateConfig, len(doc.States)),
	}
	if doc.Shape != nil {
		cfg.Shape = make(primitives.Shape, len(doc.Shape))
		for key, kind := range doc.Shape {
			cfg.Shape[key] = primitives.FieldKind(kind)
		}
	}
	if ctx, err := cfg.Shape.Normalize(cfg.Context); err == nil {
		cfg.Context = ctx
	}

	var err error
	if cfg.On, err = l.handlers("on", doc.On); err != nil {
		return nil, err
	}
	for _, sid := range slices.Sorted(maps.Keys(doc.States)) {
		s, err := l.state(sid, doc.States[sid])
		if err != nil {
			return nil, err
		}
		cfg.States[sid] = s
	}
	return primitives.Define(cfg)
}

// LoadDefinition reads a YAML document from r.
func LoadDefinition(r io.Reader, impl Implementations, opts ...LoadOption) (*primitives.Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return ParseDefinition(data, impl, opts...)
}

// LoadDefinitionFile reads a YAML document from path.
func LoadDefinitionFile(path string, impl Implementations, opts ...LoadOption) (*primitives.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return ParseDefinition(data, impl, opts...)
}

func (l *loader) state(sid string, doc stateDocument) (*primitives.StateConfig, error) {
	path := "states." + sid
	s := primitives.NewStateConfig(sid)

	var err error
	if s.Entry, err = l.actions(path+".entry", doc.Entry); err != nil {
		return nil, err
	}
	if s.Exit, err = l.actions(path+".exit", doc.Exit); err != nil {
		return nil, err
	}
	if s.On, err = l.handlers(path+".on", doc.On); err != nil {
		return nil, err
	}
	for _, ref := range doc.Activities {
		run, err := l.impl.activity(ref)
		if err != nil {
			if !l.lenient {
				return nil, primitives.NewDefinitionError(l.id, path+".activities", err)
			}
			run = waitForInterrupt
		}
		s.AddActivity(primitives.ActivityConfig{ID: ref, Run: run})
	}
	for i, d := range doc.After {
		dpath := fmt.Sprintf("%s.after[%d]", path, i)
		delay, err := parseDelay(d.Delay)
		if err != nil {
			return nil, primitives.NewDefinitionError(l.id, dpath, err)
		}
		t, err := l.transition(dpath, d.transitionDocument)
		if err != nil {
			return nil, err
		}
		s.AddDelay(primitives.DelayConfig{ID: d.ID, Delay: delay, Transition: t, Persistent: d.Persistent})
	}
	return s, nil
}

func (l *loader) handlers(path string, on map[string]transitionList) (map[string][]primitives.TransitionConfig, error) {
	if len(on) == 0 {
		return nil, nil
	}
	out := make(map[string][]primitives.TransitionConfig, len(on))
	for _, event := range slices.Sorted(maps.Keys(on)) {
		list := on[event]
		switch {
		case list == nil:
			// yaml.v3 does not hand null values to UnmarshalYAML.
			list = transitionList{{}}
		case len(list) == 0:
			return nil, primitives.NewDefinitionError(l.id, path+"."+event, errors.New("empty transition list"))
		}
		for i, td := range list {
			t, err := l.transition(fmt.Sprintf("%s.%s[%d]", path, event, i), td)
			if err != nil {
				return nil, err
			}
			out[event] = append(out[event], t)
		}
	}
	return out, nil
}

func (l *loader) transition(path string, td transitionDocument) (primitives.TransitionConfig, error) {
	t := primitives.TransitionConfig{Target: td.Target}
	if td.Guard != "" {
		g, err := l.impl.guard(td.Guard)
		if err != nil {
			if !l.lenient {
				return t, primitives.NewDefinitionError(l.id, path+".guard", err)
			}
			g = primitives.SyncGuard{Name: td.Guard}
		}
		t.Guard = g
	}
	actions, err := l.actions(path+".actions", td.Actions)
	if err != nil {
		return t, err
	}
	t.Actions = actions
	return t, nil
}

func (l *loader) actions(path string, refs []string) ([]primitives.Action, error) {
	var out []primitives.Action
	for i, ref := range refs {
		a, err := l.impl.action(ref)
		if err != nil {
			if !l.lenient {
				return nil, primitives.NewDefinitionError(l.id, fmt.Sprintf("%s[%d]", path, i), err)
			}
			a = primitives.ExecAction{Name: ref}
		}
		out = append(out, a)
	}
	return out, nil
}

// parseDelay accepts a Go duration ("1.5s") or a bare number of milliseconds.
func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("delay is required")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	return d, nil
}

func waitForInterrupt(ctx context.Context, _ primitives.Context, _ primitives.Event, _ func(primitives.Event)) error {
	<-ctx.Done()
	return nil
}
