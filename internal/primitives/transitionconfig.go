// TransitionConfig defines a transition: an optional target, an optional
// guard, and the ordered actions to run when it is taken.
//
// An empty Target (or one equal to the source state) makes a self-transition:
// only Actions run, entry/exit are skipped and the state's delays and
// activities are left untouched.
package primitives

import (
	"fmt"
	"strings"
)

type TransitionConfig struct {
	Target  string   `json:"target,omitempty" yaml:"target,omitempty"`
	Guard   Guard    `json:"-" yaml:"-"`
	Actions []Action `json:"-" yaml:"-"`
	// DelayID names the delay when this transition is used in an after table.
	DelayID string `json:"delayID,omitempty" yaml:"delayID,omitempty"`
}

// IsSelf reports whether taking t from source is a self-transition.
func (t TransitionConfig) IsSelf(source string) bool {
	return t.Target == "" || t.Target == source
}

// Validate checks target path syntax.
func (t *TransitionConfig) Validate() error {
	if t.Target == "" {
		return nil
	}
	if strings.TrimSpace(t.Target) != t.Target {
		return fmt.Errorf("invalid target %q: surrounding whitespace", t.Target)
	}
	// Basic ID validation: alphanumeric + underscores/hyphens/dots
	for i, r := range t.Target {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return fmt.Errorf("invalid target %q: invalid character '%c' at index %d", t.Target, r, i)
		}
	}
	return nil
}
