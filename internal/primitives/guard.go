package primitives

import "context"

// Guard gates a transition. It is a closed set of tagged values: SyncGuard,
// AsyncGuard and the AndGuard/OrGuard/NotGuard combinators. A nil Guard
// always passes.
type Guard interface {
	guardName() string
}

// SyncGuard is a pure predicate over the current context and event.
type SyncGuard struct {
	Name string
	Fn   func(c Context, evt Event) bool
}

// AsyncGuard is a predicate that may block before answering. It receives the
// actor's lifecycle context, which is cancelled when the actor stops.
// A non-nil error is a guard evaluation failure, not a false result.
type AsyncGuard struct {
	Name string
	Fn   func(ctx context.Context, c Context, evt Event) (bool, error)
}

// AndGuard passes iff every operand passes. Evaluation stops at the first false.
type AndGuard struct {
	Guards []Guard
}

// OrGuard passes iff at least one operand passes. Evaluation stops at the first true.
type OrGuard struct {
	Guards []Guard
}

// NotGuard negates its operand.
type NotGuard struct {
	Guard Guard
}

func (g SyncGuard) guardName() string  { return nameOr(g.Name, "guard") }
func (g AsyncGuard) guardName() string { return nameOr(g.Name, "asyncGuard") }
func (g AndGuard) guardName() string   { return "and" }
func (g OrGuard) guardName() string    { return "or" }
func (g NotGuard) guardName() string   { return "not" }

// GuardName returns a printable name for g, used in errors and visualisation.
func GuardName(g Guard) string {
	if g == nil {
		return ""
	}
	return g.guardName()
}

// When wraps a synchronous predicate.
func When(fn func(c Context, evt Event) bool) Guard {
	return SyncGuard{Fn: fn}
}

// WhenAsync wraps a predicate that may block or fail.
func WhenAsync(fn func(ctx context.Context, c Context, evt Event) (bool, error)) Guard {
	return AsyncGuard{Fn: fn}
}

func And(guards ...Guard) Guard { return AndGuard{Guards: guards} }

func Or(guards ...Guard) Guard { return OrGuard{Guards: guards} }

func Not(g Guard) Guard { return NotGuard{Guard: g} }

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
