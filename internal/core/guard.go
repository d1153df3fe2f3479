package core

import (
	"context"
	"fmt"

	"github.com/comalice/actorchart/internal/primitives"
)

// EvaluateGuard decides whether a transition guarded by g may be taken.
// A nil guard passes. And/Or evaluate left to right and stop as soon as the
// result is known, so operands after that point never run. An error is an
// evaluation failure and is distinct from a false result.
func EvaluateGuard(ctx context.Context, g primitives.Guard, c primitives.Context, evt primitives.Event) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("guard %s panicked: %v", primitives.GuardName(g), r)
		}
	}()
	return evaluate(ctx, g, c, evt)
}

func evaluate(ctx context.Context, g primitives.Guard, c primitives.Context, evt primitives.Event) (bool, error) {
	switch g := g.(type) {
	case nil:
		return true, nil
	case primitives.SyncGuard:
		if g.Fn == nil {
			return true, nil
		}
		return g.Fn(c, evt), nil
	case primitives.AsyncGuard:
		if g.Fn == nil {
			return true, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return g.Fn(ctx, c, evt)
	case primitives.AndGuard:
		for _, operand := range g.Guards {
			ok, err := evaluate(ctx, operand, c, evt)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case primitives.OrGuard:
		for _, operand := range g.Guards {
			ok, err := evaluate(ctx, operand, c, evt)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case primitives.NotGuard:
		ok, err := evaluate(ctx, g.Guard, c, evt)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return false, fmt.Errorf("unsupported guard type %T", g)
}
