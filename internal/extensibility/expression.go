package extensibility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/actorchart/internal/primitives"
)

// Expr compiles a simple "key op value" expression like "temp > 30" or
// "loggedIn == true" into a guard over the context. Supported operators are
// ==, !=, <, <=, > and >=. The value is a number, true, false, nil, or a
// string (optionally double quoted). A missing key never passes.
func Expr(expr string) (primitives.Guard, error) {
	parts := strings.Fields(expr)
	if len(parts) < 3 {
		return nil, fmt.Errorf("expression %q: want \"key op value\"", expr)
	}
	key, op := parts[0], parts[1]
	raw := strings.Join(parts[2:], " ")
	want := parseLiteral(raw)

	var cmp func(have any) bool
	switch op {
	case "==":
		cmp = func(have any) bool { return equal(have, want) }
	case "!=":
		cmp = func(have any) bool { return !equal(have, want) }
	case "<", "<=", ">", ">=":
		f, ok := want.(float64)
		if !ok {
			return nil, fmt.Errorf("expression %q: operator %s needs a number", expr, op)
		}
		cmp = func(have any) bool {
			h, ok := number(have)
			if !ok {
				return false
			}
			switch op {
			case "<":
				return h < f
			case "<=":
				return h <= f
			case ">":
				return h > f
			}
			return h >= f
		}
	default:
		return nil, fmt.Errorf("expression %q: unknown operator %q", expr, op)
	}

	return primitives.SyncGuard{
		Name: expr,
		Fn: func(c primitives.Context, _ primitives.Event) bool {
			v, ok := c.Get(key)
			if !ok {
				return false
			}
			return cmp(v)
		},
	}, nil
}

// MustExpr is like Expr but panics on a malformed expression.
func MustExpr(expr string) primitives.Guard {
	g, err := Expr(expr)
	if err != nil {
		panic(err)
	}
	return g
}

func parseLiteral(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "nil", "null":
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if s, err := strconv.Unquote(raw); err == nil {
		return s
	}
	return raw
}

func equal(have, want any) bool {
	if f, ok := want.(float64); ok {
		h, ok := number(have)
		return ok && h == f
	}
	return have == want
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
