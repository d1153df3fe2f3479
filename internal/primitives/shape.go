package primitives

import (
	"fmt"
	"math"
)

// FieldKind names the type a context key must hold.
type FieldKind string

const (
	KindAny    FieldKind = "any"
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
	// KindMap holds a map[string]any whose leaves are plain data: nil, bool,
	// int, float64, string, or further maps and lists of those.
	KindMap FieldKind = "map"
	// KindList holds a []any whose elements are plain data.
	KindList FieldKind = "list"
)

func (k FieldKind) valid() bool {
	switch k {
	case KindAny, KindString, KindInt, KindFloat, KindBool, KindMap, KindList:
		return true
	}
	return false
}

// Shape describes the keys a context may carry and the kind of each.
// A nil Shape accepts any context.
type Shape map[string]FieldKind

// Conforms reports whether c matches the shape. Keys that are declared but
// absent are allowed; undeclared keys are not.
func (s Shape) Conforms(c Context) error {
	if s == nil {
		return nil
	}
	for key, val := range c {
		kind, ok := s[key]
		if !ok {
			return fmt.Errorf("context key %q is not declared in shape", key)
		}
		if err := checkKind(kind, val); err != nil {
			return fmt.Errorf("context key %q: %w", key, err)
		}
	}
	return nil
}

func checkKind(kind FieldKind, val any) error {
	ok := true
	switch kind {
	case KindAny:
	case KindString:
		_, ok = val.(string)
	case KindInt:
		_, ok = val.(int)
	case KindFloat:
		_, ok = val.(float64)
	case KindBool:
		_, ok = val.(bool)
	case KindMap:
		m, isMap := val.(map[string]any)
		ok = isMap && jsonNative(m)
	case KindList:
		l, isList := val.([]any)
		ok = isList && jsonNative(l)
	default:
		return fmt.Errorf("unknown field kind %q", kind)
	}
	if !ok {
		return fmt.Errorf("want %s, got %T", kind, val)
	}
	return nil
}

func jsonNative(v any) bool {
	switch t := v.(type) {
	case nil, bool, int, float64, string:
		return true
	case map[string]any:
		for _, e := range t {
			if !jsonNative(e) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range t {
			if !jsonNative(e) {
				return false
			}
		}
		return true
	}
	return false
}

// Normalize coerces a decoded context back to the kinds declared by the shape.
// Decoders disagree on numeric types (JSON yields float64, YAML yields int for
// integral values, and YAML decodes nested mappings as Context). Declared int
// and float keys get their kind back. Everywhere else, including every key of
// a nil Shape, whole numbers become int and fractional ones float64, so
// decode(encode(c)) == c for every conforming c whose untyped numbers are in
// that form.
func (s Shape) Normalize(c Context) (Context, error) {
	out := make(Context, len(c))
	for key, val := range c {
		kind := s[key]
		if s == nil {
			kind = KindAny
		}
		norm, err := normalizeKind(kind, val)
		if err != nil {
			return nil, fmt.Errorf("context key %q: %w", key, err)
		}
		out[key] = norm
	}
	if err := s.Conforms(out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeKind(kind FieldKind, val any) (any, error) {
	switch kind {
	case KindInt:
		switch n := val.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("want int, got fractional %v", n)
			}
			return int(n), nil
		}
	case KindFloat:
		switch n := val.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		}
	case KindMap, KindList, KindAny, "":
		return canonical(val), nil
	}
	return val, nil
}

// canonical rewrites decoded data into plain maps and lists, with whole
// numbers as int and fractional numbers as float64.
func canonical(v any) any {
	switch t := v.(type) {
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int(t)
		}
		return t
	case Context:
		return canonicalMap(t)
	case map[string]any:
		return canonicalMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	}
	return v
}

func canonicalMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = canonical(e)
	}
	return out
}
