package primitives

import (
	"maps"
	"slices"
)

// Context is the extended state carried by a snapshot.
// It is treated as immutable: Merge and Set return a new Context and never
// modify the receiver, so a Context can be handed to guards, actions and
// subscribers without copying.
type Context map[string]any

// NewContext creates an empty context.
func NewContext() Context {
	return Context{}
}

// Get retrieves a value by key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// Int returns the value for key as an int, or 0 if it is absent or of another type.
func (c Context) Int(key string) int {
	v, _ := c[key].(int)
	return v
}

// String returns the value for key as a string, or "" if it is absent or of another type.
func (c Context) String(key string) string {
	v, _ := c[key].(string)
	return v
}

// Bool returns the value for key as a bool, or false if it is absent or of another type.
func (c Context) Bool(key string) bool {
	v, _ := c[key].(bool)
	return v
}

// Set returns a copy of c with key set to val.
func (c Context) Set(key string, val any) Context {
	return c.Merge(Context{key: val})
}

// Merge returns a shallow merge of patch over c.
func (c Context) Merge(patch Context) Context {
	out := make(Context, len(c)+len(patch))
	maps.Copy(out, c)
	maps.Copy(out, patch)
	return out
}

// Clone returns a shallow copy.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	return maps.Clone(c)
}

// Keys returns the keys in sorted order.
func (c Context) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}
