// Package primitives provides structural fingerprints for definitions.
package primitives

import (
	"crypto/sha256"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// fingerprint hashes the parts of a definition that a persisted snapshot
// depends on: state ids, handler events and targets, delays and activity ids.
// Behaviour (guard and action funcs) cannot be hashed and is ignored.
func fingerprint(cfg *MachineConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s;initial=%s;", cfg.ID, cfg.Initial)
	for _, key := range slices.Sorted(maps.Keys(cfg.Shape)) {
		fmt.Fprintf(&b, "shape.%s=%s;", key, cfg.Shape[key])
	}
	writeHandlers(&b, "global", cfg.On)
	for _, sid := range slices.Sorted(maps.Keys(cfg.States)) {
		s := cfg.States[sid]
		fmt.Fprintf(&b, "state=%s;", sid)
		writeHandlers(&b, sid, s.On)
		for _, d := range s.After {
			fmt.Fprintf(&b, "%s.after=%s/%s/%t->%s;", sid, d.ID, d.Delay, d.Persistent, d.Transition.Target)
		}
		for _, a := range s.Activities {
			fmt.Fprintf(&b, "%s.activity=%s;", sid, a.ID)
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum[:8])
}

func writeHandlers(b *strings.Builder, scope string, on map[string][]TransitionConfig) {
	for _, event := range slices.Sorted(maps.Keys(on)) {
		for i, t := range on[event] {
			fmt.Fprintf(b, "%s.on.%s[%d]->%s;", scope, event, i, t.Target)
		}
	}
}
