package primitives

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// DelayConfig is a delayed transition armed while its owning state is
// occupied. A persistent delay is not cancelled when the state is exited;
// it fires into whatever state is current when it elapses.
type DelayConfig struct {
	ID         string           `json:"id" yaml:"id"`
	Delay      time.Duration    `json:"delay" yaml:"delay"`
	Transition TransitionConfig `json:"transition" yaml:"transition"`
	Persistent bool             `json:"persistent,omitempty" yaml:"persistent,omitempty"`
}

// AfterTable converts the numeric-keyed form (delay -> transition) into
// DelayConfigs ordered by delay. The id of each entry is the transition's
// DelayID, or a generated one when that is empty.
func AfterTable(table map[time.Duration]TransitionConfig) []DelayConfig {
	delays := slices.Sorted(maps.Keys(table))
	out := make([]DelayConfig, 0, len(delays))
	for _, d := range delays {
		t := table[d]
		out = append(out, DelayConfig{ID: t.DelayID, Delay: d, Transition: t})
	}
	return out
}

// GeneratedDelayID is the id given to a delay declared without one.
func GeneratedDelayID(state string, d time.Duration) string {
	return fmt.Sprintf("%s.after(%s)", state, d)
}
