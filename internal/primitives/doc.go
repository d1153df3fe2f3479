// Package primitives provides the foundational data structures for the actor
// interpreter: events, contexts and their shapes, guards, actions, activities,
// delays, and the state/machine configuration they are assembled into.
//
// Everything here is data. Guards and actions are tagged values that describe
// what to do; evaluating and executing them is the job of internal/core.
//
// Core invariants:
//   - A Definition is validated once by Define and never mutated afterwards;
//     it is safe to share between any number of actors.
//   - Context values are copy-on-write: Merge returns a new map.
//   - Events are plain values and must not be mutated after construction.
package primitives
