// Package backend abstracts the quantum-circuit execution engine behind a
// capability interface, so that protocol logic never depends on a concrete
// simulator.
package backend

import (
	"context"

	"github.com/komal2267g/Teleportation-qkd/qkd/circuit"
)

// Counts is a frequency distribution over observed classical-register
// outcomes. Keys list classical bits highest slot first, so for a 3-bit
// register the key "100" means c2=1, c1=0, c0=0.
type Counts map[string]int

// MostFrequent returns the outcome with the highest observed frequency, or
// ok=false if the distribution is empty. Ties break toward the
// lexicographically smallest key so that the choice is deterministic.
func (c Counts) MostFrequent() (outcome string, ok bool) {
	best := -1
	for k, n := range c {
		if n > best || (n == best && k < outcome) {
			outcome, best = k, n
		}
	}
	return outcome, best >= 0
}

// A Backend executes circuit descriptions. Implementations must be safe for
// concurrent use; protocol rounds may execute in parallel.
type Backend interface {
	// Execute runs c for the given number of shots and returns the frequency
	// distribution of classical-register outcomes. For shots=1, exactly one
	// outcome is returned.
	Execute(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)
}
