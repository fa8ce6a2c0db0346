package qkd

import (
	"math/rand"

	"github.com/komal2267g/Teleportation-qkd/qkd/circuit"
)

// DefaultEveProb is the per-round interception probability used when an
// Eavesdropper is constructed with a zero probability.
const DefaultEveProb = 0.5

// An Eavesdropper models an intercept-resend attacker on the entangled
// carrier qubit. On each round where it is active it triggers independently
// with probability Prob, picks a measurement basis uniformly from {Z, X}, and
// measures the carrier in that basis before the qubit continues downstream.
//
// Note that the attacker measures in place and undoes only its own basis
// rotation; it does not re-prepare a fresh qubit in its observed basis. This
// reproduces the standard intercept-resend disturbance whenever the chosen
// basis disagrees with the carrier's true basis.
type Eavesdropper struct {
	// Prob is the per-round interception probability. Zero selects
	// DefaultEveProb; to disable the attacker entirely, leave EveActive unset
	// on the round instead.
	Prob float64
}

func (e *Eavesdropper) prob() float64 {
	if e.Prob == 0 {
		return DefaultEveProb
	}
	return e.Prob
}

// intercept appends the attacker's gates for one round to c: an optional
// basis rotation, a measurement of the carrier into clbit, and the inverse
// rotation. The trigger and basis draws come from rnd so that seeded runs are
// reproducible.
func (e *Eavesdropper) intercept(c *circuit.Circuit, carrier, clbit int, rnd *rand.Rand) {
	if rnd.Float64() >= e.prob() {
		return
	}
	basis := BasisZ
	if rnd.Intn(2) == 1 {
		basis = BasisX
	}
	if basis == BasisX {
		c.H(carrier)
	}
	c.Measure(carrier, clbit)
	if basis == BasisX {
		c.H(carrier)
	}
}
