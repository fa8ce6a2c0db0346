package qkd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/komal2267g/Teleportation-qkd/qkd/backend"
	"github.com/komal2267g/Teleportation-qkd/qkd/circuit"
)

// Qubit roles and classical-bit slots within a round circuit. Qubit 0 carries
// the sender's data, qubits 1 and 2 are the entangled pair halves. Classical
// slot 0 doubles as the eavesdropper's scratch bit; the sender's Bell
// measurement overwrites it.
const (
	qData    = 0
	qCarrier = 1
	qBob     = 2

	clBell0 = 0
	clBell1 = 1
	clBob   = 2

	numQubits = 3
	numClbits = 3
)

// A Runner assembles and executes the circuit for a single protocol round.
type Runner struct {
	// Backend executes assembled circuits. Must be non-nil.
	Backend backend.Backend

	// Eve, when non-nil, is consulted on rounds with EveActive set.
	Eve *Eavesdropper

	// ClassicalCorrection selects the explicit classically-conditioned
	// formulation of the teleportation corrections instead of
	// quantum-controlled gates on the collapsed measurement qubits. Both
	// yield identical outcome statistics.
	ClassicalCorrection bool

	// RenderFirst dumps the first circuit this runner executes to RenderTo
	// (stdout when nil), for diagnostic inspection.
	RenderFirst bool
	RenderTo    io.Writer

	// Log receives per-round debug output. Nil disables logging.
	Log *zap.Logger

	rendered atomic.Bool
}

// Run executes one protocol round: it assembles the teleportation circuit for
// in, delegates to the backend with a single shot, and extracts the
// receiver's measured bit. Randomness for the eavesdropper's draws comes from
// rnd.
func (r *Runner) Run(ctx context.Context, in RoundInput, rnd *rand.Rand) (RoundOutcome, error) {
	c, err := r.buildCircuit(in, rnd)
	if err != nil {
		return RoundOutcome{}, err
	}
	r.maybeRender(c)

	counts, err := r.Backend.Execute(ctx, c, 1)
	if err != nil {
		return RoundOutcome{}, fmt.Errorf("executing round circuit: %w", err)
	}
	bobBit, err := extractBobBit(counts)
	if err != nil {
		return RoundOutcome{}, err
	}
	if log := r.Log; log != nil {
		log.Debug("round executed",
			zap.Uint8("aliceBit", uint8(in.AliceBit)),
			zap.Stringer("aliceBasis", in.AliceBasis),
			zap.Stringer("bobBasis", in.BobBasis),
			zap.Uint8("bobBit", uint8(bobBit)),
		)
	}
	return RoundOutcome{
		AliceBit:   in.AliceBit,
		AliceBasis: in.AliceBasis,
		BobBasis:   in.BobBasis,
		BobBit:     bobBit,
	}, nil
}

// buildCircuit lays out one round: entangled pair, optional interception,
// state preparation, Bell measurement with corrections, and the receiver's
// measurement.
func (r *Runner) buildCircuit(in RoundInput, rnd *rand.Rand) (*circuit.Circuit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := circuit.New(numQubits, numClbits)

	bellPair(c, qCarrier, qBob)
	if in.EveActive && r.Eve != nil {
		r.Eve.intercept(c, qCarrier, clBell0, rnd)
	}
	prepare(c, qData, in.AliceBit, in.AliceBasis)
	r.teleport(c)
	if in.BobBasis == BasisX {
		c.H(qBob)
	}
	c.Measure(qBob, clBob)
	return c, nil
}

// prepare encodes (bit, basis) onto qubit q, assumed to start in |0>:
// nothing for (0,Z), a bit-flip for (1,Z), and a trailing basis rotation for
// the X basis. Inputs are validated by the caller.
func prepare(c *circuit.Circuit, q int, bit Bit, basis Basis) {
	if bit == 1 {
		c.X(q)
	}
	if basis == BasisX {
		c.H(q)
	}
}

// bellPair entangles fresh qubits a and b into (|00>+|11>)/sqrt(2).
func bellPair(c *circuit.Circuit, a, b int) {
	c.H(a)
	c.CX(a, b)
}

// teleport performs the Bell measurement of the data qubit and the sender's
// pair half, then applies the receiver-side corrections. The default
// formulation conditions the corrections on the already-collapsed measurement
// qubits; both qubits hold definite computational-basis values at that point,
// so the gates are equivalent to classical branches keyed on the measured
// bits.
func (r *Runner) teleport(c *circuit.Circuit) {
	c.CX(qData, qCarrier)
	c.H(qData)
	c.Measure(qData, clBell0)
	c.Measure(qCarrier, clBell1)
	if r.ClassicalCorrection {
		c.CIfX(clBell1, qBob)
		c.CIfZ(clBell0, qBob)
	} else {
		c.CX(qCarrier, qBob)
		c.CZ(qData, qBob)
	}
}

// extractBobBit picks the most frequent outcome from counts, strips any
// formatting separators, and reads the receiver's classical slot.
func extractBobBit(counts backend.Counts) (Bit, error) {
	key, ok := counts.MostFrequent()
	if !ok {
		return 0, ErrNoOutcome
	}
	key = strings.ReplaceAll(key, " ", "")
	// Outcome keys list classical bits highest slot first.
	idx := len(key) - 1 - clBob
	if idx < 0 {
		return 0, fmt.Errorf("outcome %q shorter than %d classical bits", key, numClbits)
	}
	switch key[idx] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, fmt.Errorf("outcome %q holds non-binary value at slot %d", key, clBob)
}

func (r *Runner) maybeRender(c *circuit.Circuit) {
	if !r.RenderFirst || !r.rendered.CompareAndSwap(false, true) {
		return
	}
	w := r.RenderTo
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, "--- example round circuit ---")
	fmt.Fprint(w, c.QASM())
}
