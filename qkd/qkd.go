// Package qkd simulates a teleportation-based variant of the BB84 quantum key
// distribution protocol: per-round circuit construction, an optional
// intercept-resend eavesdropper, basis sifting, and quantum bit error rate
// estimation.
package qkd

import (
	"errors"
	"fmt"

	"github.com/komal2267g/Teleportation-qkd/qkd/bitstring"
)

var (
	// ErrInvalidBasis reports a basis value outside {Z, X}. Unrecognized bases
	// are rejected rather than silently treated as an identity preparation.
	ErrInvalidBasis = errors.New("invalid basis, must be Z or X")

	// ErrInvalidBit reports a classical bit value outside {0, 1}.
	ErrInvalidBit = errors.New("invalid bit, must be 0 or 1")

	// ErrNoOutcome reports a backend that returned an empty outcome
	// distribution.
	ErrNoOutcome = errors.New("backend returned no outcomes")
)

// A Bit is a classical bit with value 0 or 1.
type Bit uint8

func checkBit(b Bit) error {
	if b > 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBit, b)
	}
	return nil
}

// A Basis is a single-qubit measurement basis: computational (Z) or conjugate
// (X).
type Basis uint8

const (
	BasisZ Basis = iota
	BasisX
)

// String implements fmt.Stringer.
func (b Basis) String() string {
	switch b {
	case BasisZ:
		return "Z"
	case BasisX:
		return "X"
	}
	return fmt.Sprintf("basis(%d)", uint8(b))
}

func checkBasis(b Basis) error {
	if b != BasisZ && b != BasisX {
		return fmt.Errorf("%w: %v", ErrInvalidBasis, b)
	}
	return nil
}

// ParseBasis converts a "Z"/"X" label (case-insensitive) to a Basis.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "Z", "z":
		return BasisZ, nil
	case "X", "x":
		return BasisX, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidBasis, s)
}

// A RoundInput fixes the sender bit, both basis choices, and the eavesdropper
// flag for one protocol round. It is immutable once constructed.
type RoundInput struct {
	AliceBit   Bit
	AliceBasis Basis
	BobBasis   Basis
	EveActive  bool
}

func (in RoundInput) validate() error {
	if err := checkBit(in.AliceBit); err != nil {
		return fmt.Errorf("alice bit: %w", err)
	}
	if err := checkBasis(in.AliceBasis); err != nil {
		return fmt.Errorf("alice basis: %w", err)
	}
	if err := checkBasis(in.BobBasis); err != nil {
		return fmt.Errorf("bob basis: %w", err)
	}
	return nil
}

// A RoundOutcome records the result of one protocol round. It is produced
// exactly once per round and never mutated afterward.
type RoundOutcome struct {
	AliceBit   Bit
	AliceBasis Basis
	BobBasis   Basis
	BobBit     Bit
}

// A Run is the aggregate result of a full protocol execution: the raw rounds
// in round order, the sifted key material for both parties, and the derived
// error rate. A Run is read-only once returned and owned by the caller.
type Run struct {
	Rounds      []RoundOutcome
	SiftedAlice bitstring.Dense
	SiftedBob   bitstring.Dense

	qber    float64
	qberSet bool
}

// newRun sifts outs into shared-basis key material and computes the QBER.
func newRun(outs []RoundOutcome) *Run {
	r := &Run{Rounds: outs}
	for _, o := range outs {
		if o.AliceBasis != o.BobBasis {
			continue
		}
		r.SiftedAlice.AppendBit(o.AliceBit == 1)
		r.SiftedBob.AppendBit(o.BobBit == 1)
	}
	if n := r.SiftedAlice.Size(); n > 0 {
		errs := bitstring.CountOnes(bitstring.XOr(r.SiftedAlice, r.SiftedBob))
		r.qber = float64(errs) / float64(n)
		r.qberSet = true
	}
	return r
}

// SiftedLen returns the number of rounds surviving basis sifting.
func (r *Run) SiftedLen() int {
	return r.SiftedAlice.Size()
}

// QBER returns the quantum bit error rate over the sifted key. ok is false
// when no rounds survived sifting, in which case the QBER is undefined
// rather than zero.
func (r *Run) QBER() (qber float64, ok bool) {
	return r.qber, r.qberSet
}
