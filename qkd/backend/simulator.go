package backend

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"
	"time"

	"github.com/komal2267g/Teleportation-qkd/qkd/circuit"
)

// A Simulator is a full statevector Backend with support for mid-circuit
// measurement collapse and classically-conditioned gates. It is intended for
// small circuits; memory grows as 2^qubits.
type Simulator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator returns a Simulator drawing measurement outcomes from rnd. A
// nil rnd is replaced with a time-seeded source. The simulator serializes
// calls to Execute, so a single instance may back concurrent rounds.
func NewSimulator(rnd *rand.Rand) *Simulator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rnd: rnd}
}

// Execute implements the Backend interface.
func (s *Simulator) Execute(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	if c == nil {
		return nil, fmt.Errorf("executing nil circuit")
	}
	if shots < 1 {
		return nil, fmt.Errorf("executing with %d shots, want >= 1", shots)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(Counts)
	for i := 0; i < shots; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := s.runShot(c)
		if err != nil {
			return nil, err
		}
		counts[key]++
	}
	return counts, nil
}

func (s *Simulator) runShot(c *circuit.Circuit) (string, error) {
	st := newState(c.Qubits())
	cl := make([]byte, c.Clbits())
	for _, op := range c.Ops() {
		switch op.Code {
		case circuit.OpH:
			st.h(op.Target)
		case circuit.OpX:
			st.x(op.Target)
		case circuit.OpZ:
			st.z(op.Target)
		case circuit.OpCX:
			st.cx(op.Control, op.Target)
		case circuit.OpCZ:
			st.cz(op.Control, op.Target)
		case circuit.OpCIfX:
			if cl[op.Clbit] == 1 {
				st.x(op.Target)
			}
		case circuit.OpCIfZ:
			if cl[op.Clbit] == 1 {
				st.z(op.Target)
			}
		case circuit.OpMeasure:
			cl[op.Clbit] = st.measure(op.Target, s.rnd)
		default:
			return "", fmt.Errorf("simulating unsupported op %v", op.Code)
		}
	}
	// Classical bits render highest slot first, matching the Counts contract.
	key := make([]byte, len(cl))
	for i, b := range cl {
		key[len(cl)-1-i] = '0' + b
	}
	return string(key), nil
}

// A state holds 2^n complex amplitudes over n qubits, initialized to |0...0>.
type state struct {
	amps []complex128
}

func newState(qubits int) *state {
	amps := make([]complex128, 1<<qubits)
	amps[0] = 1
	return &state{amps: amps}
}

func (st *state) h(q int) {
	f := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	for i := range st.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := st.amps[i], st.amps[j]
			st.amps[i] = f * (a + b)
			st.amps[j] = f * (a - b)
		}
	}
}

func (st *state) x(q int) {
	bit := 1 << q
	for i := range st.amps {
		if i&bit == 0 {
			j := i | bit
			st.amps[i], st.amps[j] = st.amps[j], st.amps[i]
		}
	}
}

func (st *state) z(q int) {
	bit := 1 << q
	for i := range st.amps {
		if i&bit != 0 {
			st.amps[i] = -st.amps[i]
		}
	}
}

func (st *state) cx(ctrl, tgt int) {
	cBit, tBit := 1<<ctrl, 1<<tgt
	for i := range st.amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			st.amps[i], st.amps[j] = st.amps[j], st.amps[i]
		}
	}
}

func (st *state) cz(ctrl, tgt int) {
	cBit, tBit := 1<<ctrl, 1<<tgt
	for i := range st.amps {
		if i&cBit != 0 && i&tBit != 0 {
			st.amps[i] = -st.amps[i]
		}
	}
}

// measure samples qubit q in the computational basis, collapses the state
// onto the observed subspace, and renormalizes.
func (st *state) measure(q int, rnd *rand.Rand) byte {
	bit := 1 << q
	var p1 float64
	for i, a := range st.amps {
		if i&bit != 0 {
			p1 += real(a * cmplx.Conj(a))
		}
	}
	var outcome byte
	if rnd.Float64() < p1 {
		outcome = 1
	}
	p := p1
	if outcome == 0 {
		p = 1 - p1
	}
	norm := complex(math.Sqrt(p), 0)
	for i := range st.amps {
		set := i&bit != 0
		if set != (outcome == 1) {
			st.amps[i] = 0
		} else if norm != 0 {
			st.amps[i] /= norm
		}
	}
	return outcome
}
