package qkd

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/komal2267g/Teleportation-qkd/qkd/backend"
	"github.com/komal2267g/Teleportation-qkd/qkd/circuit"
)

// A stubBackend returns canned counts or a canned error, tracking how many
// times it was invoked.
type stubBackend struct {
	counts backend.Counts
	err    error
	calls  atomic.Int32
}

func (s *stubBackend) Execute(_ context.Context, _ *circuit.Circuit, _ int) (backend.Counts, error) {
	s.calls.Add(1)
	return s.counts, s.err
}

func simRunner(seed int64) *Runner {
	return &Runner{Backend: backend.NewSimulator(rand.New(rand.NewSource(seed)))}
}

func TestNoiselessFidelity(t *testing.T) {
	tcs := []struct {
		name  string
		bit   Bit
		basis Basis
	}{
		{"0Z", 0, BasisZ},
		{"1Z", 1, BasisZ},
		{"0X", 0, BasisX},
		{"1X", 1, BasisX},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			r := simRunner(42)
			rnd := rand.New(rand.NewSource(7))
			in := RoundInput{AliceBit: tc.bit, AliceBasis: tc.basis, BobBasis: tc.basis}
			for i := 0; i < 64; i++ {
				out, err := r.Run(context.Background(), in, rnd)
				if err != nil {
					t.Fatalf("Run(%+v): %v", in, err)
				}
				if out.BobBit != tc.bit {
					t.Fatalf("rep %d: BobBit == %d, want %d", i, out.BobBit, tc.bit)
				}
			}
		})
	}
}

func TestMismatchedBasesNearUniform(t *testing.T) {
	r := simRunner(99)
	rnd := rand.New(rand.NewSource(3))
	in := RoundInput{AliceBit: 0, AliceBasis: BasisZ, BobBasis: BasisX}
	n, ones := 1000, 0
	for i := 0; i < n; i++ {
		out, err := r.Run(context.Background(), in, rnd)
		if err != nil {
			t.Fatalf("Run(%+v): %v", in, err)
		}
		ones += int(out.BobBit)
	}
	if ones < 420 || ones > 580 {
		t.Errorf("mismatched-basis ones == %d/%d, want near half", ones, n)
	}
}

// The deferred quantum-controlled corrections and the explicit
// classically-conditioned corrections must produce identical outcome
// statistics: exact fidelity on matching bases, a near-uniform bit otherwise.
func TestCorrectionFormulationsAgree(t *testing.T) {
	for _, classical := range []bool{false, true} {
		name := "deferred"
		if classical {
			name = "classical"
		}
		t.Run(name, func(t *testing.T) {
			r := simRunner(1234)
			r.ClassicalCorrection = classical
			rnd := rand.New(rand.NewSource(5))

			matched := RoundInput{AliceBit: 1, AliceBasis: BasisX, BobBasis: BasisX}
			for i := 0; i < 200; i++ {
				out, err := r.Run(context.Background(), matched, rnd)
				if err != nil {
					t.Fatalf("Run(%+v): %v", matched, err)
				}
				if out.BobBit != 1 {
					t.Fatalf("rep %d: BobBit == %d, want 1", i, out.BobBit)
				}
			}

			mismatched := RoundInput{AliceBit: 1, AliceBasis: BasisZ, BobBasis: BasisX}
			ones := 0
			for i := 0; i < 1000; i++ {
				out, err := r.Run(context.Background(), mismatched, rnd)
				if err != nil {
					t.Fatalf("Run(%+v): %v", mismatched, err)
				}
				ones += int(out.BobBit)
			}
			if ones < 420 || ones > 580 {
				t.Errorf("mismatched-basis ones == %d/1000, want near half", ones)
			}
		})
	}
}

func TestInvalidInputsRejected(t *testing.T) {
	tcs := []struct {
		name string
		in   RoundInput
		eerr error
	}{
		{"bad alice basis", RoundInput{AliceBasis: Basis(7), BobBasis: BasisZ}, ErrInvalidBasis},
		{"bad bob basis", RoundInput{AliceBasis: BasisZ, BobBasis: Basis(9)}, ErrInvalidBasis},
		{"bad bit", RoundInput{AliceBit: 2, AliceBasis: BasisZ, BobBasis: BasisZ}, ErrInvalidBit},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			be := &stubBackend{counts: backend.Counts{"000": 1}}
			r := &Runner{Backend: be}
			_, err := r.Run(context.Background(), tc.in, rand.New(rand.NewSource(1)))
			if !errors.Is(err, tc.eerr) {
				t.Errorf("Run() error == %v, want %v", err, tc.eerr)
			}
			if got := be.calls.Load(); got != 0 {
				t.Errorf("backend invoked %d times for invalid input, want 0", got)
			}
		})
	}
}

func TestOutcomeExtraction(t *testing.T) {
	in := RoundInput{AliceBit: 0, AliceBasis: BasisZ, BobBasis: BasisZ}
	tcs := []struct {
		name   string
		counts backend.Counts
		err    error
		ebit   Bit
		eerr   error
	}{
		{"receiver slot one", backend.Counts{"100": 1}, nil, 1, nil},
		{"receiver slot zero", backend.Counts{"011": 1}, nil, 0, nil},
		{"most frequent wins", backend.Counts{"100": 5, "000": 2}, nil, 1, nil},
		{"separators stripped", backend.Counts{"10 1": 3}, nil, 1, nil},
		{"empty counts", backend.Counts{}, nil, 0, ErrNoOutcome},
		{"backend error", nil, errors.New("boom"), 0, nil},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			r := &Runner{Backend: &stubBackend{counts: tc.counts, err: tc.err}}
			out, err := r.Run(context.Background(), in, rand.New(rand.NewSource(1)))
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("Run() error == %v, want %v", err, tc.err)
				}
			case tc.eerr != nil:
				if !errors.Is(err, tc.eerr) {
					t.Fatalf("Run() error == %v, want %v", err, tc.eerr)
				}
			default:
				if err != nil {
					t.Fatalf("Run(): %v", err)
				}
				if out.BobBit != tc.ebit {
					t.Errorf("BobBit == %d, want %d", out.BobBit, tc.ebit)
				}
			}
		})
	}
}

func TestRoundCircuitLayout(t *testing.T) {
	r := &Runner{Backend: &stubBackend{counts: backend.Counts{"000": 1}}}
	in := RoundInput{AliceBit: 1, AliceBasis: BasisX, BobBasis: BasisX}
	c, err := r.buildCircuit(in, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("buildCircuit(%+v): %v", in, err)
	}
	want := []circuit.Op{
		{Code: circuit.OpH, Target: qCarrier, Control: -1, Clbit: -1},
		{Code: circuit.OpCX, Target: qBob, Control: qCarrier, Clbit: -1},
		{Code: circuit.OpX, Target: qData, Control: -1, Clbit: -1},
		{Code: circuit.OpH, Target: qData, Control: -1, Clbit: -1},
		{Code: circuit.OpCX, Target: qCarrier, Control: qData, Clbit: -1},
		{Code: circuit.OpH, Target: qData, Control: -1, Clbit: -1},
		{Code: circuit.OpMeasure, Target: qData, Control: -1, Clbit: clBell0},
		{Code: circuit.OpMeasure, Target: qCarrier, Control: -1, Clbit: clBell1},
		{Code: circuit.OpCX, Target: qBob, Control: qCarrier, Clbit: -1},
		{Code: circuit.OpCZ, Target: qBob, Control: qData, Clbit: -1},
		{Code: circuit.OpH, Target: qBob, Control: -1, Clbit: -1},
		{Code: circuit.OpMeasure, Target: qBob, Control: -1, Clbit: clBob},
	}
	ops := c.Ops()
	if len(ops) != len(want) {
		t.Fatalf("circuit has %d ops, want %d:\n%s", len(ops), len(want), c.QASM())
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d == %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestRenderFirstOnce(t *testing.T) {
	var buf bytes.Buffer
	r := simRunner(8)
	r.RenderFirst = true
	r.RenderTo = &buf
	rnd := rand.New(rand.NewSource(8))
	in := RoundInput{AliceBit: 0, AliceBasis: BasisZ, BobBasis: BasisZ}
	for i := 0; i < 5; i++ {
		if _, err := r.Run(context.Background(), in, rnd); err != nil {
			t.Fatalf("Run(%+v): %v", in, err)
		}
	}
	if got := strings.Count(buf.String(), "OPENQASM"); got != 1 {
		t.Errorf("rendered %d circuits, want exactly 1", got)
	}
}
