// Package circuit describes gate-level quantum circuits as ordered lists of
// gate and measurement operations over fixed qubit and classical registers.
package circuit

import (
	"fmt"
	"strings"
)

// An OpCode identifies a single operation type.
type OpCode int

const (
	// Single-qubit gates.
	OpH OpCode = iota
	OpX
	OpZ
	// Two-qubit controlled gates.
	OpCX
	OpCZ
	// Classically-conditioned gates, applied iff the referenced classical bit
	// holds 1 at execution time.
	OpCIfX
	OpCIfZ
	// Measurement of a qubit into a classical bit.
	OpMeasure
)

// String implements fmt.Stringer using OpenQASM gate names.
func (o OpCode) String() string {
	switch o {
	case OpH:
		return "h"
	case OpX:
		return "x"
	case OpZ:
		return "z"
	case OpCX:
		return "cx"
	case OpCZ:
		return "cz"
	case OpCIfX:
		return "if-x"
	case OpCIfZ:
		return "if-z"
	case OpMeasure:
		return "measure"
	}
	return fmt.Sprintf("opcode(%d)", int(o))
}

// An Op is one operation in a circuit. Control is -1 unless the op is a
// two-qubit gate. Clbit is -1 unless the op is a measurement or a
// classically-conditioned gate.
type Op struct {
	Code    OpCode
	Target  int
	Control int
	Clbit   int
}

// A Circuit is an ordered sequence of operations over a fixed number of
// qubits and classical bits. All qubits start in |0> and all classical bits
// start at 0.
type Circuit struct {
	qubits int
	clbits int
	ops    []Op
}

// New returns an empty circuit with the given register sizes. It panics if
// either size is negative.
func New(qubits, clbits int) *Circuit {
	if qubits < 0 || clbits < 0 {
		panic(fmt.Sprintf("circuit: negative register size (%d qubits, %d clbits)", qubits, clbits))
	}
	return &Circuit{qubits: qubits, clbits: clbits}
}

// Qubits returns the size of the quantum register.
func (c *Circuit) Qubits() int { return c.qubits }

// Clbits returns the size of the classical register.
func (c *Circuit) Clbits() int { return c.clbits }

// Ops returns a view of the circuit's operations in execution order.
func (c *Circuit) Ops() []Op { return c.ops }

// Len returns the number of operations in the circuit.
func (c *Circuit) Len() int { return len(c.ops) }

// H appends a Hadamard gate on qubit q.
func (c *Circuit) H(q int) *Circuit { return c.add1(OpH, q) }

// X appends a bit-flip gate on qubit q.
func (c *Circuit) X(q int) *Circuit { return c.add1(OpX, q) }

// Z appends a phase-flip gate on qubit q.
func (c *Circuit) Z(q int) *Circuit { return c.add1(OpZ, q) }

// CX appends a controlled bit-flip from ctrl to tgt.
func (c *Circuit) CX(ctrl, tgt int) *Circuit { return c.add2(OpCX, ctrl, tgt) }

// CZ appends a controlled phase-flip from ctrl to tgt.
func (c *Circuit) CZ(ctrl, tgt int) *Circuit { return c.add2(OpCZ, ctrl, tgt) }

// CIfX appends a bit-flip on qubit q conditioned on classical bit cl.
func (c *Circuit) CIfX(cl, q int) *Circuit { return c.addCond(OpCIfX, cl, q) }

// CIfZ appends a phase-flip on qubit q conditioned on classical bit cl.
func (c *Circuit) CIfZ(cl, q int) *Circuit { return c.addCond(OpCIfZ, cl, q) }

// Measure appends a computational-basis measurement of qubit q into classical
// bit cl. A later measurement into the same classical bit overwrites it.
func (c *Circuit) Measure(q, cl int) *Circuit {
	c.checkQubit(q)
	c.checkClbit(cl)
	c.ops = append(c.ops, Op{Code: OpMeasure, Target: q, Control: -1, Clbit: cl})
	return c
}

func (c *Circuit) add1(code OpCode, q int) *Circuit {
	c.checkQubit(q)
	c.ops = append(c.ops, Op{Code: code, Target: q, Control: -1, Clbit: -1})
	return c
}

func (c *Circuit) add2(code OpCode, ctrl, tgt int) *Circuit {
	c.checkQubit(ctrl)
	c.checkQubit(tgt)
	if ctrl == tgt {
		panic(fmt.Sprintf("circuit: %v with control == target (%d)", code, ctrl))
	}
	c.ops = append(c.ops, Op{Code: code, Target: tgt, Control: ctrl, Clbit: -1})
	return c
}

func (c *Circuit) addCond(code OpCode, cl, q int) *Circuit {
	c.checkQubit(q)
	c.checkClbit(cl)
	c.ops = append(c.ops, Op{Code: code, Target: q, Control: -1, Clbit: cl})
	return c
}

func (c *Circuit) checkQubit(q int) {
	if q < 0 || q >= c.qubits {
		panic(fmt.Sprintf("circuit: qubit %d out of range [0, %d)", q, c.qubits))
	}
}

func (c *Circuit) checkClbit(cl int) {
	if cl < 0 || cl >= c.clbits {
		panic(fmt.Sprintf("circuit: classical bit %d out of range [0, %d)", cl, c.clbits))
	}
}

// QASM renders the circuit as OpenQASM 2.0 text, suitable for diagnostic
// inspection or export to other toolchains.
func (c *Circuit) QASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.qubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", c.clbits)
	for _, op := range c.ops {
		switch op.Code {
		case OpMeasure:
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", op.Target, op.Clbit)
		case OpCX, OpCZ:
			fmt.Fprintf(&sb, "%s q[%d], q[%d];\n", op.Code, op.Control, op.Target)
		case OpCIfX:
			fmt.Fprintf(&sb, "if (c[%d]==1) x q[%d];\n", op.Clbit, op.Target)
		case OpCIfZ:
			fmt.Fprintf(&sb, "if (c[%d]==1) z q[%d];\n", op.Clbit, op.Target)
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", op.Code, op.Target)
		}
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (c *Circuit) String() string { return c.QASM() }
