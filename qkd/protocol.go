package qkd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/komal2267g/Teleportation-qkd/qkd/backend"
)

// Opts packages together the arguments necessary to construct a Protocol.
// Backend and Rand have no reasonable defaults and must be provided.
type Opts struct {
	// Backend executes round circuits. Must be non-nil.
	Backend backend.Backend

	// Rand drives bit/basis sampling and the eavesdropper's draws. Seed it
	// for reproducible runs. Must be non-nil.
	Rand *rand.Rand

	// NumRounds is the number of protocol rounds to execute. Zero is allowed
	// and yields an empty run with undefined QBER.
	NumRounds int

	// AliceBits, AliceBases and BobBases supply per-round inputs instead of
	// random sampling. Either all three are provided, each exactly NumRounds
	// long, or none.
	AliceBits  []Bit
	AliceBases []Basis
	BobBases   []Basis

	// UseEve enables the intercept-resend attacker on every round.
	UseEve bool

	// EveProb is the attacker's per-round interception probability. Zero
	// selects DefaultEveProb.
	EveProb float64

	// Workers bounds the number of rounds executing concurrently. Values
	// below 2 select fully sequential execution. Round order is preserved in
	// the resulting Run either way.
	Workers int

	// RenderFirst dumps the first executed circuit to RenderTo (stdout when
	// nil) for diagnostic inspection.
	RenderFirst bool
	RenderTo    io.Writer

	// Log receives run and round progress. Nil disables logging.
	Log *zap.Logger
}

// A Protocol drives a fixed number of rounds through a RoundRunner and
// aggregates the outcomes into a sifted key and a QBER estimate.
type Protocol struct {
	opts   Opts
	runner *Runner
}

// NewProtocol returns a Protocol configured per opts, or an error if the
// options are nonsensical. All custom-input validation happens here, before
// any round executes.
func NewProtocol(opts Opts) (*Protocol, error) {
	if opts.Backend == nil {
		return nil, errors.New("must provide Backend")
	}
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	if opts.NumRounds < 0 {
		return nil, fmt.Errorf("negative round count: %d", opts.NumRounds)
	}
	if opts.EveProb < 0 || opts.EveProb > 1 {
		return nil, fmt.Errorf("interception probability %v outside [0, 1]", opts.EveProb)
	}
	if err := checkCustomInputs(opts); err != nil {
		return nil, err
	}

	var eve *Eavesdropper
	if opts.UseEve {
		eve = &Eavesdropper{Prob: opts.EveProb}
	}
	return &Protocol{
		opts: opts,
		runner: &Runner{
			Backend:     opts.Backend,
			Eve:         eve,
			RenderFirst: opts.RenderFirst,
			RenderTo:    opts.RenderTo,
			Log:         opts.Log,
		},
	}, nil
}

func checkCustomInputs(opts Opts) error {
	if opts.AliceBits == nil && opts.AliceBases == nil && opts.BobBases == nil {
		return nil
	}
	for _, in := range []struct {
		name string
		len  int
	}{
		{"alice bits", len(opts.AliceBits)},
		{"alice bases", len(opts.AliceBases)},
		{"bob bases", len(opts.BobBases)},
	} {
		if in.len != opts.NumRounds {
			return fmt.Errorf("custom input length mismatch: %d %s for %d rounds", in.len, in.name, opts.NumRounds)
		}
	}
	for i := 0; i < opts.NumRounds; i++ {
		in := RoundInput{
			AliceBit:   opts.AliceBits[i],
			AliceBasis: opts.AliceBases[i],
			BobBasis:   opts.BobBases[i],
		}
		if err := in.validate(); err != nil {
			return fmt.Errorf("custom input %d: %w", i, err)
		}
	}
	return nil
}

// Run executes the configured number of rounds, sifts the outcomes down to
// the shared-basis key material, and returns the aggregated Run. Errors from
// the backend propagate with the index of the affected round; no partial
// results are returned.
func (p *Protocol) Run(ctx context.Context) (*Run, error) {
	inputs := p.buildInputs()
	outs := make([]RoundOutcome, len(inputs))

	var err error
	if p.opts.Workers > 1 {
		err = p.collectParallel(ctx, inputs, outs)
	} else {
		err = p.collect(ctx, inputs, outs)
	}
	if err != nil {
		return nil, err
	}

	run := newRun(outs)
	if log := p.opts.Log; log != nil {
		qber, ok := run.QBER()
		log.Info("protocol run complete",
			zap.Int("rounds", len(run.Rounds)),
			zap.Int("sifted", run.SiftedLen()),
			zap.Float64("qber", qber),
			zap.Bool("qberDefined", ok),
		)
	}
	return run, nil
}

// buildInputs fixes every round's inputs up front, sampling sequentially from
// the protocol's Rand so that seeded runs draw the same choices regardless of
// the worker count.
func (p *Protocol) buildInputs() []RoundInput {
	inputs := make([]RoundInput, p.opts.NumRounds)
	for i := range inputs {
		if p.opts.AliceBits != nil {
			inputs[i] = RoundInput{
				AliceBit:   p.opts.AliceBits[i],
				AliceBasis: p.opts.AliceBases[i],
				BobBasis:   p.opts.BobBases[i],
				EveActive:  p.opts.UseEve,
			}
			continue
		}
		inputs[i] = RoundInput{
			AliceBit:   Bit(p.opts.Rand.Intn(2)),
			AliceBasis: Basis(p.opts.Rand.Intn(2)),
			BobBasis:   Basis(p.opts.Rand.Intn(2)),
			EveActive:  p.opts.UseEve,
		}
	}
	return inputs
}

func (p *Protocol) collect(ctx context.Context, inputs []RoundInput, outs []RoundOutcome) error {
	for i, in := range inputs {
		out, err := p.runner.Run(ctx, in, p.opts.Rand)
		if err != nil {
			return fmt.Errorf("round %d: %w", i, err)
		}
		outs[i] = out
	}
	return nil
}

// collectParallel executes rounds concurrently, each with a rand derived
// sequentially from the protocol's Rand, writing outcomes into their index
// slots so that round order survives reassembly.
func (p *Protocol) collectParallel(ctx context.Context, inputs []RoundInput, outs []RoundOutcome) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, in := range inputs {
		i, in := i, in
		rnd := rand.New(rand.NewSource(p.opts.Rand.Int63()))
		g.Go(func() error {
			out, err := p.runner.Run(ctx, in, rnd)
			if err != nil {
				return fmt.Errorf("round %d: %w", i, err)
			}
			outs[i] = out
			return nil
		})
	}
	return g.Wait()
}
