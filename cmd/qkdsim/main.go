// qkdsim simulates teleportation-based BB84 key distribution. It executes an
// honest run and an intercept-resend run over the same parameters, prints the
// per-round results and sifted keys, and reports the observed QBER for each.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/komal2267g/Teleportation-qkd/qkd"
	"github.com/komal2267g/Teleportation-qkd/qkd/backend"
)

var (
	rounds  = flag.Int("rounds", 8, "The number of protocol rounds per run. Overridden by the length of --alice-bits when custom inputs are given.")
	seed    = flag.Int64("seed", 0, "The PRNG seed for reproducible runs. 0 seeds from the current time.")
	eveProb = flag.Float64("eve-prob", qkd.DefaultEveProb,
		"The per-round interception probability for the intercept-resend attacker.")
	workers     = flag.Int("workers", 1, "The number of rounds to execute concurrently.")
	repeat      = flag.Int("repeat", 1, "The number of repetitions per scenario; QBER statistics are aggregated across them.")
	renderFirst = flag.Bool("render-first", false, "Dump the first executed circuit as OpenQASM text.")
	aliceBits   = flag.String("alice-bits", "", `Custom bits for Alice, e.g. "0110". Requires --alice-bases and --bob-bases of the same length.`)
	aliceBases  = flag.String("alice-bases", "", `Custom bases for Alice, e.g. "ZXZX".`)
	bobBases    = flag.String("bob-bases", "", `Custom bases for Bob, e.g. "XZZX".`)
	verbose     = flag.Bool("verbose", false, "Enable per-round debug logging.")
)

func main() {
	flag.Parse()
	logger, err := buildLogger(*verbose)
	if err != nil {
		log.Fatalf("Building logger: %v", err)
	}
	defer logger.Sync()

	bits, err := parseBits(*aliceBits)
	if err != nil {
		logger.Fatal("parsing --alice-bits", zap.Error(err))
	}
	aBases, err := parseBases(*aliceBases)
	if err != nil {
		logger.Fatal("parsing --alice-bases", zap.Error(err))
	}
	bBases, err := parseBases(*bobBases)
	if err != nil {
		logger.Fatal("parsing --bob-bases", zap.Error(err))
	}
	n := *rounds
	if bits != nil {
		n = len(bits)
	}
	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}
	logger.Info("starting simulation",
		zap.Int("rounds", n), zap.Int64("seed", baseSeed), zap.Int("repeat", *repeat))

	for _, sc := range []struct {
		name   string
		useEve bool
	}{
		{"honest", false},
		{"eve intercept-resend", true},
	} {
		var qbers []float64
		var first *qkd.Run
		for rep := 0; rep < *repeat; rep++ {
			run, err := execRun(logger, baseSeed+int64(rep), n, sc.useEve, bits, aBases, bBases, rep == 0)
			if err != nil {
				logger.Fatal("protocol run failed", zap.String("scenario", sc.name), zap.Error(err))
			}
			if first == nil {
				first = run
			}
			if q, ok := run.QBER(); ok {
				qbers = append(qbers, q)
			}
		}
		fmt.Printf("\n%s -> rounds: %d, sifted: %d, QBER: %s\n",
			sc.name, len(first.Rounds), first.SiftedLen(), formatQBER(first))
		printRounds(first)
		fmt.Printf("Sifted key (same bases):\n  Alice: %s\n  Bob:   %s\n",
			first.SiftedAlice, first.SiftedBob)
		if *repeat > 1 && len(qbers) > 0 {
			fmt.Printf("QBER over %d runs: mean %.3f, stddev %.3f\n",
				len(qbers), stat.Mean(qbers, nil), stat.StdDev(qbers, nil))
		}
	}
}

func execRun(logger *zap.Logger, runSeed int64, n int, useEve bool, bits []qkd.Bit, aBases, bBases []qkd.Basis, render bool) (*qkd.Run, error) {
	p, err := qkd.NewProtocol(qkd.Opts{
		Backend:     backend.NewSimulator(rand.New(rand.NewSource(runSeed))),
		Rand:        rand.New(rand.NewSource(runSeed + 1)),
		NumRounds:   n,
		AliceBits:   bits,
		AliceBases:  aBases,
		BobBases:    bBases,
		UseEve:      useEve,
		EveProb:     *eveProb,
		Workers:     *workers,
		RenderFirst: *renderFirst && render,
		Log:         logger,
	})
	if err != nil {
		return nil, err
	}
	return p.Run(context.Background())
}

func printRounds(run *qkd.Run) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Round", "Alice bit", "Alice basis", "Bob basis", "Bob bit", "Sifted"})
	for i, o := range run.Rounds {
		sifted := ""
		if o.AliceBasis == o.BobBasis {
			sifted = "yes"
		}
		table.Append([]string{
			strconv.Itoa(i),
			strconv.Itoa(int(o.AliceBit)),
			o.AliceBasis.String(),
			o.BobBasis.String(),
			strconv.Itoa(int(o.BobBit)),
			sifted,
		})
	}
	table.Render()
}

// formatQBER special-cases the empty sifted set, where the QBER is undefined
// rather than zero.
func formatQBER(run *qkd.Run) string {
	q, ok := run.QBER()
	if !ok {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", q)
}

func parseBits(s string) ([]qkd.Bit, error) {
	if s == "" {
		return nil, nil
	}
	var bits []qkd.Bit
	for _, c := range s {
		switch c {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		case ' ', ',':
		default:
			return nil, fmt.Errorf("invalid bit %q in %q", c, s)
		}
	}
	return bits, nil
}

func parseBases(s string) ([]qkd.Basis, error) {
	if s == "" {
		return nil, nil
	}
	var bases []qkd.Basis
	for _, c := range s {
		if c == ' ' || c == ',' {
			continue
		}
		b, err := qkd.ParseBasis(string(c))
		if err != nil {
			return nil, err
		}
		bases = append(bases, b)
	}
	return bases, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
