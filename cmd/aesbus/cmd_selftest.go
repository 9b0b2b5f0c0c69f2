package main

import (
	"context"
	"crypto/aes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jessevdk/go-flags"
	"github.com/maemowong/aesbus"
	"github.com/maemowong/aesbus/monitoring"
	"github.com/maemowong/aesbus/proto/rijndael"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var errMismatch = errors.New("ciphertext mismatch")

type selfTestCommand struct {
	Count    int `long:"count" description:"Number of random key/plaintext pairs"`
	Parallel int `long:"parallel" description:"Number of engines run concurrently"`

	global *globalOptions
}

func newSelfTestCommand(global *globalOptions) *selfTestCommand {
	return &selfTestCommand{
		Count:    64,
		Parallel: 4,
		global:   global,
	}
}

func (x *selfTestCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"selftest",
		"Compare the bus engine against crypto/aes",
		"Encrypt --count random blocks, each on its own engine and "+
			"stall generator seeded from --bus.seed, and compare "+
			"every result with the Go standard library cipher",
		x,
	)
	return err
}

func (x *selfTestCommand) Execute(_ []string) error {
	if x.Count < 1 || x.Parallel < 1 {
		return fmt.Errorf("%w: count and parallel must be positive",
			aesbus.ErrInvalidConfig)
	}

	reg := prometheus.NewRegistry()
	metrics, err := monitoring.NewMetrics(reg)
	if err != nil {
		return err
	}

	var (
		ctx      = context.Background()
		failures atomic.Int64
		g, gctx  = errgroup.WithContext(ctx)
	)
	g.SetLimit(x.Parallel)

	for i := 0; i < x.Count; i++ {
		g.Go(func() error {
			err := x.runVector(gctx, metrics, uint64(i))
			if errors.Is(err, errMismatch) {
				failures.Add(1)
				_, _ = fmt.Fprintln(os.Stderr, err)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	samples, err := monitoring.Summary(reg)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Labels", "Value"})
	t.AppendRow(table.Row{"vectors", "", x.Count})
	t.AppendRow(table.Row{"mismatches", "", failures.Load()})
	for _, s := range samples {
		t.AppendRow(table.Row{s.Name, s.Labels, s.Value})
	}
	t.Render()

	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%w: %d of %d vectors", errMismatch, n,
			x.Count)
	}

	return nil
}

// runVector encrypts one random block on a fresh engine.
func (x *selfTestCommand) runVector(ctx context.Context,
	metrics *monitoring.Metrics, i uint64) error {

	cfg := *x.global.Bus
	cfg.Seed += i

	rng := rand.New(rand.NewPCG(cfg.Seed, i))

	var (
		key rijndael.Key
		pt  rijndael.Block
	)
	for j := range key {
		key[j] = byte(rng.Uint32())
	}
	for j := range pt {
		pt[j] = byte(rng.Uint32())
	}

	master, err := aesbus.NewMaster(aesbus.NewController(metrics), &cfg)
	if err != nil {
		return err
	}
	if err := master.Reset(ctx); err != nil {
		return err
	}

	got, err := master.Encrypt(ctx, key, pt)
	if err != nil {
		return fmt.Errorf("vector %d: %w", i, err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	var want rijndael.Block
	block.Encrypt(want[:], pt[:])

	if got != want {
		return fmt.Errorf("%w: vector %d key=%v pt=%v got=%v want=%v",
			errMismatch, i, key, pt, got, want)
	}

	return nil
}
