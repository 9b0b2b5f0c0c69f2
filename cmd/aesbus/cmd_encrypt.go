package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jessevdk/go-flags"
	"github.com/maemowong/aesbus"
	"github.com/maemowong/aesbus/proto/rijndael"
)

type encryptCommand struct {
	Key       string `long:"key" description:"256-bit key as 64 hex digits" required:"true"`
	Plaintext string `long:"plaintext" description:"128-bit block as 32 hex digits" required:"true"`
	Trace     bool   `long:"trace" description:"Print the state after every round"`

	global *globalOptions
}

func newEncryptCommand(global *globalOptions) *encryptCommand {
	return &encryptCommand{
		global: global,
	}
}

func (x *encryptCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"encrypt",
		"Encrypt one block through the bus engine",
		"Load the key and plaintext over the byte bus, run the 15 "+
			"rounds and stream the ciphertext back; with --trace "+
			"every committed round is printed",
		x,
	)
	return err
}

func (x *encryptCommand) Execute(_ []string) error {
	key, err := rijndael.ParseKey(x.Key)
	if err != nil {
		return fmt.Errorf("--key: %w", err)
	}
	pt, err := rijndael.ParseBlock(x.Plaintext)
	if err != nil {
		return fmt.Errorf("--plaintext: %w", err)
	}

	trace := &roundTrace{}
	c := aesbus.NewController()
	if x.Trace {
		c.AddObserver(trace)
	}

	master, err := aesbus.NewMaster(c, x.global.Bus)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := master.Reset(ctx); err != nil {
		return err
	}

	ct, err := master.Encrypt(ctx, key, pt)
	if err != nil {
		return err
	}

	if x.Trace {
		trace.render()
	}

	fmt.Println(ct)

	return nil
}

// roundTrace collects every committed round.
type roundTrace struct {
	aesbus.NopObserver

	rows []table.Row
}

func (r *roundTrace) RoundCommitted(round uint8, roundKey,
	next rijndael.Block) {

	stage := "full"
	switch round {
	case 0:
		stage = "whitening"
	case rijndael.Rounds:
		stage = "final"
	}

	r.rows = append(r.rows, table.Row{round, stage, roundKey, next})
}

func (r *roundTrace) render() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Round", "Stage", "Round key", "State after"})
	t.AppendRows(r.rows)
	t.Render()
}
