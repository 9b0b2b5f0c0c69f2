package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/jessevdk/go-flags"
	"github.com/maemowong/aesbus"
)

const defaultLogLevel = "info"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off}"`

	Bus *aesbus.Config `group:"Bus master" namespace:"bus"`
}

type subCommand interface {
	Register(parser *flags.Parser) error
}

func main() {
	opts := &globalOptions{
		DebugLevel: defaultLogLevel,
		Bus:        aesbus.DefaultConfig(),
	}

	parser := flags.NewParser(opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander,
		args []string) error {

		if err := setupLogging(opts.DebugLevel); err != nil {
			return err
		}
		if err := opts.Bus.Validate(); err != nil {
			return err
		}

		return cmd.Execute(args)
	}

	commands := []subCommand{
		newEncryptCommand(opts),
		newSelfTestCommand(opts),
	}
	for _, command := range commands {
		if err := command.Register(parser); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if _, err := parser.Parse(); err != nil {
		// go-flags has already printed help or the parse error.
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if _, ok := err.(*flags.Error); !ok {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// setupLogging routes the engine's log output to stdout at the given level.
func setupLogging(level string) error {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("%w: unknown debuglevel %q",
			aesbus.ErrInvalidConfig, level)
	}

	handler := btclog.NewDefaultHandler(os.Stdout)
	logger := btclog.NewSLogger(handler).SubSystem(aesbus.Subsystem)
	logger.SetLevel(lvl)

	aesbus.UseLogger(logger)

	return nil
}
