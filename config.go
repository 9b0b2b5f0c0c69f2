package aesbus

import "fmt"

const (
	// DefaultMaxCycles bounds a single master operation. A full
	// encryption with no stalls takes well under 200 edges.
	DefaultMaxCycles = 100_000

	// DefaultResetCycles is how long Master.Reset holds reset.
	DefaultResetCycles = 2
)

// Config holds the bus master settings. The struct tags make it embeddable
// in a go-flags command line.
type Config struct {
	MaxCycles uint64 `long:"maxcycles" description:"Abort a bus operation after this many clock edges"`

	ResetCycles int `long:"resetcycles" description:"Number of edges reset is held asserted"`

	InputStall float64 `long:"inputstall" description:"Probability in [0,1) that the master withholds valid_in on a cycle"`

	OutputStall float64 `long:"outputstall" description:"Probability in [0,1) that the master withholds data_ready on a cycle"`

	AckStall float64 `long:"ackstall" description:"Probability in [0,1) that the master withholds ack_ready on a cycle"`

	Seed uint64 `long:"seed" description:"Seed for the stall generator"`

	CheckProtocol bool `long:"checkprotocol" description:"Check every cycle against the bus handshake rules"`
}

// DefaultConfig returns a Config with no stalls and protocol checking on.
func DefaultConfig() *Config {
	return &Config{
		MaxCycles:     DefaultMaxCycles,
		ResetCycles:   DefaultResetCycles,
		CheckProtocol: true,
	}
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.MaxCycles == 0 {
		return fmt.Errorf("%w: maxcycles must be positive",
			ErrInvalidConfig)
	}

	if c.ResetCycles < 1 {
		return fmt.Errorf("%w: resetcycles must be at least 1",
			ErrInvalidConfig)
	}

	probs := []struct {
		name string
		p    float64
	}{
		{"inputstall", c.InputStall},
		{"outputstall", c.OutputStall},
		{"ackstall", c.AckStall},
	}
	for _, p := range probs {
		if p.p < 0 || p.p >= 1 {
			return fmt.Errorf("%w: %s=%v not in [0,1)",
				ErrInvalidConfig, p.name, p.p)
		}
	}

	return nil
}

// stalls reports whether any stall probability is set.
func (c *Config) stalls() bool {
	return c.InputStall > 0 || c.OutputStall > 0 || c.AckStall > 0
}
