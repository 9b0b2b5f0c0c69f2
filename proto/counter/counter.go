// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES Round Counter - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// Sequences rounds 0..14.
//
//	module round_counter (
//	  input  logic       clk, rst_n,
//	  input  logic       advance,
//	  input  logic       start,      // optional; tie low for the reset-only variant
//	  output logic [3:0] round,
//	  output logic       is_final,
//	  output logic       done
//	);
//
// TIMING (advance held high from reset):
// ──────────────────────────────────────
//
//	edge   1  2  3 ... 13 14 15 16
//	round  1  2  3 ... 13 14  0  1
//	final  0  0  0 ...  0  1  0  0
//	done   0  0  0 ...  0  0  1  0
//
// done is registered alongside the wrap, so it is high exactly in the cycle
// where round reads 0 again after 14.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package counter

import "github.com/maemowong/aesbus/proto/rijndael"

// FinalRound is the round that skips MixColumns.
const FinalRound = rijndael.Rounds

// Inputs are the signals sampled on the rising edge. Start has priority over
// Advance; Reset has priority over both.
type Inputs struct {
	Reset   bool
	Start   bool
	Advance bool
}

// RoundCounter is a mod-15 counter with a registered wrap pulse.
//
// Hardware: 4-bit register + 1 flag + 4-bit comparator (== 14)
type RoundCounter struct {
	round uint8
	done  bool
}

// Round returns the current round.
func (c *RoundCounter) Round() uint8 {
	return c.round
}

// IsFinal is high exactly while round == 14.
//
// Verilog equivalent:
//
//	assign is_final = (round == 4'd14);
func (c *RoundCounter) IsFinal() bool {
	return c.round == FinalRound
}

// Done returns the one-cycle wrap pulse.
func (c *RoundCounter) Done() bool {
	return c.done
}

// Tick commits one clock edge.
func (c *RoundCounter) Tick(in Inputs) {
	switch {
	case in.Reset, in.Start:
		*c = RoundCounter{}

	case in.Advance:
		if c.round == FinalRound {
			c.round = 0
			c.done = true
		} else {
			c.round++
			c.done = false
		}

	default:
		c.done = false
	}
}
