// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES State Register - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// The 128-bit working block. Two write ports share one register:
//
//	mode 0 (load)     byte-serial load from the bus, MSB first
//	mode 1 (datapath) full 128-bit replacement from the round pipeline
//
// INTERFACE:
// ──────────
//
//	module aes_state (
//	  input  logic         clk, rst_n,
//	  input  logic         mode,
//	  input  logic [7:0]   din,
//	  input  logic         valid,
//	  input  logic [127:0] dnext,
//	  input  logic         wen,
//	  output logic [127:0] state,
//	  output logic         ready
//	);
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package state

import "github.com/maemowong/aesbus/proto/rijndael"

// Mode selects the active write port.
type Mode uint8

const (
	// ModeLoad shifts bus bytes into successive positions.
	ModeLoad Mode = 0

	// ModeDatapath commits dnext when wen is asserted.
	ModeDatapath Mode = 1
)

// String returns the port name.
func (m Mode) String() string {
	switch m {
	case ModeLoad:
		return "load"
	case ModeDatapath:
		return "datapath"
	default:
		return "unknown"
	}
}

// Inputs are the signals sampled on the rising edge.
type Inputs struct {
	Reset bool
	Mode  Mode

	// Load port.
	Din   byte
	Valid bool

	// Datapath port.
	Dnext rijndael.Block
	Wen   bool
}

// Register holds the working block.
//
// Hardware: 128 flip-flops + 4-bit byte counter + ready flag
//
//	Input mux per byte: 3:1 (hold / din / dnext[byte])
type Register struct {
	state rijndael.Block
	count uint8
	ready bool
}

// State returns the registered block.
func (r *Register) State() rijndael.Block {
	return r.state
}

// Ready returns the one-cycle "16th byte landed" pulse. Only meaningful in
// load mode.
func (r *Register) Ready() bool {
	return r.ready
}

// Count returns the number of bytes accepted in the load in progress.
func (r *Register) Count() int {
	return int(r.count)
}

// Tick commits one clock edge.
//
// Mode 0: a valid byte while ready is low lands at position count; the 16th
// raises ready for one cycle. Mode 1: wen commits dnext and clears ready,
// otherwise everything holds.
func (r *Register) Tick(in Inputs) {
	if in.Reset {
		*r = Register{}
		return
	}

	switch in.Mode {
	case ModeLoad:
		if !in.Valid || r.ready {
			r.ready = false
			return
		}

		r.state[r.count] = in.Din
		r.count++
		r.ready = false
		if int(r.count) == rijndael.BlockSize {
			r.count = 0
			r.ready = true
		}

	case ModeDatapath:
		if in.Wen {
			r.state = in.Dnext
			r.ready = false
		}
	}
}
