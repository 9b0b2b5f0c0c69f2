// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES-256 Key Loader - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// Assembles a 256-bit key from 32 sequential bytes on a (din, valid) port.
//
// INTERFACE:
// ──────────
//
//	module key_loader (
//	  input  logic         clk, rst_n,
//	  input  logic [7:0]   din,
//	  input  logic         valid,
//	  output logic         ready,
//	  output logic [255:0] key_out
//	);
//
// BEHAVIOUR:
// ──────────
//   - Byte n (0-based) of a load lands in key_out[255-8n -: 8], so the first
//     byte received is the most significant.
//   - On the edge that captures byte 31, ready rises for exactly one cycle and
//     the byte counter wraps to 0.
//   - While ready is high a valid byte is ignored. A caller starting the next
//     key must wait out the ready cycle.
//   - Idle cycles (valid low) do not advance the counter.
//   - Bytes are written in place: a new load overwrites the previous key byte
//     by byte, nothing is cleared between loads.
//   - Reset clears counter, key and ready.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package keyload

import "github.com/maemowong/aesbus/proto/rijndael"

// Inputs are the signals sampled on the rising edge.
type Inputs struct {
	Reset bool // rst_n low
	Din   byte
	Valid bool
}

// KeyLoader is the 32-byte key assembly register.
//
// Hardware: 256 flip-flops (key) + 5-bit counter + 1 flag
//
//	Write decoder: 5-to-32 one-hot, each lane enables one byte
type KeyLoader struct {
	key   rijndael.Key
	count uint8
	ready bool
}

// Key returns key_out.
func (k *KeyLoader) Key() rijndael.Key {
	return k.key
}

// Ready returns the one-cycle completion pulse.
func (k *KeyLoader) Ready() bool {
	return k.ready
}

// Count returns the number of bytes accepted in the load in progress.
func (k *KeyLoader) Count() int {
	return int(k.count)
}

// Tick commits one clock edge.
//
// Verilog equivalent:
//
//	always_ff @(posedge clk or negedge rst_n)
//	  if (!rst_n) begin
//	    key_out <= '0; count <= '0; ready <= 1'b0;
//	  end else if (valid && !ready) begin
//	    key_out[255-8*count -: 8] <= din;
//	    ready <= (count == 31);
//	    count <= count + 1;  // 5 bits, wraps to 0
//	  end else
//	    ready <= 1'b0;
func (k *KeyLoader) Tick(in Inputs) {
	if in.Reset {
		*k = KeyLoader{}
		return
	}

	if !in.Valid || k.ready {
		k.ready = false
		return
	}

	k.key[k.count] = in.Din
	k.count++
	k.ready = false

	if int(k.count) == rijndael.KeySize {
		k.count = 0
		k.ready = true
	}
}
