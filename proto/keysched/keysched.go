// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES-256 Round Key Generator - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// Produces the 15 round keys of an AES-256 schedule, one per advance, from an
// 8-word sliding window. Only 256 bits of schedule state are held at once;
// the full 60-word expansion never exists in hardware.
//
// WINDOW:
// ───────
//
//	advance k   window after edge      round_key
//	─────────   ──────────────────     ─────────
//	    0       w0..w7  (seeded)       w0..w3
//	    1       w0..w7                 w4..w7
//	    2       w8..w15   (rcon[1])    w8..w11
//	    3       w8..w15                w12..w15
//	   ...
//	   14       w56..w63  (rcon[7])    w56..w59
//
// Even k > 0 expands the whole window in one edge:
//
//	w'0 = w0 ^ SubWord(RotWord(w7)) ^ rcon[k/2]<<24
//	w'i = wi ^ w'(i-1)                         i = 1,2,3
//	w'4 = w4 ^ SubWord(w'3)
//	w'i = wi ^ w'(i-1)                         i = 5,6,7
//
// Timing: round_key is registered. valid is high for the single cycle after
// each advance edge, so the consumer samples round_key with valid.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package keysched

import (
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/maemowong/aesbus/proto/rijndael"
)

// windowWords is the depth of the sliding window (Nk for AES-256).
const windowWords = 8

// Inputs are the signals sampled on the rising edge.
type Inputs struct {
	Reset bool

	// Restart rewinds to round key 0 without clearing the outputs' key.
	Restart bool

	// Advance produces the next round key.
	Advance bool

	// Key is the cipher key; sampled when round key 0 is produced.
	Key rijndael.Key
}

// RoundKeyGen is the on-the-fly key expansion unit.
//
// Hardware: 256-bit window + 128-bit output register + 4-bit index + valid
//
//	Expansion: 8 S-box lookups (two SubWord) + 8 x 32-bit XOR chain
type RoundKeyGen struct {
	window   [windowWords]uint32
	next     uint8
	roundKey rijndael.Block
	valid    bool
}

// RoundKey returns the round key produced by the previous advance, or None if
// the last edge did not advance.
func (g *RoundKeyGen) RoundKey() fn.Option[rijndael.Block] {
	if !g.valid {
		return fn.None[rijndael.Block]()
	}

	return fn.Some(g.roundKey)
}

// Valid reports whether RoundKey holds a freshly produced key.
func (g *RoundKeyGen) Valid() bool {
	return g.valid
}

// Next returns the index of the round key the next advance will produce.
func (g *RoundKeyGen) Next() uint8 {
	return g.next
}

// Tick commits one clock edge.
func (g *RoundKeyGen) Tick(in Inputs) {
	switch {
	case in.Reset:
		*g = RoundKeyGen{}

	case in.Restart:
		g.next = 0
		g.valid = false

	case in.Advance:
		g.roundKey = g.produce(g.next, in.Key)
		g.valid = true
		g.next = (g.next + 1) % rijndael.NumRoundKeys

	default:
		g.valid = false
	}
}

// produce updates the window for round key k and returns it.
func (g *RoundKeyGen) produce(k uint8, key rijndael.Key) rijndael.Block {
	w := &g.window

	switch {
	case k == 0:
		for i := range w {
			w[i] = key.Word(i)
		}
		return rijndael.BlockFromWords(w[0], w[1], w[2], w[3])

	case k%2 == 1:
		return rijndael.BlockFromWords(w[4], w[5], w[6], w[7])

	default:
		*w = expand(*w, int(k/2))
		return rijndael.BlockFromWords(w[0], w[1], w[2], w[3])
	}
}

// expand computes the next 8 schedule words from the current window.
//
//go:inline
func expand(w [windowWords]uint32, m int) [windowWords]uint32 {
	var n [windowWords]uint32

	n[0] = w[0] ^ rijndael.SubWord(rijndael.RotWord(w[7])) ^
		uint32(rijndael.Rcon(m))<<24
	n[1] = w[1] ^ n[0]
	n[2] = w[2] ^ n[1]
	n[3] = w[3] ^ n[2]

	n[4] = w[4] ^ rijndael.SubWord(n[3])
	n[5] = w[5] ^ n[4]
	n[6] = w[6] ^ n[5]
	n[7] = w[7] ^ n[6]

	return n
}

// Schedule returns all 15 round keys for key. It drives a fresh generator
// through 15 advances, so it shares the window logic used on the bus.
func Schedule(key rijndael.Key) [rijndael.NumRoundKeys]rijndael.Block {
	var (
		g    RoundKeyGen
		keys [rijndael.NumRoundKeys]rijndael.Block
	)

	for i := range keys {
		g.Tick(Inputs{Advance: true, Key: key})
		keys[i] = g.roundKey
	}

	return keys
}
