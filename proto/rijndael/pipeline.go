package rijndael

// ════════════════════════════════════════════════════════════════════════════════════════════════
// GF(2^8) ARITHMETIC
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// Bytes are polynomials over GF(2) reduced modulo x^8 + x^4 + x^3 + x + 1.
// Addition is XOR. MixColumns only ever multiplies by 1, 2 and 3, so the
// datapath needs nothing more than xtime (·2) and one extra XOR (·3).

// ReductionPoly is the low byte of x^8 + x^4 + x^3 + x + 1.
const ReductionPoly = 0x1b

// Xtime multiplies b by x (·2): shift left, fold the carry back in with 0x1B.
//
// Hardware: 1 shift (wiring) + 3 XOR gates gated by b[7]
//
// Verilog equivalent:
//
//	assign y = {b[6:0], 1'b0} ^ (8'h1b & {8{b[7]}});
//
//go:inline
func Xtime(b byte) byte {
	return b<<1 ^ ReductionPoly&-(b>>7)
}

// Mul3 multiplies b by x+1 (·3 = ·2 XOR identity).
//
//go:inline
func Mul3(b byte) byte {
	return Xtime(b) ^ b
}

// Mul is the general shift-and-add GF(2^8) product. The datapath never uses
// it; it exists as an independent cross-check for Xtime/Mul3 in tests and
// for callers deriving tables.
func Mul(a, b byte) byte {
	var p byte
	for b != 0 {
		if b&1 != 0 {
			p ^= a
		}
		a = Xtime(a)
		b >>= 1
	}
	return p
}

// ════════════════════════════════════════════════════════════════════════════════════════════════
// ROUND TRANSFORMS (all combinational)
// ════════════════════════════════════════════════════════════════════════════════════════════════

// SubBytes replaces every byte through the S-box.
//
// Hardware: 16 parallel S-box ROMs
// Timing:   ~120ps (one ROM lookup, all lanes in parallel)
func SubBytes(s Block) Block {
	var out Block
	for i := 0; i < BlockSize; i++ {
		out[i] = sbox[s[i]]
	}
	return out
}

// ShiftRows rotates row r left by r positions: the byte at (r, c) moves to
// (r, (c-r) mod 4). Row 0 is untouched.
//
// Hardware: pure wiring, zero gates
//
// Verilog equivalent:
//
//	for (r = 0; r < 4; r++)
//	  for (c = 0; c < 4; c++)
//	    assign out[c*4+r] = in[((c+r)%4)*4+r];
func ShiftRows(s Block) Block {
	var out Block
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = s[((c+r)&3)*4+r]
		}
	}
	return out
}

// MixColumn multiplies one column by the fixed circulant matrix
//
//	[2 3 1 1]
//	[1 2 3 1]
//	[1 1 2 3]
//	[3 1 1 2]
//
// Hardware: 4 xtime units + 16 byte-wide XORs per column
func MixColumn(a [4]byte) [4]byte {
	return [4]byte{
		Xtime(a[0]) ^ Mul3(a[1]) ^ a[2] ^ a[3],
		a[0] ^ Xtime(a[1]) ^ Mul3(a[2]) ^ a[3],
		a[0] ^ a[1] ^ Xtime(a[2]) ^ Mul3(a[3]),
		Mul3(a[0]) ^ a[1] ^ a[2] ^ Xtime(a[3]),
	}
}

// MixColumns applies MixColumn to all four columns unless finalRound is set,
// in which case the state is routed around the multiplier untouched.
//
// Hardware: 4 column mixers in parallel + 128-bit 2:1 bypass mux
//
// Verilog equivalent:
//
//	assign state_out = final_round ? state_in : mixed;
func MixColumns(s Block, finalRound bool) Block {
	if finalRound {
		return s
	}

	var out Block
	for c := 0; c < 4; c++ {
		col := MixColumn(s.Column(c))
		copy(out[c*4:c*4+4], col[:])
	}
	return out
}

// AddRoundKey XORs the round key into the state.
//
// Hardware: 128 XOR gates, ~20ps
func AddRoundKey(s, k Block) Block {
	var out Block
	for i := 0; i < BlockSize; i++ {
		out[i] = s[i] ^ k[i]
	}
	return out
}

// Transform is the full round pipeline:
// SubBytes → ShiftRows → MixColumns (bypassed when finalRound) → AddRoundKey.
//
// CRITICAL PATH: S-box (120ps) + mixer (80ps) + bypass mux (20ps) + XOR (20ps)
// ShiftRows is free.
func Transform(s, k Block, finalRound bool) Block {
	return AddRoundKey(MixColumns(ShiftRows(SubBytes(s)), finalRound), k)
}

// Round selects what a given round index does to the state:
//
//	round 0      → AddRoundKey only (key whitening)
//	round 1..13  → Transform with MixColumns
//	round 14     → Transform with MixColumns bypassed
//
// This is the mux the controller places in front of the state register.
func Round(s, k Block, round uint8) Block {
	if round == 0 {
		return AddRoundKey(s, k)
	}
	return Transform(s, k, round >= Rounds)
}

// Encrypt runs all 15 rounds combinationally from a precomputed schedule.
// The controller never uses it (it steps one round per clock), but it is the
// unrolled reference the sequential model must agree with.
func Encrypt(keys [NumRoundKeys]Block, pt Block) Block {
	s := pt
	for r := 0; r < NumRoundKeys; r++ {
		s = Round(s, keys[r], uint8(r))
	}
	return s
}

// ════════════════════════════════════════════════════════════════════════════════════════════════
// WORD HELPERS (key schedule lanes)
// ════════════════════════════════════════════════════════════════════════════════════════════════

// SubWord applies the S-box to each byte of a big-endian word.
func SubWord(w uint32) uint32 {
	return uint32(sbox[w>>24])<<24 | uint32(sbox[w>>16&0xff])<<16 |
		uint32(sbox[w>>8&0xff])<<8 | uint32(sbox[w&0xff])
}

// RotWord rotates a word left by one byte: [a0 a1 a2 a3] → [a1 a2 a3 a0].
func RotWord(w uint32) uint32 {
	return w<<8 | w>>24
}

// BlockFromWords packs four big-endian words into a Block, w0 first.
func BlockFromWords(w0, w1, w2, w3 uint32) Block {
	var b Block
	for i, w := range [4]uint32{w0, w1, w2, w3} {
		b[4*i] = byte(w >> 24)
		b[4*i+1] = byte(w >> 16)
		b[4*i+2] = byte(w >> 8)
		b[4*i+3] = byte(w)
	}
	return b
}
