// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES-256 Round Datapath - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// OVERVIEW:
// ─────────
// This package models the combinational half of the byte-streamed AES-256 engine:
// the shared S-box ROM, GF(2^8) arithmetic, and the four round transforms
// (SubBytes, ShiftRows, MixColumns, AddRoundKey). Nothing in here holds state.
// Every function maps one 128-bit wire bundle to another.
//
// HARDWARE MODEL:
// ───────────────
// The Go types mirror the RTL wire widths:
//
//	Block  → logic [127:0]  (state, round key)
//	Key    → logic [255:0]  (master key)
//
// Byte 0 of a Block sits in the most significant position [127:120]. The
// 4×4 AES grid is column-major over those bytes:
//
//	byte index = col*4 + row
//
//	        col0 col1 col2 col3
//	row0  [  0    4    8   12 ]
//	row1  [  1    5    9   13 ]
//	row2  [  2    6   10   14 ]
//	row3  [  3    7   11   15 ]
//
// SYSTEMVERILOG MAPPING:
// ──────────────────────
//   Go function       → SV always_comb block or module
//   Go loop           → SV generate for (parallel hardware)
//   Go method w/o ptr → SV always_comb (combinational, pure function)
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package rijndael

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// BlockSize is the width of the state and of every round key in bytes.
	BlockSize = 16

	// KeySize is the width of the AES-256 master key in bytes.
	KeySize = 32

	// Rounds is the number of full-or-final transform rounds for Nk=8.
	// Round 0 (whitening) comes on top, so a run touches Rounds+1 keys.
	Rounds = 14

	// NumRoundKeys is the number of 128-bit round keys the schedule emits.
	NumRoundKeys = Rounds + 1
)

// ErrInvalidHex is returned when a textual block or key cannot be decoded to
// the exact width required.
var ErrInvalidHex = errors.New("invalid hex value")

// Block is a 128-bit state or round key, byte 0 most significant.
type Block [BlockSize]byte

// Key is a 256-bit master key, byte 0 most significant.
type Key [KeySize]byte

// At returns the byte at (row, col) of the column-major AES grid.
func (b Block) At(row, col int) byte {
	return b[col*4+row]
}

// Column returns column c as (a0, a1, a2, a3), top row first.
func (b Block) Column(c int) [4]byte {
	return [4]byte{b[c*4], b[c*4+1], b[c*4+2], b[c*4+3]}
}

// String renders the block as 32 lowercase hex digits, MSB first.
func (b Block) String() string {
	return hex.EncodeToString(b[:])
}

// Bytes returns a copy of the block as a slice.
func (b Block) Bytes() []byte {
	return append([]byte(nil), b[:]...)
}

// Bytes returns a copy of the key as a slice.
func (k Key) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}

// String renders the key as 64 lowercase hex digits, MSB first.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Word returns key word i (0..7) as a big-endian uint32.
func (k Key) Word(i int) uint32 {
	return uint32(k[4*i])<<24 | uint32(k[4*i+1])<<16 |
		uint32(k[4*i+2])<<8 | uint32(k[4*i+3])
}

// ParseBlock decodes 32 hex digits into a Block. Whitespace and an optional
// 0x prefix are tolerated so vectors can be pasted from FIPS-197.
func ParseBlock(s string) (Block, error) {
	var b Block
	if err := decodeInto(b[:], s); err != nil {
		return Block{}, err
	}
	return b, nil
}

// ParseKey decodes 64 hex digits into a Key.
func ParseKey(s string) (Key, error) {
	var k Key
	if err := decodeInto(k[:], s); err != nil {
		return Key{}, err
	}
	return k, nil
}

func decodeInto(dst []byte, s string) error {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Join(strings.Fields(s), "")

	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidHex,
			len(raw), len(dst))
	}

	copy(dst, raw)
	return nil
}
