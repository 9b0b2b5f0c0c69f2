package aesbus

import (
	"fmt"

	"github.com/maemowong/aesbus/proto/rijndael"
)

// ════════════════════════════════════════════════════════════════════════════════════════════════
// TRANSACTION FRAMING
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// Every transaction is a header byte, three address bytes (MSB first) and
// an opcode-dependent payload:
//
//	 7   6   5   4   3   2   1   0
//	┌───────┬───────┬───────┬───────┐
//	│ rsvd  │ dest  │  src  │  op   │
//	└───────┴───────┴───────┴───────┘
//
//	op  name          payload
//	──  ────────────  ───────
//	00  LOAD_KEY      32 bytes
//	01  LOAD_TEXT     16 bytes
//	10  WRITE_RESULT   0 (engine streams 16 bytes back, then ACK)
//	11  HASH           0 (runs the 15 rounds)
//
// The address is carried on the wire and recorded with the transaction; the
// engine does not use it to select storage.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

// Opcode selects the operation of a transaction.
type Opcode uint8

const (
	OpLoadKey     Opcode = 0b00
	OpLoadText    Opcode = 0b01
	OpWriteResult Opcode = 0b10
	OpHash        Opcode = 0b11
)

const (
	// AddressBytes is the number of address bytes after the header.
	AddressBytes = 3

	// MaxAddress is the largest address the 24-bit field carries.
	MaxAddress = 1<<24 - 1

	// fieldMask is the width of every header field.
	fieldMask = 0b11
)

// Bus agent IDs used by the reference testbench.
const (
	MemID    uint8 = 0b00
	EngineID uint8 = 0b10
)

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	switch o {
	case OpLoadKey:
		return "LOAD_KEY"
	case OpLoadText:
		return "LOAD_TEXT"
	case OpWriteResult:
		return "WRITE_RESULT"
	case OpHash:
		return "HASH"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// PayloadLen returns the number of payload bytes the master sends.
func (o Opcode) PayloadLen() int {
	switch o {
	case OpLoadKey:
		return rijndael.KeySize
	case OpLoadText:
		return rijndael.BlockSize
	default:
		return 0
	}
}

// Header is the decoded first byte of a transaction.
type Header struct {
	Opcode   Opcode
	Source   uint8
	Dest     uint8
	Reserved uint8
}

// ParseHeader splits a header byte into its fields.
//
//go:inline
func ParseHeader(b byte) Header {
	return Header{
		Opcode:   Opcode(b & fieldMask),
		Source:   (b >> 2) & fieldMask,
		Dest:     (b >> 4) & fieldMask,
		Reserved: (b >> 6) & fieldMask,
	}
}

// Byte packs the header. Fields are truncated to two bits.
func (h Header) Byte() byte {
	return byte(h.Opcode)&fieldMask |
		(h.Source&fieldMask)<<2 |
		(h.Dest&fieldMask)<<4 |
		(h.Reserved&fieldMask)<<6
}

// Valid reports whether the reserved bits are zero. The engine drops
// transactions whose header is not valid.
func (h Header) Valid() bool {
	return h.Reserved == 0
}

// String returns a compact description of the header.
func (h Header) String() string {
	return fmt.Sprintf("%v src=%d dst=%d rsvd=%d", h.Opcode, h.Source,
		h.Dest, h.Reserved)
}

// Transaction is one complete bus exchange.
type Transaction struct {
	Header  Header
	Address uint32
	Payload []byte
}

// Frame serialises the transaction into the byte sequence driven on the
// input channel.
func (t Transaction) Frame() ([]byte, error) {
	h := t.Header
	switch {
	case h.Opcode > fieldMask:
		return nil, fmt.Errorf("%w: opcode %d", ErrFieldRange, h.Opcode)

	case h.Source > fieldMask:
		return nil, fmt.Errorf("%w: source id %d", ErrFieldRange,
			h.Source)

	case h.Dest > fieldMask:
		return nil, fmt.Errorf("%w: dest id %d", ErrFieldRange, h.Dest)

	case h.Reserved > fieldMask:
		return nil, fmt.Errorf("%w: reserved %d", ErrFieldRange,
			h.Reserved)
	}

	if t.Address > MaxAddress {
		return nil, fmt.Errorf("%w: %#x", ErrAddressRange, t.Address)
	}

	if want := h.Opcode.PayloadLen(); len(t.Payload) != want {
		return nil, fmt.Errorf("%w: %v wants %d bytes, got %d",
			ErrPayloadLength, h.Opcode, want, len(t.Payload))
	}

	frame := make([]byte, 0, 1+AddressBytes+len(t.Payload))
	frame = append(frame,
		h.Byte(),
		byte(t.Address>>16),
		byte(t.Address>>8),
		byte(t.Address),
	)
	frame = append(frame, t.Payload...)

	return frame, nil
}

// String returns a compact description of the transaction.
func (t Transaction) String() string {
	return fmt.Sprintf("%v addr=%06x payload=%dB", t.Header, t.Address,
		len(t.Payload))
}
