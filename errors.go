package aesbus

import (
	"errors"

	"github.com/maemowong/aesbus/proto/rijndael"
)

var (
	// ErrPayloadLength is returned when a transaction payload does not
	// match the size its opcode requires.
	ErrPayloadLength = errors.New("payload length mismatch")

	// ErrAddressRange is returned for an address that does not fit in
	// 24 bits.
	ErrAddressRange = errors.New("address exceeds 24 bits")

	// ErrFieldRange is returned when a header field does not fit in its
	// 2-bit slot.
	ErrFieldRange = errors.New("header field out of range")

	// ErrCycleBudget is returned when a master operation does not finish
	// within Config.MaxCycles clock edges.
	ErrCycleBudget = errors.New("cycle budget exhausted")

	// ErrProtocolViolation is returned by the bus monitor when the engine
	// breaks a handshake rule.
	ErrProtocolViolation = errors.New("bus protocol violation")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidHex is returned when a key or block is not well-formed
	// hex of the right width.
	ErrInvalidHex = rijndael.ErrInvalidHex
)
