package aesbus

import "math/rand/v2"

// Channel names a master-driven handshake signal.
type Channel uint8

const (
	// ChannelInput is valid_in on the input channel.
	ChannelInput Channel = iota

	// ChannelOutput is data_ready on the output channel.
	ChannelOutput

	// ChannelAck is ack_ready on the completion channel.
	ChannelAck
)

// String returns the signal name.
func (c Channel) String() string {
	switch c {
	case ChannelInput:
		return "valid_in"
	case ChannelOutput:
		return "data_ready"
	case ChannelAck:
		return "ack_ready"
	default:
		return "unknown"
	}
}

// StallPolicy decides, once per cycle and channel, whether the master holds
// its side of the handshake low.
type StallPolicy interface {
	Stall(ch Channel) bool
}

// NoStall never stalls.
type NoStall struct{}

// Stall always returns false.
func (NoStall) Stall(Channel) bool {
	return false
}

// RandomStall stalls each channel independently with a fixed probability.
// The sequence is reproducible for a given seed.
type RandomStall struct {
	rng   *rand.Rand
	probs [3]float64
}

// NewRandomStall returns a RandomStall seeded with seed.
func NewRandomStall(seed uint64, input, output, ack float64) *RandomStall {
	return &RandomStall{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		probs: [3]float64{input, output, ack},
	}
}

// Stall draws one decision for ch.
func (r *RandomStall) Stall(ch Channel) bool {
	if int(ch) >= len(r.probs) || r.probs[ch] <= 0 {
		return false
	}

	return r.rng.Float64() < r.probs[ch]
}
