package aesbus

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/maemowong/aesbus/proto/rijndael"
)

// sample is one cycle as seen on the pins.
type sample struct {
	in   BusInputs
	snap Snapshot
}

// Monitor checks the engine side of every handshake, one cycle at a time.
// It is fed the snapshot and the inputs about to be applied, before each
// edge.
//
// Rules:
//   - data_out is stable and data_valid stays high while data_valid is
//     asserted without data_ready
//   - ack_valid, key/text ready and round done are one-cycle pulses
//   - payload bytes are counted only on edges where valid_in && ready_in
//   - every result read delivers exactly 16 bytes before ACK
type Monitor struct {
	prev     fn.Option[sample]
	outBytes int
}

// NewMonitor returns a monitor with no history.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Reset forgets the history. Call it whenever the engine is reset.
func (m *Monitor) Reset() {
	m.prev = fn.None[sample]()
	m.outBytes = 0
}

// Observe checks the cycle described by snap against the previous one, then
// records in as the inputs for that cycle.
func (m *Monitor) Observe(in BusInputs, snap Snapshot) error {
	var err error
	m.prev.WhenSome(func(p sample) {
		err = m.check(p, snap)
	})
	if err != nil {
		return err
	}

	if in.Reset {
		m.Reset()
		return nil
	}

	out := snap.Outputs
	if out.DataValid && in.DataReady {
		m.outBytes++
		if m.outBytes > rijndael.BlockSize {
			return m.violation(snap, "result read exceeded %d bytes",
				rijndael.BlockSize)
		}
	}

	m.prev = fn.Some(sample{in: in, snap: snap})

	return nil
}

func (m *Monitor) check(p sample, cur Snapshot) error {
	// A reset edge may legally change anything.
	if p.in.Reset {
		return nil
	}

	po, co := p.snap.Outputs, cur.Outputs

	if po.DataValid && !p.in.DataReady {
		if !co.DataValid {
			return m.violation(cur, "data_valid withdrawn before "+
				"data_ready")
		}
		if co.DataOut != po.DataOut {
			return m.violation(cur, "data_out changed from %#02x "+
				"to %#02x while stalled", po.DataOut, co.DataOut)
		}
	}

	pulses := []struct {
		name      string
		prev, cur bool
	}{
		{"ack_valid", po.AckValid, co.AckValid},
		{"key ready", p.snap.KeyReady, cur.KeyReady},
		{"text ready", p.snap.TextReady, cur.TextReady},
		{"round done", p.snap.RoundDone, cur.RoundDone},
	}
	for _, s := range pulses {
		if s.prev && s.cur {
			return m.violation(cur, "%s held for more than one "+
				"cycle", s.name)
		}
	}

	accepted := p.in.ValidIn && po.ReadyIn
	if err := m.checkLoad(p, cur, accepted); err != nil {
		return err
	}

	if p.snap.State == StateTxResult && cur.State == StateAck {
		if m.outBytes != rijndael.BlockSize {
			return m.violation(cur, "result read ended after %d "+
				"bytes", m.outBytes)
		}
		m.outBytes = 0
	}

	return nil
}

// checkLoad verifies that loader counters only move on accepted bytes.
func (m *Monitor) checkLoad(p sample, cur Snapshot, accepted bool) error {
	keyMoved := cur.KeyBytes != p.snap.KeyBytes || cur.KeyReady
	if keyMoved && !(accepted && p.snap.State == StateLoadKey) {
		return m.violation(cur, "key byte taken without handshake")
	}

	textMoved := cur.TextBytes != p.snap.TextBytes || cur.TextReady
	if textMoved && !(accepted && p.snap.State == StateLoadText) {
		return m.violation(cur, "text byte taken without handshake")
	}

	return nil
}

func (m *Monitor) violation(snap Snapshot, format string,
	args ...any) error {

	return fmt.Errorf("%w: cycle %d (%v): %s", ErrProtocolViolation,
		snap.Cycle, snap.State, fmt.Sprintf(format, args...))
}
