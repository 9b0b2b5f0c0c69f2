package aesbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// Monitor - Negative Tests
// ═══════════════════════════════════════════════════════════════════════════════════════════════
//
// The controller never breaks these rules, so the monitor is fed hand-built
// snapshots of a faulty engine.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

func txResult(cycle uint64, out byte, valid bool) Snapshot {
	return Snapshot{
		Cycle: cycle,
		State: StateTxResult,
		Outputs: BusOutputs{
			DataOut:   out,
			DataValid: valid,
		},
	}
}

func TestMonitor_DataChangesWhileStalled(t *testing.T) {
	m := NewMonitor()

	require.NoError(t, m.Observe(BusInputs{}, txResult(1, 0xaa, true)))
	err := m.Observe(BusInputs{}, txResult(2, 0xbb, true))
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.Contains(t, err.Error(), "data_out changed")
}

func TestMonitor_ValidWithdrawn(t *testing.T) {
	m := NewMonitor()

	require.NoError(t, m.Observe(BusInputs{}, txResult(1, 0xaa, true)))
	err := m.Observe(BusInputs{}, txResult(2, 0xaa, false))
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestMonitor_AcceptedByteMayChange(t *testing.T) {
	m := NewMonitor()

	in := BusInputs{DataReady: true}
	require.NoError(t, m.Observe(in, txResult(1, 0xaa, true)))
	require.NoError(t, m.Observe(in, txResult(2, 0xbb, true)))
}

func TestMonitor_LongPulse(t *testing.T) {
	snaps := map[string]func(*Snapshot){
		"ack_valid":  func(s *Snapshot) { s.Outputs.AckValid = true },
		"round done": func(s *Snapshot) { s.RoundDone = true },
	}

	for name, set := range snaps {
		t.Run(name, func(t *testing.T) {
			m := NewMonitor()

			s := Snapshot{Cycle: 1, State: StateAck}
			set(&s)
			require.NoError(t, m.Observe(BusInputs{}, s))

			s.Cycle = 2
			err := m.Observe(BusInputs{}, s)
			require.ErrorIs(t, err, ErrProtocolViolation)
			require.Contains(t, err.Error(), name)
		})
	}
}

func TestMonitor_ByteWithoutHandshake(t *testing.T) {
	m := NewMonitor()

	prev := Snapshot{Cycle: 1, State: StateLoadKey, KeyBytes: 3,
		Outputs: BusOutputs{ReadyIn: true}}
	require.NoError(t, m.Observe(BusInputs{ValidIn: false}, prev))

	cur := prev
	cur.Cycle = 2
	cur.KeyBytes = 4
	err := m.Observe(BusInputs{}, cur)
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestMonitor_ShortResultRead(t *testing.T) {
	m := NewMonitor()

	in := BusInputs{DataReady: true}
	for i := 0; i < 15; i++ {
		require.NoError(t, m.Observe(in, txResult(uint64(i), 0, true)))
	}

	err := m.Observe(BusInputs{}, Snapshot{Cycle: 15, State: StateAck})
	require.ErrorIs(t, err, ErrProtocolViolation)
	require.Contains(t, err.Error(), "after 15 bytes")
}

func TestMonitor_ResetClearsHistory(t *testing.T) {
	m := NewMonitor()

	require.NoError(t, m.Observe(BusInputs{Reset: true},
		txResult(1, 0xaa, true)))
	require.NoError(t, m.Observe(BusInputs{}, Snapshot{Cycle: 2}))
}
