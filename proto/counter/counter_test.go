package counter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRoundCounter_AdvanceSequence(t *testing.T) {
	// WHAT: rounds 1..14 in order, is_final only at 14, done once at the wrap
	// WHY: test_round_counter.py sequence

	var c RoundCounter
	c.Tick(Inputs{Reset: true})

	for i := 1; i <= FinalRound; i++ {
		c.Tick(Inputs{Advance: true})

		require.Equal(t, uint8(i), c.Round())
		require.False(t, c.Done(), "done early at round %d", i)
		require.Equal(t, i == FinalRound, c.IsFinal(), "round %d", i)
	}

	c.Tick(Inputs{Advance: true})
	require.True(t, c.Done())
	require.False(t, c.IsFinal())
	require.Equal(t, uint8(0), c.Round())

	c.Tick(Inputs{Advance: true})
	require.False(t, c.Done(), "done must be a one-cycle pulse")
	require.Equal(t, uint8(1), c.Round())
}

func TestRoundCounter_AdvanceLowFreezes(t *testing.T) {
	var c RoundCounter
	for i := 0; i < 5; i++ {
		c.Tick(Inputs{Advance: true})
	}
	held := c.Round()

	for i := 0; i < 5; i++ {
		c.Tick(Inputs{})
		require.Equal(t, held, c.Round())
		require.False(t, c.Done())
	}
}

func TestRoundCounter_DoneClearsWhenAdvanceDrops(t *testing.T) {
	var c RoundCounter
	for i := 0; i <= FinalRound; i++ {
		c.Tick(Inputs{Advance: true})
	}
	require.True(t, c.Done())

	c.Tick(Inputs{})
	require.False(t, c.Done())
	require.Equal(t, uint8(0), c.Round())
}

func TestRoundCounter_StartReinitialises(t *testing.T) {
	// WHAT: start clears count and flags without a reset pulse
	// HARDWARE: start and !rst_n share the same clear path

	var c RoundCounter
	for i := 0; i < FinalRound; i++ {
		c.Tick(Inputs{Advance: true})
	}
	require.True(t, c.IsFinal())

	c.Tick(Inputs{Start: true, Advance: true})
	require.Equal(t, uint8(0), c.Round())
	require.False(t, c.IsFinal())
	require.False(t, c.Done())
}

func TestRoundCounter_Invariants(t *testing.T) {
	// WHAT: for any input sequence the count stays in [0,14], done only
	// follows an advance out of 14, and is_final tracks round == 14.

	rapid.Check(t, func(rt *rapid.T) {
		var c RoundCounter
		steps := rapid.SliceOfN(rapid.IntRange(0, 3), 1, 200).
			Draw(rt, "steps")

		for _, s := range steps {
			in := Inputs{Advance: s >= 1, Start: s == 3}
			wasFinal := c.IsFinal()
			c.Tick(in)

			require.LessOrEqual(rt, c.Round(), uint8(FinalRound))
			require.Equal(rt, c.Round() == FinalRound, c.IsFinal())
			require.Equal(rt, in.Advance && !in.Start && wasFinal, c.Done())
		}
	})
}
