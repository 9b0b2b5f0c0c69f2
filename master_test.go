package aesbus

import (
	"context"
	"crypto/aes"
	"testing"

	"github.com/maemowong/aesbus/proto/rijndael"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// stdlibEncrypt is the ground truth every bus result is compared against.
func stdlibEncrypt(t require.TestingT, key rijndael.Key,
	pt rijndael.Block) rijndael.Block {

	c, err := aes.NewCipher(key[:])
	require.NoError(t, err)

	var ct rijndael.Block
	c.Encrypt(ct[:], pt[:])
	return ct
}

func newMaster(t require.TestingT, cfg *Config,
	opts ...MasterOption) (*Master, *Controller) {

	c := NewController()
	m, err := NewMaster(c, cfg, opts...)
	require.NoError(t, err)
	return m, c
}

// rapidStall draws every stall decision from the rapid source.
type rapidStall struct {
	rt *rapid.T
}

func (r rapidStall) Stall(ch Channel) bool {
	return rapid.Bool().Draw(r.rt, ch.String())
}

func TestMaster_KnownAnswers(t *testing.T) {
	// WHAT: published AES-256 vectors come back over the bus
	// WHY: golden regression for the whole engine, not just the datapath

	cases := []struct {
		name, key, pt, ct string
	}{
		{
			name: "sequential key and text",
			key:  goldenKey,
			pt:   goldenText,
			ct:   goldenCipher,
		},
		{
			name: "FIPS-197 C.3",
			key:  goldenKey,
			pt:   "00112233445566778899aabbccddeeff",
			ct:   "8ea2b7ca516745bfeafc49904b496089",
		},
		{
			name: "SP 800-38A F.1.5",
			key: "603deb1015ca71be2b73aef0857d7781" +
				"1f352c073b6108d72d9810a30914dff4",
			pt: "6bc1bee22e409f96e93d7e117393172a",
			ct: "f3eed1bdb5d2a03c064b5a7e3db181f8",
		},
		{
			name: "all zero",
			key:  "00000000000000000000000000000000" +
				"00000000000000000000000000000000",
			pt: "00000000000000000000000000000000",
			ct: "dc95c078a2408989ad48a21492842087",
		},
	}

	ctx := context.Background()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newMaster(t, DefaultConfig())
			require.NoError(t, m.Reset(ctx))

			key := mustKey(t, tc.key)
			pt := mustBlock(t, tc.pt)

			ct, err := m.Encrypt(ctx, key, pt)
			require.NoError(t, err)
			require.Equal(t, mustBlock(t, tc.ct), ct)
			require.Equal(t, stdlibEncrypt(t, key, pt), ct)
		})
	}
}

func TestMaster_MatchesStdlibUnderStalls(t *testing.T) {
	// WHAT: any key, any text, any stall pattern on valid_in, data_ready
	// and ack_ready still yields the reference ciphertext
	// WHY: a dropped or duplicated byte anywhere changes the result
	// HARDWARE: the monitor checks every handshake rule on every edge

	rapid.Check(t, func(rt *rapid.T) {
		var (
			key rijndael.Key
			pt  rijndael.Block
		)
		copy(key[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "key"))
		copy(pt[:], rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(rt, "pt"))

		m, _ := newMaster(rt, DefaultConfig(),
			WithStallPolicy(rapidStall{rt: rt}))

		ctx := context.Background()
		require.NoError(rt, m.Reset(ctx))

		ct, err := m.Encrypt(ctx, key, pt)
		require.NoError(rt, err)
		require.Equal(rt, stdlibEncrypt(rt, key, pt), ct)
	})
}

func TestMaster_RandomStallConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputStall = 0.5
	cfg.OutputStall = 0.5
	cfg.AckStall = 0.5
	cfg.Seed = 42

	m, c := newMaster(t, cfg)
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	key := mustKey(t, goldenKey)
	pt := mustBlock(t, goldenText)

	ct, err := m.Encrypt(ctx, key, pt)
	require.NoError(t, err)
	require.Equal(t, mustBlock(t, goldenCipher), ct)

	// Stalls cost cycles: a stall-free run is strictly shorter.
	fast, fc := newMaster(t, DefaultConfig())
	require.NoError(t, fast.Reset(ctx))
	_, err = fast.Encrypt(ctx, key, pt)
	require.NoError(t, err)
	require.Less(t, fc.Snapshot().Cycle, c.Snapshot().Cycle)
}

func TestMaster_BackToBackEncryptions(t *testing.T) {
	// WHAT: key and text overwrite in place across transactions, no
	// reset between them

	m, _ := newMaster(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	for i := 0; i < 4; i++ {
		var (
			key rijndael.Key
			pt  rijndael.Block
		)
		for j := range key {
			key[j] = byte(i*37 + j)
		}
		for j := range pt {
			pt[j] = byte(i*11 + j*3)
		}

		ct, err := m.Encrypt(ctx, key, pt)
		require.NoError(t, err)
		require.Equal(t, stdlibEncrypt(t, key, pt), ct, "run %d", i)
	}
}

func TestMaster_ReuseKeyForNewText(t *testing.T) {
	m, _ := newMaster(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	key := mustKey(t, goldenKey)
	require.NoError(t, m.LoadKey(ctx, key))

	for _, s := range []string{goldenText, "00112233445566778899aabbccddeeff"} {
		pt := mustBlock(t, s)
		require.NoError(t, m.LoadText(ctx, pt))
		require.NoError(t, m.Start(ctx))

		ct, err := m.ReadResult(ctx)
		require.NoError(t, err)
		require.Equal(t, stdlibEncrypt(t, key, pt), ct)
	}
}

func TestMaster_ReadResultWithoutRunStreamsState(t *testing.T) {
	// WHAT: WRITE_RESULT before any HASH returns the loaded text as-is

	m, c := newMaster(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	pt := mustBlock(t, goldenText)
	require.NoError(t, m.LoadText(ctx, pt))
	require.False(t, c.Snapshot().ResultReady)

	got, err := m.ReadResult(ctx)
	require.NoError(t, err)
	require.Equal(t, pt, got)
}

func TestMaster_ResetDuringLoad(t *testing.T) {
	// WHAT: reset at any byte offset of a key load, then a clean
	// encryption
	// WHY: no partial key may survive reset

	rapid.Check(t, func(rt *rapid.T) {
		cut := rapid.IntRange(0, 1+AddressBytes+rijndael.KeySize-1).
			Draw(rt, "cut")

		m, c := newMaster(rt, DefaultConfig())
		ctx := context.Background()
		require.NoError(rt, m.Reset(ctx))

		junk := make([]byte, rijndael.KeySize)
		for i := range junk {
			junk[i] = 0xa5
		}
		frame, err := m.transaction(OpLoadKey, junk).Frame()
		require.NoError(rt, err)
		for _, b := range frame[:cut] {
			require.NoError(rt, m.send(ctx, b))
		}

		require.NoError(rt, m.Reset(ctx))
		snap := c.Snapshot()
		require.Equal(rt, StateIdle, snap.State)
		require.Zero(rt, snap.KeyBytes)

		key := mustKey(rt, goldenKey)
		pt := mustBlock(rt, goldenText)
		ct, err := m.Encrypt(ctx, key, pt)
		require.NoError(rt, err)
		require.Equal(rt, mustBlock(rt, goldenCipher), ct)
	})
}

func TestMaster_SubmitDroppedHeader(t *testing.T) {
	m, c := newMaster(t, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	rec := &recorder{}
	c.AddObserver(rec)

	bad := m.transaction(OpWriteResult, nil)
	bad.Header.Reserved = 0b01

	out, err := m.Submit(ctx, bad)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Len(t, rec.dropped, 1)
	require.Equal(t, StateIdle, c.State())
}

func TestMaster_SubmitRejectsBadFrames(t *testing.T) {
	m, c := newMaster(t, DefaultConfig())
	ctx := context.Background()

	_, err := m.Submit(ctx, m.transaction(OpLoadKey, make([]byte, 31)))
	require.ErrorIs(t, err, ErrPayloadLength)

	far := m.transaction(OpHash, nil)
	far.Address = MaxAddress + 1
	_, err = m.Submit(ctx, far)
	require.ErrorIs(t, err, ErrAddressRange)

	require.Zero(t, c.Snapshot().Cycle, "rejected frames never reach the bus")
}

func TestMaster_ContextCancel(t *testing.T) {
	m, _ := newMaster(t, DefaultConfig(),
		WithStallPolicy(stuckInput{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Reset(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// stuckInput never raises valid_in.
type stuckInput struct{}

func (stuckInput) Stall(ch Channel) bool {
	return ch == ChannelInput
}

func TestMaster_CycleBudget(t *testing.T) {
	// WHAT: a master that never drives valid_in gives up after MaxCycles
	// WHY: the engine waits forever for a missing byte by design

	cfg := DefaultConfig()
	cfg.MaxCycles = 50

	m, c := newMaster(t, cfg, WithStallPolicy(stuckInput{}))
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	err := m.LoadKey(ctx, mustKey(t, goldenKey))
	require.ErrorIs(t, err, ErrCycleBudget)
	require.Equal(t, StateIdle, c.State())
}

func TestMaster_AckStallHoldsEngine(t *testing.T) {
	// WHAT: an ack_ready that never comes keeps the engine in ACK

	cfg := DefaultConfig()
	cfg.MaxCycles = 200

	m, c := newMaster(t, cfg, WithStallPolicy(stuckAck{}))
	ctx := context.Background()
	require.NoError(t, m.Reset(ctx))

	_, err := m.ReadResult(ctx)
	require.ErrorIs(t, err, ErrCycleBudget)
	require.Equal(t, StateAck, c.State())
	require.False(t, c.Outputs().ReadyIn)
}

type stuckAck struct{}

func (stuckAck) Stall(ch Channel) bool {
	return ch == ChannelAck
}

func TestNewMaster_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputStall = 1

	_, err := NewMaster(NewController(), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func BenchmarkMaster_Encrypt(b *testing.B) {
	m, _ := newMaster(b, DefaultConfig())
	ctx := context.Background()
	key := mustKey(b, goldenKey)
	pt := mustBlock(b, goldenText)

	for i := 0; i < b.N; i++ {
		if _, err := m.Encrypt(ctx, key, pt); err != nil {
			b.Fatal(err)
		}
	}
}
