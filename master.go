package aesbus

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/maemowong/aesbus/proto/rijndael"
)

// Master drives a Controller through whole transactions, one clock edge per
// loop iteration, the way a bus testbench would.
//
// Every blocking operation polls ctx between edges and gives up with
// ErrCycleBudget once Config.MaxCycles edges pass without completing.
type Master struct {
	cfg *Config
	dut *Controller

	stall   StallPolicy
	monitor fn.Option[*Monitor]

	source uint8
	dest   uint8

	// seq stamps each transaction's address so traces can tell them
	// apart.
	seq uint32

	// opCycles counts edges spent in the current operation.
	opCycles uint64
}

// MasterOption customises a Master.
type MasterOption func(*Master)

// WithStallPolicy overrides the policy derived from the config.
func WithStallPolicy(p StallPolicy) MasterOption {
	return func(m *Master) {
		m.stall = p
	}
}

// WithIDs sets the source and destination IDs stamped in every header.
func WithIDs(source, dest uint8) MasterOption {
	return func(m *Master) {
		m.source = source
		m.dest = dest
	}
}

// NewMaster returns a master bound to dut. The config must be valid.
func NewMaster(dut *Controller, cfg *Config,
	opts ...MasterOption) (*Master, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Master{
		cfg:     cfg,
		dut:     dut,
		stall:   NoStall{},
		monitor: fn.None[*Monitor](),
		source:  MemID,
		dest:    EngineID,
	}
	if cfg.stalls() {
		m.stall = NewRandomStall(cfg.Seed, cfg.InputStall,
			cfg.OutputStall, cfg.AckStall)
	}
	if cfg.CheckProtocol {
		m.monitor = fn.Some(NewMonitor())
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Reset holds reset for Config.ResetCycles edges.
func (m *Master) Reset(ctx context.Context) error {
	m.opCycles = 0
	for i := 0; i < m.cfg.ResetCycles; i++ {
		if err := m.step(ctx, BusInputs{Reset: true}); err != nil {
			return err
		}
	}

	return nil
}

// Submit frames tx, drives it onto the bus and waits for the engine to
// finish it. For WRITE_RESULT the 16 streamed bytes are returned.
func (m *Master) Submit(ctx context.Context, tx Transaction) ([]byte, error) {
	frame, err := tx.Frame()
	if err != nil {
		return nil, err
	}

	log.Debugf("Submitting %v", tx)

	m.opCycles = 0
	for _, b := range frame {
		if err := m.send(ctx, b); err != nil {
			return nil, fmt.Errorf("%v: %w", tx.Header.Opcode, err)
		}
	}

	if tx.Header.Valid() && tx.Header.Opcode == OpWriteResult {
		result, err := m.receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", tx.Header.Opcode, err)
		}

		return result, nil
	}

	if err := m.waitIdle(ctx); err != nil {
		return nil, fmt.Errorf("%v: %w", tx.Header.Opcode, err)
	}

	return nil, nil
}

// LoadKey issues LOAD_KEY.
func (m *Master) LoadKey(ctx context.Context, key rijndael.Key) error {
	_, err := m.Submit(ctx, m.transaction(OpLoadKey, key[:]))
	return err
}

// LoadText issues LOAD_TEXT.
func (m *Master) LoadText(ctx context.Context, text rijndael.Block) error {
	_, err := m.Submit(ctx, m.transaction(OpLoadText, text[:]))
	return err
}

// Start issues HASH and waits for the 15 rounds to finish.
func (m *Master) Start(ctx context.Context) error {
	_, err := m.Submit(ctx, m.transaction(OpHash, nil))
	return err
}

// ReadResult issues WRITE_RESULT and returns the streamed block.
func (m *Master) ReadResult(ctx context.Context) (rijndael.Block, error) {
	var out rijndael.Block

	b, err := m.Submit(ctx, m.transaction(OpWriteResult, nil))
	if err != nil {
		return out, err
	}
	copy(out[:], b)

	return out, nil
}

// Encrypt runs a full key load, text load, start and result read.
func (m *Master) Encrypt(ctx context.Context, key rijndael.Key,
	pt rijndael.Block) (rijndael.Block, error) {

	if err := m.LoadKey(ctx, key); err != nil {
		return rijndael.Block{}, err
	}
	if err := m.LoadText(ctx, pt); err != nil {
		return rijndael.Block{}, err
	}
	if err := m.Start(ctx); err != nil {
		return rijndael.Block{}, err
	}

	ct, err := m.ReadResult(ctx)
	if err != nil {
		return rijndael.Block{}, err
	}

	log.Debugf("Encrypted %v -> %v", pt, ct)

	return ct, nil
}

func (m *Master) transaction(op Opcode, payload []byte) Transaction {
	tx := Transaction{
		Header: Header{
			Opcode: op,
			Source: m.source,
			Dest:   m.dest,
		},
		Address: m.seq & MaxAddress,
		Payload: payload,
	}
	m.seq++

	return tx
}

// send holds b on din until the engine accepts it.
func (m *Master) send(ctx context.Context, b byte) error {
	for {
		valid := !m.stall.Stall(ChannelInput)
		accepted := valid && m.dut.Outputs().ReadyIn

		err := m.step(ctx, BusInputs{DataIn: b, ValidIn: valid})
		if err != nil {
			return err
		}
		if accepted {
			return nil
		}
	}
}

// receive collects the 16 result bytes and completes the ACK handshake.
func (m *Master) receive(ctx context.Context) ([]byte, error) {
	result := make([]byte, 0, rijndael.BlockSize)

	for len(result) < rijndael.BlockSize {
		out := m.dut.Outputs()
		ready := !m.stall.Stall(ChannelOutput)
		if out.DataValid && ready {
			result = append(result, out.DataOut)
		}

		if err := m.step(ctx, BusInputs{DataReady: ready}); err != nil {
			return nil, err
		}
	}

	for {
		ackValid := m.dut.Outputs().AckValid
		ready := !m.stall.Stall(ChannelAck)

		if err := m.step(ctx, BusInputs{AckReady: ready}); err != nil {
			return nil, err
		}
		if ackValid {
			return result, nil
		}
	}
}

// waitIdle idles the inputs until the engine is ready for a new header.
func (m *Master) waitIdle(ctx context.Context) error {
	for !m.dut.Outputs().ReadyIn {
		if err := m.step(ctx, BusInputs{}); err != nil {
			return err
		}
	}

	return nil
}

// step applies one edge.
func (m *Master) step(ctx context.Context, in BusInputs) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if m.opCycles >= m.cfg.MaxCycles {
		snap := m.dut.Snapshot()
		log.Errorf("No progress after %d cycles: %v", m.opCycles,
			spewClosure(snap))

		return fmt.Errorf("%w: %d edges, stuck in %v", ErrCycleBudget,
			m.opCycles, snap.State)
	}

	var err error
	m.monitor.WhenSome(func(mon *Monitor) {
		err = mon.Observe(in, m.dut.Snapshot())
	})
	if err != nil {
		return err
	}

	m.dut.Tick(in)
	m.opCycles++

	return nil
}
