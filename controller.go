// Package aesbus models a byte-streamed AES-256 encryption engine behind a
// small valid/ready transaction bus, one clock edge at a time.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════
// AES BUS ENGINE - Go Reference Model
// ════════════════════════════════════════════════════════════════════════════════════════════════
//
// BLOCK DIAGRAM:
// ──────────────
//
//	             din/valid_in/ready_in
//	                     │
//	             ┌───────▼────────┐        ┌────────────┐
//	             │ BusController  ├───────►│ KeyLoader  ├──key──┐
//	             │  (this file)   │        └────────────┘       │
//	             │                │        ┌────────────┐       ▼
//	             │                ├──adv──►│ RoundKeyGen├──rk─┐
//	             │                │        └────────────┘     │
//	             │                │        ┌────────────┐     ▼
//	             │                ├──adv──►│RoundCounter├─► Round()
//	             │                │        └────────────┘     │
//	             │                │        ┌────────────┐     │
//	             │                ├───────►│ StateReg   │◄────┘ dnext/wen
//	             └───────┬────────┘        └────────────┘
//	                     │
//	   data_out/data_valid/data_ready, ack_valid/ack_ready
//
// CYCLE MODEL:
// ────────────
// Outputs() is a pure function of registered state. Tick() samples the
// inputs together with the pre-edge outputs, computes every sub-unit's
// inputs, then commits all registers at once.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════
package aesbus

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/maemowong/aesbus/proto/counter"
	"github.com/maemowong/aesbus/proto/keyload"
	"github.com/maemowong/aesbus/proto/keysched"
	"github.com/maemowong/aesbus/proto/rijndael"
	"github.com/maemowong/aesbus/proto/state"
)

// State is the BusController FSM state.
type State uint8

const (
	StateIdle State = iota
	StateDecodeHeader
	StateLoadKey
	StateLoadText
	StateRunRounds
	StateTxResult
	StateAck
)

// String returns the state name as it appears in waveforms.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDecodeHeader:
		return "DECODE_HEADER"
	case StateLoadKey:
		return "LOAD_KEY"
	case StateLoadText:
		return "LOAD_TEXT"
	case StateRunRounds:
		return "RUN_ROUNDS"
	case StateTxResult:
		return "TX_RESULT"
	case StateAck:
		return "ACK"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// BusInputs are the top-level input pins.
type BusInputs struct {
	Reset bool

	// Input channel (master to engine).
	DataIn  byte
	ValidIn bool

	// Output channel (engine to master).
	DataReady bool

	// Completion channel.
	AckReady bool
}

// BusOutputs are the top-level output pins.
type BusOutputs struct {
	ReadyIn   bool
	DataOut   byte
	DataValid bool
	AckValid  bool
}

// Snapshot is the observable register state at one cycle.
type Snapshot struct {
	Cycle   uint64
	State   State
	Outputs BusOutputs

	Round         uint8
	RoundFinal    bool
	RoundDone     bool
	RoundKeyValid bool

	KeyReady  bool
	KeyBytes  int
	TextReady bool
	TextBytes int

	// OutIndex is the next result byte to be offered in TX_RESULT.
	OutIndex int

	// ResultReady is set when a HASH run completed since the last reset or
	// text load.
	ResultReady bool

	// Block is the StateRegister contents.
	Block rijndael.Block

	// LastTransaction is the most recently completed transaction.
	LastTransaction fn.Option[Transaction]
}

// Observer receives controller events. Callbacks run synchronously inside
// Tick and must not call back into the controller.
type Observer interface {
	// TransactionDone fires on the edge a transaction completes.
	TransactionDone(tx Transaction)

	// TransactionDropped fires when a header with reserved bits set has
	// been consumed together with its address.
	TransactionDropped(h Header, address uint32)

	// RoundCommitted fires on each datapath write of a HASH run.
	RoundCommitted(round uint8, roundKey, next rijndael.Block)

	// Cycle fires after every edge with the post-edge snapshot. stalled
	// is set when a handshake was pending on that edge but did not
	// complete.
	Cycle(snap Snapshot, stalled bool)
}

// NopObserver implements Observer with empty methods. Embed it to implement
// only the callbacks of interest.
type NopObserver struct{}

func (NopObserver) TransactionDone(Transaction) {}

func (NopObserver) TransactionDropped(Header, uint32) {}

func (NopObserver) RoundCommitted(uint8, rijndael.Block, rijndael.Block) {}

func (NopObserver) Cycle(Snapshot, bool) {}

// Controller is the top-level bus engine. The zero value is a controller
// that has just come out of reset.
//
// Hardware: 3-bit FSM + 24-bit address shift register + 4-bit output index
//
//	+ sub-units (KeyLoader, RoundKeyGen, RoundCounter, StateRegister)
type Controller struct {
	fsm State

	keyLoader keyload.KeyLoader
	keyGen    keysched.RoundKeyGen
	counter   counter.RoundCounter
	stateReg  state.Register

	header    Header
	address   uint32
	addrCount uint8

	// primed is set once RoundKeyGen has been asked for round key 0.
	primed bool

	outIdx      uint8
	ackValid    bool
	resultReady bool

	cycles uint64
	last   fn.Option[Transaction]

	observers []Observer
}

// NewController returns a controller in its reset state.
func NewController(observers ...Observer) *Controller {
	return &Controller{
		observers: observers,
	}
}

// AddObserver attaches an observer.
func (c *Controller) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// State returns the current FSM state.
func (c *Controller) State() State {
	return c.fsm
}

// Outputs drives the output pins from registered state.
//
// Verilog equivalent:
//
//	always_comb begin
//	  ready_in   = (fsm == IDLE) | (fsm == DECODE_HEADER) |
//	               (fsm == LOAD_KEY  & ~kl_ready) |
//	               (fsm == LOAD_TEXT & ~st_ready);
//	  data_valid = (fsm == TX_RESULT);
//	  data_out   = state[127 - 8*out_idx -: 8];
//	  ack_valid  = ack_q;
//	end
func (c *Controller) Outputs() BusOutputs {
	var out BusOutputs

	switch c.fsm {
	case StateIdle, StateDecodeHeader:
		out.ReadyIn = true

	case StateLoadKey:
		out.ReadyIn = !c.keyLoader.Ready()

	case StateLoadText:
		out.ReadyIn = !c.stateReg.Ready()

	case StateTxResult:
		out.DataValid = true
		out.DataOut = c.stateReg.State()[c.outIdx]
	}

	out.AckValid = c.ackValid

	return out
}

// Snapshot captures the observable state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Cycle:           c.cycles,
		State:           c.fsm,
		Outputs:         c.Outputs(),
		Round:           c.counter.Round(),
		RoundFinal:      c.counter.IsFinal(),
		RoundDone:       c.counter.Done(),
		RoundKeyValid:   c.keyGen.Valid(),
		KeyReady:        c.keyLoader.Ready(),
		KeyBytes:        c.keyLoader.Count(),
		TextReady:       c.stateReg.Ready(),
		TextBytes:       c.stateReg.Count(),
		OutIndex:        int(c.outIdx),
		ResultReady:     c.resultReady,
		Block:           c.stateReg.State(),
		LastTransaction: c.last,
	}
}

// Tick commits one rising clock edge.
func (c *Controller) Tick(in BusInputs) {
	if in.Reset {
		c.reset()
		c.cycles++
		c.notifyCycle(false)
		return
	}

	out := c.Outputs()
	accept := in.ValidIn && out.ReadyIn

	var (
		klIn = keyload.Inputs{}
		kgIn = keysched.Inputs{Key: c.keyLoader.Key()}
		ctIn = counter.Inputs{}
		srIn = state.Inputs{Mode: state.ModeLoad}

		next    = c.fsm
		stalled bool
	)

	switch c.fsm {
	case StateIdle:
		if accept {
			c.header = ParseHeader(in.DataIn)
			c.address = 0
			c.addrCount = 0
			next = StateDecodeHeader
		}

	case StateDecodeHeader:
		stalled = !in.ValidIn
		if !accept {
			break
		}

		c.address = c.address<<8 | uint32(in.DataIn)
		c.addrCount++
		if c.addrCount < AddressBytes {
			break
		}

		next = c.dispatch()
		if next == StateRunRounds {
			ctIn.Start = true
			kgIn.Restart = true
			c.primed = false
		}

	case StateLoadKey:
		if c.keyLoader.Ready() {
			c.complete(c.keyLoader.Key().Bytes())
			next = StateIdle
			break
		}

		stalled = !in.ValidIn
		klIn = keyload.Inputs{Din: in.DataIn, Valid: accept}

	case StateLoadText:
		if c.stateReg.Ready() {
			c.resultReady = false
			c.complete(c.stateReg.State().Bytes())
			next = StateIdle
			break
		}

		stalled = !in.ValidIn
		srIn = state.Inputs{
			Mode:  state.ModeLoad,
			Din:   in.DataIn,
			Valid: accept,
		}

	case StateRunRounds:
		srIn = state.Inputs{Mode: state.ModeDatapath}
		next = c.runRound(&kgIn, &ctIn, &srIn)

	case StateTxResult:
		if !in.DataReady {
			stalled = true
			break
		}

		c.outIdx++
		if int(c.outIdx) == rijndael.BlockSize {
			c.outIdx = 0
			next = StateAck
		}

	case StateAck:
		switch {
		case c.ackValid:
			c.ackValid = false
			c.complete(c.stateReg.State().Bytes())
			next = StateIdle

		case in.AckReady:
			c.ackValid = true

		default:
			stalled = true
		}
	}

	c.keyLoader.Tick(klIn)
	c.keyGen.Tick(kgIn)
	c.counter.Tick(ctIn)
	c.stateReg.Tick(srIn)

	if next != c.fsm {
		log.Debugf("Cycle %d: %v -> %v", c.cycles, c.fsm, next)
	}
	c.fsm = next
	c.cycles++

	log.Tracef("Cycle %d: in=%+v out=%v", c.cycles, in,
		logClosure(func() string {
			return fmt.Sprintf("%+v", c.Outputs())
		}))

	c.notifyCycle(stalled)
}

// dispatch picks the state that follows the last address byte.
func (c *Controller) dispatch() State {
	if !c.header.Valid() {
		log.Warnf("Dropping transaction: header %#02x has reserved "+
			"bits set (addr=%06x)", c.header.Byte(), c.address)

		for _, o := range c.observers {
			o.TransactionDropped(c.header, c.address)
		}

		return StateIdle
	}

	log.Debugf("Decoded %v addr=%06x", c.header, c.address)

	switch c.header.Opcode {
	case OpLoadKey:
		return StateLoadKey

	case OpLoadText:
		return StateLoadText

	case OpWriteResult:
		return StateTxResult

	default:
		return StateRunRounds
	}
}

// runRound drives one RUN_ROUNDS cycle.
//
// TIMING:
//
//	cycle 1      advance RoundKeyGen (RK0 appears next cycle)
//	cycle 2..16  commit Round(state, RK[r], r), advance counter, and request
//	             RK[r+1] unless r == 14
//	cycle 17     counter done: leave for IDLE holding the ciphertext
func (c *Controller) runRound(kgIn *keysched.Inputs, ctIn *counter.Inputs,
	srIn *state.Inputs) State {

	if c.counter.Done() {
		c.resultReady = true
		c.complete(nil)

		return StateIdle
	}

	if !c.primed {
		kgIn.Advance = true
		c.primed = true

		return StateRunRounds
	}

	c.keyGen.RoundKey().WhenSome(func(rk rijndael.Block) {
		round := c.counter.Round()
		dnext := rijndael.Round(c.stateReg.State(), rk, round)

		srIn.Dnext = dnext
		srIn.Wen = true
		ctIn.Advance = true
		kgIn.Advance = round < counter.FinalRound

		for _, o := range c.observers {
			o.RoundCommitted(round, rk, dnext)
		}
	})

	return StateRunRounds
}

// complete records the transaction that finishes on this edge.
func (c *Controller) complete(payload []byte) {
	tx := Transaction{
		Header:  c.header,
		Address: c.address,
		Payload: payload,
	}
	c.last = fn.Some(tx)

	log.Debugf("Transaction done: %v", tx)

	for _, o := range c.observers {
		o.TransactionDone(tx)
	}
}

// reset propagates rst_n to every sub-unit.
func (c *Controller) reset() {
	c.keyLoader.Tick(keyload.Inputs{Reset: true})
	c.keyGen.Tick(keysched.Inputs{Reset: true})
	c.counter.Tick(counter.Inputs{Reset: true})
	c.stateReg.Tick(state.Inputs{Reset: true})

	c.fsm = StateIdle
	c.header = Header{}
	c.address = 0
	c.addrCount = 0
	c.primed = false
	c.outIdx = 0
	c.ackValid = false
	c.resultReady = false
	c.last = fn.None[Transaction]()
}

func (c *Controller) notifyCycle(stalled bool) {
	if len(c.observers) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, o := range c.observers {
		o.Cycle(snap, stalled)
	}
}
