package timelock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"riskgov/core/events"
	"riskgov/core/types"
	"riskgov/native/ethcall"
)

const (
	// EventTypeQueued is emitted when a transaction enters the queue.
	EventTypeQueued = "timelock.queued"
	// EventTypeCancelled is emitted when the veto admin cancels a transaction.
	EventTypeCancelled = "timelock.cancelled"
	// EventTypeExecuted is emitted when a transaction is dispatched.
	EventTypeExecuted = "timelock.executed"
)

var (
	errStateNotConfigured   = errors.New("timelock: state not configured")
	errBackendNotConfigured = errors.New("timelock: call backend not configured")
	// ErrNotQueued rejects execution of unknown or already-resolved hashes.
	ErrNotQueued = errors.New("timelock: transaction not queued")
	// ErrNotExecutor rejects execution by anyone but the original queuer.
	ErrNotExecutor = errors.New("timelock: caller is not the executor")
	// ErrOutsideTimeWindow rejects execution before eta or past the grace
	// deadline.
	ErrOutsideTimeWindow = errors.New("timelock: outside execution window")
	// ErrParameterChangedAfterQueue rejects execution when the sanity check
	// detects the parameter drifted since queue time.
	ErrParameterChangedAfterQueue = errors.New("timelock: parameter changed after queue")
	// ErrExecutionReverted wraps a failed dispatch to the target.
	ErrExecutionReverted = errors.New("timelock: execution reverted")
	// ErrNotVetoAdmin rejects cancellation from anyone but the veto admin.
	ErrNotVetoAdmin = errors.New("timelock: caller is not the veto admin")
)

type queueState interface {
	TimelockPut(hash common.Hash, tx *QueuedTransaction) error
	TimelockGet(hash common.Hash) (*QueuedTransaction, bool, error)
}

// Engine owns the deferred-execution queue. Queueing performs no validation
// of its own; callers gate admission through the policy evaluator first.
// Queue, Cancel and Execute serialize on an internal mutex so concurrent
// callers cannot race the check-then-act on the queued flag.
type Engine struct {
	mu        sync.Mutex
	state     queueState
	backend   ethcall.Backend
	emitter   events.Emitter
	nowFn     func() time.Time
	self      common.Address
	vetoAdmin common.Address
}

// NewEngine constructs a timelock engine. The self address is the target used
// for sanity-check static calls at execute time.
func NewEngine(self common.Address) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		self:    self,
	}
}

// SetState wires the engine to the state backend providing persistence helpers.
func (e *Engine) SetState(state queueState) { e.state = state }

// SetBackend wires the engine to the call dispatcher used at execute time.
func (e *Engine) SetBackend(backend ethcall.Backend) { e.backend = backend }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// SetVetoAdmin configures the identity allowed to cancel queued transactions.
func (e *Engine) SetVetoAdmin(addr common.Address) { e.vetoAdmin = addr }

// VetoAdmin returns the configured veto identity.
func (e *Engine) VetoAdmin() common.Address { return e.vetoAdmin }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(timelockEvent{evt: event})
}

// TxHash derives the content hash identifying a queued transaction. Two
// structurally identical proposals queued at different times hash differently
// because eta differs; identical inputs with the same eta collide and
// overwrite.
func TxHash(executor, target common.Address, signature string, data []byte, eta time.Time) common.Hash {
	payload := fmt.Sprintf("timelock|%s|%s|%d:%s|%d:%s|%d",
		executor.Hex(),
		target.Hex(),
		len(signature), signature,
		len(data), hex.EncodeToString(data),
		eta.Unix(),
	)
	return common.BytesToHash(ethcrypto.Keccak256([]byte(payload)))
}

// Queue stores a pending call with eta = now + delay and returns its hash.
// The optional sanity check captures a read-and-compare staleness guard
// evaluated again at execute time.
func (e *Engine) Queue(executor, target common.Address, signature string, data []byte, delay time.Duration, sanityValue *big.Int, sanityCallData []byte) (common.Hash, error) {
	if e == nil || e.state == nil {
		return common.Hash{}, errStateNotConfigured
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	eta := e.nowFn().Add(delay)
	hash := TxHash(executor, target, signature, data, eta)
	record := &QueuedTransaction{
		Queued:              true,
		Executor:            executor,
		Target:              target,
		Eta:                 eta,
		Signature:           signature,
		Data:                append([]byte(nil), data...),
		SanityCheckCallData: append([]byte(nil), sanityCallData...),
	}
	if sanityValue != nil {
		record.SanityCheckValue = new(big.Int).Set(sanityValue)
	}
	if err := e.state.TimelockPut(hash, record); err != nil {
		return common.Hash{}, err
	}
	e.emit(newQueuedEvent(hash, record))
	return hash, nil
}

// Cancel clears the queued flag unconditionally. Cancelling an unknown or
// already-resolved hash is a no-op so the veto admin can always fire without
// pre-checking state.
func (e *Engine) Cancel(caller common.Address, hash common.Hash) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if caller != e.vetoAdmin {
		return ErrNotVetoAdmin
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	record, ok, err := e.state.TimelockGet(hash)
	if err != nil {
		return err
	}
	if !ok || record == nil || !record.Queued {
		return nil
	}
	record.Queued = false
	if err := e.state.TimelockPut(hash, record); err != nil {
		return err
	}
	e.emit(newCancelledEvent(hash, caller))
	return nil
}

// Execute dispatches a matured transaction to its target. Only the original
// executor may call it, only inside [eta, eta+GracePeriod], and only while the
// sanity check (if any) still matches the value captured at queue time.
func (e *Engine) Execute(caller common.Address, hash common.Hash) error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	if e.backend == nil {
		return errBackendNotConfigured
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	record, ok, err := e.state.TimelockGet(hash)
	if err != nil {
		return err
	}
	if !ok || record == nil || !record.Queued {
		return ErrNotQueued
	}
	if caller != record.Executor {
		return ErrNotExecutor
	}
	now := e.nowFn()
	if now.Before(record.Eta) || now.After(record.Eta.Add(GracePeriod)) {
		return ErrOutsideTimeWindow
	}
	if len(record.SanityCheckCallData) > 0 {
		result, err := e.backend.StaticCall(e.self, record.SanityCheckCallData)
		if err != nil {
			return fmt.Errorf("timelock: sanity check failed: %w", err)
		}
		live, err := ethcall.DecodeUint(result)
		if err != nil {
			return fmt.Errorf("timelock: sanity check result: %w", err)
		}
		expected := record.SanityCheckValue
		if expected == nil {
			expected = big.NewInt(0)
		}
		if live.Cmp(expected) != 0 {
			return ErrParameterChangedAfterQueue
		}
	}

	// The queued flag is cleared before the external call so a later
	// execute observes the transaction as resolved even if the process
	// dies mid-dispatch.
	record.Queued = false
	if err := e.state.TimelockPut(hash, record); err != nil {
		return err
	}

	calldata := record.Data
	if record.Signature != "" {
		sel := ethcall.Selector(record.Signature)
		calldata = append(sel[:], record.Data...)
	}
	if err := e.backend.Call(record.Target, calldata); err != nil {
		// A failed dispatch leaves the transaction queued, mirroring the
		// all-or-nothing failure semantics of the call surface.
		record.Queued = true
		if putErr := e.state.TimelockPut(hash, record); putErr != nil {
			return putErr
		}
		return fmt.Errorf("%w: %s", ErrExecutionReverted, err)
	}

	e.emit(newExecutedEvent(hash, record))
	return nil
}

// Transaction returns the stored record for the hash, if any.
func (e *Engine) Transaction(hash common.Hash) (*QueuedTransaction, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errStateNotConfigured
	}
	record, ok, err := e.state.TimelockGet(hash)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record.Clone(), true, nil
}
