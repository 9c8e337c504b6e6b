package controller

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/riskpolicy"
	"riskgov/native/timelock"
)

var (
	errNotWired = errors.New("controller: engine dependencies not configured")
	// ErrParameterChecksFailed is the single rejection surfaced for "no
	// policy", "wrong caller", and "value out of bounds" alike. The audit
	// trail, not the error, is where operators distinguish the cases.
	ErrParameterChecksFailed = errors.New("controller: parameter checks failed")
	// ErrUnknownContract rejects proposals naming collaborators the
	// controller has no registered read surface for.
	ErrUnknownContract = errors.New("controller: contract not registered")
	// ErrNotConfigurator rejects configurator-only administration.
	ErrNotConfigurator = errors.New("controller: caller is not the configurator")
)

type engineState interface {
	AuditAppend(record *AuditRecord) (uint64, error)
	VetoAdminPut(addr common.Address) error
}

// Engine is the parameter-change dispatcher: the per-parameter entry points
// that read live values from collaborators, gate transitions through the
// policy evaluator, and enqueue accepted changes into the timelock.
type Engine struct {
	store     *riskpolicy.Store
	evaluator *riskpolicy.Evaluator
	queue     *timelock.Engine
	state     engineState
	nowFn     func() time.Time

	self         common.Address
	configurator common.Address

	pools          map[common.Address]Pool
	creditManagers map[common.Address]CreditManager
	facades        map[common.Address]CreditFacade
	quotaKeepers   map[common.Address]QuotaKeeper
	gauges         map[common.Address]Gauge
}

// NewEngine constructs a dispatcher. The self address is the identity the
// controller's own getters are registered under for sanity-check static
// calls; the configurator is the identity allowed to administer policies,
// groups, and the veto admin.
func NewEngine(self, configurator common.Address, store *riskpolicy.Store, evaluator *riskpolicy.Evaluator, queue *timelock.Engine) *Engine {
	return &Engine{
		store:          store,
		evaluator:      evaluator,
		queue:          queue,
		nowFn:          func() time.Time { return time.Now().UTC() },
		self:           self,
		configurator:   configurator,
		pools:          make(map[common.Address]Pool),
		creditManagers: make(map[common.Address]CreditManager),
		facades:        make(map[common.Address]CreditFacade),
		quotaKeepers:   make(map[common.Address]QuotaKeeper),
		gauges:         make(map[common.Address]Gauge),
	}
}

// SetState wires the engine to the state backend providing the audit log.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// Self returns the address the controller's getters answer sanity checks on.
func (e *Engine) Self() common.Address { return e.self }

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.evaluator == nil || e.queue == nil {
		return errNotWired
	}
	return nil
}

func (e *Engine) audit(event AuditEvent, actor common.Address, txHash common.Hash, parameter, details string) error {
	if e.state == nil {
		return nil
	}
	_, err := e.state.AuditAppend(&AuditRecord{
		Timestamp: e.nowFn(),
		Event:     event,
		Actor:     actor,
		TxHash:    txHash,
		Parameter: parameter,
		Details:   details,
	})
	return err
}

// --- administrative surface (configurator-only) ---

// SetPolicy writes a policy record and audits the action.
func (e *Engine) SetPolicy(caller common.Address, key common.Hash, policy *riskpolicy.Policy) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.store.SetPolicy(caller, key, policy); err != nil {
		return err
	}
	return e.audit(AuditEventPolicySet, caller, key, "", "")
}

// DisablePolicy switches a policy off and audits the action.
func (e *Engine) DisablePolicy(caller common.Address, key common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.store.DisablePolicy(caller, key); err != nil {
		return err
	}
	return e.audit(AuditEventPolicyDisabled, caller, key, "", "")
}

// SetGroup assigns a group label to a contract and audits the action.
func (e *Engine) SetGroup(caller common.Address, contract common.Address, group string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.store.SetGroup(caller, contract, group); err != nil {
		return err
	}
	return e.audit(AuditEventGroupSet, caller, common.Hash{}, "", fmt.Sprintf("%s -> %s", contract.Hex(), group))
}

// SetVetoAdmin replaces the identity empowered to cancel queued transactions.
func (e *Engine) SetVetoAdmin(caller common.Address, addr common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if caller != e.configurator {
		return ErrNotConfigurator
	}
	// Persist before mutating the queue so a rotation survives a restart.
	if e.state != nil {
		if err := e.state.VetoAdminPut(addr); err != nil {
			return err
		}
	}
	e.queue.SetVetoAdmin(addr)
	return e.audit(AuditEventVetoAdminSet, caller, common.Hash{}, "", addr.Hex())
}

// Policy returns the stored policy for the key, if any.
func (e *Engine) Policy(key common.Hash) (*riskpolicy.Policy, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	return e.store.Policy(key)
}

// Group returns the group label assigned to the contract.
func (e *Engine) Group(contract common.Address) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.store.Group(contract)
}

// --- queue surface ---

// Cancel vetoes a queued transaction.
func (e *Engine) Cancel(caller common.Address, hash common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.queue.Cancel(caller, hash); err != nil {
		return err
	}
	return e.audit(AuditEventCancelled, caller, hash, "", "")
}

// Execute dispatches a matured queued transaction.
func (e *Engine) Execute(caller common.Address, hash common.Hash) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.queue.Execute(caller, hash); err != nil {
		return err
	}
	return e.audit(AuditEventExecuted, caller, hash, "", "")
}

// QueuedTransaction returns the stored record for the hash, if any.
func (e *Engine) QueuedTransaction(hash common.Hash) (*timelock.QueuedTransaction, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	return e.queue.Transaction(hash)
}

// --- shared dispatch plumbing ---

// policyDelay loads the queue delay configured on the policy backing the key.
func (e *Engine) policyDelay(key common.Hash) (time.Duration, error) {
	policy, ok, err := e.store.Policy(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrParameterChecksFailed
	}
	return policy.Delay, nil
}

func (e *Engine) keyFor(contract common.Address, name string) (common.Hash, error) {
	group, err := e.store.Group(contract)
	if err != nil {
		return common.Hash{}, err
	}
	return riskpolicy.DeriveKey(group, name), nil
}

func (e *Engine) keyForPair(a, b common.Address, name string) (common.Hash, error) {
	groupA, err := e.store.Group(a)
	if err != nil {
		return common.Hash{}, err
	}
	groupB, err := e.store.Group(b)
	if err != nil {
		return common.Hash{}, err
	}
	return riskpolicy.DeriveKey2(groupA, groupB, name), nil
}

// checkAndDelay runs the policy evaluation for the derived key and, on
// acceptance, returns the policy's configured delay.
func (e *Engine) checkAndDelay(key common.Hash, oldValue, newValue *big.Int, caller common.Address) (time.Duration, error) {
	ok, err := e.evaluator.CheckPolicy(key, oldValue, newValue, caller)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrParameterChecksFailed
	}
	return e.policyDelay(key)
}
