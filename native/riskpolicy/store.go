package riskpolicy

import (
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/core/events"
	"riskgov/core/types"
)

const (
	// EventTypePolicySet is emitted when a policy record is written.
	EventTypePolicySet = "riskpolicy.policy_set"
	// EventTypePolicyDisabled is emitted when a policy is switched off.
	EventTypePolicyDisabled = "riskpolicy.policy_disabled"
	// EventTypeGroupSet is emitted when a contract is assigned to a group.
	EventTypeGroupSet = "riskpolicy.group_set"
)

var (
	errStoreStateNotConfigured = errors.New("riskpolicy: state not configured")
	// ErrNotConfigurator rejects policy and group administration from any
	// identity other than the configurator.
	ErrNotConfigurator = errors.New("riskpolicy: caller is not the configurator")
	// ErrEmptyGroup rejects blank group labels.
	ErrEmptyGroup = errors.New("riskpolicy: group label must not be empty")
)

type storeState interface {
	PolicyPut(key common.Hash, policy *Policy) error
	PolicyGet(key common.Hash) (*Policy, bool, error)
	GroupSet(contract common.Address, group string) error
	GroupGet(contract common.Address) (string, bool, error)
}

// Store owns the policy records and the contract-to-group assignments. All
// writes are restricted to the configurator identity; records are never
// deleted, only overwritten or disabled.
type Store struct {
	state        storeState
	emitter      events.Emitter
	configurator common.Address
	nowFn        func() time.Time
}

// NewStore constructs a policy store administered by the given configurator.
func NewStore(configurator common.Address) *Store {
	return &Store{
		emitter:      events.NoopEmitter{},
		configurator: configurator,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the store to the state backend providing persistence helpers.
func (s *Store) SetState(state storeState) { s.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (s *Store) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	s.nowFn = now
}

// Configurator returns the identity allowed to administer policies and groups.
func (s *Store) Configurator() common.Address { return s.configurator }

func (s *Store) emit(event *types.Event) {
	if s == nil || s.emitter == nil || event == nil {
		return
	}
	s.emitter.Emit(policyEvent{evt: event})
}

// SetPolicy overwrites the entire policy record for the key. The enabled flag
// is forced on regardless of input; callers re-enabling a policy must
// re-supply the reference-point state if they want it preserved.
func (s *Store) SetPolicy(caller common.Address, key common.Hash, policy *Policy) error {
	if s == nil || s.state == nil {
		return errStoreStateNotConfigured
	}
	if caller != s.configurator {
		return ErrNotConfigurator
	}
	record := policy.Clone()
	if record == nil {
		record = &Policy{}
	}
	record.EnsureDefaults()
	record.Enabled = true
	if err := s.state.PolicyPut(key, record); err != nil {
		return err
	}
	s.emit(newPolicySetEvent(key, record))
	return nil
}

// DisablePolicy switches the policy off in place, preserving every other
// field so the record can be re-enabled later via SetPolicy. Disabling an
// unknown key persists a disabled zero record, matching the tombstone
// discipline of the store.
func (s *Store) DisablePolicy(caller common.Address, key common.Hash) error {
	if s == nil || s.state == nil {
		return errStoreStateNotConfigured
	}
	if caller != s.configurator {
		return ErrNotConfigurator
	}
	record, ok, err := s.state.PolicyGet(key)
	if err != nil {
		return err
	}
	if !ok || record == nil {
		record = &Policy{}
		record.EnsureDefaults()
	}
	record.Enabled = false
	if err := s.state.PolicyPut(key, record); err != nil {
		return err
	}
	s.emit(newPolicyDisabledEvent(key))
	return nil
}

// Policy returns the stored record for the key, if any.
func (s *Store) Policy(key common.Hash) (*Policy, bool, error) {
	if s == nil || s.state == nil {
		return nil, false, errStoreStateNotConfigured
	}
	record, ok, err := s.state.PolicyGet(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record.Clone(), true, nil
}

// SetGroup assigns a group label to a contract address. Changing a contract's
// group changes which policies govern it from that point on.
func (s *Store) SetGroup(caller common.Address, contract common.Address, group string) error {
	if s == nil || s.state == nil {
		return errStoreStateNotConfigured
	}
	if caller != s.configurator {
		return ErrNotConfigurator
	}
	if strings.TrimSpace(group) == "" {
		return ErrEmptyGroup
	}
	if err := s.state.GroupSet(contract, group); err != nil {
		return err
	}
	s.emit(newGroupSetEvent(contract, group))
	return nil
}

// Group returns the group label assigned to the contract, or the empty string
// when unset.
func (s *Store) Group(contract common.Address) (string, error) {
	if s == nil || s.state == nil {
		return "", errStoreStateNotConfigured
	}
	group, ok, err := s.state.GroupGet(contract)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return group, nil
}
