package riskpolicy

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/core/events"
)

type mockPolicyState struct {
	policies map[common.Hash]*Policy
	groups   map[common.Address]string
}

func newMockPolicyState() *mockPolicyState {
	return &mockPolicyState{
		policies: make(map[common.Hash]*Policy),
		groups:   make(map[common.Address]string),
	}
}

func (m *mockPolicyState) PolicyPut(key common.Hash, policy *Policy) error {
	m.policies[key] = policy.Clone()
	return nil
}

func (m *mockPolicyState) PolicyGet(key common.Hash) (*Policy, bool, error) {
	policy, ok := m.policies[key]
	if !ok {
		return nil, false, nil
	}
	return policy.Clone(), true, nil
}

func (m *mockPolicyState) GroupSet(contract common.Address, group string) error {
	m.groups[contract] = group
	return nil
}

func (m *mockPolicyState) GroupGet(contract common.Address) (string, bool, error) {
	group, ok := m.groups[contract]
	return group, ok, nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

var (
	configurator = common.HexToAddress("0xc0")
	riskAdmin    = common.HexToAddress("0xad")
	outsider     = common.HexToAddress("0x99")
)

func newTestStore(state *mockPolicyState) *Store {
	store := NewStore(configurator)
	store.SetState(state)
	return store
}

func TestSetPolicyRequiresConfigurator(t *testing.T) {
	store := newTestStore(newMockPolicyState())
	key := DeriveKey("POOL", "TOTAL_DEBT_LIMIT")

	if err := store.SetPolicy(outsider, key, &Policy{Admin: riskAdmin}); err != ErrNotConfigurator {
		t.Fatalf("expected configurator rejection, got %v", err)
	}
}

func TestSetPolicyForcesEnabled(t *testing.T) {
	state := newMockPolicyState()
	store := newTestStore(state)
	emitter := &captureEmitter{}
	store.SetEmitter(emitter)
	key := DeriveKey("POOL", "TOTAL_DEBT_LIMIT")

	input := &Policy{Enabled: false, Admin: riskAdmin, Delay: time.Hour, Flags: CheckMaxValue, MaxValue: big.NewInt(100)}
	if err := store.SetPolicy(configurator, key, input); err != nil {
		t.Fatalf("set policy: %v", err)
	}

	stored, ok, err := store.Policy(key)
	if err != nil || !ok {
		t.Fatalf("expected stored policy, ok=%v err=%v", ok, err)
	}
	if !stored.Enabled {
		t.Fatalf("expected enabled flag to be forced on")
	}
	if stored.Admin != riskAdmin || stored.Delay != time.Hour {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	evt := emitter.events[0].(policyEvent).Event()
	if evt.Type != EventTypePolicySet {
		t.Fatalf("unexpected event type: %s", evt.Type)
	}
	if evt.Attributes["key"] != key.Hex() {
		t.Fatalf("unexpected event key: %s", evt.Attributes["key"])
	}
}

func TestDisablePolicyPreservesFields(t *testing.T) {
	store := newTestStore(newMockPolicyState())
	key := DeriveKey("POOL", "WITHDRAW_FEE")

	if err := store.SetPolicy(configurator, key, &Policy{Admin: riskAdmin, Flags: CheckMinValue, MinValue: big.NewInt(5)}); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	if err := store.DisablePolicy(configurator, key); err != nil {
		t.Fatalf("disable policy: %v", err)
	}

	stored, ok, _ := store.Policy(key)
	if !ok {
		t.Fatalf("expected record to survive disable")
	}
	if stored.Enabled {
		t.Fatalf("expected policy disabled")
	}
	if stored.Admin != riskAdmin || stored.MinValue.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("disable must not clear other fields: %+v", stored)
	}

	// Re-issuing SetPolicy re-enables.
	if err := store.SetPolicy(configurator, key, stored); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	stored, _, _ = store.Policy(key)
	if !stored.Enabled {
		t.Fatalf("expected re-enabled policy")
	}
}

func TestDisableUnknownPolicyWritesTombstone(t *testing.T) {
	state := newMockPolicyState()
	store := newTestStore(state)
	key := DeriveKey("POOL", "UNSET")

	if err := store.DisablePolicy(configurator, key); err != nil {
		t.Fatalf("disable unknown: %v", err)
	}
	stored, ok, _ := store.Policy(key)
	if !ok || stored.Enabled {
		t.Fatalf("expected disabled tombstone record, ok=%v", ok)
	}
}

func TestSetGroupAndLookup(t *testing.T) {
	store := newTestStore(newMockPolicyState())
	contract := common.HexToAddress("0x01")

	if err := store.SetGroup(outsider, contract, "CM"); err != ErrNotConfigurator {
		t.Fatalf("expected configurator rejection, got %v", err)
	}
	if err := store.SetGroup(configurator, contract, "  "); err != ErrEmptyGroup {
		t.Fatalf("expected empty group rejection, got %v", err)
	}
	if err := store.SetGroup(configurator, contract, "CM"); err != nil {
		t.Fatalf("set group: %v", err)
	}

	group, err := store.Group(contract)
	if err != nil || group != "CM" {
		t.Fatalf("unexpected group: %q err=%v", group, err)
	}
	group, err = store.Group(common.HexToAddress("0x02"))
	if err != nil || group != "" {
		t.Fatalf("expected empty group for unknown contract, got %q err=%v", group, err)
	}
}

func TestDeriveKeyOrderSensitive(t *testing.T) {
	if DeriveKey2("A", "B", "TOKEN_LIMIT") == DeriveKey2("B", "A", "TOKEN_LIMIT") {
		t.Fatalf("expected order-sensitive derivation")
	}
	if DeriveKey("A", "X") == DeriveKey("AX", "") {
		t.Fatalf("expected framing to prevent aliasing")
	}
	if DeriveKey("G", "N") != DeriveKey("G", "N") {
		t.Fatalf("expected deterministic derivation")
	}
}
