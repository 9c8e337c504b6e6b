package controller

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/ethcall"
	"riskgov/native/riskpolicy"
	"riskgov/native/timelock"
)

type mockState struct {
	policies  map[common.Hash]*riskpolicy.Policy
	groups    map[common.Address]string
	txs       map[common.Hash]*timelock.QueuedTransaction
	audit     []*AuditRecord
	auditErr  error
	vetoAdmin *common.Address
}

func newMockState() *mockState {
	return &mockState{
		policies: make(map[common.Hash]*riskpolicy.Policy),
		groups:   make(map[common.Address]string),
		txs:      make(map[common.Hash]*timelock.QueuedTransaction),
	}
}

func (m *mockState) PolicyPut(key common.Hash, policy *riskpolicy.Policy) error {
	m.policies[key] = policy.Clone()
	return nil
}

func (m *mockState) PolicyGet(key common.Hash) (*riskpolicy.Policy, bool, error) {
	policy, ok := m.policies[key]
	if !ok {
		return nil, false, nil
	}
	return policy.Clone(), true, nil
}

func (m *mockState) GroupSet(contract common.Address, group string) error {
	m.groups[contract] = group
	return nil
}

func (m *mockState) GroupGet(contract common.Address) (string, bool, error) {
	group, ok := m.groups[contract]
	return group, ok, nil
}

func (m *mockState) TimelockPut(hash common.Hash, tx *timelock.QueuedTransaction) error {
	m.txs[hash] = tx.Clone()
	return nil
}

func (m *mockState) TimelockGet(hash common.Hash) (*timelock.QueuedTransaction, bool, error) {
	tx, ok := m.txs[hash]
	if !ok {
		return nil, false, nil
	}
	return tx.Clone(), true, nil
}

func (m *mockState) AuditAppend(record *AuditRecord) (uint64, error) {
	if m.auditErr != nil {
		return 0, m.auditErr
	}
	record.Sequence = uint64(len(m.audit) + 1)
	m.audit = append(m.audit, record)
	return record.Sequence, nil
}

func (m *mockState) VetoAdminPut(addr common.Address) error {
	m.vetoAdmin = &addr
	return nil
}

func (m *mockState) auditEvents() []AuditEvent {
	events := make([]AuditEvent, 0, len(m.audit))
	for _, record := range m.audit {
		events = append(events, record.Event)
	}
	return events
}

type remoteCall struct {
	target   common.Address
	calldata []byte
}

type remoteBackend struct {
	calls   []remoteCall
	callErr error
}

func (b *remoteBackend) Call(target common.Address, calldata []byte) error {
	b.calls = append(b.calls, remoteCall{target: target, calldata: calldata})
	return b.callErr
}

func (b *remoteBackend) StaticCall(common.Address, []byte) ([]byte, error) {
	return nil, errors.New("remote reads not supported")
}

type mockPool struct {
	quotaKeeper common.Address
	borrowed    map[common.Address]*big.Int
	debtLimits  map[common.Address]*big.Int
	totalDebt   *big.Int
	withdrawFee *big.Int
}

func (m *mockPool) QuotaKeeper() (common.Address, error) { return m.quotaKeeper, nil }

func (m *mockPool) CreditManagerBorrowed(cm common.Address) (*big.Int, error) {
	if v, ok := m.borrowed[cm]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockPool) CreditManagerDebtLimit(cm common.Address) (*big.Int, error) {
	if v, ok := m.debtLimits[cm]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockPool) TotalDebtLimit() (*big.Int, error) { return new(big.Int).Set(m.totalDebt), nil }
func (m *mockPool) WithdrawFee() (*big.Int, error)    { return new(big.Int).Set(m.withdrawFee), nil }

type mockCreditManager struct {
	facade       common.Address
	configurator common.Address
	pool         common.Address
	thresholds   map[common.Address]uint16
}

func (m *mockCreditManager) CreditFacade() (common.Address, error)       { return m.facade, nil }
func (m *mockCreditManager) CreditConfigurator() (common.Address, error) { return m.configurator, nil }
func (m *mockCreditManager) Pool() (common.Address, error)               { return m.pool, nil }

func (m *mockCreditManager) LiquidationThreshold(token common.Address) (uint16, error) {
	return m.thresholds[token], nil
}

type mockCreditFacade struct {
	expiration      *big.Int
	blockMultiplier uint8
	minDebt         *big.Int
	maxDebt         *big.Int
}

func (m *mockCreditFacade) ExpirationDate() (*big.Int, error) {
	return new(big.Int).Set(m.expiration), nil
}

func (m *mockCreditFacade) MaxDebtPerBlockMultiplier() (uint8, error) { return m.blockMultiplier, nil }

func (m *mockCreditFacade) DebtLimits() (*big.Int, *big.Int, error) {
	return new(big.Int).Set(m.minDebt), new(big.Int).Set(m.maxDebt), nil
}

type mockQuotaKeeper struct {
	gauge  common.Address
	limits map[common.Address]*big.Int
	fees   map[common.Address]uint16
}

func (m *mockQuotaKeeper) Gauge() (common.Address, error) { return m.gauge, nil }

func (m *mockQuotaKeeper) TokenLimit(token common.Address) (*big.Int, error) {
	if v, ok := m.limits[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockQuotaKeeper) TokenQuotaIncreaseFee(token common.Address) (uint16, error) {
	return m.fees[token], nil
}

type mockGauge struct {
	rates map[common.Address][2]uint16
}

func (m *mockGauge) QuotaRateParams(token common.Address) (uint16, uint16, error) {
	r := m.rates[token]
	return r[0], r[1], nil
}

var (
	selfAddr          = common.HexToAddress("0x5e")
	configurator      = common.HexToAddress("0xc0")
	riskAdmin         = common.HexToAddress("0xad")
	outsider          = common.HexToAddress("0x99")
	vetoAdmin         = common.HexToAddress("0xbb")
	cmAddr            = common.HexToAddress("0x10")
	facadeAddr        = common.HexToAddress("0x11")
	poolAddr          = common.HexToAddress("0x12")
	keeperAddr        = common.HexToAddress("0x13")
	gaugeAddr         = common.HexToAddress("0x14")
	tokenAddr         = common.HexToAddress("0x20")
	creditConfigAddr  = common.HexToAddress("0x30")
	priceOracleAddr   = common.HexToAddress("0x40")
	adapterAddr       = common.HexToAddress("0x50")
)

type harness struct {
	now      time.Time
	state    *mockState
	engine   *Engine
	registry *ethcall.Registry
	remote   *remoteBackend
	pool     *mockPool
	cm       *mockCreditManager
	facade   *mockCreditFacade
	keeper   *mockQuotaKeeper
	gauge    *mockGauge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Unix(1_700_000_000, 0).UTC(), state: newMockState()}
	clock := func() time.Time { return h.now }

	store := riskpolicy.NewStore(configurator)
	store.SetState(h.state)
	evaluator := riskpolicy.NewEvaluator(store)
	evaluator.SetNowFunc(clock)

	queue := timelock.NewEngine(selfAddr)
	queue.SetState(h.state)
	queue.SetNowFunc(clock)
	queue.SetVetoAdmin(vetoAdmin)

	h.remote = &remoteBackend{}
	h.registry = ethcall.NewRegistry()
	h.registry.SetFallback(h.remote)
	queue.SetBackend(h.registry)

	h.engine = NewEngine(selfAddr, configurator, store, evaluator, queue)
	h.engine.SetState(h.state)
	h.engine.SetNowFunc(clock)
	h.engine.RegisterSelf(h.registry)

	h.pool = &mockPool{
		quotaKeeper: keeperAddr,
		borrowed:    map[common.Address]*big.Int{},
		debtLimits:  map[common.Address]*big.Int{cmAddr: big.NewInt(5_000_000)},
		totalDebt:   big.NewInt(10_000_000),
		withdrawFee: big.NewInt(100),
	}
	h.cm = &mockCreditManager{
		facade:       facadeAddr,
		configurator: creditConfigAddr,
		pool:         poolAddr,
		thresholds:   map[common.Address]uint16{tokenAddr: 9000},
	}
	h.facade = &mockCreditFacade{
		expiration:      big.NewInt(1_800_000_000),
		blockMultiplier: 4,
		minDebt:         big.NewInt(1_000),
		maxDebt:         big.NewInt(100_000),
	}
	h.keeper = &mockQuotaKeeper{
		gauge:  gaugeAddr,
		limits: map[common.Address]*big.Int{tokenAddr: big.NewInt(500_000)},
		fees:   map[common.Address]uint16{tokenAddr: 25},
	}
	h.gauge = &mockGauge{rates: map[common.Address][2]uint16{tokenAddr: {100, 5000}}}

	h.engine.RegisterPool(poolAddr, h.pool)
	h.engine.RegisterCreditManager(cmAddr, h.cm)
	h.engine.RegisterCreditFacade(facadeAddr, h.facade)
	h.engine.RegisterQuotaKeeper(keeperAddr, h.keeper)
	h.engine.RegisterGauge(gaugeAddr, h.gauge)

	for contract, group := range map[common.Address]string{
		cmAddr:          "CM_WSTETH",
		poolAddr:        "POOL_USDC",
		tokenAddr:       "TOKEN_WSTETH",
		priceOracleAddr: "PRICE_ORACLE",
	} {
		if err := h.engine.SetGroup(configurator, contract, group); err != nil {
			t.Fatalf("set group for %s: %v", contract.Hex(), err)
		}
	}
	return h
}

func (h *harness) setPolicy(t *testing.T, key common.Hash, policy *riskpolicy.Policy) {
	t.Helper()
	if err := h.engine.SetPolicy(configurator, key, policy); err != nil {
		t.Fatalf("set policy: %v", err)
	}
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func adminPolicy(delay time.Duration) *riskpolicy.Policy {
	return &riskpolicy.Policy{Admin: riskAdmin, Delay: delay}
}

func TestSetExpirationDateLifecycle(t *testing.T) {
	h := newHarness(t)
	newExpiration := big.NewInt(1_900_000_000)

	if _, err := h.engine.SetExpirationDate(riskAdmin, cmAddr, newExpiration); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected checks-failed without a policy, got %v", err)
	}

	key := riskpolicy.DeriveKey("CM_WSTETH", ParamExpirationDate)
	policy := adminPolicy(2 * 24 * time.Hour)
	policy.Flags = riskpolicy.CheckExactValue
	policy.ExactValue = new(big.Int).Set(newExpiration)
	h.setPolicy(t, key, policy)

	if _, err := h.engine.SetExpirationDate(outsider, cmAddr, newExpiration); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection for non-admin caller, got %v", err)
	}
	if _, err := h.engine.SetExpirationDate(riskAdmin, cmAddr, big.NewInt(1_850_000_000)); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection for non-exact value, got %v", err)
	}

	h.pool.borrowed[cmAddr] = big.NewInt(42)
	if _, err := h.engine.SetExpirationDate(riskAdmin, cmAddr, newExpiration); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection while debt is outstanding, got %v", err)
	}
	h.pool.borrowed[cmAddr] = big.NewInt(0)

	hash, err := h.engine.SetExpirationDate(riskAdmin, cmAddr, newExpiration)
	if err != nil {
		t.Fatalf("queue expiration change: %v", err)
	}
	tx, ok, err := h.engine.QueuedTransaction(hash)
	if err != nil || !ok {
		t.Fatalf("load queued tx: ok=%v err=%v", ok, err)
	}
	if !tx.Queued {
		t.Fatalf("transaction not marked queued")
	}
	if tx.Executor != riskAdmin || tx.Target != creditConfigAddr {
		t.Fatalf("unexpected executor/target: %s %s", tx.Executor.Hex(), tx.Target.Hex())
	}
	if tx.Signature != "setExpirationDate(uint40)" {
		t.Fatalf("unexpected signature %q", tx.Signature)
	}
	if wantEta := h.now.Add(2 * 24 * time.Hour); !tx.Eta.Equal(wantEta) {
		t.Fatalf("eta = %v, want %v", tx.Eta, wantEta)
	}
	if tx.SanityCheckValue.Cmp(big.NewInt(1_800_000_000)) != 0 {
		t.Fatalf("sanity value = %s", tx.SanityCheckValue)
	}

	if err := h.engine.Execute(riskAdmin, hash); !errors.Is(err, timelock.ErrOutsideTimeWindow) {
		t.Fatalf("expected premature execution rejection, got %v", err)
	}

	h.advance(2*24*time.Hour + time.Minute)
	if err := h.engine.Execute(riskAdmin, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(h.remote.calls) != 1 {
		t.Fatalf("remote calls = %d, want 1", len(h.remote.calls))
	}
	call := h.remote.calls[0]
	if call.target != creditConfigAddr {
		t.Fatalf("dispatched to %s", call.target.Hex())
	}
	wantData := ethcall.Pack("setExpirationDate(uint40)", mustEncodeUint(t, newExpiration))
	if len(call.calldata) != len(wantData) || string(call.calldata) != string(wantData) {
		t.Fatalf("calldata mismatch")
	}
	tx, _, _ = h.engine.QueuedTransaction(hash)
	if tx.Queued {
		t.Fatalf("transaction still queued after execution")
	}

	events := h.state.auditEvents()
	want := []AuditEvent{
		AuditEventGroupSet, AuditEventGroupSet, AuditEventGroupSet, AuditEventGroupSet,
		AuditEventPolicySet, AuditEventQueued, AuditEventExecuted,
	}
	if len(events) != len(want) {
		t.Fatalf("audit events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("audit[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestExecuteSanityDriftAfterQueueing(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey("POOL_USDC", ParamTotalDebtLimit)
	h.setPolicy(t, key, adminPolicy(24*time.Hour))

	hash, err := h.engine.SetTotalDebtLimit(riskAdmin, poolAddr, big.NewInt(20_000_000))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	// Value drifts underneath the queued proposal.
	h.pool.totalDebt = big.NewInt(11_000_000)
	h.advance(24*time.Hour + time.Minute)
	if err := h.engine.Execute(riskAdmin, hash); !errors.Is(err, timelock.ErrParameterChangedAfterQueue) {
		t.Fatalf("expected staleness rejection, got %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if !tx.Queued {
		t.Fatalf("stale rejection must not consume the transaction")
	}

	h.pool.totalDebt = big.NewInt(10_000_000)
	if err := h.engine.Execute(riskAdmin, hash); err != nil {
		t.Fatalf("execute after restore: %v", err)
	}
}

func TestSetCreditManagerDebtLimitUsesPairKey(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey2("POOL_USDC", "CM_WSTETH", ParamCreditManagerDebtLimit)
	h.setPolicy(t, key, adminPolicy(24*time.Hour))

	limit := big.NewInt(6_000_000)
	hash, err := h.engine.SetCreditManagerDebtLimit(riskAdmin, cmAddr, limit)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if tx.Target != poolAddr {
		t.Fatalf("target = %s, want pool", tx.Target.Hex())
	}
	first, err := ethcall.Word(tx.Data, 0)
	if err != nil {
		t.Fatalf("first word: %v", err)
	}
	addr, err := ethcall.DecodeAddress(first)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if addr != cmAddr {
		t.Fatalf("encoded credit manager = %s", addr.Hex())
	}

	// A policy keyed the other way around must not satisfy the check.
	h2 := newHarness(t)
	wrongKey := riskpolicy.DeriveKey2("CM_WSTETH", "POOL_USDC", ParamCreditManagerDebtLimit)
	h2.setPolicy(t, wrongKey, adminPolicy(24*time.Hour))
	if _, err := h2.engine.SetCreditManagerDebtLimit(riskAdmin, cmAddr, limit); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection for swapped group order, got %v", err)
	}
}

func TestRampLiquidationThresholdInvariants(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey2("CM_WSTETH", "TOKEN_WSTETH", ParamTokenLT)
	h.setPolicy(t, key, adminPolicy(24*time.Hour))

	goodStart := h.now.Add(3 * 24 * time.Hour)
	if _, err := h.engine.RampLiquidationThreshold(riskAdmin, cmAddr, tokenAddr, 8500, goodStart, 6*24*time.Hour); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection for short ramp, got %v", err)
	}
	if _, err := h.engine.RampLiquidationThreshold(riskAdmin, cmAddr, tokenAddr, 8500, h.now.Add(time.Hour), 8*24*time.Hour); !errors.Is(err, ErrParameterChecksFailed) {
		t.Fatalf("expected rejection for ramp starting before maturity, got %v", err)
	}

	hash, err := h.engine.RampLiquidationThreshold(riskAdmin, cmAddr, tokenAddr, 8500, goodStart, 8*24*time.Hour)
	if err != nil {
		t.Fatalf("queue ramp: %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if tx.Signature != "rampLiquidationThreshold(address,uint16,uint40,uint24)" {
		t.Fatalf("signature = %q", tx.Signature)
	}
	if len(tx.Data) != 4*ethcall.WordSize {
		t.Fatalf("data = %d bytes, want 4 words", len(tx.Data))
	}
	if tx.SanityCheckValue.Cmp(big.NewInt(9000)) != 0 {
		t.Fatalf("sanity value = %s", tx.SanityCheckValue)
	}
}

func TestForbidAdapterSkipsSanityCheck(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey("CM_WSTETH", ParamForbidAdapter)
	h.setPolicy(t, key, adminPolicy(time.Hour))

	hash, err := h.engine.ForbidAdapter(riskAdmin, cmAddr, adapterAddr)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if tx.SanityCheckValue != nil || len(tx.SanityCheckCallData) != 0 {
		t.Fatalf("authorization-only proposal must not carry a sanity check")
	}

	h.advance(time.Hour + time.Minute)
	if err := h.engine.Execute(riskAdmin, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(h.remote.calls) != 1 || h.remote.calls[0].target != creditConfigAddr {
		t.Fatalf("unexpected dispatch %v", h.remote.calls)
	}
}

func TestQuotaRateTargetsGauge(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey2("POOL_USDC", "TOKEN_WSTETH", ParamTokenQuotaMaxRate)
	h.setPolicy(t, key, adminPolicy(time.Hour))

	hash, err := h.engine.SetMaxQuotaRate(riskAdmin, poolAddr, tokenAddr, 6000)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if tx.Target != gaugeAddr {
		t.Fatalf("target = %s, want gauge", tx.Target.Hex())
	}
	if tx.Signature != "changeQuotaMaxRate(address,uint16)" {
		t.Fatalf("signature = %q", tx.Signature)
	}
	if tx.SanityCheckValue.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("sanity value = %s, want live max rate", tx.SanityCheckValue)
	}
}

func TestForbidBoundsUpdateQueuesBareSelector(t *testing.T) {
	h := newHarness(t)
	priceFeedAddr := common.HexToAddress("0x60")
	if err := h.engine.SetGroup(configurator, priceFeedAddr, "PRICE_FEED_WSTETH"); err != nil {
		t.Fatalf("set group: %v", err)
	}
	key := riskpolicy.DeriveKey("PRICE_FEED_WSTETH", ParamUpdateBoundsAllowed)
	h.setPolicy(t, key, adminPolicy(time.Hour))

	hash, err := h.engine.ForbidBoundsUpdate(riskAdmin, priceFeedAddr)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	tx, _, _ := h.engine.QueuedTransaction(hash)
	if len(tx.Data) != 0 {
		t.Fatalf("expected empty argument payload, got %d bytes", len(tx.Data))
	}

	h.advance(2 * time.Hour)
	if err := h.engine.Execute(riskAdmin, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := h.remote.calls[0].calldata; len(got) != ethcall.SelectorSize {
		t.Fatalf("calldata = %d bytes, want bare selector", len(got))
	}
}

func TestCancelledProposalCannotExecute(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey("POOL_USDC", ParamWithdrawFee)
	h.setPolicy(t, key, adminPolicy(time.Hour))

	hash, err := h.engine.SetWithdrawFee(riskAdmin, poolAddr, big.NewInt(150))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := h.engine.Cancel(outsider, hash); !errors.Is(err, timelock.ErrNotVetoAdmin) {
		t.Fatalf("expected veto-admin gate, got %v", err)
	}
	if err := h.engine.Cancel(vetoAdmin, hash); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	h.advance(2 * time.Hour)
	if err := h.engine.Execute(riskAdmin, hash); !errors.Is(err, timelock.ErrNotQueued) {
		t.Fatalf("expected cancelled proposal to stay dead, got %v", err)
	}
	events := h.state.auditEvents()
	if events[len(events)-1] != AuditEventCancelled {
		t.Fatalf("last audit event = %s", events[len(events)-1])
	}
}

func TestSetVetoAdminConfiguratorOnly(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.SetVetoAdmin(outsider, outsider); !errors.Is(err, ErrNotConfigurator) {
		t.Fatalf("expected configurator gate, got %v", err)
	}
	if err := h.engine.SetVetoAdmin(configurator, outsider); err != nil {
		t.Fatalf("rotate veto admin: %v", err)
	}
	// The rotation is written through so it survives a restart.
	if h.state.vetoAdmin == nil || *h.state.vetoAdmin != outsider {
		t.Fatalf("expected persisted veto admin %s, got %v", outsider.Hex(), h.state.vetoAdmin)
	}

	key := riskpolicy.DeriveKey("POOL_USDC", ParamWithdrawFee)
	h.setPolicy(t, key, adminPolicy(time.Hour))
	hash, err := h.engine.SetWithdrawFee(riskAdmin, poolAddr, big.NewInt(150))
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if err := h.engine.Cancel(vetoAdmin, hash); !errors.Is(err, timelock.ErrNotVetoAdmin) {
		t.Fatalf("old veto admin must lose the power, got %v", err)
	}
	if err := h.engine.Cancel(outsider, hash); err != nil {
		t.Fatalf("new veto admin cancel: %v", err)
	}
}

func TestAuditFailureStillReturnsQueuedHash(t *testing.T) {
	h := newHarness(t)
	key := riskpolicy.DeriveKey("POOL_USDC", ParamWithdrawFee)
	h.setPolicy(t, key, adminPolicy(time.Hour))

	h.state.auditErr = errors.New("audit backend down")
	hash, err := h.engine.SetWithdrawFee(riskAdmin, poolAddr, big.NewInt(150))
	if err == nil {
		t.Fatal("expected audit failure to surface")
	}
	if hash == (common.Hash{}) {
		t.Fatal("queued transaction must stay addressable through the returned hash")
	}
	tx, ok, getErr := h.engine.QueuedTransaction(hash)
	if getErr != nil || !ok || !tx.Queued {
		t.Fatalf("expected live queued transaction, ok=%v err=%v", ok, getErr)
	}

	h.state.auditErr = nil
	h.now = h.now.Add(2 * time.Hour)
	if err := h.engine.Execute(riskAdmin, hash); err != nil {
		t.Fatalf("execute after audit recovery: %v", err)
	}
}

func TestUnknownCollaboratorRejected(t *testing.T) {
	h := newHarness(t)
	unknown := common.HexToAddress("0xdeadbeef")
	if _, err := h.engine.SetTotalDebtLimit(riskAdmin, unknown, big.NewInt(1)); !errors.Is(err, ErrUnknownContract) {
		t.Fatalf("expected unknown-contract rejection, got %v", err)
	}
	if _, err := h.engine.SetExpirationDate(riskAdmin, unknown, big.NewInt(1)); !errors.Is(err, ErrUnknownContract) {
		t.Fatalf("expected unknown-contract rejection, got %v", err)
	}
}

func mustEncodeUint(t *testing.T, v *big.Int) []byte {
	t.Helper()
	word, err := ethcall.EncodeUint(v)
	if err != nil {
		t.Fatalf("encode uint: %v", err)
	}
	return word
}
