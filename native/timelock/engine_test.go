package timelock

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/core/events"
	"riskgov/native/ethcall"
)

type mockQueueState struct {
	txs map[common.Hash]*QueuedTransaction
}

func newMockQueueState() *mockQueueState {
	return &mockQueueState{txs: make(map[common.Hash]*QueuedTransaction)}
}

func (m *mockQueueState) TimelockPut(hash common.Hash, tx *QueuedTransaction) error {
	m.txs[hash] = tx.Clone()
	return nil
}

func (m *mockQueueState) TimelockGet(hash common.Hash) (*QueuedTransaction, bool, error) {
	tx, ok := m.txs[hash]
	if !ok {
		return nil, false, nil
	}
	return tx.Clone(), true, nil
}

type mockBackend struct {
	calls       []mockCall
	callErr     error
	staticValue *big.Int
	staticErr   error
}

type mockCall struct {
	target   common.Address
	calldata []byte
}

func (b *mockBackend) Call(target common.Address, calldata []byte) error {
	if b.callErr != nil {
		return b.callErr
	}
	b.calls = append(b.calls, mockCall{target: target, calldata: append([]byte(nil), calldata...)})
	return nil
}

func (b *mockBackend) StaticCall(common.Address, []byte) ([]byte, error) {
	if b.staticErr != nil {
		return nil, b.staticErr
	}
	return ethcall.EncodeUint(b.staticValue)
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

var (
	selfAddr  = common.HexToAddress("0x5e1f")
	executor  = common.HexToAddress("0xe0")
	target    = common.HexToAddress("0x7a")
	vetoAdmin = common.HexToAddress("0xbb")
)

func newTestEngine(state *mockQueueState, backend ethcall.Backend, now *time.Time) *Engine {
	engine := NewEngine(selfAddr)
	engine.SetState(state)
	engine.SetBackend(backend)
	engine.SetVetoAdmin(vetoAdmin)
	engine.SetNowFunc(func() time.Time { return *now })
	return engine
}

func encodeUint(t *testing.T, v int64) []byte {
	t.Helper()
	word, err := ethcall.EncodeUint(big.NewInt(v))
	if err != nil {
		t.Fatalf("encode uint: %v", err)
	}
	return word
}

func TestQueueDerivesDeterministicHash(t *testing.T) {
	state := newMockQueueState()
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, &mockBackend{}, &now)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	data := encodeUint(t, 42)
	hash, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", data, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	want := TxHash(executor, target, "setTotalDebtLimit(uint256)", data, now.Add(time.Hour))
	if hash != want {
		t.Fatalf("unexpected hash: got %s want %s", hash.Hex(), want.Hex())
	}

	stored, ok, _ := engine.Transaction(hash)
	if !ok || !stored.Queued {
		t.Fatalf("expected queued record")
	}
	if !stored.Eta.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected eta: %s", stored.Eta)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one event, got %d", len(emitter.events))
	}
	evt := emitter.events[0].(timelockEvent).Event()
	if evt.Type != EventTypeQueued || evt.Attributes["txHash"] != hash.Hex() {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestQueueSameEtaOverwrites(t *testing.T) {
	state := newMockQueueState()
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, &mockBackend{}, &now)

	data := encodeUint(t, 42)
	first, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", data, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	second, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", data, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical inputs at the same eta to collide")
	}
	if len(state.txs) != 1 {
		t.Fatalf("expected overwrite, got %d records", len(state.txs))
	}

	// A different eta yields a distinct entry.
	now = now.Add(time.Second)
	third, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", data, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue at new eta: %v", err)
	}
	if third == first {
		t.Fatalf("expected distinct hash for distinct eta")
	}
	if len(state.txs) != 2 {
		t.Fatalf("expected two records, got %d", len(state.txs))
	}
}

func TestExecuteHappyPathBuildsCalldata(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	data := encodeUint(t, 42)
	hash, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", data, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	now = now.Add(time.Hour)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(backend.calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(backend.calls))
	}
	call := backend.calls[0]
	if call.target != target {
		t.Fatalf("unexpected target: %s", call.target.Hex())
	}
	sel := ethcall.Selector("setTotalDebtLimit(uint256)")
	if len(call.calldata) != 4+32 || string(call.calldata[:4]) != string(sel[:]) {
		t.Fatalf("unexpected calldata: %x", call.calldata)
	}

	stored, _, _ := engine.Transaction(hash)
	if stored.Queued {
		t.Fatalf("expected queued flag cleared after execute")
	}
	if len(emitter.events) != 2 {
		t.Fatalf("expected queued+executed events, got %d", len(emitter.events))
	}
	if emitter.events[1].EventType() != EventTypeExecuted {
		t.Fatalf("unexpected second event: %s", emitter.events[1].EventType())
	}
}

func TestExecuteEmptySignatureUsesRawData(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	raw := ethcall.Pack("forbidBoundsUpdate()")
	hash, err := engine.Queue(executor, target, "", raw, time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	now = now.Add(time.Hour)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if string(backend.calls[0].calldata) != string(raw) {
		t.Fatalf("expected raw data used verbatim")
	}
}

func TestExecuteGuards(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	hash, err := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), 24*time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	if err := engine.Execute(executor, common.BytesToHash([]byte{0x01})); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected not-queued error, got %v", err)
	}
	if err := engine.Execute(vetoAdmin, hash); !errors.Is(err, ErrNotExecutor) {
		t.Fatalf("expected executor gate, got %v", err)
	}
	if err := engine.Execute(executor, hash); !errors.Is(err, ErrOutsideTimeWindow) {
		t.Fatalf("expected pre-eta rejection, got %v", err)
	}

	// Boundary inclusive at eta and at eta+GracePeriod.
	eta := time.Unix(1_800_000_000, 0).UTC().Add(24 * time.Hour)
	now = eta.Add(GracePeriod + time.Second)
	if err := engine.Execute(executor, hash); !errors.Is(err, ErrOutsideTimeWindow) {
		t.Fatalf("expected post-grace rejection, got %v", err)
	}
	now = eta.Add(GracePeriod)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("expected grace boundary to be inclusive, got %v", err)
	}
}

func TestExecuteAtEtaBoundary(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	hash, err := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), time.Hour, nil, nil)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	now = now.Add(time.Hour)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("expected eta boundary to be inclusive, got %v", err)
	}
}

func TestExecuteSingleUse(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	hash, _ := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), time.Hour, nil, nil)
	now = now.Add(2 * time.Hour)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := engine.Execute(executor, hash); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected second execute to fail, got %v", err)
	}
}

func TestExecuteConcurrentSingleDispatch(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	hash, _ := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), time.Hour, nil, nil)
	now = now.Add(2 * time.Hour)

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- engine.Execute(executor, hash)
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var succeeded, resolved int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNotQueued):
			resolved++
		default:
			t.Fatalf("unexpected execute error: %v", err)
		}
	}
	if succeeded != 1 || resolved != callers-1 {
		t.Fatalf("expected exactly one dispatch, got %d successes and %d resolved", succeeded, resolved)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("expected a single downstream call, got %d", len(backend.calls))
	}
}

func TestCancelFinality(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)
	emitter := &captureEmitter{}
	engine.SetEmitter(emitter)

	hash, _ := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), time.Hour, nil, nil)

	if err := engine.Cancel(executor, hash); !errors.Is(err, ErrNotVetoAdmin) {
		t.Fatalf("expected veto gate, got %v", err)
	}
	if err := engine.Cancel(vetoAdmin, hash); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if err := engine.Execute(executor, hash); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("expected cancelled tx to be dead, got %v", err)
	}

	// Cancel is a no-op on resolved and unknown hashes.
	if err := engine.Cancel(vetoAdmin, hash); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if err := engine.Cancel(vetoAdmin, common.BytesToHash([]byte{0xff})); err != nil {
		t.Fatalf("cancel unknown: %v", err)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("cancelled transaction must never dispatch")
	}
}

func TestExecuteSanityCheckDetectsDrift(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{staticValue: big.NewInt(100)}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	sanityData := ethcall.Pack("totalDebtLimit(address)", ethcall.EncodeAddress(target))
	hash, err := engine.Queue(executor, target, "setTotalDebtLimit(uint256)", encodeUint(t, 500), time.Hour, big.NewInt(100), sanityData)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	now = now.Add(time.Hour)

	// Live value drifted between queue and execute.
	backend.staticValue = big.NewInt(120)
	if err := engine.Execute(executor, hash); !errors.Is(err, ErrParameterChangedAfterQueue) {
		t.Fatalf("expected staleness error, got %v", err)
	}
	stored, _, _ := engine.Transaction(hash)
	if !stored.Queued {
		t.Fatalf("stale execute must not clear the queued flag")
	}
	if len(backend.calls) != 0 {
		t.Fatalf("stale execute must not dispatch")
	}

	// Value matching the snapshot allows execution.
	backend.staticValue = big.NewInt(100)
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("execute after match: %v", err)
	}
}

func TestExecuteDispatchFailureKeepsTransactionQueued(t *testing.T) {
	state := newMockQueueState()
	backend := &mockBackend{callErr: errors.New("downstream revert")}
	now := time.Unix(1_800_000_000, 0).UTC()
	engine := newTestEngine(state, backend, &now)

	hash, _ := engine.Queue(executor, target, "setWithdrawFee(uint256)", encodeUint(t, 3), time.Hour, nil, nil)
	now = now.Add(time.Hour)

	err := engine.Execute(executor, hash)
	if !errors.Is(err, ErrExecutionReverted) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	stored, _, _ := engine.Transaction(hash)
	if !stored.Queued {
		t.Fatalf("failed dispatch must leave the transaction queued")
	}

	backend.callErr = nil
	if err := engine.Execute(executor, hash); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}
