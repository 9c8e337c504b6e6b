package controller

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/ethcall"
)

// Remote adapters satisfy the collaborator interfaces by issuing static calls
// through an ethcall backend, so a deployment can point the dispatcher at
// live contracts instead of in-process implementations. Reads go to the
// collaborator's own getters; writes still travel through the timelock.

func staticWord(backend ethcall.Backend, target common.Address, index int, signature string, words ...[]byte) ([]byte, error) {
	out, err := backend.StaticCall(target, ethcall.Pack(signature, words...))
	if err != nil {
		return nil, fmt.Errorf("controller: %s on %s: %w", signature, target.Hex(), err)
	}
	return ethcall.Word(out, index)
}

func staticUint(backend ethcall.Backend, target common.Address, signature string, words ...[]byte) (*big.Int, error) {
	word, err := staticWord(backend, target, 0, signature, words...)
	if err != nil {
		return nil, err
	}
	return ethcall.DecodeUint(word)
}

func staticAddress(backend ethcall.Backend, target common.Address, signature string) (common.Address, error) {
	word, err := staticWord(backend, target, 0, signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcall.DecodeAddress(word)
}

// RemotePool adapts a deployed pool contract to the Pool interface.
type RemotePool struct {
	backend ethcall.Backend
	addr    common.Address
}

func NewRemotePool(backend ethcall.Backend, addr common.Address) *RemotePool {
	return &RemotePool{backend: backend, addr: addr}
}

func (p *RemotePool) QuotaKeeper() (common.Address, error) {
	return staticAddress(p.backend, p.addr, "poolQuotaKeeper()")
}

func (p *RemotePool) CreditManagerBorrowed(cm common.Address) (*big.Int, error) {
	return staticUint(p.backend, p.addr, "creditManagerBorrowed(address)", ethcall.EncodeAddress(cm))
}

func (p *RemotePool) CreditManagerDebtLimit(cm common.Address) (*big.Int, error) {
	return staticUint(p.backend, p.addr, "creditManagerDebtLimit(address)", ethcall.EncodeAddress(cm))
}

func (p *RemotePool) TotalDebtLimit() (*big.Int, error) {
	return staticUint(p.backend, p.addr, "totalDebtLimit()")
}

func (p *RemotePool) WithdrawFee() (*big.Int, error) {
	return staticUint(p.backend, p.addr, "withdrawFee()")
}

// RemoteCreditManager adapts a deployed credit manager contract.
type RemoteCreditManager struct {
	backend ethcall.Backend
	addr    common.Address
}

func NewRemoteCreditManager(backend ethcall.Backend, addr common.Address) *RemoteCreditManager {
	return &RemoteCreditManager{backend: backend, addr: addr}
}

func (m *RemoteCreditManager) CreditFacade() (common.Address, error) {
	return staticAddress(m.backend, m.addr, "creditFacade()")
}

func (m *RemoteCreditManager) CreditConfigurator() (common.Address, error) {
	return staticAddress(m.backend, m.addr, "creditConfigurator()")
}

func (m *RemoteCreditManager) Pool() (common.Address, error) {
	return staticAddress(m.backend, m.addr, "pool()")
}

func (m *RemoteCreditManager) LiquidationThreshold(token common.Address) (uint16, error) {
	value, err := staticUint(m.backend, m.addr, "liquidationThresholds(address)", ethcall.EncodeAddress(token))
	if err != nil {
		return 0, err
	}
	return uint16(value.Uint64()), nil
}

// RemoteCreditFacade adapts a deployed credit facade contract.
type RemoteCreditFacade struct {
	backend ethcall.Backend
	addr    common.Address
}

func NewRemoteCreditFacade(backend ethcall.Backend, addr common.Address) *RemoteCreditFacade {
	return &RemoteCreditFacade{backend: backend, addr: addr}
}

func (f *RemoteCreditFacade) ExpirationDate() (*big.Int, error) {
	return staticUint(f.backend, f.addr, "expirationDate()")
}

func (f *RemoteCreditFacade) MaxDebtPerBlockMultiplier() (uint8, error) {
	value, err := staticUint(f.backend, f.addr, "maxDebtPerBlockMultiplier()")
	if err != nil {
		return 0, err
	}
	return uint8(value.Uint64()), nil
}

func (f *RemoteCreditFacade) DebtLimits() (*big.Int, *big.Int, error) {
	out, err := f.backend.StaticCall(f.addr, ethcall.Pack("debtLimits()"))
	if err != nil {
		return nil, nil, fmt.Errorf("controller: debtLimits() on %s: %w", f.addr.Hex(), err)
	}
	minWord, err := ethcall.Word(out, 0)
	if err != nil {
		return nil, nil, err
	}
	maxWord, err := ethcall.Word(out, 1)
	if err != nil {
		return nil, nil, err
	}
	minDebt, err := ethcall.DecodeUint(minWord)
	if err != nil {
		return nil, nil, err
	}
	maxDebt, err := ethcall.DecodeUint(maxWord)
	if err != nil {
		return nil, nil, err
	}
	return minDebt, maxDebt, nil
}

// RemoteQuotaKeeper adapts a deployed quota keeper contract.
type RemoteQuotaKeeper struct {
	backend ethcall.Backend
	addr    common.Address
}

func NewRemoteQuotaKeeper(backend ethcall.Backend, addr common.Address) *RemoteQuotaKeeper {
	return &RemoteQuotaKeeper{backend: backend, addr: addr}
}

func (k *RemoteQuotaKeeper) Gauge() (common.Address, error) {
	return staticAddress(k.backend, k.addr, "gauge()")
}

func (k *RemoteQuotaKeeper) TokenLimit(token common.Address) (*big.Int, error) {
	return staticUint(k.backend, k.addr, "tokenLimit(address)", ethcall.EncodeAddress(token))
}

func (k *RemoteQuotaKeeper) TokenQuotaIncreaseFee(token common.Address) (uint16, error) {
	value, err := staticUint(k.backend, k.addr, "tokenQuotaIncreaseFee(address)", ethcall.EncodeAddress(token))
	if err != nil {
		return 0, err
	}
	return uint16(value.Uint64()), nil
}

// RemoteGauge adapts a deployed gauge contract.
type RemoteGauge struct {
	backend ethcall.Backend
	addr    common.Address
}

func NewRemoteGauge(backend ethcall.Backend, addr common.Address) *RemoteGauge {
	return &RemoteGauge{backend: backend, addr: addr}
}

func (g *RemoteGauge) QuotaRateParams(token common.Address) (uint16, uint16, error) {
	out, err := g.backend.StaticCall(g.addr, ethcall.Pack("quotaRateParams(address)", ethcall.EncodeAddress(token)))
	if err != nil {
		return 0, 0, fmt.Errorf("controller: quotaRateParams(address) on %s: %w", g.addr.Hex(), err)
	}
	minWord, err := ethcall.Word(out, 0)
	if err != nil {
		return 0, 0, err
	}
	maxWord, err := ethcall.Word(out, 1)
	if err != nil {
		return 0, 0, err
	}
	minRate, err := ethcall.DecodeUint(minWord)
	if err != nil {
		return 0, 0, err
	}
	maxRate, err := ethcall.DecodeUint(maxWord)
	if err != nil {
		return 0, 0, err
	}
	return uint16(minRate.Uint64()), uint16(maxRate.Uint64()), nil
}

// RegisterRemotePool wires a pool and its quota keeper and gauge as remote
// adapters, resolving the keeper and gauge addresses through the backend.
func (e *Engine) RegisterRemotePool(backend ethcall.Backend, addr common.Address) error {
	pool := NewRemotePool(backend, addr)
	keeperAddr, err := pool.QuotaKeeper()
	if err != nil {
		return err
	}
	keeper := NewRemoteQuotaKeeper(backend, keeperAddr)
	gaugeAddr, err := keeper.Gauge()
	if err != nil {
		return err
	}
	e.RegisterPool(addr, pool)
	e.RegisterQuotaKeeper(keeperAddr, keeper)
	e.RegisterGauge(gaugeAddr, NewRemoteGauge(backend, gaugeAddr))
	return nil
}

// RegisterRemoteCreditManager wires a credit manager and its facade as remote
// adapters, resolving the facade address through the backend.
func (e *Engine) RegisterRemoteCreditManager(backend ethcall.Backend, addr common.Address) error {
	cm := NewRemoteCreditManager(backend, addr)
	facadeAddr, err := cm.CreditFacade()
	if err != nil {
		return err
	}
	e.RegisterCreditManager(addr, cm)
	e.RegisterCreditFacade(facadeAddr, NewRemoteCreditFacade(backend, facadeAddr))
	return nil
}
