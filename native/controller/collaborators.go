package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The controller only ever reads from collaborator contracts; every write
// travels through the timelock's generic call dispatch. These interfaces
// therefore cover exactly the read surface the dispatcher templates need.

// Pool exposes the read surface of a lending pool.
type Pool interface {
	QuotaKeeper() (common.Address, error)
	CreditManagerBorrowed(creditManager common.Address) (*big.Int, error)
	CreditManagerDebtLimit(creditManager common.Address) (*big.Int, error)
	TotalDebtLimit() (*big.Int, error)
	WithdrawFee() (*big.Int, error)
}

// CreditManager exposes the read surface of a credit manager.
type CreditManager interface {
	CreditFacade() (common.Address, error)
	CreditConfigurator() (common.Address, error)
	Pool() (common.Address, error)
	LiquidationThreshold(token common.Address) (uint16, error)
}

// CreditFacade exposes the read surface of a credit facade.
type CreditFacade interface {
	ExpirationDate() (*big.Int, error)
	MaxDebtPerBlockMultiplier() (uint8, error)
	DebtLimits() (minDebt, maxDebt *big.Int, err error)
}

// QuotaKeeper exposes the read surface of a pool quota keeper.
type QuotaKeeper interface {
	Gauge() (common.Address, error)
	TokenLimit(token common.Address) (*big.Int, error)
	TokenQuotaIncreaseFee(token common.Address) (uint16, error)
}

// Gauge exposes the read surface of a gauge.
type Gauge interface {
	QuotaRateParams(token common.Address) (minRate, maxRate uint16, err error)
}

// RegisterPool makes a pool's read surface available to the dispatcher.
func (e *Engine) RegisterPool(addr common.Address, pool Pool) {
	if e == nil || pool == nil {
		return
	}
	e.pools[addr] = pool
}

// RegisterCreditManager makes a credit manager's read surface available to
// the dispatcher.
func (e *Engine) RegisterCreditManager(addr common.Address, cm CreditManager) {
	if e == nil || cm == nil {
		return
	}
	e.creditManagers[addr] = cm
}

// RegisterCreditFacade makes a credit facade's read surface available to the
// dispatcher.
func (e *Engine) RegisterCreditFacade(addr common.Address, facade CreditFacade) {
	if e == nil || facade == nil {
		return
	}
	e.facades[addr] = facade
}

// RegisterQuotaKeeper makes a quota keeper's read surface available to the
// dispatcher.
func (e *Engine) RegisterQuotaKeeper(addr common.Address, keeper QuotaKeeper) {
	if e == nil || keeper == nil {
		return
	}
	e.quotaKeepers[addr] = keeper
}

// RegisterGauge makes a gauge's read surface available to the dispatcher.
func (e *Engine) RegisterGauge(addr common.Address, gauge Gauge) {
	if e == nil || gauge == nil {
		return
	}
	e.gauges[addr] = gauge
}

func (e *Engine) pool(addr common.Address) (Pool, error) {
	pool, ok := e.pools[addr]
	if !ok {
		return nil, ErrUnknownContract
	}
	return pool, nil
}

func (e *Engine) creditManager(addr common.Address) (CreditManager, error) {
	cm, ok := e.creditManagers[addr]
	if !ok {
		return nil, ErrUnknownContract
	}
	return cm, nil
}

func (e *Engine) creditFacade(addr common.Address) (CreditFacade, error) {
	facade, ok := e.facades[addr]
	if !ok {
		return nil, ErrUnknownContract
	}
	return facade, nil
}

func (e *Engine) quotaKeeper(addr common.Address) (QuotaKeeper, error) {
	keeper, ok := e.quotaKeepers[addr]
	if !ok {
		return nil, ErrUnknownContract
	}
	return keeper, nil
}

func (e *Engine) gauge(addr common.Address) (Gauge, error) {
	gauge, ok := e.gauges[addr]
	if !ok {
		return nil, ErrUnknownContract
	}
	return gauge, nil
}

func (e *Engine) facadeFor(cmAddr common.Address) (CreditFacade, error) {
	cm, err := e.creditManager(cmAddr)
	if err != nil {
		return nil, err
	}
	facadeAddr, err := cm.CreditFacade()
	if err != nil {
		return nil, err
	}
	return e.creditFacade(facadeAddr)
}

func (e *Engine) quotaKeeperFor(poolAddr common.Address) (common.Address, QuotaKeeper, error) {
	pool, err := e.pool(poolAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	keeperAddr, err := pool.QuotaKeeper()
	if err != nil {
		return common.Address{}, nil, err
	}
	keeper, err := e.quotaKeeper(keeperAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	return keeperAddr, keeper, nil
}

func (e *Engine) gaugeFor(poolAddr common.Address) (common.Address, Gauge, error) {
	_, keeper, err := e.quotaKeeperFor(poolAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	gaugeAddr, err := keeper.Gauge()
	if err != nil {
		return common.Address{}, nil, err
	}
	gauge, err := e.gauge(gaugeAddr)
	if err != nil {
		return common.Address{}, nil, err
	}
	return gaugeAddr, gauge, nil
}
