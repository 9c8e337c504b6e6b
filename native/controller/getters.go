package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/ethcall"
)

// Current-value getters mirror the sanity-check calldata the dispatcher pins
// on every queued transaction. They read the collaborators live, so a value
// that drifted between queueing and execution is caught at execution time.

// ExpirationDate returns the live expiration date of a credit manager's
// facade.
func (e *Engine) ExpirationDate(creditManager common.Address) (*big.Int, error) {
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return nil, err
	}
	return facade.ExpirationDate()
}

// MaxDebtPerBlockMultiplier returns the live per-block borrow throttle.
func (e *Engine) MaxDebtPerBlockMultiplier(creditManager common.Address) (*big.Int, error) {
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return nil, err
	}
	v, err := facade.MaxDebtPerBlockMultiplier()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(v)), nil
}

// MinDebtLimit returns the live minimum debt per credit account.
func (e *Engine) MinDebtLimit(creditManager common.Address) (*big.Int, error) {
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return nil, err
	}
	minDebt, _, err := facade.DebtLimits()
	return minDebt, err
}

// MaxDebtLimit returns the live maximum debt per credit account.
func (e *Engine) MaxDebtLimit(creditManager common.Address) (*big.Int, error) {
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return nil, err
	}
	_, maxDebt, err := facade.DebtLimits()
	return maxDebt, err
}

// CreditManagerDebtLimit returns the live debt ceiling of a credit manager in
// a pool.
func (e *Engine) CreditManagerDebtLimit(poolAddr, creditManager common.Address) (*big.Int, error) {
	pool, err := e.pool(poolAddr)
	if err != nil {
		return nil, err
	}
	return pool.CreditManagerDebtLimit(creditManager)
}

// LiquidationThreshold returns the live liquidation threshold of a collateral
// token in a credit manager.
func (e *Engine) LiquidationThreshold(creditManager, token common.Address) (*big.Int, error) {
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return nil, err
	}
	lt, err := cm.LiquidationThreshold(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(lt)), nil
}

// TokenLimit returns the live quota ceiling of a token in a pool.
func (e *Engine) TokenLimit(poolAddr, token common.Address) (*big.Int, error) {
	_, keeper, err := e.quotaKeeperFor(poolAddr)
	if err != nil {
		return nil, err
	}
	return keeper.TokenLimit(token)
}

// TokenQuotaIncreaseFee returns the live quota-increase fee of a token in a
// pool.
func (e *Engine) TokenQuotaIncreaseFee(poolAddr, token common.Address) (*big.Int, error) {
	_, keeper, err := e.quotaKeeperFor(poolAddr)
	if err != nil {
		return nil, err
	}
	fee, err := keeper.TokenQuotaIncreaseFee(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(fee)), nil
}

// TotalDebtLimit returns the live total debt ceiling of a pool.
func (e *Engine) TotalDebtLimit(poolAddr common.Address) (*big.Int, error) {
	pool, err := e.pool(poolAddr)
	if err != nil {
		return nil, err
	}
	return pool.TotalDebtLimit()
}

// WithdrawFee returns the live withdrawal fee of a pool.
func (e *Engine) WithdrawFee(poolAddr common.Address) (*big.Int, error) {
	pool, err := e.pool(poolAddr)
	if err != nil {
		return nil, err
	}
	return pool.WithdrawFee()
}

// QuotaMinRate returns the live lower interest-rate bound for a token's
// quota.
func (e *Engine) QuotaMinRate(poolAddr, token common.Address) (*big.Int, error) {
	_, gauge, err := e.gaugeFor(poolAddr)
	if err != nil {
		return nil, err
	}
	minRate, _, err := gauge.QuotaRateParams(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(minRate)), nil
}

// QuotaMaxRate returns the live upper interest-rate bound for a token's
// quota.
func (e *Engine) QuotaMaxRate(poolAddr, token common.Address) (*big.Int, error) {
	_, gauge, err := e.gaugeFor(poolAddr)
	if err != nil {
		return nil, err
	}
	_, maxRate, err := gauge.QuotaRateParams(token)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(uint64(maxRate)), nil
}

// RegisterSelf binds the controller's getters into the dispatch registry
// under its own address, so sanity-check static calls queued against the
// controller resolve in-process.
func (e *Engine) RegisterSelf(reg *ethcall.Registry) {
	if e == nil || reg == nil {
		return
	}
	one := func(fn func(common.Address) (*big.Int, error)) ethcall.HandlerFunc {
		return func(args []byte) ([]byte, error) {
			word, err := ethcall.Word(args, 0)
			if err != nil {
				return nil, err
			}
			addr, err := ethcall.DecodeAddress(word)
			if err != nil {
				return nil, err
			}
			value, err := fn(addr)
			if err != nil {
				return nil, err
			}
			return ethcall.EncodeUint(value)
		}
	}
	two := func(fn func(common.Address, common.Address) (*big.Int, error)) ethcall.HandlerFunc {
		return func(args []byte) ([]byte, error) {
			first, err := ethcall.Word(args, 0)
			if err != nil {
				return nil, err
			}
			second, err := ethcall.Word(args, 1)
			if err != nil {
				return nil, err
			}
			a, err := ethcall.DecodeAddress(first)
			if err != nil {
				return nil, err
			}
			b, err := ethcall.DecodeAddress(second)
			if err != nil {
				return nil, err
			}
			value, err := fn(a, b)
			if err != nil {
				return nil, err
			}
			return ethcall.EncodeUint(value)
		}
	}

	reg.Register(e.self, "expirationDate(address)", one(e.ExpirationDate))
	reg.Register(e.self, "maxDebtPerBlockMultiplier(address)", one(e.MaxDebtPerBlockMultiplier))
	reg.Register(e.self, "minDebtLimit(address)", one(e.MinDebtLimit))
	reg.Register(e.self, "maxDebtLimit(address)", one(e.MaxDebtLimit))
	reg.Register(e.self, "creditManagerDebtLimit(address,address)", two(e.CreditManagerDebtLimit))
	reg.Register(e.self, "liquidationThreshold(address,address)", two(e.LiquidationThreshold))
	reg.Register(e.self, "tokenLimit(address,address)", two(e.TokenLimit))
	reg.Register(e.self, "tokenQuotaIncreaseFee(address,address)", two(e.TokenQuotaIncreaseFee))
	reg.Register(e.self, "totalDebtLimit(address)", one(e.TotalDebtLimit))
	reg.Register(e.self, "withdrawFee(address)", one(e.WithdrawFee))
	reg.Register(e.self, "quotaMinRate(address,address)", two(e.QuotaMinRate))
	reg.Register(e.self, "quotaMaxRate(address,address)", two(e.QuotaMaxRate))
}
