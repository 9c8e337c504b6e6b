package controller

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/ethcall"
)

// Every entry point follows the same template: resolve the collaborators,
// read the live current value, gate the transition through the policy
// evaluator, apply any hard-coded invariant, and enqueue the downstream call
// with a sanity check pinned to the controller's own getter for the value.

func (e *Engine) enqueue(caller, target common.Address, signature string, data []byte, delay time.Duration, sanityValue *big.Int, sanityCallData []byte, parameter string) (common.Hash, error) {
	hash, err := e.queue.Queue(caller, target, signature, data, delay, sanityValue, sanityCallData)
	if err != nil {
		return common.Hash{}, err
	}
	// The transaction is live once queued; a failed audit write must still
	// hand the caller the hash so the proposal stays addressable.
	if err := e.audit(AuditEventQueued, caller, hash, parameter, ""); err != nil {
		return hash, err
	}
	return hash, nil
}

// SetExpirationDate proposes a new expiration date for a credit manager. The
// change is only admissible while the credit manager carries no outstanding
// debt.
func (e *Engine) SetExpirationDate(caller, creditManager common.Address, expirationDate *big.Int) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	configuratorAddr, err := cm.CreditConfigurator()
	if err != nil {
		return common.Hash{}, err
	}
	poolAddr, err := cm.Pool()
	if err != nil {
		return common.Hash{}, err
	}
	pool, err := e.pool(poolAddr)
	if err != nil {
		return common.Hash{}, err
	}

	current, err := facade.ExpirationDate()
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyFor(creditManager, ParamExpirationDate)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, expirationDate, caller)
	if err != nil {
		return common.Hash{}, err
	}
	borrowed, err := pool.CreditManagerBorrowed(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	if borrowed.Sign() != 0 {
		return common.Hash{}, ErrParameterChecksFailed
	}

	word, err := ethcall.EncodeUint(expirationDate)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("expirationDate(address)", ethcall.EncodeAddress(creditManager))
	return e.enqueue(caller, configuratorAddr, "setExpirationDate(uint40)", ethcall.Args(word), delay, current, sanity, ParamExpirationDate)
}

// SetMaxDebtPerBlockMultiplier proposes a new per-block borrow throttle for a
// credit manager.
func (e *Engine) SetMaxDebtPerBlockMultiplier(caller, creditManager common.Address, multiplier uint8) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	configuratorAddr, err := cm.CreditConfigurator()
	if err != nil {
		return common.Hash{}, err
	}

	current, err := facade.MaxDebtPerBlockMultiplier()
	if err != nil {
		return common.Hash{}, err
	}
	newValue := new(big.Int).SetUint64(uint64(multiplier))
	key, err := e.keyFor(creditManager, ParamMaxDebtPerBlockMultiplier)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, new(big.Int).SetUint64(uint64(current)), newValue, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(newValue)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("maxDebtPerBlockMultiplier(address)", ethcall.EncodeAddress(creditManager))
	return e.enqueue(caller, configuratorAddr, "setMaxDebtPerBlockMultiplier(uint8)", ethcall.Args(word), delay, new(big.Int).SetUint64(uint64(current)), sanity, ParamMaxDebtPerBlockMultiplier)
}

// SetMinDebtLimit proposes a new minimum debt per credit account.
func (e *Engine) SetMinDebtLimit(caller, creditManager common.Address, minDebt *big.Int) (common.Hash, error) {
	return e.setDebtLimit(caller, creditManager, minDebt, ParamMinDebt, "setMinDebtLimit(uint128)", "minDebtLimit(address)", true)
}

// SetMaxDebtLimit proposes a new maximum debt per credit account.
func (e *Engine) SetMaxDebtLimit(caller, creditManager common.Address, maxDebt *big.Int) (common.Hash, error) {
	return e.setDebtLimit(caller, creditManager, maxDebt, ParamMaxDebt, "setMaxDebtLimit(uint128)", "maxDebtLimit(address)", false)
}

func (e *Engine) setDebtLimit(caller, creditManager common.Address, newValue *big.Int, parameter, setterSig, getterSig string, isMin bool) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	facade, err := e.facadeFor(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	configuratorAddr, err := cm.CreditConfigurator()
	if err != nil {
		return common.Hash{}, err
	}

	minDebt, maxDebt, err := facade.DebtLimits()
	if err != nil {
		return common.Hash{}, err
	}
	current := maxDebt
	if isMin {
		current = minDebt
	}
	key, err := e.keyFor(creditManager, parameter)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, newValue, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(newValue)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack(getterSig, ethcall.EncodeAddress(creditManager))
	return e.enqueue(caller, configuratorAddr, setterSig, ethcall.Args(word), delay, current, sanity, parameter)
}

// SetCreditManagerDebtLimit proposes a new debt ceiling for a credit manager
// within its pool. The policy key spans both parties: the pool's group and
// the credit manager's group, in that order.
func (e *Engine) SetCreditManagerDebtLimit(caller, creditManager common.Address, limit *big.Int) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	poolAddr, err := cm.Pool()
	if err != nil {
		return common.Hash{}, err
	}
	pool, err := e.pool(poolAddr)
	if err != nil {
		return common.Hash{}, err
	}

	current, err := pool.CreditManagerDebtLimit(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyForPair(poolAddr, creditManager, ParamCreditManagerDebtLimit)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, limit, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(limit)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("creditManagerDebtLimit(address,address)", ethcall.EncodeAddress(poolAddr), ethcall.EncodeAddress(creditManager))
	return e.enqueue(caller, poolAddr, "setCreditManagerDebtLimit(address,uint256)", ethcall.Args(ethcall.EncodeAddress(creditManager), word), delay, current, sanity, ParamCreditManagerDebtLimit)
}

// RampLiquidationThreshold proposes a gradual liquidation-threshold change
// for a collateral token. On top of the policy bounds, the ramp must run for
// at least a week and must not start before the proposal can mature.
func (e *Engine) RampLiquidationThreshold(caller, creditManager, token common.Address, ltFinal uint16, rampStart time.Time, rampDuration time.Duration) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	configuratorAddr, err := cm.CreditConfigurator()
	if err != nil {
		return common.Hash{}, err
	}

	current, err := cm.LiquidationThreshold(token)
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyForPair(creditManager, token, ParamTokenLT)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, new(big.Int).SetUint64(uint64(current)), new(big.Int).SetUint64(uint64(ltFinal)), caller)
	if err != nil {
		return common.Hash{}, err
	}
	if rampDuration < minRampDuration {
		return common.Hash{}, ErrParameterChecksFailed
	}
	if rampStart.Before(e.nowFn().Add(delay)) {
		return common.Hash{}, ErrParameterChecksFailed
	}

	ltWord, err := ethcall.EncodeUint(new(big.Int).SetUint64(uint64(ltFinal)))
	if err != nil {
		return common.Hash{}, err
	}
	startWord, err := ethcall.EncodeUint(big.NewInt(rampStart.Unix()))
	if err != nil {
		return common.Hash{}, err
	}
	durationWord, err := ethcall.EncodeUint(big.NewInt(int64(rampDuration / time.Second)))
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("liquidationThreshold(address,address)", ethcall.EncodeAddress(creditManager), ethcall.EncodeAddress(token))
	data := ethcall.Args(ethcall.EncodeAddress(token), ltWord, startWord, durationWord)
	return e.enqueue(caller, configuratorAddr, "rampLiquidationThreshold(address,uint16,uint40,uint24)", data, delay, new(big.Int).SetUint64(uint64(current)), sanity, ParamTokenLT)
}

// ForbidAdapter proposes disconnecting an adapter from a credit manager. The
// policy reduces to a pure caller/group authorization gate: there is no value
// to bound and no staleness guard to attach.
func (e *Engine) ForbidAdapter(caller, creditManager, adapter common.Address) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	cm, err := e.creditManager(creditManager)
	if err != nil {
		return common.Hash{}, err
	}
	configuratorAddr, err := cm.CreditConfigurator()
	if err != nil {
		return common.Hash{}, err
	}

	key, err := e.keyFor(creditManager, ParamForbidAdapter)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, big.NewInt(0), big.NewInt(0), caller)
	if err != nil {
		return common.Hash{}, err
	}

	return e.enqueue(caller, configuratorAddr, "forbidAdapter(address)", ethcall.Args(ethcall.EncodeAddress(adapter)), delay, nil, nil, ParamForbidAdapter)
}

// SetTokenLimit proposes a new quota ceiling for a token in a pool.
func (e *Engine) SetTokenLimit(caller, pool, token common.Address, limit *big.Int) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	keeperAddr, keeper, err := e.quotaKeeperFor(pool)
	if err != nil {
		return common.Hash{}, err
	}
	current, err := keeper.TokenLimit(token)
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyForPair(pool, token, ParamTokenLimit)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, limit, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(limit)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("tokenLimit(address,address)", ethcall.EncodeAddress(pool), ethcall.EncodeAddress(token))
	return e.enqueue(caller, keeperAddr, "setTokenLimit(address,uint96)", ethcall.Args(ethcall.EncodeAddress(token), word), delay, current, sanity, ParamTokenLimit)
}

// SetTokenQuotaIncreaseFee proposes a new quota-increase fee for a token in a
// pool, in basis points.
func (e *Engine) SetTokenQuotaIncreaseFee(caller, pool, token common.Address, fee uint16) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	keeperAddr, keeper, err := e.quotaKeeperFor(pool)
	if err != nil {
		return common.Hash{}, err
	}
	current, err := keeper.TokenQuotaIncreaseFee(token)
	if err != nil {
		return common.Hash{}, err
	}
	newValue := new(big.Int).SetUint64(uint64(fee))
	key, err := e.keyForPair(pool, token, ParamTokenQuotaIncreaseFee)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, new(big.Int).SetUint64(uint64(current)), newValue, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(newValue)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("tokenQuotaIncreaseFee(address,address)", ethcall.EncodeAddress(pool), ethcall.EncodeAddress(token))
	return e.enqueue(caller, keeperAddr, "setTokenQuotaIncreaseFee(address,uint16)", ethcall.Args(ethcall.EncodeAddress(token), word), delay, new(big.Int).SetUint64(uint64(current)), sanity, ParamTokenQuotaIncreaseFee)
}

// SetTotalDebtLimit proposes a new total debt ceiling for a pool.
func (e *Engine) SetTotalDebtLimit(caller, poolAddr common.Address, limit *big.Int) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	pool, err := e.pool(poolAddr)
	if err != nil {
		return common.Hash{}, err
	}
	current, err := pool.TotalDebtLimit()
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyFor(poolAddr, ParamTotalDebtLimit)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, limit, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(limit)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("totalDebtLimit(address)", ethcall.EncodeAddress(poolAddr))
	return e.enqueue(caller, poolAddr, "setTotalDebtLimit(uint256)", ethcall.Args(word), delay, current, sanity, ParamTotalDebtLimit)
}

// SetWithdrawFee proposes a new withdrawal fee for a pool.
func (e *Engine) SetWithdrawFee(caller, poolAddr common.Address, fee *big.Int) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	pool, err := e.pool(poolAddr)
	if err != nil {
		return common.Hash{}, err
	}
	current, err := pool.WithdrawFee()
	if err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyFor(poolAddr, ParamWithdrawFee)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, current, fee, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(fee)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack("withdrawFee(address)", ethcall.EncodeAddress(poolAddr))
	return e.enqueue(caller, poolAddr, "setWithdrawFee(uint256)", ethcall.Args(word), delay, current, sanity, ParamWithdrawFee)
}

// SetMinQuotaRate proposes a new lower interest-rate bound for a token's
// quota in a pool's gauge.
func (e *Engine) SetMinQuotaRate(caller, pool, token common.Address, rate uint16) (common.Hash, error) {
	return e.setQuotaRate(caller, pool, token, rate, ParamTokenQuotaMinRate, "changeQuotaMinRate(address,uint16)", "quotaMinRate(address,address)", true)
}

// SetMaxQuotaRate proposes a new upper interest-rate bound for a token's
// quota in a pool's gauge.
func (e *Engine) SetMaxQuotaRate(caller, pool, token common.Address, rate uint16) (common.Hash, error) {
	return e.setQuotaRate(caller, pool, token, rate, ParamTokenQuotaMaxRate, "changeQuotaMaxRate(address,uint16)", "quotaMaxRate(address,address)", false)
}

func (e *Engine) setQuotaRate(caller, pool, token common.Address, rate uint16, parameter, setterSig, getterSig string, isMin bool) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	gaugeAddr, gauge, err := e.gaugeFor(pool)
	if err != nil {
		return common.Hash{}, err
	}
	minRate, maxRate, err := gauge.QuotaRateParams(token)
	if err != nil {
		return common.Hash{}, err
	}
	current := maxRate
	if isMin {
		current = minRate
	}
	newValue := new(big.Int).SetUint64(uint64(rate))
	key, err := e.keyForPair(pool, token, parameter)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, new(big.Int).SetUint64(uint64(current)), newValue, caller)
	if err != nil {
		return common.Hash{}, err
	}

	word, err := ethcall.EncodeUint(newValue)
	if err != nil {
		return common.Hash{}, err
	}
	sanity := ethcall.Pack(getterSig, ethcall.EncodeAddress(pool), ethcall.EncodeAddress(token))
	return e.enqueue(caller, gaugeAddr, setterSig, ethcall.Args(ethcall.EncodeAddress(token), word), delay, new(big.Int).SetUint64(uint64(current)), sanity, parameter)
}

// SetReservePriceFeedStatus proposes toggling a token's reserve price feed on
// the price oracle. Like ForbidAdapter, the policy is a pure authorization
// gate.
func (e *Engine) SetReservePriceFeedStatus(caller, priceOracle, token common.Address, active bool) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyFor(token, ParamReservePriceFeedStatus)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, big.NewInt(0), big.NewInt(0), caller)
	if err != nil {
		return common.Hash{}, err
	}
	data := ethcall.Args(ethcall.EncodeAddress(token), ethcall.EncodeBool(active))
	return e.enqueue(caller, priceOracle, "setReservePriceFeedStatus(address,bool)", data, delay, nil, nil, ParamReservePriceFeedStatus)
}

// ForbidBoundsUpdate proposes permanently revoking a price feed's permission
// to update its own bounds. Pure authorization gate, no staleness guard.
func (e *Engine) ForbidBoundsUpdate(caller, priceFeed common.Address) (common.Hash, error) {
	if err := e.ready(); err != nil {
		return common.Hash{}, err
	}
	key, err := e.keyFor(priceFeed, ParamUpdateBoundsAllowed)
	if err != nil {
		return common.Hash{}, err
	}
	delay, err := e.checkAndDelay(key, big.NewInt(0), big.NewInt(0), caller)
	if err != nil {
		return common.Hash{}, err
	}
	return e.enqueue(caller, priceFeed, "forbidBoundsUpdate()", nil, delay, nil, nil, ParamUpdateBoundsAllowed)
}
