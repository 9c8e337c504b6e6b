package riskpolicy

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var basisPoints = big.NewInt(10_000)

// Evaluator decides whether a proposed parameter transition is acceptable
// under the policy governing it. CheckPolicy is not a pure read: accepting or
// rejecting a transition may rebase the policy's reference point, and the
// rebase is persisted through the store's state backend. Checks serialize on
// an internal mutex so concurrent evaluations of the same policy cannot lose
// a rebase.
type Evaluator struct {
	mu    sync.Mutex
	store *Store
	nowFn func() time.Time
}

// NewEvaluator constructs an evaluator over the given policy store.
func NewEvaluator(store *Store) *Evaluator {
	return &Evaluator{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Evaluator) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

// CheckPolicy validates the transition from oldValue to newValue under the
// policy stored for key, on behalf of caller. It returns false when no policy
// exists, the policy is disabled, the caller is not the policy admin, or any
// enabled bound check fails. The error return is reserved for state backend
// failures.
func (e *Evaluator) CheckPolicy(key common.Hash, oldValue, newValue *big.Int, caller common.Address) (bool, error) {
	if e == nil || e.store == nil || e.store.state == nil {
		return false, errStoreStateNotConfigured
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	policy, ok, err := e.store.state.PolicyGet(key)
	if err != nil {
		return false, err
	}
	if !ok || policy == nil || !policy.Enabled {
		return false, nil
	}
	if caller != policy.Admin {
		return false, nil
	}
	if oldValue == nil {
		oldValue = big.NewInt(0)
	}
	if newValue == nil {
		newValue = big.NewInt(0)
	}
	policy.EnsureDefaults()

	if policy.Flags.Has(CheckExactValue) && newValue.Cmp(policy.ExactValue) != 0 {
		return false, nil
	}
	if policy.Flags.Has(CheckMinValue) && newValue.Cmp(policy.MinValue) < 0 {
		return false, nil
	}
	if policy.Flags.Has(CheckMaxValue) && newValue.Cmp(policy.MaxValue) > 0 {
		return false, nil
	}

	if policy.Flags.Any(changeChecks) {
		now := e.nowFn()
		// The reference point rebases to the live pre-change value once the
		// cooldown elapses; within the window every transition is measured
		// against the same snapshot.
		if now.After(policy.ReferencePointLastUpdate.Add(policy.ReferencePointUpdatePeriod)) {
			policy.ReferencePoint = new(big.Int).Set(oldValue)
			policy.ReferencePointLastUpdate = now
			if err := e.store.state.PolicyPut(key, policy); err != nil {
				return false, err
			}
		}

		diff := new(big.Int).Sub(newValue, policy.ReferencePoint)
		isIncrease := diff.Sign() > 0
		diff.Abs(diff)

		if policy.Flags.Has(CheckMinChange) && diff.Cmp(policy.MinChange) < 0 {
			return false, nil
		}
		if policy.Flags.Has(CheckMaxChange) && diff.Cmp(policy.MaxChange) > 0 {
			return false, nil
		}

		if policy.Flags.Any(CheckMinPctChange | CheckMaxPctChange) {
			if policy.ReferencePoint.Sign() == 0 {
				// Percent bounds are undefined against a zero reference
				// point; fail closed.
				return false, nil
			}
			pctDiff := new(big.Int).Mul(diff, basisPoints)
			pctDiff.Quo(pctDiff, policy.ReferencePoint)

			if policy.Flags.Has(CheckMinPctChange) {
				bound := policy.MinPctChangeDown
				if isIncrease {
					bound = policy.MinPctChangeUp
				}
				if pctDiff.Cmp(new(big.Int).SetUint64(uint64(bound))) < 0 {
					return false, nil
				}
			}
			if policy.Flags.Has(CheckMaxPctChange) {
				bound := policy.MaxPctChangeDown
				if isIncrease {
					bound = policy.MaxPctChangeUp
				}
				if pctDiff.Cmp(new(big.Int).SetUint64(uint64(bound))) > 0 {
					return false, nil
				}
			}
		}
	}

	return true, nil
}

// CheckPolicyFor derives the policy key from the contract's group and the
// parameter name before evaluating the transition.
func (e *Evaluator) CheckPolicyFor(contract common.Address, name string, oldValue, newValue *big.Int, caller common.Address) (bool, error) {
	if e == nil || e.store == nil {
		return false, errStoreStateNotConfigured
	}
	group, err := e.store.Group(contract)
	if err != nil {
		return false, err
	}
	return e.CheckPolicy(DeriveKey(group, name), oldValue, newValue, caller)
}

// CheckPolicyPair derives the policy key from two contracts' groups, in
// order, and the parameter name before evaluating the transition.
func (e *Evaluator) CheckPolicyPair(a, b common.Address, name string, oldValue, newValue *big.Int, caller common.Address) (bool, error) {
	if e == nil || e.store == nil {
		return false, errStoreStateNotConfigured
	}
	groupA, err := e.store.Group(a)
	if err != nil {
		return false, err
	}
	groupB, err := e.store.Group(b)
	if err != nil {
		return false, err
	}
	return e.CheckPolicy(DeriveKey2(groupA, groupB, name), oldValue, newValue, caller)
}
