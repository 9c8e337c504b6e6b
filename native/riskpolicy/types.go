package riskpolicy

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CheckFlags selects which validation checks a policy applies to a proposed
// transition. The evaluator walks the enabled checks in declaration order and
// short-circuits on the first failure.
type CheckFlags uint8

const (
	// CheckExactValue requires the proposed value to equal ExactValue.
	CheckExactValue CheckFlags = 1 << iota
	// CheckMinValue requires the proposed value to be at least MinValue.
	CheckMinValue
	// CheckMaxValue requires the proposed value to be at most MaxValue.
	CheckMaxValue
	// CheckMinChange requires the absolute change from the reference point to
	// be at least MinChange.
	CheckMinChange
	// CheckMaxChange requires the absolute change from the reference point to
	// be at most MaxChange.
	CheckMaxChange
	// CheckMinPctChange requires the relative change from the reference point
	// to be at least the directional minimum, in basis points.
	CheckMinPctChange
	// CheckMaxPctChange requires the relative change from the reference point
	// to be at most the directional maximum, in basis points.
	CheckMaxPctChange
)

// changeChecks groups the checks measured against the reference point; any of
// them being enabled triggers the rebase bookkeeping.
const changeChecks = CheckMinChange | CheckMaxChange | CheckMinPctChange | CheckMaxPctChange

// Has reports whether all the given flags are set.
func (f CheckFlags) Has(flags CheckFlags) bool { return f&flags == flags }

// Any reports whether at least one of the given flags is set.
func (f CheckFlags) Any(flags CheckFlags) bool { return f&flags != 0 }

// Policy captures the validation rule set and authorization for one policy
// key. Records are overwritten wholesale by SetPolicy and never deleted;
// DisablePolicy only clears the Enabled flag so the historical bounds remain
// auditable.
type Policy struct {
	Enabled bool           `json:"enabled"`
	Admin   common.Address `json:"admin"`
	Delay   time.Duration  `json:"delay"`
	Flags   CheckFlags     `json:"flags"`

	ExactValue *big.Int `json:"exactValue"`
	MinValue   *big.Int `json:"minValue"`
	MaxValue   *big.Int `json:"maxValue"`

	// Reference-point state anchors change-magnitude checks to a periodically
	// rebased snapshot so repeated small moves within the cooldown window
	// cannot sidestep the per-change bounds.
	ReferencePoint             *big.Int      `json:"referencePoint"`
	ReferencePointUpdatePeriod time.Duration `json:"referencePointUpdatePeriod"`
	ReferencePointLastUpdate   time.Time     `json:"referencePointLastUpdate"`

	MinChange *big.Int `json:"minChange"`
	MaxChange *big.Int `json:"maxChange"`

	MinPctChangeUp   uint16 `json:"minPctChangeUp"`
	MinPctChangeDown uint16 `json:"minPctChangeDown"`
	MaxPctChangeUp   uint16 `json:"maxPctChangeUp"`
	MaxPctChangeDown uint16 `json:"maxPctChangeDown"`
}

// Clone returns a deep copy of the policy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	clone := *p
	if p.ExactValue != nil {
		clone.ExactValue = new(big.Int).Set(p.ExactValue)
	}
	if p.MinValue != nil {
		clone.MinValue = new(big.Int).Set(p.MinValue)
	}
	if p.MaxValue != nil {
		clone.MaxValue = new(big.Int).Set(p.MaxValue)
	}
	if p.ReferencePoint != nil {
		clone.ReferencePoint = new(big.Int).Set(p.ReferencePoint)
	}
	if p.MinChange != nil {
		clone.MinChange = new(big.Int).Set(p.MinChange)
	}
	if p.MaxChange != nil {
		clone.MaxChange = new(big.Int).Set(p.MaxChange)
	}
	return &clone
}

// EnsureDefaults populates nil big.Int fields so JSON handling is safe.
func (p *Policy) EnsureDefaults() {
	if p == nil {
		return
	}
	if p.ExactValue == nil {
		p.ExactValue = big.NewInt(0)
	}
	if p.MinValue == nil {
		p.MinValue = big.NewInt(0)
	}
	if p.MaxValue == nil {
		p.MaxValue = big.NewInt(0)
	}
	if p.ReferencePoint == nil {
		p.ReferencePoint = big.NewInt(0)
	}
	if p.MinChange == nil {
		p.MinChange = big.NewInt(0)
	}
	if p.MaxChange == nil {
		p.MaxChange = big.NewInt(0)
	}
}
