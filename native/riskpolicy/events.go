package riskpolicy

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/core/types"
)

type policyEvent struct {
	evt *types.Event
}

func (p policyEvent) EventType() string {
	if p.evt == nil {
		return ""
	}
	return p.evt.Type
}

func (p policyEvent) Event() *types.Event { return p.evt }

func newPolicySetEvent(key common.Hash, policy *Policy) *types.Event {
	attrs := make(map[string]string)
	attrs["key"] = key.Hex()
	if policy != nil {
		attrs["admin"] = policy.Admin.Hex()
		attrs["delay"] = policy.Delay.String()
		attrs["flags"] = strconv.FormatUint(uint64(policy.Flags), 10)
	}
	return &types.Event{Type: EventTypePolicySet, Attributes: attrs}
}

func newPolicyDisabledEvent(key common.Hash) *types.Event {
	return &types.Event{
		Type:       EventTypePolicyDisabled,
		Attributes: map[string]string{"key": key.Hex()},
	}
}

func newGroupSetEvent(contract common.Address, group string) *types.Event {
	return &types.Event{
		Type: EventTypeGroupSet,
		Attributes: map[string]string{
			"contract": contract.Hex(),
			"group":    group,
		},
	}
}
