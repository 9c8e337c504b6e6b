package timelock

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/core/types"
)

type timelockEvent struct {
	evt *types.Event
}

func (t timelockEvent) EventType() string {
	if t.evt == nil {
		return ""
	}
	return t.evt.Type
}

func (t timelockEvent) Event() *types.Event { return t.evt }

func newQueuedEvent(hash common.Hash, tx *QueuedTransaction) *types.Event {
	attrs := make(map[string]string)
	attrs["txHash"] = hash.Hex()
	if tx != nil {
		attrs["executor"] = tx.Executor.Hex()
		attrs["target"] = tx.Target.Hex()
		if tx.Signature != "" {
			attrs["signature"] = tx.Signature
		}
		attrs["eta"] = strconv.FormatInt(tx.Eta.Unix(), 10)
	}
	return &types.Event{Type: EventTypeQueued, Attributes: attrs}
}

func newCancelledEvent(hash common.Hash, actor common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeCancelled,
		Attributes: map[string]string{
			"txHash": hash.Hex(),
			"actor":  actor.Hex(),
		},
	}
}

func newExecutedEvent(hash common.Hash, tx *QueuedTransaction) *types.Event {
	attrs := make(map[string]string)
	attrs["txHash"] = hash.Hex()
	if tx != nil {
		attrs["executor"] = tx.Executor.Hex()
		attrs["target"] = tx.Target.Hex()
	}
	return &types.Event{Type: EventTypeExecuted, Attributes: attrs}
}
