package timelock

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GracePeriod bounds how long a matured transaction remains executable. Past
// eta+GracePeriod the transaction is permanently dead and must be re-queued.
const GracePeriod = 14 * 24 * time.Hour

// QueuedTransaction is one pending governance-triggered call. Records are
// tombstones: Queued flips to false on execute or cancel but the entry is
// never removed, preserving the history for off-chain indexers.
type QueuedTransaction struct {
	Queued    bool           `json:"queued"`
	Executor  common.Address `json:"executor"`
	Target    common.Address `json:"target"`
	Eta       time.Time      `json:"eta"`
	Signature string         `json:"signature"`
	Data      []byte         `json:"data"`

	// SanityCheckCallData, when non-empty, is a read-only call made at
	// execute time; its uint256 result must still equal SanityCheckValue or
	// the execution is refused as stale.
	SanityCheckValue    *big.Int `json:"sanityCheckValue"`
	SanityCheckCallData []byte   `json:"sanityCheckCallData"`
}

// Clone returns a deep copy of the transaction record.
func (tx *QueuedTransaction) Clone() *QueuedTransaction {
	if tx == nil {
		return nil
	}
	clone := *tx
	clone.Data = append([]byte(nil), tx.Data...)
	clone.SanityCheckCallData = append([]byte(nil), tx.SanityCheckCallData...)
	if tx.SanityCheckValue != nil {
		clone.SanityCheckValue = new(big.Int).Set(tx.SanityCheckValue)
	}
	return &clone
}
