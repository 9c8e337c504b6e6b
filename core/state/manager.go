package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"riskgov/native/controller"
	"riskgov/native/riskpolicy"
	"riskgov/native/timelock"
	"riskgov/storage"
)

const (
	policyPrefix   = "riskpolicy/policy/"
	groupPrefix    = "riskpolicy/group/"
	timelockPrefix = "timelock/tx/"
	auditPrefix    = "audit/record/"
	auditSeqKey    = "audit/seq"
	vetoAdminKey   = "timelock/veto-admin"
)

// Manager adapts a key-value database to the state surfaces the governance
// engines persist through: policy records and group labels for the policy
// store, queued transactions for the timelock, and the append-only audit log
// for the dispatcher.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager wraps the database in a state manager.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func policyKey(key common.Hash) []byte {
	return []byte(policyPrefix + key.Hex())
}

func groupKey(contract common.Address) []byte {
	return []byte(groupPrefix + contract.Hex())
}

func timelockKey(hash common.Hash) []byte {
	return []byte(timelockPrefix + hash.Hex())
}

func auditKey(sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", auditPrefix, sequence))
}

// getJSON loads and decodes the value under key. The missing case is reported
// through the boolean, not the error.
func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put(key, raw)
}

// PolicyPut persists a policy record under its derived key.
func (m *Manager) PolicyPut(key common.Hash, policy *riskpolicy.Policy) error {
	return m.putJSON(policyKey(key), policy)
}

// PolicyGet loads a policy record by its derived key.
func (m *Manager) PolicyGet(key common.Hash) (*riskpolicy.Policy, bool, error) {
	policy := new(riskpolicy.Policy)
	ok, err := m.getJSON(policyKey(key), policy)
	if err != nil || !ok {
		return nil, ok, err
	}
	return policy, true, nil
}

// GroupSet persists a contract's group label.
func (m *Manager) GroupSet(contract common.Address, group string) error {
	return m.db.Put(groupKey(contract), []byte(group))
}

// GroupGet loads a contract's group label.
func (m *Manager) GroupGet(contract common.Address) (string, bool, error) {
	key := groupKey(contract)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return "", ok, err
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// TimelockPut persists a queued transaction record under its hash.
func (m *Manager) TimelockPut(hash common.Hash, tx *timelock.QueuedTransaction) error {
	return m.putJSON(timelockKey(hash), tx)
}

// TimelockGet loads a queued transaction record by hash.
func (m *Manager) TimelockGet(hash common.Hash) (*timelock.QueuedTransaction, bool, error) {
	tx := new(timelock.QueuedTransaction)
	ok, err := m.getJSON(timelockKey(hash), tx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return tx, true, nil
}

// VetoAdminPut persists the rotated veto identity so a restart does not
// silently fall back to the configured default.
func (m *Manager) VetoAdminPut(addr common.Address) error {
	return m.db.Put([]byte(vetoAdminKey), addr.Bytes())
}

// VetoAdminGet loads the persisted veto identity, if one was ever rotated.
func (m *Manager) VetoAdminGet() (common.Address, bool, error) {
	key := []byte(vetoAdminKey)
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return common.Address{}, ok, err
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return common.Address{}, false, err
	}
	return common.BytesToAddress(raw), true, nil
}

// AuditAppend assigns the next sequence number to the record and persists it.
// Sequences start at 1 and never repeat, so the log reconstructs the exact
// ordering of governance actions.
func (m *Manager) AuditAppend(record *controller.AuditRecord) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	head, err := m.auditHeadLocked()
	if err != nil {
		return 0, err
	}
	record.Sequence = head + 1
	if err := m.putJSON(auditKey(record.Sequence), record); err != nil {
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], record.Sequence)
	if err := m.db.Put([]byte(auditSeqKey), buf[:]); err != nil {
		return 0, err
	}
	return record.Sequence, nil
}

// AuditHead returns the sequence of the latest audit record, zero when the
// log is empty.
func (m *Manager) AuditHead() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auditHeadLocked()
}

func (m *Manager) auditHeadLocked() (uint64, error) {
	ok, err := m.db.Has([]byte(auditSeqKey))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	raw, err := m.db.Get([]byte(auditSeqKey))
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: corrupt audit sequence, %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// AuditRange loads audit records with sequences in [from, to], clamped to the
// log's bounds. A zero from starts at the first record.
func (m *Manager) AuditRange(from, to uint64) ([]*controller.AuditRecord, error) {
	head, err := m.AuditHead()
	if err != nil {
		return nil, err
	}
	if from == 0 {
		from = 1
	}
	if to == 0 || to > head {
		to = head
	}
	var records []*controller.AuditRecord
	for seq := from; seq <= to; seq++ {
		record := new(controller.AuditRecord)
		ok, err := m.getJSON(auditKey(seq), record)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
