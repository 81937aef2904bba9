package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"agentpay/native/escrow"
	"agentpay/storage"
)

var (
	jobPrefix           = []byte("escrow/job/")
	disputePrefix       = []byte("escrow/dispute/")
	employerIndexPrefix = []byte("escrow/jobs/employer/")
	workerIndexPrefix   = []byte("escrow/jobs/worker/")
	nextJobIDKey        = []byte("escrow/nextid")
)

// Manager is the single coordinating access point over the key-value backend:
// jobs, dispute records, the per-participant job indices, and the monotonic id
// counter. Read-modify-write sequences serialize through its lock; the escrow,
// bank and reputation ledgers layer their own locking on top.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut stores the provided value under the supplied key using JSON encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	if len(key) == 0 {
		return fmt.Errorf("state: key must not be empty")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state: database not configured")
	}
	if len(key) == 0 {
		return false, fmt.Errorf("state: key must not be empty")
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func jobKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", jobPrefix, id))
}

func disputeKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", disputePrefix, id))
}

func employerIndexKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", employerIndexPrefix, addr))
}

func workerIndexKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", workerIndexPrefix, addr))
}

// NextJobID allocates the next monotonically increasing job identifier,
// starting at 1. Identifiers are never reused.
func (m *Manager) NextJobID() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counter struct {
		Next uint64
	}
	ok, err := m.KVGet(nextJobIDKey, &counter)
	if err != nil {
		return 0, err
	}
	if !ok {
		counter.Next = 1
	}
	id := counter.Next
	counter.Next = id + 1
	if err := m.KVPut(nextJobIDKey, &counter); err != nil {
		return 0, err
	}
	return id, nil
}

// JobPut sanitizes and persists the job record.
func (m *Manager) JobPut(job *escrow.Job) error {
	sanitized, err := escrow.SanitizeJob(job)
	if err != nil {
		return err
	}
	return m.KVPut(jobKey(sanitized.ID), sanitized)
}

// JobGet retrieves the job stored under the id. The caller receives a copy.
func (m *Manager) JobGet(id uint64) (*escrow.Job, bool, error) {
	var job escrow.Job
	ok, err := m.KVGet(jobKey(id), &job)
	if err != nil || !ok {
		return nil, false, err
	}
	return job.Clone(), true, nil
}

// JobsAppendEmployer indexes the job id under the employer's list.
func (m *Manager) JobsAppendEmployer(addr [20]byte, id uint64) error {
	return m.appendIndex(employerIndexKey(addr), id)
}

// JobsAppendWorker indexes the job id under the worker's list.
func (m *Manager) JobsAppendWorker(addr [20]byte, id uint64) error {
	return m.appendIndex(workerIndexKey(addr), id)
}

func (m *Manager) appendIndex(key []byte, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	if _, err := m.KVGet(key, &ids); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return m.KVPut(key, ids)
}

// JobsByEmployer lists job ids created by the employer, oldest first.
func (m *Manager) JobsByEmployer(addr [20]byte) ([]uint64, error) {
	return m.readIndex(employerIndexKey(addr))
}

// JobsByWorker lists job ids assigned to the worker, oldest first.
func (m *Manager) JobsByWorker(addr [20]byte) ([]uint64, error) {
	return m.readIndex(workerIndexKey(addr))
}

func (m *Manager) readIndex(key []byte) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := []uint64{}
	if _, err := m.KVGet(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// storedDispute is the persistence shape of a dispute record. Voter
// identities are hex encoded because JSON cannot key maps by byte arrays.
type storedDispute struct {
	JobID            uint64
	Active           bool
	RaisedAt         int64
	RaisedBy         [20]byte
	Reason           string
	VotesForEmployer uint64
	VotesForWorker   uint64
	Voters           []string
}

// DisputePut persists the dispute record keyed by its job id.
func (m *Manager) DisputePut(d *escrow.Dispute) error {
	if d == nil {
		return fmt.Errorf("state: nil dispute")
	}
	stored := storedDispute{
		JobID:            d.JobID,
		Active:           d.Active,
		RaisedAt:         d.RaisedAt,
		RaisedBy:         d.RaisedBy,
		Reason:           d.Reason,
		VotesForEmployer: d.VotesForEmployer,
		VotesForWorker:   d.VotesForWorker,
		Voters:           make([]string, 0, len(d.HasVoted)),
	}
	for voter := range d.HasVoted {
		stored.Voters = append(stored.Voters, hex.EncodeToString(voter[:]))
	}
	return m.KVPut(disputeKey(d.JobID), &stored)
}

// DisputeGet retrieves the dispute record for the job id, if any. The caller
// receives a copy; resolved disputes remain readable with Active=false.
func (m *Manager) DisputeGet(jobID uint64) (*escrow.Dispute, bool, error) {
	var stored storedDispute
	ok, err := m.KVGet(disputeKey(jobID), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	dispute := &escrow.Dispute{
		JobID:            stored.JobID,
		Active:           stored.Active,
		RaisedAt:         stored.RaisedAt,
		RaisedBy:         stored.RaisedBy,
		Reason:           stored.Reason,
		VotesForEmployer: stored.VotesForEmployer,
		VotesForWorker:   stored.VotesForWorker,
		HasVoted:         make(map[[20]byte]bool, len(stored.Voters)),
	}
	for _, encoded := range stored.Voters {
		raw, err := hex.DecodeString(encoded)
		if err != nil || len(raw) != 20 {
			return nil, false, fmt.Errorf("state: corrupt voter entry %q", encoded)
		}
		var voter [20]byte
		copy(voter[:], raw)
		dispute.HasVoted[voter] = true
	}
	return dispute, true, nil
}
