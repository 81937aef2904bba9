package reputation

import (
	"errors"
	"fmt"
	"sync"
)

// storage abstracts the subset of state manager functionality required by the
// reputation ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	scorePrefix     = []byte("reputation/score/")
	completedPrefix = []byte("reputation/completed/")
)

// MaxScore bounds every participant's reputation. Scores start at zero and
// never leave [0, MaxScore] regardless of how many settlements accrue.
const MaxScore uint32 = 1000

var (
	// ErrNotInitialised marks ledger calls before a storage backend is wired.
	ErrNotInitialised = errors.New("reputation: ledger not initialised")
	// ErrZeroAddress marks queries and updates against the zero identity.
	ErrZeroAddress = errors.New("reputation: address required")
)

func scoreKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", scorePrefix, addr))
}

func completedKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", completedPrefix, addr))
}

type storedScore struct {
	Score uint32
}

type storedCompleted struct {
	Count uint64
}

// Ledger persists per-participant reputation scores and completed-job
// counters. Scores move only on settlement outcomes; there is no decay.
// Updates serialize through an internal lock so settlements of distinct jobs
// touching the same participant cannot race.
type Ledger struct {
	mu    sync.Mutex
	store storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

// Score returns the participant's current reputation. Unknown participants
// report zero.
func (l *Ledger) Score(addr [20]byte) (uint32, error) {
	if l == nil || l.store == nil {
		return 0, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.score(addr)
}

func (l *Ledger) score(addr [20]byte) (uint32, error) {
	if addr == ([20]byte{}) {
		return 0, ErrZeroAddress
	}
	var stored storedScore
	ok, err := l.store.KVGet(scoreKey(addr), &stored)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if stored.Score > MaxScore {
		return MaxScore, nil
	}
	return stored.Score, nil
}

// Increase raises the participant's score by delta, capped at MaxScore, and
// returns the resulting value.
func (l *Ledger) Increase(addr [20]byte, delta uint32) (uint32, error) {
	if l == nil || l.store == nil {
		return 0, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.score(addr)
	if err != nil {
		return 0, err
	}
	next := current + delta
	if next > MaxScore || next < current {
		next = MaxScore
	}
	if err := l.store.KVPut(scoreKey(addr), &storedScore{Score: next}); err != nil {
		return 0, err
	}
	return next, nil
}

// Decrease lowers the participant's score by delta, floored at zero, and
// returns the resulting value.
func (l *Ledger) Decrease(addr [20]byte, delta uint32) (uint32, error) {
	if l == nil || l.store == nil {
		return 0, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.score(addr)
	if err != nil {
		return 0, err
	}
	next := uint32(0)
	if current > delta {
		next = current - delta
	}
	if err := l.store.KVPut(scoreKey(addr), &storedScore{Score: next}); err != nil {
		return 0, err
	}
	return next, nil
}

// CompletedJobs returns the number of settlements the participant delivered.
func (l *Ledger) CompletedJobs(addr [20]byte) (uint64, error) {
	if l == nil || l.store == nil {
		return 0, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed(addr)
}

func (l *Ledger) completed(addr [20]byte) (uint64, error) {
	if addr == ([20]byte{}) {
		return 0, ErrZeroAddress
	}
	var stored storedCompleted
	ok, err := l.store.KVGet(completedKey(addr), &stored)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return stored.Count, nil
}

// RecordCompletion increments the participant's completed-job counter and
// returns the new total.
func (l *Ledger) RecordCompletion(addr [20]byte) (uint64, error) {
	if l == nil || l.store == nil {
		return 0, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.completed(addr)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := l.store.KVPut(completedKey(addr), &storedCompleted{Count: next}); err != nil {
		return 0, err
	}
	return next, nil
}
