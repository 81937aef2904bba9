package bank

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

// storage abstracts the subset of state manager functionality required by the
// token ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var accountPrefix = []byte("bank/account/")

var (
	// ErrNotInitialised marks ledger calls before a storage backend is wired.
	ErrNotInitialised = errors.New("bank: ledger not initialised")
	// ErrZeroAddress marks operations against the zero identity.
	ErrZeroAddress = errors.New("bank: address required")
	// ErrInvalidAmount marks nil or negative transfer amounts.
	ErrInvalidAmount = errors.New("bank: amount must be non-negative")
)

func accountKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accountPrefix, addr))
}

type storedAccount struct {
	Balance *big.Int
}

// Ledger tracks fungible balances per identity and moves value on behalf of
// the escrow engine. The owner address is the ledger's own spending identity:
// Transfer debits the owner, mirroring a token contract transferring from its
// custody vault. Failed moves return ok=false with no mutation.
type Ledger struct {
	mu    sync.Mutex
	store storage
	owner [20]byte
}

// NewLedger constructs a ledger bound to the provided storage backend. The
// owner address is debited by Transfer calls.
func NewLedger(store storage, owner [20]byte) *Ledger {
	return &Ledger{store: store, owner: owner}
}

// BalanceOf reports the identity's current balance. Unknown identities report
// zero.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrNotInitialised
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(addr)
}

func (l *Ledger) balance(addr [20]byte) (*big.Int, error) {
	if addr == ([20]byte{}) {
		return nil, ErrZeroAddress
	}
	var stored storedAccount
	ok, err := l.store.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok || stored.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(stored.Balance), nil
}

// Mint credits the identity with new balance. Deployments seed participant
// balances through an external bridge; tests use Mint directly.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if l == nil || l.store == nil {
		return ErrNotInitialised
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.balance(addr)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	return l.store.KVPut(accountKey(addr), &storedAccount{Balance: balance})
}

// TransferFrom moves amount from one identity to another. A false return with
// a nil error signals an ordinary failure (insufficient balance) that aborts
// the caller's operation without mutating state.
func (l *Ledger) TransferFrom(from, to [20]byte, amount *big.Int) (bool, error) {
	return l.move(from, to, amount)
}

// Transfer moves amount from the ledger's owner identity to the recipient.
func (l *Ledger) Transfer(to [20]byte, amount *big.Int) (bool, error) {
	return l.move(l.owner, to, amount)
}

func (l *Ledger) move(from, to [20]byte, amount *big.Int) (bool, error) {
	if l == nil || l.store == nil {
		return false, ErrNotInitialised
	}
	if from == ([20]byte{}) || to == ([20]byte{}) {
		return false, ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return false, ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fromBalance, err := l.balance(from)
	if err != nil {
		return false, err
	}
	if fromBalance.Cmp(amount) < 0 {
		return false, nil
	}
	toBalance, err := l.balance(to)
	if err != nil {
		return false, err
	}
	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	if err := l.store.KVPut(accountKey(from), &storedAccount{Balance: fromBalance}); err != nil {
		return false, err
	}
	if err := l.store.KVPut(accountKey(to), &storedAccount{Balance: toBalance}); err != nil {
		return false, err
	}
	return true, nil
}
