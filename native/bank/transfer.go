package bank

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"bountychain/core/types"
)

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	ErrNilState            = errors.New("bank: state not configured")
)

type accountState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Ledger moves native balances between the free and reserved buckets of
// accounts. It writes through the supplied state, so callers that need
// atomicity across several calls snapshot that state around them.
type Ledger struct {
	state accountState
}

// NewLedger creates a ledger over state.
func NewLedger(state accountState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) load(addr [20]byte) (*types.Account, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	acc, err := l.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

func (l *Ledger) store(addr [20]byte, acc *types.Account) error {
	return l.state.PutAccount(addr[:], acc)
}

// Balances returns the free and reserved balances of addr.
func (l *Ledger) Balances(addr [20]byte) (free, reserved *uint256.Int, err error) {
	acc, err := l.load(addr)
	if err != nil {
		return nil, nil, err
	}
	return acc.Free, acc.Reserved, nil
}

// Credit mints amount into the free balance of addr. It is only used to seed
// genesis allocations.
func (l *Ledger) Credit(addr [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(acc.Free, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	if _, overflow := new(uint256.Int).AddOverflow(next, acc.Reserved); overflow {
		return ErrBalanceOverflow
	}
	acc.Free = next
	return l.store(addr, acc)
}

// Reserve moves amount from the free to the reserved balance of addr.
func (l *Ledger) Reserve(addr [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	acc, err := l.load(addr)
	if err != nil {
		return err
	}
	if acc.Free.Lt(amount) {
		return fmt.Errorf("%w: free %s, need %s", ErrInsufficientBalance, acc.Free.Dec(), amount.Dec())
	}
	reserved, overflow := new(uint256.Int).AddOverflow(acc.Reserved, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	acc.Free = new(uint256.Int).Sub(acc.Free, amount)
	acc.Reserved = reserved
	return l.store(addr, acc)
}

// Unreserve moves up to amount from the reserved to the free balance of addr
// and returns the part of amount that was not reserved. A zero return means
// the full amount was released.
func (l *Ledger) Unreserve(addr [20]byte, amount *uint256.Int) *uint256.Int {
	if amount == nil || amount.IsZero() {
		return new(uint256.Int)
	}
	acc, err := l.load(addr)
	if err != nil {
		return new(uint256.Int).Set(amount)
	}
	released := new(uint256.Int).Set(amount)
	if acc.Reserved.Lt(released) {
		released.Set(acc.Reserved)
	}
	free, overflow := new(uint256.Int).AddOverflow(acc.Free, released)
	if overflow {
		return new(uint256.Int).Set(amount)
	}
	acc.Free = free
	acc.Reserved = new(uint256.Int).Sub(acc.Reserved, released)
	if err := l.store(addr, acc); err != nil {
		return new(uint256.Int).Set(amount)
	}
	return new(uint256.Int).Sub(amount, released)
}

// Transfer moves amount between the free balances of two accounts.
func (l *Ledger) Transfer(from, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromAcc, err := l.load(from)
	if err != nil {
		return err
	}
	if fromAcc.Free.Lt(amount) {
		return fmt.Errorf("%w: free %s, need %s", ErrInsufficientBalance, fromAcc.Free.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	toAcc, err := l.load(to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toAcc.Free, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	if _, overflow := new(uint256.Int).AddOverflow(credited, toAcc.Reserved); overflow {
		return ErrBalanceOverflow
	}
	fromAcc.Free = new(uint256.Int).Sub(fromAcc.Free, amount)
	toAcc.Free = credited
	if err := l.store(from, fromAcc); err != nil {
		return err
	}
	return l.store(to, toAcc)
}
