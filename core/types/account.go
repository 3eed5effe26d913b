package types

import "github.com/holiman/uint256"

// Account holds the spendable and reserved balances of an address together
// with the request nonce used for replay protection.
type Account struct {
	Nonce    uint64       `json:"nonce"`
	Free     *uint256.Int `json:"free"`
	Reserved *uint256.Int `json:"reserved"`
}

// NewAccount returns an account with zeroed balances.
func NewAccount() *Account {
	return &Account{Free: new(uint256.Int), Reserved: new(uint256.Int)}
}

// Clone returns a deep copy so callers can mutate balances without touching
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	out := &Account{Nonce: a.Nonce, Free: new(uint256.Int), Reserved: new(uint256.Int)}
	if a.Free != nil {
		out.Free.Set(a.Free)
	}
	if a.Reserved != nil {
		out.Reserved.Set(a.Reserved)
	}
	return out
}

// Total returns free plus reserved. The second value reports overflow.
func (a *Account) Total() (*uint256.Int, bool) {
	acc := a.Clone()
	return new(uint256.Int).AddOverflow(acc.Free, acc.Reserved)
}
