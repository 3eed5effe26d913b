package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"bountychain/core/types"
)

type storedAccount struct {
	Nonce    uint64
	Free     *big.Int
	Reserved *big.Int
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("state: negative stored amount")
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("state: stored amount exceeds 256 bits")
	}
	return out, nil
}

// GetAccount loads the account for addr. Unknown addresses read as a zeroed
// account.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(AccountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	free, err := fromBig(stored.Free)
	if err != nil {
		return nil, err
	}
	reserved, err := fromBig(stored.Reserved)
	if err != nil {
		return nil, err
	}
	return &types.Account{Nonce: stored.Nonce, Free: free, Reserved: reserved}, nil
}

// PutAccount persists account under addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) != 20 {
		return fmt.Errorf("state: account address must be 20 bytes")
	}
	acc := account.Clone()
	return m.KVPut(AccountKey(addr), &storedAccount{
		Nonce:    acc.Nonce,
		Free:     toBig(acc.Free),
		Reserved: toBig(acc.Reserved),
	})
}

// GenesisApplied reports whether initial allocations were already written.
func (m *Manager) GenesisApplied() (bool, error) {
	var marker uint64
	return m.KVGet(genesisAppliedKey, &marker)
}

// MarkGenesisApplied records that initial allocations were written.
func (m *Manager) MarkGenesisApplied() error {
	return m.KVPut(genesisAppliedKey, uint64(1))
}
