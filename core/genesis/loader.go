// core/genesis/loader.go
package genesis

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"bountychain/crypto"
)

func parseAllocations(raw map[string]string) ([]Allocation, error) {
	seen := make(map[[20]byte]string, len(raw))
	out := make([]Allocation, 0, len(raw))
	for addrStr, amountStr := range raw {
		addr, err := crypto.ParseAccount(addrStr)
		if err != nil {
			return nil, fmt.Errorf("alloc[%s]: %w", addrStr, err)
		}
		if prev, dup := seen[addr]; dup {
			return nil, fmt.Errorf("alloc[%s]: duplicate of %s", addrStr, prev)
		}
		seen[addr] = addrStr
		amount, err := parseAmount(amountStr)
		if err != nil {
			return nil, fmt.Errorf("alloc[%s]: %w", addrStr, err)
		}
		if amount.IsZero() {
			continue
		}
		out = append(out, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out, nil
}

func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}
