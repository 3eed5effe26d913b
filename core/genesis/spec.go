// core/genesis/spec.go
package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"bountychain/crypto"
)

// GenesisSpec describes the initial state of a bounty node. The file is YAML;
// JSON documents are accepted as well since they are valid YAML.
type GenesisSpec struct {
	ChainID  *uint64           `yaml:"chainId,omitempty" json:"chainId,omitempty"`
	Treasury string            `yaml:"treasury,omitempty" json:"treasury,omitempty"`
	Alloc    map[string]string `yaml:"alloc" json:"alloc"` // addr -> amount

	chainIDValue uint64
	hasChainID   bool
	treasury     [20]byte
	hasTreasury  bool
	allocations  []Allocation
}

// Allocation is a parsed genesis balance.
type Allocation struct {
	Address [20]byte
	Amount  *uint256.Int
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) ChainIDValue() (uint64, bool) {
	if s.hasChainID {
		return s.chainIDValue, true
	}
	return 0, false
}

// TreasuryAddress returns the treasury account named by the genesis file, if
// any.
func (s *GenesisSpec) TreasuryAddress() ([20]byte, bool) {
	return s.treasury, s.hasTreasury
}

// Allocations returns the validated balances ordered by address.
func (s *GenesisSpec) Allocations() []Allocation {
	out := make([]Allocation, len(s.allocations))
	for i, alloc := range s.allocations {
		out[i] = Allocation{Address: alloc.Address, Amount: new(uint256.Int).Set(alloc.Amount)}
	}
	return out
}

func (s *GenesisSpec) validate() error {
	s.hasChainID = false
	s.chainIDValue = 0
	if s.ChainID != nil {
		if *s.ChainID == 0 {
			return fmt.Errorf("chainId must be positive")
		}
		s.hasChainID = true
		s.chainIDValue = *s.ChainID
	}

	s.hasTreasury = false
	if trimmed := strings.TrimSpace(s.Treasury); trimmed != "" {
		addr, err := crypto.ParseAccount(trimmed)
		if err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
		if addr == ([20]byte{}) {
			return fmt.Errorf("treasury must not be the zero address")
		}
		s.treasury = addr
		s.hasTreasury = true
	}

	allocations, err := parseAllocations(s.Alloc)
	if err != nil {
		return err
	}
	s.allocations = allocations
	return nil
}
