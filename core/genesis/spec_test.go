// core/genesis/spec_test.go
package genesis

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bountychain/crypto"
)

func TestLoadGenesisSpecYAML(t *testing.T) {
	addr1 := crypto.NewAddress(crypto.BountyPrefix, bytes.Repeat([]byte{0x02}, 20)).String()
	treasury := crypto.NewAddress(crypto.BountyPrefix, bytes.Repeat([]byte{0xEE}, 20)).String()

	doc := "chainId: 7\n" +
		"treasury: " + treasury + "\n" +
		"alloc:\n" +
		"  " + addr1 + ": \"1_000\"\n" +
		"  \"0x0101010101010101010101010101010101010101\": \"250\"\n" +
		"  \"0x0303030303030303030303030303030303030303\": \"0\"\n"
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	spec, err := LoadGenesisSpec(path)
	require.NoError(t, err)

	chainID, ok := spec.ChainIDValue()
	require.True(t, ok)
	require.Equal(t, uint64(7), chainID)

	addr, ok := spec.TreasuryAddress()
	require.True(t, ok)
	require.Equal(t, byte(0xEE), addr[0])

	allocs := spec.Allocations()
	require.Len(t, allocs, 2)
	require.Equal(t, byte(0x01), allocs[0].Address[0])
	require.Equal(t, uint64(250), allocs[0].Amount.Uint64())
	require.Equal(t, byte(0x02), allocs[1].Address[0])
	require.Equal(t, uint64(1000), allocs[1].Amount.Uint64())
}

func TestParseGenesisSpecJSON(t *testing.T) {
	spec, err := ParseGenesisSpec([]byte(`{"alloc": {"0x0101010101010101010101010101010101010101": "5"}}`))
	require.NoError(t, err)
	_, ok := spec.ChainIDValue()
	require.False(t, ok)
	_, ok = spec.TreasuryAddress()
	require.False(t, ok)
	require.Len(t, spec.Allocations(), 1)
}

func TestParseGenesisSpecRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field": "rewards: 1\n",
		"bad address":   "alloc:\n  nope: \"1\"\n",
		"bad amount":    "alloc:\n  \"0x0101010101010101010101010101010101010101\": \"-1\"\n",
		"zero chain":    "chainId: 0\n",
		"zero treasury": "treasury: \"0x0000000000000000000000000000000000000000\"\n",
		"wrong prefix":  "treasury: " + crypto.NewAddress("cosmos", bytes.Repeat([]byte{0x01}, 20)).String() + "\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGenesisSpec([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadGenesisSpecRequiresPath(t *testing.T) {
	_, err := LoadGenesisSpec(" ")
	require.Error(t, err)
	_, err = LoadGenesisSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
