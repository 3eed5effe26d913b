package crypto

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{0xAB}, 20))

	encoded := FromArray(raw).String()
	require.Contains(t, encoded, string(BountyPrefix)+"1")

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, BountyPrefix, decoded.Prefix())
	require.Equal(t, raw, decoded.Array())
}

func TestParseAccount(t *testing.T) {
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{0x01}, 20))

	fromBech, err := ParseAccount(FromArray(raw).String())
	require.NoError(t, err)
	require.Equal(t, raw, fromBech)

	fromHex, err := ParseAccount("0x" + hex.EncodeToString(raw[:]))
	require.NoError(t, err)
	require.Equal(t, raw, fromHex)

	_, err = ParseAccount("")
	require.Error(t, err)
	_, err = ParseAccount("0x1234")
	require.Error(t, err)

	other := NewAddress("other", raw[:]).String()
	_, err = ParseAccount(other)
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "requester.json")
	require.NoError(t, SaveToKeystore(path, key, "secret", LightKeystore))

	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
