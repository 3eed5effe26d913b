package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bountychain/core"
	"bountychain/core/genesis"
	"bountychain/crypto"
	"bountychain/gateway/routes"
	"bountychain/storage"
)

func init() {
	keystoreStrength = crypto.LightKeystore
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func newGateway(t *testing.T, funded [20]byte) *httptest.Server {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), 3, [20]byte{0x99})
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec([]byte(fmt.Sprintf("alloc:\n  %s: \"100\"\n", crypto.FromArray(funded).String())))
	require.NoError(t, err)
	_, err = node.ApplyGenesis(spec)
	require.NoError(t, err)
	handler, err := routes.New(routes.Config{Ledger: node})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newKeystore(t *testing.T) (string, [20]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wallet.keystore")
	require.NoError(t, crypto.SaveToKeystore(path, key, "correct horse", crypto.LightKeystore))
	return path, key.PubKey().Address().Array()
}

func TestApplyGlobalFlags(t *testing.T) {
	lookup := func(values map[string]string) func(string) (string, bool) {
		return func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}
	}
	gateway, rest, err := applyGlobalFlags([]string{"treasury"}, lookup(nil))
	require.NoError(t, err)
	require.Equal(t, defaultGateway, gateway)
	require.Equal(t, []string{"treasury"}, rest)

	gateway, _, err = applyGlobalFlags([]string{"treasury"}, lookup(map[string]string{gatewayEnv: "http://env:1/"}))
	require.NoError(t, err)
	require.Equal(t, "http://env:1", gateway)

	gateway, rest, err = applyGlobalFlags([]string{"--gateway", "http://flag:2", "puzzle", "15"}, lookup(map[string]string{gatewayEnv: "http://env:1"}))
	require.NoError(t, err)
	require.Equal(t, "http://flag:2", gateway)
	require.Equal(t, []string{"puzzle", "15"}, rest)

	_, _, err = applyGlobalFlags([]string{"--gateway"}, lookup(nil))
	require.Error(t, err)
	_, _, err = applyGlobalFlags([]string{"--gateway="}, lookup(nil))
	require.Error(t, err)
}

func TestGenerateKeyAndAddress(t *testing.T) {
	t.Setenv(keyPassphraseEnv, "correct horse")
	out := filepath.Join(t.TempDir(), "new.keystore")

	code, stdout, stderr := runCLI(t, "generate-key", "--out", out)
	require.Equal(t, 0, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], string(crypto.BountyPrefix)+"1"))

	code, stdout, stderr = runCLI(t, "address", "--key", out)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, lines[1], strings.TrimSpace(stdout))
}

func TestCreateAndSolveAgainstGateway(t *testing.T) {
	t.Setenv(keyPassphraseEnv, "correct horse")
	keyPath, addr := newKeystore(t)
	srv := newGateway(t, addr)

	code, stdout, stderr := runCLI(t, "--gateway", srv.URL, "create", "--key", keyPath, "--number", "15", "--reward", "100")
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, `"status": "ok"`)

	code, stdout, stderr = runCLI(t, "--gateway", srv.URL, "solve", "--key", keyPath, "--number", "15", "--a", "4", "--b", "5")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "wrong_solution")
	require.Contains(t, stdout, `"status": "failed"`)

	code, _, stderr = runCLI(t, "--gateway", srv.URL, "solve", "--key", keyPath, "--number", "15", "--a", "3", "--b", "5")
	require.Equal(t, 0, code, stderr)

	code, stdout, _ = runCLI(t, "--gateway", srv.URL, "treasury")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, `"total": "20"`)

	code, stdout, _ = runCLI(t, "--gateway", srv.URL, "balance", crypto.FromArray(addr).String())
	require.Equal(t, 0, code)
	require.Contains(t, stdout, `"free": "80"`)
	require.Contains(t, stdout, `"nonce": 3`)

	code, stdout, _ = runCLI(t, "--gateway", srv.URL, "solution", "15")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, `"a": 3`)

	code, _, stderr = runCLI(t, "--gateway", srv.URL, "puzzles")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "404")
}

func TestCommandErrors(t *testing.T) {
	code, _, stderr := runCLI(t)
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "Usage")

	code, _, stderr = runCLI(t, "frobnicate")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "unknown command")

	code, _, stderr = runCLI(t, "puzzle")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "exactly one number")

	code, _, stderr = runCLI(t, "balance", "not-an-address")
	require.Equal(t, 1, code)
	require.NotEmpty(t, stderr)

	code, _, stderr = runCLI(t, "create", "--reward", "-5")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "invalid reward")

	code, _, _ = runCLI(t, "--gateway", "http://127.0.0.1:1", "treasury")
	require.Equal(t, 1, code)
}
