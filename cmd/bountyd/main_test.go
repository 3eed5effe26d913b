package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bountychain/config"
	"bountychain/crypto"
	"bountychain/storage"
)

func TestResolveGenesisPath(t *testing.T) {
	env := func(values map[string]string) envLookupFunc {
		return func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}
	}
	require.Equal(t, "cli.yaml", resolveGenesisPath(" cli.yaml ", "cfg.yaml", env(map[string]string{genesisPathEnv: "env.yaml"})))
	require.Equal(t, "env.yaml", resolveGenesisPath("", "cfg.yaml", env(map[string]string{genesisPathEnv: "env.yaml"})))
	require.Equal(t, "cfg.yaml", resolveGenesisPath("", "cfg.yaml", env(map[string]string{genesisPathEnv: "  "})))
	require.Equal(t, "", resolveGenesisPath("", "", nil))
}

func TestBuildAppServesGenesisState(t *testing.T) {
	dir := t.TempDir()
	holder := [20]byte{0x42}
	treasury := [20]byte{0x77}
	genesisPath := filepath.Join(dir, "genesis.yaml")
	doc := fmt.Sprintf("chainId: 5\nalloc:\n  %s: \"1_000\"\n", crypto.FromArray(holder).String())
	require.NoError(t, os.WriteFile(genesisPath, []byte(doc), 0o600))

	cfg := &config.Config{
		ListenAddress:   "127.0.0.1:0",
		DBBackend:       storage.BackendMemory,
		ChainID:         5,
		TreasuryAddress: crypto.FromArray(treasury).String(),
		Environment:     "test",
		Indexer: config.Indexer{
			Driver: "sqlite",
			DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := buildApp(cfg, options{genesisPath: genesisPath}, logger)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.index)
	require.Nil(t, a.publisher)

	res := httptest.NewRecorder()
	a.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/accounts/"+crypto.FromArray(holder).String(), nil))
	require.Equal(t, http.StatusOK, res.Code)
	var account map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &account))
	require.Equal(t, "1000", account["free"])

	res = httptest.NewRecorder()
	a.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/puzzles", nil))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestBuildAppRejectsMismatchedGenesis(t *testing.T) {
	dir := t.TempDir()
	genesisPath := filepath.Join(dir, "genesis.yaml")
	require.NoError(t, os.WriteFile(genesisPath, []byte("chainId: 9\n"), 0o600))

	cfg := &config.Config{
		DBBackend:       storage.BackendMemory,
		ChainID:         5,
		TreasuryAddress: crypto.FromArray([20]byte{0x77}).String(),
	}
	_, err := buildApp(cfg, options{genesisPath: genesisPath}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
