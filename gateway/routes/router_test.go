package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bountychain/core"
	"bountychain/core/genesis"
	"bountychain/core/types"
	"bountychain/crypto"
	"bountychain/gateway/middleware"
	"bountychain/indexer"
	"bountychain/storage"
)

const testChainID = 11

var testTreasury = [20]byte{0xAB, 0xCD}

type signer struct {
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return &signer{key: key, addr: key.PubKey().Address().Array()}
}

func (s *signer) body(t *testing.T, tx *types.Transaction) []byte {
	t.Helper()
	tx.ChainID = testChainID
	tx.Nonce = s.nonce
	require.NoError(t, tx.Sign(s.key.PrivateKey))
	s.nonce++
	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	return raw
}

type harness struct {
	node    *core.Node
	index   *indexer.Indexer
	handler http.Handler
}

func newHarness(t *testing.T, funded [20]byte, limiter *middleware.RateLimiter) *harness {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), testChainID, testTreasury)
	require.NoError(t, err)
	doc := fmt.Sprintf("alloc:\n  %s: \"100\"\n", crypto.FromArray(funded).String())
	spec, err := genesis.ParseGenesisSpec([]byte(doc))
	require.NoError(t, err)
	_, err = node.ApplyGenesis(spec)
	require.NoError(t, err)

	idx, err := indexer.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	node.SetEmitter(idx)

	handler, err := New(Config{
		Ledger:        node,
		Directory:     idx,
		RateLimiter:   limiter,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{Enabled: true}, nil),
	})
	require.NoError(t, err)
	return &harness{node: node, index: idx, handler: handler}
}

func (h *harness) do(t *testing.T, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	res := httptest.NewRecorder()
	h.handler.ServeHTTP(res, req)
	var payload map[string]interface{}
	if res.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload), res.Body.String())
	}
	return res, payload
}

func createTx(number, reward uint64) *types.Transaction {
	return &types.Transaction{Type: types.TxTypeCreateProblem, Number: number, Reward: new(big.Int).SetUint64(reward)}
}

func solveTx(number, a, b uint64) *types.Transaction {
	return &types.Transaction{Type: types.TxTypeTrySolve, Number: number, A: a, B: b}
}

func TestBountyLifecycleOverHTTP(t *testing.T) {
	requester := newSigner(t)
	solver := newSigner(t)
	h := newHarness(t, requester.addr, nil)

	res, payload := h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, createTx(15, 100)))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	require.Equal(t, core.StatusOK, payload["status"])
	require.NotEmpty(t, res.Header().Get(middleware.RequestIDHeader))

	res, payload = h.do(t, http.MethodGet, "/v1/puzzles/15", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, indexer.StatusOpen, payload["status"])
	require.Equal(t, "100", payload["reward"])
	require.NotContains(t, payload, "a")
	require.NotContains(t, payload, "b")

	res, payload = h.do(t, http.MethodPost, "/v1/transactions", solver.body(t, solveTx(15, 4, 5)))
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, "wrong_solution", payload["code"])
	receipt, ok := payload["receipt"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, core.StatusFailed, receipt["status"])

	res, _ = h.do(t, http.MethodPost, "/v1/transactions", solver.body(t, solveTx(15, 3, 5)))
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res, payload = h.do(t, http.MethodGet, "/v1/puzzles/15", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, indexer.StatusSolved, payload["status"])
	require.Equal(t, float64(3), payload["a"])
	require.Equal(t, float64(5), payload["b"])

	res, payload = h.do(t, http.MethodGet, "/v1/solutions/15", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, float64(3), payload["a"])
	require.Equal(t, crypto.FromArray(solver.addr).String(), payload["solver"])

	res, payload = h.do(t, http.MethodGet, "/v1/treasury", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "20", payload["total"])
	require.Equal(t, crypto.FromArray(testTreasury).String(), payload["address"])

	res, payload = h.do(t, http.MethodGet, "/v1/accounts/"+crypto.FromArray(solver.addr).String(), nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "80", payload["free"])
	require.Equal(t, float64(2), payload["nonce"])

	res, payload = h.do(t, http.MethodPost, "/v1/transactions", solver.body(t, solveTx(15, 5, 3)))
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "already_solved", payload["code"])

	res, payload = h.do(t, http.MethodGet, "/v1/puzzles?status=solved", nil)
	require.Equal(t, http.StatusOK, res.Code)
	listed, ok := payload["puzzles"].([]interface{})
	require.True(t, ok)
	require.Len(t, listed, 1)
	require.Equal(t, "80", listed[0].(map[string]interface{})["solverShare"])
}

func TestTransactionRejections(t *testing.T) {
	requester := newSigner(t)
	h := newHarness(t, requester.addr, nil)

	res, payload := h.do(t, http.MethodPost, "/v1/transactions", []byte("{not json"))
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_request", payload["code"])

	unsigned, err := json.Marshal(&types.Transaction{ChainID: testChainID, Type: types.TxTypeCreateProblem, Number: 15})
	require.NoError(t, err)
	res, payload = h.do(t, http.MethodPost, "/v1/transactions", unsigned)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "invalid_signature", payload["code"])

	first := requester.body(t, createTx(15, 10))
	res, _ = h.do(t, http.MethodPost, "/v1/transactions", first)
	require.Equal(t, http.StatusOK, res.Code)
	res, payload = h.do(t, http.MethodPost, "/v1/transactions", first)
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "nonce_mismatch", payload["code"])
	require.Nil(t, payload["receipt"])

	res, payload = h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, createTx(1, 10)))
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "wrong_number", payload["code"])

	res, payload = h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, createTx(21, 1000)))
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	require.Equal(t, "insufficient_balance", payload["code"])

	res, payload = h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, solveTx(77, 7, 11)))
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "no_such_equation", payload["code"])

	var negative map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(requester.body(t, createTx(33, 10)), &negative))
	negative["reward"] = json.RawMessage("-100")
	encoded, err := json.Marshal(negative)
	require.NoError(t, err)
	res, payload = h.do(t, http.MethodPost, "/v1/transactions", encoded)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "zero_reward", payload["code"])
	require.Nil(t, payload["receipt"])
}

func TestQueryErrors(t *testing.T) {
	h := newHarness(t, [20]byte{1}, nil)

	res, payload := h.do(t, http.MethodGet, "/v1/puzzles/abc", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "invalid_request", payload["code"])

	res, payload = h.do(t, http.MethodGet, "/v1/puzzles/99", nil)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "not_found", payload["code"])

	res, _ = h.do(t, http.MethodGet, "/v1/solutions/99", nil)
	require.Equal(t, http.StatusNotFound, res.Code)

	res, _ = h.do(t, http.MethodGet, "/v1/accounts/nope", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = h.do(t, http.MethodGet, "/v1/puzzles?status=pending", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = h.do(t, http.MethodGet, "/v1/puzzles?limit=-3", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = h.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.Body.String())

	res, _ = h.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "bounty_gateway_requests_total")
}

func TestSubmissionIsRateLimited(t *testing.T) {
	requester := newSigner(t)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		RateLimitKey: {RequestsPerSecond: 0.001, Burst: 1},
	}, nil)
	h := newHarness(t, requester.addr, limiter)

	res, _ := h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, createTx(15, 10)))
	require.Equal(t, http.StatusOK, res.Code)
	res, _ = h.do(t, http.MethodPost, "/v1/transactions", requester.body(t, createTx(21, 10)))
	require.Equal(t, http.StatusTooManyRequests, res.Code)

	// Reads are not throttled.
	res, _ = h.do(t, http.MethodGet, "/v1/treasury", nil)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestNewRequiresLedger(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, errNilLedger)
}
