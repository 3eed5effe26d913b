package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"bountychain/core/events"
	"bountychain/core/genesis"
	corestate "bountychain/core/state"
	"bountychain/core/types"
	"bountychain/crypto"
	"bountychain/native/bank"
	"bountychain/native/bounty"
	"bountychain/native/common"
	"bountychain/observability/metrics"
	"bountychain/storage"
)

var (
	ErrNilTransaction   = errors.New("core: transaction required")
	ErrInvalidChainID   = errors.New("core: transaction chain id mismatch")
	ErrNonceMismatch    = errors.New("core: nonce mismatch")
	ErrUnknownTxType    = errors.New("core: unsupported transaction type")
	ErrGenesisChainID   = errors.New("core: genesis chain id mismatch")
	ErrGenesisTreasury  = errors.New("core: genesis treasury does not match node treasury")
	ErrInvalidNodeSetup = errors.New("core: invalid node configuration")
)

// Receipt status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Receipt reports the outcome of a submitted transaction. A failed receipt
// still consumed the sender's nonce.
type Receipt struct {
	TxHash string         `json:"txHash"`
	Sender string         `json:"sender"`
	Type   string         `json:"type"`
	Nonce  uint64         `json:"nonce"`
	Status string         `json:"status"`
	Code   string         `json:"code,omitempty"`
	Error  string         `json:"error,omitempty"`
	Events []*types.Event `json:"events"`
}

// Node hosts the bounty engine over persistent storage. It is the single
// writer: every mutating call holds stateMu for its full duration and commits
// or discards its overlay before releasing it.
type Node struct {
	db       storage.Database
	chainID  uint64
	treasury [20]byte
	pauses   common.PauseView
	sink     events.Emitter
	logger   *slog.Logger
	stateMu  sync.Mutex
}

// NewNode creates a node over db. The treasury account is fixed for the
// lifetime of the node.
func NewNode(db storage.Database, chainID uint64, treasury [20]byte) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database required", ErrInvalidNodeSetup)
	}
	if chainID == 0 {
		return nil, fmt.Errorf("%w: chain id must be positive", ErrInvalidNodeSetup)
	}
	if treasury == ([20]byte{}) {
		return nil, fmt.Errorf("%w: treasury address required", ErrInvalidNodeSetup)
	}
	return &Node{
		db:       db,
		chainID:  chainID,
		treasury: treasury,
		sink:     events.NoopEmitter{},
		logger:   slog.Default(),
	}, nil
}

// SetEmitter configures the sink that receives events after commit.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if emitter == nil {
		n.sink = events.NoopEmitter{}
		return
	}
	n.sink = emitter
}

// SetPauses configures the module pause view.
func (n *Node) SetPauses(p common.PauseView) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.pauses = p
}

// SetLogger configures the logger used for transaction outcomes.
func (n *Node) SetLogger(logger *slog.Logger) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

func (n *Node) ChainID() uint64 { return n.chainID }

func (n *Node) TreasuryAddress() [20]byte { return n.treasury }

func (n *Node) newBountyEngine(manager *corestate.Manager, emitter events.Emitter) *bounty.Engine {
	engine := bounty.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(bank.NewLedger(manager))
	engine.SetTreasury(n.treasury)
	engine.SetPauses(n.pauses)
	engine.SetEmitter(emitter)
	return engine
}

// SubmitTransaction authenticates tx, dispatches it to the bounty engine and
// commits the result. Authentication failures leave state untouched and return
// no receipt. Once authenticated the sender's nonce is consumed even if
// dispatch fails; in that case the failed receipt is returned together with
// the dispatch error.
func (n *Node) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx.ChainID != n.chainID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidChainID, tx.ChainID, n.chainID)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, err
	}
	var sender [20]byte
	copy(sender[:], fromBytes)

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	account, err := manager.GetAccount(sender[:])
	if err != nil {
		return nil, err
	}
	if tx.Nonce != account.Nonce {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, tx.Nonce, account.Nonce)
	}

	recorder := &events.Recorder{}
	engine := n.newBountyEngine(manager, recorder)
	snapshot := manager.Snapshot()
	dispatchErr := n.dispatch(engine, tx, sender)
	if dispatchErr != nil {
		manager.RevertToSnapshot(snapshot)
		recorder.Reset()
	}

	// Reload since settlement may have moved the sender's balances.
	account, err = manager.GetAccount(sender[:])
	if err != nil {
		manager.Discard()
		return nil, err
	}
	account.Nonce++
	if err := manager.PutAccount(sender[:], account); err != nil {
		manager.Discard()
		return nil, err
	}
	if err := manager.Commit(); err != nil {
		return nil, fmt.Errorf("core: commit state: %w", err)
	}

	emitted := recorder.Events()
	receipt := &Receipt{
		TxHash: "0x" + hex.EncodeToString(hash),
		Sender: crypto.FromArray(sender).String(),
		Type:   tx.Type.String(),
		Nonce:  tx.Nonce,
		Status: StatusOK,
		Events: make([]*types.Event, 0, len(emitted)),
	}
	for _, evt := range emitted {
		n.sink.Emit(evt)
		receipt.Events = append(receipt.Events, events.Render(evt))
	}
	n.observe(engine, tx, dispatchErr, emitted)

	if dispatchErr != nil {
		receipt.Status = StatusFailed
		receipt.Code = bounty.Code(dispatchErr)
		receipt.Error = dispatchErr.Error()
		n.logger.Info("transaction rejected",
			slog.String("tx", receipt.TxHash),
			slog.String("type", receipt.Type),
			slog.String("reason", receipt.Code),
			slog.Any("error", dispatchErr))
		return receipt, dispatchErr
	}
	n.logger.Info("transaction applied",
		slog.String("tx", receipt.TxHash),
		slog.String("type", receipt.Type),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (n *Node) dispatch(engine *bounty.Engine, tx *types.Transaction, sender [20]byte) error {
	switch tx.Type {
	case types.TxTypeCreateProblem:
		reward := new(uint256.Int)
		if tx.Reward != nil {
			var overflow bool
			reward, overflow = uint256.FromBig(tx.Reward)
			if overflow {
				return bounty.ErrArithmeticOverflow
			}
		}
		return engine.Create(tx.Number, reward, sender)
	case types.TxTypeTrySolve:
		_, err := engine.Solve(tx.Number, tx.A, tx.B, sender)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
}

func (n *Node) observe(engine *bounty.Engine, tx *types.Transaction, dispatchErr error, emitted []events.Event) {
	m := metrics.Bounty()
	if dispatchErr != nil {
		reason := bounty.Code(dispatchErr)
		if reason == "" {
			reason = "internal"
		}
		m.RecordRejected(tx.Type.String(), reason)
		return
	}
	for _, evt := range emitted {
		switch e := evt.(type) {
		case events.PuzzleCreated:
			m.RecordCreated(e.Reward)
		case events.PuzzleSolved:
			reward := new(uint256.Int).Add(e.SolverShare, e.TreasuryShare)
			m.RecordSolved(reward)
			m.SetTreasuryTotal(engine.TreasuryTotal())
		}
	}
}

// ApplyGenesis credits the genesis allocations once. It reports false when
// the store already carries a genesis.
func (n *Node) ApplyGenesis(spec *genesis.GenesisSpec) (bool, error) {
	if spec == nil {
		return false, fmt.Errorf("core: genesis spec required")
	}
	if chainID, ok := spec.ChainIDValue(); ok && chainID != n.chainID {
		return false, fmt.Errorf("%w: genesis %d, node %d", ErrGenesisChainID, chainID, n.chainID)
	}
	if treasury, ok := spec.TreasuryAddress(); ok && treasury != n.treasury {
		return false, ErrGenesisTreasury
	}

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	applied, err := manager.GenesisApplied()
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}
	ledger := bank.NewLedger(manager)
	for _, alloc := range spec.Allocations() {
		if err := ledger.Credit(alloc.Address, alloc.Amount); err != nil {
			manager.Discard()
			return false, fmt.Errorf("core: genesis allocation: %w", err)
		}
	}
	if err := manager.MarkGenesisApplied(); err != nil {
		manager.Discard()
		return false, err
	}
	if err := manager.Commit(); err != nil {
		return false, fmt.Errorf("core: commit genesis: %w", err)
	}
	return true, nil
}

// Account returns the balances and nonce of addr.
func (n *Node) Account(addr [20]byte) (*types.Account, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	return manager.GetAccount(addr[:])
}

// Puzzle returns the open puzzle for number.
func (n *Node) Puzzle(number uint64) (*bounty.Puzzle, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	return manager.PuzzleGet(number)
}

// Solution returns the solved record for number.
func (n *Node) Solution(number uint64) (*bounty.Solution, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	return manager.SolutionGet(number)
}

// TreasuryTotal returns the running total credited to the treasury.
func (n *Node) TreasuryTotal() (*uint256.Int, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := corestate.NewManager(n.db)
	return manager.BountyTreasuryTotal()
}
