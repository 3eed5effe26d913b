package bounty

import (
	"fmt"

	"github.com/holiman/uint256"

	"bountychain/core/events"
	"bountychain/native/common"
)

// ModuleName identifies the bounty module for pause checks.
const ModuleName = "bounty"

type engineState interface {
	PuzzleGet(number uint64) (*Puzzle, bool, error)
	PuzzlePut(*Puzzle) error
	PuzzleDelete(number uint64) error
	SolutionGet(number uint64) (*Solution, bool, error)
	SolutionPut(*Solution) error
	BountyTreasuryTotal() (*uint256.Int, error)
	SetBountyTreasuryTotal(*uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Ledger is the reservable balance ledger the engine settles against. Its
// writes must land in the same journaled state as engineState so a reverted
// snapshot also reverts balance movements.
type Ledger interface {
	Reserve(account [20]byte, amount *uint256.Int) error
	// Unreserve releases up to amount and returns the part that could not be
	// released.
	Unreserve(account [20]byte, amount *uint256.Int) *uint256.Int
	Transfer(from, to [20]byte, amount *uint256.Int) error
}

// Engine owns the open puzzle table, the solved table and the treasury
// accumulator. Calls must be serialized by the host; the engine performs no
// locking of its own.
type Engine struct {
	state    engineState
	ledger   Ledger
	emitter  events.Emitter
	pauses   common.PauseView
	treasury [20]byte
}

// NewEngine creates a bounty engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the balance ledger used for escrow and payouts.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetTreasury configures the fixed account credited with the protocol share.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetPauses configures the pause view consulted before state transitions.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// TreasuryAddress returns the configured treasury account.
func (e *Engine) TreasuryAddress() [20]byte { return e.treasury }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	if e.treasury == ([20]byte{}) {
		return ErrTreasuryNotConfigured
	}
	return common.Guard(e.pauses, ModuleName)
}

func (e *Engine) ensureUnknown(number uint64) error {
	if _, ok, err := e.state.PuzzleGet(number); err != nil {
		return err
	} else if ok {
		return ErrAlreadyExists
	}
	if _, ok, err := e.state.SolutionGet(number); err != nil {
		return err
	} else if ok {
		return ErrAlreadySolved
	}
	return nil
}

// Create escrows reward from requester and opens a puzzle for number.
func (e *Engine) Create(number uint64, reward *uint256.Int, requester [20]byte) error {
	if number <= 1 {
		return ErrWrongNumber
	}
	if reward == nil || reward.IsZero() {
		return ErrZeroReward
	}
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.ensureUnknown(number); err != nil {
		return err
	}
	amount := new(uint256.Int).Set(reward)

	snapshot := e.state.Snapshot()
	if err := e.ledger.Reserve(requester, amount); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return fmt.Errorf("bounty: reserve reward: %w", err)
	}
	puzzle := &Puzzle{Number: number, Requester: requester, Reward: amount}
	if err := e.state.PuzzlePut(puzzle); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return err
	}
	e.emit(events.PuzzleCreated{Number: number, Reward: new(uint256.Int).Set(amount), Requester: requester})
	return nil
}

// Solve checks the factor pair and, when a*b equals number, settles the
// reward: the escrow is released, the treasury share moves to the treasury
// account and accumulator, the solver share moves to solver, and the puzzle is
// closed. Either every step lands or none does.
func (e *Engine) Solve(number, a, b uint64, solver [20]byte) (*Settlement, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, solved, err := e.state.SolutionGet(number); err != nil {
		return nil, err
	} else if solved {
		return nil, ErrAlreadySolved
	}
	puzzle, open, err := e.state.PuzzleGet(number)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrNoSuchEquation
	}
	product, err := checkedProduct(a, b)
	if err != nil {
		return nil, err
	}
	if product != number {
		return nil, ErrWrongSolution
	}
	solverShare, treasuryShare, err := SplitReward(puzzle.Reward)
	if err != nil {
		return nil, err
	}

	snapshot := e.state.Snapshot()
	settlement, err := e.settle(puzzle, a, b, solver, solverShare, treasuryShare)
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	e.emit(events.PuzzleSolved{
		Number:        number,
		A:             a,
		B:             b,
		SolverShare:   new(uint256.Int).Set(solverShare),
		TreasuryShare: new(uint256.Int).Set(treasuryShare),
		Solver:        solver,
	})
	return settlement, nil
}

func (e *Engine) settle(p *Puzzle, a, b uint64, solver [20]byte, solverShare, treasuryShare *uint256.Int) (*Settlement, error) {
	if shortfall := e.ledger.Unreserve(p.Requester, p.Reward); shortfall != nil && !shortfall.IsZero() {
		return nil, fmt.Errorf("bounty: escrow short by %s", shortfall.Dec())
	}
	if err := e.ledger.Transfer(p.Requester, e.treasury, treasuryShare); err != nil {
		return nil, fmt.Errorf("bounty: pay treasury: %w", err)
	}
	total, err := e.state.BountyTreasuryTotal()
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(total, treasuryShare)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	if err := e.state.SetBountyTreasuryTotal(next); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(p.Requester, solver, solverShare); err != nil {
		return nil, fmt.Errorf("bounty: pay solver: %w", err)
	}
	if err := e.state.PuzzleDelete(p.Number); err != nil {
		return nil, err
	}
	if err := e.state.SolutionPut(&Solution{Number: p.Number, A: a, B: b, Solver: solver}); err != nil {
		return nil, err
	}
	return &Settlement{
		Number:        p.Number,
		Requester:     p.Requester,
		Solver:        solver,
		Reward:        new(uint256.Int).Set(p.Reward),
		SolverShare:   solverShare,
		TreasuryShare: treasuryShare,
	}, nil
}

// TreasuryTotal returns the running total credited to the treasury. Storage
// failures read as zero.
func (e *Engine) TreasuryTotal() *uint256.Int {
	if e == nil || e.state == nil {
		return new(uint256.Int)
	}
	total, err := e.state.BountyTreasuryTotal()
	if err != nil || total == nil {
		return new(uint256.Int)
	}
	return total
}

// LookupOpen returns the requester and escrowed reward of an open puzzle.
func (e *Engine) LookupOpen(number uint64) ([20]byte, *uint256.Int, bool) {
	if e == nil || e.state == nil {
		return [20]byte{}, nil, false
	}
	puzzle, ok, err := e.state.PuzzleGet(number)
	if err != nil || !ok {
		return [20]byte{}, nil, false
	}
	return puzzle.Requester, puzzle.Reward, true
}

// LookupSolved returns the accepted factor pair of a solved puzzle.
func (e *Engine) LookupSolved(number uint64) (uint64, uint64, bool) {
	if e == nil || e.state == nil {
		return 0, 0, false
	}
	solution, ok, err := e.state.SolutionGet(number)
	if err != nil || !ok {
		return 0, 0, false
	}
	return solution.A, solution.B, true
}

// Solution returns the full solved record, including the solver.
func (e *Engine) Solution(number uint64) (*Solution, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	solution, ok, err := e.state.SolutionGet(number)
	if err != nil || !ok {
		return nil, false
	}
	return solution, true
}
