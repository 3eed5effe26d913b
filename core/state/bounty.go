package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"bountychain/native/bounty"
)

type storedPuzzle struct {
	Number    uint64
	Requester [20]byte
	Reward    *big.Int
}

type storedSolution struct {
	Number uint64
	A      uint64
	B      uint64
	Solver [20]byte
}

// PuzzleGet loads the open puzzle for number.
func (m *Manager) PuzzleGet(number uint64) (*bounty.Puzzle, bool, error) {
	var stored storedPuzzle
	ok, err := m.KVGet(PuzzleKey(number), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	if stored.Number != number {
		return nil, false, fmt.Errorf("state: puzzle record %d stored under key %d", stored.Number, number)
	}
	reward, err := fromBig(stored.Reward)
	if err != nil {
		return nil, false, err
	}
	return &bounty.Puzzle{Number: stored.Number, Requester: stored.Requester, Reward: reward}, true, nil
}

// PuzzlePut stores an open puzzle.
func (m *Manager) PuzzlePut(p *bounty.Puzzle) error {
	if p == nil {
		return fmt.Errorf("state: nil puzzle")
	}
	return m.KVPut(PuzzleKey(p.Number), &storedPuzzle{
		Number:    p.Number,
		Requester: p.Requester,
		Reward:    toBig(p.Reward),
	})
}

// PuzzleDelete removes the open puzzle for number.
func (m *Manager) PuzzleDelete(number uint64) error {
	return m.KVDelete(PuzzleKey(number))
}

// SolutionGet loads the solved record for number.
func (m *Manager) SolutionGet(number uint64) (*bounty.Solution, bool, error) {
	var stored storedSolution
	ok, err := m.KVGet(SolutionKey(number), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bounty.Solution{Number: stored.Number, A: stored.A, B: stored.B, Solver: stored.Solver}, true, nil
}

// SolutionPut stores a solved record.
func (m *Manager) SolutionPut(s *bounty.Solution) error {
	if s == nil {
		return fmt.Errorf("state: nil solution")
	}
	return m.KVPut(SolutionKey(s.Number), &storedSolution{
		Number: s.Number,
		A:      s.A,
		B:      s.B,
		Solver: s.Solver,
	})
}

// BountyTreasuryTotal returns the running total credited to the treasury.
func (m *Manager) BountyTreasuryTotal() (*uint256.Int, error) {
	total := new(big.Int)
	ok, err := m.KVGet(bountyTreasuryKey, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return fromBig(total)
}

// SetBountyTreasuryTotal overwrites the treasury running total.
func (m *Manager) SetBountyTreasuryTotal(total *uint256.Int) error {
	return m.KVPut(bountyTreasuryKey, toBig(total))
}
