package bounty

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrWrongNumber        = errors.New("bounty: number must be greater than one")
	ErrZeroReward         = errors.New("bounty: reward must be positive")
	ErrAlreadyExists      = errors.New("bounty: puzzle already exists")
	ErrAlreadySolved      = errors.New("bounty: puzzle already solved")
	ErrNoSuchEquation     = errors.New("bounty: no such puzzle")
	ErrWrongSolution      = errors.New("bounty: factors do not multiply to number")
	ErrArithmeticOverflow = errors.New("bounty: arithmetic overflow")

	ErrNilState              = errors.New("bounty engine: state not configured")
	ErrNilLedger             = errors.New("bounty engine: balance ledger not configured")
	ErrTreasuryNotConfigured = errors.New("bounty engine: treasury not configured")
)

// Puzzle is an open factorization challenge. The number is both the storage
// key and the value to factor; the reward stays reserved against the
// requester until the puzzle is solved.
type Puzzle struct {
	Number    uint64
	Requester [20]byte
	Reward    *uint256.Int
}

// Clone returns a deep copy of the puzzle.
func (p *Puzzle) Clone() *Puzzle {
	if p == nil {
		return nil
	}
	out := *p
	if p.Reward != nil {
		out.Reward = new(uint256.Int).Set(p.Reward)
	} else {
		out.Reward = new(uint256.Int)
	}
	return &out
}

// Solution is the immutable record of an accepted factor pair.
type Solution struct {
	Number uint64
	A      uint64
	B      uint64
	Solver [20]byte
}

// Clone returns a copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// Settlement describes how a solved puzzle's reward was distributed.
type Settlement struct {
	Number        uint64
	Requester     [20]byte
	Solver        [20]byte
	Reward        *uint256.Int
	SolverShare   *uint256.Int
	TreasuryShare *uint256.Int
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrWrongNumber, "wrong_number"},
	{ErrZeroReward, "zero_reward"},
	{ErrAlreadyExists, "already_exists"},
	{ErrAlreadySolved, "already_solved"},
	{ErrNoSuchEquation, "no_such_equation"},
	{ErrWrongSolution, "wrong_solution"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
}

// Code returns the stable identifier of a bounty error, or the empty string
// when err does not wrap one.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return ""
}
