package bounty

import (
	"math/bits"

	"github.com/holiman/uint256"
)

const (
	// BasisPoints is the denominator for share calculations.
	BasisPoints = 10_000
	// SolverShareBps is the portion of a reward paid to the solver. The
	// treasury receives the remainder.
	SolverShareBps = 8_000
)

var (
	basisPoints    = uint256.NewInt(BasisPoints)
	solverShareBps = uint256.NewInt(SolverShareBps)
)

// SplitReward divides reward between solver and treasury. The solver share is
// rounded down and the treasury share is the exact remainder, so the two
// always sum to reward.
func SplitReward(reward *uint256.Int) (solver, treasury *uint256.Int, err error) {
	if reward == nil || reward.IsZero() {
		return nil, nil, ErrZeroReward
	}
	solver, overflow := new(uint256.Int).MulDivOverflow(reward, solverShareBps, basisPoints)
	if overflow {
		return nil, nil, ErrArithmeticOverflow
	}
	treasury, underflow := new(uint256.Int).SubOverflow(reward, solver)
	if underflow {
		return nil, nil, ErrArithmeticOverflow
	}
	return solver, treasury, nil
}

// checkedProduct multiplies the factors, reporting ErrArithmeticOverflow when
// the product does not fit in 64 bits.
func checkedProduct(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}
