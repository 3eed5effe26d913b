package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"bountychain/core/types"
	"bountychain/crypto"
)

const (
	TypePuzzleCreated = "bounty.puzzle.created"
	TypePuzzleSolved  = "bounty.puzzle.solved"
)

// PuzzleCreated is emitted once a reward has been escrowed for a number.
type PuzzleCreated struct {
	Number    uint64
	Reward    *uint256.Int
	Requester [20]byte
}

func (PuzzleCreated) EventType() string { return TypePuzzleCreated }

func (e PuzzleCreated) Event() *types.Event {
	return &types.Event{
		Type: TypePuzzleCreated,
		Attributes: map[string]string{
			"number":    strconv.FormatUint(e.Number, 10),
			"reward":    formatAmount(e.Reward),
			"requester": crypto.FromArray(e.Requester).String(),
		},
	}
}

// PuzzleSolved is emitted when a factor pair settles a puzzle.
type PuzzleSolved struct {
	Number        uint64
	A             uint64
	B             uint64
	SolverShare   *uint256.Int
	TreasuryShare *uint256.Int
	Solver        [20]byte
}

func (PuzzleSolved) EventType() string { return TypePuzzleSolved }

func (e PuzzleSolved) Event() *types.Event {
	return &types.Event{
		Type: TypePuzzleSolved,
		Attributes: map[string]string{
			"number":        strconv.FormatUint(e.Number, 10),
			"a":             strconv.FormatUint(e.A, 10),
			"b":             strconv.FormatUint(e.B, 10),
			"solverShare":   formatAmount(e.SolverShare),
			"treasuryShare": formatAmount(e.TreasuryShare),
			"solver":        crypto.FromArray(e.Solver).String(),
		},
	}
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
