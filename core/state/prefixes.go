package state

import "encoding/binary"

var (
	accountPrefix      = []byte("account/")
	puzzleOpenPrefix   = []byte("bounty/open/")
	puzzleSolvedPrefix = []byte("bounty/solved/")
	bountyTreasuryKey  = []byte("bounty/treasury-total")
	genesisAppliedKey  = []byte("genesis/applied")
)

// AccountKey returns the unhashed key of an account record.
func AccountKey(addr []byte) []byte {
	return append(append([]byte(nil), accountPrefix...), addr...)
}

// PuzzleKey returns the unhashed key of an open puzzle.
func PuzzleKey(number uint64) []byte {
	return numberKey(puzzleOpenPrefix, number)
}

// SolutionKey returns the unhashed key of a solved record.
func SolutionKey(number uint64) []byte {
	return numberKey(puzzleSolvedPrefix, number)
}

func numberKey(prefix []byte, number uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], number)
	return buf
}
