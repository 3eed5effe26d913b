package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bountychain/crypto"
	"bountychain/indexer"
)

type bountyRoutes struct {
	ledger    Ledger
	directory Directory
	logger    *slog.Logger
}

// puzzleView carries the factor pair only once solved. A solved view always
// includes both factors, as solutionView does.
type puzzleView struct {
	Number    uint64  `json:"number"`
	Status    string  `json:"status"`
	Requester string  `json:"requester,omitempty"`
	Reward    string  `json:"reward,omitempty"`
	Solver    string  `json:"solver,omitempty"`
	A         *uint64 `json:"a,omitempty"`
	B         *uint64 `json:"b,omitempty"`
}

type solutionView struct {
	Number uint64 `json:"number"`
	A      uint64 `json:"a"`
	B      uint64 `json:"b"`
	Solver string `json:"solver"`
}

type accountView struct {
	Address  string `json:"address"`
	Nonce    uint64 `json:"nonce"`
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
}

type treasuryView struct {
	Address string `json:"address"`
	Total   string `json:"total"`
	ChainID uint64 `json:"chainId"`
}

func parseNumber(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "number"))
	number, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", errBadRequest, raw)
	}
	return number, nil
}

// puzzle reports an open puzzle, falling back to the solution table so a
// solved number is distinguishable from an unknown one.
func (br *bountyRoutes) puzzle(w http.ResponseWriter, r *http.Request) {
	number, err := parseNumber(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	puzzle, ok, err := br.ledger.Puzzle(number)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if ok {
		writeJSON(w, http.StatusOK, puzzleView{
			Number:    puzzle.Number,
			Status:    indexer.StatusOpen,
			Requester: crypto.FromArray(puzzle.Requester).String(),
			Reward:    puzzle.Reward.Dec(),
		})
		return
	}
	solution, ok, err := br.ledger.Solution(number)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if !ok {
		writeError(w, fmt.Errorf("%w: puzzle %d", errNotFound, number), nil)
		return
	}
	writeJSON(w, http.StatusOK, puzzleView{
		Number: solution.Number,
		Status: indexer.StatusSolved,
		Solver: crypto.FromArray(solution.Solver).String(),
		A:      &solution.A,
		B:      &solution.B,
	})
}

func (br *bountyRoutes) solution(w http.ResponseWriter, r *http.Request) {
	number, err := parseNumber(r)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	solution, ok, err := br.ledger.Solution(number)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if !ok {
		writeError(w, fmt.Errorf("%w: solution %d", errNotFound, number), nil)
		return
	}
	writeJSON(w, http.StatusOK, solutionView{
		Number: solution.Number,
		A:      solution.A,
		B:      solution.B,
		Solver: crypto.FromArray(solution.Solver).String(),
	})
}

// listPuzzles serves the indexer's view. It is only available when an
// indexer is configured.
func (br *bountyRoutes) listPuzzles(w http.ResponseWriter, r *http.Request) {
	if br.directory == nil {
		writeError(w, fmt.Errorf("%w: puzzle index disabled", errNotFound), nil)
		return
	}
	limit, err := indexer.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	records, err := br.directory.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")), limit)
	if err != nil {
		if errors.Is(err, indexer.ErrInvalidStatus) {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
			return
		}
		br.logger.Error("list puzzles", slog.Any("error", err))
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"puzzles": records})
}

func (br *bountyRoutes) treasury(w http.ResponseWriter, r *http.Request) {
	total, err := br.ledger.TreasuryTotal()
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, treasuryView{
		Address: crypto.FromArray(br.ledger.TreasuryAddress()).String(),
		Total:   total.Dec(),
		ChainID: br.ledger.ChainID(),
	})
}

func (br *bountyRoutes) account(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.ParseAccount(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	acc, err := br.ledger.Account(addr)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, accountView{
		Address:  crypto.FromArray(addr).String(),
		Nonce:    acc.Nonce,
		Free:     acc.Free.Dec(),
		Reserved: acc.Reserved.Dec(),
	})
}
