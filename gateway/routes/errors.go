package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bountychain/core"
	"bountychain/core/types"
	"bountychain/native/bank"
	"bountychain/native/bounty"
	"bountychain/native/common"
)

var (
	errNotFound   = errors.New("not found")
	errBadRequest = errors.New("bad request")
)

type errorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Receipt *core.Receipt `json:"receipt,omitempty"`
}

// classify maps a node error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	if code := bounty.Code(err); code != "" {
		switch {
		case errors.Is(err, bounty.ErrNoSuchEquation):
			return http.StatusNotFound, code
		case errors.Is(err, bounty.ErrAlreadyExists), errors.Is(err, bounty.ErrAlreadySolved):
			return http.StatusConflict, code
		case errors.Is(err, bounty.ErrWrongSolution), errors.Is(err, bounty.ErrArithmeticOverflow):
			return http.StatusUnprocessableEntity, code
		default:
			return http.StatusBadRequest, code
		}
	}
	switch {
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrNilTransaction),
		errors.Is(err, core.ErrUnknownTxType):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, types.ErrNegativeReward):
		return http.StatusBadRequest, bounty.Code(bounty.ErrZeroReward)
	case errors.Is(err, core.ErrInvalidChainID):
		return http.StatusBadRequest, "wrong_chain"
	case errors.Is(err, types.ErrUnsignedTransaction), errors.Is(err, types.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusConflict, "nonce_mismatch"
	case errors.Is(err, bank.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, bank.ErrBalanceOverflow):
		return http.StatusUnprocessableEntity, "arithmetic_overflow"
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable, "paused"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, err error, receipt *core.Receipt) {
	status, code := classify(err)
	message := strings.TrimSpace(err.Error())
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code, Receipt: receipt})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
