package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"bountychain/core/types"
	"bountychain/gateway/middleware"
)

const transactionsRequestLimit = 1 << 16 // 64 KiB

// submit decodes a signed transaction and hands it to the node. Dispatch
// failures still return the receipt, since the sender's nonce was consumed.
func (br *bountyRoutes) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, transactionsRequestLimit+1))
	if err != nil {
		writeError(w, fmt.Errorf("%w: read body: %v", errBadRequest, err), nil)
		return
	}
	if len(body) > transactionsRequestLimit {
		writeError(w, fmt.Errorf("%w: request body too large", errBadRequest), nil)
		return
	}
	var tx types.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		writeError(w, fmt.Errorf("%w: decode transaction: %v", errBadRequest, err), nil)
		return
	}

	receipt, err := br.ledger.SubmitTransaction(r.Context(), &tx)
	if err != nil {
		if receipt == nil {
			br.logger.Warn("transaction refused",
				slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
				slog.Any("error", err))
		}
		writeError(w, err, receipt)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
