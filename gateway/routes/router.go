package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bountychain/core"
	"bountychain/core/types"
	"bountychain/gateway/middleware"
	"bountychain/indexer"
	"bountychain/native/bounty"
)

// RateLimitKey names the limit applied to transaction submission.
const RateLimitKey = "transactions"

// Ledger is the node surface the gateway serves.
type Ledger interface {
	ChainID() uint64
	TreasuryAddress() [20]byte
	SubmitTransaction(ctx context.Context, tx *types.Transaction) (*core.Receipt, error)
	Account(addr [20]byte) (*types.Account, error)
	Puzzle(number uint64) (*bounty.Puzzle, bool, error)
	Solution(number uint64) (*bounty.Solution, bool, error)
	TreasuryTotal() (*uint256.Int, error)
}

// Directory lists indexed puzzles. It is optional.
type Directory interface {
	List(ctx context.Context, status string, limit int) ([]indexer.PuzzleRecord, error)
}

type Config struct {
	Ledger        Ledger
	Directory     Directory
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

var errNilLedger = errors.New("routes: ledger required")

func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errNilLedger
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	api := &bountyRoutes{ledger: cfg.Ledger, directory: cfg.Directory, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(sr chi.Router) {
		sr.Group(func(tx chi.Router) {
			if cfg.RateLimiter != nil {
				tx.Use(cfg.RateLimiter.Middleware(RateLimitKey))
			}
			if obs != nil {
				tx.Use(obs.Middleware("transactions"))
			}
			tx.Post("/transactions", api.submit)
		})
		sr.Group(func(read chi.Router) {
			if obs != nil {
				read.Use(obs.Middleware("queries"))
			}
			read.Get("/puzzles", api.listPuzzles)
			read.Get("/puzzles/{number}", api.puzzle)
			read.Get("/solutions/{number}", api.solution)
			read.Get("/treasury", api.treasury)
			read.Get("/accounts/{address}", api.account)
		})
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return otelhttp.NewHandler(r, "bounty-gateway"), nil
}
