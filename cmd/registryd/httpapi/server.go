// Package httpapi exposes the registry's operation set as a synchronous
// admin HTTP API. Every handler here is a thin adapter: it decodes a
// request, calls exactly one registry.Service method, and encodes the result
// or the typed oracle.Error it received.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/eventstream"
	"github.com/oraclenet/registry/pkg/logger"
	"github.com/oraclenet/registry/pkg/metrics"
	"github.com/oraclenet/registry/registry"
)

// Server bundles the registry service with its HTTP transport.
type Server struct {
	svc      *registry.Service
	throttle *registry.Throttle
	events   *eventstream.Publisher
	log      *logger.Logger

	router http.Handler
}

// Config captures the dependencies the HTTP server needs.
type Config struct {
	Service  *registry.Service
	Throttle *registry.Throttle
	Events   *eventstream.Publisher
	Log      *logger.Logger
}

// New builds a configured HTTP handler wired to svc.
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("httpapi")
	}
	s := &Server{svc: cfg.Service, throttle: cfg.Throttle, events: cfg.Events, log: cfg.Log}
	s.router = s.buildRouter()
	return s
}

// Handler returns the configured http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(s.senderThrottle)

	r.Get("/metrics", metrics.Handler().ServeHTTP)
	if s.events != nil {
		r.Get("/events", eventstream.WebSocketHandler(s.events, s.log))
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/voters", func(voters chi.Router) {
			voters.Post("/", s.registerVoter)
			voters.Post("/for", s.registerVoterFor)
			voters.Get("/{chain}", s.getVoter)
			voters.Post("/{chain}/stake", s.updateStake)
			voters.Post("/{chain}/withdraw", s.withdrawStake)
			voters.Post("/{chain}/deregister", s.deregisterVoter)
			voters.Post("/{chain}/claim-rewards", s.claimRewards)
		})

		v1.Route("/queries", func(queries chi.Router) {
			queries.Post("/", s.createQuery)
			queries.Get("/{id}", s.getQuery)
			queries.Post("/{id}/commit", s.commitVote)
			queries.Post("/{id}/reveal", s.revealVote)
			queries.Post("/{id}/vote", s.submitVote)
			queries.Post("/{id}/resolve", s.resolveQuery)
			queries.Post("/{id}/cancel", s.cancelQuery)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Post("/parameters", s.updateParameters)
			admin.Post("/status", s.setProtocolStatus)
		})

		// The inbound message surface: asynchronous cross-chain arrivals
		// dispatched into the same state machine as operations, distinguished
		// here only by carrying no admin semantics of their own.
		v1.Route("/messages", func(messages chi.Router) {
			messages.Post("/create-query", s.createQueryFromRequester)
			messages.Post("/receive-tokens", s.receiveTokens)
			messages.Post("/tokens-returned", s.tokensReturned)
		})
	})

	return r
}

// senderThrottle applies registry.Throttle per X-Chain-Id sender before a
// request reaches its handler. Requests without a sender header are exempt
// (e.g. GET reads, /metrics).
func (s *Server) senderThrottle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.throttle == nil {
			next.ServeHTTP(w, r)
			return
		}
		sender := oracle.ChainID(r.Header.Get("X-Chain-Id"))
		if sender == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.throttle.Allow(sender) {
			http.Error(w, "rate limit exceeded for sender", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates a registry error into an HTTP response, preserving
// the closed oracle.ErrorKind enum as the body's "kind" field so callers can
// branch on it without parsing prose.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var oe *oracle.Error
	if errors.As(err, &oe) {
		s.writeJSON(w, statusForKind(oe.Kind), map[string]string{"kind": string(oe.Kind), "message": oe.Message})
		return
	}
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"kind": string(oracle.ErrInternal), "message": err.Error()})
}

func statusForKind(kind oracle.ErrorKind) int {
	switch kind {
	case oracle.ErrUnauthorized:
		return http.StatusForbidden
	case oracle.ErrPaused, oracle.ErrVoterInactive, oracle.ErrWrongPhase, oracle.ErrQueryAlreadyResolved,
		oracle.ErrAlreadyCommitted, oracle.ErrAlreadyRevealed, oracle.ErrStrategyNotPermitted:
		return http.StatusConflict
	case oracle.ErrQueryNotFound, oracle.ErrNotRegistered, oracle.ErrNoCommitment:
		return http.StatusNotFound
	case oracle.ErrInvalidStake, oracle.ErrInvalidOutcomes, oracle.ErrInvalidDeadline,
		oracle.ErrInvalidOutcome, oracle.ErrHashMismatch, oracle.ErrInvalidCommitHash,
		oracle.ErrInvalidConfidence, oracle.ErrAlreadyRegistered, oracle.ErrLowReputation,
		oracle.ErrInsufficientAvailableStake:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func chainParam(r *http.Request, name string) oracle.ChainID {
	return oracle.ChainID(chi.URLParam(r, name))
}

func senderHeader(r *http.Request) oracle.ChainID {
	return oracle.ChainID(r.Header.Get("X-Chain-Id"))
}

func queryIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, oracle.NewError(oracle.ErrQueryNotFound, "invalid query id %q", raw)
	}
	return id, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
