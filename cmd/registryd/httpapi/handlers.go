package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/metrics"
)

type registerVoterRequest struct {
	Stake       oracle.Amount `json:"stake"`
	Name        string        `json:"name"`
	MetadataURL string        `json:"metadata_url"`
}

func (s *Server) registerVoter(w http.ResponseWriter, r *http.Request) {
	var req registerVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sender := senderHeader(r)
	if err := s.svc.RegisterVoter(r.Context(), sender, req.Stake, req.Name, req.MetadataURL); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"voter": string(sender)})
}

type registerVoterForRequest struct {
	Voter oracle.ChainID `json:"voter"`
	Stake oracle.Amount  `json:"stake"`
	Name  string         `json:"name"`
}

func (s *Server) registerVoterFor(w http.ResponseWriter, r *http.Request) {
	var req registerVoterForRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	admin := senderHeader(r)
	if err := s.svc.RegisterVoterFor(r.Context(), admin, req.Voter, req.Stake, req.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"voter": string(req.Voter)})
}

func (s *Server) getVoter(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Voter(r.Context(), chainParam(r, "chain"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

type stakeRequest struct {
	Amount oracle.Amount `json:"amount"`
}

func (s *Server) updateStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sender := chainParam(r, "chain")
	if err := s.svc.UpdateStake(r.Context(), sender, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withdrawStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sender := chainParam(r, "chain")
	if err := s.svc.WithdrawStake(r.Context(), sender, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) deregisterVoter(w http.ResponseWriter, r *http.Request) {
	sender := chainParam(r, "chain")
	if err := s.svc.DeregisterVoter(r.Context(), sender); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) claimRewards(w http.ResponseWriter, r *http.Request) {
	voter := chainParam(r, "chain")
	amt, err := s.svc.ClaimRewards(r.Context(), voter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"amount": int64(amt)})
}

type createQueryRequest struct {
	Description      string                  `json:"description"`
	Outcomes         []string                `json:"outcomes"`
	Strategy         oracle.Strategy         `json:"strategy"`
	MinVotes         int                     `json:"min_votes"`
	RewardPool       oracle.Amount           `json:"reward_pool"`
	ExplicitDeadline string                  `json:"explicit_deadline,omitempty"`
	Callback         *oracle.CallbackBinding `json:"callback,omitempty"`
}

func (s *Server) createQuery(w http.ResponseWriter, r *http.Request) {
	var req createQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	deadline, err := parseTime(req.ExplicitDeadline)
	if err != nil {
		http.Error(w, "invalid explicit_deadline", http.StatusBadRequest)
		return
	}
	sender := senderHeader(r)
	q, err := s.svc.CreateQuery(r.Context(), sender, req.Description, req.Outcomes, req.Strategy,
		req.MinVotes, req.RewardPool, req.Callback, deadline)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, q)
}

// getQuery reads a query through TouchQuery, so even a plain GET runs the
// same lazy phase refresh every mutating operation does.
func (s *Server) getQuery(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.svc.TouchQuery(r.Context(), queryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

type commitRequest struct {
	CommitHash string `json:"commit_hash"`
}

func (s *Server) commitVote(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	voter := senderHeader(r)
	err = s.svc.CommitVote(r.Context(), voter, queryID, req.CommitHash)
	metrics.RecordCommit(resultLabel(err))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type revealRequest struct {
	Value      string `json:"value"`
	Salt       string `json:"salt"`
	Confidence *int   `json:"confidence,omitempty"`
}

func (s *Server) revealVote(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	voter := senderHeader(r)
	err = s.svc.RevealVote(r.Context(), voter, queryID, req.Value, req.Salt, req.Confidence)
	metrics.RecordReveal(resultLabel(err))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "revealed"})
}

type submitVoteRequest struct {
	Value      string `json:"value"`
	Confidence *int   `json:"confidence,omitempty"`
}

func (s *Server) submitVote(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req submitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	voter := senderHeader(r)
	err = s.svc.SubmitVote(r.Context(), voter, queryID, req.Value, req.Confidence)
	metrics.RecordCommit(resultLabel(err))
	metrics.RecordReveal(resultLabel(err))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
}

func (s *Server) resolveQuery(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sender := senderHeader(r)
	q, err := s.svc.ResolveQuery(r.Context(), sender, queryID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) cancelQuery(w http.ResponseWriter, r *http.Request) {
	queryID, err := queryIDParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sender := senderHeader(r)
	if err := s.svc.CancelQuery(r.Context(), sender, queryID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) updateParameters(w http.ResponseWriter, r *http.Request) {
	var next oracle.Parameters
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sender := senderHeader(r)
	if err := s.svc.UpdateParameters(r.Context(), sender, next); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRequest struct {
	Paused bool `json:"paused"`
}

func (s *Server) setProtocolStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sender := senderHeader(r)
	if err := s.svc.SetProtocolStatus(r.Context(), sender, req.Paused); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createQueryFromRequesterRequest struct {
	Question            string          `json:"question"`
	Outcomes            []string        `json:"outcomes"`
	Strategy            oracle.Strategy `json:"strategy"`
	MinVotes            int             `json:"min_votes"`
	RewardPool          oracle.Amount   `json:"reward_pool"`
	ExplicitDeadline    string          `json:"deadline,omitempty"`
	CallbackApplication string          `json:"callback_application,omitempty"`
	OpaqueData          []byte          `json:"opaque_data,omitempty"`
}

// createQueryFromRequester handles the inbound CreateQueryFromRequester
// message: an external application asking the registry to open a query on
// its behalf, binding a callback back to its own chain.
func (s *Server) createQueryFromRequester(w http.ResponseWriter, r *http.Request) {
	var req createQueryFromRequesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	deadline, err := parseTime(req.ExplicitDeadline)
	if err != nil {
		http.Error(w, "invalid deadline", http.StatusBadRequest)
		return
	}
	requester := senderHeader(r)
	q, err := s.svc.CreateQueryFromRequester(r.Context(), requester, req.Question, req.Outcomes, req.Strategy,
		req.MinVotes, req.RewardPool, deadline, req.CallbackApplication, req.OpaqueData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, q)
}

type receiveTokensRequest struct {
	From   oracle.ChainID `json:"from"`
	Amount oracle.Amount  `json:"amount"`
}

// receiveTokens handles the inbound ReceiveTokens message a bound token
// application sends once it has moved funds to the registry's account, ahead
// of the voter's own UpdateStake reconciliation. The receipt is recorded for
// the voter named in the body's "from" field, not for the sending chain.
func (s *Server) receiveTokens(w http.ResponseWriter, r *http.Request) {
	var req receiveTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.svc.ReceiveTokens(r.Context(), req.From, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tokensReturnedRequest struct {
	To     oracle.ChainID `json:"to"`
	Amount oracle.Amount  `json:"amount"`
}

// tokensReturned handles the inbound TokensReturned acknowledgement from the
// token application once an outbound transfer dispatched by WithdrawStake or
// ClaimRewards has landed.
func (s *Server) tokensReturned(w http.ResponseWriter, r *http.Request) {
	var req tokensReturnedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.svc.TokensReturned(r.Context(), req.To, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(oracle.KindOf(err))
}
