package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/oraclenet/registry/domain/oracle"
)

// PostgresStore implements Store using PostgreSQL with raw SQL, no ORM.
// Counters are kept in a single-row table updated with UPDATE ... SET x = x +
// $1 so concurrent increments serialize at the database rather than racing in
// application memory.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an already-open *sql.DB. Schema migration is the
// caller's responsibility; the Schema constant below holds the DDL this store
// expects.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL oraclenet/registry expects to find applied. It is
// exposed as a constant rather than wired through golang-migrate so a single
// binary deployment (cmd/registryd) can apply it with a plain ExecContext;
// see DESIGN.md for why migrate was dropped from the dependency set.
const Schema = `
CREATE TABLE IF NOT EXISTS oracle_voters (
	chain_id              TEXT PRIMARY KEY,
	stake                 BIGINT NOT NULL,
	locked_stake          BIGINT NOT NULL,
	reputation            INTEGER NOT NULL,
	total_votes           INTEGER NOT NULL,
	correct_votes         INTEGER NOT NULL,
	registered_at         TIMESTAMPTZ NOT NULL,
	is_active             BOOLEAN NOT NULL,
	name                  TEXT NOT NULL DEFAULT '',
	metadata_url          TEXT NOT NULL DEFAULT '',
	total_rewards_earned  BIGINT NOT NULL DEFAULT 0,
	total_slashed         BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oracle_queries (
	id               BIGINT PRIMARY KEY,
	description      TEXT NOT NULL,
	outcomes         TEXT[] NOT NULL,
	strategy         TEXT NOT NULL,
	min_votes        INTEGER NOT NULL,
	reward_pool      BIGINT NOT NULL,
	phase            TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	commit_deadline  TIMESTAMPTZ NOT NULL,
	reveal_deadline  TIMESTAMPTZ NOT NULL,
	resolved_outcome TEXT,
	resolved_at      TIMESTAMPTZ,
	creator          TEXT NOT NULL,
	callback_chain   TEXT,
	callback_app     TEXT,
	callback_data    BYTEA,
	commits          INTEGER NOT NULL DEFAULT 0,
	reveals          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oracle_commitments (
	query_id     BIGINT NOT NULL,
	voter        TEXT NOT NULL,
	commit_hash  BYTEA NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL,
	stake_locked BIGINT NOT NULL,
	PRIMARY KEY (query_id, voter)
);

CREATE TABLE IF NOT EXISTS oracle_reveals (
	query_id    BIGINT NOT NULL,
	voter       TEXT NOT NULL,
	value       TEXT NOT NULL,
	salt        TEXT NOT NULL,
	confidence  INTEGER,
	revealed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (query_id, voter)
);

CREATE TABLE IF NOT EXISTS oracle_pending_rewards (
	voter  TEXT PRIMARY KEY,
	amount BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oracle_pending_receipts (
	voter  TEXT PRIMARY KEY,
	amount BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS oracle_parameters (
	id                          INTEGER PRIMARY KEY DEFAULT 1,
	min_stake                   BIGINT NOT NULL,
	max_stake                   BIGINT NOT NULL,
	default_query_duration_ns   BIGINT NOT NULL,
	commit_phase_duration_ns    BIGINT NOT NULL,
	reveal_phase_duration_ns    BIGINT NOT NULL,
	stake_lock_fraction         DOUBLE PRECISION NOT NULL,
	reward_per_correct_vote     BIGINT NOT NULL,
	slash_fraction_incorrect    DOUBLE PRECISION NOT NULL,
	slash_fraction_no_reveal    DOUBLE PRECISION NOT NULL,
	reputation_delta_correct    INTEGER NOT NULL,
	reputation_delta_incorrect  INTEGER NOT NULL,
	reputation_delta_no_reveal  INTEGER NOT NULL,
	min_reputation_to_vote      INTEGER NOT NULL,
	min_votes_default           INTEGER NOT NULL,
	max_outcomes                INTEGER NOT NULL,
	paused                      BOOLEAN NOT NULL,
	admin_chain                 TEXT NOT NULL,
	token_application           TEXT NOT NULL DEFAULT '',
	CHECK (id = 1)
);

CREATE TABLE IF NOT EXISTS oracle_counters (
	id                 INTEGER PRIMARY KEY DEFAULT 1,
	next_query_id      BIGINT NOT NULL DEFAULT 1,
	voter_count        BIGINT NOT NULL DEFAULT 0,
	total_stake        BIGINT NOT NULL DEFAULT 0,
	reward_pool_total  BIGINT NOT NULL DEFAULT 0,
	CHECK (id = 1)
);

INSERT INTO oracle_counters (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

func (s *PostgresStore) GetVoter(ctx context.Context, id oracle.ChainID) (oracle.VoterRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain_id, stake, locked_stake, reputation, total_votes, correct_votes,
		       registered_at, is_active, name, metadata_url, total_rewards_earned, total_slashed
		FROM oracle_voters WHERE chain_id = $1
	`, string(id))
	var v oracle.VoterRecord
	var chain string
	err := row.Scan(&chain, &v.Stake, &v.LockedStake, &v.Reputation, &v.TotalVotes, &v.CorrectVotes,
		&v.RegisteredAt, &v.IsActive, &v.Name, &v.MetadataURL, &v.TotalRewardsEarned, &v.TotalSlashed)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.VoterRecord{}, false, nil
	}
	if err != nil {
		return oracle.VoterRecord{}, false, err
	}
	v.Voter = oracle.ChainID(chain)
	return v, true, nil
}

func (s *PostgresStore) PutVoter(ctx context.Context, v oracle.VoterRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_voters (chain_id, stake, locked_stake, reputation, total_votes, correct_votes,
		                            registered_at, is_active, name, metadata_url, total_rewards_earned, total_slashed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (chain_id) DO UPDATE SET
			stake = EXCLUDED.stake, locked_stake = EXCLUDED.locked_stake, reputation = EXCLUDED.reputation,
			total_votes = EXCLUDED.total_votes, correct_votes = EXCLUDED.correct_votes, is_active = EXCLUDED.is_active,
			name = EXCLUDED.name, metadata_url = EXCLUDED.metadata_url,
			total_rewards_earned = EXCLUDED.total_rewards_earned, total_slashed = EXCLUDED.total_slashed
	`, string(v.Voter), v.Stake, v.LockedStake, v.Reputation, v.TotalVotes, v.CorrectVotes,
		v.RegisteredAt, v.IsActive, v.Name, v.MetadataURL, v.TotalRewardsEarned, v.TotalSlashed)
	return err
}

func (s *PostgresStore) ListVoters(ctx context.Context) ([]oracle.VoterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chain_id, stake, locked_stake, reputation, total_votes, correct_votes,
		       registered_at, is_active, name, metadata_url, total_rewards_earned, total_slashed
		FROM oracle_voters ORDER BY chain_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oracle.VoterRecord
	for rows.Next() {
		var v oracle.VoterRecord
		var chain string
		if err := rows.Scan(&chain, &v.Stake, &v.LockedStake, &v.Reputation, &v.TotalVotes, &v.CorrectVotes,
			&v.RegisteredAt, &v.IsActive, &v.Name, &v.MetadataURL, &v.TotalRewardsEarned, &v.TotalSlashed); err != nil {
			return nil, err
		}
		v.Voter = oracle.ChainID(chain)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) NextQueryID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx, `
		UPDATE oracle_counters SET next_query_id = next_query_id + 1
		WHERE id = 1
		RETURNING next_query_id - 1
	`).Scan(&id)
	return id, err
}

func (s *PostgresStore) GetQuery(ctx context.Context, id uint64) (oracle.Query, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, outcomes, strategy, min_votes, reward_pool, phase, created_at,
		       commit_deadline, reveal_deadline, resolved_outcome, resolved_at, creator,
		       callback_chain, callback_app, callback_data, commits, reveals
		FROM oracle_queries WHERE id = $1
	`, int64(id))
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.Query{}, false, nil
	}
	if err != nil {
		return oracle.Query{}, false, err
	}
	return q, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (oracle.Query, error) {
	var q oracle.Query
	var id int64
	var callbackChain, callbackApp sql.NullString
	var callbackData []byte
	var resolvedOutcome sql.NullString
	var resolvedAt sql.NullTime
	var outcomes []string

	err := row.Scan(&id, &q.Description, pq.Array(&outcomes), &q.Strategy, &q.MinVotes, &q.RewardPool, &q.Phase,
		&q.CreatedAt, &q.CommitDeadline, &q.RevealDeadline, &resolvedOutcome, &resolvedAt, &q.Creator,
		&callbackChain, &callbackApp, &callbackData, &q.Commits, &q.Reveals)
	if err != nil {
		return oracle.Query{}, err
	}
	q.ID = uint64(id)
	q.Outcomes = outcomes
	if resolvedOutcome.Valid {
		q.ResolvedOutcome = &resolvedOutcome.String
	}
	if resolvedAt.Valid {
		q.ResolvedAt = &resolvedAt.Time
	}
	if callbackChain.Valid {
		q.Callback = &oracle.CallbackBinding{
			Chain:       oracle.ChainID(callbackChain.String),
			Application: callbackApp.String,
			OpaqueData:  callbackData,
		}
	}
	return q, nil
}

func (s *PostgresStore) PutQuery(ctx context.Context, q oracle.Query) error {
	var callbackChain, callbackApp sql.NullString
	var callbackData []byte
	if q.Callback != nil {
		callbackChain = sql.NullString{String: string(q.Callback.Chain), Valid: true}
		callbackApp = sql.NullString{String: q.Callback.Application, Valid: true}
		callbackData = q.Callback.OpaqueData
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_queries (id, description, outcomes, strategy, min_votes, reward_pool, phase,
		                            created_at, commit_deadline, reveal_deadline, resolved_outcome, resolved_at,
		                            creator, callback_chain, callback_app, callback_data, commits, reveals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase, resolved_outcome = EXCLUDED.resolved_outcome, resolved_at = EXCLUDED.resolved_at,
			commits = EXCLUDED.commits, reveals = EXCLUDED.reveals
	`, int64(q.ID), q.Description, pq.Array(q.Outcomes), q.Strategy, q.MinVotes, q.RewardPool, q.Phase,
		q.CreatedAt, q.CommitDeadline, q.RevealDeadline, q.ResolvedOutcome, q.ResolvedAt, q.Creator,
		callbackChain, callbackApp, callbackData, q.Commits, q.Reveals)
	return err
}

func (s *PostgresStore) ListQueries(ctx context.Context) ([]oracle.Query, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, outcomes, strategy, min_votes, reward_pool, phase, created_at,
		       commit_deadline, reveal_deadline, resolved_outcome, resolved_at, creator,
		       callback_chain, callback_app, callback_data, commits, reveals
		FROM oracle_queries ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oracle.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCommitment(ctx context.Context, queryID uint64, voter oracle.ChainID) (oracle.Commitment, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT query_id, voter, commit_hash, committed_at, stake_locked
		FROM oracle_commitments WHERE query_id = $1 AND voter = $2
	`, int64(queryID), string(voter))
	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.Commitment{}, false, nil
	}
	if err != nil {
		return oracle.Commitment{}, false, err
	}
	return c, true, nil
}

func scanCommitment(row rowScanner) (oracle.Commitment, error) {
	var c oracle.Commitment
	var id int64
	var voter string
	var hash []byte
	if err := row.Scan(&id, &voter, &hash, &c.CommittedAt, &c.StakeLocked); err != nil {
		return oracle.Commitment{}, err
	}
	c.QueryID = uint64(id)
	c.Voter = oracle.ChainID(voter)
	copy(c.CommitHash[:], hash)
	return c, nil
}

func (s *PostgresStore) PutCommitment(ctx context.Context, c oracle.Commitment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_commitments (query_id, voter, commit_hash, committed_at, stake_locked)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query_id, voter) DO NOTHING
	`, int64(c.QueryID), string(c.Voter), c.CommitHash[:], c.CommittedAt, c.StakeLocked)
	return err
}

func (s *PostgresStore) ListCommitments(ctx context.Context, queryID uint64) ([]oracle.Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query_id, voter, commit_hash, committed_at, stake_locked
		FROM oracle_commitments WHERE query_id = $1 ORDER BY voter
	`, int64(queryID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oracle.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetReveal(ctx context.Context, queryID uint64, voter oracle.ChainID) (oracle.Reveal, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT query_id, voter, value, salt, confidence, revealed_at
		FROM oracle_reveals WHERE query_id = $1 AND voter = $2
	`, int64(queryID), string(voter))
	r, err := scanReveal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.Reveal{}, false, nil
	}
	if err != nil {
		return oracle.Reveal{}, false, err
	}
	return r, true, nil
}

func scanReveal(row rowScanner) (oracle.Reveal, error) {
	var r oracle.Reveal
	var id int64
	var voter string
	var confidence sql.NullInt64
	if err := row.Scan(&id, &voter, &r.Value, &r.Salt, &confidence, &r.RevealedAt); err != nil {
		return oracle.Reveal{}, err
	}
	r.QueryID = uint64(id)
	r.Voter = oracle.ChainID(voter)
	if confidence.Valid {
		v := int(confidence.Int64)
		r.Confidence = &v
	}
	return r, nil
}

func (s *PostgresStore) PutReveal(ctx context.Context, r oracle.Reveal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_reveals (query_id, voter, value, salt, confidence, revealed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (query_id, voter) DO NOTHING
	`, int64(r.QueryID), string(r.Voter), r.Value, r.Salt, r.Confidence, r.RevealedAt)
	return err
}

func (s *PostgresStore) ListReveals(ctx context.Context, queryID uint64) ([]oracle.Reveal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query_id, voter, value, salt, confidence, revealed_at
		FROM oracle_reveals WHERE query_id = $1 ORDER BY voter
	`, int64(queryID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []oracle.Reveal
	for rows.Next() {
		r, err := scanReveal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetPendingReward(ctx context.Context, voter oracle.ChainID) (oracle.Amount, error) {
	var amt oracle.Amount
	err := s.db.QueryRowContext(ctx, `SELECT amount FROM oracle_pending_rewards WHERE voter = $1`, string(voter)).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amt, err
}

func (s *PostgresStore) AddPendingReward(ctx context.Context, voter oracle.ChainID, delta oracle.Amount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_pending_rewards (voter, amount) VALUES ($1, $2)
		ON CONFLICT (voter) DO UPDATE SET amount = oracle_pending_rewards.amount + EXCLUDED.amount
	`, string(voter), delta)
	return err
}

func (s *PostgresStore) ResetPendingReward(ctx context.Context, voter oracle.ChainID) (oracle.Amount, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var amt oracle.Amount
	err = tx.QueryRowContext(ctx, `SELECT amount FROM oracle_pending_rewards WHERE voter = $1 FOR UPDATE`, string(voter)).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE oracle_pending_rewards SET amount = 0 WHERE voter = $1`, string(voter)); err != nil {
		return 0, err
	}
	return amt, tx.Commit()
}

func (s *PostgresStore) GetParameters(ctx context.Context) (oracle.Parameters, error) {
	var p oracle.Parameters
	var adminChain, tokenApp string
	err := s.db.QueryRowContext(ctx, `
		SELECT min_stake, max_stake, default_query_duration_ns, commit_phase_duration_ns, reveal_phase_duration_ns,
		       stake_lock_fraction, reward_per_correct_vote, slash_fraction_incorrect, slash_fraction_no_reveal,
		       reputation_delta_correct, reputation_delta_incorrect, reputation_delta_no_reveal,
		       min_reputation_to_vote, min_votes_default, max_outcomes, paused, admin_chain, token_application
		FROM oracle_parameters WHERE id = 1
	`).Scan(&p.MinStake, &p.MaxStake, &p.DefaultQueryDuration, &p.CommitPhaseDuration, &p.RevealPhaseDuration,
		&p.StakeLockFraction, &p.RewardPerCorrectVote, &p.SlashFractionIncorrect, &p.SlashFractionNoReveal,
		&p.ReputationDeltaCorrect, &p.ReputationDeltaIncorrect, &p.ReputationDeltaNoReveal,
		&p.MinReputationToVote, &p.MinVotesDefault, &p.MaxOutcomes, &p.Paused, &adminChain, &tokenApp)
	if err != nil {
		return oracle.Parameters{}, err
	}
	p.AdminChain = oracle.ChainID(adminChain)
	p.TokenApplication = oracle.ChainID(tokenApp)
	return p, nil
}

func (s *PostgresStore) PutParameters(ctx context.Context, p oracle.Parameters) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_parameters (id, min_stake, max_stake, default_query_duration_ns, commit_phase_duration_ns,
		                                reveal_phase_duration_ns, stake_lock_fraction, reward_per_correct_vote,
		                                slash_fraction_incorrect, slash_fraction_no_reveal, reputation_delta_correct,
		                                reputation_delta_incorrect, reputation_delta_no_reveal, min_reputation_to_vote,
		                                min_votes_default, max_outcomes, paused, admin_chain, token_application)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			min_stake = EXCLUDED.min_stake, max_stake = EXCLUDED.max_stake,
			default_query_duration_ns = EXCLUDED.default_query_duration_ns,
			commit_phase_duration_ns = EXCLUDED.commit_phase_duration_ns,
			reveal_phase_duration_ns = EXCLUDED.reveal_phase_duration_ns,
			stake_lock_fraction = EXCLUDED.stake_lock_fraction, reward_per_correct_vote = EXCLUDED.reward_per_correct_vote,
			slash_fraction_incorrect = EXCLUDED.slash_fraction_incorrect, slash_fraction_no_reveal = EXCLUDED.slash_fraction_no_reveal,
			reputation_delta_correct = EXCLUDED.reputation_delta_correct, reputation_delta_incorrect = EXCLUDED.reputation_delta_incorrect,
			reputation_delta_no_reveal = EXCLUDED.reputation_delta_no_reveal, min_reputation_to_vote = EXCLUDED.min_reputation_to_vote,
			min_votes_default = EXCLUDED.min_votes_default, max_outcomes = EXCLUDED.max_outcomes,
			paused = EXCLUDED.paused, admin_chain = EXCLUDED.admin_chain, token_application = EXCLUDED.token_application
	`, p.MinStake, p.MaxStake, p.DefaultQueryDuration, p.CommitPhaseDuration, p.RevealPhaseDuration,
		p.StakeLockFraction, p.RewardPerCorrectVote, p.SlashFractionIncorrect, p.SlashFractionNoReveal,
		p.ReputationDeltaCorrect, p.ReputationDeltaIncorrect, p.ReputationDeltaNoReveal,
		p.MinReputationToVote, p.MinVotesDefault, p.MaxOutcomes, p.Paused, string(p.AdminChain), string(p.TokenApplication))
	return err
}

func (s *PostgresStore) VoterCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT voter_count FROM oracle_counters WHERE id = 1`).Scan(&n)
	return n, err
}

func (s *PostgresStore) AddVoterCount(ctx context.Context, delta int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE oracle_counters SET voter_count = voter_count + $1 WHERE id = 1`, delta)
	return err
}

func (s *PostgresStore) TotalStake(ctx context.Context) (oracle.Amount, error) {
	var n oracle.Amount
	err := s.db.QueryRowContext(ctx, `SELECT total_stake FROM oracle_counters WHERE id = 1`).Scan(&n)
	return n, err
}

func (s *PostgresStore) AddTotalStake(ctx context.Context, delta oracle.Amount) error {
	_, err := s.db.ExecContext(ctx, `UPDATE oracle_counters SET total_stake = total_stake + $1 WHERE id = 1`, delta)
	return err
}

func (s *PostgresStore) RewardPoolTotal(ctx context.Context) (oracle.Amount, error) {
	var n oracle.Amount
	err := s.db.QueryRowContext(ctx, `SELECT reward_pool_total FROM oracle_counters WHERE id = 1`).Scan(&n)
	return n, err
}

func (s *PostgresStore) AddRewardPoolTotal(ctx context.Context, delta oracle.Amount) error {
	_, err := s.db.ExecContext(ctx, `UPDATE oracle_counters SET reward_pool_total = reward_pool_total + $1 WHERE id = 1`, delta)
	return err
}

func (s *PostgresStore) AddPendingReceipt(ctx context.Context, from oracle.ChainID, amount oracle.Amount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_pending_receipts (voter, amount) VALUES ($1, $2)
		ON CONFLICT (voter) DO UPDATE SET amount = oracle_pending_receipts.amount + EXCLUDED.amount
	`, string(from), amount)
	return err
}

func (s *PostgresStore) ConsumePendingReceipt(ctx context.Context, from oracle.ChainID, amount oracle.Amount) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE oracle_pending_receipts SET amount = amount - $2
		WHERE voter = $1 AND amount >= $2
	`, string(from), amount)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

var _ Store = (*PostgresStore)(nil)
