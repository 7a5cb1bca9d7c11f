package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oraclenet/registry/domain/oracle"
)

// ServerConfig controls the admin HTTP API.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls persistence when the registry is run against
// PostgresStore rather than the in-memory store.
type DatabaseConfig struct {
	Driver          string `json:"driver" yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" yaml:"dsn" env:"DATABASE_DSN"`
	Host            string `json:"host" yaml:"host" env:"DATABASE_HOST"`
	Port            int    `json:"port" yaml:"port" env:"DATABASE_PORT"`
	User            string `json:"user" yaml:"user" env:"DATABASE_USER"`
	Password        string `json:"password" yaml:"password" env:"DATABASE_PASSWORD"`
	Name            string `json:"name" yaml:"name" env:"DATABASE_NAME"`
	SSLMode         string `json:"sslmode" yaml:"sslmode" env:"DATABASE_SSLMODE"`
	MaxOpenConns    int    `json:"max_open_conns" yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// EventStreamConfig controls the optional Redis pub/sub fan-out backend for
// the oracle_events stream. When RedisAddr is empty, the publisher runs with
// only the in-process broadcast.
type EventStreamConfig struct {
	RedisAddr    string `json:"redis_addr" yaml:"redis_addr" env:"EVENTS_REDIS_ADDR"`
	RedisChannel string `json:"redis_channel" yaml:"redis_channel" env:"EVENTS_REDIS_CHANNEL"`
}

// ParametersConfig is the YAML/env-friendly mirror of oracle.Parameters used
// to bootstrap the registry's genesis parameters. Durations are expressed as
// Go duration strings (e.g. "24h") rather than raw nanoseconds so a genesis
// config file reads the way an operator would write it.
type ParametersConfig struct {
	AdminChain               string  `json:"admin_chain" yaml:"admin_chain" env:"PARAMS_ADMIN_CHAIN"`
	MinStake                 int64   `json:"min_stake" yaml:"min_stake" env:"PARAMS_MIN_STAKE"`
	MaxStake                 int64   `json:"max_stake" yaml:"max_stake" env:"PARAMS_MAX_STAKE"`
	DefaultQueryDuration     string  `json:"default_query_duration" yaml:"default_query_duration" env:"PARAMS_DEFAULT_QUERY_DURATION"`
	CommitPhaseDuration      string  `json:"commit_phase_duration" yaml:"commit_phase_duration" env:"PARAMS_COMMIT_PHASE_DURATION"`
	RevealPhaseDuration      string  `json:"reveal_phase_duration" yaml:"reveal_phase_duration" env:"PARAMS_REVEAL_PHASE_DURATION"`
	StakeLockFraction        float64 `json:"stake_lock_fraction" yaml:"stake_lock_fraction" env:"PARAMS_STAKE_LOCK_FRACTION"`
	RewardPerCorrectVote     int64   `json:"reward_per_correct_vote" yaml:"reward_per_correct_vote" env:"PARAMS_REWARD_PER_CORRECT_VOTE"`
	SlashFractionIncorrect   float64 `json:"slash_fraction_incorrect" yaml:"slash_fraction_incorrect" env:"PARAMS_SLASH_FRACTION_INCORRECT"`
	SlashFractionNoReveal    float64 `json:"slash_fraction_no_reveal" yaml:"slash_fraction_no_reveal" env:"PARAMS_SLASH_FRACTION_NO_REVEAL"`
	ReputationDeltaCorrect   int     `json:"reputation_delta_correct" yaml:"reputation_delta_correct" env:"PARAMS_REPUTATION_DELTA_CORRECT"`
	ReputationDeltaIncorrect int     `json:"reputation_delta_incorrect" yaml:"reputation_delta_incorrect" env:"PARAMS_REPUTATION_DELTA_INCORRECT"`
	ReputationDeltaNoReveal  int     `json:"reputation_delta_no_reveal" yaml:"reputation_delta_no_reveal" env:"PARAMS_REPUTATION_DELTA_NO_REVEAL"`
	MinReputationToVote      int     `json:"min_reputation_to_vote" yaml:"min_reputation_to_vote" env:"PARAMS_MIN_REPUTATION_TO_VOTE"`
	MinVotesDefault          int     `json:"min_votes_default" yaml:"min_votes_default" env:"PARAMS_MIN_VOTES_DEFAULT"`
	MaxOutcomes              int     `json:"max_outcomes" yaml:"max_outcomes" env:"PARAMS_MAX_OUTCOMES"`
	Paused                   bool    `json:"paused" yaml:"paused" env:"PARAMS_PAUSED"`
	TokenApplication         string  `json:"token_application" yaml:"token_application" env:"PARAMS_TOKEN_APPLICATION"`
}

// ToParameters converts the loaded configuration into oracle.Parameters,
// falling back to oracle.DefaultParameters(admin) for any field left at its
// zero value (or, for durations, empty) so a partial genesis file still
// produces a complete set of parameters. Paused is copied as given.
func (p ParametersConfig) ToParameters() (oracle.Parameters, error) {
	if strings.TrimSpace(p.AdminChain) == "" {
		return oracle.Parameters{}, fmt.Errorf("config: params.admin_chain is required")
	}
	params := oracle.DefaultParameters(oracle.ChainID(p.AdminChain))

	if p.MinStake != 0 {
		params.MinStake = oracle.Amount(p.MinStake)
	}
	if p.MaxStake != 0 {
		params.MaxStake = oracle.Amount(p.MaxStake)
	}
	if d, err := parseDuration(p.DefaultQueryDuration); err != nil {
		return oracle.Parameters{}, err
	} else if d > 0 {
		params.DefaultQueryDuration = d
	}
	if d, err := parseDuration(p.CommitPhaseDuration); err != nil {
		return oracle.Parameters{}, err
	} else if d > 0 {
		params.CommitPhaseDuration = d
	}
	if d, err := parseDuration(p.RevealPhaseDuration); err != nil {
		return oracle.Parameters{}, err
	} else if d > 0 {
		params.RevealPhaseDuration = d
	}
	if p.StakeLockFraction != 0 {
		params.StakeLockFraction = p.StakeLockFraction
	}
	if p.RewardPerCorrectVote != 0 {
		params.RewardPerCorrectVote = oracle.Amount(p.RewardPerCorrectVote)
	}
	if p.SlashFractionIncorrect != 0 {
		params.SlashFractionIncorrect = p.SlashFractionIncorrect
	}
	if p.SlashFractionNoReveal != 0 {
		params.SlashFractionNoReveal = p.SlashFractionNoReveal
	}
	if p.ReputationDeltaCorrect != 0 {
		params.ReputationDeltaCorrect = p.ReputationDeltaCorrect
	}
	if p.ReputationDeltaIncorrect != 0 {
		params.ReputationDeltaIncorrect = p.ReputationDeltaIncorrect
	}
	if p.ReputationDeltaNoReveal != 0 {
		params.ReputationDeltaNoReveal = p.ReputationDeltaNoReveal
	}
	if p.MinReputationToVote != 0 {
		params.MinReputationToVote = p.MinReputationToVote
	}
	if p.MinVotesDefault != 0 {
		params.MinVotesDefault = p.MinVotesDefault
	}
	if p.MaxOutcomes != 0 {
		params.MaxOutcomes = p.MaxOutcomes
	}
	params.Paused = p.Paused
	if strings.TrimSpace(p.TokenApplication) != "" {
		params.TokenApplication = oracle.ChainID(p.TokenApplication)
	}
	return params, nil
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Config is the top-level configuration structure for cmd/registryd.
type Config struct {
	Server   ServerConfig      `json:"server" yaml:"server"`
	Database DatabaseConfig    `json:"database" yaml:"database"`
	Logging  LoggingConfig     `json:"logging" yaml:"logging"`
	Events   EventStreamConfig `json:"events" yaml:"events"`
	Params   ParametersConfig  `json:"params" yaml:"params"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "registryd",
		},
		Events: EventStreamConfig{
			RedisChannel: "oracle_events",
		},
	}
}

// ConnectionString builds a PostgreSQL connection string from host parameters.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load loads configuration in three passes: .env, then a YAML file, then
// env-var overrides via envdecode.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
