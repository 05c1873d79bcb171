// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SolanaConfig holds the Solana RPC and treasury settings.
type SolanaConfig struct {
	// Network is the cluster name: "devnet", "testnet", "mainnet-beta".
	Network string `mapstructure:"network"`
	// RPCURL is the JSON-RPC endpoint for chain reads and transfers.
	RPCURL string `mapstructure:"rpc_url"`
	// TreasuryPrivateKey is the base58-encoded treasury keypair. Empty disables
	// all reward transfers.
	TreasuryPrivateKey string `mapstructure:"treasury_private_key"`
	// TokenMint is the optional base58 game token mint. Empty disables token
	// balance lookups.
	TokenMint string `mapstructure:"token_mint"`
}

// RewardConfig holds the per-event reward amounts in lamports.
// Read-only after room creation.
type RewardConfig struct {
	// Join is paid when a player links a wallet in the room.
	Join uint64 `mapstructure:"join"`
	// MapChange is paid when a wallet-linked player changes maps.
	MapChange uint64 `mapstructure:"map_change"`
	// BattleWin is paid when a wallet-linked player wins a battle.
	BattleWin uint64 `mapstructure:"battle_win"`
}

// AuthConfig holds JWT issuance settings for the HTTP auth endpoints.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret.
	JWTSecret string `mapstructure:"jwt_secret"`
	// TokenTTL is how long issued tokens remain valid.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RoomConfig holds room tuning knobs.
type RoomConfig struct {
	// SnapshotDelay is how long after join the full player snapshot is sent,
	// allowing the client's own handshake to settle first.
	SnapshotDelay time.Duration `mapstructure:"snapshot_delay"`
	// ClientBuffer is the per-session outbound message buffer size.
	ClientBuffer int `mapstructure:"client_buffer"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Solana  SolanaConfig  `mapstructure:"solana"`
	Rewards RewardConfig  `mapstructure:"rewards"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Room    RoomConfig    `mapstructure:"room"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSolana(c.Solana); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRewards(c.Rewards); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAuth(c.Auth); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRoom(c.Room); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadHeaderTimeout < 0 {
		errs = append(errs, "server.read_header_timeout must not be negative")
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("logging.format must be \"json\" or \"console\", got %q", l.Format)
	}
	return nil
}

func validateSolana(s SolanaConfig) error {
	var errs []string
	if s.RPCURL == "" {
		errs = append(errs, "solana.rpc_url must not be empty")
	}
	validNetworks := map[string]bool{"devnet": true, "testnet": true, "mainnet-beta": true}
	if !validNetworks[s.Network] {
		errs = append(errs, fmt.Sprintf("solana.network must be one of [devnet, testnet, mainnet-beta], got %q", s.Network))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRewards(r RewardConfig) error {
	var errs []string
	if r.Join == 0 {
		errs = append(errs, "rewards.join must be > 0")
	}
	if r.MapChange == 0 {
		errs = append(errs, "rewards.map_change must be > 0")
	}
	if r.BattleWin == 0 {
		errs = append(errs, "rewards.battle_win must be > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAuth(a AuthConfig) error {
	var errs []string
	if a.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret must not be empty")
	}
	if a.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRoom(r RoomConfig) error {
	var errs []string
	if r.SnapshotDelay < 0 {
		errs = append(errs, "room.snapshot_delay must not be negative")
	}
	if r.ClientBuffer < 1 {
		errs = append(errs, fmt.Sprintf("room.client_buffer must be >= 1, got %d", r.ClientBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path with environment overrides.
//
// Precondition: path must point to a readable YAML configuration file.
// Postcondition: Returns a validated Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with POKEMMO_ prefix
	v.SetEnvPrefix("POKEMMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		return Config{}, errors.New("viper instance must not be nil")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 2567)
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("solana.network", "devnet")
	v.SetDefault("solana.rpc_url", "https://api.devnet.solana.com")
	v.SetDefault("solana.treasury_private_key", "")
	v.SetDefault("solana.token_mint", "")

	v.SetDefault("rewards.join", 100000)
	v.SetDefault("rewards.map_change", 50000)
	v.SetDefault("rewards.battle_win", 500000)

	v.SetDefault("auth.jwt_secret", "dev-secret-change-in-production")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("room.snapshot_delay", "500ms")
	v.SetDefault("room.client_buffer", 64)
}
