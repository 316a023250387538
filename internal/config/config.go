package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingContract = errors.New("contract address not specified (set CONTRACT_ADDRESS or contract.address)")
	ErrInvalidAddress  = errors.New("invalid address")
)

type ContractConfig struct {
	Address      string `yaml:"address"`       // Deployed tweet contract (required)
	OwnerAddress string `yaml:"owner_address"` // Only used for the pause-check diagnostic
}

type ChainConfig struct {
	RPCURL  string `yaml:"rpc_url"`
	ChainID int64  `yaml:"chain_id"` // 0 = ask the node
}

type APIConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

type WalletConfig struct {
	Key       string `yaml:"key"`        // Hex secp256k1 private key (local provider)
	SignerURL string `yaml:"signer_url"` // External signer endpoint, e.g. clef's http or ipc path
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ViewConfig struct {
	AvatarBaseURL string `yaml:"avatar_base_url"`
	ShortStart    int    `yaml:"short_start"`
	ShortEnd      int    `yaml:"short_end"`
}

type LogConfig struct {
	Level string `yaml:"level"` // "debug" adds per-render and session logs
}

type Config struct {
	Contract  ContractConfig  `yaml:"contract"`
	Chain     ChainConfig     `yaml:"chain"`
	API       APIConfig       `yaml:"api"`
	Wallet    WalletConfig    `yaml:"wallet"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	View      ViewConfig      `yaml:"view"`
	Log       LogConfig       `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			RPCURL: "http://127.0.0.1:8545",
		},
		API: APIConfig{
			Port: 8404,
			Bind: "127.0.0.1",
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
		View: ViewConfig{
			AvatarBaseURL: "https://api.dicebear.com/7.x/avataaars/svg",
			ShortStart:    6,
			ShortEnd:      4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.dtweet/dtweet.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dtweet", "dtweet.yaml")
}

// Load reads a YAML config file and merges it with defaults.
// A missing file is not an error; defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromBytes parses YAML config from bytes and merges with defaults.
// Used by the mobile package where there's no config file on disk.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of config values.
func (c *Config) applyEnv() {
	if v := os.Getenv("CONTRACT_ADDRESS"); v != "" {
		c.Contract.Address = v
	}
	if v := os.Getenv("OWNER_ADDRESS"); v != "" {
		c.Contract.OwnerAddress = v
	}
	if v := os.Getenv("DTWEET_RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("DTWEET_WALLET_KEY"); v != "" {
		c.Wallet.Key = v
	}
	if v := os.Getenv("DTWEET_SIGNER_URL"); v != "" {
		c.Wallet.SignerURL = v
	}
	if v := os.Getenv("DTWEET_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
}

// Validate checks the settings startup cannot proceed without.
func (c *Config) Validate() error {
	addr := strings.TrimSpace(c.Contract.Address)
	if addr == "" {
		return ErrMissingContract
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("contract address %q: %w", addr, ErrInvalidAddress)
	}
	if owner := strings.TrimSpace(c.Contract.OwnerAddress); owner != "" && !common.IsHexAddress(owner) {
		return fmt.Errorf("owner address %q: %w", owner, ErrInvalidAddress)
	}
	if c.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url is empty")
	}
	return nil
}

// ContractAddress returns the parsed contract address. Call Validate first.
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(strings.TrimSpace(c.Contract.Address))
}

// OwnerAddress returns the configured owner and whether one is set.
func (c *Config) OwnerAddress() (common.Address, bool) {
	owner := strings.TrimSpace(c.Contract.OwnerAddress)
	if owner == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(owner), true
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}
