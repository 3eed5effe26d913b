package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bountychain/crypto"
	"bountychain/storage"

	"github.com/BurntSushi/toml"
)

// EnvOverride names the environment variable that overrides Environment.
const EnvOverride = "BOUNTY_ENV"

// TreasuryPassphraseEnv names the variable holding the passphrase used when a
// default treasury keystore is generated.
const TreasuryPassphraseEnv = "BOUNTY_TREASURY_PASSPHRASE"

type Config struct {
	ListenAddress        string    `toml:"ListenAddress"`
	DataDir              string    `toml:"DataDir"`
	DBBackend            string    `toml:"DBBackend"`
	ChainID              uint64    `toml:"ChainID"`
	TreasuryAddress      string    `toml:"TreasuryAddress"`
	TreasuryKeystorePath string    `toml:"TreasuryKeystorePath,omitempty"`
	GenesisFile          string    `toml:"GenesisFile"`
	Environment          string    `toml:"Environment"`
	LogFile              string    `toml:"LogFile"`
	Paused               []string  `toml:"Paused"`
	RateLimit            RateLimit `toml:"rate_limit"`
	Indexer              Indexer   `toml:"indexer"`
	NATS                 NATS      `toml:"nats"`
	Telemetry            Telemetry `toml:"telemetry"`
}

// keystoreStrength is lowered by tests to keep key generation fast.
var keystoreStrength = crypto.StandardKeystore

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration whose treasury account is freshly
// generated and stored next to it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %q", path, undecoded[0].String())
		}
	}

	cfg.applyDefaults()
	if env := strings.TrimSpace(os.Getenv(EnvOverride)); env != "" {
		cfg.Environment = env
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./bounty-data"
	}
	if strings.TrimSpace(c.DBBackend) == "" {
		c.DBBackend = storage.BackendLevelDB
	}
	if c.ChainID == 0 {
		c.ChainID = 1
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.Paused == nil {
		c.Paused = []string{}
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RequestsPerSecond)
		if c.RateLimit.Burst < 1 {
			c.RateLimit.Burst = 1
		}
	}
	if strings.TrimSpace(c.Indexer.Driver) == "" {
		c.Indexer.Driver = "sqlite"
	}
	if strings.TrimSpace(c.NATS.Subject) == "" {
		c.NATS.Subject = "bounty.events"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, os.Getenv(TreasuryPassphraseEnv), keystoreStrength); err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:        ":8080",
		DataDir:              "./bounty-data",
		DBBackend:            storage.BackendLevelDB,
		ChainID:              1,
		TreasuryAddress:      key.PubKey().Address().String(),
		TreasuryKeystorePath: keystorePath,
		Environment:          "local",
		Paused:               []string{},
		RateLimit:            RateLimit{RequestsPerSecond: 5, Burst: 10},
		Indexer:              Indexer{Driver: "sqlite"},
		NATS:                 NATS{Subject: "bounty.events"},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "treasury.keystore")
}
