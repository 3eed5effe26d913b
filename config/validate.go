package config

import (
	"fmt"
	"strings"

	"bountychain/storage"
)

var validBackends = map[string]struct{}{
	storage.BackendMemory:  {},
	storage.BackendLevelDB: {},
	storage.BackendBolt:    {},
}

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID must be positive")
	}
	if _, ok := validBackends[strings.ToLower(strings.TrimSpace(c.DBBackend))]; !ok {
		return fmt.Errorf("DBBackend %q is not supported", c.DBBackend)
	}
	if _, err := c.Treasury(); err != nil {
		return err
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Indexer.Driver)) {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("indexer: unsupported driver %q", c.Indexer.Driver)
	}
	if strings.TrimSpace(c.NATS.URL) != "" && strings.TrimSpace(c.NATS.Subject) == "" {
		return fmt.Errorf("nats: subject required when URL is set")
	}
	return nil
}
