package config

import (
	"fmt"
	"strings"

	"bountychain/crypto"
	"bountychain/native/common"
)

// Treasury parses the configured treasury account.
func (c *Config) Treasury() ([20]byte, error) {
	if strings.TrimSpace(c.TreasuryAddress) == "" {
		return [20]byte{}, fmt.Errorf("TreasuryAddress required")
	}
	addr, err := crypto.ParseAccount(c.TreasuryAddress)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid TreasuryAddress: %w", err)
	}
	if addr == ([20]byte{}) {
		return [20]byte{}, fmt.Errorf("TreasuryAddress must not be the zero address")
	}
	return addr, nil
}

// Pauses returns the pause view described by Paused.
func (c *Config) Pauses() common.PauseView {
	return common.NewStaticPauses(c.Paused...)
}
