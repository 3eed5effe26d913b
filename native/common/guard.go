package common

import (
	"errors"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when module is paused in p.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed set of paused module names, usually loaded from
// configuration at startup.
type StaticPauses map[string]bool

// NewStaticPauses builds a pause view from module names. Names are matched
// case-insensitively.
func NewStaticPauses(modules ...string) StaticPauses {
	out := make(StaticPauses, len(modules))
	for _, module := range modules {
		if trimmed := strings.ToLower(strings.TrimSpace(module)); trimmed != "" {
			out[trimmed] = true
		}
	}
	return out
}

func (s StaticPauses) IsPaused(module string) bool {
	return s[strings.ToLower(strings.TrimSpace(module))]
}
