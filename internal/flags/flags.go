// Package flags holds the three-state policy flags consulted by pipeline
// guards. States come from the config file and can be overridden per flag
// with SLATE_FLAG_* environment variables.
package flags

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// State is a guard policy: off ignores the condition, warn surfaces it
// without stopping, block refuses to continue.
type State string

const (
	StateOff   State = "off"
	StateWarn  State = "warn"
	StateBlock State = "block"
)

// Flag names known to the pipeline.
const (
	TokenGuard      = "token-guard"
	ValidationGuard = "validation-guard"
)

// ParseState parses a flag state, case-insensitively.
func ParseState(raw string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(raw))) {
	case StateOff:
		return StateOff, nil
	case StateWarn:
		return StateWarn, nil
	case StateBlock:
		return StateBlock, nil
	default:
		return "", fmt.Errorf("unknown flag state %q (want off, warn, or block)", raw)
	}
}

// Store is a concurrency-safe flag lookup. Flags not present in the store
// resolve to off.
type Store struct {
	mu     sync.RWMutex
	states map[string]State
}

// Defaults returns the shipped flag policy: both guards warn.
func Defaults() map[string]string {
	return map[string]string{
		TokenGuard:      string(StateWarn),
		ValidationGuard: string(StateWarn),
	}
}

// NewStore seeds a store with the default policy, overlays the configured
// states, then applies SLATE_FLAG_* environment overrides. Unknown state
// values are rejected.
func NewStore(configured map[string]string) (*Store, error) {
	s := &Store{states: make(map[string]State)}
	for name, raw := range Defaults() {
		state, err := ParseState(raw)
		if err != nil {
			return nil, err
		}
		s.states[name] = state
	}
	for name, raw := range configured {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		state, err := ParseState(raw)
		if err != nil {
			return nil, fmt.Errorf("flag %s: %w", name, err)
		}
		s.states[normalize(name)] = state
	}
	for name := range s.states {
		raw, ok := os.LookupEnv(EnvVar(name))
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		state, err := ParseState(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvVar(name), err)
		}
		s.states[name] = state
	}
	return s, nil
}

// State returns the effective state for name, or off when the flag is
// unknown.
func (s *Store) State(name string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[normalize(name)]; ok {
		return state
	}
	return StateOff
}

// Set overrides one flag for the lifetime of the store.
func (s *Store) Set(name string, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[normalize(name)] = state
}

// Names returns the known flag names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.states))
	for name := range s.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the effective flag table.
func (s *Store) Snapshot() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.states))
	for name, state := range s.states {
		out[name] = state
	}
	return out
}

// EnvVar returns the environment variable that overrides name, for example
// SLATE_FLAG_TOKEN_GUARD for token-guard.
func EnvVar(name string) string {
	upper := strings.ToUpper(normalize(name))
	return "SLATE_FLAG_" + strings.ReplaceAll(upper, "-", "_")
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
