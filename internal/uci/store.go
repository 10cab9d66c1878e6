package uci

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Store is the key/value interface over the router's persistent
// configuration. Staged Set calls become durable only on Commit.
type Store interface {
	// Get returns the value for a dotted key, or "" when the key is unset.
	Get(ctx context.Context, key string) (string, error)
	// Set stages a value for a dotted key.
	Set(ctx context.Context, key, value string) error
	// Commit durably applies every staged change for the named config.
	Commit(ctx context.Context, config string) error
}

// ExecStore drives the native uci tool. It is the production Store on the
// router; tests substitute an in-memory fake.
type ExecStore struct{}

// NewExecStore returns a Store backed by the uci command-line tool.
func NewExecStore() *ExecStore {
	return &ExecStore{}
}

// Get retrieves a configuration value. Unset keys yield "" without error,
// matching `uci -q get` semantics.
func (s *ExecStore) Get(ctx context.Context, key string) (string, error) {
	output, err := exec.CommandContext(ctx, "uci", "-q", "get", key).Output()
	if err != nil {
		// uci -q exits 1 for missing keys with no output; treat as unset.
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) == 0 {
			return "", nil
		}

		return "", fmt.Errorf("uci get %s: %w", key, err)
	}

	return strings.TrimSpace(string(output)), nil
}

// Set stages a configuration value.
func (s *ExecStore) Set(ctx context.Context, key, value string) error {
	if err := exec.CommandContext(ctx, "uci", "set", fmt.Sprintf("%s=%s", key, value)).Run(); err != nil {
		return fmt.Errorf("uci set %s: %w", key, err)
	}

	return nil
}

// Commit applies all staged changes for the named config as a unit.
func (s *ExecStore) Commit(ctx context.Context, config string) error {
	if err := exec.CommandContext(ctx, "uci", "commit", config).Run(); err != nil {
		return fmt.Errorf("uci commit %s: %w", config, err)
	}

	return nil
}

// SplitList splits a space-separated uci list value into its elements.
func SplitList(value string) []string {
	return strings.Fields(value)
}

// JoinList renders elements as a space-separated uci list value.
func JoinList(elements []string) string {
	return strings.Join(elements, " ")
}
