package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FlagStore resolves whether a rule is blocking, preferring persisted flags over defaults.
type FlagStore struct {
	store    *SQLiteStore
	defaults map[string]bool
}

// NewFlagStore returns a FlagStore backed by s. defaults apply to rules with no persisted flag.
func NewFlagStore(s *SQLiteStore, defaults map[string]bool) *FlagStore {
	d := make(map[string]bool, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &FlagStore{store: s, defaults: d}
}

// IsBlocking reports whether failures of rule prevent certificate completion.
// Unknown rules are not blocking.
func (f *FlagStore) IsBlocking(ctx context.Context, rule string) (bool, error) {
	f.store.mu.RLock()
	defer f.store.mu.RUnlock()

	var blocking int
	err := f.store.db.QueryRowContext(ctx,
		`SELECT blocking FROM feature_flags WHERE rule = ?`, rule,
	).Scan(&blocking)
	if errors.Is(err, sql.ErrNoRows) {
		return f.defaults[rule], nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read flag %s: %w", rule, err)
	}
	return blocking != 0, nil
}

// SetBlocking persists the blocking state of rule.
func (f *FlagStore) SetBlocking(ctx context.Context, rule string, blocking bool) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	v := 0
	if blocking {
		v = 1
	}
	_, err := f.store.db.ExecContext(ctx,
		`INSERT INTO feature_flags (rule, blocking, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(rule) DO UPDATE SET blocking = excluded.blocking, updated_at = excluded.updated_at`,
		rule, v,
	)
	if err != nil {
		return fmt.Errorf("failed to write flag %s: %w", rule, err)
	}
	return nil
}
