package repository

import "context"

// FlagRepository persists maintenance flags so gate state survives a
// restart.
type FlagRepository interface {
	// Get returns the stored value; ok is false when the flag was
	// never written.
	Get(ctx context.Context, feature string) (enabled bool, ok bool, err error)
	Set(ctx context.Context, feature string, enabled bool) error
	All(ctx context.Context) (map[string]bool, error)
}
