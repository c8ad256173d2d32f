package repository

import "context"

// OverrideRepository persists operator price overrides, a global
// mapping from item code to price that wins over the default tables.
type OverrideRepository interface {
	Get(ctx context.Context, itemCode string) (int64, bool, error)
	Set(ctx context.Context, itemCode string, price int64) error
	// Delete reports whether an override existed.
	Delete(ctx context.Context, itemCode string) (bool, error)
	All(ctx context.Context) (map[string]int64, error)
}
