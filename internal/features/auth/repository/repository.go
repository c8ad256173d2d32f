package repository

import "context"

// AuthorizedSetRepository persists the global set of permitted account
// identifiers. The owner identity is not stored here; it is always
// authorized by configuration.
type AuthorizedSetRepository interface {
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Contains(ctx context.Context, id string) (bool, error)
	All(ctx context.Context) ([]string, error)
}
