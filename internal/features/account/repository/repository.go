package repository

import (
	"context"

	"topup-bot-backend/internal/features/account/models"
)

// AccountRepository persists one document per account. Mutate is the
// only read-modify-write primitive: implementations must apply fn
// atomically with respect to concurrent Mutate calls on the same
// account, and must not persist anything when fn returns an error.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Mutate(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
}
