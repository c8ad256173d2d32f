package memory

import (
	"context"
	"sync"

	"topup-bot-backend/internal/features/auth/repository"
)

type authorizedSetRepository struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewAuthorizedSetRepository() repository.AuthorizedSetRepository {
	return &authorizedSetRepository{ids: make(map[string]struct{})}
}

func (r *authorizedSetRepository) Add(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = struct{}{}
	return nil
}

func (r *authorizedSetRepository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, id)
	return nil
}

func (r *authorizedSetRepository) Contains(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[id]
	return ok, nil
}

func (r *authorizedSetRepository) All(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	return out, nil
}
