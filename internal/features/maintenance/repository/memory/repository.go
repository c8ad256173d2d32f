package memory

import (
	"context"
	"sync"

	"topup-bot-backend/internal/features/maintenance/repository"
)

type flagRepository struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewFlagRepository() repository.FlagRepository {
	return &flagRepository{flags: make(map[string]bool)}
}

func (r *flagRepository) Get(_ context.Context, feature string) (bool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	enabled, ok := r.flags[feature]
	return enabled, ok, nil
}

func (r *flagRepository) Set(_ context.Context, feature string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[feature] = enabled
	return nil
}

func (r *flagRepository) All(_ context.Context) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.flags))
	for feature, enabled := range r.flags {
		out[feature] = enabled
	}
	return out, nil
}
