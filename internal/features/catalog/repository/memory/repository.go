package memory

import (
	"context"
	"sync"

	"topup-bot-backend/internal/features/catalog/repository"
)

type overrideRepository struct {
	mu        sync.RWMutex
	overrides map[string]int64
}

func NewOverrideRepository() repository.OverrideRepository {
	return &overrideRepository{overrides: make(map[string]int64)}
}

func (r *overrideRepository) Get(_ context.Context, itemCode string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	price, ok := r.overrides[itemCode]
	return price, ok, nil
}

func (r *overrideRepository) Set(_ context.Context, itemCode string, price int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[itemCode] = price
	return nil
}

func (r *overrideRepository) Delete(_ context.Context, itemCode string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.overrides[itemCode]
	delete(r.overrides, itemCode)
	return ok, nil
}

func (r *overrideRepository) All(_ context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.overrides))
	for code, price := range r.overrides {
		out[code] = price
	}
	return out, nil
}
