package state

import (
	"sync"
	"time"
)

// PendingStage is a top-up amount the user has declared but not yet
// evidenced with proof of payment.
type PendingStage struct {
	Amount   int64
	StagedAt time.Time
}

// StageStore holds staged top-up amounts. Deliberately process-
// lifetime only: a stage lost on restart is recovered by the user
// re-issuing the stage command.
type StageStore struct {
	mu     sync.RWMutex
	stages map[string]PendingStage
}

func NewStageStore() *StageStore {
	return &StageStore{stages: make(map[string]PendingStage)}
}

// Put records a stage for the account, replacing any previous one
// (last stage wins).
func (s *StageStore) Put(accountID string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[accountID] = PendingStage{Amount: amount, StagedAt: time.Now()}
}

func (s *StageStore) Get(accountID string) (PendingStage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stage, ok := s.stages[accountID]
	return stage, ok
}

func (s *StageStore) Clear(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stages, accountID)
}

// RestrictionStore tracks accounts locked out while an admin decision
// on a submitted top-up is outstanding. A set flag implies a pending
// top-up exists for that account; it is rehydrated from the durable
// store at process start.
type RestrictionStore struct {
	mu         sync.RWMutex
	restricted map[string]struct{}
}

func NewRestrictionStore() *RestrictionStore {
	return &RestrictionStore{restricted: make(map[string]struct{})}
}

func (s *RestrictionStore) Restrict(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restricted[accountID] = struct{}{}
}

func (s *RestrictionStore) Clear(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.restricted, accountID)
}

func (s *RestrictionStore) IsRestricted(accountID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.restricted[accountID]
	return ok
}
