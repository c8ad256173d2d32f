package service

import (
	"context"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/maintenance/repository"
)

// Features gated by the switchboard.
const (
	FeatureOrders = "orders"
	FeatureTopups = "topups"
	// FeatureGeneral gates the whole command surface ahead of the
	// per-feature flags.
	FeatureGeneral = "general"
)

func KnownFeature(feature string) bool {
	switch feature {
	case FeatureOrders, FeatureTopups, FeatureGeneral:
		return true
	}
	return false
}

// SwitchboardService exposes three independent on/off gates. Reads
// fail open: a feature that was never written, or is unknown, counts
// as enabled.
type SwitchboardService interface {
	IsEnabled(ctx context.Context, feature string) bool
	SetFlag(ctx context.Context, feature string, enabled bool) error
	Flags(ctx context.Context) map[string]bool
}

type switchboardService struct {
	repo repository.FlagRepository
}

func NewSwitchboardService(repo repository.FlagRepository) SwitchboardService {
	return &switchboardService{repo: repo}
}

func (s *switchboardService) IsEnabled(ctx context.Context, feature string) bool {
	enabled, ok, err := s.repo.Get(ctx, feature)
	if err != nil || !ok {
		return true
	}
	return enabled
}

func (s *switchboardService) SetFlag(ctx context.Context, feature string, enabled bool) error {
	if !KnownFeature(feature) {
		return apperrors.Newf(apperrors.ErrCodeNotFound, "unknown feature %q", feature)
	}
	return s.repo.Set(ctx, feature, enabled)
}

func (s *switchboardService) Flags(ctx context.Context) map[string]bool {
	flags := map[string]bool{
		FeatureOrders:  true,
		FeatureTopups:  true,
		FeatureGeneral: true,
	}
	stored, err := s.repo.All(ctx)
	if err != nil {
		return flags
	}
	for feature, enabled := range stored {
		flags[feature] = enabled
	}
	return flags
}
