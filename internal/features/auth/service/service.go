package service

import (
	"context"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/auth/repository"
	"topup-bot-backend/internal/features/topup/state"
	"topup-bot-backend/internal/service/notifier"
)

// AuthService answers whether a caller may use the service at all and
// lets the owner grant or revoke access. The owner identity is fixed
// by configuration, always authorized and the only caller allowed to
// mutate the set.
type AuthService interface {
	IsAuthorized(ctx context.Context, id string) (bool, error)
	IsOwner(id string) bool
	Authorize(ctx context.Context, callerID, targetID string) error
	Revoke(ctx context.Context, callerID, targetID string) error
	AuthorizedIDs(ctx context.Context) ([]string, error)
}

type authService struct {
	repo         repository.AuthorizedSetRepository
	restrictions *state.RestrictionStore
	notify       notifier.Notifier
	ownerID      string
}

func NewAuthService(repo repository.AuthorizedSetRepository, restrictions *state.RestrictionStore, notify notifier.Notifier, ownerID string) AuthService {
	return &authService{
		repo:         repo,
		restrictions: restrictions,
		notify:       notify,
		ownerID:      ownerID,
	}
}

func (s *authService) IsOwner(id string) bool {
	return id != "" && id == s.ownerID
}

func (s *authService) IsAuthorized(ctx context.Context, id string) (bool, error) {
	if s.IsOwner(id) {
		return true, nil
	}
	return s.repo.Contains(ctx, id)
}

func (s *authService) Authorize(ctx context.Context, callerID, targetID string) error {
	if !s.IsOwner(callerID) {
		return apperrors.New(apperrors.ErrCodeUnauthorized, "only the owner may authorize accounts")
	}

	already, err := s.repo.Contains(ctx, targetID)
	if err != nil {
		return err
	}
	if already {
		return apperrors.Newf(apperrors.ErrCodeAlreadyInState, "account %s is already authorized", targetID)
	}

	if err := s.repo.Add(ctx, targetID); err != nil {
		return err
	}

	// A freshly authorized account starts with a clean slate.
	s.restrictions.Clear(targetID)

	s.notify.NotifyUser(ctx, targetID,
		"Access granted. You can now use the service; send start to begin.")
	return nil
}

func (s *authService) Revoke(ctx context.Context, callerID, targetID string) error {
	if !s.IsOwner(callerID) {
		return apperrors.New(apperrors.ErrCodeUnauthorized, "only the owner may revoke accounts")
	}

	present, err := s.repo.Contains(ctx, targetID)
	if err != nil {
		return err
	}
	if !present {
		return apperrors.Newf(apperrors.ErrCodeAlreadyInState, "account %s is not authorized", targetID)
	}

	if err := s.repo.Remove(ctx, targetID); err != nil {
		return err
	}

	s.notify.NotifyUser(ctx, targetID,
		"Your access has been revoked. Contact the owner to regain it.")
	return nil
}

func (s *authService) AuthorizedIDs(ctx context.Context) ([]string, error) {
	return s.repo.All(ctx)
}
