package service

import (
	"context"
	"strconv"
	"strings"

	apperrors "topup-bot-backend/internal/common/errors"
	"topup-bot-backend/internal/features/catalog/models"
	"topup-bot-backend/internal/features/catalog/repository"
)

// CatalogService resolves item codes to prices. Resolution order:
// operator override, weekly-pass rule, default bundle tables.
type CatalogService interface {
	Price(ctx context.Context, itemCode string) (int64, error)
	SetPrice(ctx context.Context, itemCode string, price int64) error
	ClearPrice(ctx context.Context, itemCode string) error
	PriceList(ctx context.Context) (*models.PriceList, error)
}

type catalogService struct {
	overrides      repository.OverrideRepository
	weeklyUnitCost int64
}

func NewCatalogService(overrides repository.OverrideRepository, weeklyUnitCost int64) CatalogService {
	if weeklyUnitCost <= 0 {
		weeklyUnitCost = models.DefaultWeeklyPassUnitPrice
	}
	return &catalogService{overrides: overrides, weeklyUnitCost: weeklyUnitCost}
}

func (s *catalogService) Price(ctx context.Context, itemCode string) (int64, error) {
	price, ok, err := s.overrides.Get(ctx, itemCode)
	if err != nil {
		return 0, err
	}
	if ok {
		return price, nil
	}

	if tier, ok := weeklyPassTier(itemCode); ok {
		return int64(tier) * s.weeklyUnitCost, nil
	}

	if price, ok := models.DefaultBundlePrices[itemCode]; ok {
		return price, nil
	}
	if price, ok := models.DefaultDoubleBundlePrices[itemCode]; ok {
		return price, nil
	}

	return 0, apperrors.Newf(apperrors.ErrCodeUnknownItem, "unknown item code %q", itemCode)
}

func (s *catalogService) SetPrice(ctx context.Context, itemCode string, price int64) error {
	if price < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidAmount, "price must not be negative")
	}
	return s.overrides.Set(ctx, itemCode, price)
}

func (s *catalogService) ClearPrice(ctx context.Context, itemCode string) error {
	existed, err := s.overrides.Delete(ctx, itemCode)
	if err != nil {
		return err
	}
	if !existed {
		return apperrors.Newf(apperrors.ErrCodeNotFound, "no price override for %q", itemCode)
	}
	return nil
}

func (s *catalogService) PriceList(ctx context.Context) (*models.PriceList, error) {
	overrides, err := s.overrides.All(ctx)
	if err != nil {
		return nil, err
	}
	return &models.PriceList{
		WeeklyPassUnitPrice: s.weeklyUnitCost,
		Bundles:             models.DefaultBundlePrices,
		DoubleBundles:       models.DefaultDoubleBundlePrices,
		Overrides:           overrides,
	}, nil
}

// weeklyPassTier parses "wp<n>" with n in 1..10. Codes like "wp0",
// "wp11" or "wp1x" are not weekly passes.
func weeklyPassTier(itemCode string) (int, bool) {
	rest, ok := strings.CutPrefix(itemCode, models.WeeklyPassPrefix)
	if !ok {
		return 0, false
	}
	tier, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	if tier < models.WeeklyPassMinTier || tier > models.WeeklyPassMaxTier {
		return 0, false
	}
	return tier, true
}
