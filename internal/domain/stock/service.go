package stock

import (
	"context"

	"mise/internal/core/id"
	"mise/pkg/logger"
)

// Service exposes read-side balance queries for the HTTP layer.
type Service struct {
	repo Repository
}

// NewService creates a stock query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetBalance returns the balance for one location/variant pair. A missing
// row reads as a zero balance.
func (s *Service) GetBalance(ctx context.Context, locationID, variantID id.ID) (*Balance, error) {
	b, found, err := s.repo.Get(ctx, locationID, variantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Balance{
			InventoryLocationID: locationID,
			ItemVariantID:       variantID,
		}, nil
	}
	return b, nil
}

// ListByLocation returns all balances at a location.
func (s *Service) ListByLocation(ctx context.Context, locationID id.ID) ([]Balance, error) {
	balances, err := s.repo.ListByLocation(ctx, locationID)
	if err != nil {
		logger.Error(ctx, "list balances by location failed", "location_id", locationID, "error", err)
		return nil, err
	}
	return balances, nil
}

// ListByVariant returns the balances of one variant across all locations.
func (s *Service) ListByVariant(ctx context.Context, variantID id.ID) ([]Balance, error) {
	balances, err := s.repo.ListByVariant(ctx, variantID)
	if err != nil {
		logger.Error(ctx, "list balances by variant failed", "variant_id", variantID, "error", err)
		return nil, err
	}
	return balances, nil
}
