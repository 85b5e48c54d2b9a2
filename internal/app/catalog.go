package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/clock"
	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

type CatalogAdminRepository interface {
	CreateItem(ctx context.Context, item domain.InventoryItem) error
	UpdateItemStatus(ctx context.Context, businessID, itemID string, status domain.ItemStatus) error
	ListItems(ctx context.Context, businessID string) ([]domain.InventoryItem, error)
	UpsertPolicy(ctx context.Context, policy domain.BusinessPolicy) error
}

// CatalogService is the small admin surface for maintaining inventory and
// business policy. It has no part in allocation decisions.
type CatalogService struct {
	repo  CatalogAdminRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogAdminRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{repo: repo, clock: clk}
}

type CreateItemInput struct {
	BusinessID      string
	Name            string
	Type            domain.ItemType
	QuantityOwned   int
	SetupMinutes    int
	TeardownMinutes int
	UnitPrice       decimal.Decimal
}

func (s *CatalogService) CreateItem(ctx context.Context, in CreateItemInput) (domain.InventoryItem, error) {
	if in.BusinessID == "" {
		return domain.InventoryItem{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.InventoryItem{}, domain.ErrItemNameRequired
	}
	if !in.Type.Valid() {
		return domain.InventoryItem{}, domain.ErrInvalidItemType
	}
	if in.QuantityOwned < 1 {
		return domain.InventoryItem{}, domain.ErrInvalidQuantity
	}
	if in.SetupMinutes < 0 || in.TeardownMinutes < 0 {
		return domain.InventoryItem{}, domain.ErrInvalidWindow
	}
	if in.UnitPrice.IsNegative() {
		return domain.InventoryItem{}, domain.ErrInvalidPrice
	}

	item := domain.InventoryItem{
		ID:              uuid.NewString(),
		BusinessID:      in.BusinessID,
		Name:            in.Name,
		Type:            in.Type,
		QuantityOwned:   in.QuantityOwned,
		SetupMinutes:    in.SetupMinutes,
		TeardownMinutes: in.TeardownMinutes,
		Status:          domain.ItemStatusAvailable,
		UnitPrice:       in.UnitPrice,
		CreatedAt:       s.clock.Now(),
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

// RetireItem takes an item out of circulation. Existing bookings keep their
// windows; only new allocations are blocked.
func (s *CatalogService) RetireItem(ctx context.Context, businessID, itemID string) error {
	if businessID == "" || itemID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.UpdateItemStatus(ctx, businessID, itemID, domain.ItemStatusRetired)
}

func (s *CatalogService) ListItems(ctx context.Context, businessID string) ([]domain.InventoryItem, error) {
	if businessID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListItems(ctx, businessID)
}

func (s *CatalogService) SetPolicy(ctx context.Context, policy domain.BusinessPolicy) error {
	if policy.BusinessID == "" {
		return domain.ErrInvalidID
	}
	if policy.TaxRate.IsNegative() || policy.MinimumPurchase.IsNegative() {
		return domain.ErrInvalidPrice
	}
	if policy.MinAdvance < 0 || policy.MaxAdvance < policy.MinAdvance {
		return domain.ErrInvalidWindow
	}
	return s.repo.UpsertPolicy(ctx, policy)
}
