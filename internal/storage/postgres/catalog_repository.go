package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fresh-Industries/InflateMate-sub000/internal/domain"
)

// CatalogRepository reads and maintains inventory items, business policy, and
// coupons. The planner treats everything here as immutable for the duration of
// one allocation decision.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetItem(ctx context.Context, businessID, itemID string) (domain.InventoryItem, error) {
	const query = `
SELECT id, business_id, name, item_type, quantity_owned, setup_minutes,
       teardown_minutes, status, unit_price, created_at
FROM inventory_items
WHERE id = $1 AND business_id = $2`

	var item domain.InventoryItem
	var itemType, status string
	err := r.queryRow(ctx, query, itemID, businessID).Scan(
		&item.ID, &item.BusinessID, &item.Name, &itemType, &item.QuantityOwned,
		&item.SetupMinutes, &item.TeardownMinutes, &status, &item.UnitPrice, &item.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.InventoryItem{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InventoryItem{}, domain.ErrItemNotFound
		}
		return domain.InventoryItem{}, &domain.StoreUnavailableError{Op: "get item", Err: err}
	}
	item.Type = domain.ItemType(itemType)
	item.Status = domain.ItemStatus(status)
	return item, nil
}

func (r *CatalogRepository) ListItems(ctx context.Context, businessID string) ([]domain.InventoryItem, error) {
	const query = `
SELECT id, business_id, name, item_type, quantity_owned, setup_minutes,
       teardown_minutes, status, unit_price, created_at
FROM inventory_items
WHERE business_id = $1
ORDER BY name`

	rows, err := r.query(ctx, query, businessID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, &domain.StoreUnavailableError{Op: "list items", Err: err}
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		var itemType, status string
		if err := rows.Scan(
			&item.ID, &item.BusinessID, &item.Name, &itemType, &item.QuantityOwned,
			&item.SetupMinutes, &item.TeardownMinutes, &status, &item.UnitPrice, &item.CreatedAt,
		); err != nil {
			return nil, &domain.StoreUnavailableError{Op: "list items", Err: err}
		}
		item.Type = domain.ItemType(itemType)
		item.Status = domain.ItemStatus(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list items", Err: err}
	}
	return items, nil
}

func (r *CatalogRepository) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	const stmt = `
INSERT INTO inventory_items (
	id, business_id, name, item_type, quantity_owned, setup_minutes,
	teardown_minutes, status, unit_price, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		item.ID, item.BusinessID, item.Name, item.Type, item.QuantityOwned,
		item.SetupMinutes, item.TeardownMinutes, item.Status, item.UnitPrice, item.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrItemExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "create item", Err: err}
	}
	return nil
}

func (r *CatalogRepository) UpdateItemStatus(ctx context.Context, businessID, itemID string, status domain.ItemStatus) error {
	const stmt = `UPDATE inventory_items SET status = $3 WHERE id = $1 AND business_id = $2`

	tag, err := r.exec(ctx, stmt, itemID, businessID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "update item status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *CatalogRepository) GetPolicy(ctx context.Context, businessID string) (domain.BusinessPolicy, error) {
	const query = `
SELECT business_id, tax_rate, deposit_rate, deposit_flat,
       min_advance_minutes, max_advance_minutes, minimum_purchase
FROM business_policies
WHERE business_id = $1`

	var p domain.BusinessPolicy
	var minAdvance, maxAdvance int
	err := r.queryRow(ctx, query, businessID).Scan(
		&p.BusinessID, &p.TaxRate, &p.DepositRate, &p.DepositFlat,
		&minAdvance, &maxAdvance, &p.MinimumPurchase,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.BusinessPolicy{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BusinessPolicy{}, domain.ErrBusinessNotFound
		}
		return domain.BusinessPolicy{}, &domain.StoreUnavailableError{Op: "get policy", Err: err}
	}
	p.MinAdvance = time.Duration(minAdvance) * time.Minute
	p.MaxAdvance = time.Duration(maxAdvance) * time.Minute
	return p, nil
}

func (r *CatalogRepository) UpsertPolicy(ctx context.Context, policy domain.BusinessPolicy) error {
	const stmt = `
INSERT INTO business_policies (
	business_id, tax_rate, deposit_rate, deposit_flat,
	min_advance_minutes, max_advance_minutes, minimum_purchase
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (business_id) DO UPDATE SET
	tax_rate = EXCLUDED.tax_rate,
	deposit_rate = EXCLUDED.deposit_rate,
	deposit_flat = EXCLUDED.deposit_flat,
	min_advance_minutes = EXCLUDED.min_advance_minutes,
	max_advance_minutes = EXCLUDED.max_advance_minutes,
	minimum_purchase = EXCLUDED.minimum_purchase`

	_, err := r.exec(ctx, stmt,
		policy.BusinessID, policy.TaxRate, policy.DepositRate, policy.DepositFlat,
		int(policy.MinAdvance.Minutes()), int(policy.MaxAdvance.Minutes()), policy.MinimumPurchase,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "upsert policy", Err: err}
	}
	return nil
}

func (r *CatalogRepository) GetCoupon(ctx context.Context, businessID, code string) (domain.Coupon, error) {
	const query = `
SELECT id, business_id, code, discount_type, discount_amount, minimum_amount,
       starts_at, ends_at, max_uses, use_count, active
FROM coupons
WHERE business_id = $1 AND code = $2`

	var c domain.Coupon
	var discountType string
	err := r.queryRow(ctx, query, businessID, code).Scan(
		&c.ID, &c.BusinessID, &c.Code, &discountType, &c.DiscountAmount, &c.MinimumAmount,
		&c.StartsAt, &c.EndsAt, &c.MaxUses, &c.UseCount, &c.Active,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Coupon{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coupon{}, domain.ErrCouponNotFound
		}
		return domain.Coupon{}, &domain.StoreUnavailableError{Op: "get coupon", Err: err}
	}
	c.DiscountType = domain.DiscountType(discountType)
	return c, nil
}

func (r *CatalogRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *CatalogRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
