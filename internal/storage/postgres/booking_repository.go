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

// BookingRepository persists bookings and answers committed-quantity queries.
// It backs the ledger, the lifecycle, and the availability index; all three
// share the same tables so the committed view is updated in the same
// transaction as the booking rows it derives from.
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, pgx.TxOptions{}, fn)
}

// WithCommitTx runs fn in a serializable transaction. Write skew between the
// availability re-check and the insert is impossible at this level; aborts
// surface as domain.ErrConcurrentUpdate for the ledger to retry.
func (r *BookingRepository) WithCommitTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// CommittedQuantity sums quantity across lines of non-cancelled bookings whose
// effective window (event window widened by the item's setup/teardown buffers)
// intersects the half-open window [start, end). This query is the reference
// semantics for availability.
func (r *BookingRepository) CommittedQuantity(ctx context.Context, businessID, itemID string, w domain.TimeWindow) (int, error) {
	const query = `
SELECT COALESCE(SUM(bi.quantity), 0)
FROM booking_items bi
JOIN bookings b ON b.id = bi.booking_id
JOIN inventory_items i ON i.id = bi.item_id
WHERE b.business_id = $1
  AND bi.item_id = $2
  AND b.status <> 'CANCELLED'
  AND b.start_time - make_interval(mins => i.setup_minutes) < $4
  AND $3 < b.end_time + make_interval(mins => i.teardown_minutes)`

	var total int
	if err := r.queryRow(ctx, query, businessID, itemID, w.Start, w.End).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, &domain.StoreUnavailableError{Op: "committed quantity", Err: err}
	}
	return total, nil
}

// CommittedWindows lists the effective windows of non-cancelled lines for the
// item intersecting the horizon, ordered by start.
func (r *BookingRepository) CommittedWindows(ctx context.Context, businessID, itemID string, horizon domain.TimeWindow) ([]domain.CommittedWindow, error) {
	const query = `
SELECT b.start_time - make_interval(mins => i.setup_minutes),
       b.end_time + make_interval(mins => i.teardown_minutes),
       bi.quantity
FROM booking_items bi
JOIN bookings b ON b.id = bi.booking_id
JOIN inventory_items i ON i.id = bi.item_id
WHERE b.business_id = $1
  AND bi.item_id = $2
  AND b.status <> 'CANCELLED'
  AND b.start_time - make_interval(mins => i.setup_minutes) < $4
  AND $3 < b.end_time + make_interval(mins => i.teardown_minutes)
ORDER BY 1`

	rows, err := r.query(ctx, query, businessID, itemID, horizon.Start, horizon.End)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, &domain.StoreUnavailableError{Op: "committed windows", Err: err}
	}
	defer rows.Close()

	var out []domain.CommittedWindow
	for rows.Next() {
		var cw domain.CommittedWindow
		var start, end time.Time
		if err := rows.Scan(&start, &end, &cw.Quantity); err != nil {
			return nil, &domain.StoreUnavailableError{Op: "committed windows", Err: err}
		}
		cw.Window = domain.NewTimeWindow(start, end)
		out = append(out, cw)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "committed windows", Err: err}
	}
	return out, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking domain.Booking) error {
	const bookingStmt = `
INSERT INTO bookings (
	id, business_id, customer_id, status, event_date, start_time, end_time,
	coupon_code, subtotal, discount_total, tax_rate, tax_amount,
	deposit_amount, deposit_paid, total_amount, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.exec(ctx, bookingStmt,
		booking.ID,
		booking.BusinessID,
		booking.CustomerID,
		booking.Status,
		booking.EventDate,
		booking.StartTime,
		booking.EndTime,
		nullableString(booking.CouponCode),
		booking.Subtotal,
		booking.DiscountTotal,
		booking.TaxRate,
		booking.TaxAmount,
		booking.DepositAmount,
		booking.DepositPaid,
		booking.TotalAmount,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "create booking", Err: err}
	}

	const itemStmt = `
INSERT INTO booking_items (id, booking_id, item_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)`

	for _, item := range booking.Items {
		if _, err := r.exec(ctx, itemStmt, item.ID, item.BookingID, item.ItemID, item.Quantity, item.UnitPrice); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return &domain.StoreUnavailableError{Op: "create booking item", Err: err}
		}
	}
	return nil
}

func (r *BookingRepository) IncrementCouponUse(ctx context.Context, couponID string) error {
	const stmt = `UPDATE coupons SET use_count = use_count + 1 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, couponID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "increment coupon use", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	return r.getBooking(ctx, bookingID, false)
}

func (r *BookingRepository) GetBookingForUpdate(ctx context.Context, bookingID string) (domain.Booking, error) {
	return r.getBooking(ctx, bookingID, true)
}

func (r *BookingRepository) getBooking(ctx context.Context, bookingID string, forUpdate bool) (domain.Booking, error) {
	query := `
SELECT id, business_id, customer_id, status, event_date, start_time, end_time,
       COALESCE(coupon_code, ''), subtotal, discount_total, tax_rate, tax_amount,
       deposit_amount, deposit_paid, total_amount, created_at, updated_at
FROM bookings
WHERE id = $1`
	if forUpdate {
		query += `
FOR UPDATE`
	}

	var b domain.Booking
	var status string
	err := r.queryRow(ctx, query, bookingID).Scan(
		&b.ID, &b.BusinessID, &b.CustomerID, &status, &b.EventDate, &b.StartTime, &b.EndTime,
		&b.CouponCode, &b.Subtotal, &b.DiscountTotal, &b.TaxRate, &b.TaxAmount,
		&b.DepositAmount, &b.DepositPaid, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Booking{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, &domain.StoreUnavailableError{Op: "get booking", Err: err}
	}
	b.Status = domain.BookingStatus(status)

	items, err := r.listBookingItems(ctx, b.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Items = items
	return b, nil
}

func (r *BookingRepository) listBookingItems(ctx context.Context, bookingID string) ([]domain.BookingItem, error) {
	const query = `
SELECT id, booking_id, item_id, quantity, unit_price
FROM booking_items
WHERE booking_id = $1
ORDER BY item_id`

	rows, err := r.query(ctx, query, bookingID)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list booking items", Err: err}
	}
	defer rows.Close()

	var items []domain.BookingItem
	for rows.Next() {
		var item domain.BookingItem
		if err := rows.Scan(&item.ID, &item.BookingID, &item.ItemID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, &domain.StoreUnavailableError{Op: "list booking items", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list booking items", Err: err}
	}
	return items, nil
}

func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, booking domain.Booking) error {
	const stmt = `
UPDATE bookings
SET status = $2, deposit_paid = $3, updated_at = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, booking.ID, booking.Status, booking.DepositPaid, booking.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return &domain.StoreUnavailableError{Op: "update booking status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
