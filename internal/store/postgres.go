package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts a pgx pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries provides hand-written SQL access to the rule store.
type Queries struct {
	db DBTX
}

// New constructs Queries over a pool or connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the provided transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const couponColumns = `id, code, kind, value, max_discount, min_order_value,
	usage_limit_total, usage_limit_per_user, usage_count,
	applies_to, applicable_ids, excluded_ids, customer_eligibility,
	is_stackable, is_auto_apply, is_active, starts_at, ends_at,
	created_at, updated_at, deleted_at`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Kind, &c.Value, &c.MaxDiscount, &c.MinOrderValue,
		&c.UsageLimitTotal, &c.UsageLimitPerUser, &c.UsageCount,
		&c.AppliesTo, &c.ApplicableIDs, &c.ExcludedIDs, &c.CustomerEligibility,
		&c.IsStackable, &c.IsAutoApply, &c.IsActive, &c.StartsAt, &c.EndsAt,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	return c, err
}

// GetCouponByCode fetches a coupon by its uppercase code. Soft-deleted rows
// are excluded.
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1 AND deleted_at IS NULL`, code)
	return scanCoupon(row)
}

// ListCoupons returns all non-deleted coupons ordered by creation time.
func (q *Queries) ListCoupons(ctx context.Context) ([]Coupon, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListAutoApplyCoupons returns active auto-apply coupons whose validity
// window contains now.
func (q *Queries) ListAutoApplyCoupons(ctx context.Context, now time.Time) ([]Coupon, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons
		 WHERE deleted_at IS NULL AND is_active AND is_auto_apply
		   AND (starts_at IS NULL OR starts_at <= $1)
		   AND (ends_at IS NULL OR ends_at >= $1)
		 ORDER BY created_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCouponParams carries admin-authored coupon fields.
type CreateCouponParams struct {
	Code                string
	Kind                string
	Value               float64
	MaxDiscount         *float64
	MinOrderValue       float64
	UsageLimitTotal     *int32
	UsageLimitPerUser   *int32
	AppliesTo           string
	ApplicableIDs       []string
	ExcludedIDs         []string
	CustomerEligibility string
	IsStackable         bool
	IsAutoApply         bool
	IsActive            bool
	StartsAt            *time.Time
	EndsAt              *time.Time
}

// CreateCoupon inserts a coupon and returns the stored row.
func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO coupons (
			code, kind, value, max_discount, min_order_value,
			usage_limit_total, usage_limit_per_user,
			applies_to, applicable_ids, excluded_ids, customer_eligibility,
			is_stackable, is_auto_apply, is_active, starts_at, ends_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING `+couponColumns,
		arg.Code, arg.Kind, arg.Value, arg.MaxDiscount, arg.MinOrderValue,
		arg.UsageLimitTotal, arg.UsageLimitPerUser,
		arg.AppliesTo, arg.ApplicableIDs, arg.ExcludedIDs, arg.CustomerEligibility,
		arg.IsStackable, arg.IsAutoApply, arg.IsActive, arg.StartsAt, arg.EndsAt,
	)
	return scanCoupon(row)
}

// UpdateCoupon replaces mutable coupon fields identified by code.
func (q *Queries) UpdateCoupon(ctx context.Context, code string, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE coupons SET
			kind = $2, value = $3, max_discount = $4, min_order_value = $5,
			usage_limit_total = $6, usage_limit_per_user = $7,
			applies_to = $8, applicable_ids = $9, excluded_ids = $10,
			customer_eligibility = $11, is_stackable = $12, is_auto_apply = $13,
			is_active = $14, starts_at = $15, ends_at = $16, updated_at = now()
		 WHERE code = $1 AND deleted_at IS NULL
		 RETURNING `+couponColumns,
		code, arg.Kind, arg.Value, arg.MaxDiscount, arg.MinOrderValue,
		arg.UsageLimitTotal, arg.UsageLimitPerUser,
		arg.AppliesTo, arg.ApplicableIDs, arg.ExcludedIDs, arg.CustomerEligibility,
		arg.IsStackable, arg.IsAutoApply, arg.IsActive, arg.StartsAt, arg.EndsAt,
	)
	return scanCoupon(row)
}

// SoftDeleteCoupon marks a coupon deleted without destroying its usage
// history.
func (q *Queries) SoftDeleteCoupon(ctx context.Context, code string) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE coupons SET deleted_at = now(), updated_at = now()
		 WHERE code = $1 AND deleted_at IS NULL`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountCouponUsageByIdentity returns how many times an identity has redeemed
// a coupon.
func (q *Queries) CountCouponUsageByIdentity(ctx context.Context, couponID uuid.UUID, identity string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND identity = $2`,
		couponID, identity).Scan(&count)
	return count, err
}

// GetCouponUsageByOrder looks up an existing redemption fact for an order.
func (q *Queries) GetCouponUsageByOrder(ctx context.Context, couponID uuid.UUID, orderID string) (CouponUsage, error) {
	var u CouponUsage
	err := q.db.QueryRow(ctx,
		`SELECT id, coupon_id, identity, order_id, amount, created_at
		 FROM coupon_usages WHERE coupon_id = $1 AND order_id = $2`,
		couponID, orderID).Scan(&u.ID, &u.CouponID, &u.Identity, &u.OrderID, &u.Amount, &u.CreatedAt)
	return u, err
}

// TryIncrementCouponUsage bumps usage_count only while a usage slot remains.
// It reports false when the total limit is already exhausted, which keeps
// concurrent redemptions of a near-exhausted coupon from both succeeding.
func (q *Queries) TryIncrementCouponUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		   AND (usage_limit_total IS NULL OR usage_count < usage_limit_total)`,
		couponID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertCouponUsage appends a redemption fact to the ledger.
func (q *Queries) InsertCouponUsage(ctx context.Context, couponID uuid.UUID, identity *string, orderID string, amount float64) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO coupon_usages (coupon_id, identity, order_id, amount)
		 VALUES ($1, $2, $3, $4)`,
		couponID, identity, orderID, amount)
	return err
}

func marshalLevels(levels []TierLevel) ([]byte, error) {
	data, err := json.Marshal(levels)
	if err != nil {
		return nil, fmt.Errorf("encode tier levels: %w", err)
	}
	return data, nil
}

func unmarshalLevels(data []byte, dst *[]TierLevel) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode tier levels: %w", err)
	}
	return nil
}
