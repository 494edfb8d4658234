package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const discountColumns = `id, name, kind, value, max_discount, min_order_value,
	applies_to, priority, is_stackable, is_active, starts_at, ends_at,
	created_at, updated_at`

func scanDiscount(row pgx.Row) (AutomaticDiscount, error) {
	var d AutomaticDiscount
	err := row.Scan(
		&d.ID, &d.Name, &d.Kind, &d.Value, &d.MaxDiscount, &d.MinOrderValue,
		&d.AppliesTo, &d.Priority, &d.IsStackable, &d.IsActive, &d.StartsAt, &d.EndsAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// ListActiveAutomaticDiscounts returns active discounts whose validity
// window contains now, rank order first (priority 1 evaluated first), then
// creation order for stable ties.
func (q *Queries) ListActiveAutomaticDiscounts(ctx context.Context, now time.Time) ([]AutomaticDiscount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+discountColumns+` FROM automatic_discounts
		 WHERE is_active
		   AND (starts_at IS NULL OR starts_at <= $1)
		   AND (ends_at IS NULL OR ends_at >= $1)
		 ORDER BY priority, created_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AutomaticDiscount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListAutomaticDiscounts returns all automatic discounts for administration.
func (q *Queries) ListAutomaticDiscounts(ctx context.Context) ([]AutomaticDiscount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+discountColumns+` FROM automatic_discounts ORDER BY priority, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AutomaticDiscount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CreateDiscountParams carries admin-authored automatic discount fields.
type CreateDiscountParams struct {
	Name          string
	Kind          string
	Value         float64
	MaxDiscount   *float64
	MinOrderValue float64
	AppliesTo     string
	Priority      int32
	IsStackable   bool
	IsActive      bool
	StartsAt      *time.Time
	EndsAt        *time.Time
}

// CreateAutomaticDiscount inserts an automatic discount.
func (q *Queries) CreateAutomaticDiscount(ctx context.Context, arg CreateDiscountParams) (AutomaticDiscount, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO automatic_discounts (
			name, kind, value, max_discount, min_order_value,
			applies_to, priority, is_stackable, is_active, starts_at, ends_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+discountColumns,
		arg.Name, arg.Kind, arg.Value, arg.MaxDiscount, arg.MinOrderValue,
		arg.AppliesTo, arg.Priority, arg.IsStackable, arg.IsActive, arg.StartsAt, arg.EndsAt,
	)
	return scanDiscount(row)
}

// UpdateAutomaticDiscount replaces mutable discount fields.
func (q *Queries) UpdateAutomaticDiscount(ctx context.Context, id uuid.UUID, arg CreateDiscountParams) (AutomaticDiscount, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE automatic_discounts SET
			name = $2, kind = $3, value = $4, max_discount = $5, min_order_value = $6,
			applies_to = $7, priority = $8, is_stackable = $9, is_active = $10,
			starts_at = $11, ends_at = $12, updated_at = now()
		 WHERE id = $1
		 RETURNING `+discountColumns,
		id, arg.Name, arg.Kind, arg.Value, arg.MaxDiscount, arg.MinOrderValue,
		arg.AppliesTo, arg.Priority, arg.IsStackable, arg.IsActive, arg.StartsAt, arg.EndsAt,
	)
	return scanDiscount(row)
}

// DeleteAutomaticDiscount removes an automatic discount.
func (q *Queries) DeleteAutomaticDiscount(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM automatic_discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTier(row pgx.Row) (TierDiscount, error) {
	var (
		t      TierDiscount
		levels []byte
	)
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &levels, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	err = unmarshalLevels(levels, &t.Levels)
	return t, err
}

// GetTierDiscount fetches a tier ladder by id.
func (q *Queries) GetTierDiscount(ctx context.Context, id uuid.UUID) (TierDiscount, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, name, kind, levels, is_active, created_at, updated_at
		 FROM tier_discounts WHERE id = $1`, id)
	return scanTier(row)
}

// ListTierDiscounts returns all tier ladders for administration.
func (q *Queries) ListTierDiscounts(ctx context.Context) ([]TierDiscount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, kind, levels, is_active, created_at, updated_at
		 FROM tier_discounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TierDiscount
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTierDiscount inserts a tier ladder. Levels are validated by the tier
// package before reaching the store.
func (q *Queries) CreateTierDiscount(ctx context.Context, name, kind string, levels []TierLevel, isActive bool) (TierDiscount, error) {
	data, err := marshalLevels(levels)
	if err != nil {
		return TierDiscount{}, err
	}
	row := q.db.QueryRow(ctx,
		`INSERT INTO tier_discounts (name, kind, levels, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, kind, levels, is_active, created_at, updated_at`,
		name, kind, data, isActive)
	return scanTier(row)
}

// UpdateTierDiscount replaces a tier ladder definition.
func (q *Queries) UpdateTierDiscount(ctx context.Context, id uuid.UUID, name, kind string, levels []TierLevel, isActive bool) (TierDiscount, error) {
	data, err := marshalLevels(levels)
	if err != nil {
		return TierDiscount{}, err
	}
	row := q.db.QueryRow(ctx,
		`UPDATE tier_discounts SET name = $2, kind = $3, levels = $4, is_active = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, kind, levels, is_active, created_at, updated_at`,
		id, name, kind, data, isActive)
	return scanTier(row)
}

// DeleteTierDiscount removes a tier ladder.
func (q *Queries) DeleteTierDiscount(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tier_discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const giftColumns = `id, name, trigger_type, trigger_value, trigger_product_ids,
	gift_product_id, gift_variant_id, gift_quantity, is_active, created_at, updated_at`

func scanGift(row pgx.Row) (FreeGiftRule, error) {
	var g FreeGiftRule
	err := row.Scan(
		&g.ID, &g.Name, &g.TriggerType, &g.TriggerValue, &g.TriggerProductIDs,
		&g.GiftProductID, &g.GiftVariantID, &g.GiftQuantity, &g.IsActive,
		&g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

// GetFreeGiftRule fetches a free gift rule by id.
func (q *Queries) GetFreeGiftRule(ctx context.Context, id uuid.UUID) (FreeGiftRule, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+giftColumns+` FROM free_gift_rules WHERE id = $1`, id)
	return scanGift(row)
}

// ListFreeGiftRules returns all free gift rules for administration.
func (q *Queries) ListFreeGiftRules(ctx context.Context) ([]FreeGiftRule, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+giftColumns+` FROM free_gift_rules ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FreeGiftRule
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CreateGiftParams carries admin-authored free gift rule fields.
type CreateGiftParams struct {
	Name              string
	TriggerType       string
	TriggerValue      *float64
	TriggerProductIDs []string
	GiftProductID     string
	GiftVariantID     *string
	GiftQuantity      int32
	IsActive          bool
}

// CreateFreeGiftRule inserts a free gift rule.
func (q *Queries) CreateFreeGiftRule(ctx context.Context, arg CreateGiftParams) (FreeGiftRule, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO free_gift_rules (
			name, trigger_type, trigger_value, trigger_product_ids,
			gift_product_id, gift_variant_id, gift_quantity, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+giftColumns,
		arg.Name, arg.TriggerType, arg.TriggerValue, arg.TriggerProductIDs,
		arg.GiftProductID, arg.GiftVariantID, arg.GiftQuantity, arg.IsActive,
	)
	return scanGift(row)
}

// UpdateFreeGiftRule replaces a free gift rule definition.
func (q *Queries) UpdateFreeGiftRule(ctx context.Context, id uuid.UUID, arg CreateGiftParams) (FreeGiftRule, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE free_gift_rules SET
			name = $2, trigger_type = $3, trigger_value = $4, trigger_product_ids = $5,
			gift_product_id = $6, gift_variant_id = $7, gift_quantity = $8,
			is_active = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING `+giftColumns,
		id, arg.Name, arg.TriggerType, arg.TriggerValue, arg.TriggerProductIDs,
		arg.GiftProductID, arg.GiftVariantID, arg.GiftQuantity, arg.IsActive,
	)
	return scanGift(row)
}

// DeleteFreeGiftRule removes a free gift rule.
func (q *Queries) DeleteFreeGiftRule(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM free_gift_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const variantPricingColumns = `id, variant_id, mrp, sale_price,
	effective_from, effective_to, is_active, created_at, updated_at`

func scanVariantPricing(row pgx.Row) (VariantPricing, error) {
	var v VariantPricing
	err := row.Scan(
		&v.ID, &v.VariantID, &v.MRP, &v.SalePrice,
		&v.EffectiveFrom, &v.EffectiveTo, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}

// GetActiveVariantPricing returns the active pricing row for a variant whose
// effective window contains now. The most recently updated row wins when an
// operator has left several overlapping windows behind.
func (q *Queries) GetActiveVariantPricing(ctx context.Context, variantID string, now time.Time) (VariantPricing, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+variantPricingColumns+` FROM variant_pricing
		 WHERE variant_id = $1 AND is_active
		   AND (effective_from IS NULL OR effective_from <= $2)
		   AND (effective_to IS NULL OR effective_to >= $2)
		 ORDER BY updated_at DESC LIMIT 1`, variantID, now)
	return scanVariantPricing(row)
}

// UpsertVariantPricingParams carries admin-authored variant pricing fields.
type UpsertVariantPricingParams struct {
	VariantID     string
	MRP           float64
	SalePrice     *float64
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	IsActive      bool
}

// UpsertVariantPricing inserts or replaces the pricing row for a variant.
func (q *Queries) UpsertVariantPricing(ctx context.Context, arg UpsertVariantPricingParams) (VariantPricing, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO variant_pricing (variant_id, mrp, sale_price, effective_from, effective_to, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (variant_id) DO UPDATE SET
			mrp = EXCLUDED.mrp, sale_price = EXCLUDED.sale_price,
			effective_from = EXCLUDED.effective_from, effective_to = EXCLUDED.effective_to,
			is_active = EXCLUDED.is_active, updated_at = now()
		 RETURNING `+variantPricingColumns,
		arg.VariantID, arg.MRP, arg.SalePrice, arg.EffectiveFrom, arg.EffectiveTo, arg.IsActive,
	)
	return scanVariantPricing(row)
}
