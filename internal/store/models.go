package store

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a code-driven discount rule. Monetary values are stored in
// currency units with two decimal places.
type Coupon struct {
	ID                  uuid.UUID  `json:"id"`
	Code                string     `json:"code"`
	Kind                string     `json:"kind"`
	Value               float64    `json:"value"`
	MaxDiscount         *float64   `json:"maxDiscount,omitempty"`
	MinOrderValue       float64    `json:"minOrderValue"`
	UsageLimitTotal     *int32     `json:"usageLimitTotal,omitempty"`
	UsageLimitPerUser   *int32     `json:"usageLimitPerUser,omitempty"`
	UsageCount          int32      `json:"usageCount"`
	AppliesTo           string     `json:"appliesTo"`
	ApplicableIDs       []string   `json:"applicableIds,omitempty"`
	ExcludedIDs         []string   `json:"excludedIds,omitempty"`
	CustomerEligibility string     `json:"customerEligibility"`
	IsStackable         bool       `json:"isStackable"`
	IsAutoApply         bool       `json:"isAutoApply"`
	IsActive            bool       `json:"isActive"`
	StartsAt            *time.Time `json:"startsAt,omitempty"`
	EndsAt              *time.Time `json:"endsAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	DeletedAt           *time.Time `json:"-"`
}

// CouponUsage is an immutable redemption fact. Rows are created exactly once
// per successful redemption and never mutated or deleted; the aggregate
// count per (coupon, identity) enforces the per-user limit.
type CouponUsage struct {
	ID        uuid.UUID `json:"id"`
	CouponID  uuid.UUID `json:"couponId"`
	Identity  *string   `json:"identity,omitempty"`
	OrderID   string    `json:"orderId"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// AutomaticDiscount is a cart-level discount applied without a code.
// Priority is a rank: 1 is evaluated first.
type AutomaticDiscount struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	Value         float64    `json:"value"`
	MaxDiscount   *float64   `json:"maxDiscount,omitempty"`
	MinOrderValue float64    `json:"minOrderValue"`
	AppliesTo     string     `json:"appliesTo"`
	Priority      int32      `json:"priority"`
	IsStackable   bool       `json:"isStackable"`
	IsActive      bool       `json:"isActive"`
	StartsAt      *time.Time `json:"startsAt,omitempty"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TierLevel maps one range of the cart metric to a discount. Max nil means
// open-ended.
type TierLevel struct {
	Min           float64  `json:"min"`
	Max           *float64 `json:"max,omitempty"`
	DiscountType  string   `json:"discountType"`
	DiscountValue float64  `json:"discountValue"`
	Badge         string   `json:"badge,omitempty"`
}

// TierDiscount is an ordered ladder of non-overlapping levels over a cart
// metric (value or quantity).
type TierDiscount struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Levels    []TierLevel `json:"levels"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FreeGiftRule grants a complimentary item when a cart qualifies.
type FreeGiftRule struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	TriggerType       string    `json:"triggerType"`
	TriggerValue      *float64  `json:"triggerValue,omitempty"`
	TriggerProductIDs []string  `json:"triggerProductIds,omitempty"`
	GiftProductID     string    `json:"giftProductId"`
	GiftVariantID     *string   `json:"giftVariantId,omitempty"`
	GiftQuantity      int32     `json:"giftQuantity"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// VariantPricing is the per-variant price record. SalePrice nil means the
// variant sells at MRP.
type VariantPricing struct {
	ID            uuid.UUID  `json:"id"`
	VariantID     string     `json:"variantId"`
	MRP           float64    `json:"mrp"`
	SalePrice     *float64   `json:"salePrice,omitempty"`
	EffectiveFrom *time.Time `json:"effectiveFrom,omitempty"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Tier discount metric kinds.
const (
	TierKindCartValue    = "cart_value"
	TierKindCartQuantity = "cart_quantity"
)

// Free gift trigger kinds.
const (
	GiftTriggerCartValue       = "cart_value"
	GiftTriggerProductPurchase = "product_purchase"
)
