package gift

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/promo-api/internal/promo"
	"github.com/noah-isme/promo-api/internal/store"
)

// Grant is the complimentary line a qualifying cart earns. Granting is
// advisory: the evaluator never mutates the cart, the caller decides whether
// to add the line.
type Grant struct {
	RuleID    uuid.UUID `json:"ruleId"`
	Name      string    `json:"name"`
	ProductID string    `json:"productId"`
	VariantID *string   `json:"variantId,omitempty"`
	Quantity  int32     `json:"quantity"`
}

// Qualifies reports whether the cart satisfies the rule trigger.
func Qualifies(rule store.FreeGiftRule, cart promo.Cart) (bool, error) {
	if !rule.IsActive {
		return false, nil
	}
	switch rule.TriggerType {
	case store.GiftTriggerCartValue:
		if rule.TriggerValue == nil {
			return false, fmt.Errorf("gift rule %s: cart_value trigger missing threshold", rule.ID)
		}
		return cart.Subtotal >= *rule.TriggerValue, nil
	case store.GiftTriggerProductPurchase:
		return cart.ContainsAnyProduct(rule.TriggerProductIDs), nil
	default:
		return false, fmt.Errorf("gift rule %s: unknown trigger type %q", rule.ID, rule.TriggerType)
	}
}

// GrantFromRule builds the advisory grant for a qualified rule.
func GrantFromRule(rule store.FreeGiftRule) Grant {
	qty := rule.GiftQuantity
	if qty < 1 {
		qty = 1
	}
	return Grant{
		RuleID:    rule.ID,
		Name:      rule.Name,
		ProductID: rule.GiftProductID,
		VariantID: rule.GiftVariantID,
		Quantity:  qty,
	}
}

// ValidateRule rejects rule definitions that could never trigger or grant.
// Validation runs at creation time so evaluation can trust stored rules.
func ValidateRule(triggerType string, triggerValue *float64, triggerProductIDs []string, giftProductID string, giftQuantity int32) error {
	switch triggerType {
	case store.GiftTriggerCartValue:
		if triggerValue == nil || *triggerValue <= 0 {
			return errors.New("cart_value trigger requires a positive threshold")
		}
	case store.GiftTriggerProductPurchase:
		if len(triggerProductIDs) == 0 {
			return errors.New("product_purchase trigger requires at least one product id")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", triggerType)
	}
	if giftProductID == "" {
		return errors.New("gift product id is required")
	}
	if giftQuantity < 1 {
		return errors.New("gift quantity must be at least 1")
	}
	return nil
}
