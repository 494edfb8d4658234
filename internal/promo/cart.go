package promo

// Item is a cart line as seen by the evaluators. Prices are copies taken at
// snapshot time; evaluation never reads back into the live cart.
type Item struct {
	ProductID string   `json:"productId"`
	VariantID *string  `json:"variantId,omitempty"`
	Qty       int      `json:"qty"`
	UnitPrice float64  `json:"unitPrice"`
	Subtotal  float64  `json:"subtotal"`
}

// Cart is the immutable snapshot a caller submits for evaluation.
type Cart struct {
	Subtotal float64 `json:"subtotal"`
	Items    []Item  `json:"items"`
}

// TotalQuantity sums line quantities, skipping non-positive entries.
func (c Cart) TotalQuantity() int {
	var total int
	for _, it := range c.Items {
		if it.Qty > 0 {
			total += it.Qty
		}
	}
	return total
}

// ContainsAnyProduct reports whether any cart line references one of the
// provided product ids.
func (c Cart) ContainsAnyProduct(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, it := range c.Items {
		if _, ok := want[it.ProductID]; ok {
			return true
		}
	}
	return false
}
