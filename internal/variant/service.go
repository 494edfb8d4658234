package variant

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/store"
)

// ErrNotFound is returned when no active pricing exists for the variant.
var ErrNotFound = errors.New("variant pricing not found")

// Price is the computed selling price for a variant. FinalPrice is the sale
// price when one is set, otherwise the MRP; DiscountPercent is derived, never
// stored.
type Price struct {
	VariantID       string   `json:"variantId"`
	MRP             float64  `json:"mrp"`
	SalePrice       *float64 `json:"salePrice,omitempty"`
	FinalPrice      float64  `json:"finalPrice"`
	DiscountPercent int      `json:"discountPercent"`
}

// Querier captures the database methods required by the variant service.
type Querier interface {
	GetActiveVariantPricing(ctx context.Context, variantID string, now time.Time) (store.VariantPricing, error)
}

// Service resolves variant selling prices with a read-through cache.
type Service struct {
	Q     Querier
	Cache *Cache
	Now   func() time.Time
	Log   zerolog.Logger
}

// GetPrice returns the current selling price for a variant. Cache faults are
// logged and absorbed; the store remains the source of truth.
func (s *Service) GetPrice(ctx context.Context, variantID string) (Price, error) {
	if s == nil || s.Q == nil {
		return Price{}, errors.New("variant service not configured")
	}
	var cached Price
	hit, err := s.Cache.Get(ctx, variantID, &cached)
	if err != nil {
		s.Log.Warn().Err(err).Str("variant_id", variantID).Msg("variant price cache read failed")
	}
	if hit {
		recordCacheLookup("hit")
		return cached, nil
	}
	recordCacheLookup("miss")

	row, err := s.Q.GetActiveVariantPricing(ctx, variantID, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Price{}, ErrNotFound
		}
		return Price{}, err
	}
	price := PriceFromPricing(row)
	if err := s.Cache.Set(ctx, variantID, price); err != nil {
		s.Log.Warn().Err(err).Str("variant_id", variantID).Msg("variant price cache write failed")
	}
	return price, nil
}

// PriceFromPricing derives the selling price from a stored pricing row.
func PriceFromPricing(row store.VariantPricing) Price {
	price := Price{
		VariantID: row.VariantID,
		MRP:       row.MRP,
		SalePrice: row.SalePrice,
	}
	price.FinalPrice = row.MRP
	if row.SalePrice != nil && *row.SalePrice < row.MRP {
		price.FinalPrice = *row.SalePrice
	}
	if row.MRP > 0 && price.FinalPrice < row.MRP {
		price.DiscountPercent = int(math.Round((row.MRP - price.FinalPrice) / row.MRP * 100))
	}
	return price
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func recordCacheLookup(result string) {
	if obs.VariantPriceCacheTotal != nil {
		obs.VariantPriceCacheTotal.WithLabelValues(result).Inc()
	}
}
