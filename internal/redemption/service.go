package redemption

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promo-api/internal/obs"
	"github.com/noah-isme/promo-api/internal/store"
)

var (
	// ErrCouponNotFound is returned when the coupon does not exist.
	ErrCouponNotFound = errors.New("redemption: coupon not found")
	// ErrUsageLimitReached is returned when the total usage quota is
	// exhausted at settlement time.
	ErrUsageLimitReached = errors.New("redemption: coupon usage limit reached")
	// ErrOrderRequired is returned when no order id accompanies the
	// settlement.
	ErrOrderRequired = errors.New("redemption: order id is required")
)

// Beginner starts transactions; satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service settles coupon redemptions. This is the only write path in the
// promo engine: validation and pricing never touch usage counters.
type Service struct {
	DB  Beginner
	Q   *store.Queries
	Log zerolog.Logger
}

// Redeem records that an order settled with the coupon. It is idempotent per
// (coupon, order): a replayed settlement returns success without a second
// ledger row. The usage counter increment is conditional on remaining quota,
// so two concurrent settlements of a nearly exhausted coupon cannot both win.
func (s *Service) Redeem(ctx context.Context, code string, identity *string, orderID string, amount float64) error {
	if s == nil || s.DB == nil || s.Q == nil {
		return errors.New("redemption service not configured")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ErrOrderRequired
	}
	if code == "" {
		return ErrCouponNotFound
	}
	if amount < 0 {
		amount = 0
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	q := s.Q.WithTx(tx)

	c, err := q.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCouponNotFound
		}
		return err
	}

	_, err = q.GetCouponUsageByOrder(ctx, c.ID, orderID)
	if err == nil {
		// already settled for this order
		recordRedemption("replayed")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	ok, err := q.TryIncrementCouponUsage(ctx, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		recordRedemption("limit_reached")
		return ErrUsageLimitReached
	}
	if err := q.InsertCouponUsage(ctx, c.ID, identity, orderID, amount); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	recordRedemption("settled")
	s.Log.Info().Str("code", code).Str("order_id", orderID).Float64("amount", amount).Msg("coupon redeemed")
	return nil
}

func recordRedemption(result string) {
	if obs.RedemptionTotal != nil {
		obs.RedemptionTotal.WithLabelValues(result).Inc()
	}
}
