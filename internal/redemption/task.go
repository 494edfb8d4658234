package redemption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeRedeem is the asynq task type for coupon settlement.
const TypeRedeem = "promo:redeem"

// RedeemPayload is the task body carried through the queue.
type RedeemPayload struct {
	Code     string  `json:"code"`
	Identity *string `json:"identity,omitempty"`
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
}

// NewRedeemTask builds a settlement task. Settlement is retried on transient
// failure; the service's idempotency guarantees make retries safe.
func NewRedeemTask(p RedeemPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode redeem payload: %w", err)
	}
	return asynq.NewTask(TypeRedeem, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer submits settlement tasks to the queue.
type Enqueuer struct {
	Client *asynq.Client
}

// Enqueue submits a settlement task.
func (e Enqueuer) Enqueue(ctx context.Context, p RedeemPayload) error {
	if e.Client == nil {
		return errors.New("redemption enqueuer not configured")
	}
	task, err := NewRedeemTask(p)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}

// HandleTask consumes a settlement task. Terminal outcomes (unknown coupon,
// exhausted quota) are not retried; the queue only retries transient faults.
func (s *Service) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p RedeemPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode redeem payload: %v: %w", err, asynq.SkipRetry)
	}
	err := s.Redeem(ctx, p.Code, p.Identity, p.OrderID, p.Amount)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCouponNotFound) || errors.Is(err, ErrUsageLimitReached) || errors.Is(err, ErrOrderRequired) {
		s.Log.Warn().Err(err).Str("code", p.Code).Str("order_id", p.OrderID).Msg("redemption rejected")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
