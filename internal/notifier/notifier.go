// Package notifier fans payout status changes out to live-connected
// merchant sessions over redis pub/sub. It is best effort and not part
// of correctness; without a configured redis it is a no-op.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/remitra/remitra/internal/config"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Notifier struct {
	log    *zap.Logger
	client *redis.Client
}

func New(cfg config.Config, log *zap.Logger) *Notifier {
	var client *redis.Client
	if cfg.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}
	return &Notifier{
		log:    log.Named("notifier"),
		client: client,
	}
}

func channel(merchantID string) string {
	return fmt.Sprintf("payouts:events:%s", merchantID)
}

// Publish pushes a status-change message onto the merchant's channel.
func (n *Notifier) Publish(ctx context.Context, payout *payoutdomain.PayoutRequest) {
	if n == nil || n.client == nil {
		return
	}
	message, err := json.Marshal(map[string]any{
		"payout_id": payout.ID.String(),
		"status":    payout.Status,
		"amount":    payout.Amount,
		"currency":  payout.Currency,
	})
	if err != nil {
		return
	}
	if err := n.client.Publish(ctx, channel(payout.MerchantID.String()), message).Err(); err != nil {
		n.log.Debug("realtime publish failed",
			zap.String("payout_id", payout.ID.String()),
			zap.Error(err),
		)
	}
}

func registerHooks(lc fx.Lifecycle, n *Notifier) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if n.client == nil {
				return nil
			}
			return n.client.Close()
		},
	})
}

var Module = fx.Module("notifier",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
