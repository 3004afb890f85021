// Package webhook delivers signed merchant notifications and ingests
// inbound partner status callbacks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/codec"
	"github.com/remitra/remitra/internal/config"
	merchantdomain "github.com/remitra/remitra/internal/merchant/domain"
	"github.com/remitra/remitra/internal/metrics"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/internal/retry"
	"github.com/remitra/remitra/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	headerEvent     = "X-Webhook-Event"
	headerSignature = "X-Webhook-Signature"

	outcomeDelivered = "delivered"
	outcomeExhausted = "exhausted"
	outcomeSkipped   = "skipped"
)

// maxResponseSnapshot bounds the stored response body.
const maxResponseSnapshot = 2048

type DispatcherParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	Merchants merchantdomain.Repository
	GenID     *snowflake.Node
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
}

// Dispatcher notifies merchants of payout status changes. Delivery is
// best effort: its outcome never feeds back into payout state.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	merchants merchantdomain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *metrics.Metrics
	client    *http.Client
	policy    retry.Policy
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		db:        p.DB,
		log:       p.Log.Named("webhook.dispatcher"),
		merchants: p.Merchants,
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   p.Metrics,
		client:    &http.Client{Timeout: p.Cfg.WebhookTimeout},
		policy:    retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, Factor: 2},
	}
}

// Notify builds, signs, and delivers the status-change event, retrying
// with exponential backoff. Exactly one DeliveryRecord is written per
// terminal outcome.
func (d *Dispatcher) Notify(ctx context.Context, payout *payoutdomain.PayoutRequest) {
	log := d.log.With(
		zap.String("payout_id", payout.ID.String()),
		zap.String("status", string(payout.Status)),
	)

	merchant, err := d.merchants.GetByID(ctx, payout.MerchantID)
	if err != nil {
		log.Warn("webhook skipped, merchant lookup failed", zap.Error(err))
		d.incOutcome(outcomeSkipped)
		return
	}
	if merchant.WebhookURL == "" {
		d.incOutcome(outcomeSkipped)
		return
	}

	body, err := json.Marshal(domain.Event{
		Event:     domain.EventPayoutStatusUpdated,
		PayoutID:  payout.ID.String(),
		Status:    string(payout.Status),
		Amount:    payout.Amount,
		Currency:  payout.Currency,
		UTRNumber: payout.UTRNumber,
		Timestamp: d.clock.Now(),
	})
	if err != nil {
		log.Error("webhook payload marshal failed", zap.Error(err))
		return
	}

	signature := ""
	if merchant.WebhookSecret != "" {
		signature = codec.Sign(body, merchant.WebhookSecret)
	}

	attempts := 0
	var lastCode int
	var lastBody string
	err = retry.Do(ctx, d.policy, func(ctx context.Context, attempt int) error {
		attempts = attempt
		code, respBody, err := d.post(ctx, merchant.WebhookURL, body, signature)
		lastCode, lastBody = code, respBody
		if err != nil {
			return err
		}
		if code < 200 || code >= 300 {
			return fmt.Errorf("webhook endpoint returned %d", code)
		}
		return nil
	})

	delivered := err == nil
	if delivered {
		d.incOutcome(outcomeDelivered)
	} else {
		d.incOutcome(outcomeExhausted)
		log.Warn("webhook delivery exhausted",
			zap.Int("attempts", attempts),
			zap.Int("last_response_code", lastCode),
			zap.Error(err),
		)
	}
	if d.metrics != nil {
		d.metrics.ObserveWebhookAttempts(attempts)
	}

	record := domain.DeliveryRecord{
		ID:           d.genID.Generate(),
		PayoutID:     payout.ID,
		Payload:      string(body),
		Signature:    signature,
		ResponseCode: lastCode,
		Delivered:    delivered,
		ResponseBody: lastBody,
		Attempts:     attempts,
		CreatedAt:    d.clock.Now(),
	}
	if err := d.record(ctx, record); err != nil {
		log.Warn("webhook delivery record insert failed", zap.Error(err))
	}
}

// Deliveries returns the delivery history for one payout, newest first.
func (d *Dispatcher) Deliveries(ctx context.Context, payoutID snowflake.ID) ([]domain.DeliveryRecord, error) {
	var records []domain.DeliveryRecord
	err := d.db.WithContext(ctx).Raw(
		`SELECT id, payout_id, payload, signature, response_code, delivered,
			response_body, attempts, created_at
		 FROM webhook_deliveries WHERE payout_id = ? ORDER BY created_at DESC, id DESC`,
		payoutID,
	).Scan(&records).Error
	return records, err
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte, signature string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerEvent, domain.EventPayoutStatusUpdated)
	if signature != "" {
		req.Header.Set(headerSignature, signature)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	snapshot, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSnapshot))
	return resp.StatusCode, string(snapshot), nil
}

func (d *Dispatcher) record(ctx context.Context, rec domain.DeliveryRecord) error {
	return d.db.WithContext(ctx).Exec(
		`INSERT INTO webhook_deliveries (
			id, payout_id, payload, signature, response_code, delivered,
			response_body, attempts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.PayoutID,
		rec.Payload,
		rec.Signature,
		rec.ResponseCode,
		rec.Delivered,
		rec.ResponseBody,
		rec.Attempts,
		rec.CreatedAt,
	).Error
}

func (d *Dispatcher) incOutcome(outcome string) {
	if d.metrics != nil {
		d.metrics.IncWebhookOutcome(outcome)
	}
}
