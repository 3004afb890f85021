package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/remitra/remitra/internal/bank/router"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/metrics"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const (
	outcomeSubmitted = "submitted"
	outcomeRetried   = "retried"
	outcomeFailed    = "failed"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Repo      payoutdomain.Repository
	PayoutSvc payoutdomain.Service
	Router    *router.Router
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
	Config    Config           `optional:"true"`
}

// Scheduler drains due pending payouts and pushes them through the
// bank router. One tick runs at a time per process; overlapping ticks
// are suppressed, not queued.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	repo      payoutdomain.Repository
	payoutSvc payoutdomain.Service
	router    *router.Router
	clock     clock.Clock
	metrics   *metrics.Metrics

	running atomic.Bool
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Repo == nil || p.PayoutSvc == nil || p.Router == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		repo:      p.Repo,
		payoutSvc: p.PayoutSvc,
		router:    p.Router,
		clock:     p.Clock,
		metrics:   p.Metrics,
	}, nil
}

// Tick claims one batch and processes it sequentially. A tick that
// arrives while another is still running returns immediately.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		if s.metrics != nil {
			s.metrics.IncTickSuppressed()
		}
		s.log.Debug("tick suppressed, previous tick still running")
		return nil
	}
	defer s.running.Store(false)

	start := s.clock.Now()
	if s.metrics != nil {
		s.metrics.IncTick()
		defer func() {
			s.metrics.ObserveTickDuration(time.Since(start))
		}()
	}

	payouts, err := s.repo.ClaimPending(ctx, start, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("claim pending payouts: %w", err)
	}
	if len(payouts) == 0 {
		return nil
	}
	s.log.Info("processing payout batch", zap.Int("count", len(payouts)))

	var errs error
	for i := range payouts {
		if ctx.Err() != nil {
			return errors.Join(errs, ctx.Err())
		}
		if err := s.processOne(ctx, &payouts[i]); err != nil {
			errs = errors.Join(errs, fmt.Errorf("payout %s: %w", payouts[i].ID, err))
		}
		if s.cfg.ItemDelay > 0 && i < len(payouts)-1 {
			if err := sleep(ctx, s.cfg.ItemDelay); err != nil {
				return errors.Join(errs, err)
			}
		}
	}
	return errs
}

func (s *Scheduler) processOne(ctx context.Context, payout *payoutdomain.PayoutRequest) error {
	code := router.SelectBank(payout.Amount)
	result := s.router.Submit(ctx, payout, code)

	if result.Success {
		s.incOutcome(outcomeSubmitted)
		return s.payoutSvc.MarkSubmitted(ctx, payout, result.ReferenceID, result.EstimatedCompletion)
	}

	if err := s.payoutSvc.HandleSubmissionFailure(ctx, payout, result.Message, result.Terminal); err != nil {
		return err
	}
	if payout.Status == payoutdomain.StatusFailed {
		s.incOutcome(outcomeFailed)
	} else {
		s.incOutcome(outcomeRetried)
	}
	return nil
}

// RunForever ticks immediately, then on every interval until ctx is
// cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	if err := s.Tick(ctx); err != nil {
		s.log.Warn("scheduler tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.Warn("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) incOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.IncPayoutOutcome(outcome)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
