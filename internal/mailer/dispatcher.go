package mailer

import (
	"context"
	"errors"
	"sync"

	"github.com/sethvargo/go-retry"

	"github.com/omaraldhaheri/zaina-backend/internal/orders"
	"github.com/omaraldhaheri/zaina-backend/pkg/config"
	"github.com/omaraldhaheri/zaina-backend/pkg/logger"
	"github.com/omaraldhaheri/zaina-backend/pkg/metrics"
)

type job struct {
	order   *orders.Order
	orderID string
	svg     string
}

// Dispatcher runs receipt emails off the request path. Webhook handlers
// enqueue and respond immediately; delivery happens on a background worker
// with its own retry policy, and failures are only ever logged.
type Dispatcher struct {
	svc     *Service
	jobs    chan job
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	cfg     config.ReceiptsConfig
	wg      sync.WaitGroup
}

func NewDispatcher(svc *Service, m *metrics.PaymentMetrics, cfg config.ReceiptsConfig, logg *logger.Logger) *Dispatcher {
	size := cfg.MailQueueSize
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		svc:     svc,
		jobs:    make(chan job, size),
		metrics: m,
		logg:    logg,
		cfg:     cfg,
	}
}

// Start launches the worker. It drains until ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.drain(ctx)
				return
			case j := <-d.jobs:
				d.process(ctx, j)
			}
		}
	}()
}

// drain accounts for jobs still queued at shutdown. They are dropped, not
// delivered, but each one leaves a log line and a dropped metric instead of
// vanishing with the channel.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case j := <-d.jobs:
			d.metrics.IncReceiptEmail("dropped")
			if d.logg != nil {
				d.logg.Warn(d.logg.WithOrderID(ctx, j.orderID), "receipt mail dropped at shutdown")
			}
		default:
			return
		}
	}
}

// Wait blocks until the worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a receipt email to the worker without blocking the caller.
// A full queue drops the job with a warning; the receipt stays retrievable
// through the receipt endpoint.
func (d *Dispatcher) Enqueue(ctx context.Context, order *orders.Order, orderID, svg string) bool {
	select {
	case d.jobs <- job{order: order, orderID: orderID, svg: svg}:
		return true
	default:
		if d.logg != nil {
			d.logg.Warn(d.logg.WithOrderID(ctx, orderID), "receipt mail queue full, dropping job")
		}
		d.metrics.IncReceiptEmail("dropped")
		return false
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	ctx = context.WithoutCancel(ctx)
	if d.logg != nil {
		ctx = d.logg.WithOrderID(ctx, j.orderID)
	}

	backoff := retry.WithMaxRetries(d.cfg.MailMaxRetries, retry.NewExponential(d.cfg.MailRetryBase))
	var last Result
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		if d.cfg.RenderTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.RenderTimeout)
			defer cancel()
		}
		last = d.svc.SendReceipt(attemptCtx, j.order, j.orderID, j.svg)
		if last.Success || last.Reason == ReasonGuestOrNoEmail {
			return nil
		}
		if last.Err == nil {
			last.Err = errors.New("receipt email not delivered")
		}
		return retry.RetryableError(last.Err)
	})

	switch {
	case err != nil:
		d.metrics.IncReceiptEmail("failed")
		if d.logg != nil {
			d.logg.Error(ctx, "receipt email failed after retries", err)
		}
	case last.Reason == ReasonGuestOrNoEmail:
		d.metrics.IncReceiptEmail("skipped")
		if d.logg != nil {
			d.logg.Info(ctx, "receipt email skipped: "+ReasonGuestOrNoEmail)
		}
	default:
		d.metrics.IncReceiptEmail("sent")
		if d.logg != nil {
			d.logg.Info(d.logg.WithField(ctx, "recipient", last.Recipient), "receipt email sent")
		}
	}
}
