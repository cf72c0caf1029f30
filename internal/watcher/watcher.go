// Package watcher polls chain indexers for payments to order deposit
// addresses and reports observed payments to a confirmation sink.
//
// Watchers keep no per-order state between ticks. Every tick recomputes each
// order's outcome from live chain data; remembering that an order was already
// confirmed is the order store's job.
package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chainwatch/internal/chain"
	"chainwatch/internal/confirm"
	"chainwatch/internal/indexer"
	"chainwatch/internal/metrics"
	"chainwatch/internal/orderstore"
)

type OutcomeKind int

const (
	NoActivity OutcomeKind = iota
	Observed
)

func (k OutcomeKind) String() string {
	if k == Observed {
		return "observed"
	}
	return "no_activity"
}

// Outcome is the result of one order in one tick.
type Outcome struct {
	Kind   OutcomeKind
	Txid   string
	Height int64
}

// evaluate picks the first history entry with a positive height, in the
// order the indexer returned them. Confirmation depth is not checked.
func evaluate(history []indexer.HistoryEntry) Outcome {
	for _, tx := range history {
		if tx.Height > 0 {
			return Outcome{Kind: Observed, Txid: tx.TxHash, Height: tx.Height}
		}
	}
	return Outcome{Kind: NoActivity}
}

// Report summarises one tick.
type Report struct {
	Checked   int
	Observed  int
	Confirmed int
	Failed    int
}

type Watcher struct {
	cfg         chain.Config
	orders      orderstore.Reader
	indexer     indexer.Client
	sink        confirm.Sink
	log         logrus.FieldLogger
	metrics     metrics.Recorder
	wake        chan struct{}
	wakeTimeout time.Duration
}

type Option func(*Watcher)

func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(w *Watcher) {
		w.metrics = r
	}
}

// WithWakeTimeout caps the wait between ticks below the poll interval. Test
// harnesses use it together with Wake so a loop never blocks for a full
// interval waiting on a wake that does not come.
func WithWakeTimeout(d time.Duration) Option {
	return func(w *Watcher) {
		w.wakeTimeout = d
	}
}

func New(cfg chain.Config, orders orderstore.Reader, idx indexer.Client, sink confirm.Sink, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:     cfg,
		orders:  orders,
		indexer: idx,
		sink:    sink,
		log:     logrus.StandardLogger(),
		metrics: metrics.NoopRecorder{},
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("chain", cfg.ID.String())
	return w
}

func (w *Watcher) Chain() chain.ID { return w.cfg.ID }

func (w *Watcher) Config() chain.Config { return w.cfg }

// Wake makes a running loop start its next tick immediately. It never blocks.
func (w *Watcher) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled. Tick errors are logged, never fatal.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.WithFields(logrus.Fields{
		"indexer":       w.cfg.IndexerEndpoint,
		"poll_interval": w.cfg.PollInterval.String(),
	}).Info("watcher started")
	w.log.WithField("required_confirmations", w.cfg.RequiredConfirmations).
		Warn("payments are accepted at any positive height; required confirmations are not enforced")

	for {
		if ctx.Err() != nil {
			w.log.Info("watcher stopped")
			return nil
		}

		report, err := w.Tick(ctx)
		if err != nil {
			w.log.WithError(err).Error("watch cycle aborted")
		} else {
			w.log.WithFields(logrus.Fields{
				"checked":   report.Checked,
				"observed":  report.Observed,
				"confirmed": report.Confirmed,
				"failed":    report.Failed,
			}).Debug("watch cycle complete")
		}

		if !w.wait(ctx) {
			w.log.Info("watcher stopped")
			return nil
		}
	}
}

func (w *Watcher) wait(ctx context.Context) bool {
	d := w.cfg.PollInterval
	if w.wakeTimeout > 0 && (d <= 0 || w.wakeTimeout < d) {
		d = w.wakeTimeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-w.wake:
		return true
	case <-timer.C:
		return true
	}
}

// Tick runs one watch cycle. Orders are processed sequentially; a failed
// history lookup or confirmation only affects its own order. A store error,
// including an undecodable record, aborts the cycle.
func (w *Watcher) Tick(ctx context.Context) (Report, error) {
	start := time.Now()
	report, err := w.tick(ctx)
	w.metrics.ObserveTick(w.cfg.ID.String(), time.Since(start), err)
	return report, err
}

func (w *Watcher) tick(ctx context.Context) (Report, error) {
	var report Report

	orders, err := w.orders.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list orders: %w", err)
	}

	for _, order := range orders {
		if !strings.EqualFold(order.PriceChain, w.cfg.ID.String()) {
			continue
		}
		report.Checked++

		outcome, err := w.checkOrder(ctx, order)
		switch {
		case err != nil:
			report.Failed++
		case outcome.Kind == Observed:
			report.Observed++
			if w.deliver(ctx, order, outcome) {
				report.Confirmed++
			}
		}
	}
	return report, nil
}

func (w *Watcher) checkOrder(ctx context.Context, order orderstore.Order) (Outcome, error) {
	chainName := w.cfg.ID.String()
	log := w.log.WithFields(logrus.Fields{
		"order_id":        order.OrderID,
		"deposit_address": order.DepositAddress,
	})

	history, err := w.indexer.GetHistory(ctx, order.DepositAddress)
	if err != nil {
		w.metrics.IncIndexerError(chainName)
		w.metrics.IncOrderOutcome(chainName, "error")
		log.WithError(err).Warn("address history lookup failed")
		return Outcome{}, err
	}

	outcome := evaluate(history)
	w.metrics.IncOrderOutcome(chainName, outcome.Kind.String())
	if outcome.Kind == NoActivity {
		log.WithField("entries", len(history)).Debug("waiting for payment")
	}
	return outcome, nil
}

func (w *Watcher) deliver(ctx context.Context, order orderstore.Order, outcome Outcome) bool {
	chainName := w.cfg.ID.String()
	log := w.log.WithFields(logrus.Fields{
		"order_id":               order.OrderID,
		"txid":                   outcome.Txid,
		"height":                 outcome.Height,
		"required_confirmations": w.cfg.RequiredConfirmations,
	})
	log.Info("payment observed")

	err := w.sink.Confirm(ctx, confirm.Confirmation{
		OrderID:      order.OrderID,
		ObservedTxid: outcome.Txid,
		Chain:        chainName,
	})
	if err != nil {
		// picked up again next tick while the height condition holds
		w.metrics.IncConfirmation(chainName, "failed")
		log.WithError(err).Error("confirmation delivery failed")
		return false
	}
	w.metrics.IncConfirmation(chainName, "delivered")
	return true
}
