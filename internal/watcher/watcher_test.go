package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"chainwatch/internal/chain"
	"chainwatch/internal/confirm"
	"chainwatch/internal/indexer"
	"chainwatch/internal/orderstore"
)

func btcConfig() chain.Config {
	return chain.Config{
		ID:                    chain.BTC,
		IndexerEndpoint:       "tcp://localhost:50001",
		RequiredConfirmations: 2,
		PollInterval:          time.Hour,
	}
}

func seed(t *testing.T, store *orderstore.MemoryStore, orders ...orderstore.Order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, store.Save(context.Background(), o))
	}
}

func quietLogger() *logrus.Logger {
	l, _ := logtest.NewNullLogger()
	return l
}

func TestEvaluate(t *testing.T) {
	require.Equal(t, Outcome{Kind: NoActivity}, evaluate(nil))
	require.Equal(t, Outcome{Kind: NoActivity}, evaluate([]indexer.HistoryEntry{{Height: 0, TxHash: "mempool"}}))

	got := evaluate([]indexer.HistoryEntry{
		{Height: 0, TxHash: "mempool"},
		{Height: -1, TxHash: "unconfirmed-parent"},
		{Height: 3, TxHash: "first"},
		{Height: 7, TxHash: "second"},
	})
	require.Equal(t, Outcome{Kind: Observed, Txid: "first", Height: 3}, got)
}

func TestTickConfirmsFirstMinedTransaction(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store, orderstore.Order{OrderID: "order-1", PriceChain: "BTC", DepositAddress: "addr-1"})

	idx := indexer.NewFakeClient()
	idx.SetHistory("addr-1",
		indexer.HistoryEntry{Height: 5, TxHash: "aa11"},
		indexer.HistoryEntry{Height: 6, TxHash: "bb22"},
	)
	sink := &confirm.FakeSink{}

	w := New(btcConfig(), store, idx, sink, WithLogger(quietLogger()))
	report, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, Report{Checked: 1, Observed: 1, Confirmed: 1}, report)

	require.Equal(t, []confirm.Confirmation{
		{OrderID: "order-1", ObservedTxid: "aa11", Chain: "BTC"},
	}, sink.Calls())
}

func TestTickIsolatesIndexerFailures(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store,
		orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"},
		orderstore.Order{OrderID: "b", PriceChain: "BTC", DepositAddress: "addr-b"},
		orderstore.Order{OrderID: "c", PriceChain: "BTC", DepositAddress: "addr-c"},
	)

	idx := indexer.NewFakeClient()
	idx.SetError("addr-a", errors.New("connection reset"))
	idx.SetHistory("addr-b", indexer.HistoryEntry{Height: 0, TxHash: "pending-b"})
	idx.SetHistory("addr-c", indexer.HistoryEntry{Height: 0, TxHash: "pending-c"})
	sink := &confirm.FakeSink{}

	logger, hook := logtest.NewNullLogger()
	w := New(btcConfig(), store, idx, sink, WithLogger(logger))

	report, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, Report{Checked: 3, Failed: 1}, report)
	require.Empty(t, sink.Calls())
	require.Equal(t, []string{"addr-a", "addr-b", "addr-c"}, idx.Calls())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["order_id"] == "a" {
			warned = true
		}
	}
	require.True(t, warned, "indexer failure should be logged against its order")
}

func TestTickFiltersByChainCaseInsensitively(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store,
		orderstore.Order{OrderID: "1", PriceChain: "btc", DepositAddress: "btc-lower"},
		orderstore.Order{OrderID: "2", PriceChain: "Btc", DepositAddress: "btc-mixed"},
		orderstore.Order{OrderID: "3", PriceChain: "DOGE", DepositAddress: "doge-addr"},
		orderstore.Order{OrderID: "4", PriceChain: "", DepositAddress: "no-chain"},
	)
	idx := indexer.NewFakeClient()

	w := New(btcConfig(), store, idx, &confirm.FakeSink{}, WithLogger(quietLogger()))
	report, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Checked)
	require.Equal(t, []string{"btc-lower", "btc-mixed"}, idx.Calls())
}

func TestTickAbortsOnCorruptRecord(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store, orderstore.Order{OrderID: "ok", PriceChain: "BTC", DepositAddress: "addr"})
	store.SaveRaw("broken", []byte(`{"orderId": 42`))

	idx := indexer.NewFakeClient()
	sink := &confirm.FakeSink{}
	w := New(btcConfig(), store, idx, sink, WithLogger(quietLogger()))

	_, err := w.Tick(context.Background())
	require.Error(t, err)
	require.Empty(t, idx.Calls())
	require.Empty(t, sink.Calls())
}

func TestTickRetriesAfterSinkFailure(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store,
		orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"},
		orderstore.Order{OrderID: "b", PriceChain: "BTC", DepositAddress: "addr-b"},
	)
	idx := indexer.NewFakeClient()
	idx.SetHistory("addr-a", indexer.HistoryEntry{Height: 10, TxHash: "tx-a"})
	idx.SetHistory("addr-b", indexer.HistoryEntry{Height: 11, TxHash: "tx-b"})
	sink := &confirm.FakeSink{Err: errors.New("503")}

	w := New(btcConfig(), store, idx, sink, WithLogger(quietLogger()))

	report, err := w.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, Report{Checked: 2, Observed: 2}, report)
	require.Len(t, sink.Calls(), 2)

	// no memory of the failed delivery: the next tick tries again
	_, err = w.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.Calls(), 4)
}

func TestTickRecordsMetrics(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store,
		orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"},
		orderstore.Order{OrderID: "b", PriceChain: "BTC", DepositAddress: "addr-b"},
	)
	idx := indexer.NewFakeClient()
	idx.SetError("addr-a", errors.New("timeout"))
	idx.SetHistory("addr-b", indexer.HistoryEntry{Height: 2, TxHash: "tx-b"})

	rec := &recordingMetrics{}
	w := New(btcConfig(), store, idx, &confirm.FakeSink{}, WithLogger(quietLogger()), WithMetrics(rec))
	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, rec.ticks)
	require.Equal(t, 1, rec.indexerErrors)
	require.Equal(t, []string{"error", "observed"}, rec.outcomes)
	require.Equal(t, []string{"delivered"}, rec.confirmations)
}

type recordingMetrics struct {
	ticks         int
	indexerErrors int
	outcomes      []string
	confirmations []string
}

func (r *recordingMetrics) ObserveTick(string, time.Duration, error) { r.ticks++ }
func (r *recordingMetrics) IncOrderOutcome(_, outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *recordingMetrics) IncIndexerError(string) { r.indexerErrors++ }
func (r *recordingMetrics) IncConfirmation(_, result string) {
	r.confirmations = append(r.confirmations, result)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store, orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"})
	idx := indexer.NewFakeClient()

	w := New(btcConfig(), store, idx, &confirm.FakeSink{}, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(idx.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestRunReturnsImmediatelyWhenAlreadyCancelled(t *testing.T) {
	idx := indexer.NewFakeClient()
	w := New(btcConfig(), orderstore.NewMemoryStore(), idx, &confirm.FakeSink{}, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	require.Empty(t, idx.Calls())
}

func TestWakeTriggersTick(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store, orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"})
	idx := indexer.NewFakeClient()

	w := New(btcConfig(), store, idx, &confirm.FakeSink{}, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(idx.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	// payment lands between ticks
	idx.SetHistory("addr-a", indexer.HistoryEntry{Height: 1, TxHash: "late"})
	w.Wake()
	require.Eventually(t, func() bool { return len(idx.Calls()) >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWakeNeverBlocks(t *testing.T) {
	w := New(btcConfig(), orderstore.NewMemoryStore(), indexer.NewFakeClient(), &confirm.FakeSink{})
	for i := 0; i < 10; i++ {
		w.Wake()
	}
	require.Len(t, w.wake, 1)
}

func TestWakeTimeoutBoundsWait(t *testing.T) {
	store := orderstore.NewMemoryStore()
	seed(t, store, orderstore.Order{OrderID: "a", PriceChain: "BTC", DepositAddress: "addr-a"})
	idx := indexer.NewFakeClient()

	w := New(btcConfig(), store, idx, &confirm.FakeSink{},
		WithLogger(quietLogger()),
		WithWakeTimeout(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(idx.Calls()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
