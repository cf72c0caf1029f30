package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounters(t *testing.T) {
	m := NewRegistry()
	m.ObserveTick("BTC", 10*time.Millisecond, nil)
	m.ObserveTick("BTC", time.Millisecond, errors.New("boom"))
	m.IncOrderOutcome("BTC", "observed")
	m.IncIndexerError("DOGE")
	m.IncConfirmation("BTC", "delivered")
	m.IncAddressResolution("BCH", "rejected")

	require.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("BTC", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ticksTotal.WithLabelValues("BTC", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.orderOutcomesTotal.WithLabelValues("BTC", "observed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.indexerErrorsTotal.WithLabelValues("DOGE")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("BTC", "delivered")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.addressResolveTotal.WithLabelValues("BCH", "rejected")))
}

func TestRegistryHandler(t *testing.T) {
	m := NewRegistry()
	m.IncIndexerError("BTC")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	require.True(t, strings.Contains(string(body), `chainwatch_indexer_errors_total{chain="BTC"} 1`))
}

func TestNewRegistryTwice(t *testing.T) {
	require.NotPanics(t, func() {
		NewRegistry()
		NewRegistry()
	})
}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*Registry)(nil)
