package instrument_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"blindrelay/internal/hub/instrument"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := instrument.New(), instrument.New()

	a.Drop(instrument.DropPolicy)
	a.AuthResult("client", true)
	a.AuthResult("client", false)

	require.Equal(t, 1.0, testutil.ToFloat64(a.Dropped.WithLabelValues(instrument.DropPolicy)))
	require.Equal(t, 1.0, testutil.ToFloat64(a.Auth.WithLabelValues("client", "bad")))
	require.Equal(t, 0.0, testutil.ToFloat64(b.Dropped.WithLabelValues(instrument.DropPolicy)))
}

func TestMetrics_Handler(t *testing.T) {
	m := instrument.New()
	m.Forwarded.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "blindrelay_hub_forwarded_total 1")
}
