package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResponse(t *testing.T) {
	t.Parallel()

	t.Run("変換されたステータスを数えること", func(t *testing.T) {
		t.Parallel()

		m := New()
		m.ObserveResponse("openai", http.StatusUnauthorized, http.StatusBadGateway, 120*time.Millisecond)
		m.ObserveResponse("openai", http.StatusOK, http.StatusOK, 80*time.Millisecond)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("openai", "401")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("openai", "200")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.translated.WithLabelValues("openai", "401", "502")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.translated))
	})

	t.Run("そのまま返したステータスは変換として数えないこと", func(t *testing.T) {
		t.Parallel()

		m := New()
		m.ObserveResponse("gemini", http.StatusTooManyRequests, http.StatusTooManyRequests, time.Second)

		assert.Equal(t, 0, testutil.CollectAndCount(m.translated))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.responses.WithLabelValues("gemini", "429")))
	})
}

func TestObserveFailure(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveFailure("fireflies", "timeout")
	m.ObserveFailure("fireflies", "timeout")
	m.ObserveFailure("fireflies", "network")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("fireflies", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("fireflies", "network")))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveResponse("openai", http.StatusOK, http.StatusOK, 10*time.Millisecond)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `minutes_gateway_upstream_responses_total{code="200",upstream="openai"} 1`)
	assert.Contains(t, string(body), "minutes_gateway_upstream_response_header_seconds_bucket")
}
