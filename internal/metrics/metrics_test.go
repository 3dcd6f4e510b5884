package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConversationStarted()
		m.ConversationCompleted()
		m.StepEntered("NAME")
		m.FallbackReset()
		m.ComposingRejected()
		m.PersistFailed("create")
		m.SetActiveConversations(3)
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.ConversationStarted()
	m.ConversationStarted()
	m.StepEntered("EMAIL")
	m.PersistFailed("patch")
	m.SetActiveConversations(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.conversationsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepEntered.WithLabelValues("EMAIL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures.WithLabelValues("patch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeConversations))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.PersistFailed("dropped")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `talentscout_persist_failures_total{kind="dropped"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
