package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kirana/storage"
)

func TestChatMetrics_Counters(t *testing.T) {
	m := NewChatMetrics(prometheus.NewRegistry())

	m.MessageHandled(storage.StateIdle, 10*time.Millisecond)
	m.MessageHandled(storage.StateIdle, 20*time.Millisecond)
	m.MessageHandled(storage.StateSearchPrice, time.Millisecond)
	m.SessionReset()
	m.CollaboratorFailed("catalog")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("IDLE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("SEARCH_PRICE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("catalog")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.failures.WithLabelValues("orders")))
}

func TestHandler_ExposesChatMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewChatMetrics(reg)
	m.SessionReset()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "kirana_chat_resets_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
