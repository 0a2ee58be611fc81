package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHub struct{ clients, groups int }

func (f fakeHub) ClientCount() int { return f.clients }
func (f fakeHub) GroupCount() int  { return f.groups }

func TestObserveHub(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, ObserveHub(reg, fakeHub{clients: 3, groups: 2}))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 3.0, values["chat_connections"])
	assert.Equal(t, 2.0, values["chat_delivery_groups"])

	assert.Error(t, ObserveHub(reg, fakeHub{}), "collectors register once per registry")
}

func TestHandlerServesCounters(t *testing.T) {
	before := testutil.ToFloat64(MessagesTotal.WithLabelValues(OutcomeSent))
	MessagesTotal.WithLabelValues(OutcomeSent).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(MessagesTotal.WithLabelValues(OutcomeSent)))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chat_messages_total{outcome="sent"}`)
}
