package cli

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/estuportal/portalchat/internal/messenger"
)

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := messenger.NewMetrics(reg)
	require.NoError(t, err)
	metrics.Fetches.WithLabelValues(messenger.ResultOK).Inc()

	srv, err := startMetricsServer("127.0.0.1:0", reg)
	require.NoError(t, err)

	status, body, err := fasthttp.Get(nil, "http://"+srv.Addr()+metricsPath)
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), `portalchat_sync_fetches_total{result="ok"} 1`)

	status, body, err = fasthttp.Get(nil, "http://"+srv.Addr()+healthPath)
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, "ok\n", string(body))

	status, _, err = fasthttp.Get(nil, "http://"+srv.Addr()+"/nope")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusNotFound, status)

	require.NoError(t, srv.Shutdown())
}

func TestMetricsServerBindError(t *testing.T) {
	_, err := startMetricsServer("256.0.0.1:bad", prometheus.NewRegistry())
	require.Error(t, err)
}
