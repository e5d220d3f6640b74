package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestCollectors(t *testing.T) {
	online := 3
	reg := prometheus.NewRegistry()
	m := New(reg, func() int { return online })

	m.Connections.WithLabelValues("login").Inc()
	m.Connections.WithLabelValues("login").Inc()
	m.Logins.WithLabelValues(ModeOffline).Inc()
	m.Disconnects.WithLabelValues(OutcomeTimeout).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Connections.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues(ModeOffline)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Disconnects.WithLabelValues(OutcomeTimeout)))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP limbo_players_online Number of players currently registered
# TYPE limbo_players_online gauge
limbo_players_online 3
`), "limbo_players_online")
	require.NoError(t, err)
}

func TestServerExposesMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := NewRegistry()
	m := New(reg, func() int { return 0 })
	m.Logins.WithLabelValues(ModeForwarded).Inc()

	srv, err := Listen("127.0.0.1:0", reg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `limbo_logins_total{mode="forwarded"} 1`)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	require.NoError(t, <-done)
}
