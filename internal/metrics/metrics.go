// Package metrics exposes server counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Label values for Disconnects.
const (
	OutcomeCompleted  = "completed"
	OutcomeDisconnect = "disconnect"
	OutcomeClosed     = "closed"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// Label values for Logins.
const (
	ModeOffline   = "offline"
	ModeForwarded = "forwarded"
)

// Metrics holds the collectors updated by the connection pipeline.
type Metrics struct {
	Connections *prometheus.CounterVec // by intention
	Disconnects *prometheus.CounterVec // by outcome
	Logins      *prometheus.CounterVec // by mode
}

// New creates the collectors and registers them, plus a players_online
// gauge that reads online on every scrape.
func New(reg prometheus.Registerer, online func() int) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limbo_connections_total",
				Help: "Total number of connections by handshake intention",
			},
			[]string{"intention"},
		),
		Disconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limbo_disconnects_total",
				Help: "Total number of finished connections by outcome",
			},
			[]string{"outcome"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limbo_logins_total",
				Help: "Total number of successful logins by identity mode",
			},
			[]string{"mode"},
		),
	}
	reg.MustRegister(m.Connections, m.Disconnects, m.Logins)
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "limbo_players_online",
			Help: "Number of players currently registered",
		},
		func() float64 { return float64(online()) },
	))
	return m
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Server serves /metrics over HTTP.
type Server struct {
	listener net.Listener
	http     *http.Server
	log      *zap.Logger
}

// Listen binds addr for the metrics endpoint.
func Listen(addr string, gatherer prometheus.Gatherer, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return &Server{
		listener: ln,
		http: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()
	s.log.Info("Metrics server started", zap.Stringer("addr", s.listener.Addr()))

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	s.log.Info("Metrics server stopped")
	return nil
}
