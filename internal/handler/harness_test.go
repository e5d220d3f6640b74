package handler

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/limbomc/limbo/internal/config"
	"github.com/limbomc/limbo/internal/data"
	"github.com/limbomc/limbo/internal/metrics"
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
	"github.com/limbomc/limbo/internal/scripting"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testTimeout = 5 * time.Second

type testServer struct {
	t    *testing.T
	srv  *gonet.Server
	deps *Deps
	logs *observer.ObservedLogs

	cancel context.CancelFunc
	done   chan error
	closed bool
}

type serverOption func(*config.Config)

func withForwarding(secret string) serverOption {
	return func(c *config.Config) {
		c.Forwarding.Enabled = true
		c.Forwarding.Secret = secret
	}
}

func withHiddenIPs() serverOption {
	return func(c *config.Config) {
		c.Server.HidePlayerIPs = true
	}
}

func withReadTimeout(d time.Duration) serverOption {
	return func(c *config.Config) {
		c.Network.ReadTimeout = d
	}
}

func startServer(t *testing.T, scripts *scripting.Engine, opts ...serverOption) *testServer {
	t.Helper()

	cfg, err := config.Parse([]byte(`
[network]
bind_address = "127.0.0.1:0"
read_timeout = "2s"

[server]
max_players = 20
motd = "Welcome to limbo"
`))
	require.NoError(t, err)
	for _, opt := range opts {
		opt(cfg)
	}

	registry, err := data.LoadRegistryData()
	require.NoError(t, err)

	players := player.NewRegistry()
	deps := &Deps{
		Config:   cfg,
		Players:  players,
		Registry: registry,
		Metrics:  metrics.New(prometheus.NewRegistry(), players.Count),
		Scripts:  scripts,
	}

	core, logs := observer.New(zap.DebugLevel)
	srv, err := gonet.NewServer(cfg.Network.BindAddress, cfg.Network.ReadTimeout, cfg.Server.HidePlayerIPs, zap.New(core))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{t: t, srv: srv, deps: deps, logs: logs, cancel: cancel, done: make(chan error, 1)}
	go func() { ts.done <- srv.Serve(ctx, NewConnectionHandler(deps)) }()
	t.Cleanup(ts.stop)
	return ts
}

// stop shuts the listener down and waits for every connection to finish.
func (s *testServer) stop() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	require.NoError(s.t, <-s.done)
	s.srv.Wait()
}

func (s *testServer) errorLogs() []observer.LoggedEntry {
	return s.logs.FilterLevelExact(zap.ErrorLevel).All()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func (s *testServer) dial() *testClient {
	s.t.Helper()
	conn, err := net.Dial("tcp", s.srv.Addr().String())
	require.NoError(s.t, err)
	s.t.Cleanup(func() { conn.Close() })
	return &testClient{t: s.t, conn: conn, br: bufio.NewReader(conn)}
}

func (c *testClient) send(id int32, fill func(w *packet.Writer)) {
	c.t.Helper()
	w := packet.NewWriterWithID(id)
	if fill != nil {
		fill(w)
	}
	require.NoError(c.t, gonet.WriteFrame(c.conn, w.Bytes()))
}

func (c *testClient) recv() (int32, *packet.Reader) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	body, err := gonet.ReadFrame(c.br)
	require.NoError(c.t, err)
	id, r, err := gonet.SplitPacketID(body)
	require.NoError(c.t, err)
	return id, r
}

func (c *testClient) expect(id int32) *packet.Reader {
	c.t.Helper()
	got, r := c.recv()
	require.Equal(c.t, id, got, "packet id")
	return r
}

// expectClosed asserts that the server closes the connection without
// sending anything further.
func (c *testClient) expectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(testTimeout)))
	n, err := c.br.Read(make([]byte, 1))
	require.Zero(c.t, n)
	require.True(c.t, errors.Is(err, io.EOF), "want EOF, got %v", err)
}

func (c *testClient) handshake(intention int32) {
	c.send(packet.ServerboundIntention, func(w *packet.Writer) {
		w.WriteVarInt(packet.ProtocolVersion)
		w.WriteString("localhost")
		w.WriteUShort(25565)
		w.WriteVarInt(intention)
	})
}

func (c *testClient) hello(name string) {
	c.send(packet.ServerboundHello, func(w *packet.Writer) {
		w.WriteString(name)
		w.WriteUUID(player.OfflineUUID(name))
	})
}

// expectLoginDisconnect reads a Login-phase disconnect and returns its text.
func (c *testClient) expectLoginDisconnect() string {
	c.t.Helper()
	r := c.expect(packet.ClientboundLoginDisconnect)
	return r.ReadString(0)
}

func zapString(key, value string) zap.Field {
	return zap.String(key, value)
}
