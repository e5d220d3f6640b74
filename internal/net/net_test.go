package net

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (server, client net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return server, client
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte{0x00, 0x01, 0x02}
	require.NoError(t, WriteFrame(&buf, body))
	assert.Equal(t, []byte{0x03, 0x00, 0x01, 0x02}, buf.Bytes())

	got, err := ReadFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFrameRejectsBadLength(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(bytes.NewReader([]byte{0x00})))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	// 2097152 needs a 4-byte VarInt
	_, err = ReadFrame(bufio.NewReader(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x01})))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestAdvanceConsumesConn(t *testing.T) {
	server, _ := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))
	assert.Equal(t, packet.PhaseHandshake, conn.Phase())

	login, err := conn.Advance(packet.PhaseLogin)
	require.NoError(t, err)
	assert.Equal(t, packet.PhaseLogin, login.Phase())
	assert.Equal(t, uint64(1), login.ID())

	_, _, err = conn.ReadPacket()
	assert.ErrorIs(t, err, ErrConnConsumed)
	assert.ErrorIs(t, conn.WritePacket(packet.NewWriterWithID(0)), ErrConnConsumed)
	_, err = conn.Advance(packet.PhaseStatus)
	assert.ErrorIs(t, err, ErrConnConsumed)

	_, err = login.Advance(packet.PhaseGame)
	assert.Error(t, err)
	_, _, err = login.ReadPacket()
	assert.ErrorIs(t, err, ErrConnConsumed, "a rejected transition still consumes")
}

func TestReadPacket(t *testing.T) {
	server, client := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))

	w := packet.NewWriterWithID(0x01)
	w.WriteLong(42)
	require.NoError(t, WriteFrame(client, w.Bytes()))

	id, r, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int32(0x01), id)
	assert.Equal(t, int64(42), r.ReadLong())
	require.NoError(t, r.Err())
}

func TestReadPacketTimeout(t *testing.T) {
	server, _ := tcpPair(t)
	conn := NewConn(server, 1, 50*time.Millisecond, false, zaptest.NewLogger(t))
	status, err := conn.Advance(packet.PhaseStatus)
	require.NoError(t, err)

	_, _, err = status.ReadPacket()
	var timeout *ReadTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, packet.PhaseStatus, timeout.Phase)
	assert.False(t, IsConnectionClosed(err))
}

func TestReadPacketPeerClosed(t *testing.T) {
	server, client := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))
	require.NoError(t, client.Close())

	_, _, err := conn.ReadPacket()
	assert.True(t, IsConnectionClosed(err))
}

func TestPeekByteDoesNotConsume(t *testing.T) {
	server, client := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))

	w := packet.NewWriterWithID(0x00)
	w.WriteVarInt(765)
	require.NoError(t, WriteFrame(client, w.Bytes()))

	b, err := conn.PeekByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), b)

	id, r, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int32(0x00), id)
	assert.Equal(t, int32(765), r.ReadVarInt())
}

func TestDisconnectPerPhase(t *testing.T) {
	server, client := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))

	err := conn.Disconnect("bye")
	assert.EqualError(t, err, "disconnect: bye")
	reason, ok := DisconnectReason(err)
	require.True(t, ok)
	assert.Equal(t, "bye", reason)

	login, err := conn.Advance(packet.PhaseLogin)
	require.NoError(t, err)
	err = login.Disconnect("Invalid characters in username")
	_, ok = DisconnectReason(err)
	require.True(t, ok)

	// nothing was written in Handshake, so the first frame is the Login one
	body, err := ReadFrame(bufio.NewReader(client))
	require.NoError(t, err)
	id, r, err := SplitPacketID(body)
	require.NoError(t, err)
	assert.Equal(t, packet.ClientboundLoginDisconnect, id)
	assert.JSONEq(t, `{"text":"Invalid characters in username"}`, r.ReadString(0))
}

func TestDisconnectConfigurationUsesNBT(t *testing.T) {
	server, client := tcpPair(t)
	conn := NewConn(server, 1, time.Second, false, zaptest.NewLogger(t))
	login, err := conn.Advance(packet.PhaseLogin)
	require.NoError(t, err)
	cfg, err := login.Advance(packet.PhaseConfiguration)
	require.NoError(t, err)

	_ = cfg.Disconnect("x")
	body, err := ReadFrame(bufio.NewReader(client))
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(packet.ClientboundConfigDisconnect), packet.TagString, 0x00, 0x01, 'x'}, body)
}

func TestAddrRedaction(t *testing.T) {
	ap := netip.MustParseAddrPort("10.0.0.7:51234")
	assert.Equal(t, "10.0.0.7:51234", NewAddr(ap, false).String())

	hidden := NewAddr(ap, true)
	assert.Equal(t, "<redacted>", hidden.String())
	assert.Equal(t, ap, hidden.AddrPort())
}

func TestServerServe(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", time.Second, false, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ids := make(chan uint64, 2)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, func(conn *Conn) {
			ids <- conn.ID()
			_, _, _ = conn.ReadPacket()
		})
	}()

	for i := 0; i < 2; i++ {
		c, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		c.Close()
	}
	first, second := <-ids, <-ids
	assert.NotEqual(t, first, second)

	cancel()
	require.NoError(t, <-done)
	srv.Wait()
}

func TestServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = NewServer(ln.Addr().String(), time.Second, false, zaptest.NewLogger(t))
	assert.Error(t, err)
}
