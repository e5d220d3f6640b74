package net

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/limbomc/limbo/internal/net/packet"
	"go.uber.org/zap"
)

// DefaultReadTimeout bounds how long a connection may go without sending
// a complete packet.
const DefaultReadTimeout = 5 * time.Second

// transport is the socket state shared by every phase of one connection.
type transport struct {
	id          uint64
	raw         net.Conn
	br          *bufio.Reader
	addr        Addr
	readTimeout time.Duration
	log         *zap.Logger
}

// Conn is a connection bound to exactly one protocol phase. Only NewConn
// creates one, always in the Handshake phase; every later phase is reached
// through Advance, which consumes the receiver. A consumed Conn fails all
// I/O with ErrConnConsumed.
type Conn struct {
	t     *transport
	phase packet.Phase
	log   *zap.Logger
}

// NewConn wraps an accepted socket in the Handshake phase.
func NewConn(raw net.Conn, id uint64, readTimeout time.Duration, hideAddr bool, log *zap.Logger) *Conn {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	addr := AddrFrom(raw.RemoteAddr(), hideAddr)
	t := &transport{
		id:          id,
		raw:         raw,
		br:          bufio.NewReader(raw),
		addr:        addr,
		readTimeout: readTimeout,
		log:         log.With(zap.Uint64("conn", id), zap.Stringer("addr", addr)),
	}
	return t.bind(packet.PhaseHandshake)
}

func (t *transport) bind(phase packet.Phase) *Conn {
	return &Conn{t: t, phase: phase, log: t.log.With(zap.Stringer("phase", phase))}
}

func (c *Conn) Phase() packet.Phase {
	return c.phase
}

// ID is the process-unique connection number.
func (c *Conn) ID() uint64 {
	if c.t == nil {
		return 0
	}
	return c.t.id
}

// Addr is the peer's socket address.
func (c *Conn) Addr() Addr {
	if c.t == nil {
		return Addr{}
	}
	return c.t.addr
}

// Log returns the connection's logger, tagged with id, address and phase.
func (c *Conn) Log() *zap.Logger {
	return c.log
}

// Advance moves the connection into the next phase. The receiver is
// consumed even when the transition is rejected.
func (c *Conn) Advance(next packet.Phase) (*Conn, error) {
	if c.t == nil {
		return nil, ErrConnConsumed
	}
	t := c.t
	c.t = nil
	if !c.phase.CanAdvance(next) {
		return nil, fmt.Errorf("illegal phase transition %s -> %s", c.phase, next)
	}
	return t.bind(next), nil
}

func (c *Conn) armReadDeadline() error {
	return c.t.raw.SetReadDeadline(time.Now().Add(c.t.readTimeout))
}

func (c *Conn) readError(err error) error {
	if isTimeoutErr(err) {
		return &ReadTimeoutError{Phase: c.phase}
	}
	return &ReadPacketError{Phase: c.phase, Err: err, Closed: isClosedErr(err)}
}

// PeekByte returns the next unread byte without consuming it.
func (c *Conn) PeekByte() (byte, error) {
	if c.t == nil {
		return 0, ErrConnConsumed
	}
	if err := c.armReadDeadline(); err != nil {
		return 0, c.readError(err)
	}
	b, err := c.t.br.Peek(1)
	if err != nil {
		return 0, c.readError(err)
	}
	return b[0], nil
}

// ReadPacket reads one frame and returns its packet id with a reader
// positioned at the first field.
func (c *Conn) ReadPacket() (int32, *packet.Reader, error) {
	if c.t == nil {
		return 0, nil, ErrConnConsumed
	}
	if err := c.armReadDeadline(); err != nil {
		return 0, nil, c.readError(err)
	}
	body, err := ReadFrame(c.t.br)
	if err != nil {
		return 0, nil, c.readError(err)
	}
	id, r, err := SplitPacketID(body)
	if err != nil {
		return 0, nil, c.readError(err)
	}
	return id, r, nil
}

// WritePacket frames and sends a packet built with packet.NewWriterWithID.
func (c *Conn) WritePacket(w *packet.Writer) error {
	if c.t == nil {
		return ErrConnConsumed
	}
	return c.write(func(nc net.Conn) error { return WriteFrame(nc, w.Bytes()) })
}

// WriteRaw sends bytes without framing. Only the legacy ping reply needs it.
func (c *Conn) WriteRaw(data []byte) error {
	if c.t == nil {
		return ErrConnConsumed
	}
	return c.write(func(nc net.Conn) error {
		if _, err := nc.Write(data); err != nil {
			return fmt.Errorf("write raw: %w", err)
		}
		return nil
	})
}

func (c *Conn) write(fn func(net.Conn) error) error {
	err := fn(c.t.raw)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EPIPE) {
		c.log.Debug("Broken pipe, shutting down write half")
		if tcp, ok := c.t.raw.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	}
	return err
}

// UnknownPacket reports a packet id that is not valid at this point of
// the phase.
func (c *Conn) UnknownPacket(id int32) error {
	return &ReadPacketError{Phase: c.phase, Err: fmt.Errorf("unknown packet id 0x%02X", id)}
}

// MalformedPacket reports a packet whose fields failed to decode.
func (c *Conn) MalformedPacket(id int32, err error) error {
	return &ReadPacketError{Phase: c.phase, Err: fmt.Errorf("malformed packet 0x%02X: %w", id, err)}
}

// Disconnect sends the phase's disconnect packet, if it has one, and
// returns a DisconnectError carrying reason. Handshake and Status have no
// disconnect packet, so nothing is written there.
func (c *Conn) Disconnect(reason string) error {
	if c.t == nil {
		return ErrConnConsumed
	}
	c.log.Warn("Disconnecting client", zap.String("reason", reason))

	var w *packet.Writer
	switch c.phase {
	case packet.PhaseLogin:
		text, err := json.Marshal(TextComponent{Text: reason})
		if err != nil {
			return fmt.Errorf("encode disconnect reason: %w", err)
		}
		w = packet.NewWriterWithID(packet.ClientboundLoginDisconnect)
		w.WriteString(string(text))
	case packet.PhaseConfiguration:
		w = packet.NewWriterWithID(packet.ClientboundConfigDisconnect)
		if err := w.WriteNBT(reason); err != nil {
			return err
		}
	case packet.PhaseGame:
		w = packet.NewWriterWithID(packet.ClientboundGameDisconnect)
		if err := w.WriteNBT(reason); err != nil {
			return err
		}
	}
	if w != nil {
		if err := c.WritePacket(w); err != nil {
			return err
		}
	}
	return &DisconnectError{Reason: reason}
}

// TextComponent is the JSON chat component used by the Status and Login phases.
type TextComponent struct {
	Text string `json:"text"`
}
