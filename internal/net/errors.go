package net

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/limbomc/limbo/internal/net/packet"
)

// ErrConnConsumed is returned by a Conn that has already been advanced to
// another phase.
var ErrConnConsumed = errors.New("connection already advanced to another phase")

// DisconnectError ends a connection on purpose. Reason is the text shown
// to the client, when the phase lets us show one.
type DisconnectError struct {
	Reason string
}

func (e *DisconnectError) Error() string {
	return "disconnect: " + e.Reason
}

// ReadTimeoutError means no full packet arrived within the read timeout.
type ReadTimeoutError struct {
	Phase packet.Phase
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("read timeout while reading packet in %s phase", e.Phase)
}

// ReadPacketError wraps any failure to read or decode a packet.
type ReadPacketError struct {
	Phase  packet.Phase
	Err    error
	Closed bool // the peer closed or reset the connection
}

func (e *ReadPacketError) Error() string {
	return fmt.Sprintf("error while reading packet in %s phase: %v", e.Phase, e.Err)
}

func (e *ReadPacketError) Unwrap() error {
	return e.Err
}

// IsConnectionClosed reports whether err means the peer went away.
func IsConnectionClosed(err error) bool {
	var rpe *ReadPacketError
	return errors.As(err, &rpe) && rpe.Closed
}

// DisconnectReason returns the reason of a DisconnectError anywhere in err's chain.
func DisconnectReason(err error) (string, bool) {
	var de *DisconnectError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED)
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
