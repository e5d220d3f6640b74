package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/limbomc/limbo/internal/net/packet"
)

// MaxFrameLength is the largest frame body the protocol allows: the
// biggest value a 3-byte VarInt can carry.
const MaxFrameLength = 2097151

// ErrFrameTooLarge is returned for frames whose declared length is out of range.
var ErrFrameTooLarge = errors.New("frame length out of range")

// ReadFrame reads one uncompressed packet frame from r.
// Wire format: [VarInt: body length][body]. The body starts with the
// VarInt packet id.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	n, err := packet.ReadVarIntFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	if n <= 0 || n > MaxFrameLength {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", n, err)
	}
	return body, nil
}

// WriteFrame writes one packet frame to w in a single write.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameLength {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(body))
	}
	buf := make([]byte, 0, packet.VarIntSize(int32(len(body)))+len(body))
	buf = packet.AppendVarInt(buf, int32(len(body)))
	buf = append(buf, body...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// SplitPacketID separates the packet id from the rest of a frame body.
func SplitPacketID(body []byte) (int32, *packet.Reader, error) {
	r := packet.NewReader(body)
	id := r.ReadVarInt()
	if err := r.Err(); err != nil {
		return 0, nil, fmt.Errorf("read packet id: %w", err)
	}
	return id, r, nil
}
