package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxStringLength is the protocol's default limit on string length in characters.
const MaxStringLength = 32767

var (
	ErrShortBuffer   = errors.New("packet truncated")
	ErrVarIntTooBig  = errors.New("varint is too big")
	ErrVarLongTooBig = errors.New("varlong is too big")
	ErrInvalidUTF8   = errors.New("string is not valid utf-8")
)

// StringTooLongError is returned when a string exceeds its declared limit.
type StringTooLongError struct {
	Max    int
	Length int
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("string length %d exceeds maximum %d", e.Length, e.Max)
}

// Reader reads protocol fields from a packet body. All multi-byte fields
// are big-endian.
//
// The first decoding failure is sticky: later reads return zero values and
// Err reports the first failure, so handlers decode a whole packet and
// check once.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(ErrShortBuffer)
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadUByte reads 1 unsigned byte.
func (r *Reader) ReadUByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadBool() bool {
	return r.ReadUByte() != 0
}

// ReadUShort reads 2 bytes as big-endian uint16.
func (r *Reader) ReadUShort() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// ReadInt reads 4 bytes as big-endian int32.
func (r *Reader) ReadInt() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// ReadLong reads 8 bytes as big-endian int64.
func (r *Reader) ReadLong() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *Reader) ReadFloat() float32 {
	return math.Float32frombits(uint32(r.ReadInt()))
}

func (r *Reader) ReadDouble() float64 {
	return math.Float64frombits(uint64(r.ReadLong()))
}

// ReadVarInt reads a LEB128-style variable length int32 of at most 5 bytes.
func (r *Reader) ReadVarInt() int32 {
	var value uint32
	for i := 0; i < 5; i++ {
		b := r.ReadUByte()
		if r.err != nil {
			return 0
		}
		value |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(value)
		}
	}
	r.fail(ErrVarIntTooBig)
	return 0
}

// ReadVarLong reads a variable length int64 of at most 10 bytes.
func (r *Reader) ReadVarLong() int64 {
	var value uint64
	for i := 0; i < 10; i++ {
		b := r.ReadUByte()
		if r.err != nil {
			return 0
		}
		value |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int64(value)
		}
	}
	r.fail(ErrVarLongTooBig)
	return 0
}

// ReadString reads a VarInt length-prefixed UTF-8 string of at most max
// characters. A max of zero or less means MaxStringLength.
func (r *Reader) ReadString(max int) string {
	if max <= 0 {
		max = MaxStringLength
	}
	n := int(r.ReadVarInt())
	if r.err != nil {
		return ""
	}
	if n < 0 || n > max*3 {
		r.fail(&StringTooLongError{Max: max, Length: n})
		return ""
	}
	raw := r.take(n)
	if raw == nil {
		return ""
	}
	if !utf8.Valid(raw) {
		r.fail(ErrInvalidUTF8)
		return ""
	}
	if count := utf8.RuneCount(raw); count > max {
		r.fail(&StringTooLongError{Max: max, Length: count})
		return ""
	}
	return string(raw)
}

// ReadIdentifier reads a namespaced identifier such as "minecraft:brand".
func (r *Reader) ReadIdentifier() string {
	return r.ReadString(MaxStringLength)
}

// ReadUUID reads a 128-bit UUID as two big-endian longs.
func (r *Reader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	if b := r.take(16); b != nil {
		copy(id[:], b)
	}
	return id
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadRest returns every unread byte.
func (r *Reader) ReadRest() []byte {
	return r.ReadBytes(r.Remaining())
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// ReadVarIntFrom decodes a VarInt directly from a byte stream. Used for
// frame length prefixes, before a packet body exists.
func ReadVarIntFrom(br io.ByteReader) (int32, error) {
	var value uint32
	for i := 0; i < 5; i++ {
		b, err := br.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		value |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(value), nil
		}
	}
	return 0, ErrVarIntTooBig
}
