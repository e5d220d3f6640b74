package packet

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Writer builds a packet body. All multi-byte writes are big-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// NewWriterWithID starts a packet whose first field is the packet id.
func NewWriterWithID(id int32) *Writer {
	w := NewWriter()
	w.WriteVarInt(id)
	return w
}

// WriteUByte writes 1 byte.
func (w *Writer) WriteUByte(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUByte(1)
		return
	}
	w.WriteUByte(0)
}

func (w *Writer) WriteShort(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *Writer) WriteUShort(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) WriteLong(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

func (w *Writer) WriteFloat(v float32) {
	w.WriteInt(int32(math.Float32bits(v)))
}

func (w *Writer) WriteDouble(v float64) {
	w.WriteLong(int64(math.Float64bits(v)))
}

func (w *Writer) WriteVarInt(v int32) {
	w.buf = AppendVarInt(w.buf, v)
}

func (w *Writer) WriteVarLong(v int64) {
	u := uint64(v)
	for u >= 0x80 {
		w.buf = append(w.buf, byte(u)|0x80)
		u >>= 7
	}
	w.buf = append(w.buf, byte(u))
}

// WriteString writes a VarInt length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteVarInt(int32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteIdentifier(s string) {
	w.WriteString(s)
}

func (w *Writer) WriteUUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

// WriteBytes writes raw bytes with no length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WritePosition packs a block position into one long:
// x in the top 26 bits, z in the next 26, y in the low 12.
func (w *Writer) WritePosition(x, y, z int32) {
	w.WriteLong(PackPosition(x, y, z))
}

// WriteBitSet writes a VarInt word count followed by the words.
func (w *Writer) WriteBitSet(words []int64) {
	w.WriteVarInt(int32(len(words)))
	for _, word := range words {
		w.WriteLong(word)
	}
}

// Bytes returns the packet body built so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// AppendVarInt appends the VarInt encoding of v to buf.
func AppendVarInt(buf []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

// VarIntSize returns the encoded length of v in bytes.
func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// PackPosition encodes a block position as the protocol's packed long.
func PackPosition(x, y, z int32) int64 {
	return (int64(x)&0x3FFFFFF)<<38 | (int64(z)&0x3FFFFFF)<<12 | int64(y)&0xFFF
}
