package packet

import (
	"fmt"
	"math"
	"sort"
)

// NBT tag type ids.
const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// WriteNBT writes v as a nameless network NBT tag: the tag type followed by
// its payload. Supported values are bool, int8, int16, int32, int, int64,
// float32, float64, string, []byte, []int32, []int64, []any and
// map[string]any. Compound keys are written in sorted order.
func (w *Writer) WriteNBT(v any) error {
	tag, err := nbtTagType(v)
	if err != nil {
		return err
	}
	w.WriteUByte(tag)
	return w.writeNBTPayload(v)
}

// EncodeNBT returns the network NBT encoding of v.
func EncodeNBT(v any) ([]byte, error) {
	w := NewWriter()
	if err := w.WriteNBT(v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func nbtTagType(v any) (byte, error) {
	switch v := v.(type) {
	case bool, int8:
		return TagByte, nil
	case int16:
		return TagShort, nil
	case int32:
		return TagInt, nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return TagLong, nil
		}
		return TagInt, nil
	case int64:
		return TagLong, nil
	case float32:
		return TagFloat, nil
	case float64:
		return TagDouble, nil
	case string:
		return TagString, nil
	case []byte:
		return TagByteArray, nil
	case []int32:
		return TagIntArray, nil
	case []int64:
		return TagLongArray, nil
	case []any:
		return TagList, nil
	case map[string]any:
		return TagCompound, nil
	default:
		return 0, fmt.Errorf("nbt: unsupported value type %T", v)
	}
}

func (w *Writer) writeNBTString(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("nbt: string of %d bytes is too long", len(s))
	}
	w.WriteUShort(uint16(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

func (w *Writer) writeNBTPayload(v any) error {
	switch v := v.(type) {
	case bool:
		w.WriteBool(v)
	case int8:
		w.WriteUByte(byte(v))
	case int16:
		w.WriteShort(v)
	case int32:
		w.WriteInt(v)
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			w.WriteLong(int64(v))
		} else {
			w.WriteInt(int32(v))
		}
	case int64:
		w.WriteLong(v)
	case float32:
		w.WriteFloat(v)
	case float64:
		w.WriteDouble(v)
	case string:
		return w.writeNBTString(v)
	case []byte:
		w.WriteInt(int32(len(v)))
		w.WriteBytes(v)
	case []int32:
		w.WriteInt(int32(len(v)))
		for _, n := range v {
			w.WriteInt(n)
		}
	case []int64:
		w.WriteInt(int32(len(v)))
		for _, n := range v {
			w.WriteLong(n)
		}
	case []any:
		return w.writeNBTList(v)
	case map[string]any:
		return w.writeNBTCompound(v)
	default:
		return fmt.Errorf("nbt: unsupported value type %T", v)
	}
	return nil
}

func (w *Writer) writeNBTList(items []any) error {
	if len(items) == 0 {
		w.WriteUByte(TagEnd)
		w.WriteInt(0)
		return nil
	}
	elem, err := nbtTagType(items[0])
	if err != nil {
		return err
	}
	for i, item := range items[1:] {
		tag, err := nbtTagType(item)
		if err != nil {
			return err
		}
		if tag != elem {
			return fmt.Errorf("nbt: list element %d has tag %d, want %d", i+1, tag, elem)
		}
	}
	w.WriteUByte(elem)
	w.WriteInt(int32(len(items)))
	for _, item := range items {
		if err := w.writeNBTPayload(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeNBTCompound(m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tag, err := nbtTagType(m[k])
		if err != nil {
			return fmt.Errorf("nbt: key %q: %w", k, err)
		}
		w.WriteUByte(tag)
		if err := w.writeNBTString(k); err != nil {
			return err
		}
		if err := w.writeNBTPayload(m[k]); err != nil {
			return fmt.Errorf("nbt: key %q: %w", k, err)
		}
	}
	w.WriteUByte(TagEnd)
	return nil
}
