package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds payloads in the same little-endian layout Reader consumes.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Byte(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}

	return w.Byte(0)
}

func (w *Writer) Int16(v int16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
	return w
}

func (w *Writer) Float32(v float32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) String7(s string) *Writer {
	w.buf = AppendString7(w.buf, s)
	return w
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}
