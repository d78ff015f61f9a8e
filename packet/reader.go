package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

var ErrShortPacket = errors.New("packet too short")

// Reader reads little-endian fields at offsets relative to the start of a payload window.
// Reads never go past the window even when the underlying buffer is larger.
type Reader struct {
	buf []byte
}

// NewReader bounds the window to buf[offset:offset+length], clamped to the buffer.
func NewReader(buf []byte, offset, length int) Reader {
	if offset < 0 || offset > len(buf) {
		return Reader{}
	}

	end := offset + length
	if length < 0 || end > len(buf) {
		end = len(buf)
	}

	return Reader{buf: buf[offset:end]}
}

func (r Reader) Len() int {
	return len(r.buf)
}

func (r Reader) window(at, n int) ([]byte, error) {
	if at < 0 || n < 0 || at+n > len(r.buf) {
		return nil, ErrShortPacket
	}

	return r.buf[at : at+n], nil
}

func (r Reader) Byte(at int) (uint8, error) {
	b, err := r.window(at, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r Reader) SByte(at int) (int8, error) {
	b, err := r.Byte(at)
	return int8(b), err
}

func (r Reader) Bool(at int) (bool, error) {
	b, err := r.Byte(at)
	return b != 0, err
}

func (r Reader) Int16(at int) (int16, error) {
	b, err := r.window(at, 2)
	if err != nil {
		return 0, err
	}

	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (r Reader) Uint16(at int) (uint16, error) {
	b, err := r.window(at, 2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (r Reader) Float32(at int) (float32, error) {
	b, err := r.window(at, 4)
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r Reader) UTF8(at, n int) (string, error) {
	b, err := r.window(at, n)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Remainder returns everything from at to the end of the window.
func (r Reader) Remainder(at int) (string, error) {
	if at < 0 || at > len(r.buf) {
		return "", ErrShortPacket
	}

	return string(r.buf[at:]), nil
}

// String7 reads a string prefixed with a 7-bit encoded length.
func (r Reader) String7(at int) (string, error) {
	c := r.Cursor(at)
	return c.String7()
}

func (r Reader) Cursor(at int) *Cursor {
	return &Cursor{r: r, pos: at}
}

// Cursor walks a payload sequentially. The first failed read sticks in Err.
type Cursor struct {
	r   Reader
	pos int
	err error
}

func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) Pos() int {
	return c.pos
}

func (c *Cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}

	b, err := c.r.window(c.pos, n)
	if err != nil {
		c.err = err
		return nil
	}
	c.pos += n

	return b
}

func (c *Cursor) Byte() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (c *Cursor) Bool() bool {
	return c.Byte() != 0
}

func (c *Cursor) Int16() int16 {
	b := c.take(2)
	if b == nil {
		return 0
	}

	return int16(binary.LittleEndian.Uint16(b))
}

func (c *Cursor) Float32() float32 {
	b := c.take(4)
	if b == nil {
		return 0
	}

	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (c *Cursor) String7() (string, error) {
	var length, shift int
	for {
		if shift >= 35 {
			c.err = ErrShortPacket
			return "", c.err
		}

		b := c.take(1)
		if b == nil {
			return "", c.err
		}

		length |= int(b[0]&0x7f) << shift
		shift += 7
		if b[0]&0x80 == 0 {
			break
		}
	}

	s := c.take(length)
	if c.err != nil {
		return "", c.err
	}

	return string(s), nil
}

// AppendString7 appends s with its 7-bit encoded length prefix.
func AppendString7(dst []byte, s string) []byte {
	n := uint(len(s))
	for n >= 0x80 {
		dst = append(dst, byte(n)|0x80)
		n >>= 7
	}
	dst = append(dst, byte(n))

	return append(dst, s...)
}
