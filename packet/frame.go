package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderSize   = 3
	MaxFrameSize = 1<<16 - 1
)

var ErrFrameLength = errors.New("invalid frame length")

// ReadFrame reads one frame: 2-byte little-endian total length including the header,
// the tag byte and the payload.
func ReadFrame(r io.Reader) (Type, []byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	total := int(binary.LittleEndian.Uint16(header[:2]))
	if total < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d", ErrFrameLength, total)
	}

	payload := make([]byte, total-HeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	return Type(header[2]), payload, nil
}

// ParseFrame splits an already delimited frame, as carried by one websocket message.
func ParseFrame(frame []byte) (Type, []byte, error) {
	if len(frame) < HeaderSize {
		return 0, nil, ErrShortPacket
	}

	total := int(binary.LittleEndian.Uint16(frame[:2]))
	if total != len(frame) {
		return 0, nil, fmt.Errorf("%w: header %d, frame %d", ErrFrameLength, total, len(frame))
	}

	return Type(frame[2]), frame[HeaderSize:], nil
}

func EncodeFrame(tag Type, payload []byte) ([]byte, error) {
	total := HeaderSize + len(payload)
	if total > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, total)
	}

	frame := make([]byte, total)
	binary.LittleEndian.PutUint16(frame, uint16(total))
	frame[2] = byte(tag)
	copy(frame[HeaderSize:], payload)

	return frame, nil
}
