package network

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tilegate/gethook/packet"
)

// --------------------------------
// | len(2, LE, incl.) | tag | data |
// --------------------------------
type MsgParser struct {
	MinMsgLen uint32
	MaxMsgLen uint32

	INetMempool
}

func (p *MsgParser) Init() {
	if p.INetMempool == nil {
		p.INetMempool = NewMemAreaPool()
	}
	if p.MinMsgLen < packet.HeaderSize {
		p.MinMsgLen = packet.HeaderSize
	}
	if p.MaxMsgLen == 0 || p.MaxMsgLen > packet.MaxFrameSize {
		p.MaxMsgLen = packet.MaxFrameSize
	}
}

// Read returns one whole frame, header included. Release it with ReleaseBytes.
func (p *MsgParser) Read(r io.Reader) ([]byte, error) {
	var bufMsgLen [2]byte
	if _, err := io.ReadFull(r, bufMsgLen[:]); err != nil {
		return nil, err
	}

	msgLen := uint32(binary.LittleEndian.Uint16(bufMsgLen[:]))
	if msgLen > p.MaxMsgLen {
		return nil, errors.New("message too long")
	} else if msgLen < p.MinMsgLen {
		return nil, errors.New("message too short")
	}

	msgData := p.MakeByteSlice(int(msgLen))
	copy(msgData, bufMsgLen[:])
	if _, err := io.ReadFull(r, msgData[2:msgLen]); err != nil {
		p.ReleaseBytes(msgData)
		return nil, err
	}

	return msgData[:msgLen], nil
}

// Encode builds a frame in a pooled buffer.
func (p *MsgParser) Encode(tag packet.Type, payload []byte) ([]byte, error) {
	msgLen := uint32(packet.HeaderSize + len(payload))
	if msgLen > p.MaxMsgLen {
		return nil, errors.New("message too long")
	}

	msg := p.MakeByteSlice(int(msgLen))
	binary.LittleEndian.PutUint16(msg, uint16(msgLen))
	msg[2] = byte(tag)
	copy(msg[packet.HeaderSize:], payload)

	return msg, nil
}

func (p *MsgParser) ReleaseBytes(data []byte) {
	if data != nil {
		p.ReleaseByteSlice(data)
	}
}
