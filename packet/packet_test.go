package packet

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReaderFields(t *testing.T) {
	payload := NewWriter(16).Byte(0xfe).Int16(-2).Float32(1.5).String7("hi").Bytes()
	// prefix and suffix bytes must stay invisible to the reader
	buf := append(append([]byte{9, 9}, payload...), 7, 7)
	r := NewReader(buf, 2, len(payload))

	if b, _ := r.Byte(0); b != 0xfe {
		t.Fatalf("Byte=%d", b)
	}
	if sb, _ := r.SByte(0); sb != -2 {
		t.Fatalf("SByte=%d", sb)
	}
	if v, _ := r.Int16(1); v != -2 {
		t.Fatalf("Int16=%d", v)
	}
	if f, _ := r.Float32(3); f != 1.5 {
		t.Fatalf("Float32=%v", f)
	}
	if s, err := r.String7(7); err != nil || s != "hi" {
		t.Fatalf("String7=%q %v", s, err)
	}
	if _, err := r.Byte(len(payload)); !errors.Is(err, ErrShortPacket) {
		t.Fatalf("read past window: %v", err)
	}
	if s, _ := r.Remainder(len(payload)); s != "" {
		t.Fatalf("Remainder at end=%q", s)
	}
}

func TestReaderShortWindow(t *testing.T) {
	r := NewReader([]byte{1}, 0, 10)
	if _, err := r.Int16(0); !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
	if _, err := r.Float32(-1); !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
	if NewReader([]byte{1, 2}, 5, 1).Len() != 0 {
		t.Fatal("offset past buffer should give an empty window")
	}
}

func TestString7LongLength(t *testing.T) {
	text := strings.Repeat("x", 300)
	payload := NewWriter(320).String7(text).Bytes()
	if payload[0] != 0xac || payload[1] != 0x02 {
		t.Fatalf("unexpected prefix % x", payload[:2])
	}

	s, err := NewReader(payload, 0, len(payload)).String7(0)
	if err != nil || s != text {
		t.Fatalf("String7 failed: %v", err)
	}

	if _, err = NewReader(payload[:100], 0, 100).String7(0); !errors.Is(err, ErrShortPacket) {
		t.Fatalf("expected ErrShortPacket, got %v", err)
	}
}

func TestCursorStickyError(t *testing.T) {
	c := NewReader([]byte{1, 2, 3}, 0, 3).Cursor(0)
	c.Byte()
	c.Float32()
	if c.Err() == nil {
		t.Fatal("expected error")
	}
	if c.Int16() != 0 || c.Pos() != 1 {
		t.Fatal("cursor advanced after error")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame, err := EncodeFrame(ChatText, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if frame[0] != 8 || frame[1] != 0 || frame[2] != byte(ChatText) {
		t.Fatalf("unexpected header % x", frame[:3])
	}

	tag, payload, err := ReadFrame(bytes.NewReader(frame))
	if err != nil || tag != ChatText || string(payload) != "hello" {
		t.Fatalf("ReadFrame=%v %q %v", tag, payload, err)
	}

	tag, payload, err = ParseFrame(frame)
	if err != nil || tag != ChatText || string(payload) != "hello" {
		t.Fatalf("ParseFrame=%v %q %v", tag, payload, err)
	}

	if _, _, err = ReadFrame(bytes.NewReader([]byte{2, 0, 1})); !errors.Is(err, ErrFrameLength) {
		t.Fatalf("expected ErrFrameLength, got %v", err)
	}
	if _, err = EncodeFrame(Tile, make([]byte, MaxFrameSize)); !errors.Is(err, ErrFrameLength) {
		t.Fatalf("expected ErrFrameLength, got %v", err)
	}
}

func TestTypeString(t *testing.T) {
	if MassWireOperation.String() != "MassWireOperation" || Type(200).String() != "Packet(200)" {
		t.Fatal("unexpected names")
	}
	if Type(200).Known() || !Tile.Known() {
		t.Fatal("unexpected Known")
	}
}
