package relay

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/player"
)

type sent struct {
	subject string
	key     string
	data    []byte
}

type memPublisher struct {
	mu     sync.Mutex
	out    chan sent
	block  chan struct{}
	fail   error
	closed bool
}

func newMemPublisher() *memPublisher {
	return &memPublisher{out: make(chan sent, 16)}
}

func (p *memPublisher) Publish(subject string, key string, data []byte) error {
	if p.block != nil {
		<-p.block
	}
	if p.fail != nil {
		return p.fail
	}
	p.out <- sent{subject: subject, key: key, data: append([]byte(nil), data...)}
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memPublisher) next(t *testing.T) sent {
	t.Helper()
	select {
	case s := <-p.out:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("nothing published")
	}
	return sent{}
}

var alice = &player.Player{Index: 3, Name: "alice"}

func chat(text string) *event.ChatTextEvent {
	return &event.ChatTextEvent{Base: event.Base{Player: alice}, Text: text}
}

func TestRelayJSON(t *testing.T) {
	registry := hook.NewRegistry()
	pub := newMemPublisher()
	r, err := New(registry, pub, Config{Subject: "gethook.events", Events: []event.Type{event.ChatText}})
	if err != nil {
		t.Fatal(err)
	}
	r.Start()
	defer r.Close()

	if registry.Publish(chat("hello")) {
		t.Fatal("relay marked the event handled")
	}
	registry.Publish(&event.SignReadEvent{Base: event.Base{Player: alice}})

	s := pub.next(t)
	if s.subject != "gethook.events" || s.key != "alice" {
		t.Fatalf("subject %q key %q", s.subject, s.key)
	}

	m, err := Unmarshal(s.data, EncodingJSON)
	if err != nil {
		t.Fatal(err)
	}
	if m["event"] != "ChatText" || m["player"] != "alice" || m["whoAmI"] != float64(3) || m["id"] == "" {
		t.Fatalf("envelope = %v", m)
	}
	payload := m["payload"].(map[string]any)
	if payload["text"] != "hello" || payload["player"] != "alice" {
		t.Fatalf("payload = %v", payload)
	}

	select {
	case extra := <-pub.out:
		t.Fatalf("unselected event published: %s", extra.data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRelayProtoCompressed(t *testing.T) {
	registry := hook.NewRegistry()
	pub := newMemPublisher()
	r, err := New(registry, pub, Config{Subject: "events", Encoding: EncodingProto, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	r.Start()
	defer r.Close()

	registry.Publish(chat(string(bytes.Repeat([]byte("spam "), 200))))

	s := pub.next(t)
	raw, err := Uncompress(s.data)
	if err != nil {
		t.Fatalf("uncompress: %v", err)
	}
	m, err := Unmarshal(raw, EncodingProto)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "ChatText" || m["whoAmI"] != float64(3) {
		t.Fatalf("envelope = %v", m)
	}
	if len(m["payload"].(map[string]any)["text"].(string)) != 1000 {
		t.Fatal("payload text truncated")
	}
}

func TestRelayDropsWhenQueueFull(t *testing.T) {
	registry := hook.NewRegistry()
	pub := newMemPublisher()
	pub.block = make(chan struct{})
	r, err := New(registry, pub, Config{Subject: "events", QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	r.Start()

	for i := 0; i < 10; i++ {
		registry.Publish(chat("x"))
	}
	close(pub.block)

	if err = r.Close(); err != nil {
		t.Fatal(err)
	}
	st := r.Stats()
	if st.Dropped == 0 || st.Published+st.Dropped != 10 {
		t.Fatalf("stats = %+v", st)
	}
	if registry.Count(event.ChatText) != 0 {
		t.Fatal("relay still subscribed after close")
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}

func TestRelayCountsFailures(t *testing.T) {
	registry := hook.NewRegistry()
	pub := newMemPublisher()
	pub.fail = errors.New("broker down")
	r, err := New(registry, pub, Config{Subject: "events"})
	if err != nil {
		t.Fatal(err)
	}
	r.Start()
	registry.Publish(chat("x"))
	r.Close()

	if st := r.Stats(); st.Failed != 1 || st.Published != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestNewValidates(t *testing.T) {
	pub := newMemPublisher()
	if _, err := New(hook.NewRegistry(), pub, Config{}); err == nil {
		t.Fatal("empty subject accepted")
	}
	if _, err := New(hook.NewRegistry(), pub, Config{Subject: "s", Encoding: "xml"}); err == nil {
		t.Fatal("unknown encoding accepted")
	}
	if _, err := New(nil, pub, Config{Subject: "s"}); err == nil {
		t.Fatal("nil source accepted")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	for _, src := range [][]byte{
		{},
		[]byte("abc"),
		bytes.Repeat([]byte("tile "), 1000),
	} {
		packed, err := Compress(src)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Uncompress(packed)
		if err != nil {
			t.Fatalf("uncompress %d bytes: %v", len(src), err)
		}
		if !bytes.Equal(got, src) {
			t.Fatalf("round trip of %d bytes differs", len(src))
		}
	}

	if _, err := Uncompress([]byte{7, 1, 0}); err == nil {
		t.Fatal("unknown block flag accepted")
	}
}
