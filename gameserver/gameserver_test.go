package gameserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/host"
	"github.com/tilegate/gethook/network"
	"github.com/tilegate/gethook/packet"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
)

type fakeConn struct {
	frames  chan []byte
	written []packet.Type
	closed  bool
	mu      sync.Mutex
}

func newFakeConn(frames ...[]byte) *fakeConn {
	c := &fakeConn{frames: make(chan []byte, len(frames))}
	for _, f := range frames {
		c.frames <- f
	}
	close(c.frames)
	return c
}

func (c *fakeConn) ReadMsg() ([]byte, error) {
	f, ok := <-c.frames
	if !ok {
		return nil, io.EOF
	}
	return f, nil
}

func (c *fakeConn) WriteMsg(tag packet.Type, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, tag)
	return nil
}

func (c *fakeConn) ReleaseReadMsg([]byte) {}
func (c *fakeConn) LocalAddr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777} }
func (c *fakeConn) RemoteAddr() net.Addr { return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 50000} }
func (c *fakeConn) SetReadDeadline(time.Duration) {}
func (c *fakeConn) Close() { c.closed = true }
func (c *fakeConn) Destroy() { c.closed = true }

func frame(t *testing.T, tag packet.Type, payload ...byte) []byte {
	t.Helper()
	f, err := packet.EncodeFrame(tag, payload)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRouteHandledSkipsDefault(t *testing.T) {
	var defaults []packet.Type
	netGetData := &host.NetGetData{}
	netGetData.Register("test", func(args *host.GetDataEventArgs) {
		if args.MsgID == packet.ChatText {
			args.Handled = true
		}
		if args.Buffer[args.Index-1] != byte(args.MsgID) {
			t.Errorf("index %d does not follow the tag", args.Index)
		}
	}, 0)

	s := NewServer(player.NewRegistry(), netGetData, func(whoAmI int, tag packet.Type, payload []byte) {
		defaults = append(defaults, tag)
		if tag == packet.SignRead && len(payload) != 4 {
			t.Errorf("payload length %d", len(payload))
		}
	})

	s.route(0, frame(t, packet.ChatText, 0, 1, 2))
	s.route(0, frame(t, packet.SignRead, 1, 0, 2, 0))
	s.route(0, []byte{9, 0, 1})

	if len(defaults) != 1 || defaults[0] != packet.SignRead {
		t.Fatalf("default processor saw %v", defaults)
	}
}

func TestClientLifecycle(t *testing.T) {
	players := player.NewRegistry()
	var seen []int
	s := NewServer(players, &host.NetGetData{}, func(whoAmI int, tag packet.Type, payload []byte) {
		seen = append(seen, whoAmI)
		if p := players.Get(whoAmI); p == nil || p.IP != "10.0.0.9" {
			t.Errorf("player not registered while reading: %v", p)
		}
	})

	first := s.NewClient(newFakeConn()).(*Client)
	second := s.NewClient(newFakeConn(frame(t, packet.SignRead, 0, 0, 0, 0))).(*Client)
	if first.WhoAmI() != 0 || second.WhoAmI() != 1 {
		t.Fatalf("slots %d %d", first.WhoAmI(), second.WhoAmI())
	}
	if s.ClientID(1) != second.GetId() || s.GetConnNum() != 2 {
		t.Fatal("client not indexed")
	}

	first.OnClose()
	second.Run()
	if len(seen) != 1 || seen[0] != 1 {
		t.Fatalf("default saw %v", seen)
	}
	second.OnClose()

	if players.Count() != 0 || s.GetConnNum() != 0 {
		t.Fatalf("players %d conns %d after close", players.Count(), s.GetConnNum())
	}

	third := s.NewClient(newFakeConn()).(*Client)
	if third.WhoAmI() != 0 {
		t.Fatalf("freed slot not reused: %d", third.WhoAmI())
	}
}

func TestReusedSlotRegistersPlayer(t *testing.T) {
	players := player.NewRegistry()
	var served, slotted atomic.Int64
	s := NewServer(players, &host.NetGetData{}, func(whoAmI int, tag packet.Type, payload []byte) {
		served.Add(1)
	})
	for i := 0; i < MaxClients-1; i++ {
		players.Add(&player.Player{Index: s.NewClient(newFakeConn()).(*Client).WhoAmI()})
	}

	msg := frame(t, packet.SignRead, 0, 0, 0, 0)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c := s.NewClient(newFakeConn(msg)).(*Client)
				if c.WhoAmI() >= 0 {
					slotted.Add(1)
				}
				c.Run()
				c.OnClose()
			}
		}()
	}
	wg.Wait()

	if slotted.Load() == 0 || served.Load() != slotted.Load() {
		t.Fatalf("served %d of %d clients that got a slot", served.Load(), slotted.Load())
	}
	if players.Get(MaxClients-1) != nil {
		t.Fatal("last slot still holds a player")
	}
}

func TestFailedRegistrationKeepsExistingPlayer(t *testing.T) {
	players := player.NewRegistry()
	s := NewServer(players, &host.NetGetData{}, nil)
	stale := &player.Player{Index: 0, Name: "stale"}
	players.Add(stale)

	c := s.NewClient(newFakeConn()).(*Client)
	c.Run()
	c.OnClose()
	if players.Get(0) != stale {
		t.Fatal("closing a client that never registered removed another player")
	}
}

func TestServerFull(t *testing.T) {
	s := NewServer(player.NewRegistry(), nil, nil)
	for i := 0; i < MaxClients; i++ {
		s.NewClient(newFakeConn())
	}

	extra := s.NewClient(newFakeConn()).(*Client)
	if extra.WhoAmI() != -1 {
		t.Fatalf("extra client got slot %d", extra.WhoAmI())
	}
	extra.Run()
	extra.OnClose()
	if s.GetConnNum() != MaxClients {
		t.Fatalf("conns = %d", s.GetConnNum())
	}
}

func TestSendAndKick(t *testing.T) {
	s := NewServer(player.NewRegistry(), nil, nil)
	conn := newFakeConn()
	s.NewClient(conn)

	if err := s.SendMsg(0, packet.ChatText, []byte("hi")); err != nil {
		t.Fatal(err)
	}
	if len(conn.written) != 1 || conn.written[0] != packet.ChatText {
		t.Fatalf("written %v", conn.written)
	}
	if err := s.Kick(0); err != nil || !conn.closed {
		t.Fatalf("kick: %v closed=%v", err, conn.closed)
	}
	if err := s.SendMsg(5, packet.ChatText, nil); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("send to empty slot: %v", err)
	}
}

func TestStartWithoutTransport(t *testing.T) {
	if err := NewServer(player.NewRegistry(), nil, nil).Start(); err == nil {
		t.Fatal("start without transport succeeded")
	}
}

func TestTCPInterception(t *testing.T) {
	players := player.NewRegistry()
	netGetData := &host.NetGetData{}
	tiles := world.NewTileMap(100, 100)

	handler, err := hook.New("gameserver-test", netGetData, tiles, players, hook.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer handler.Dispose()

	reads := make(chan world.Point, 1)
	hook.On(handler.Registry, func(ev *event.SignReadEvent) error {
		ev.SetHandled(ev.Location.X == 7)
		reads <- ev.Location
		return nil
	})

	defaults := make(chan packet.Type, 4)
	s := NewServer(players, netGetData, func(whoAmI int, tag packet.Type, payload []byte) {
		defaults <- tag
	})
	s.ListenTCP(&network.TCPServer{Addr: "127.0.0.1:0"})
	if err = s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	client, err := net.Dial("tcp", s.tcpServer.ListenAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	client.Write(frame(t, packet.SignRead, 7, 0, 8, 0))
	client.Write(frame(t, packet.SignRead, 9, 0, 8, 0))

	for _, want := range []int{7, 9} {
		select {
		case at := <-reads:
			if at.X != want || at.Y != 8 {
				t.Fatalf("sign read at %v, want %d,8", at, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("no sign read event")
		}
	}

	select {
	case tag := <-defaults:
		if tag != packet.SignRead {
			t.Fatalf("default got %v", tag)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("unhandled frame never reached the default processor")
	}
	select {
	case tag := <-defaults:
		t.Fatalf("handled frame reached default processor: %v", tag)
	case <-time.After(100 * time.Millisecond):
	}
}
