// Package gameserver accepts game connections on the configured transports and feeds every
// inbound frame through the NetGetData hooks before the default processor.
package gameserver

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/tilegate/gethook/host"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/network"
	"github.com/tilegate/gethook/packet"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxClients is the number of usable slots; the last player index is reserved for the server.
const MaxClients = world.MaxPlayers - 1

var ErrClientNotFound = errors.New("client not found")

// DefaultProcessor handles frames no hook claimed.
type DefaultProcessor func(whoAmI int, tag packet.Type, payload []byte)

type Server struct {
	Players     *player.Registry
	NetGetData  *host.NetGetData
	Default     DefaultProcessor
	ReadTimeout time.Duration

	tcpServer *network.TCPServer
	wsServer  *network.WSServer
	kcpServer *network.KCPServer

	mapClientLocker sync.RWMutex
	mapClient       map[string]*Client
	slots           [MaxClients]*Client
}

type Client struct {
	id     string
	whoAmI int
	conn   network.Conn
	server *Server
	player *player.Player
}

func NewServer(players *player.Registry, netGetData *host.NetGetData, def DefaultProcessor) *Server {
	return &Server{
		Players:    players,
		NetGetData: netGetData,
		Default:    def,
		mapClient:  make(map[string]*Client, MaxClients),
	}
}

func (s *Server) ListenTCP(server *network.TCPServer) {
	server.NewAgent = s.NewClient
	s.tcpServer = server
}

func (s *Server) ListenWS(server *network.WSServer) {
	server.NewAgent = s.NewClient
	s.wsServer = server
}

func (s *Server) ListenKCP(server *network.KCPServer) {
	server.NewAgent = s.NewClient
	s.kcpServer = server
}

// Start starts every configured transport; on failure the ones already running are closed.
func (s *Server) Start() error {
	if s.tcpServer == nil && s.wsServer == nil && s.kcpServer == nil {
		return errors.New("no transport configured")
	}

	if s.tcpServer != nil {
		if err := s.tcpServer.Start(); err != nil {
			return fmt.Errorf("start tcp: %w", err)
		}
		log.Info("tcp listening", log.String("addr", s.tcpServer.ListenAddr().String()))
	}
	if s.wsServer != nil {
		if err := s.wsServer.Start(); err != nil {
			s.Close()
			return fmt.Errorf("start websocket: %w", err)
		}
		log.Info("websocket listening", log.String("addr", s.wsServer.ListenAddr().String()))
	}
	if s.kcpServer != nil {
		if err := s.kcpServer.Start(); err != nil {
			s.Close()
			return fmt.Errorf("start kcp: %w", err)
		}
		log.Info("kcp listening", log.String("addr", s.kcpServer.ListenAddr().String()))
	}

	return nil
}

func (s *Server) Close() {
	if s.tcpServer != nil {
		s.tcpServer.Close()
	}
	if s.wsServer != nil {
		s.wsServer.Close()
	}
	if s.kcpServer != nil {
		s.kcpServer.Close()
	}
}

// NewClient takes the lowest free slot. When the server is full the client is closed on Run.
func (s *Server) NewClient(conn network.Conn) network.Agent {
	s.mapClientLocker.Lock()
	defer s.mapClientLocker.Unlock()

	client := &Client{id: primitive.NewObjectID().Hex(), whoAmI: -1, conn: conn, server: s}
	for i := range s.slots {
		if s.slots[i] == nil {
			client.whoAmI = i
			s.slots[i] = client
			s.mapClient[client.id] = client
			break
		}
	}

	return client
}

func (c *Client) GetId() string {
	return c.id
}

func (c *Client) WhoAmI() int {
	return c.whoAmI
}

func remoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	ip, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return ip
}

func (c *Client) Run() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			errString := fmt.Sprint(r)
			log.Dump(string(buf[:l]), log.String("error", errString), log.String("clientId", c.id))
		}
	}()

	if c.whoAmI < 0 {
		log.Warning("server full", log.String("remote", c.conn.RemoteAddr().String()))
		return
	}

	p := &player.Player{Index: c.whoAmI, IP: remoteIP(c.conn.RemoteAddr())}
	if err := c.server.Players.Add(p); err != nil {
		log.Error("register player fail", log.String("clientId", c.id), log.ErrorAttr("err", err))
		return
	}
	c.player = p
	log.Debug("client connected", log.String("clientId", c.id), log.Int("whoAmI", c.whoAmI), log.String("ip", p.IP))

	for {
		if c.server.ReadTimeout > 0 {
			c.conn.SetReadDeadline(c.server.ReadTimeout)
		}
		frame, err := c.conn.ReadMsg()
		if err != nil {
			log.Debug("read client failed", log.ErrorAttr("error", err), log.String("clientId", c.id))
			break
		}

		c.server.route(c.whoAmI, frame)
		c.conn.ReleaseReadMsg(frame)
	}
}

func (s *Server) route(whoAmI int, frame []byte) {
	tag, payload, err := packet.ParseFrame(frame)
	if err != nil {
		log.Debug("bad frame", log.Int("whoAmI", whoAmI), log.ErrorAttr("err", err))
		return
	}

	args := &host.GetDataEventArgs{
		MsgID:  tag,
		WhoAmI: whoAmI,
		Buffer: frame,
		Index:  packet.HeaderSize,
		Length: len(payload),
	}
	if s.NetGetData != nil && s.NetGetData.Invoke(args) {
		return
	}

	if s.Default != nil {
		s.Default(whoAmI, tag, payload)
	}
}

// OnClose unregisters the player before the slot is handed out again.
func (c *Client) OnClose() {
	s := c.server
	if c.player != nil {
		s.Players.Remove(c.whoAmI)
		log.Debug("client disconnected", log.String("clientId", c.id), log.Int("whoAmI", c.whoAmI))
	}

	s.mapClientLocker.Lock()
	delete(s.mapClient, c.id)
	if c.whoAmI >= 0 && s.slots[c.whoAmI] == c {
		s.slots[c.whoAmI] = nil
	}
	s.mapClientLocker.Unlock()
}

func (s *Server) client(whoAmI int) (*Client, error) {
	if whoAmI < 0 || whoAmI >= MaxClients {
		return nil, fmt.Errorf("%w: %d", ErrClientNotFound, whoAmI)
	}

	s.mapClientLocker.RLock()
	defer s.mapClientLocker.RUnlock()
	client := s.slots[whoAmI]
	if client == nil {
		return nil, fmt.Errorf("%w: %d", ErrClientNotFound, whoAmI)
	}
	return client, nil
}

func (s *Server) SendMsg(whoAmI int, tag packet.Type, payload []byte) error {
	client, err := s.client(whoAmI)
	if err != nil {
		return err
	}
	return client.conn.WriteMsg(tag, payload)
}

// Kick closes the connection behind whoAmI; the slot frees once its agent exits.
func (s *Server) Kick(whoAmI int) error {
	client, err := s.client(whoAmI)
	if err != nil {
		return err
	}

	client.conn.Close()
	log.Info("kick client", log.String("clientId", client.id), log.Int("whoAmI", whoAmI))
	return nil
}

func (s *Server) ClientID(whoAmI int) string {
	client, err := s.client(whoAmI)
	if err != nil {
		return ""
	}
	return client.id
}

func (s *Server) GetConnNum() int {
	s.mapClientLocker.RLock()
	defer s.mapClientLocker.RUnlock()
	return len(s.mapClient)
}
