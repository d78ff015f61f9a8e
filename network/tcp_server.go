package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/tilegate/gethook/log"
)

const (
	Default_ReadDeadline    = 180 * time.Second
	Default_WriteDeadline   = 30 * time.Second
	Default_MaxConnNum      = 255
	Default_PendingWriteNum = 10000
)

type TCPServer struct {
	Addr            string
	MaxConnNum      int
	PendingWriteNum int
	ReadDeadline    time.Duration
	WriteDeadline   time.Duration
	NewAgent        func(Conn) Agent

	ln         net.Listener
	conns      ConnSet
	mutexConns sync.Mutex
	wgLn       sync.WaitGroup
	wgConns    sync.WaitGroup

	MinMsgLen uint32
	MaxMsgLen uint32
	msgParser MsgParser
}

func (server *TCPServer) Start() error {
	if err := server.init(); err != nil {
		return err
	}

	server.wgLn.Add(1)
	go server.run()
	return nil
}

func (server *TCPServer) init() error {
	if server.NewAgent == nil {
		return errors.New("NewAgent must not be nil")
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	if server.MaxConnNum <= 0 {
		server.MaxConnNum = Default_MaxConnNum
		log.Info("invalid MaxConnNum", log.Int("reset", server.MaxConnNum))
	}
	if server.PendingWriteNum <= 0 {
		server.PendingWriteNum = Default_PendingWriteNum
		log.Info("invalid PendingWriteNum", log.Int("reset", server.PendingWriteNum))
	}
	if server.WriteDeadline == 0 {
		server.WriteDeadline = Default_WriteDeadline
		log.Info("invalid WriteDeadline", log.Duration("reset", server.WriteDeadline))
	}
	if server.ReadDeadline == 0 {
		server.ReadDeadline = Default_ReadDeadline
		log.Info("invalid ReadDeadline", log.Duration("reset", server.ReadDeadline))
	}

	server.ln = ln
	server.conns = make(ConnSet)
	server.msgParser.MinMsgLen = server.MinMsgLen
	server.msgParser.MaxMsgLen = server.MaxMsgLen
	server.msgParser.Init()
	return nil
}

// ListenAddr is the bound address, useful when Addr asked for port 0.
func (server *TCPServer) ListenAddr() net.Addr {
	if server.ln == nil {
		return nil
	}
	return server.ln.Addr()
}

func (server *TCPServer) SetNetMempool(mempool INetMempool) {
	server.msgParser.INetMempool = mempool
}

func (server *TCPServer) GetNetMempool() INetMempool {
	return server.msgParser.INetMempool
}

func (server *TCPServer) run() {
	defer server.wgLn.Done()

	var tempDelay time.Duration
	for {
		conn, err := server.ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				log.Info("accept fail", log.ErrorAttr("err", err), log.Duration("retry", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			return
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}
		tempDelay = 0

		server.mutexConns.Lock()
		if len(server.conns) >= server.MaxConnNum {
			server.mutexConns.Unlock()
			conn.Close()
			log.Warning("too many connections", log.String("remote", conn.RemoteAddr().String()))
			continue
		}
		server.conns[conn] = struct{}{}
		server.mutexConns.Unlock()

		server.wgConns.Add(1)

		netConn := newNetConn(conn, server.PendingWriteNum, &server.msgParser, server.WriteDeadline)
		netConn.SetReadDeadline(server.ReadDeadline)
		agent := server.NewAgent(netConn)
		go func() {
			agent.Run()

			// cleanup
			netConn.Close()
			server.mutexConns.Lock()
			delete(server.conns, conn)
			server.mutexConns.Unlock()
			agent.OnClose()

			server.wgConns.Done()
		}()
	}
}

func (server *TCPServer) Close() {
	if server.ln == nil {
		return
	}
	server.ln.Close()
	server.wgLn.Wait()

	server.mutexConns.Lock()
	for conn := range server.conns {
		conn.Close()
	}
	server.conns = nil
	server.mutexConns.Unlock()
	server.wgConns.Wait()
}
