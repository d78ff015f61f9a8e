package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/tilegate/gethook/log"
	kcp "github.com/xtaci/kcp-go/v5"
)

type KCPServer struct {
	NewAgent func(Conn) Agent

	kcpCfg     KcpCfg
	blockCrypt kcp.BlockCrypt

	msgParser  MsgParser
	conns      ConnSet
	mutexConns sync.Mutex
	wgLn       sync.WaitGroup
	wgConns    sync.WaitGroup

	listener *kcp.Listener
}

/*
NoDelayCfg

normal mode: ikcp_nodelay(kcp, 0, 40, 0, 0)
turbo mode:  ikcp_nodelay(kcp, 1, 10, 2, 1)
*/
type NoDelayCfg struct {
	NoDelay           int `yaml:"NoDelay" json:"NoDelay"`
	IntervalMill      int `yaml:"IntervalMill" json:"IntervalMill"`
	Resend            int `yaml:"Resend" json:"Resend"`
	CongestionControl int `yaml:"CongestionControl" json:"CongestionControl"`
}

const (
	DefaultNoDelay           = 1
	DefaultIntervalMill      = 10
	DefaultResend            = 2
	DefaultCongestionControl = 1

	DefaultMtu          = 1400
	DefaultSndWndSize   = 4096
	DefaultRcvWndSize   = 4096
	DefaultStreamMode   = true
	DefaultDSCP         = 46
	DefaultDataShards   = 10
	DefaultParityShards = 0

	DefaultReadDeadlineMill  = 15 * time.Second
	DefaultWriteDeadlineMill = 15 * time.Second

	DefaultMaxConnNum = 20000
)

// KcpCfg mirrors the yaml layout; nil pointers take the defaults above.
// ReadDeadlineMill and WriteDeadlineMill are milliseconds.
type KcpCfg struct {
	ListenAddr string      `yaml:"ListenAddr" json:"ListenAddr"`
	MaxConnNum int         `yaml:"MaxConnNum" json:"MaxConnNum"`
	NoDelay    *NoDelayCfg `yaml:"NoDelay" json:"NoDelay"`

	Mtu               *int  `yaml:"Mtu" json:"Mtu"`
	SndWndSize        *int  `yaml:"SndWndSize" json:"SndWndSize"`
	RcvWndSize        *int  `yaml:"RcvWndSize" json:"RcvWndSize"`
	ReadDeadlineMill  *int  `yaml:"ReadDeadlineMill" json:"ReadDeadlineMill"`
	WriteDeadlineMill *int  `yaml:"WriteDeadlineMill" json:"WriteDeadlineMill"`
	StreamMode        *bool `yaml:"StreamMode" json:"StreamMode"`
	DSCP              *int  `yaml:"DSCP" json:"DSCP"`
	ReadBuffSize      *int  `yaml:"ReadBuffSize" json:"ReadBuffSize"`
	WriteBuffSize     *int  `yaml:"WriteBuffSize" json:"WriteBuffSize"`

	// FEC data and parity shards
	DataShards   *int `yaml:"DataShards" json:"DataShards"`
	ParityShards *int `yaml:"ParityShards" json:"ParityShards"`

	MaxMsgLen       uint32 `yaml:"MaxMsgLen" json:"MaxMsgLen"`
	PendingWriteNum int    `yaml:"PendingWriteNum" json:"PendingWriteNum"`
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func (cfg *KcpCfg) readDeadline() time.Duration {
	if cfg.ReadDeadlineMill == nil {
		return DefaultReadDeadlineMill
	}
	return time.Duration(*cfg.ReadDeadlineMill) * time.Millisecond
}

func (cfg *KcpCfg) writeDeadline() time.Duration {
	if cfg.WriteDeadlineMill == nil {
		return DefaultWriteDeadlineMill
	}
	return time.Duration(*cfg.WriteDeadlineMill) * time.Millisecond
}

func (kp *KCPServer) Init(kcpCfg *KcpCfg) {
	kp.kcpCfg = *kcpCfg

	if kp.kcpCfg.NoDelay == nil {
		kp.kcpCfg.NoDelay = &NoDelayCfg{
			NoDelay:           DefaultNoDelay,
			IntervalMill:      DefaultIntervalMill,
			Resend:            DefaultResend,
			CongestionControl: DefaultCongestionControl,
		}
	}
	if kp.kcpCfg.StreamMode == nil {
		streamMode := DefaultStreamMode
		kp.kcpCfg.StreamMode = &streamMode
	}
	if kp.kcpCfg.MaxConnNum == 0 {
		kp.kcpCfg.MaxConnNum = DefaultMaxConnNum
	}
	if kp.kcpCfg.PendingWriteNum <= 0 {
		kp.kcpCfg.PendingWriteNum = Default_PendingWriteNum
	}

	kp.conns = make(ConnSet, 2048)
	kp.msgParser.MaxMsgLen = kp.kcpCfg.MaxMsgLen
	kp.msgParser.Init()
}

func (kp *KCPServer) Start() error {
	if kp.NewAgent == nil {
		return errors.New("NewAgent must not be nil")
	}

	listener, err := kcp.ListenWithOptions(kp.kcpCfg.ListenAddr, kp.blockCrypt,
		intOr(kp.kcpCfg.DataShards, DefaultDataShards), intOr(kp.kcpCfg.ParityShards, DefaultParityShards))
	if err != nil {
		return err
	}

	if kp.kcpCfg.ReadBuffSize != nil {
		if err = listener.SetReadBuffer(*kp.kcpCfg.ReadBuffSize); err != nil {
			listener.Close()
			return err
		}
	}
	if kp.kcpCfg.WriteBuffSize != nil {
		if err = listener.SetWriteBuffer(*kp.kcpCfg.WriteBuffSize); err != nil {
			listener.Close()
			return err
		}
	}
	if err = listener.SetDSCP(intOr(kp.kcpCfg.DSCP, DefaultDSCP)); err != nil {
		log.Warning("kcp set dscp fail", log.ErrorAttr("err", err))
	}

	kp.listener = listener

	kp.wgLn.Add(1)
	go func() {
		defer kp.wgLn.Done()
		for kp.run(listener) {
		}
	}()

	return nil
}

func (kp *KCPServer) ListenAddr() net.Addr {
	if kp.listener == nil {
		return nil
	}
	return kp.listener.Addr()
}

func (kp *KCPServer) initSession(session *kcp.UDPSession) {
	noDelay := kp.kcpCfg.NoDelay
	session.SetStreamMode(*kp.kcpCfg.StreamMode)
	session.SetWindowSize(intOr(kp.kcpCfg.SndWndSize, DefaultSndWndSize), intOr(kp.kcpCfg.RcvWndSize, DefaultRcvWndSize))
	session.SetNoDelay(noDelay.NoDelay, noDelay.IntervalMill, noDelay.Resend, noDelay.CongestionControl)
	session.SetDSCP(intOr(kp.kcpCfg.DSCP, DefaultDSCP))
	session.SetMtu(intOr(kp.kcpCfg.Mtu, DefaultMtu))
	session.SetACKNoDelay(false)

	if kp.kcpCfg.ReadBuffSize != nil {
		session.SetReadBuffer(*kp.kcpCfg.ReadBuffSize)
	}
	if kp.kcpCfg.WriteBuffSize != nil {
		session.SetWriteBuffer(*kp.kcpCfg.WriteBuffSize)
	}
}

func (kp *KCPServer) run(listener *kcp.Listener) bool {
	conn, err := listener.AcceptKCP()
	if err != nil {
		log.Error("accept error", log.String("ListenAddr", kp.kcpCfg.ListenAddr), log.ErrorAttr("err", err))
		return false
	}

	kp.mutexConns.Lock()
	if kp.conns == nil {
		kp.mutexConns.Unlock()
		conn.Close()
		return false
	}
	if len(kp.conns) >= kp.kcpCfg.MaxConnNum {
		kp.mutexConns.Unlock()
		conn.Close()
		log.Warning("too many connections")
		return true
	}
	kp.conns[conn] = struct{}{}
	kp.mutexConns.Unlock()

	kp.initSession(conn)

	netConn := newNetConn(conn, kp.kcpCfg.PendingWriteNum, &kp.msgParser, kp.kcpCfg.writeDeadline())
	netConn.SetReadDeadline(kp.kcpCfg.readDeadline())
	agent := kp.NewAgent(netConn)
	kp.wgConns.Add(1)
	go func() {
		agent.Run()
		// cleanup
		conn.Close()
		kp.mutexConns.Lock()
		delete(kp.conns, conn)
		kp.mutexConns.Unlock()
		agent.OnClose()

		kp.wgConns.Done()
	}()

	return true
}

func (kp *KCPServer) Close() {
	if kp.listener == nil {
		return
	}
	kp.listener.Close()
	kp.wgLn.Wait()

	kp.mutexConns.Lock()
	for conn := range kp.conns {
		conn.Close()
	}
	kp.conns = nil
	kp.mutexConns.Unlock()
	kp.wgConns.Wait()
}
