package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/packet"
)

type WebsocketConnSet map[*websocket.Conn]struct{}

// WSConn carries one frame per binary websocket message.
type WSConn struct {
	sync.Mutex
	conn      *websocket.Conn
	writeChan chan []byte
	closeFlag bool
	msgParser *MsgParser
}

func newWSConn(conn *websocket.Conn, pendingWriteNum int, msgParser *MsgParser, writeDeadline time.Duration) *WSConn {
	wsConn := new(WSConn)
	wsConn.conn = conn
	wsConn.writeChan = make(chan []byte, pendingWriteNum)
	wsConn.msgParser = msgParser

	go func() {
		for b := range wsConn.writeChan {
			if b == nil {
				break
			}

			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			err := conn.WriteMessage(websocket.BinaryMessage, b)
			msgParser.ReleaseBytes(b)
			if err != nil {
				break
			}
		}

		conn.Close()
		wsConn.Lock()
		wsConn.closeFlag = true
		wsConn.Unlock()
	}()

	return wsConn
}

func (wsConn *WSConn) doDestroy() {
	if tcpConn, ok := wsConn.conn.UnderlyingConn().(*net.TCPConn); ok {
		tcpConn.SetLinger(0)
	}
	wsConn.conn.Close()

	if !wsConn.closeFlag {
		close(wsConn.writeChan)
		wsConn.closeFlag = true
	}
}

func (wsConn *WSConn) Destroy() {
	wsConn.Lock()
	defer wsConn.Unlock()

	wsConn.doDestroy()
}

func (wsConn *WSConn) Close() {
	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		return
	}

	wsConn.doWrite(nil)
	wsConn.closeFlag = true
}

func (wsConn *WSConn) doWrite(b []byte) {
	if len(wsConn.writeChan) == cap(wsConn.writeChan) {
		log.Error("close conn: channel full", log.String("remote", wsConn.conn.RemoteAddr().String()))
		wsConn.doDestroy()
		return
	}

	wsConn.writeChan <- b
}

func (wsConn *WSConn) LocalAddr() net.Addr {
	return wsConn.conn.LocalAddr()
}

func (wsConn *WSConn) RemoteAddr() net.Addr {
	return wsConn.conn.RemoteAddr()
}

// ReadMsg reads one binary message and checks that its length header covers it exactly.
func (wsConn *WSConn) ReadMsg() ([]byte, error) {
	messageType, b, err := wsConn.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if messageType != websocket.BinaryMessage {
		return nil, errors.New("unexpected websocket message type")
	}
	if _, _, err = packet.ParseFrame(b); err != nil {
		return nil, err
	}

	return b, nil
}

func (wsConn *WSConn) ReleaseReadMsg(byteBuff []byte) {
	wsConn.msgParser.ReleaseBytes(byteBuff)
}

func (wsConn *WSConn) WriteMsg(tag packet.Type, payload []byte) error {
	msg, err := wsConn.msgParser.Encode(tag, payload)
	if err != nil {
		return err
	}

	wsConn.Lock()
	defer wsConn.Unlock()
	if wsConn.closeFlag {
		wsConn.msgParser.ReleaseBytes(msg)
		return errors.New("conn is close")
	}

	wsConn.doWrite(msg)
	return nil
}

func (wsConn *WSConn) SetReadDeadline(d time.Duration) {
	wsConn.conn.SetReadDeadline(time.Now().Add(d))
}
