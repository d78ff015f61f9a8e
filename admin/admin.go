// Package admin serves the interceptor's status, trace set and online players over HTTP.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/util/sysprocess"
)

type Server struct {
	*gin.Engine
	Addr string

	// OnTraceChange runs after a PUT /trace was applied.
	OnTraceChange func(events []string)

	handler *hook.Handler
	players *player.Registry
	started time.Time

	statusLocker sync.RWMutex
	status       map[string]func() any

	srv *http.Server
	ln  net.Listener
}

type traceBody struct {
	Events []string `json:"events"`
}

type playerView struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	IP          string `json:"ip"`
	AccountName string `json:"accountName,omitempty"`
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	Disabled    bool   `json:"disabled"`
}

func New(addr string, handler *hook.Handler, players *player.Registry) *Server {
	engine := gin.New()
	engine.Use(Logger())
	engine.Use(gin.Recovery())

	s := &Server{
		Engine:  engine,
		Addr:    addr,
		handler: handler,
		players: players,
		started: time.Now(),
		status:  make(map[string]func() any),
	}

	engine.GET("/status", s.getStatus)
	engine.GET("/trace", s.getTrace)
	engine.PUT("/trace", s.putTrace)
	engine.GET("/players", s.getPlayers)
	return s
}

// AddStatus adds a named section to GET /status.
func (s *Server) AddStatus(name string, fn func() any) {
	s.statusLocker.Lock()
	defer s.statusLocker.Unlock()
	s.status[name] = fn
}

func (s *Server) getStatus(c *gin.Context) {
	body := gin.H{
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"goroutines":  runtime.NumGoroutine(),
		"hook":        s.handler.Stats(),
		"subscribers": s.handler.Counts(),
	}
	if s.players != nil {
		body["online"] = s.players.Count()
	}

	if usage, err := sysprocess.GetMyUsage(); err == nil {
		body["process"] = usage
	} else {
		log.Warning("read process usage fail", log.ErrorAttr("err", err))
	}

	s.statusLocker.RLock()
	for name, fn := range s.status {
		body[name] = fn()
	}
	s.statusLocker.RUnlock()

	c.JSON(http.StatusOK, body)
}

func (s *Server) getTrace(c *gin.Context) {
	events := s.handler.Config().TraceEvents
	if events == nil {
		events = []string{}
	}
	c.JSON(http.StatusOK, traceBody{Events: events})
}

func (s *Server) putTrace(c *gin.Context) {
	var body traceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.handler.SetTraceEvents(body.Events); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Info("trace events changed", log.Any("events", body.Events))

	if s.OnTraceChange != nil {
		s.OnTraceChange(body.Events)
	}
	s.getTrace(c)
}

func (s *Server) getPlayers(c *gin.Context) {
	views := []playerView{}
	if s.players != nil {
		for _, p := range s.players.All() {
			views = append(views, playerView{
				Index:       p.Index,
				Name:        p.Name,
				IP:          p.IP,
				AccountName: p.AccountName,
				TileX:       p.TileX,
				TileY:       p.TileY,
				Disabled:    p.Disabled,
			})
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Index < views[j].Index })

	c.JSON(http.StatusOK, views)
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	s.ln = ln
	s.srv = &http.Server{Handler: s.Engine, ReadHeaderTimeout: 10 * time.Second}
	log.Info("http start listen", log.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin serve error", log.ErrorAttr("error", err))
		}
	}()
	return nil
}

func (s *Server) ListenAddr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Error("admin shutdown", log.ErrorAttr("error", err))
	}
}
