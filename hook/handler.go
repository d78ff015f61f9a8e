// Package hook decodes inbound game packets into typed events and lets subscribers
// observe or veto them before the server's default processing.
package hook

import (
	"errors"
	"runtime"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/host"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/packet"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/world"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	stateUnregistered int32 = iota
	stateActive
	stateDisposed
)

// PlayerLookup resolves a connection slot to its player, nil when nobody is there.
type PlayerLookup interface {
	Get(index int) *player.Player
}

// RawMessage is one inbound payload. Buffer[Offset:Offset+Length] follows the tag byte.
type RawMessage struct {
	Tag    packet.Type
	WhoAmI int
	Buffer []byte
	Offset int
	Length int
}

type Handler struct {
	*Registry

	owner   string
	net     *host.NetGetData
	world   world.Validator
	players PlayerLookup

	cfg    atomic.Pointer[runtimeConfig]
	state  atomic.Int32
	hookID host.HookID

	messages     atomic.Uint64
	handled      atomic.Uint64
	decodeCalls  atomic.Uint64
	decodeErrors atomic.Uint64
}

// New builds a handler and attaches it to net at cfg.HookPriority.
func New(owner string, net *host.NetGetData, validator world.Validator, players PlayerLookup, cfg Config) (*Handler, error) {
	if net == nil || validator == nil || players == nil {
		return nil, errors.New("hook: host, world and players are required")
	}

	rc, err := compileConfig(cfg)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		Registry: NewRegistry(),
		owner:    owner,
		net:      net,
		world:    validator,
		players:  players,
	}
	h.cfg.Store(rc)

	h.hookID = net.Register(owner, h.onGetData, cfg.HookPriority)
	h.state.Store(stateActive)

	return h, nil
}

func (h *Handler) Config() Config {
	cfg := h.cfg.Load().Config
	cfg.TraceEvents = append([]string(nil), cfg.TraceEvents...)
	return cfg
}

// SetConfig swaps the configuration for subsequent messages. The hook priority is fixed
// at construction.
func (h *Handler) SetConfig(cfg Config) error {
	rc, err := compileConfig(cfg)
	if err != nil {
		return err
	}

	h.cfg.Store(rc)
	return nil
}

func (h *Handler) SetTraceEvents(names []string) error {
	cfg := h.Config()
	cfg.TraceEvents = names
	return h.SetConfig(cfg)
}

func (h *Handler) onGetData(args *host.GetDataEventArgs) {
	if args.Handled {
		return
	}

	if h.Dispatch(RawMessage{
		Tag:    args.MsgID,
		WhoAmI: args.WhoAmI,
		Buffer: args.Buffer,
		Offset: args.Index,
		Length: args.Length,
	}) {
		args.Handled = true
	}
}

// Dispatch decodes msg when some subscriber can observe it and reports whether default
// processing must be skipped. Disposed handlers, unknown players and tags without a
// subscriber return false without reading the payload.
func (h *Handler) Dispatch(msg RawMessage) (handled bool) {
	if h.state.Load() != stateActive {
		return false
	}
	h.messages.Add(1)

	rt, ok := routes[msg.Tag]
	if !ok {
		return false
	}

	cfg := h.cfg.Load()
	if !rt.wanted(h, cfg) {
		return false
	}

	p := h.players.Get(msg.WhoAmI)
	if p == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			log.Dump(string(buf[:l]), log.String("packet", msg.Tag.String()), log.Any("error", r))
			handled = false
		}
	}()

	h.decodeCalls.Add(1)
	handled, err := rt.decode(h, &decodeContext{
		cfg:    cfg,
		player: p,
		whoAmI: msg.WhoAmI,
		r:      packet.NewReader(msg.Buffer, msg.Offset, msg.Length),
	})
	if err != nil {
		h.decodeErrors.Add(1)
		return false
	}

	if handled {
		h.handled.Add(1)
	}

	return handled
}

func (h *Handler) raise(dc *decodeContext, ev event.Event) bool {
	handled := h.Publish(ev)
	if dc.cfg.traced(ev.Type()) {
		h.trace(ev)
	}

	return handled
}

// trace writes ev to the log. Serialization failures are ignored.
func (h *Handler) trace(ev event.Event) {
	defer func() {
		recover()
	}()

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	log.Info("trace event", log.String("event", ev.Type().String()), log.String("data", string(data)))
}

// Dispose detaches the handler from the host once. Later calls do nothing.
func (h *Handler) Dispose() {
	if !h.state.CompareAndSwap(stateActive, stateDisposed) {
		return
	}

	h.net.Deregister(h.hookID)
	h.Registry.Clear()
	log.Info("get data hook handler disposed", log.String("owner", h.owner))
}

func (h *Handler) Close() error {
	h.Dispose()
	return nil
}

func (h *Handler) IsDisposed() bool {
	return h.state.Load() == stateDisposed
}

type Stats struct {
	Messages           uint64 `json:"messages"`
	Handled            uint64 `json:"handled"`
	DecodeCalls        uint64 `json:"decodeCalls"`
	DecodeErrors       uint64 `json:"decodeErrors"`
	SubscriberFailures uint64 `json:"subscriberFailures"`
	Disposed           bool   `json:"disposed"`
}

func (h *Handler) Stats() Stats {
	return Stats{
		Messages:           h.messages.Load(),
		Handled:            h.handled.Load(),
		DecodeCalls:        h.decodeCalls.Load(),
		DecodeErrors:       h.decodeErrors.Load(),
		SubscriberFailures: h.Failures(),
		Disposed:           h.IsDisposed(),
	}
}
