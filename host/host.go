// Package host is the raw message extension point a game server exposes to interceptors.
package host

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/packet"
)

// GetDataEventArgs describes one inbound frame. Buffer[Index:Index+Length] is the payload
// after the tag byte. Handlers set Handled to suppress default processing.
type GetDataEventArgs struct {
	MsgID   packet.Type
	WhoAmI  int
	Buffer  []byte
	Index   int
	Length  int
	Handled bool
}

type GetDataHandler func(args *GetDataEventArgs)

type HookID uint64

type registration struct {
	id       HookID
	owner    string
	priority int
	handler  GetDataHandler
}

// NetGetData runs registered handlers in descending priority, registration order breaking ties.
type NetGetData struct {
	locker  sync.Mutex
	nextID  HookID
	handler atomic.Pointer[[]registration]
}

func (h *NetGetData) Register(owner string, fn GetDataHandler, priority int) HookID {
	h.locker.Lock()
	defer h.locker.Unlock()

	h.nextID++
	var regs []registration
	if cur := h.handler.Load(); cur != nil {
		regs = make([]registration, 0, len(*cur)+1)
		regs = append(regs, *cur...)
	}
	regs = append(regs, registration{id: h.nextID, owner: owner, priority: priority, handler: fn})
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].priority > regs[j].priority })
	h.handler.Store(&regs)

	log.Debug("register get data hook", log.String("owner", owner), log.Int("priority", priority))
	return h.nextID
}

func (h *NetGetData) Deregister(id HookID) bool {
	h.locker.Lock()
	defer h.locker.Unlock()

	cur := h.handler.Load()
	if cur == nil {
		return false
	}

	regs := make([]registration, 0, len(*cur))
	found := false
	for _, reg := range *cur {
		if reg.id == id {
			found = true
			log.Debug("deregister get data hook", log.String("owner", reg.owner))
			continue
		}
		regs = append(regs, reg)
	}
	if found {
		h.handler.Store(&regs)
	}

	return found
}

func (h *NetGetData) Count() int {
	cur := h.handler.Load()
	if cur == nil {
		return 0
	}

	return len(*cur)
}

// Invoke runs every handler and returns args.Handled. A panicking handler is logged and skipped.
func (h *NetGetData) Invoke(args *GetDataEventArgs) bool {
	cur := h.handler.Load()
	if cur == nil {
		return args.Handled
	}

	for _, reg := range *cur {
		h.safeCall(reg, args)
	}

	return args.Handled
}

func (h *NetGetData) safeCall(reg registration, args *GetDataEventArgs) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			log.Dump(string(buf[:l]), log.String("owner", reg.owner), log.Any("error", r))
		}
	}()

	reg.handler(args)
}
