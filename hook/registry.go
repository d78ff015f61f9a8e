package hook

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/log"
)

// Subscriber observes an event and may veto it with SetHandled(true). A returned error or
// a panic is logged and does not stop the remaining subscribers.
type Subscriber func(ev event.Event) error

type Token uint64

var tokenID uint64

func genToken() Token {
	return Token(atomic.AddUint64(&tokenID, 1))
}

type subscription struct {
	token Token
	name  string
	fn    Subscriber
}

type subscriberTable map[event.Type][]subscription

// Registry keeps the subscribers of every event type in registration order. Publishing
// reads an immutable snapshot, writers replace it under the mutex.
type Registry struct {
	locker   sync.Mutex
	table    atomic.Pointer[subscriberTable]
	tokens   map[Token]event.Type
	failures atomic.Uint64
}

func NewRegistry() *Registry {
	r := &Registry{tokens: make(map[Token]event.Type, 64)}
	table := make(subscriberTable)
	r.table.Store(&table)

	return r
}

func (r *Registry) snapshot() subscriberTable {
	return *r.table.Load()
}

func (r *Registry) Subscribe(typ event.Type, fn Subscriber) Token {
	return r.subscribe(typ, fn, funcName(fn))
}

// On subscribes fn to the event type of E.
func On[E event.Event](r *Registry, fn func(ev E) error) Token {
	var zero E
	return r.subscribe(zero.Type(), func(ev event.Event) error {
		return fn(ev.(E))
	}, funcName(fn))
}

func (r *Registry) subscribe(typ event.Type, fn Subscriber, name string) Token {
	if !typ.Valid() || fn == nil {
		return 0
	}

	r.locker.Lock()
	defer r.locker.Unlock()

	token := genToken()
	cur := r.snapshot()
	next := make(subscriberTable, len(cur)+1)
	for t, subs := range cur {
		next[t] = subs
	}

	subs := make([]subscription, 0, len(cur[typ])+1)
	subs = append(subs, cur[typ]...)
	next[typ] = append(subs, subscription{token: token, name: name, fn: fn})

	r.tokens[token] = typ
	r.table.Store(&next)

	return token
}

// Unsubscribe removes the subscription behind token. Unknown tokens are ignored.
func (r *Registry) Unsubscribe(token Token) bool {
	r.locker.Lock()
	defer r.locker.Unlock()

	typ, ok := r.tokens[token]
	if !ok {
		return false
	}
	delete(r.tokens, token)

	cur := r.snapshot()
	next := make(subscriberTable, len(cur))
	for t, subs := range cur {
		next[t] = subs
	}

	subs := make([]subscription, 0, len(cur[typ]))
	for _, sub := range cur[typ] {
		if sub.token != token {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		delete(next, typ)
	} else {
		next[typ] = subs
	}
	r.table.Store(&next)

	return true
}

// Clear drops every subscription.
func (r *Registry) Clear() {
	r.locker.Lock()
	defer r.locker.Unlock()

	clear(r.tokens)
	table := make(subscriberTable)
	r.table.Store(&table)
}

func (r *Registry) Has(typ event.Type) bool {
	return len(r.snapshot()[typ]) > 0
}

func (r *Registry) Count(typ event.Type) int {
	return len(r.snapshot()[typ])
}

// Counts returns the number of subscribers per event name, skipping empty types.
func (r *Registry) Counts() map[string]int {
	table := r.snapshot()
	counts := make(map[string]int, len(table))
	for typ, subs := range table {
		counts[typ.String()] = len(subs)
	}

	return counts
}

func (r *Registry) Failures() uint64 {
	return r.failures.Load()
}

// Publish hands ev to every subscriber of its type and returns whether it ended up handled.
func (r *Registry) Publish(ev event.Event) bool {
	for _, sub := range r.snapshot()[ev.Type()] {
		if err := r.call(sub, ev); err != nil {
			r.failures.Add(1)
			log.Error("subscriber failed",
				log.String("event", ev.Type().String()),
				log.Uint64("token", uint64(sub.token)),
				log.String("subscriber", sub.name),
				log.ErrorAttr("err", err))
		}
	}

	return ev.IsHandled()
}

func (r *Registry) call(sub subscription, ev event.Event) (err error) {
	defer func() {
		if re := recover(); re != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			log.Dump(string(buf[:l]), log.String("event", ev.Type().String()), log.String("subscriber", sub.name))
			err = fmt.Errorf("subscriber panic: %v", re)
		}
	}()

	return sub.fn(ev)
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}

	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}

	return ""
}
