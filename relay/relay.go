// Package relay forwards selected events to a message broker. It only observes: it never
// marks an event handled, and publishing runs on its own goroutine.
package relay

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/log"
)

const DefaultQueueSize = 1024

// Source is where the relay subscribes; *hook.Registry and *hook.Handler both qualify.
type Source interface {
	Subscribe(typ event.Type, fn hook.Subscriber) hook.Token
	Unsubscribe(token hook.Token) bool
}

type Config struct {
	Subject   string
	Events    []event.Type
	Encoding  string
	Compress  bool
	QueueSize int
}

type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
}

type Relay struct {
	cfg       Config
	source    Source
	publisher Publisher

	locker  sync.Mutex
	tokens  []hook.Token
	queue   chan *Envelope
	closed  bool
	wg      sync.WaitGroup
	nowFunc func() time.Time

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

func New(source Source, publisher Publisher, cfg Config) (*Relay, error) {
	if source == nil || publisher == nil {
		return nil, errors.New("relay needs a source and a publisher")
	}
	if cfg.Subject == "" {
		return nil, errors.New("relay subject is empty")
	}
	if cfg.Encoding == "" {
		cfg.Encoding = EncodingJSON
	}
	if cfg.Encoding != EncodingJSON && cfg.Encoding != EncodingProto {
		return nil, fmt.Errorf("unknown encoding %q", cfg.Encoding)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if len(cfg.Events) == 0 {
		cfg.Events = event.Types()
	}

	return &Relay{
		cfg:       cfg,
		source:    source,
		publisher: publisher,
		queue:     make(chan *Envelope, cfg.QueueSize),
		nowFunc:   time.Now,
	}, nil
}

// Start subscribes to the configured events and starts the publishing worker.
func (r *Relay) Start() {
	r.locker.Lock()
	defer r.locker.Unlock()
	if r.closed || len(r.tokens) > 0 {
		return
	}

	for _, typ := range r.cfg.Events {
		if token := r.source.Subscribe(typ, r.observe); token != 0 {
			r.tokens = append(r.tokens, token)
		}
	}

	r.wg.Add(1)
	go r.run()
	log.Info("relay started", log.String("subject", r.cfg.Subject), log.Int("events", len(r.tokens)),
		log.String("encoding", r.cfg.Encoding), log.Bool("compress", r.cfg.Compress))
}

// observe snapshots the event as json on the dispatch goroutine so later subscribers
// cannot race with encoding.
func (r *Relay) observe(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("relay snapshot: %w", err)
	}

	env := &Envelope{
		ID:      uuid.NewString(),
		Event:   ev.Type().String(),
		WhoAmI:  -1,
		Handled: ev.IsHandled(),
		At:      r.nowFunc(),
		Payload: payload,
	}
	if p := ev.Sender(); p != nil {
		env.Player = p.Name
		env.WhoAmI = p.Index
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	if r.closed {
		return nil
	}

	select {
	case r.queue <- env:
	default:
		if r.dropped.Add(1)%100 == 1 {
			log.Warning("relay queue full, dropping events", log.Uint64("dropped", r.dropped.Load()))
		}
	}
	return nil
}

func (r *Relay) run() {
	defer r.wg.Done()
	for env := range r.queue {
		r.publish(env)
	}
}

func (r *Relay) publish(env *Envelope) {
	defer func() {
		if re := recover(); re != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			r.failed.Add(1)
			log.Dump(string(buf[:l]), log.String("event", env.Event), log.Any("error", re))
		}
	}()

	data, err := Marshal(env, r.cfg.Encoding)
	if err == nil && r.cfg.Compress {
		data, err = Compress(data)
	}
	if err == nil {
		err = r.publisher.Publish(r.cfg.Subject, env.Player, data)
	}

	if err != nil {
		r.failed.Add(1)
		log.Error("relay publish fail", log.String("event", env.Event), log.String("id", env.ID), log.ErrorAttr("err", err))
		return
	}
	r.published.Add(1)
}

func (r *Relay) Stats() Stats {
	return Stats{
		Published: r.published.Load(),
		Dropped:   r.dropped.Load(),
		Failed:    r.failed.Load(),
	}
}

// Close unsubscribes, drains the queue and closes the publisher.
func (r *Relay) Close() error {
	r.locker.Lock()
	if r.closed {
		r.locker.Unlock()
		return nil
	}
	r.closed = true
	for _, token := range r.tokens {
		r.source.Unsubscribe(token)
	}
	r.tokens = nil
	close(r.queue)
	r.locker.Unlock()

	r.wg.Wait()
	return r.publisher.Close()
}
