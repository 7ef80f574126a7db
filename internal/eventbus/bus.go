package eventbus

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/specialistvlad/linen/internal/ctxlog"
)

// Option customizes Bus construction.
type Option func(*Bus)

// WithLogger sets the logger used for handler failures and diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = ctxlog.OrDiscard(logger).With("component", "eventbus")
	}
}

// WithErrorHook registers a callback invoked for every isolated handler failure.
// The hook runs without the bus lock held.
func WithErrorHook(hook func(*HandlerError)) Option {
	return func(b *Bus) {
		b.onError = hook
	}
}

type bucketKey struct {
	typ    Type
	filter string
}

type subscription struct {
	info    Subscription
	handler Handler
}

// Bus is a typed, prioritized, filterable publish/subscribe bus. It is safe
// for concurrent use.
type Bus struct {
	mu       sync.Mutex
	global   map[Type][]*subscription
	filtered map[bucketKey][]*subscription
	pending  []Envelope
	seq      uint64

	logger  *slog.Logger
	onError func(*HandlerError)

	published atomic.Uint64
	delivered atomic.Uint64
	failures  atomic.Uint64
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		global:   make(map[Type][]*subscription),
		filtered: make(map[bucketKey][]*subscription),
		logger:   ctxlog.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers h for events of type t. With a non-empty filter the
// handler is also placed in the (t, filter) bucket. A nil handler is logged
// and ignored; the returned zero Subscription matches nothing.
func (b *Bus) Subscribe(t Type, h Handler, filter ...string) Subscription {
	if h == nil {
		b.logger.Warn("Ignored nil handler.", "type", t, "filter", firstFilter(filter))
		return Subscription{}
	}
	sub := &subscription{
		info:    Subscription{ID: uuid.New(), Type: t, Filter: firstFilter(filter)},
		handler: h,
	}

	b.mu.Lock()
	b.global[t] = append(b.global[t], sub)
	if sub.info.Filter != "" {
		key := bucketKey{typ: t, filter: sub.info.Filter}
		b.filtered[key] = append(b.filtered[key], sub)
	}
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed.", "type", t, "filter", sub.info.Filter, "subscription", sub.info.ID)
	return sub.info
}

// Unsubscribe removes a subscription from every bucket it was placed in and
// reports whether it was found. Deliveries already snapshotted still run.
func (b *Bus) Unsubscribe(s Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := false
	if subs, ok := b.global[s.Type]; ok {
		var hit bool
		b.global[s.Type], hit = without(subs, s.ID)
		removed = removed || hit
		if len(b.global[s.Type]) == 0 {
			delete(b.global, s.Type)
		}
	}
	if s.Filter != "" {
		key := bucketKey{typ: s.Type, filter: s.Filter}
		if subs, ok := b.filtered[key]; ok {
			var hit bool
			b.filtered[key], hit = without(subs, s.ID)
			removed = removed || hit
			if len(b.filtered[key]) == 0 {
				delete(b.filtered, key)
			}
		}
	}
	return removed
}

// PublishImmediate delivers ev synchronously on the caller's goroutine and
// returns once every matching handler has run. Handler failures are isolated;
// the returned error joins them and is nil when all handlers succeeded.
func (b *Bus) PublishImmediate(ev Event, filter ...string) error {
	if ev == nil {
		return ErrNilEvent
	}
	b.mu.Lock()
	b.seq++
	env := Envelope{
		Type:     ev.EventType(),
		Priority: Normal,
		Filter:   firstFilter(filter),
		Seq:      b.seq,
		Payload:  ev,
	}
	b.mu.Unlock()
	b.published.Add(1)

	return errors.Join(b.deliver(env)...)
}

// Publish stamps ev with priority p and appends it to the pending queue. No
// handler runs until the next ProcessEvents call.
func (b *Bus) Publish(ev Event, p Priority, filter ...string) error {
	if ev == nil {
		b.logger.Warn("Dropped nil event.")
		return ErrNilEvent
	}
	b.mu.Lock()
	b.seq++
	b.pending = append(b.pending, Envelope{
		Type:     ev.EventType(),
		Priority: p,
		Filter:   firstFilter(filter),
		Seq:      b.seq,
		Payload:  ev,
	})
	b.mu.Unlock()
	b.published.Add(1)
	return nil
}

// ProcessEvents detaches the pending queue and delivers each event exactly
// once, highest priority first and FIFO among equal priorities. It returns
// the number of events delivered.
func (b *Bus) ProcessEvents() int {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	// The queue is in enqueue order, so a stable sort keeps FIFO within a priority.
	slices.SortStableFunc(batch, func(a, c Envelope) int {
		return cmp.Compare(c.Priority, a.Priority)
	})

	for _, env := range batch {
		b.deliver(env)
	}
	b.logger.Debug("Processed queued events.", "count", len(batch))
	return len(batch)
}

// Pending returns the number of queued, undelivered events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// HandlerCount returns how many handlers sit in the global bucket of t, or in
// the (t, filter) bucket when a filter is given.
func (b *Bus) HandlerCount(t Type, filter ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f := firstFilter(filter); f != "" {
		return len(b.filtered[bucketKey{typ: t, filter: f}])
	}
	return len(b.global[t])
}

// Stats returns a copy of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Failures:  b.failures.Load(),
	}
}

// deliver runs the global bucket, then the filter bucket, without the lock.
func (b *Bus) deliver(env Envelope) []error {
	b.mu.Lock()
	global := slices.Clone(b.global[env.Type])
	var filtered []*subscription
	if env.Filter != "" {
		filtered = slices.Clone(b.filtered[bucketKey{typ: env.Type, filter: env.Filter}])
	}
	b.mu.Unlock()

	b.delivered.Add(1)
	if len(global) == 0 && len(filtered) == 0 {
		return nil
	}

	var errs []error
	for _, sub := range global {
		if err := b.invoke(sub, env); err != nil {
			errs = append(errs, err)
		}
	}
	if len(filtered) > 0 {
		env.Filtered = true
		for _, sub := range filtered {
			if err := b.invoke(sub, env); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func (b *Bus) invoke(sub *subscription, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = b.fail(&HandlerError{
				Subscription: sub.info,
				Type:         env.Type,
				Seq:          env.Seq,
				Err:          fmt.Errorf("%v", r),
				Panicked:     true,
			})
		}
	}()
	if herr := sub.handler(env); herr != nil {
		return b.fail(&HandlerError{
			Subscription: sub.info,
			Type:         env.Type,
			Seq:          env.Seq,
			Err:          herr,
		})
	}
	return nil
}

func (b *Bus) fail(herr *HandlerError) error {
	b.failures.Add(1)
	b.logger.Error("Event handler failed.",
		"type", herr.Type,
		"seq", herr.Seq,
		"subscription", herr.Subscription.ID,
		"panicked", herr.Panicked,
		"error", herr.Err)
	if b.onError != nil {
		b.runErrorHook(herr)
	}
	return herr
}

// runErrorHook calls the error hook, containing a panic raised by it.
func (b *Bus) runErrorHook(herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Error hook panicked.", "type", herr.Type, "seq", herr.Seq, "panic", r)
		}
	}()
	b.onError(herr)
}

func without(subs []*subscription, id uuid.UUID) ([]*subscription, bool) {
	idx := slices.IndexFunc(subs, func(s *subscription) bool { return s.info.ID == id })
	if idx < 0 {
		return subs, false
	}
	// Copy so snapshots taken by in-flight deliveries stay intact.
	out := make([]*subscription, 0, len(subs)-1)
	out = append(out, subs[:idx]...)
	out = append(out, subs[idx+1:]...)
	return out, true
}

func firstFilter(filter []string) string {
	if len(filter) == 0 {
		return ""
	}
	return filter[0]
}
