// Package events implements the in-process typed publish/subscribe bus.
//
// The bus is best-effort and at-most-once: delivery happens synchronously on
// the publisher's goroutine, there is no queueing and no retry. Subscriber
// lists are snapshotted under a short-held mutex and invoked outside it, so a
// callback may call Subscribe, Unsubscribe or Publish reentrantly without
// deadlocking, and a subscription change made during delivery never affects
// the delivery already in flight.
package events

import (
	"log/slog"
	"reflect"
	"sync"
)

// Recorder receives bus telemetry. Satisfied by observability.Metrics.
type Recorder interface {
	EventPublished(event string)
	SubscriberPanicked(component string)
}

// Subscription identifies one registration on the bus. Function values are
// not comparable in Go, so removal goes through this handle rather than the
// callback itself.
type Subscription struct {
	id  uint64
	typ reflect.Type
}

type subscriber struct {
	id uint64
	fn any // func(T) for the list's event type
}

// Bus routes published events to subscribers registered for the same type.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[reflect.Type][]subscriber

	logger   *slog.Logger
	recorder Recorder
}

// NewBus constructs a Bus. A nil logger falls back to slog.Default; the
// recorder may be nil.
func NewBus(logger *slog.Logger, recorder Recorder) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:     make(map[reflect.Type][]subscriber),
		logger:   logger,
		recorder: recorder,
	}
}

// Subscribe registers fn for events of type T and returns its handle.
// A nil callback is a no-op and returns a nil handle. The same function may
// be subscribed more than once; each registration is delivered separately.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	if b == nil || fn == nil {
		return nil
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[typ] = append(b.subs[typ], subscriber{id: b.nextID, fn: fn})
	return &Subscription{id: b.nextID, typ: typ}
}

// Unsubscribe removes the registration behind sub. Unknown or nil handles
// are ignored. When the last subscriber for a type goes, the type's entry is
// dropped from the registry.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.typ]
	for i := range list {
		if list[i].id == sub.id {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(b.subs, sub.typ)
			} else {
				b.subs[sub.typ] = list
			}
			return
		}
	}
}

// Publish delivers event synchronously to every callback currently
// subscribed for T, in subscription order as of the snapshot instant.
// A nil event is silently ignored. A panicking callback is recovered and
// logged; remaining callbacks in the snapshot still run and the publisher
// never observes the failure.
func Publish[T any](b *Bus, event T) {
	if b == nil || isNil(event) {
		return
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.Lock()
	snapshot := append([]subscriber(nil), b.subs[typ]...)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	if b.recorder != nil {
		b.recorder.EventPublished(typ.Name())
	}
	for _, sub := range snapshot {
		fn, ok := sub.fn.(func(T))
		if !ok {
			continue
		}
		invoke(b, typ, fn, event)
	}
}

// SubscriberCount reports the current number of registrations for T.
func SubscriberCount[T any](b *Bus) int {
	if b == nil {
		return 0
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[typ])
}

func invoke[T any](b *Bus, typ reflect.Type, fn func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event subscriber panicked",
				slog.String("event", typ.String()),
				slog.Any("panic", r))
			if b.recorder != nil {
				b.recorder.SubscriberPanicked("bus")
			}
		}
	}()
	fn(event)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
