// Package eventbus is an in-process type-keyed publish/subscribe bus. A Bus
// is caller-constructed and passed by dependency injection; there is no
// process-wide instance.
package eventbus

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tide-trading/internal/logger"
)

// handlerEntry wraps one subscribed handler. Its pointer is the handler's
// identity: func values have no reliable identity of their own in Go (two
// closures built from the same literal share a code pointer), so dedup and
// removal must key on something the bus allocates per subscription.
type handlerEntry struct {
	fn func(message any)
}

// handlerList owns the subscribers for one message type. Mutation is
// serialized per list; publish-time iteration works off a snapshot so a slow
// or reentrant handler never blocks subscribe/unsubscribe elsewhere.
type handlerList struct {
	mu      sync.Mutex
	entries []*handlerEntry
}

func (l *handlerList) add(entry *handlerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.entries {
		if existing == entry {
			return
		}
	}

	l.entries = append(l.entries, entry)
}

func (l *handlerList) remove(entry *handlerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, existing := range l.entries {
		if existing == entry {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)

			return
		}
	}
}

func (l *handlerList) snapshot() []*handlerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*handlerEntry(nil), l.entries...)
}

// Bus routes published messages to the handlers subscribed for the message
// type. Handlers for one type fire in subscription order against the
// snapshot taken at publish time; no ordering holds across types.
type Bus struct {
	mu    sync.RWMutex
	lists map[reflect.Type]*handlerList
	log   *logger.Logger
}

// NewBus creates an empty bus reporting handler failures to log.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		lists: make(map[reflect.Type]*handlerList),
		log:   log,
	}
}

func (b *Bus) list(typ reflect.Type, create bool) *handlerList {
	b.mu.RLock()
	l, ok := b.lists[typ]
	b.mu.RUnlock()

	if ok || !create {
		return l
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok = b.lists[typ]; !ok {
		l = &handlerList{}
		b.lists[typ] = l
	}

	return l
}

// dispatch invokes one handler, recovering a panic so delivery to the
// remaining handlers in the same publish continues.
func (b *Bus) dispatch(typ reflect.Type, entry *handlerEntry, message any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("message_type", typ.String()),
				zap.Any("panic", r),
			)
		}
	}()

	entry.fn(message)
}

// Subscription identifies one registered handler. It is the only handle
// through which the handler can be removed.
type Subscription struct {
	list  *handlerList
	entry *handlerEntry
}

// Unsubscribe removes the handler. Calling it more than once is a no-op. A
// handler removed during a publish still receives that in-flight publish
// but not the next one.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.list == nil {
		return
	}

	s.list.remove(s.entry)
}

// Subscribe registers handler for messages of type T and returns the
// subscription controlling it. Every call registers independently: two
// distinct closures built from the same func literal are two subscribers
// and both receive each publish.
func Subscribe[T any](b *Bus, handler func(T)) *Subscription {
	entry := &handlerEntry{
		fn: func(message any) {
			handler(message.(T))
		},
	}

	l := b.list(typeOf[T](), true)
	l.add(entry)

	return &Subscription{list: l, entry: entry}
}

// Publish delivers message to every handler subscribed for T at the moment
// of the call. Publishing with no subscribers is a no-op.
func Publish[T any](b *Bus, message T) {
	typ := typeOf[T]()

	l := b.list(typ, false)
	if l == nil {
		return
	}

	for _, entry := range l.snapshot() {
		b.dispatch(typ, entry, message)
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
