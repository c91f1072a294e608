package broadcast

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/housecup/backend/internal/metrics"
)

const (
	QueueSize       = 1000
	SubscriberQueue = 64
)

type SubscriberID int

type subscription struct {
	ch    chan Event
	types map[EventType]struct{}
}

func (s *subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans committed-write events out to subscribers. Publish never blocks:
// a full queue or a slow subscriber loses events, and clients recover by
// re-reading state. A single dispatcher delivers events, so every subscriber
// sees them in publish order.
type Bus struct {
	origin  string
	metrics *metrics.Metrics
	logger  *logrus.Entry

	mu      sync.RWMutex
	subs    map[SubscriberID]*subscription
	lastID  SubscriberID
	stopped bool

	queue    chan Event
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBus starts the dispatcher. origin identifies this instance on events it
// publishes.
func NewBus(origin string, m *metrics.Metrics, logger *logrus.Logger) *Bus {
	if m == nil {
		m = metrics.New(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	b := &Bus{
		origin:  origin,
		metrics: m,
		logger:  logger.WithField("component", "broadcast"),
		subs:    make(map[SubscriberID]*subscription),
		queue:   make(chan Event, QueueSize),
		stopCh:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

func (b *Bus) Origin() string {
	return b.origin
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopCh:
			return
		case evt := <-b.queue:
			b.deliver(evt)
		}
	}
}

// Publish enqueues evt. Events without an origin are stamped with this bus's.
func (b *Bus) Publish(evt Event) {
	if evt.Origin == "" {
		evt.Origin = b.origin
	}

	select {
	case <-b.stopCh:
		b.metrics.EventsDropped.WithLabelValues(string(evt.Type), "stopped").Inc()
		return
	default:
	}

	select {
	case b.queue <- evt:
		b.metrics.EventsPublished.WithLabelValues(string(evt.Type)).Inc()
	default:
		b.metrics.EventsDropped.WithLabelValues(string(evt.Type), "queue").Inc()
		b.logger.WithField("type", evt.Type).Warn("event queue full, dropping event")
	}
}

func (b *Bus) deliver(evt Event) {
	// Holding the read lock keeps Unsubscribe from closing a channel mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if !sub.wants(evt.Type) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.metrics.EventsDropped.WithLabelValues(string(evt.Type), "subscriber").Inc()
			b.logger.WithFields(logrus.Fields{
				"type":       evt.Type,
				"subscriber": id,
			}).Debug("subscriber too slow, dropping event")
		}
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. The channel is closed on Unsubscribe or
// Stop; after Stop it is returned already closed with a zero id.
func (b *Bus) Subscribe(types ...EventType) (SubscriberID, <-chan Event) {
	sub := &subscription{
		ch:    make(chan Event, SubscriberQueue),
		types: make(map[EventType]struct{}, len(types)),
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		close(sub.ch)
		return 0, sub.ch
	}
	b.lastID++
	b.subs[b.lastID] = sub
	b.metrics.Subscribers.Inc()
	return b.lastID, sub.ch
}

// SubscribeFunc runs fn for each matching event on its own goroutine
func (b *Bus) SubscribeFunc(fn func(Event), types ...EventType) SubscriberID {
	id, ch := b.Subscribe(types...)
	go func() {
		for evt := range ch {
			fn(evt)
		}
	}()
	return id
}

func (b *Bus) Unsubscribe(id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
		b.metrics.Subscribers.Dec()
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stop halts the dispatcher and closes every subscriber channel. Queued
// events are discarded.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.wg.Wait()

		b.mu.Lock()
		b.stopped = true
		for id, sub := range b.subs {
			close(sub.ch)
			delete(b.subs, id)
		}
		b.metrics.Subscribers.Set(0)
		b.mu.Unlock()
	})
}
