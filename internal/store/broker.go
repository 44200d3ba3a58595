package store

import (
	"sync"

	"github.com/i474232898/forecast-sync/internal/weather"
)

// snapshotFunc loads the ordered records on or after from.
type snapshotFunc func(from int64) ([]weather.WeatherRecord, error)

// broker fans committed snapshots out to subscriptions. Callers must hold
// their store's write lock while calling add and publish so that snapshots
// are delivered in commit order.
type broker struct {
	mu   sync.Mutex
	subs map[uint64]*subscription
	next uint64
}

func newBroker() *broker {
	return &broker{subs: make(map[uint64]*subscription)}
}

func (b *broker) add(from int64, initial []weather.WeatherRecord) *subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	sub := &subscription{
		from: from,
		ch:   make(chan []weather.WeatherRecord, 1),
	}
	sub.cancel = func() { b.remove(id) }
	b.subs[id] = sub

	sub.deliver(initial)
	return sub
}

func (b *broker) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()

	if ok {
		sub.close()
	}
}

// publish delivers a fresh snapshot to every subscription whose range
// contains at least one touched date. Snapshots are loaded once per
// distinct range start.
func (b *broker) publish(touched []int64, load snapshotFunc) error {
	if len(touched) == 0 {
		return nil
	}
	maxTouched := touched[0]
	for _, d := range touched[1:] {
		if d > maxTouched {
			maxTouched = d
		}
	}

	b.mu.Lock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if maxTouched >= sub.from {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	snapshots := make(map[int64][]weather.WeatherRecord)
	var firstErr error
	for _, sub := range targets {
		snap, ok := snapshots[sub.from]
		if !ok {
			var err error
			snap, err = load(sub.from)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			snapshots[sub.from] = snap
		}
		sub.deliver(snap)
	}
	return firstErr
}

func (b *broker) closeAll() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// subscription keeps at most one undelivered snapshot; a newer snapshot
// replaces an unread older one.
type subscription struct {
	from   int64
	ch     chan []weather.WeatherRecord
	cancel func()

	mu     sync.Mutex
	closed bool
}

func (s *subscription) Updates() <-chan []weather.WeatherRecord {
	return s.ch
}

func (s *subscription) Cancel() {
	s.cancel()
}

func (s *subscription) deliver(snap []weather.WeatherRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	out := make([]weather.WeatherRecord, len(snap))
	copy(out, snap)

	select {
	case <-s.ch:
	default:
	}
	s.ch <- out
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
