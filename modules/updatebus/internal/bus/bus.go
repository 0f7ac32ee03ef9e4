package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

type subscriberHolder struct {
	id     string
	policy DropPolicy
	stats  *SubscriberStats

	// For DropNew policy
	ch chan<- Update

	// For DropOld policy
	holder *latestHolder
}

type bus struct {
	mu             sync.RWMutex
	subscribers    map[string]*subscriberHolder
	totalPublished uint64
	sequence       uint64
	closed         bool
}

// New creates a new update bus instance
func New() Bus {
	return &bus{
		subscribers: make(map[string]*subscriberHolder),
	}
}

// Subscribe registers a channel with DropNew policy
func (b *bus) Subscribe(id string, ch chan<- Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return ErrSubscriberExists
	}

	if ch == nil {
		return ErrNilChannel
	}

	b.subscribers[id] = &subscriberHolder{
		id:     id,
		policy: DropNew,
		stats:  &SubscriberStats{Policy: DropNew},
		ch:     ch,
	}

	return nil
}

// SubscribeLatest registers a subscriber with DropOld policy
func (b *bus) SubscribeLatest(id string) (Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	if _, exists := b.subscribers[id]; exists {
		return nil, ErrSubscriberExists
	}

	holder := &subscriberHolder{
		id:     id,
		policy: DropOld,
		stats:  &SubscriberStats{Policy: DropOld},
		holder: newLatestHolder(),
	}

	b.subscribers[id] = holder
	return holder.holder, nil
}

// Publish stamps the update and distributes it to all subscribers.
// Never blocks.
func (b *bus) Publish(u Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	atomic.AddUint64(&b.totalPublished, 1)
	u.Sequence = atomic.AddUint64(&b.sequence, 1)
	if u.Timestamp == 0 {
		u.Timestamp = time.Now().UnixMilli()
	}

	for _, holder := range b.subscribers {
		switch holder.policy {
		case DropNew:
			select {
			case holder.ch <- u:
				atomic.AddUint64(&holder.stats.Sent, 1)
			default:
				atomic.AddUint64(&holder.stats.Dropped, 1)
			}

		case DropOld:
			if holder.holder.Set(u) {
				atomic.AddUint64(&holder.stats.Dropped, 1)
			}
			atomic.AddUint64(&holder.stats.Sent, 1)
		}
	}
}

// Unsubscribe removes a subscriber
func (b *bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return ErrSubscriberNotFound
	}

	if holder.policy == DropOld && holder.holder != nil {
		holder.holder.Close()
	}

	delete(b.subscribers, id)
	return nil
}

// Stats returns statistics for a subscriber
func (b *bus) Stats(id string) (*SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	holder, exists := b.subscribers[id]
	if !exists {
		return nil, ErrSubscriberNotFound
	}

	return &SubscriberStats{
		Policy:  holder.policy,
		Sent:    atomic.LoadUint64(&holder.stats.Sent),
		Dropped: atomic.LoadUint64(&holder.stats.Dropped),
	}, nil
}

// BusStats returns an aggregate snapshot
func (b *bus) BusStats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := BusStats{
		TotalPublished: atomic.LoadUint64(&b.totalPublished),
		Subscribers:    make(map[string]SubscriberStats, len(b.subscribers)),
	}

	for id, holder := range b.subscribers {
		sub := SubscriberStats{
			Policy:  holder.policy,
			Sent:    atomic.LoadUint64(&holder.stats.Sent),
			Dropped: atomic.LoadUint64(&holder.stats.Dropped),
		}
		stats.TotalSent += sub.Sent
		stats.TotalDropped += sub.Dropped
		stats.Subscribers[id] = sub
	}

	return stats
}

// Close shuts down the bus and all subscribers
func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for _, holder := range b.subscribers {
		if holder.policy == DropOld && holder.holder != nil {
			holder.holder.Close()
		}
	}

	b.subscribers = nil
}

// latestHolder implements Receiver for DropOld policy
type latestHolder struct {
	mu        sync.Mutex
	cond      *sync.Cond
	update    *Update
	delivered uint64 // Sequence of the last update returned by Receive
	closed    bool
}

func newLatestHolder() *latestHolder {
	h := &latestHolder{}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Set replaces the held update. Returns true if an undelivered update was
// overwritten.
func (h *latestHolder) Set(u Update) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	overwrote := h.update != nil && h.update.Sequence > h.delivered
	h.update = &u
	h.cond.Broadcast()
	return overwrote
}

func (h *latestHolder) Receive() (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for !h.closed && (h.update == nil || h.update.Sequence <= h.delivered) {
		h.cond.Wait()
	}

	if h.closed {
		return Update{}, false
	}

	h.delivered = h.update.Sequence
	return *h.update, true
}

func (h *latestHolder) TryReceive() (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.update == nil || h.closed {
		return Update{}, false
	}

	return *h.update, true
}

func (h *latestHolder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.cond.Broadcast()
}
