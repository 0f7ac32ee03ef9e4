package bus

import "errors"

// Internal errors - mapped to public errors in updatebus package
var (
	ErrBusClosed          = errors.New("updatebus: bus is closed")
	ErrSubscriberExists   = errors.New("updatebus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("updatebus: subscriber not found")
	ErrNilChannel         = errors.New("updatebus: nil channel provided")
)

// DropPolicy defines how the bus handles updates when a subscriber cannot keep up
type DropPolicy int

const (
	DropNew DropPolicy = iota
	DropOld
)

func (p DropPolicy) String() string {
	if p == DropOld {
		return "drop_old"
	}
	return "drop_new"
}

// Kind names the part of application state an update describes
type Kind string

const (
	KindRecognition Kind = "recognition"
	KindTranslation Kind = "translation"
	KindCamera      Kind = "camera"
	KindTraining    Kind = "training"
)

// Update is one state-change notification
type Update struct {
	Kind      Kind   `json:"kind" msgpack:"kind"`
	Sequence  uint64 `json:"sequence" msgpack:"sequence"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
	Payload   any    `json:"payload" msgpack:"payload"`
}

// Receiver provides latest-only access for DropOld subscribers
type Receiver interface {
	// Receive blocks until an update newer than the last one returned is
	// available. Returns false once the receiver is closed.
	Receive() (Update, bool)
	// TryReceive returns the latest update without blocking
	TryReceive() (Update, bool)
	Close()
}

// SubscriberStats tracks update distribution metrics
type SubscriberStats struct {
	Policy  DropPolicy
	Sent    uint64
	Dropped uint64
}

// BusStats aggregates distribution metrics across subscribers
type BusStats struct {
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
	Subscribers    map[string]SubscriberStats
}

// Bus distributes updates to multiple subscribers
type Bus interface {
	Subscribe(id string, ch chan<- Update) error
	SubscribeLatest(id string) (Receiver, error)
	Publish(u Update)
	Unsubscribe(id string) error
	Stats(id string) (*SubscriberStats, error)
	BusStats() BusStats
	Close()
}
