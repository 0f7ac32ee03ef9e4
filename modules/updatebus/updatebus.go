package updatebus

import "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus/internal/bus"

// Public API - Re-export internal types as stable contract

// DropPolicy defines how the bus handles updates when a subscriber cannot keep up
type DropPolicy = bus.DropPolicy

const (
	// DropNew drops incoming updates if the subscriber's buffer is full
	DropNew = bus.DropNew
	// DropOld always accepts new updates, replacing undelivered ones (latest-only)
	DropOld = bus.DropOld
)

// Kind names the part of application state an update describes
type Kind = bus.Kind

const (
	KindRecognition = bus.KindRecognition
	KindTranslation = bus.KindTranslation
	KindCamera      = bus.KindCamera
	KindTraining    = bus.KindTraining
)

// Update is one state-change notification
type Update = bus.Update

// Receiver provides blocking/non-blocking access for DropOld subscribers
type Receiver = bus.Receiver

// SubscriberStats tracks update distribution metrics
type SubscriberStats = bus.SubscriberStats

// BusStats aggregates distribution metrics across subscribers
type BusStats = bus.BusStats

// Bus distributes updates to multiple subscribers with configurable drop policies
type Bus = bus.Bus

// Public API errors - Re-export internal errors as stable contract
var (
	ErrBusClosed          = bus.ErrBusClosed
	ErrSubscriberExists   = bus.ErrSubscriberExists
	ErrSubscriberNotFound = bus.ErrSubscriberNotFound
	ErrNilChannel         = bus.ErrNilChannel
)

// New creates a new Bus
func New() Bus {
	return bus.New()
}

// DropRate returns the drop rate as a fraction (0.0 to 1.0).
// Returns 0.0 if nothing has been sent or dropped.
func DropRate(stats BusStats) float64 {
	total := stats.TotalSent + stats.TotalDropped
	if total == 0 {
		return 0.0
	}
	return float64(stats.TotalDropped) / float64(total)
}
