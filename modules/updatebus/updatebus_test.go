package updatebus_test

import (
	"testing"

	"github.com/jubileetitus07/isl-bridge-dynamic-words/modules/updatebus"
)

func TestDropRate(t *testing.T) {
	tests := []struct {
		name  string
		stats updatebus.BusStats
		want  float64
	}{
		{"empty", updatebus.BusStats{}, 0.0},
		{"no drops", updatebus.BusStats{TotalSent: 10}, 0.0},
		{"half", updatebus.BusStats{TotalSent: 5, TotalDropped: 5}, 0.5},
		{"all dropped", updatebus.BusStats{TotalDropped: 3}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := updatebus.DropRate(tt.stats); got != tt.want {
				t.Errorf("DropRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublicAPI_New(t *testing.T) {
	b := updatebus.New()
	if b == nil {
		t.Fatal("New() should return non-nil Bus")
	}
	defer b.Close()

	var _ updatebus.Receiver
	if _, err := b.SubscribeLatest("x"); err != nil {
		t.Fatalf("SubscribeLatest() failed: %v", err)
	}
	if _, err := b.SubscribeLatest("x"); err != updatebus.ErrSubscriberExists {
		t.Errorf("expected ErrSubscriberExists, got %v", err)
	}
}
