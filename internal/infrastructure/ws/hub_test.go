package ws

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/core/ports"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	a := hub.subscribe()
	b := hub.subscribe()

	hub.Broadcast(ports.VehicleUpdate{VehicleID: "T1", Lat: 41.9, Lng: 12.5})

	for _, sub := range []*subscriber{a, b} {
		select {
		case u := <-sub.send:
			if u.VehicleID != "T1" || u.Lat != 41.9 || u.Lng != 12.5 {
				t.Errorf("unexpected update: %+v", u)
			}
		default:
			t.Errorf("subscriber did not receive the update")
		}
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())

	hub.Broadcast(ports.VehicleUpdate{VehicleID: "T1"})
	late := hub.subscribe()

	select {
	case u := <-late.send:
		t.Errorf("late subscriber must not receive past events, got: %+v", u)
	default:
	}
}

// A permanently blocked subscriber must not delay delivery to others, nor
// delay the broadcasting caller.
func TestHub_SlowSubscriberIsolation(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	stuck := hub.subscribe() // never drained
	healthy := hub.subscribe()

	done := make(chan struct{})
	go func() {
		// Two broadcasts: the second overflows the stuck subscriber's
		// full queue and must be dropped for it, not queued or blocked.
		hub.Broadcast(ports.VehicleUpdate{VehicleID: "T1"})
		hub.Broadcast(ports.VehicleUpdate{VehicleID: "T2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	if got := len(healthy.send); got != 2 {
		t.Errorf("healthy subscriber expected 2 updates, got %d", got)
	}
	if got := len(stuck.send); got != 1 {
		t.Errorf("stuck subscriber expected 1 buffered update (second dropped), got %d", got)
	}
}

func TestHub_UnsubscribeRemovesAndClosesQueue(t *testing.T) {
	hub := NewHub(4, zerolog.Nop())
	sub := hub.subscribe()

	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.unsubscribe(sub)
	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("expected 0 subscribers, got %d", got)
	}

	if _, open := <-sub.send; open {
		t.Errorf("expected queue closed after unsubscribe")
	}

	// Idempotent: a second unsubscribe must not panic on a closed queue.
	hub.unsubscribe(sub)

	hub.Broadcast(ports.VehicleUpdate{VehicleID: "T1"})
}
