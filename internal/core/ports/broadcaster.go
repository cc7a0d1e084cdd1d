package ports

// UpdateBroadcaster publishes each accepted report on the "vehicle
// updates" topic. Delivery is best-effort and at-most-once per subscriber;
// there is no replay for late subscribers.
//
// Broadcast must never block the caller: a slow or disconnected subscriber
// must not delay the ingestion response. Implementations drop rather than
// wait, and swallow delivery failures (logged, never surfaced).
type UpdateBroadcaster interface {
	Broadcast(update VehicleUpdate)
}

// MultiBroadcaster fans one update out to several broadcasters, in the
// manner of io.MultiWriter. Each target owns its own delivery semantics.
func MultiBroadcaster(targets ...UpdateBroadcaster) UpdateBroadcaster {
	return multiBroadcaster(targets)
}

type multiBroadcaster []UpdateBroadcaster

func (m multiBroadcaster) Broadcast(update VehicleUpdate) {
	for _, b := range m {
		b.Broadcast(update)
	}
}
