package broker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/core/ports"
)

// Relay subscribes to the shared Redis channel and forwards updates that
// originated on other instances into the local sink (the WebSocket hub).
// Updates accepted locally reach the hub directly and are skipped here.
type Relay struct {
	client  *redis.Client
	sink    ports.UpdateBroadcaster
	channel string
	origin  string
	log     zerolog.Logger
}

func NewRelay(client *redis.Client, sink ports.UpdateBroadcaster, channel, origin string, log zerolog.Logger) *Relay {
	return &Relay{
		client:  client,
		sink:    sink,
		channel: channel,
		origin:  origin,
		log:     log,
	}
}

// Run consumes the channel until ctx is cancelled. Malformed messages are
// logged and skipped.
func (r *Relay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn().Err(err).Str("channel", r.channel).Msg("discarding malformed vehicle update")
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			r.sink.Broadcast(env.Update)
		}
	}
}
