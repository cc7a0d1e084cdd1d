// Package broker bridges the "vehicle updates" topic across service
// instances over Redis pub/sub. A Publisher pushes every locally accepted
// report onto the channel; a Relay feeds reports accepted on other
// instances into the local fan-out hub. Messages carry the origin instance
// id so a relay never re-delivers its own instance's updates.
package broker

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/api/metrics"
	"github.com/fleettrack/tracking-system/internal/core/ports"
)

const (
	queueBuffer    = 256
	publishTimeout = 5 * time.Second
)

// envelope is the wire format on the Redis channel.
type envelope struct {
	Origin string              `json:"origin"`
	Update ports.VehicleUpdate `json:"update"`
}

// NewOriginID returns a random identifier distinguishing this process on
// the shared channel.
func NewOriginID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%08X", b)
}

// Publisher implements ports.UpdateBroadcaster over Redis PUBLISH.
//
// Broadcast is decoupled from the network: updates go onto a buffered
// queue drained by a single worker, and are dropped when the queue is
// full. Publish failures are logged and swallowed; they never reach the
// ingest path.
type Publisher struct {
	client  *redis.Client
	channel string
	origin  string
	queue   chan ports.VehicleUpdate
	log     zerolog.Logger
}

func NewPublisher(client *redis.Client, channel, origin string, log zerolog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		origin:  origin,
		queue:   make(chan ports.VehicleUpdate, queueBuffer),
		log:     log,
	}
}

// Start launches the publish worker. It stops when ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	go p.run(ctx)
}

// Broadcast enqueues an update for publication. Non-blocking: when the
// queue is full the update is dropped.
func (p *Publisher) Broadcast(update ports.VehicleUpdate) {
	select {
	case p.queue <- update:
	default:
		metrics.BroadcastDroppedTotal.WithLabelValues("redis").Inc()
		p.log.Warn().Str("vehicle_id", update.VehicleID).Msg("publish queue full, update dropped")
	}
}

func (p *Publisher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-p.queue:
			p.publish(ctx, update)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, update ports.VehicleUpdate) {
	body, err := json.Marshal(envelope{Origin: p.origin, Update: update})
	if err != nil {
		p.log.Error().Err(err).Msg("failed to encode vehicle update")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.client.Publish(pubCtx, p.channel, body).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", p.channel).Msg("failed to publish vehicle update")
		return
	}
	metrics.BroadcastDeliveredTotal.WithLabelValues("redis").Inc()
}
