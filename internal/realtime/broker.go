package realtime

import (
	"context"
	"encoding/json"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const brokerChannel = "realtime:events"

type wireEvent struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisBroker relays events through Redis pub/sub so every instance's hub
// sees them. Local delivery happens when the event comes back on the
// subscription, so each instance delivers exactly once.
type RedisBroker struct {
	rdb   *redis.Client
	hub   *Hub
	queue chan wireEvent
}

func NewRedisBroker(rdb *redis.Client, hub *Hub) *RedisBroker {
	return &RedisBroker{
		rdb:   rdb,
		hub:   hub,
		queue: make(chan wireEvent, 256),
	}
}

func (b *RedisBroker) Publish(room string, msg Message) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		logging.Error().Err(err).Str("event", msg.Event).Msg("failed to encode realtime event")
		return
	}
	select {
	case b.queue <- wireEvent{Room: room, Event: msg.Event, Data: data}:
	default:
		metrics.RealtimeEventsDropped.WithLabelValues("broker").Inc()
		logging.Warn().Str("room", room).Str("event", msg.Event).Msg("broker queue full, event dropped")
	}
}

// Run subscribes and forwards in both directions until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, brokerChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	incoming := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-b.queue:
			payload, _ := json.Marshal(ev)
			if err := b.rdb.Publish(ctx, brokerChannel, payload).Err(); err != nil {
				logging.Warn().Err(err).Str("room", ev.Room).Msg("redis publish failed, delivering locally")
				b.hub.Publish(ev.Room, Message{Event: ev.Event, Data: ev.Data})
			}

		case m, ok := <-incoming:
			if !ok {
				return nil
			}
			var ev wireEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				logging.Warn().Err(err).Msg("discarding malformed realtime event")
				continue
			}
			b.hub.Publish(ev.Room, Message{Event: ev.Event, Data: ev.Data})
		}
	}
}
