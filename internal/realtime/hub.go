package realtime

import (
	"context"
	"sync"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/Vampire-Chan/VideoVerse/internal/metrics"
)

type membership struct {
	client *Client
	room   string
}

type envelope struct {
	room string
	msg  Message
}

type direct struct {
	client *Client
	msg    Message
}

// Hub owns room membership. All maps are only touched by the Run goroutine;
// everything else talks to it through channels.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan envelope
	unicast    chan direct

	done chan struct{}

	// snapshot of room sizes for readers outside the loop
	mu    sync.RWMutex
	sizes map[string]int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan envelope, 256),
		unicast:    make(chan direct, 64),
		done:       make(chan struct{}),
		sizes:      make(map[string]int),
	}
}

// Run processes hub events until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			n := len(h.clients)
			for c := range h.clients {
				h.drop(c)
			}
			logging.Info().Int("clients_closed", n).Msg("realtime hub stopped")
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.RealtimeClients.Set(float64(len(h.clients)))
			logging.Debug().Uint64("client", c.id).Int("total_clients", len(h.clients)).Msg("websocket client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				logging.Debug().Uint64("client", c.id).Int("total_clients", len(h.clients)).Msg("websocket client disconnected")
			}

		case m := <-h.join:
			if _, ok := h.clients[m.client]; !ok {
				continue
			}
			members, ok := h.rooms[m.room]
			if !ok {
				members = make(map[*Client]struct{})
				h.rooms[m.room] = members
			}
			members[m.client] = struct{}{}
			m.client.rooms[m.room] = struct{}{}
			h.setSize(m.room, len(members))

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.room)

		case e := <-h.broadcast:
			h.deliver(e)

		case d := <-h.unicast:
			if _, ok := h.clients[d.client]; ok {
				select {
				case d.client.send <- d.msg:
				default:
				}
			}
		}
	}
}

func (h *Hub) deliver(e envelope) {
	for c := range h.rooms[e.room] {
		select {
		case c.send <- e.msg:
		default:
			// Slow consumer: disconnect rather than stall the room.
			metrics.RealtimeEventsDropped.WithLabelValues("client").Inc()
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *Client) {
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.RealtimeClients.Set(float64(len(h.clients)))
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	h.setSize(room, len(members))
}

func (h *Hub) setSize(room string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.sizes, room)
		return
	}
	h.sizes[room] = n
}

// RoomSize reports how many clients are currently in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sizes[room]
}

// Publish queues msg for room. It never blocks; when the queue is full the
// event is dropped.
func (h *Hub) Publish(room string, msg Message) {
	select {
	case h.broadcast <- envelope{room: room, msg: msg}:
	default:
		metrics.RealtimeEventsDropped.WithLabelValues("hub").Inc()
		logging.Warn().Str("room", room).Str("event", msg.Event).Msg("realtime queue full, event dropped")
	}
}

func (h *Hub) sendTo(c *Client, msg Message) {
	select {
	case h.unicast <- direct{client: c, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(c *Client, room string) {
	select {
	case h.join <- membership{client: c, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(c *Client, room string) {
	select {
	case h.leave <- membership{client: c, room: room}:
	case <-h.done:
	}
}
