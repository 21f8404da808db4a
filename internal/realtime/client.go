package realtime

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/Vampire-Chan/VideoVerse/internal/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var clientSeq atomic.Uint64

// Client is one websocket connection. rooms is owned by the hub goroutine.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	userID *uuid.UUID
	rooms  map[string]struct{}
}

// NewClient wraps conn. userID is the authenticated identity, nil for guests.
func NewClient(hub *Hub, conn *websocket.Conn, userID *uuid.UUID) *Client {
	return &Client{
		id:     clientSeq.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		userID: userID,
		rooms:  make(map[string]struct{}),
	}
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Start registers the client and runs its pumps. It returns immediately.
func (c *Client) Start() {
	if !c.hub.Register(c) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint64("client", c.id).Msg("websocket read error")
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case EventJoinRoom, EventLeaveRoom:
		var key string
		if err := json.Unmarshal(msg.Data, &key); err != nil {
			c.reply(EventError, "room key must be a string")
			return
		}
		videoID, err := uuid.Parse(key)
		if err != nil {
			c.reply(EventError, "invalid video room")
			return
		}
		if msg.Event == EventJoinRoom {
			c.hub.Join(c, VideoRoom(videoID))
		} else {
			c.hub.Leave(c, VideoRoom(videoID))
		}

	case EventJoin:
		var key string
		if err := json.Unmarshal(msg.Data, &key); err != nil {
			c.reply(EventError, "room key must be a string")
			return
		}
		room, ok := c.personalRoom(key)
		if !ok {
			c.reply(EventError, "cannot join another user's room")
			return
		}
		c.hub.Join(c, room)

	case EventPing:
		c.reply(EventPong, nil)

	default:
		c.reply(EventError, "unknown event")
	}
}

// personalRoom resolves the room for a "join" request. Only the
// authenticated owner of the key may join it.
func (c *Client) personalRoom(key string) (string, bool) {
	if c.userID == nil {
		return "", false
	}
	id, err := uuid.Parse(key)
	if err != nil || id != *c.userID {
		return "", false
	}
	return UserRoom(id), true
}

// reply goes through the hub, which owns closing c.send.
func (c *Client) reply(event string, data any) {
	c.hub.sendTo(c, Message{Event: event, Data: data})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug().Err(err).Uint64("client", c.id).Msg("websocket write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
