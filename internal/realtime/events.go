// Package realtime fans events out to websocket clients grouped in rooms.
// A room is keyed by a video id (viewers of that video) or by a user id
// (that user's personal notification feed).
package realtime

import (
	"github.com/google/uuid"
)

const (
	EventViewCountUpdate = "video:viewCountUpdate"
	EventReactionUpdate  = "video:reactionUpdate"
	EventNewComment      = "newComment"
	EventNewNotification = "newNotification"

	// client -> server
	EventJoinRoom  = "joinRoom"
	EventLeaveRoom = "leaveRoom"
	EventJoin      = "join"
	EventPing      = "ping"
	EventPong      = "pong"
	EventError     = "error"
)

// Message is the frame exchanged with clients in both directions.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher delivers a message to every client in a room. Implementations
// must not block the caller.
type Publisher interface {
	Publish(room string, msg Message)
}

func VideoRoom(videoID uuid.UUID) string {
	return videoID.String()
}

func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

type ViewCountPayload struct {
	VideoID uuid.UUID `json:"videoId"`
	Views   int64     `json:"views"`
}

type ReactionPayload struct {
	VideoID  uuid.UUID `json:"videoId"`
	Likes    int64     `json:"likes"`
	Dislikes int64     `json:"dislikes"`
}

// Nop discards everything; used where no fan-out is wired.
type Nop struct{}

func (Nop) Publish(string, Message) {}
