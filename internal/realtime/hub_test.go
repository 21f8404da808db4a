package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vampire-Chan/VideoVerse/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, userID *uuid.UUID) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if userID != nil {
			c.Set(response.ContextUserID, userID.String())
		}
	}, NewHandler(hub, []string{"*"}).Serve)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestVideoRoomReceivesPublishedEvents(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)

	videoID := uuid.New()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinRoom, "data": videoID.String()}))
	require.Eventually(t, func() bool { return hub.RoomSize(VideoRoom(videoID)) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(VideoRoom(videoID), Message{Event: EventViewCountUpdate, Data: ViewCountPayload{VideoID: videoID, Views: 7}})

	msg := readMessage(t, conn)
	assert.Equal(t, EventViewCountUpdate, msg["event"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, videoID.String(), data["videoId"])
	assert.EqualValues(t, 7, data["views"])
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)

	videoID := uuid.New()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinRoom, "data": videoID.String()}))
	require.Eventually(t, func() bool { return hub.RoomSize(VideoRoom(videoID)) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventLeaveRoom, "data": videoID.String()}))
	require.Eventually(t, func() bool { return hub.RoomSize(VideoRoom(videoID)) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPersonalRoomRequiresMatchingUser(t *testing.T) {
	me := uuid.New()
	hub, url := startHub(t, &me)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoin, "data": uuid.NewString()}))
	msg := readMessage(t, conn)
	assert.Equal(t, EventError, msg["event"])

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoin, "data": me.String()}))
	require.Eventually(t, func() bool { return hub.RoomSize(UserRoom(me)) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(UserRoom(me), Message{Event: EventNewNotification, Data: map[string]string{"message": "hi"}})
	msg = readMessage(t, conn)
	assert.Equal(t, EventNewNotification, msg["event"])
}

func TestGuestCannotJoinPersonalRoom(t *testing.T) {
	_, url := startHub(t, nil)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoin, "data": uuid.NewString()}))
	msg := readMessage(t, conn)
	assert.Equal(t, EventError, msg["event"])
}

func TestDisconnectLeavesRooms(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)

	videoID := uuid.New()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinRoom, "data": videoID.String()}))
	require.Eventually(t, func() bool { return hub.RoomSize(VideoRoom(videoID)) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.RoomSize(VideoRoom(videoID)) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPingIsAnswered(t *testing.T) {
	_, url := startHub(t, nil)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventPing}))
	assert.Equal(t, EventPong, readMessage(t, conn)["event"])
}
