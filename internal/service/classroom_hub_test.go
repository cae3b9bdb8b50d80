package service

import (
	"classhub_backend/internal/model"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassroomHub_DeliverLocal(t *testing.T) {
	hub := NewClassroomHub(nil)
	inClass := &ClassroomClient{Send: make(chan []byte, 1), ClassID: 1, User: student}
	elsewhere := &ClassroomClient{Send: make(chan []byte, 1), ClassID: 2, User: otherStudent}
	hub.add(inClass)
	hub.add(elsewhere)

	hub.BroadcastToClass(1, ClassroomMessage{Type: "chat"})
	hub.BroadcastToClass(1, ClassroomMessage{Type: "chat"})
	assert.Len(t, inClass.Send, 1, "a full buffer drops frames")
	assert.Len(t, elsewhere.Send, 0)

	hub.PushToUser(otherStudent.UserID, map[string]string{"type": "notification"})
	require.Len(t, elsewhere.Send, 1)
	assert.JSONEq(t, `{"type":"notification"}`, string(<-elsewhere.Send))

	assert.Equal(t, 1, hub.RoomSize(1))
	assert.True(t, hub.remove(inClass))
	assert.False(t, hub.remove(inClass))
	assert.Equal(t, 0, hub.RoomSize(1))
}

func readClassroom(t *testing.T, conn *websocket.Conn, want string) ClassroomMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg ClassroomMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestClassroomHub_Sockets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewClassroomHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("uid"))
		ServeClassroom(hub, w, r, model.Principal{UserID: uint(id), Role: model.Student}, 7)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ada, _, err := websocket.DefaultDialer.Dial(wsURL+"?uid=10", nil)
	require.NoError(t, err)
	defer ada.Close()
	readClassroom(t, ada, "participant_joined")

	ben, _, err := websocket.DefaultDialer.Dial(wsURL+"?uid=11", nil)
	require.NoError(t, err)
	joined := readClassroom(t, ada, "participant_joined")
	assert.Equal(t, uint(11), joined.From.UserID)
	assert.Eventually(t, func() bool { return hub.RoomSize(7) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, ada.WriteMessage(websocket.TextMessage, []byte(`{"type":"kick_everyone"}`)))
	require.NoError(t, ada.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, ada.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat","data":{"text":"hello"},"from":{"userId":99,"role":"admin"}}`)))

	chat := readClassroom(t, ben, "chat")
	require.NotNil(t, chat.From)
	assert.Equal(t, uint(10), chat.From.UserID, "sender comes from the socket, not the payload")
	assert.Equal(t, model.Student, chat.From.Role)
	assert.JSONEq(t, `{"text":"hello"}`, string(chat.Data))

	hub.PushToUser(11, map[string]interface{}{"type": "notification", "data": map[string]string{"title": "graded"}})
	readClassroom(t, ben, "notification")

	require.NoError(t, ben.Close())
	left := readClassroom(t, ada, "participant_left")
	assert.Equal(t, uint(11), left.From.UserID)
	assert.Eventually(t, func() bool { return hub.RoomSize(7) == 1 }, time.Second, 10*time.Millisecond)
}
