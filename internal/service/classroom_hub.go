package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 4096
	classroomChannel = "classroom_channel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message types a participant may send. Anything else is dropped.
var relayedTypes = map[string]bool{
	"chat":       true,
	"poll":       true,
	"poll_vote":  true,
	"hand_raise": true,
	"hand_lower": true,
	"reaction":   true,
}

type ClassroomMessage struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	From   *Sender         `json:"from,omitempty"`
	SentAt time.Time       `json:"sentAt"`
}

type Sender struct {
	UserID uint           `json:"userId"`
	Role   model.UserRole `json:"role"`
}

type ClassroomClient struct {
	ID      string
	Hub     *ClassroomHub
	Conn    *websocket.Conn
	Send    chan []byte
	ClassID uint
	User    model.Principal
	Limiter *rate.Limiter
}

func (c *ClassroomClient) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("classroom socket closed unexpectedly", zap.Error(err), zap.Uint("userId", c.User.UserID))
			}
			return
		}

		// 10 messages per second, bursts of 20
		if !c.Limiter.Allow() {
			continue
		}

		var msg ClassroomMessage
		if err := json.Unmarshal(raw, &msg); err != nil || !relayedTypes[msg.Type] {
			continue
		}
		msg.From = &Sender{UserID: c.User.UserID, Role: c.User.Role}
		msg.SentAt = c.Hub.now()
		c.Hub.BroadcastToClass(c.ClassID, msg)
	}
}

func (c *ClassroomClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// envelope travels over redis so every instance can deliver to its own sockets.
// ClassID zero means the payload targets Users wherever they are connected.
type envelope struct {
	ClassID uint            `json:"classId,omitempty"`
	Users   []uint          `json:"users,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// ClassroomHub keeps one room of sockets per live class. Without redis it only
// delivers to sockets on this instance.
type ClassroomHub struct {
	Redis *redis.Client

	mu         sync.RWMutex
	rooms      map[uint]map[*ClassroomClient]struct{}
	byUser     map[uint]map[*ClassroomClient]struct{}
	register   chan *ClassroomClient
	unregister chan *ClassroomClient
	now        func() time.Time
}

func NewClassroomHub(rdb *redis.Client) *ClassroomHub {
	return &ClassroomHub{
		Redis:      rdb,
		rooms:      make(map[uint]map[*ClassroomClient]struct{}),
		byUser:     make(map[uint]map[*ClassroomClient]struct{}),
		register:   make(chan *ClassroomClient),
		unregister: make(chan *ClassroomClient),
		now:        time.Now,
	}
}

func (h *ClassroomHub) Run(ctx context.Context) {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, classroomChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Log.Error("classroom pubsub unmarshal failed", zap.Error(err))
					continue
				}
				h.deliverLocal(env)
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			h.add(client)
			monitoring.ClassroomConnections.Inc()
			h.BroadcastToClass(client.ClassID, h.presence("participant_joined", client))

		case client := <-h.unregister:
			if h.remove(client) {
				monitoring.ClassroomConnections.Dec()
				h.BroadcastToClass(client.ClassID, h.presence("participant_left", client))
			}

		case <-ctx.Done():
			h.Stop()
			return
		}
	}
}

func (h *ClassroomHub) presence(kind string, c *ClassroomClient) ClassroomMessage {
	data, _ := json.Marshal(map[string]interface{}{"clientId": c.ID})
	return ClassroomMessage{
		Type:   kind,
		Data:   data,
		From:   &Sender{UserID: c.User.UserID, Role: c.User.Role},
		SentAt: h.now(),
	}
}

func (h *ClassroomHub) add(c *ClassroomClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.ClassID] == nil {
		h.rooms[c.ClassID] = make(map[*ClassroomClient]struct{})
	}
	h.rooms[c.ClassID][c] = struct{}{}
	if h.byUser[c.User.UserID] == nil {
		h.byUser[c.User.UserID] = make(map[*ClassroomClient]struct{})
	}
	h.byUser[c.User.UserID][c] = struct{}{}
}

func (h *ClassroomHub) remove(c *ClassroomClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.ClassID]
	if !ok {
		return false
	}
	if _, ok := room[c]; !ok {
		return false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.ClassID)
	}
	if sockets := h.byUser[c.User.UserID]; sockets != nil {
		delete(sockets, c)
		if len(sockets) == 0 {
			delete(h.byUser, c.User.UserID)
		}
	}
	close(c.Send)
	return true
}

// RoomSize reports how many sockets this instance holds for a class.
func (h *ClassroomHub) RoomSize(classID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[classID])
}

func (h *ClassroomHub) BroadcastToClass(classID uint, msg ClassroomMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.publish(envelope{ClassID: classID, Payload: payload})
}

// PushToUser sends a payload to every classroom socket the user has open.
func (h *ClassroomHub) PushToUser(userID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Warn("classroom push marshal failed", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	h.publish(envelope{Users: []uint{userID}, Payload: data})
}

func (h *ClassroomHub) publish(env envelope) {
	if h.Redis == nil {
		h.deliverLocal(env)
		return
	}
	data, _ := json.Marshal(env)
	if err := h.Redis.Publish(context.Background(), classroomChannel, data).Err(); err != nil {
		logger.Log.Warn("classroom publish failed, delivering locally", zap.Error(err))
		h.deliverLocal(env)
	}
}

func (h *ClassroomHub) deliverLocal(env envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	send := func(c *ClassroomClient) {
		select {
		case c.Send <- env.Payload:
		default:
			// slow consumer, drop the frame
		}
	}
	if env.ClassID != 0 {
		for c := range h.rooms[env.ClassID] {
			send(c)
		}
		return
	}
	for _, id := range env.Users {
		for c := range h.byUser[id] {
			send(c)
		}
	}
}

// Stop closes every socket held by this instance.
func (h *ClassroomHub) Stop() {
	h.mu.Lock()
	closed := 0
	for classID, room := range h.rooms {
		for c := range room {
			close(c.Send)
			closed++
		}
		delete(h.rooms, classID)
	}
	h.byUser = make(map[uint]map[*ClassroomClient]struct{})
	h.mu.Unlock()

	monitoring.ClassroomConnections.Set(0)
	logger.Log.Info("classroom hub stopped", zap.Int("closedConnections", closed))
}

// ServeClassroom upgrades the request and joins the socket to the class room.
// Callers must have authorized the principal for the class already.
func ServeClassroom(hub *ClassroomHub, w http.ResponseWriter, r *http.Request, p model.Principal, classID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("classroom upgrade failed", zap.Error(err), zap.Uint("userId", p.UserID))
		return
	}
	client := &ClassroomClient{
		ID:      uuid.NewString(),
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ClassID: classID,
		User:    p,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
