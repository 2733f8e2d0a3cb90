package messaging

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	sendQueue = 32
)

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client is one socket. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendQueue)}
}

// writePump drains send until the hub closes it, then closes the socket.
func (c *client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			zap.L().Debug("ws write failed", zap.Error(err))
			return
		}
	}
}

// Hub fans events out to the sockets watching each conversation.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[*client]struct{}{}}
}

func (h *Hub) register(conversationID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = map[*client]struct{}{}
	}
	h.rooms[conversationID][c] = struct{}{}
}

func (h *Hub) unregister(conversationID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(conversationID, c)
}

// remove closes c's queue once. Callers hold h.mu.
func (h *Hub) remove(conversationID string, c *client) {
	if _, ok := h.rooms[conversationID][c]; !ok {
		return
	}
	delete(h.rooms[conversationID], c)
	close(c.send)
	if len(h.rooms[conversationID]) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Broadcast queues an event for every socket of a conversation. A socket whose
// queue is full is dropped.
func (h *Hub) Broadcast(conversationID, eventType string, data any) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		zap.L().Error("encode ws event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[conversationID] {
		select {
		case c.send <- payload:
		default:
			zap.L().Info("dropping slow ws client", zap.String("conversation_id", conversationID))
			h.remove(conversationID, c)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades to a websocket that receives message_new, message_read and
// presence events for one conversation. Client frames are discarded.
func (h *Handler) Stream(c echo.Context) error {
	conv, me, ok, err := h.participant(c)
	if !ok {
		return err
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := newClient(ws)
	go cl.writePump()
	h.hub.register(conv.ID, cl)
	h.hub.Broadcast(conv.ID, "presence_join", echo.Map{"user_id": me.UserID})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.unregister(conv.ID, cl)
	h.hub.Broadcast(conv.ID, "presence_leave", echo.Map{"user_id": me.UserID})
	return nil
}
