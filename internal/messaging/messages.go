package messaging

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

// Notifier queues the new message alert for the receiver.
type Notifier interface {
	NewMessage(receiverID, conversationID, senderName string) error
}

type Handler struct {
	store    Store
	hub      *Hub
	notifier Notifier
}

func NewHandler(store Store, hub *Hub, notifier Notifier) *Handler {
	return &Handler{store: store, hub: hub, notifier: notifier}
}

// Register mounts the messaging routes on an authenticated group.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/messages", h.SendMessage)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages/:message_id/read", h.MarkMessageRead)
	g.GET("/conversations/:id/ws", h.Stream)
}

// participant loads the :id conversation for its client or mechanic. When ok
// is false the response has been written.
func (h *Handler) participant(c echo.Context) (conv Conversation, me session.Session, ok bool, err error) {
	me, ok = session.CurrentUser(c)
	if !ok {
		return conv, me, false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	conv, err = h.store.Conversation(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return conv, me, false, c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		zap.L().Error("load conversation", zap.String("id", c.Param("id")), zap.Error(err))
		return conv, me, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch conversation"})
	}
	if !conv.Has(me.UserID) {
		return conv, me, false, c.JSON(http.StatusForbidden, echo.Map{"error": ErrNotParticipant.Error()})
	}
	return conv, me, true, nil
}

type sendRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,min=1,max=1000"`
}

// SendMessage writes to the conversation between the caller and receiver_id,
// opening it on first contact. One side must be a client and the other a
// mechanic.
func (h *Handler) SendMessage(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": validation.Fields(err)})
	}

	ctx := c.Request().Context()
	sender, err := h.store.Participant(ctx, me.UserID)
	if err != nil {
		zap.L().Error("load sender", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}
	receiver, err := h.store.Participant(ctx, req.ReceiverID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "receiver not found"})
	}
	if err != nil {
		zap.L().Error("load receiver", zap.String("user_id", req.ReceiverID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	var clientID, mechanicID string
	switch {
	case sender.Role == session.RoleClient && receiver.Role == session.RoleMechanic:
		clientID, mechanicID = sender.ID, receiver.ID
	case sender.Role == session.RoleMechanic && receiver.Role == session.RoleClient:
		clientID, mechanicID = receiver.ID, sender.ID
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "conversations are between a client and a mechanic"})
	}

	conv, err := h.store.FindOrCreate(ctx, clientID, mechanicID)
	if err != nil {
		zap.L().Error("open conversation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}
	msg, err := h.store.AddMessage(ctx, conv.ID, me.UserID, req.Content)
	if err != nil {
		zap.L().Error("store message", zap.String("conversation_id", conv.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	h.hub.Broadcast(conv.ID, "message_new", msg)
	if h.notifier != nil {
		if err := h.notifier.NewMessage(receiver.ID, conv.ID, sender.Name); err != nil {
			zap.L().Warn("message alert not queued", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"conversation_id": conv.ID, "message": msg})
}

func (h *Handler) ListConversations(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sums, err := h.store.Summaries(c.Request().Context(), me.UserID)
	if err != nil {
		zap.L().Error("list conversations", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list conversations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": sums})
}

// ListMessages returns the thread, optionally only messages after ?since=
// (RFC 3339) for incremental fetches.
func (h *Handler) ListMessages(c echo.Context) error {
	conv, _, ok, err := h.participant(c)
	if !ok {
		return err
	}
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid since timestamp, use RFC3339"})
		}
	}
	msgs, err := h.store.Messages(c.Request().Context(), conv.ID, since)
	if err != nil {
		zap.L().Error("list messages", zap.String("conversation_id", conv.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list messages"})
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// MarkMessageRead lets the receiver acknowledge a message.
func (h *Handler) MarkMessageRead(c echo.Context) error {
	conv, me, ok, err := h.participant(c)
	if !ok {
		return err
	}
	msg, err := h.store.MarkRead(c.Request().Context(), conv.ID, c.Param("message_id"), me.UserID)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
	}
	if err != nil {
		zap.L().Error("mark read", zap.String("message_id", c.Param("message_id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark read"})
	}

	h.hub.Broadcast(conv.ID, "message_read", echo.Map{
		"message_id": msg.ID,
		"user_id":    me.UserID,
		"read_at":    msg.ReadAt,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
