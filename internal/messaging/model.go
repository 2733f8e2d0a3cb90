// Package messaging carries client and mechanic conversations, with a
// websocket push of new messages and read receipts.
package messaging

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNotParticipant = errors.New("not a participant in this conversation")
)

type Conversation struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	MechanicID string    `json:"mechanic_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Has reports whether userID is one side of the conversation.
func (c Conversation) Has(userID string) bool {
	return c.ClientID == userID || c.MechanicID == userID
}

// Other returns the counterpart of userID.
func (c Conversation) Other(userID string) string {
	if c.ClientID == userID {
		return c.MechanicID
	}
	return c.ClientID
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Participant is a user as seen by the messaging pages.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Summary is a conversation line in the inbox.
type Summary struct {
	Conversation
	With        Participant `json:"with"`
	LastMessage *Message    `json:"last_message,omitempty"`
	Unread      int         `json:"unread"`
}

// Store persists conversations. Messages are oldest first; Summaries are
// ordered by latest activity.
type Store interface {
	Participant(ctx context.Context, userID string) (Participant, error)
	Conversation(ctx context.Context, id string) (Conversation, error)
	FindOrCreate(ctx context.Context, clientID, mechanicID string) (Conversation, error)
	Summaries(ctx context.Context, userID string) ([]Summary, error)
	AddMessage(ctx context.Context, conversationID, senderID, content string) (Message, error)
	Messages(ctx context.Context, conversationID string, since time.Time) ([]Message, error)
	MarkRead(ctx context.Context, conversationID, messageID, readerID string) (Message, error)
}
