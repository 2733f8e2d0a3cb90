package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store.
type Memory struct {
	mu            sync.Mutex
	users         map[string]Participant
	conversations []Conversation
	messages      []Message
	now           func() time.Time
}

func NewMemory(users ...Participant) *Memory {
	m := &Memory{users: map[string]Participant{}, now: time.Now}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (s *Memory) Participant(_ context.Context, userID string) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[userID]
	if !ok {
		return Participant{}, ErrNotFound
	}
	return p, nil
}

func (s *Memory) Conversation(_ context.Context, id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return Conversation{}, ErrNotFound
}

func (s *Memory) FindOrCreate(_ context.Context, clientID, mechanicID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ClientID == clientID && c.MechanicID == mechanicID {
			return c, nil
		}
	}
	c := Conversation{ID: uuid.NewString(), ClientID: clientID, MechanicID: mechanicID, CreatedAt: s.now()}
	s.conversations = append(s.conversations, c)
	return c, nil
}

func (s *Memory) Summaries(_ context.Context, userID string) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Summary{}
	for _, c := range s.conversations {
		if !c.Has(userID) {
			continue
		}
		sum := Summary{Conversation: c, With: s.users[c.Other(userID)]}
		for i := range s.messages {
			m := s.messages[i]
			if m.ConversationID != c.ID {
				continue
			}
			sum.LastMessage = &m
			if m.SenderID != userID && m.ReadAt == nil {
				sum.Unread++
			}
		}
		out = append(out, sum)
	}
	activity := func(s Summary) time.Time {
		if s.LastMessage != nil {
			return s.LastMessage.CreatedAt
		}
		return s.CreatedAt
	}
	sort.SliceStable(out, func(i, j int) bool { return activity(out[i]).After(activity(out[j])) })
	return out, nil
}

func (s *Memory) AddMessage(_ context.Context, conversationID, senderID, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      s.now(),
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *Memory) Messages(_ context.Context, conversationID string, since time.Time) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Message{}
	for _, m := range s.messages {
		if m.ConversationID == conversationID && m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Memory) MarkRead(_ context.Context, conversationID, messageID, readerID string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID != messageID || m.ConversationID != conversationID || m.SenderID == readerID {
			continue
		}
		if m.ReadAt == nil {
			now := s.now()
			m.ReadAt = &now
		}
		return *m, nil
	}
	return Message{}, ErrNotFound
}
