package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Postgres) Participant(ctx context.Context, userID string) (Participant, error) {
	p := Participant{ID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT first_name || ' ' || last_name, role FROM users WHERE id = $1 AND is_active = TRUE`,
		userID,
	).Scan(&p.Name, &p.Role)
	return p, notFound(err)
}

func (s *Postgres) Conversation(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, client_id::text, mechanic_id::text, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.ClientID, &c.MechanicID, &c.CreatedAt)
	return c, notFound(err)
}

func (s *Postgres) FindOrCreate(ctx context.Context, clientID, mechanicID string) (Conversation, error) {
	c := Conversation{ClientID: clientID, MechanicID: mechanicID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO conversations (client_id, mechanic_id) VALUES ($1, $2)
		 ON CONFLICT (client_id, mechanic_id) DO UPDATE SET client_id = EXCLUDED.client_id
		 RETURNING id::text, created_at`,
		clientID, mechanicID,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("find or create conversation: %w", err)
	}
	return c, nil
}

func (s *Postgres) Summaries(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id::text, c.client_id::text, c.mechanic_id::text, c.created_at,
		       o.id::text, o.first_name || ' ' || o.last_name, o.role,
		       lm.id::text, lm.sender_id::text, lm.content, lm.read_at, lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		         WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL)
		FROM conversations c
		JOIN users o ON o.id = CASE WHEN c.client_id = $1 THEN c.mechanic_id ELSE c.client_id END
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, read_at, created_at FROM messages
			WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
		) lm ON TRUE
		WHERE c.client_id = $1 OR c.mechanic_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var (
			sum                   Summary
			lastID, sender, body  *string
			lastRead, lastCreated *time.Time
		)
		err := row.Scan(&sum.ID, &sum.ClientID, &sum.MechanicID, &sum.CreatedAt,
			&sum.With.ID, &sum.With.Name, &sum.With.Role,
			&lastID, &sender, &body, &lastRead, &lastCreated,
			&sum.Unread)
		if err != nil {
			return Summary{}, err
		}
		if lastID != nil {
			sum.LastMessage = &Message{
				ID: *lastID, ConversationID: sum.ID, SenderID: *sender, Content: *body,
				ReadAt: lastRead, CreatedAt: *lastCreated,
			}
		}
		return sum, nil
	})
}

func (s *Postgres) AddMessage(ctx context.Context, conversationID, senderID, content string) (Message, error) {
	m := Message{ConversationID: conversationID, SenderID: senderID, Content: content}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content) VALUES ($1, $2, $3)
		 RETURNING id::text, created_at`,
		conversationID, senderID, content,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

func (s *Postgres) Messages(ctx context.Context, conversationID string, since time.Time) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, conversation_id::text, sender_id::text, content, read_at, created_at
		 FROM messages WHERE conversation_id = $1 AND created_at > $2 ORDER BY created_at ASC`,
		conversationID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
}

// MarkRead stamps a message received by readerID. Already read messages keep
// their original timestamp.
func (s *Postgres) MarkRead(ctx context.Context, conversationID, messageID, readerID string) (Message, error) {
	var m Message
	err := s.pool.QueryRow(ctx,
		`UPDATE messages SET read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND conversation_id = $2 AND sender_id <> $3
		 RETURNING id::text, conversation_id::text, sender_id::text, content, read_at, created_at`,
		messageID, conversationID, readerID,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.ReadAt, &m.CreatedAt)
	return m, notFound(err)
}
