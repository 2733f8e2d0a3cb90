package alerts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/session"
)

// Store reads users and keeps the notifications table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Lookup(ctx context.Context, userID string) (Recipient, error) {
	var r Recipient
	var first, last string
	err := s.pool.QueryRow(ctx,
		`SELECT email, first_name, last_name FROM users WHERE id = $1`, userID,
	).Scan(&r.Email, &first, &last)
	if err != nil {
		return Recipient{}, err
	}
	r.Name = strings.TrimSpace(first + " " + last)
	return r, nil
}

func (s *Store) Create(ctx context.Context, n Notification) error {
	var ref *string
	if n.Reference != "" {
		ref = &n.Reference
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (user_id, type, title, body, reference)
		 VALUES ($1, $2, $3, $4, $5)`, n.UserID, n.Type, n.Title, n.Body, ref,
	)
	return err
}

func (s *Store) List(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, type, title, body, COALESCE(reference, ''), created_at, read_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var n Notification
		err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt)
		return n, err
	})
}

var errAlreadyRead = errors.New("not found or already read")

func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errAlreadyRead
	}
	return nil
}

// ListNotifications returns current user's notifications, newest first
func (s *Store) ListNotifications(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := s.List(c.Request().Context(), me.UserID)
	if err != nil {
		zap.L().Error("list notifications", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load notifications"})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks specific notification as read
func (s *Store) MarkNotificationRead(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	err := s.MarkRead(c.Request().Context(), me.UserID, c.Param("id"))
	if errors.Is(err, errAlreadyRead) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
