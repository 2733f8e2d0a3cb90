package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/session"
)

// Transaction model for responses
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Method      string    `json:"method"`
	Amount      int64     `json:"amount"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ledger records charges in the transactions table. A charge is pending until
// Settle marks the purchase it paid for as stored.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const (
	StatusPending = "pending"
	StatusSuccess = "success"
)

func (l *Ledger) Record(ctx context.Context, userID string, ch Charge, res Result) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO transactions (id, user_id, method, amount, reference, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.TransactionID, userID, res.Method, res.Amount, ch.Reference, ch.Description, StatusPending, res.ChargedAt,
	)
	return err
}

// Pending returns the user's latest unsettled charge of amount by method.
func (l *Ledger) Pending(ctx context.Context, userID, method string, amount int64) (Result, bool, error) {
	var res Result
	err := l.pool.QueryRow(ctx,
		`SELECT id, method, amount, created_at FROM transactions
		 WHERE user_id = $1 AND method = $2 AND amount = $3 AND status = $4
		 ORDER BY created_at DESC LIMIT 1`,
		userID, method, amount, StatusPending,
	).Scan(&res.TransactionID, &res.Method, &res.Amount, &res.ChargedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

func (l *Ledger) Settle(ctx context.Context, transactionID string) error {
	_, err := l.pool.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, StatusSuccess, transactionID)
	return err
}

func (l *Ledger) list(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	sql := `SELECT id, user_id::text, method, amount, reference, description, status, created_at
		FROM transactions`
	args := []any{}
	if userID != "" {
		sql += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	sql += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Transaction])
}

// GetUserTransactions returns the caller's payments, newest first.
func (l *Ledger) GetUserTransactions(c echo.Context) error {
	me, ok := session.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized or invalid user"})
	}
	txs, err := l.list(c.Request().Context(), me.UserID, 200)
	if err != nil {
		zap.L().Error("list transactions", zap.String("user_id", me.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminGetAllTransactions returns the latest payments across users.
func (l *Ledger) AdminGetAllTransactions(c echo.Context) error {
	limit := 100
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	txs, err := l.list(c.Request().Context(), "", limit)
	if err != nil {
		zap.L().Error("list all transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
