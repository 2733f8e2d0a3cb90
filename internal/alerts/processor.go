package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sender delivers an envelope to its addressee.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
}

// Recipients resolves a user id to an address and display name.
type Recipients interface {
	Lookup(ctx context.Context, userID string) (Recipient, error)
}

// Inbox stores in-app notifications.
type Inbox interface {
	Create(ctx context.Context, n Notification) error
}

// Worker consumes notification tasks.
type Worker struct {
	sender     Sender
	recipients Recipients
	inbox      Inbox
	logger     *zap.Logger
}

func NewWorker(sender Sender, recipients Recipients, inbox Inbox, logger *zap.Logger) *Worker {
	return &Worker{sender: sender, recipients: recipients, inbox: inbox, logger: logger}
}

// Mux routes every task type to the worker.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, t := range []string{
		TaskWelcome,
		TaskPasswordReset,
		TaskReservationCreated,
		TaskReservationConfirmed,
		TaskOrderPlaced,
		TaskOrderShipped,
		TaskRequestCancelled,
		TaskMessageNew,
	} {
		mux.HandleFunc(t, w.ProcessTask)
	}
	return mux
}

// NewServer returns the asynq server that runs the worker.
func NewServer(redisAddr string, concurrency int, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueEmails: 10,
			queueAlerts: 5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			logger.Error("notification task failed", zap.String("type", t.Type()), zap.Error(err))
		}),
	})
}

// ProcessTask renders and delivers one notification.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: decode %s: %v", asynq.SkipRetry, t.Type(), err)
	}
	to, err := w.recipients.Lookup(ctx, p.Recipient)
	if err != nil {
		return fmt.Errorf("lookup recipient %s: %w", p.Recipient, err)
	}

	msg, err := render(t.Type(), p, to, w.counterpartName(ctx, p))
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if t.Type() != TaskPasswordReset && t.Type() != TaskWelcome {
		if err := w.inbox.Create(ctx, Notification{
			UserID:    p.Recipient,
			Type:      t.Type(),
			Title:     msg.Subject,
			Body:      msg.Body,
			Reference: p.Reference,
		}); err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}

	if to.Email == "" {
		w.logger.Warn("notification without address", zap.String("type", t.Type()), zap.String("user_id", p.Recipient))
		return nil
	}
	if err := w.sender.Send(ctx, Envelope{To: to.Email, Subject: msg.Subject, Body: msg.Body}); err != nil {
		return fmt.Errorf("send %s: %w", t.Type(), err)
	}
	w.logger.Info("notification sent", zap.String("type", t.Type()), zap.String("user_id", p.Recipient))
	return nil
}

// counterpartName resolves the other party of a request notification.
func (w *Worker) counterpartName(ctx context.Context, p Payload) string {
	other := p.Data["target"]
	if other == p.Recipient {
		other = p.Data["owner"]
	}
	if other == "" {
		return ""
	}
	r, err := w.recipients.Lookup(ctx, other)
	if err != nil {
		return ""
	}
	return r.Name
}
