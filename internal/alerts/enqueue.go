package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier schedules notification tasks.
type Notifier struct {
	queue  Enqueuer
	appURL string
	now    func() time.Time
}

func NewNotifier(queue Enqueuer, appURL string) *Notifier {
	return &Notifier{queue: queue, appURL: appURL, now: time.Now}
}

func (n *Notifier) enqueue(taskType, queue string, p Payload) error {
	p.QueuedAt = n.now()
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	if _, err := n.queue.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

// Welcome greets a freshly registered user.
func (n *Notifier) Welcome(userID string) error {
	return n.enqueue(TaskWelcome, queueEmails, Payload{
		Recipient: userID,
		Data:      map[string]string{"url": n.appURL},
	})
}

// PasswordReset sends the reset link to userID.
func (n *Notifier) PasswordReset(userID, resetURL string, ttl time.Duration) error {
	return n.enqueue(TaskPasswordReset, queueEmails, Payload{
		Recipient: userID,
		Data: map[string]string{
			"url":     resetURL,
			"minutes": fmt.Sprintf("%d", int(ttl.Minutes())),
		},
	})
}

// NewMessage tells receiverID that senderName wrote in a conversation.
func (n *Notifier) NewMessage(receiverID, conversationID, senderName string) error {
	return n.enqueue(TaskMessageNew, queueAlerts, Payload{
		Recipient: receiverID,
		Reference: conversationID,
		Data:      map[string]string{"sender": senderName},
	})
}

// RequestChanged maps a lifecycle transition to the notification it triggers.
// Transitions without a notification return nil.
func (n *Notifier) RequestChanged(action string, r lifecycle.Request) error {
	data := map[string]string{
		"kind":   string(r.Kind),
		"total":  fmt.Sprintf("%d", r.Total),
		"status": string(r.Status),
		"owner":  r.OwnerID,
		"target": r.TargetID,
	}
	switch {
	case action == "create" && r.Kind == lifecycle.KindReservation:
		if r.Reservation != nil {
			data["service"] = r.Reservation.Service
			data["date"] = r.Reservation.Date
			data["time"] = r.Reservation.Time
		}
		return n.enqueue(TaskReservationCreated, queueAlerts, Payload{Recipient: r.TargetID, Reference: r.ID, Data: data})
	case action == "create" && r.Kind == lifecycle.KindOrder:
		return n.enqueue(TaskOrderPlaced, queueAlerts, Payload{Recipient: r.TargetID, Reference: r.ID, Data: data})
	case action == "advance" && r.Status == lifecycle.StatusConfirmed:
		if r.Reservation != nil {
			data["service"] = r.Reservation.Service
			data["date"] = r.Reservation.Date
			data["time"] = r.Reservation.Time
		}
		return n.enqueue(TaskReservationConfirmed, queueEmails, Payload{Recipient: r.OwnerID, Reference: r.ID, Data: data})
	case action == "advance" && r.Status == lifecycle.StatusShipped:
		if r.Order != nil {
			data["tracking"] = r.Order.TrackingNumber
		}
		return n.enqueue(TaskOrderShipped, queueEmails, Payload{Recipient: r.OwnerID, Reference: r.ID, Data: data})
	case action == "cancel":
		data["reason"] = r.CancelReason
		for _, to := range cancelRecipients(r) {
			if err := n.enqueue(TaskRequestCancelled, queueEmails, Payload{Recipient: to, Reference: r.ID, Data: data}); err != nil {
				return err
			}
		}
	}
	return nil
}

// cancelRecipients is every party of r except the one who cancelled. An
// unknown canceller is taken to be the owner.
func cancelRecipients(r lifecycle.Request) []string {
	by := r.CancelledBy
	if by == "" {
		by = r.OwnerID
	}
	var to []string
	for _, id := range []string{r.TargetID, r.OwnerID} {
		if id != by {
			to = append(to, id)
		}
	}
	return to
}

// Observer adapts the notifier to lifecycle.Tracker. Enqueue failures are
// logged; the transition itself has already been persisted.
func (n *Notifier) Observer() lifecycle.Observer {
	return func(_ lifecycle.Kind, action string, r lifecycle.Request) {
		if err := n.RequestChanged(action, r); err != nil {
			zap.L().Warn("notification not queued",
				zap.String("request_id", r.ID), zap.String("action", action), zap.Error(err))
		}
	}
}
