package alerts

import "time"

// Task type constants
const (
	TaskWelcome              = "email:welcome"
	TaskPasswordReset        = "email:password_reset"
	TaskReservationCreated   = "email:reservation_created"
	TaskReservationConfirmed = "email:reservation_confirmed"
	TaskOrderPlaced          = "email:order_placed"
	TaskOrderShipped         = "email:order_shipped"
	TaskRequestCancelled     = "email:request_cancelled"
	TaskMessageNew           = "email:message_new"
)

const (
	queueEmails = "emails"
	queueAlerts = "alerts"
)

// Envelope is what a Sender delivers.
type Envelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Payload is the body of every notification task. Recipient is a user id;
// the worker resolves the address.
type Payload struct {
	Recipient string            `json:"recipient"`
	Reference string            `json:"reference,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	QueuedAt  time.Time         `json:"queued_at"`
}

// Recipient is the resolved addressee of a notification.
type Recipient struct {
	Email string
	Name  string
}

// Notification is an in-app alert row.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference string     `json:"reference,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}
