package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists requests. Save must be durable before it returns and
// replaces any request with the same ID. SaveAll stores every request or none
// of them. Find* return ErrNotFound or an empty
// slice when nothing matches; lists are newest first.
type Repository interface {
	Save(ctx context.Context, r Request) error
	SaveAll(ctx context.Context, rs []Request) error
	FindByID(ctx context.Context, id string) (Request, error)
	FindByOwner(ctx context.Context, ownerID string, kind Kind) ([]Request, error)
	FindByTarget(ctx context.Context, targetID string, kind Kind) ([]Request, error)
	List(ctx context.Context, kind Kind) ([]Request, error)
}

// Observer is told about every successful create, cancel and advance.
type Observer func(kind Kind, action string, r Request)

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(t *Tracker) { t.newID = newID }
}

func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observers = append(t.observers, o) }
}

// Tracker applies lifecycle transitions and writes them through a Repository.
type Tracker struct {
	repo      Repository
	now       func() time.Time
	newID     func() string
	observers []Observer

	mu sync.Mutex
}

func NewTracker(repo Repository, opts ...Option) *Tracker {
	t := &Tracker{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) Create(ctx context.Context, d Details) (Request, error) {
	r, err := New(d, t.newID(), t.now())
	if err != nil {
		return Request{}, err
	}
	if err := t.repo.Save(ctx, r); err != nil {
		return Request{}, err
	}
	t.notify("create", r)
	return r, nil
}

// CreateAll validates every request before storing any, then saves them in
// one repository call.
func (t *Tracker) CreateAll(ctx context.Context, ds []Details) ([]Request, error) {
	now := t.now()
	rs := make([]Request, 0, len(ds))
	for _, d := range ds {
		r, err := New(d, t.newID(), now)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	if err := t.repo.SaveAll(ctx, rs); err != nil {
		return nil, err
	}
	for _, r := range rs {
		t.notify("create", r)
	}
	return rs, nil
}

// Cancel records by as the user who cancelled.
func (t *Tracker) Cancel(ctx context.Context, id, by, reason string) (Request, error) {
	return t.mutate(ctx, id, "cancel", func(r Request, now time.Time) (Request, error) {
		r, err := Cancel(r, reason, now)
		if err == nil {
			r.CancelledBy = by
		}
		return r, err
	})
}

func (t *Tracker) Advance(ctx context.Context, id string) (Request, error) {
	return t.mutate(ctx, id, "advance", Advance)
}

func (t *Tracker) Get(ctx context.Context, id string) (Request, error) {
	return t.repo.FindByID(ctx, id)
}

func (t *Tracker) ListByOwner(ctx context.Context, ownerID string, kind Kind) ([]Request, error) {
	return t.repo.FindByOwner(ctx, ownerID, kind)
}

func (t *Tracker) ListByTarget(ctx context.Context, targetID string, kind Kind) ([]Request, error) {
	return t.repo.FindByTarget(ctx, targetID, kind)
}

func (t *Tracker) List(ctx context.Context, kind Kind) ([]Request, error) {
	return t.repo.List(ctx, kind)
}

// mutate serialises read-modify-write cycles. Observers run after the lock is
// released.
func (t *Tracker) mutate(ctx context.Context, id, action string, fn func(Request, time.Time) (Request, error)) (Request, error) {
	next, err := t.apply(ctx, id, fn)
	if err != nil {
		return next, err
	}
	t.notify(action, next)
	return next, nil
}

func (t *Tracker) apply(ctx context.Context, id string, fn func(Request, time.Time) (Request, error)) (Request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	next, err := fn(current, t.now())
	if err != nil {
		return current, err
	}
	if err := t.repo.Save(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

func (t *Tracker) notify(action string, r Request) {
	for _, o := range t.observers {
		o(r.Kind, action, r)
	}
}
