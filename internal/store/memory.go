// Package store holds the lifecycle.Repository implementations: Postgres for
// production, a per-user keyed Redis layout, and an in-process map.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mecanomotors/mecano/internal/lifecycle"
)

type Memory struct {
	mu    sync.RWMutex
	byID  map[string]lifecycle.Request
	order []string
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]lifecycle.Request)}
}

func (m *Memory) Save(_ context.Context, r lifecycle.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.byID[r.ID] = clone(r)
	return nil
}

func (m *Memory) SaveAll(_ context.Context, rs []lifecycle.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rs {
		if _, ok := m.byID[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.byID[r.ID] = clone(r)
	}
	return nil
}

func (m *Memory) FindByID(_ context.Context, id string) (lifecycle.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return lifecycle.Request{}, lifecycle.ErrNotFound
	}
	return clone(r), nil
}

func (m *Memory) FindByOwner(_ context.Context, ownerID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return m.filter(func(r lifecycle.Request) bool { return r.OwnerID == ownerID && r.Kind == kind }), nil
}

func (m *Memory) FindByTarget(_ context.Context, targetID string, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return m.filter(func(r lifecycle.Request) bool { return r.TargetID == targetID && r.Kind == kind }), nil
}

func (m *Memory) List(_ context.Context, kind lifecycle.Kind) ([]lifecycle.Request, error) {
	return m.filter(func(r lifecycle.Request) bool { return r.Kind == kind }), nil
}

func (m *Memory) filter(keep func(lifecycle.Request) bool) []lifecycle.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []lifecycle.Request{}
	for _, id := range m.order {
		if r := m.byID[id]; keep(r) {
			out = append(out, clone(r))
		}
	}
	newestFirst(out)
	return out
}

// newestFirst keeps insertion order among requests created at the same instant.
func newestFirst(reqs []lifecycle.Request) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}

func clone(r lifecycle.Request) lifecycle.Request {
	r.Items = append([]lifecycle.LineItem(nil), r.Items...)
	if r.Reservation != nil {
		rd := *r.Reservation
		r.Reservation = &rd
	}
	if r.Order != nil {
		od := *r.Order
		r.Order = &od
	}
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		r.CancelledAt = &at
	}
	return r
}
