package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mecanomotors/mecano/internal/admin"
	"github.com/mecanomotors/mecano/internal/lifecycle"
	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/store"
)

type users struct {
	mu   sync.Mutex
	list []admin.User
}

func (u *users) Counts(context.Context) (admin.Counts, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := admin.Counts{UsersByRole: map[string]int{}, Products: 4, Revenue: 58000}
	for _, usr := range u.list {
		out.UsersByRole[usr.Role]++
		if usr.Role == session.RoleMechanic {
			out.Mechanics++
		}
	}
	return out, nil
}

func (u *users) Users(_ context.Context, role string, limit, offset int) ([]admin.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []admin.User{}
	for _, usr := range u.list {
		if role == "" || usr.Role == role {
			out = append(out, usr)
		}
	}
	if offset > len(out) {
		return []admin.User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (u *users) update(id string, fn func(*admin.User)) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.list {
		if u.list[i].ID == id {
			fn(&u.list[i])
			return nil
		}
	}
	return admin.ErrNotFound
}

func (u *users) SetActive(_ context.Context, id string, active bool) error {
	return u.update(id, func(usr *admin.User) { usr.IsActive = active })
}

func (u *users) SetRole(_ context.Context, id, role string) error {
	return u.update(id, func(usr *admin.User) { usr.Role = role })
}

type fixture struct {
	e       *echo.Echo
	users   *users
	tracker *lifecycle.Tracker
	tokens  map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: &users{list: []admin.User{
			{ID: "admin-1", FirstName: "Root", Role: session.RoleAdmin, IsActive: true},
			{ID: "client-1", FirstName: "Aïssatou", Role: session.RoleClient, IsActive: true},
			{ID: "mech-1", FirstName: "Moussa", Role: session.RoleMechanic, IsActive: true},
		}},
		tokens: map[string]string{},
	}
	clock := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	f.tracker = lifecycle.NewTracker(store.NewMemory(), lifecycle.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	issuer := session.NewIssuer("admin-secret", time.Hour)
	f.e = echo.New()
	admin.NewHandler(f.users, f.tracker).Register(f.e.Group("/admin", middleware.JWT(issuer)))
	for id, role := range map[string]string{"admin-1": session.RoleAdmin, "client-1": session.RoleClient} {
		tok, err := issuer.Issue(id, role)
		require.NoError(t, err)
		f.tokens[id] = tok
	}
	return f
}

func (f *fixture) call(t *testing.T, method, path, who, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.tokens[who])
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func (f *fixture) seedRequests(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.tracker.Create(ctx, lifecycle.Details{
		Kind: lifecycle.KindReservation, OwnerID: "client-1", TargetID: "mech-1",
		Items: []lifecycle.LineItem{{Label: "Vidange", Quantity: 1, UnitPrice: 6000}},
		Reservation: &lifecycle.ReservationDetails{
			Service: "Vidange", Date: "2026-05-10", Time: "09:00", Mode: lifecycle.ModeAppointment,
			Vehicle:           lifecycle.Vehicle{Make: "Peugeot", Model: "308", Year: 2018, Plate: "DK-4521-B"},
			EstimatedDuration: 60,
		},
	})
	require.NoError(t, err)

	order, err := f.tracker.Create(ctx, lifecycle.Details{
		Kind: lifecycle.KindOrder, OwnerID: "client-1", TargetID: "vendor-1",
		Items: []lifecycle.LineItem{{RefID: "p1", Label: "Plaquettes de frein", Quantity: 2, UnitPrice: 18000}},
		Order: &lifecycle.OrderDetails{ShippingAddress: "Rue 10, Médina, Dakar", PaymentMethod: "cash", TransactionID: "cash_1"},
	})
	require.NoError(t, err)
	_, err = f.tracker.Advance(ctx, order.ID)
	require.NoError(t, err)
}

func TestAdminOnly(t *testing.T) {
	f := newFixture(t)
	code, _ := f.call(t, http.MethodGet, "/admin/stats", "client-1", "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.seedRequests(t)

	code, body := f.call(t, http.MethodGet, "/admin/stats", "admin-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["mechanics"])
	assert.EqualValues(t, 58000, body["revenue"])
	assert.EqualValues(t, 1, body["users_by_role"].(map[string]any)["client"])

	res := body["reservations"].(map[string]any)
	assert.EqualValues(t, 1, res["total"])
	assert.EqualValues(t, 6000, res["value"])
	orders := body["orders"].(map[string]any)
	assert.EqualValues(t, 1, orders["by_status"].(map[string]any)["processing"])
	assert.EqualValues(t, 36000, orders["value"])
}

func TestListRequests(t *testing.T) {
	f := newFixture(t)
	f.seedRequests(t)

	code, body := f.call(t, http.MethodGet, "/admin/requests", "admin-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])
	first := body["requests"].([]any)[0].(map[string]any)
	assert.Equal(t, "order", first["kind"], "newest first")

	code, body = f.call(t, http.MethodGet, "/admin/requests?kind=reservation", "admin-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = f.call(t, http.MethodGet, "/admin/requests?status=processing", "admin-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = f.call(t, http.MethodGet, "/admin/requests?kind=subscription", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = f.call(t, http.MethodGet, "/admin/requests?kind=reservation&status=shipped", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestModeration(t *testing.T) {
	f := newFixture(t)

	code, _ := f.call(t, http.MethodPost, "/admin/users/client-1/suspend", "admin-1", "")
	require.Equal(t, http.StatusOK, code)
	_, body := f.call(t, http.MethodGet, "/admin/users?role=client", "admin-1", "")
	listed := body["users"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, false, listed[0].(map[string]any)["is_active"])

	code, _ = f.call(t, http.MethodPost, "/admin/users/client-1/activate", "admin-1", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = f.call(t, http.MethodPost, "/admin/users/admin-1/suspend", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.call(t, http.MethodPost, "/admin/users/ghost/suspend", "admin-1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = f.call(t, http.MethodPost, "/admin/users/client-1/role", "admin-1", `{"role":"Vendor"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.RoleVendor, body["role"])

	code, _ = f.call(t, http.MethodPost, "/admin/users/client-1/role", "admin-1", `{"role":"fan"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.call(t, http.MethodGet, "/admin/users?role=fan", "admin-1", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
