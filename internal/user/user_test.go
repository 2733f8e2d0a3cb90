package user_test

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

	"github.com/mecanomotors/mecano/internal/catalog"
	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/user"
	"github.com/mecanomotors/mecano/internal/validation"
)

type profiles struct {
	mu   sync.Mutex
	byID map[string]user.Profile
}

func (p *profiles) Profile(_ context.Context, id string) (user.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.byID[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	return pr, nil
}

func (p *profiles) UpdateProfile(_ context.Context, id string, u user.Update) (user.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.byID[id]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	if u.FirstName != nil {
		pr.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		pr.LastName = *u.LastName
	}
	if u.Phone != nil {
		pr.Phone = *u.Phone
	}
	if u.Address != nil {
		pr.Address = *u.Address
	}
	p.byID[id] = pr
	return pr, nil
}

type fixture struct {
	e      *echo.Echo
	users  *profiles
	cat    *catalog.Memory
	tokens map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		users: &profiles{byID: map[string]user.Profile{
			"client-1": {ID: "client-1", FirstName: "Aïssatou", LastName: "Ba", Role: session.RoleClient, Phone: "+221771112233", Address: "Rue 10, Médina, Dakar", CreatedAt: now},
			"mech-1":   {ID: "mech-1", FirstName: "Moussa", LastName: "Diop", Role: session.RoleMechanic, CreatedAt: now},
		}},
		cat:    catalog.NewMemory(nil, nil),
		tokens: map[string]string{},
	}
	issuer := session.NewIssuer("profile-secret", time.Hour)
	f.e = echo.New()
	f.e.Validator = validation.Echo{}
	user.NewHandler(f.users, f.cat).Register(f.e.Group(""), f.e.Group("", middleware.JWT(issuer)))

	for id, role := range map[string]string{"client-1": session.RoleClient, "mech-1": session.RoleMechanic} {
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
	if who != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.tokens[who])
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

const mechanicProfile = `{
	"phone": "+221770001122",
	"address": "Avenue Blaise Diagne, Dakar",
	"city": "Dakar",
	"latitude": 14.6928,
	"longitude": -17.4467,
	"specialties": ["Moteur", "Freinage"],
	"experience": 12,
	"description": "Spécialiste des moteurs diesel depuis 2010",
	"hourly_rate": 6000,
	"availability": ["lundi", "mardi"]
}`

func TestPublicProfileHidesContact(t *testing.T) {
	f := newFixture(t)
	code, body := f.call(t, http.MethodGet, "/users/client-1/profile", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Aïssatou", body["first_name"])
	assert.NotContains(t, body, "phone")
	assert.NotContains(t, body, "address")
	assert.NotContains(t, body, "mechanic")

	code, _ = f.call(t, http.MethodGet, "/users/ghost/profile", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	code, body := f.call(t, http.MethodPatch, "/users/profile", "client-1", `{"phone":"+221780000000"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+221780000000", body["phone"])
	assert.Equal(t, "Aïssatou", body["first_name"])

	code, _ = f.call(t, http.MethodPatch, "/users/profile", "client-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.call(t, http.MethodPatch, "/users/profile", "client-1", `{"first_name":""}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.call(t, http.MethodPatch, "/users/profile", "", `{"phone":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMechanicProfile(t *testing.T) {
	f := newFixture(t)
	code, body := f.call(t, http.MethodPut, "/mechanic/profile", "mech-1", mechanicProfile)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Dakar", body["city"])
	assert.Equal(t, "Moussa", body["first_name"])
	assert.EqualValues(t, 6000, body["hourly_rate"])

	m, err := f.cat.Mechanic(context.Background(), "mech-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Moteur", "Freinage"}, m.Specialties)
	require.NotNil(t, m.Latitude)

	code, body = f.call(t, http.MethodGet, "/users/mech-1/profile", "", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "mechanic")
	assert.Equal(t, "Dakar", body["mechanic"].(map[string]any)["city"])
}

func TestMechanicProfileValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]struct {
		from, to string
		field    string
	}{
		"rate too low":       {`"hourly_rate": 6000`, `"hourly_rate": 500`, "hourly_rate"},
		"latitude range":     {`"latitude": 14.6928`, `"latitude": 95`, "latitude"},
		"short description":  {`"Spécialiste des moteurs diesel depuis 2010"`, `"Court"`, "description"},
		"no specialties":     {`["Moteur", "Freinage"]`, `[]`, "specialties"},
		"experience too big": {`"experience": 12`, `"experience": 60`, "experience"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			code, body := f.call(t, http.MethodPut, "/mechanic/profile", "mech-1", strings.Replace(mechanicProfile, tc.from, tc.to, 1))
			require.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body["fields"], tc.field)
		})
	}

	code, _ := f.call(t, http.MethodPut, "/mechanic/profile", "mech-1",
		strings.Replace(mechanicProfile, `"longitude": -17.4467,`, "", 1))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMechanicProfileRequiresMechanicRole(t *testing.T) {
	f := newFixture(t)
	code, _ := f.call(t, http.MethodPut, "/mechanic/profile", "client-1", mechanicProfile)
	assert.Equal(t, http.StatusForbidden, code)
}
