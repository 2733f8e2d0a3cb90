package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mecanomotors/mecano/internal/middleware"
	"github.com/mecanomotors/mecano/internal/session"
	"github.com/mecanomotors/mecano/internal/validation"
)

type resetRecord struct {
	userID  string
	expires time.Time
	used    bool
}

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	resets   map[string]*resetRecord
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]Account{}, resets: map[string]*resetRecord{}}
}

func (s *fakeStore) Create(_ context.Context, a Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == strings.ToLower(a.Email) {
			return Account{}, ErrEmailTaken
		}
	}
	s.seq++
	a.ID = fmt.Sprintf("user-%d", s.seq)
	a.Email = strings.ToLower(a.Email)
	a.CreatedAt = time.Now()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *fakeStore) ByEmail(_ context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == strings.ToLower(strings.TrimSpace(email)) {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *fakeStore) ByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) SetPassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = hash
	s.accounts[id] = a
	return nil
}

func (s *fakeStore) SetRole(_ context.Context, email, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if a.Email == strings.ToLower(email) {
			a.Role = role
			s.accounts[id] = a
			return nil
		}
	}
	return ErrNotFound
}

func (s *fakeStore) SaveResetToken(_ context.Context, tokenHash, userID string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[tokenHash] = &resetRecord{userID: userID, expires: expires}
	return nil
}

func (s *fakeStore) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[tokenHash]
	if !ok || r.used || !r.expires.After(now) {
		return "", ErrTokenUsed
	}
	r.used = true
	return r.userID, nil
}

func (s *fakeStore) suspend(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.accounts {
		if a.Email == email {
			a.IsActive = false
			s.accounts[id] = a
		}
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	welcomed []string
	links    []string
}

func (n *recordingNotifier) Welcome(userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, userID)
	return nil
}

func (n *recordingNotifier) PasswordReset(_ string, resetURL string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, resetURL)
	return nil
}

type fixture struct {
	e        *echo.Echo
	store    *fakeStore
	notifier *recordingNotifier
	issuer   *session.Issuer
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		notifier: &recordingNotifier{},
		issuer:   session.NewIssuer("auth-secret", time.Hour),
	}
	h := NewHandler(f.store, f.issuer, f.notifier, Options{
		AppURL:          "https://mecano.test",
		ResetTTL:        15 * time.Minute,
		BootstrapSecret: secret,
	})
	f.e = echo.New()
	f.e.Validator = validation.Echo{}
	h.Register(f.e.Group(""), f.e.Group("", middleware.JWT(f.issuer)))
	return f
}

func (f *fixture) call(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (f *fixture) signup(t *testing.T, email, role string) map[string]any {
	t.Helper()
	code, body := f.call(t, http.MethodPost, "/auth/signup", "", fmt.Sprintf(
		`{"first_name":"Fatou","last_name":"Ndiaye","email":%q,"password":"secret123","role":%q,"phone":"+221770000000"}`,
		email, role))
	require.Equal(t, http.StatusCreated, code, body)
	return body
}

func TestSignupIssuesToken(t *testing.T) {
	f := newFixture(t, "")
	body := f.signup(t, "Fatou@Example.com", "Mechanic")

	user := body["user"].(map[string]any)
	assert.Equal(t, "fatou@example.com", user["email"])
	assert.Equal(t, session.RoleMechanic, user["role"])
	assert.NotContains(t, user, "password_hash")

	s, err := f.issuer.Verify(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, user["id"], s.UserID)
	assert.Equal(t, session.RoleMechanic, s.Role)
	assert.Equal(t, []string{s.UserID}, f.notifier.welcomed)
}

func TestSignupDefaultsToClient(t *testing.T) {
	f := newFixture(t, "")
	body := f.signup(t, "client@example.com", "")
	assert.Equal(t, session.RoleClient, body["user"].(map[string]any)["role"])
}

func TestSignupRejects(t *testing.T) {
	f := newFixture(t, "")
	f.signup(t, "taken@example.com", "client")

	cases := []struct {
		name string
		body string
		code int
	}{
		{"short password", `{"first_name":"A","last_name":"B","email":"a@example.com","password":"123"}`, http.StatusBadRequest},
		{"bad email", `{"first_name":"A","last_name":"B","email":"nope","password":"secret123"}`, http.StatusBadRequest},
		{"unknown role", `{"first_name":"A","last_name":"B","email":"a@example.com","password":"secret123","role":"fan"}`, http.StatusBadRequest},
		{"admin role", `{"first_name":"A","last_name":"B","email":"a@example.com","password":"secret123","role":"admin"}`, http.StatusBadRequest},
		{"duplicate", `{"first_name":"A","last_name":"B","email":"TAKEN@example.com","password":"secret123"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := f.call(t, http.MethodPost, "/auth/signup", "", tc.body)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t, "")
	f.signup(t, "moussa@example.com", "client")

	code, body := f.call(t, http.MethodPost, "/auth/login", "", `{"email":"moussa@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, _ = f.call(t, http.MethodPost, "/auth/login", "", `{"email":"moussa@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.call(t, http.MethodPost, "/auth/login", "", `{"email":"ghost@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	f.store.suspend("moussa@example.com")
	code, body = f.call(t, http.MethodPost, "/auth/login", "", `{"email":"moussa@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account suspended", body["error"])
}

func TestMe(t *testing.T) {
	f := newFixture(t, "")
	token := f.signup(t, "me@example.com", "vendor")["token"].(string)

	code, body := f.call(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "me@example.com", body["email"])
	assert.Equal(t, session.RoleVendor, body["role"])

	code, _ = f.call(t, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t, "")
	f.signup(t, "reset@example.com", "client")

	code, body := f.call(t, http.MethodPost, "/auth/password/request", "", `{"email":"reset@example.com"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, resetRequested, body["message"])
	require.Len(t, f.notifier.links, 1)

	link, err := url.Parse(f.notifier.links[0])
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	payload := fmt.Sprintf(`{"token":%q,"new_password":"nouveau-pass"}`, token)
	code, _ = f.call(t, http.MethodPost, "/auth/password/reset", "", payload)
	require.Equal(t, http.StatusOK, code)

	code, _ = f.call(t, http.MethodPost, "/auth/password/reset", "", payload)
	assert.Equal(t, http.StatusUnauthorized, code, "token is single use")

	code, _ = f.call(t, http.MethodPost, "/auth/login", "", `{"email":"reset@example.com","password":"nouveau-pass"}`)
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.call(t, http.MethodPost, "/auth/login", "", `{"email":"reset@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPasswordResetUnknownEmailLooksTheSame(t *testing.T) {
	f := newFixture(t, "")
	code, body := f.call(t, http.MethodPost, "/auth/password/request", "", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, resetRequested, body["message"])
	assert.Empty(t, f.notifier.links)
}

func TestPasswordResetRejectsAccessToken(t *testing.T) {
	f := newFixture(t, "")
	token := f.signup(t, "access@example.com", "client")["token"].(string)

	code, _ := f.call(t, http.MethodPost, "/auth/password/reset", "",
		fmt.Sprintf(`{"token":%q,"new_password":"nouveau-pass"}`, token))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBootstrapAdmin(t *testing.T) {
	f := newFixture(t, "let-me-in")
	f.signup(t, "boss@example.com", "client")

	code, _ := f.call(t, http.MethodPost, "/auth/bootstrap-admin", "", `{"email":"boss@example.com","secret":"wrong"}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = f.call(t, http.MethodPost, "/auth/bootstrap-admin", "", `{"email":"nobody@example.com","secret":"let-me-in"}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.call(t, http.MethodPost, "/auth/bootstrap-admin", "", `{"email":"boss@example.com","secret":"let-me-in"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := f.call(t, http.MethodPost, "/auth/login", "", `{"email":"boss@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, session.RoleAdmin, body["user"].(map[string]any)["role"])
}

func TestBootstrapDisabledWithoutSecret(t *testing.T) {
	f := newFixture(t, "")
	f.signup(t, "boss@example.com", "client")
	code, body := f.call(t, http.MethodPost, "/auth/bootstrap-admin", "", `{"email":"boss@example.com","secret":""}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "bootstrap disabled", body["error"])
}
