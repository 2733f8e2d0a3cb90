// Package session issues and verifies bearer tokens and exposes the caller
// of a request to handlers.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RoleClient   = "client"
	RoleMechanic = "mechanic"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

const (
	purposeAccess        = "access"
	purposePasswordReset = "password_reset"

	contextKey = "session"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token issued for another purpose")
)

// NormalizeRole lower-cases r and reports whether it is a known role.
func NormalizeRole(r string) (string, bool) {
	r = strings.ToLower(strings.TrimSpace(r))
	switch r {
	case RoleClient, RoleMechanic, RoleVendor, RoleAdmin:
		return r, true
	}
	return r, false
}

// Session is the authenticated caller.
type Session struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type Claims struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns an access token for userID.
func (i *Issuer) Issue(userID, role string) (string, error) {
	return i.sign(Claims{UserID: userID, Role: role, Purpose: purposeAccess}, i.ttl)
}

// IssueReset returns a password reset token valid for ttl.
func (i *Issuer) IssueReset(userID string, ttl time.Duration) (string, error) {
	c := Claims{UserID: userID, Purpose: purposePasswordReset}
	c.ID = uuid.NewString()
	return i.sign(c, ttl)
}

// Verify parses an access token.
func (i *Issuer) Verify(token string) (Session, error) {
	c, err := i.parse(token, purposeAccess)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: c.UserID, Role: c.Role}, nil
}

// VerifyReset parses a password reset token and returns its user id.
func (i *Issuer) VerifyReset(token string) (string, error) {
	c, err := i.parse(token, purposePasswordReset)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

func (i *Issuer) sign(c Claims, ttl time.Duration) (string, error) {
	now := i.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) parse(token, purpose string) (Claims, error) {
	var c Claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid || c.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	if c.Purpose != purpose {
		return Claims{}, ErrWrongPurpose
	}
	return c, nil
}

// Attach stores s on the request context. The user_id and role keys are kept
// for handlers and loggers that read them directly.
func Attach(c echo.Context, s Session) {
	c.Set(contextKey, s)
	c.Set("user_id", s.UserID)
	c.Set("role", s.Role)
}

// CurrentUser returns the caller of the request, if authenticated.
func CurrentUser(c echo.Context) (Session, bool) {
	s, ok := c.Get(contextKey).(Session)
	if !ok || s.UserID == "" {
		return Session{}, false
	}
	return s, true
}
