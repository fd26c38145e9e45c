// Package auth issues and verifies the session token carried in the "session"
// cookie. The token is a signed JWT holding the user id, email and role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/procurement/httpx"
)

const SessionCookieName = "session"

type ctxKey string

const identityCtxKey = ctxKey("identity")

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token revoked")
)

// ErrRevocationUnknown means the revocation store could not be read. The
// request is refused but its session cookie is left in place.
var ErrRevocationUnknown = errors.New("token revocation status unknown")

// Identity is what a valid session says about its bearer.
type Identity struct {
	ID      uint
	Email   string
	Role    string
	TokenID string
	Expires time.Time
}

// Claims is the JWT payload. The user id travels in the subject.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Revoker records token ids that must no longer be accepted (logout).
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// UserVerifier reports whether a session's user still exists.
type UserVerifier func(ctx context.Context, uid uint) bool

// Manager signs, parses and enforces sessions.
type Manager struct {
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	revoker      Revoker
	verifier     UserVerifier
	now          func() time.Time
}

type Option func(*Manager)

func WithRevoker(r Revoker) Option          { return func(m *Manager) { m.revoker = r } }
func WithVerifier(v UserVerifier) Option    { return func(m *Manager) { m.verifier = v } }
func WithSecureCookie(secure bool) Option   { return func(m *Manager) { m.secureCookie = secure } }
func withClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// NewManager builds a Manager; ttl is the token and cookie lifetime.
func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue signs a token for the given user.
func (m *Manager) Issue(id uint, email, role string) (string, Identity, error) {
	now := m.now()
	ident := Identity{
		ID:      id,
		Email:   email,
		Role:    role,
		TokenID: uuid.NewString(),
		Expires: now.Add(m.ttl),
	}
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id), 10),
			ID:        ident.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ident.Expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, ident, nil
}

// Parse validates signature and expiry and returns the identity.
func (m *Manager) Parse(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	ident := Identity{ID: uint(id), Email: claims.Email, Role: claims.Role, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		ident.Expires = claims.ExpiresAt.Time
	}
	return ident, nil
}

// Login issues a token and stores it in the session cookie.
func (m *Manager) Login(w http.ResponseWriter, id uint, email, role string) (Identity, error) {
	token, ident, err := m.Issue(id, email, role)
	if err != nil {
		return Identity{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  ident.Expires,
	})
	return ident, nil
}

// Logout revokes the current token (when a revoker is configured) and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter) error {
	var err error
	if ident, ok := IdentityFromContext(ctx); ok && m.revoker != nil && ident.TokenID != "" {
		err = m.revoker.Revoke(ctx, ident.TokenID, ident.Expires)
	}
	ClearSession(w)
	return err
}

// ClearSession deletes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFromRequest reads the session cookie, falling back to a Bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Authenticate returns the identity of the request, if any valid session is present.
func (m *Manager) Authenticate(r *http.Request) (Identity, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	ident, err := m.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	if m.revoker != nil {
		revoked, err := m.revoker.IsRevoked(r.Context(), ident.TokenID)
		if err != nil {
			logrus.WithError(err).Warn("auth: revocation lookup failed")
			return Identity{}, fmt.Errorf("%w: %v", ErrRevocationUnknown, err)
		}
		if revoked {
			return Identity{}, ErrRevoked
		}
	}
	if m.verifier != nil && !m.verifier(r.Context(), ident.ID) {
		return Identity{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	return ident, nil
}

// Middleware attaches the identity to the request context when the session is valid.
// Requests without a valid session continue anonymously. An invalid session
// cookie is cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident, err := m.Authenticate(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), ident))
		} else if tokenFromRequest(r) != "" && !errors.Is(err, ErrRevocationUnknown) {
			ClearSession(w)
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, ident)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityCtxKey).(Identity)
	return ident, ok && ident.ID != 0
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	ident, ok := IdentityFromContext(ctx)
	return ident.ID, ok
}

// RequireAuth answers 401 JSON for API clients and redirects browsers to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DashboardPath is the landing page of a role.
func DashboardPath(role string) string {
	if role == "" {
		return "/login"
	}
	return "/dashboard/" + role
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
