package session

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

var ErrInvalidSession = stderrors.New("invalid session token")

type Claims struct {
	jwt.RegisteredClaims
}

// Manager issues and verifies the signed session cookie. The cookie only
// carries an opaque session id; chat history lives in a Store.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(secret, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		now:        time.Now,
	}
}

func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Issue(sessionID string) (string, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse returns the session id carried by a valid token.
func (m *Manager) Parse(tokenString string) (string, error) {
	claims, err := m.parseClaims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *Manager) parseClaims(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Middleware attaches a session id to every request, issuing a fresh cookie
// when the current one is missing, invalid or past half its lifetime.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := m.resolve(r)
		if res.reissue {
			if err := m.setCookie(w, res.id); err != nil {
				logger.From(r.Context()).Error("failed to issue session cookie", "error", err)
			}
		}

		ctx := errors.ContextWithSessionID(r.Context(), res.id)
		if res.resumed {
			ctx = errors.ContextWithResumedSession(ctx)
		}
		ctx = logger.With(ctx, "session_id", res.id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type resolution struct {
	id      string
	reissue bool
	resumed bool
}

func (m *Manager) resolve(r *http.Request) resolution {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return resolution{id: uuid.NewString(), reissue: true}
	}

	claims, err := m.parseClaims(cookie.Value)
	if err != nil {
		return resolution{id: uuid.NewString(), reissue: true}
	}

	refresh := claims.ExpiresAt != nil && claims.ExpiresAt.Time.Sub(m.now()) < m.ttl/2
	return resolution{id: claims.Subject, reissue: refresh, resumed: true}
}

func (m *Manager) setCookie(w http.ResponseWriter, sessionID string) error {
	token, err := m.Issue(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
	return nil
}
