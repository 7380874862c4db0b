// Package auth issues and checks bearer tokens and password hashes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dompet/internal/core"
)

type ctxKey string

const sessionKey ctxKey = "session"

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the session.
func (t *Tokens) Issue(s core.Session) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"user_id":  s.UserID,
		"username": s.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(t.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its session.
func (t *Tokens) Parse(raw string) (core.Session, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return core.Session{}, core.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return core.Session{}, core.ErrUnauthorized
	}
	uid, ok := claims["user_id"].(string)
	if !ok || uid == "" {
		return core.Session{}, core.ErrUnauthorized
	}
	username, _ := claims["username"].(string)
	return core.Session{UserID: uid, Username: username}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// session in the request context.
func (t *Tokens) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				onError(w, r, fmt.Errorf("missing auth token: %w", core.ErrUnauthorized))
				return
			}
			s, err := t.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

func WithSession(ctx context.Context, s core.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the session stored by Middleware.
func SessionFrom(ctx context.Context) (core.Session, error) {
	s, ok := ctx.Value(sessionKey).(core.Session)
	if !ok || s.UserID == "" {
		return core.Session{}, core.ErrUnauthorized
	}
	return s, nil
}
