// Package session issues the signed tokens that remember which user a
// browser authenticated as, and carries that user through request contexts.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"workplan/internal/models"
)

// CookieName is the cookie that holds the session token.
const CookieName = "workplan_session"

// ErrInvalidSession is returned for tokens that are malformed, expired,
// forged or revoked.
var ErrInvalidSession = errors.New("invalid session")

// Manager signs and checks session tokens. Revocations live in memory until
// the revoked token would have expired anyway.
type Manager struct {
	key []byte
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewManager constructs a Manager. An empty key is replaced by random bytes,
// which invalidates sessions on restart.
func NewManager(key []byte, ttl time.Duration) (*Manager, error) {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		key:     key,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// TTL returns how long an issued session stays valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a token identifying userID.
func (m *Manager) Issue(userID int64) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Resolve returns the user id a valid token was issued for.
func (m *Manager) Resolve(token string) (int64, error) {
	claims, err := m.parse(token)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	_, revoked := m.revoked[claims.ID]
	m.mu.Unlock()
	if revoked {
		return 0, fmt.Errorf("%w: revoked", ErrInvalidSession)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}

// Revoke invalidates token. Invalid tokens are ignored.
func (m *Manager) Revoke(token string) {
	claims, err := m.parse(token)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[claims.ID] = claims.ExpiresAt.Time
}

func (m *Manager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidSession)
	}
	return claims, nil
}

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the authenticated user stored by WithUser.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}
