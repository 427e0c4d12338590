package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"workplan/internal/apperr"
	"workplan/internal/models"
	"workplan/internal/storage/sqlite"
)

// DefaultOTPExpiration is how long an issued code stays valid.
const DefaultOTPExpiration = 10 * time.Minute

const (
	otpSpace = 1_000_000
	// Largest multiple of otpSpace that fits in a uint32; draws at or above
	// it are rejected so every code is equally likely.
	otpDrawLimit = (math.MaxUint32 / otpSpace) * otpSpace
)

// Authenticator issues and verifies six digit one-time passwords. Each user
// holds at most one outstanding code.
type Authenticator struct {
	store  *sqlite.Store
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
}

// AuthOption customises an Authenticator.
type AuthOption func(*Authenticator)

// WithClock replaces the wall clock used to stamp and expire codes.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRandom replaces the crypto/rand source codes are drawn from.
func WithRandom(r io.Reader) AuthOption {
	return func(a *Authenticator) {
		if r != nil {
			a.random = r
		}
	}
}

// NewAuthenticator constructs an Authenticator. A non-positive ttl falls back
// to DefaultOTPExpiration.
func NewAuthenticator(store *sqlite.Store, ttl time.Duration, opts ...AuthOption) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultOTPExpiration
	}
	a := &Authenticator{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Expiration returns the validity window of issued codes.
func (a *Authenticator) Expiration() time.Duration {
	return a.ttl
}

// GenerateForUser issues a fresh code for user, replacing any outstanding one.
func (a *Authenticator) GenerateForUser(ctx context.Context, user models.User) (string, error) {
	code, err := a.drawCode()
	if err != nil {
		return "", err
	}
	err = a.store.WithTx(ctx, func(tx *sqlite.Store) error {
		return tx.SetOTP(ctx, user.ID, code, a.now())
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// GenerateForEmail resolves the user by email, ignoring case, and issues a
// code for them.
func (a *Authenticator) GenerateForEmail(ctx context.Context, email string) (models.User, string, error) {
	var (
		user models.User
		code string
	)
	err := a.store.WithTx(ctx, func(tx *sqlite.Store) error {
		var err error
		user, err = tx.FindUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		code, err = a.drawCode()
		if err != nil {
			return err
		}
		return tx.SetOTP(ctx, user.ID, code, a.now())
	})
	if err != nil {
		return models.User{}, "", err
	}
	return user, code, nil
}

// Verify checks code against the user's outstanding one-time password and
// consumes it on success. A missing code and a wrong code produce the same
// error.
func (a *Authenticator) Verify(ctx context.Context, email, code string) (models.User, error) {
	var user models.User
	err := a.store.WithTx(ctx, func(tx *sqlite.Store) error {
		var err error
		user, err = tx.FindUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if !user.HasPendingOTP() || subtle.ConstantTimeCompare([]byte(*user.LatestOTP), []byte(code)) != 1 {
			return fmt.Errorf("%w: invalid otp provided", apperr.ErrInvalidCredential)
		}
		if a.now().After(user.OTPGeneratedAt.Add(a.ttl)) {
			return fmt.Errorf("otp has %w", apperr.ErrExpired)
		}
		cleared, err := tx.ClearOTP(ctx, user.ID, code)
		if err != nil {
			return err
		}
		if !cleared {
			return fmt.Errorf("%w: invalid otp provided", apperr.ErrInvalidCredential)
		}
		user.LatestOTP = nil
		user.OTPGeneratedAt = nil
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (a *Authenticator) drawCode() (string, error) {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(a.random, buf[:]); err != nil {
			return "", fmt.Errorf("draw otp: %w", err)
		}
		if v := binary.BigEndian.Uint32(buf[:]); v < otpDrawLimit {
			return fmt.Sprintf("%06d", v%otpSpace), nil
		}
	}
}
