package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned for a missing, forged or expired OAuth state
var ErrInvalidState = errors.New("invalid oauth state")

const defaultStateTTL = 10 * time.Minute

// StateSigner issues and checks the OAuth state parameter. The state is a
// short-lived HS256 token whose ID is a nonce the caller also hands to the
// browser, so a state only verifies for the browser that started the login.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer using secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: defaultStateTTL, now: time.Now}
}

// Issue returns a fresh state token for provider bound to nonce
func (s *StateSigner) Issue(provider, nonce string) (string, error) {
	if nonce == "" {
		return "", fmt.Errorf("state nonce is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        nonce,
		Subject:   provider,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks that state was issued by this signer for provider and nonce
// and has not expired
func (s *StateSigner) Verify(state, provider, nonce string) error {
	if state == "" || nonce == "" {
		return ErrInvalidState
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithSubject(provider),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.ID), []byte(nonce)) != 1 {
		return fmt.Errorf("%w: nonce mismatch", ErrInvalidState)
	}
	return nil
}
