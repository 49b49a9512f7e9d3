package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
)

var (
	ErrTokenEmpty               = errors.New("token is empty")
	ErrTokenInvalid             = errors.New("invalid token")
	ErrTokenUnexpectedSignature = errors.New("unexpected signing method")
	ErrTokenInvalidClaims       = errors.New("invalid token claims")
)

// Verifier issues and checks holder identity tokens. The subject claim is
// the holder id.
type Verifier interface {
	Issue(holderID string) (string, error)
	Verify(token string) (string, error)
}

type jwtVerifier struct {
	conf config.JWTConfig
	clk  clock.Clock
}

func NewJWTVerifier(conf config.JWTConfig, clk clock.Clock) Verifier {
	return &jwtVerifier{
		conf: conf,
		clk:  clk,
	}
}

func (v *jwtVerifier) Issue(holderID string) (string, error) {
	if holderID == "" {
		return "", ErrTokenInvalidClaims
	}

	now := v.clk.Now()
	claims := jwt.RegisteredClaims{
		Subject:   holderID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.conf.Expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(v.conf.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenStr, nil
}

func (v *jwtVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrTokenEmpty
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenUnexpectedSignature
		}
		return []byte(v.conf.Secret), nil
	}, jwt.WithTimeFunc(v.clk.Now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !parsed.Valid {
		return "", ErrTokenInvalid
	}

	if claims.Subject == "" {
		return "", ErrTokenInvalidClaims
	}

	return claims.Subject, nil
}

// BearerToken strips the "Bearer " prefix from an Authorization value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type holderKey struct{}

func WithHolder(ctx context.Context, holderID string) context.Context {
	return context.WithValue(ctx, holderKey{}, holderID)
}

// HolderFromContext returns the authenticated holder id, if any.
func HolderFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(holderKey{}).(string)
	return id, ok && id != ""
}
