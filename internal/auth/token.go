package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the shortest accepted HMAC signing key.
const MinKeyLength = 32

// Codec turns a (user id, secret) pair into an opaque token and back.
type Codec interface {
	Encode(userID, secret string) (string, error)
	Decode(token string) (userID, secret string, err error)
}

// NewSecret returns 32 random bytes, base64url-encoded.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignedCodec issues HS256 JWTs carrying the user id as subject and the
// secret as token id.
type SignedCodec struct {
	key []byte
	now func() time.Time
}

func NewSignedCodec(key string) (*SignedCodec, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("token key must be at least %d bytes", MinKeyLength)
	}
	return &SignedCodec{key: []byte(key), now: time.Now}, nil
}

func (c *SignedCodec) Encode(userID, secret string) (string, error) {
	if userID == "" {
		return "", errors.New("encode token: empty user id")
	}
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		ID:       secret,
		IssuedAt: jwt.NewNumericDate(c.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *SignedCodec) Decode(token string) (string, string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return "", "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims.Subject, claims.ID, nil
}

// LegacyCodec reads and writes the unsigned base64("userId:secret") form.
// Anyone can mint these, so it is only installed when explicitly enabled.
type LegacyCodec struct{}

func (LegacyCodec) Encode(userID, secret string) (string, error) {
	if userID == "" || strings.Contains(userID, ":") {
		return "", errors.New("encode token: invalid user id")
	}
	return base64.StdEncoding.EncodeToString([]byte(userID + ":" + secret)), nil
}

func (LegacyCodec) Decode(token string) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	userID, secret, ok := strings.Cut(string(raw), ":")
	if !ok || userID == "" {
		return "", "", fmt.Errorf("%w: missing user id", ErrMalformedToken)
	}
	return userID, secret, nil
}

// FallbackCodec encodes with its primary codec and decodes with each codec
// in turn, returning the first success.
type FallbackCodec struct {
	primary   Codec
	fallbacks []Codec
}

func NewFallbackCodec(primary Codec, fallbacks ...Codec) *FallbackCodec {
	return &FallbackCodec{primary: primary, fallbacks: fallbacks}
}

func (c *FallbackCodec) Encode(userID, secret string) (string, error) {
	return c.primary.Encode(userID, secret)
}

func (c *FallbackCodec) Decode(token string) (string, string, error) {
	userID, secret, err := c.primary.Decode(token)
	if err == nil {
		return userID, secret, nil
	}
	for _, fb := range c.fallbacks {
		if userID, secret, ferr := fb.Decode(token); ferr == nil {
			return userID, secret, nil
		}
	}
	return "", "", err
}
