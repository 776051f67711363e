package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

type resetClaims struct {
	Fingerprint string `json:"pwh"`
	jwt.RegisteredClaims
}

// ResetTokens issues password reset tokens that stop working once the
// password changes or the TTL passes.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *ResetTokens) TTL() time.Duration { return t.ttl }

func fingerprint(u *model.User) string {
	sum := sha256.Sum256([]byte(u.ID + ":" + u.PasswordHash))
	return hex.EncodeToString(sum[:8])
}

func (t *ResetTokens) Generate(u *model.User) (string, error) {
	now := t.now()
	claims := resetClaims{
		Fingerprint: fingerprint(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *ResetTokens) Verify(token string, u *model.User) error {
	var claims resetClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return ErrInvalidResetToken
	}
	if claims.Subject != u.ID || claims.Fingerprint != fingerprint(u) {
		return ErrInvalidResetToken
	}
	return nil
}

func EncodeUID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func DecodeUID(uid string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", ErrInvalidResetToken
	}
	return string(b), nil
}
