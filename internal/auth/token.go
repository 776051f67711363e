package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"strings"
)

// TokenKeyLength is the stored, non-secret prefix of a token.
const TokenKeyLength = 8

// GenerateToken returns a new 64 char token along with its digest and key.
func GenerateToken() (token, digest, key string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, Digest(token), token[:TokenKeyLength], nil
}

func Digest(token string) string {
	sum := sha512.Sum512([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenFromRequest reads "Authorization: Token <t>" (or Bearer).
func TokenFromRequest(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.Fields(h)
	if len(parts) != 2 {
		return ""
	}
	switch strings.ToLower(parts[0]) {
	case "token", "bearer":
		return parts[1]
	}
	return ""
}
