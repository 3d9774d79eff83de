package handlers

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTSignatureVerifier validates provider webhook bearers. Vonage signs each
// callback with an HS256 JWT derived from the account's signature secret.
type JWTSignatureVerifier struct{}

func (JWTSignatureVerifier) Verify(token, secret string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	return err == nil && parsed.Valid
}
