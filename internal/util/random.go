package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenByteLen = 32

// RandomToken returns a URL-safe opaque token drawn from a 256-bit random
// space, comfortably above the 128-bit minimum needed to make guessing
// infeasible.
func RandomToken() (string, error) {
	b, err := RandomBytes(tokenByteLen)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}
