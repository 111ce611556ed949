package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const refreshTokenBytes = 32

// NewRefreshToken returns an opaque hex token of 256 bits.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// PairKey normalizes two user ids into an order-independent key.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}
