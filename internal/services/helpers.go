package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func strPtr(value string) *string {
	return &value
}

// tokenHash is the at-rest form of every workflow token; raw tokens only
// travel in the outbound link.
func tokenHash(token string) string {
	checksum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(checksum[:])
}
