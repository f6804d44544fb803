package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier for auctions, bids and proxy commitments
func GenerateID() string {
	return uuid.New().String()
}

// RequestID returns the incoming request id when it is a valid UUID, otherwise a fresh one
func RequestID(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if _, err := uuid.Parse(incoming); err == nil {
		return incoming
	}
	return GenerateID()
}
