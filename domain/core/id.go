package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// RequestID identifies one prediction request in logs and responses
type RequestID ID

// NewRequestID creates a time-ordered request identifier
func NewRequestID() RequestID { return RequestID(NewID()) }

func (id RequestID) String() string { return ID(id).String() }

// ParseRequestID accepts a caller-supplied request ID. It must be a UUID.
func ParseRequestID(s string) (RequestID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("request ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid request ID %q: %w", s, err)
	}
	return RequestID(parsed.String()), nil
}
