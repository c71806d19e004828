// Package uuid generates and validates the time-ordered identifiers used as
// primary keys. Ids created within the same millisecond still sort in
// creation order, which the ledger relies on to break timestamp ties.
package uuid

import (
	googleuuid "github.com/google/uuid"
)

// New generates a new UUIDv7 string.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fallback to a random UUIDv4 if the entropy source fails
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse validates and normalizes a UUID string.
func Parse(s string) (string, error) {
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
