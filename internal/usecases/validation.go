package usecases

import "github.com/google/uuid"

// ValidateUUID reports whether raw is a UUID in the canonical 36-character
// form records are keyed by. Braced and urn: spellings are rejected.
func ValidateUUID(raw string) bool {
	id, err := uuid.Parse(raw)
	return err == nil && id.String() == raw
}
