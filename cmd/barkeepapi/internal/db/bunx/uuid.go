package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for primary keys. Catalog
// listings without an explicit order come back in insertion order this way on
// both PostgreSQL and SQLite.
//
// Panics only when the system entropy source fails.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CanonicalID parses id in any form uuid.Parse accepts (upper case, braces,
// urn:uuid: prefix) and returns the lowercase hyphenated form stored in the
// database. ok is false when id is not a UUID.
func CanonicalID(id string) (canonical string, ok bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
