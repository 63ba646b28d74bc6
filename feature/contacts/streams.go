package contacts

import "strings"

var contactStreams = map[string]struct{}{
	"customers": {},
	"customer":  {},
	"contacts":  {},
	"contact":   {},
}

// IsContactStream reports whether stream carries customer records.
// Matching is case-insensitive.
func IsContactStream(stream string) bool {
	_, ok := contactStreams[strings.ToLower(strings.TrimSpace(stream))]
	return ok
}
