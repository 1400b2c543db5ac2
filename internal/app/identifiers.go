package app

import "assessment-service/internal/domain"

const maxIdentLen = 64

// validIdent accepts the identifier shapes the portal issues: UUIDs,
// short slugs, and namespaced keys. Callers are authenticated upstream,
// but syntactic shape is still checked here.
func validIdent(s string) bool {
	if s == "" || len(s) > maxIdentLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return false
		}
	}
	return true
}

// checkIdent returns a validation error naming the offending field.
func checkIdent(field, value string) error {
	if !validIdent(value) {
		return domain.Validation("%s is not a well-formed identifier", field)
	}
	return nil
}
