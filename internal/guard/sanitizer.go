// Package guard provides input sanitization.
package guard

import "strings"

// sanitizerExcludedFields are field names whose string values pass through
// untouched. Password material must not be trimmed or rewritten.
var sanitizerExcludedFields = map[string]struct{}{
	"password":        {},
	"passwordconfirm": {},
	"currentpassword": {},
	"newpassword":     {},
	"oldpassword":     {},
}

// SanitizeValue walks a decoded JSON-like value, stripping null bytes and
// trimming whitespace from every string leaf. fieldName is the key the value
// was reached under, used for the password exclusion; pass "" at the root.
func SanitizeValue(value any, fieldName string) any {
	switch typed := value.(type) {
	case string:
		if _, excluded := sanitizerExcludedFields[strings.ToLower(fieldName)]; excluded {
			return typed
		}
		return sanitizeString(typed)
	case map[string]any:
		for key, nested := range typed {
			typed[key] = SanitizeValue(nested, key)
		}
		return typed
	case []any:
		for i, nested := range typed {
			typed[i] = SanitizeValue(nested, fieldName)
		}
		return typed
	default:
		return value
	}
}

func sanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
