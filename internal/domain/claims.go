package domain

import "strconv"

// Claims is the decoded payload of a session token. It is kept as an open
// map because tokens in circulation were minted by several producers that
// never agreed on field names; the resolver owns the alias ordering.
type Claims map[string]any

// String returns the named attribute coerced to a string. Numeric JSON
// values are stringified, anything else absent or non-scalar yields "".
func (c Claims) String(key string) string {
	if c == nil {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Strings returns the named attribute as a string slice.
func (c Claims) Strings(key string) []string {
	if c == nil {
		return nil
	}
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Has reports whether the named attribute is present.
func (c Claims) Has(key string) bool {
	if c == nil {
		return false
	}
	_, ok := c[key]
	return ok
}
