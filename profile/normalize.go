package profile

import "strings"

// Normalize computes the normalized_id for a sensor name: lowercase,
// with spaces and hyphens mapped to underscore, order preserving, so
// that consecutive separators produce consecutive underscores (no
// collapsing). Idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch r {
		case ' ', '-':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
