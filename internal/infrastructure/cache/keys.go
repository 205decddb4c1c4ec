package cache

import (
	"sort"
	"strings"
)

// CanonicalKey normalizes a raw field tuple into a deterministic cache
// key by joining the fields as k=v pairs in sorted field-name order.
// Two requests carrying the same fields always map to the same key
// regardless of how the caller ordered them.
func CanonicalKey(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(fields[name])
	}
	return b.String()
}
