package report

import (
	"regexp"
	"strings"

	goldap "github.com/go-ldap/ldap/v3"
)

// dnSpecials are the characters that may appear backslash-escaped inside a
// distinguished name component.
const dnSpecials = " \"#+,;<=>\\\x00"

// UnescapeDNValue removes RFC 4514 escaping from a DN component value:
// backslash-prefixed specials become the literal character and two-digit hex
// escapes become the byte they encode. Values that never passed through a DN
// are returned unchanged.
func UnescapeDNValue(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))

	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i == len(value)-1 {
			sb.WriteByte(c)
			continue
		}

		next := value[i+1]
		if strings.IndexByte(dnSpecials, next) >= 0 {
			sb.WriteByte(next)
			i++
			continue
		}

		if i+2 < len(value) {
			if hi, ok1 := unhex(value[i+1]); ok1 {
				if lo, ok2 := unhex(value[i+2]); ok2 {
					sb.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}

		sb.WriteByte(c)
	}

	return sb.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// CNFromDN extracts the value of the first RDN of a distinguished name,
// unescaped. By convention this is the CN for every object class the dump
// touches. Malformed DNs fall back to a syntactic split so a single broken
// value never aborts a report.
func CNFromDN(dn string) string {
	parsed, err := goldap.ParseDN(dn)
	if err == nil && len(parsed.RDNs) > 0 && len(parsed.RDNs[0].Attributes) > 0 {
		return parsed.RDNs[0].Attributes[0].Value
	}

	first := dn
	for i := 0; i < len(dn); i++ {
		if dn[i] == ',' && (i == 0 || dn[i-1] != '\\') {
			first = dn[:i]
			break
		}
	}

	if idx := strings.IndexByte(first, '='); idx >= 0 {
		first = first[idx+1:]
	}

	return UnescapeDNValue(first)
}

var idSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)

// SanitizeID converts an arbitrary name into a string usable as an HTML
// fragment identifier. Every run of characters outside [A-Za-z0-9_-]
// collapses into a single underscore; distinct names may collide, which is
// acceptable for navigation anchors.
func SanitizeID(name string) string {
	return idSanitizer.ReplaceAllString(name, "_")
}
