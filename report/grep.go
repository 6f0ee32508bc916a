package report

import (
	"strings"

	"github.com/Macmod/domaindump/ldap"
)

// grepList renders entries as flat delimited text: a header line of raw
// attribute names followed by one line per entry. Every line has exactly as
// many fields as the header; a missing attribute contributes an empty field.
func (w *Writer) grepList(entries []*ldap.Entry, attrs []string) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, strings.Join(attrs, w.cfg.Delimiter))

	fields := make([]string, len(attrs))
	for _, entry := range entries {
		for i, attr := range attrs {
			fields[i] = w.formatter.Grep(entry, attr)
		}
		lines = append(lines, strings.Join(fields, w.cfg.Delimiter))
	}

	return strings.Join(lines, "\n")
}
