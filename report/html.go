package report

import (
	_ "embed"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/Velocidex/ordereddict"

	"github.com/Macmod/domaindump/ldap"
)

//go:embed style.css
var defaultStylesheet string

// htmlTable renders one entry list as table markup. Only the first section
// of a page opens an actual <table>; later sections are extra bodies of the
// same table so their columns stay aligned across sections. The closing tag
// is emitted by the page writer.
func (w *Writer) htmlTable(sb *strings.Builder, entries []*ldap.Entry, attrs []string, header string, first bool) {
	if first {
		sb.WriteString("<table>")
	}

	if header != "" {
		fmt.Fprintf(sb, "<thead><tr><td colspan=\"%d\" id=\"cn_%s\">%s</td></tr></thead>",
			len(attrs), SanitizeID(header), html.EscapeString(header))
	}

	sb.WriteString("<tbody><tr>")
	for _, attr := range attrs {
		fmt.Fprintf(sb, "<th>%s</th>", html.EscapeString(Header(attr)))
	}
	sb.WriteString("</tr>\n")

	for _, entry := range entries {
		sb.WriteString("<tr>")
		for _, attr := range attrs {
			fmt.Fprintf(sb, "<td>%s</td>", w.formatter.HTML(entry, attr))
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n")
}

// htmlGroupedTables renders one table section per grouping key, in key
// order, all sharing the first section's <table>.
func (w *Writer) htmlGroupedTables(sb *strings.Builder, grouped *ordereddict.Dict, attrs []string) {
	first := true
	for _, key := range grouped.Keys() {
		w.htmlTable(sb, Members(grouped, key), attrs, key, first)
		first = false
	}
}

// writeHTMLPage wraps a rendered body in a full document and writes it out.
// A body that opened a table without closing it gets the closing tag here.
func (w *Writer) writeHTMLPage(path, body string) error {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"UTF-8\">")
	if css := w.stylesheet(); css != "" {
		sb.WriteString("<style type=\"text/css\">")
		sb.WriteString(css)
		sb.WriteString("</style>")
	}
	sb.WriteString("</head><body>")
	sb.WriteString(body)
	if strings.Contains(body, "<table>") && !strings.Contains(body, "</table>") {
		sb.WriteString("</table>")
	}
	sb.WriteString("</body></html>")

	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// stylesheet returns the CSS to embed: the user-supplied file when one is
// configured and readable, otherwise the built-in default. A stylesheet that
// fails to load degrades to unstyled output with a warning instead of
// failing the report.
func (w *Writer) stylesheet() string {
	if w.cfg.Stylesheet == "" {
		return defaultStylesheet
	}

	data, err := os.ReadFile(w.cfg.Stylesheet)
	if err != nil {
		w.warnf("Stylesheet %s could not be read, styling will be skipped: %v", w.cfg.Stylesheet, err)
		return ""
	}

	return string(data)
}
