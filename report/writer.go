package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Velocidex/ordereddict"

	"github.com/Macmod/domaindump/ldap"
)

// Config controls which reports get written where, in which formats, and
// with which columns.
type Config struct {
	OutputDir string

	HTML bool
	JSON bool
	Grep bool

	Delimiter  string
	Stylesheet string

	UsersFile         string
	GroupsFile        string
	ComputersFile     string
	PolicyFile        string
	UsersByGroupFile  string
	ComputersByOSFile string

	UserAttrs     []string
	ComputerAttrs []string
	GroupAttrs    []string
	PolicyAttrs   []string
}

// DefaultConfig returns the standard report configuration: all three
// formats, tab-delimited grep output, current directory.
func DefaultConfig() Config {
	return Config{
		OutputDir: ".",

		HTML: true,
		JSON: true,
		Grep: true,

		Delimiter: "\t",

		UsersFile:         "domain_users",
		GroupsFile:        "domain_groups",
		ComputersFile:     "domain_computers",
		PolicyFile:        "domain_policy",
		UsersByGroupFile:  "domain_users_by_group",
		ComputersByOSFile: "domain_computers_by_os",

		UserAttrs: []string{
			"cn", "name", "sAMAccountName", "memberOf", "whenCreated",
			"whenChanged", "lastLogon", "userAccountControl", "pwdLastSet",
			"objectSid", "description",
		},
		ComputerAttrs: []string{
			"cn", "sAMAccountName", "dNSHostName", "operatingSystem",
			"operatingSystemServicePack", "operatingSystemVersion",
			"lastLogon", "userAccountControl", "whenCreated", "objectSid",
			"description",
		},
		GroupAttrs: []string{
			"cn", "sAMAccountName", "whenCreated", "whenChanged",
			"description", "objectSid",
		},
		PolicyAttrs: []string{
			"cn", "lockOutObservationWindow", "lockoutDuration",
			"lockoutThreshold", "maxPwdAge", "minPwdAge", "minPwdLength",
			"pwdHistoryLength", "pwdProperties",
		},
	}
}

// InsertComputerColumns splices the synthetic columns produced by hostname
// resolution into the computer column list, right after dNSHostName.
func (c *Config) InsertComputerColumns(cols ...string) {
	attrs := make([]string, 0, len(c.ComputerAttrs)+len(cols))
	inserted := false
	for _, attr := range c.ComputerAttrs {
		attrs = append(attrs, attr)
		if strings.EqualFold(attr, "dNSHostName") {
			attrs = append(attrs, cols...)
			inserted = true
		}
	}
	if !inserted {
		attrs = append(attrs, cols...)
	}
	c.ComputerAttrs = attrs
}

// Stats summarizes one written report for the end-of-run table.
type Stats struct {
	Name     string
	Entities int
	Formats  []string
}

// Writer renders the six reports of one dump. All reports of a run share one
// formatter so memberOf links point at the same by-group page.
type Writer struct {
	cfg       Config
	formatter Formatter
	warnf     func(format string, args ...interface{})
}

// NewWriter builds a report writer. warnf receives per-entity faults that do
// not abort a report (unresolvable primary groups, malformed SIDs, broken
// stylesheets).
func NewWriter(cfg Config, warnf func(format string, args ...interface{})) *Writer {
	if warnf == nil {
		warnf = func(string, ...interface{}) {}
	}

	return &Writer{
		cfg:       cfg,
		formatter: Formatter{LinkBase: cfg.UsersByGroupFile},
		warnf:     warnf,
	}
}

func (w *Writer) WriteUsers(users []*ldap.Entry) (Stats, error) {
	return w.writeFlat(w.cfg.UsersFile, "Domain users", users, w.cfg.UserAttrs)
}

func (w *Writer) WriteGroups(groups []*ldap.Entry) (Stats, error) {
	return w.writeFlat(w.cfg.GroupsFile, "Domain groups", groups, w.cfg.GroupAttrs)
}

func (w *Writer) WriteComputers(computers []*ldap.Entry) (Stats, error) {
	return w.writeFlat(w.cfg.ComputersFile, "Domain computer accounts", computers, w.cfg.ComputerAttrs)
}

func (w *Writer) WritePolicy(policy []*ldap.Entry) (Stats, error) {
	return w.writeFlat(w.cfg.PolicyFile, "Domain policy", policy, w.cfg.PolicyAttrs)
}

// WriteUsersByGroup builds the by-membership grouping and renders it.
// Per-entity resolution faults go to the warning stream; the report is still
// written.
func (w *Writer) WriteUsersByGroup(users, groups []*ldap.Entry) (Stats, error) {
	ridmap, errs := RIDToNameMap(groups)
	for _, err := range errs {
		w.warnf("%v", err)
	}

	grouped, errs := GroupByMembership(users, ridmap)
	for _, err := range errs {
		w.warnf("%v", err)
	}

	return w.writeGrouped(w.cfg.UsersByGroupFile, grouped, w.cfg.UserAttrs)
}

func (w *Writer) WriteComputersByOS(computers []*ldap.Entry) (Stats, error) {
	return w.writeGrouped(w.cfg.ComputersByOSFile, GroupByOS(computers), w.cfg.ComputerAttrs)
}

// writeFlat renders one plain entry list in every enabled format.
func (w *Writer) writeFlat(base, header string, entries []*ldap.Entry, attrs []string) (Stats, error) {
	stats := Stats{Name: base, Entities: len(entries)}

	if w.cfg.HTML {
		var sb strings.Builder
		w.htmlTable(&sb, entries, attrs, header, true)
		if err := w.writeHTMLPage(w.path(base, "html"), sb.String()); err != nil {
			return stats, fmt.Errorf("write %s.html: %w", base, err)
		}
		stats.Formats = append(stats.Formats, "html")
	}

	if w.cfg.JSON {
		data, err := w.jsonList(entries, attrs)
		if err != nil {
			return stats, fmt.Errorf("encode %s.json: %w", base, err)
		}
		if err := os.WriteFile(w.path(base, "json"), data, 0644); err != nil {
			return stats, fmt.Errorf("write %s.json: %w", base, err)
		}
		stats.Formats = append(stats.Formats, "json")
	}

	if w.cfg.Grep {
		body := w.grepList(entries, attrs)
		if err := os.WriteFile(w.path(base, "grep"), []byte(body), 0644); err != nil {
			return stats, fmt.Errorf("write %s.grep: %w", base, err)
		}
		stats.Formats = append(stats.Formats, "grep")
	}

	return stats, nil
}

// writeGrouped renders a grouped report. Grouped reports exist as HTML and
// JSON only; the flat grep format cannot express the nesting.
func (w *Writer) writeGrouped(base string, grouped *ordereddict.Dict, attrs []string) (Stats, error) {
	stats := Stats{Name: base, Entities: len(grouped.Keys())}

	if w.cfg.HTML {
		var sb strings.Builder
		w.htmlGroupedTables(&sb, grouped, attrs)
		if err := w.writeHTMLPage(w.path(base, "html"), sb.String()); err != nil {
			return stats, fmt.Errorf("write %s.html: %w", base, err)
		}
		stats.Formats = append(stats.Formats, "html")
	}

	if w.cfg.JSON {
		data, err := w.jsonGroupedList(grouped, attrs)
		if err != nil {
			return stats, fmt.Errorf("encode %s.json: %w", base, err)
		}
		if err := os.WriteFile(w.path(base, "json"), data, 0644); err != nil {
			return stats, fmt.Errorf("write %s.json: %w", base, err)
		}
		stats.Formats = append(stats.Formats, "json")
	}

	return stats, nil
}

func (w *Writer) path(base, ext string) string {
	return filepath.Join(w.cfg.OutputDir, base+"."+ext)
}
