// Package report turns raw directory entries into the dump's output files:
// it decodes opaque attribute values into human-readable form, builds the
// cross-referenced groupings (users by group, computers by OS) and renders
// each report as HTML, JSON and flat greppable text.
package report

import (
	"fmt"
	"html"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/Macmod/domaindump/ldap"
)

// Flag is one named bit of a bitfield attribute. The tables below are
// ordered; decoded output lists flags in table order, not value order.
type Flag struct {
	Name string
	Mask int64
}

// UACFlags decodes userAccountControl.
var UACFlags = []Flag{
	{"ACCOUNT_DISABLED", 0x00000002},
	{"ACCOUNT_LOCKED", 0x00000010},
	{"PASSWD_NOTREQD", 0x00000020},
	{"PASSWD_CANT_CHANGE", 0x00000040},
	{"NORMAL_ACCOUNT", 0x00000200},
	{"WORKSTATION_ACCOUNT", 0x00001000},
	{"SERVER_TRUST_ACCOUNT", 0x00002000},
	{"DONT_EXPIRE_PASSWD", 0x00010000},
	{"SMARTCARD_REQUIRED", 0x00040000},
	{"PASSWORD_EXPIRED", 0x00800000},
}

// PwdFlags decodes the pwdProperties attribute of the domain policy.
var PwdFlags = []Flag{
	{"PASSWORD_COMPLEX", 0x01},
	{"PASSWORD_NO_ANON_CHANGE", 0x02},
	{"PASSWORD_NO_CLEAR_CHANGE", 0x04},
	{"LOCKOUT_ADMINS", 0x08},
	{"PASSWORD_STORE_CLEARTEXT", 0x10},
	{"REFUSE_PASSWORD_CHANGE", 0x20},
}

// AttrTranslations maps raw attribute names to the column headers shown in
// HTML reports. Attributes without a translation keep their raw name.
var AttrTranslations = map[string]string{
	"sAMAccountName":             "SAM Name",
	"cn":                         "CN",
	"operatingSystem":            "Operating System",
	"operatingSystemServicePack": "Service Pack",
	"operatingSystemVersion":     "OS Version",
	"userAccountControl":         "Flags",
	"objectSid":                  "SID",
	"memberOf":                   "Member of groups",
	"dNSHostName":                "DNS Hostname",
	"whenCreated":                "Created on",
	"whenChanged":                "Changed on",
	"IPv4":                       "IPv4 Address",
	"lockOutObservationWindow":   "Lockout time window",
	"lockoutDuration":            "Lockout Duration",
	"lockoutThreshold":           "Lockout Threshold",
	"maxPwdAge":                  "Max password age",
	"minPwdAge":                  "Min password age",
	"minPwdLength":               "Min password length",
}

// ParseFlagValue renders a bitfield as the comma-separated names of its set
// flags, in table order.
func ParseFlagValue(value int64, flags []Flag) string {
	var names []string
	for _, f := range flags {
		if value&f.Mask != 0 {
			names = append(names, f.Name)
		}
	}
	return strings.Join(names, ", ")
}

// TicksToDays converts a duration in 100-nanosecond ticks to days. Policy
// durations are stored negated; the sign is irrelevant for display.
func TicksToDays(ticks int64) float64 {
	return math.Abs(float64(ticks)) * 1e-7 / 86400
}

// TicksToMinutes converts a duration in 100-nanosecond ticks to minutes.
func TicksToMinutes(ticks int64) float64 {
	return math.Abs(float64(ticks)) * 1e-7 / 60
}

// filetimeEpochOffset is the number of 100ns ticks between 1601-01-01 (the
// FILETIME epoch) and 1970-01-01 (the Unix epoch).
const filetimeEpochOffset = 116444736000000000

// filetimeNever marks an absolute timestamp attribute that never expires.
const filetimeNever = int64(9223372036854775807)

// filetimeAttrs are the absolute-timestamp attributes stored as FILETIME
// integers (100ns ticks since 1601).
var filetimeAttrs = map[string]bool{
	"lastlogon":          true,
	"lastlogontimestamp": true,
	"pwdlastset":         true,
	"badpasswordtime":    true,
	"accountexpires":     true,
	"lockouttime":        true,
}

// generalizedTimeAttrs are stored as LDAP GeneralizedTime strings.
var generalizedTimeAttrs = map[string]bool{
	"whencreated": true,
	"whenchanged": true,
}

const timestampLayout = "01/02/06 15:04:05"

var generalizedTimeLayouts = []string{
	"20060102150405.0Z",
	"20060102150405Z",
	"20060102150405.0-0700",
	"20060102150405-0700",
}

// FormatFiletime renders a FILETIME tick count as a timestamp string. Zero,
// "never" and values a clock cannot represent all render as "0", matching
// the not-set state.
func FormatFiletime(ticks int64) string {
	if ticks <= 0 || ticks == filetimeNever {
		return "0"
	}

	t := time.Unix(0, (ticks-filetimeEpochOffset)*100).UTC()
	if t.Year() < 1601 || t.Year() > 9999 {
		return "0"
	}

	return t.Format(timestampLayout)
}

func formatGeneralizedTime(value string) string {
	for _, layout := range generalizedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(timestampLayout)
		}
	}
	return value
}

// Formatter decodes attribute values for one report. LinkBase is the file
// base name that memberOf hyperlinks point into (the users-by-group report).
type Formatter struct {
	LinkBase string
}

// HTML decodes one attribute of an entry for the rich-markup path. A missing
// attribute renders as a non-breaking space so table cells keep their shape.
func (f *Formatter) HTML(entry *ldap.Entry, attr string) string {
	if !entry.Has(attr) {
		return "&nbsp;"
	}

	name := strings.ToLower(attr)
	switch name {
	case "member", "memberof":
		values, _ := entry.Values(attr)
		return f.groupLinks(values)
	case "objectsid":
		return html.EscapeString(entry.SID())
	}

	if out, ok := f.decodeShared(entry, name); ok {
		return out
	}

	values, _ := entry.Values(attr)
	return html.EscapeString(strings.Join(values, ", "))
}

// Grep decodes one attribute of an entry for the flat-text path. The same
// decision table as HTML applies, without markup or escaping; a missing
// attribute renders as an empty field.
func (f *Formatter) Grep(entry *ldap.Entry, attr string) string {
	if !entry.Has(attr) {
		return ""
	}

	name := strings.ToLower(attr)
	switch name {
	case "member", "memberof":
		values, _ := entry.Values(attr)
		cns := make([]string, len(values))
		for i, dn := range values {
			cns[i] = CNFromDN(dn)
		}
		return strings.Join(cns, ", ")
	case "objectsid":
		return entry.SID()
	}

	if out, ok := f.decodeShared(entry, name); ok {
		return out
	}

	values, _ := entry.Values(attr)
	return strings.Join(values, ", ")
}

// decodeShared applies the decision-table rules common to both encodings.
// All of them produce output from a restricted alphabet, so no escaping is
// needed in either path.
func (f *Formatter) decodeShared(entry *ldap.Entry, name string) (string, bool) {
	switch name {
	case "useraccountcontrol":
		if v, ok := entry.Int64(name); ok {
			return ParseFlagValue(v, UACFlags), true
		}
	case "pwdproperties":
		if v, ok := entry.Int64(name); ok {
			return ParseFlagValue(v, PwdFlags), true
		}
	case "minpwdage", "maxpwdage":
		if v, ok := entry.Int64(name); ok {
			return fmt.Sprintf("%.2f days", TicksToDays(v)), true
		}
	case "lockoutobservationwindow", "lockoutduration":
		if v, ok := entry.Int64(name); ok {
			return fmt.Sprintf("%.1f minutes", TicksToMinutes(v)), true
		}
	}

	if filetimeAttrs[name] {
		if v, ok := entry.Int64(name); ok {
			return FormatFiletime(v), true
		}
		return "0", true
	}

	if generalizedTimeAttrs[name] {
		if v, ok := entry.Value(name); ok {
			return formatGeneralizedTime(v), true
		}
	}

	return "", false
}

// groupLinks renders a list of group DNs as hyperlinks into the by-group
// report, anchored at each group's sanitized CN. The title attribute keeps
// the full DN available on hover.
func (f *Formatter) groupLinks(dns []string) string {
	links := make([]string, len(dns))
	for i, dn := range dns {
		cn := CNFromDN(dn)
		links[i] = fmt.Sprintf("<a href=\"%s.html#cn_%s\" title=\"%s\">%s</a>",
			f.LinkBase,
			url.QueryEscape(SanitizeID(cn)),
			html.EscapeString(dn),
			html.EscapeString(cn))
	}
	return strings.Join(links, ", ")
}

// JSON decodes one attribute for the structured-data path: same decision
// table, no markup, no escaping. Missing attributes are handled by the
// caller (they are omitted from the object entirely).
func (f *Formatter) JSON(entry *ldap.Entry, attr string) string {
	return f.Grep(entry, attr)
}

// Header returns the column header for an attribute, applying the alias
// table.
func Header(attr string) string {
	if alias, ok := AttrTranslations[attr]; ok {
		return alias
	}
	return attr
}
