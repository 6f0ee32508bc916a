package ldap

import (
	"fmt"
	"strconv"
	"strings"

	objectsid "github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// Entry is an in-memory snapshot of one directory object: its DN plus an
// attribute bag. Attribute names are folded to lower case on ingest so
// lookups are case-insensitive. Absence of an attribute is a normal state,
// not an error; accessors report presence explicitly.
type Entry struct {
	DN            string
	Attributes    map[string][]string
	RawAttributes map[string][][]byte
}

// NewEntry builds an Entry from a plain attribute map. The raw byte view is
// derived from the string values, which is good enough for synthetic entries
// and for snapshots reloaded from disk.
func NewEntry(dn string, attrs map[string][]string) *Entry {
	e := &Entry{
		DN:            dn,
		Attributes:    make(map[string][]string, len(attrs)),
		RawAttributes: make(map[string][][]byte, len(attrs)),
	}
	for name, vals := range attrs {
		e.Set(name, vals...)
	}
	return e
}

// Init populates the Entry from a go-ldap search result entry.
func (e *Entry) Init(raw *ldap.Entry) {
	e.DN = raw.DN
	e.Attributes = make(map[string][]string, len(raw.Attributes))
	e.RawAttributes = make(map[string][][]byte, len(raw.Attributes))

	for _, attr := range raw.Attributes {
		key := strings.ToLower(attr.Name)
		e.Attributes[key] = attr.Values
		e.RawAttributes[key] = attr.ByteValues
	}
}

// Set stores a (possibly synthetic) attribute, replacing previous values.
func (e *Entry) Set(name string, values ...string) {
	key := strings.ToLower(name)
	e.Attributes[key] = values

	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	e.RawAttributes[key] = raw
}

// Has reports whether the attribute is present on the entry, even with an
// empty value.
func (e *Entry) Has(name string) bool {
	_, ok := e.Attributes[strings.ToLower(name)]
	return ok
}

// Values returns all values of an attribute.
func (e *Entry) Values(name string) ([]string, bool) {
	vals, ok := e.Attributes[strings.ToLower(name)]
	return vals, ok
}

// Value returns the first value of an attribute. A present attribute with
// an empty value list reports no value; Has distinguishes that state from
// absence.
func (e *Entry) Value(name string) (string, bool) {
	vals, ok := e.Attributes[strings.ToLower(name)]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// RawValue returns the first raw byte value of an attribute.
func (e *Entry) RawValue(name string) ([]byte, bool) {
	vals, ok := e.RawAttributes[strings.ToLower(name)]
	if !ok || len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

// Int64 parses the first value of an attribute as a decimal integer.
func (e *Entry) Int64(name string) (int64, bool) {
	val, ok := e.Value(name)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SID returns the entry's objectSid in S-1-5-21-... form, decoding the binary
// representation when one is present and falling back to a string value
// (snapshots rebuilt from disk carry SIDs as strings already).
func (e *Entry) SID() string {
	raw, ok := e.RawValue("objectSid")
	if ok && len(raw) >= 8 && len(raw) >= 8+4*int(raw[1]) && raw[0] == 1 {
		return objectsid.Decode(raw).String()
	}

	if val, ok := e.Value("objectSid"); ok && strings.HasPrefix(val, "S-") {
		return val
	}

	return ""
}

// RID extracts the relative identifier from the entry's SID. The extraction
// is purely syntactic: the last dash-delimited token parsed as an integer,
// with no assumption about how many subauthorities the SID carries.
func (e *Entry) RID() (int, error) {
	sid := e.SID()
	if sid == "" {
		return 0, fmt.Errorf("objectSid attribute is missing or empty")
	}

	idx := strings.LastIndex(sid, "-")
	rid, err := strconv.Atoi(sid[idx+1:])
	if err != nil || rid < 0 {
		return 0, fmt.Errorf("malformed SID %q: no numeric RID", sid)
	}

	return rid, nil
}
