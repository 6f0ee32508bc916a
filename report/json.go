package report

import (
	"github.com/Velocidex/ordereddict"
	jsoniter "github.com/json-iterator/go"

	"github.com/Macmod/domaindump/ldap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonEntity builds the JSON object for one entry: decoded attribute values
// in column order, without markup or escaping. Missing attributes are
// omitted rather than nulled so consumers can distinguish absence from an
// empty value.
func (w *Writer) jsonEntity(entry *ldap.Entry, attrs []string) *ordereddict.Dict {
	obj := ordereddict.NewDict()
	for _, attr := range attrs {
		if !entry.Has(attr) {
			continue
		}
		obj.Set(attr, w.formatter.JSON(entry, attr))
	}
	return obj
}

func (w *Writer) jsonList(entries []*ldap.Entry, attrs []string) ([]byte, error) {
	objects := make([]*ordereddict.Dict, len(entries))
	for i, entry := range entries {
		objects[i] = w.jsonEntity(entry, attrs)
	}
	return json.Marshal(objects)
}

// jsonGroupedList renders a grouped report as an array of single-key
// objects, one per grouping key, in key order. The single-key-object shape
// keeps the key order visible to consumers that parse objects as unordered
// maps.
func (w *Writer) jsonGroupedList(grouped *ordereddict.Dict, attrs []string) ([]byte, error) {
	groups := make([]*ordereddict.Dict, 0, len(grouped.Keys()))
	for _, key := range grouped.Keys() {
		members := Members(grouped, key)
		objects := make([]*ordereddict.Dict, len(members))
		for i, entry := range members {
			objects[i] = w.jsonEntity(entry, attrs)
		}
		groups = append(groups, ordereddict.NewDict().Set(key, objects))
	}
	return json.Marshal(groups)
}
