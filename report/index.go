package report

import (
	"fmt"

	"github.com/Velocidex/ordereddict"

	"github.com/Macmod/domaindump/ldap"
)

// UnknownKey is the bucket for entities whose grouping attribute is missing
// or cannot be resolved.
const UnknownKey = "Unknown"

// RIDToNameMap builds the RID → group name index used to resolve users'
// primary groups. A group whose SID cannot be parsed is reported and left
// out of the map; one broken object must not take down the whole index.
func RIDToNameMap(groups []*ldap.Entry) (map[int]string, []error) {
	ridmap := make(map[int]string, len(groups))

	var errs []error
	for _, group := range groups {
		rid, err := group.RID()
		if err != nil {
			errs = append(errs, fmt.Errorf("group %q: %w", group.DN, err))
			continue
		}

		name, ok := group.Value("cn")
		if !ok {
			name = CNFromDN(group.DN)
		}

		ridmap[rid] = name
	}

	return ridmap, errs
}

// GroupByOS partitions computer accounts by their operatingSystem attribute.
// Key order follows first appearance in the input; computers with a missing
// or empty attribute land under "Unknown".
func GroupByOS(computers []*ldap.Entry) *ordereddict.Dict {
	grouped := ordereddict.NewDict()

	for _, computer := range computers {
		key, ok := computer.Value("operatingSystem")
		if !ok || key == "" {
			key = UnknownKey
		}
		appendGroup(grouped, key, computer)
	}

	return grouped
}

// GroupByMembership partitions users by group membership: every memberOf DN
// contributes its CN as a bucket, plus the user's primary group resolved
// through the RID map. A user in several groups appears in each of them. An
// unresolvable primary-group RID is reported and the user files under
// "Unknown" for that membership; the report itself survives.
func GroupByMembership(users []*ldap.Entry, ridmap map[int]string) (*ordereddict.Dict, []error) {
	grouped := ordereddict.NewDict()

	var errs []error
	for _, user := range users {
		var buckets []string

		// Users only in their primary group carry no memberOf at all.
		if memberOf, ok := user.Values("memberOf"); ok {
			for _, dn := range memberOf {
				buckets = append(buckets, CNFromDN(dn))
			}
		}

		primary, err := primaryGroupName(user, ridmap)
		if err != nil {
			errs = append(errs, err)
			primary = UnknownKey
		}
		buckets = append(buckets, primary)

		for _, key := range buckets {
			appendGroup(grouped, key, user)
		}
	}

	return grouped, errs
}

func primaryGroupName(user *ldap.Entry, ridmap map[int]string) (string, error) {
	rid, ok := user.Int64("primaryGroupID")
	if !ok {
		return "", fmt.Errorf("user %q: primaryGroupID missing or not numeric", user.DN)
	}

	name, ok := ridmap[int(rid)]
	if !ok {
		return "", fmt.Errorf("user %q: primary group RID %d not found among domain groups", user.DN, rid)
	}

	return name, nil
}

func appendGroup(grouped *ordereddict.Dict, key string, entry *ldap.Entry) {
	if existing, ok := grouped.Get(key); ok {
		grouped.Update(key, append(existing.([]*ldap.Entry), entry))
		return
	}
	grouped.Set(key, []*ldap.Entry{entry})
}

// Members returns the entry list stored under a grouping key.
func Members(grouped *ordereddict.Dict, key string) []*ldap.Entry {
	v, ok := grouped.Get(key)
	if !ok {
		return nil
	}
	return v.([]*ldap.Entry)
}
