package report

import (
	"testing"

	"github.com/Macmod/domaindump/ldap"
)

func group(cn, sid string) *ldap.Entry {
	return ldap.NewEntry("CN="+cn+",CN=Users,DC=corp,DC=local", map[string][]string{
		"cn":        {cn},
		"objectSid": {sid},
	})
}

func TestRIDToNameMap(t *testing.T) {
	groups := []*ldap.Entry{
		group("Domain Users", "S-1-5-21-1-2-3-513"),
		group("Domain Admins", "S-1-5-21-1-2-3-512"),
	}

	ridmap, errs := RIDToNameMap(groups)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if got := ridmap[513]; got != "Domain Users" {
		t.Errorf("ridmap[513] = %q, want %q", got, "Domain Users")
	}
	if got := ridmap[512]; got != "Domain Admins" {
		t.Errorf("ridmap[512] = %q, want %q", got, "Domain Admins")
	}
}

func TestRIDToNameMapMalformedSID(t *testing.T) {
	groups := []*ldap.Entry{
		group("Broken", "S-1-5-garbage"),
		group("Domain Users", "S-1-5-21-1-2-3-513"),
	}

	ridmap, errs := RIDToNameMap(groups)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if len(ridmap) != 1 {
		t.Fatalf("broken group should be skipped, map has %d entries", len(ridmap))
	}
	if got := ridmap[513]; got != "Domain Users" {
		t.Errorf("ridmap[513] = %q, want %q", got, "Domain Users")
	}
}

func TestGroupByOS(t *testing.T) {
	computers := []*ldap.Entry{
		ldap.NewEntry("CN=ws1,DC=corp,DC=local", map[string][]string{
			"cn": {"ws1"}, "operatingSystem": {"Windows 10 Pro"},
		}),
		ldap.NewEntry("CN=old1,DC=corp,DC=local", map[string][]string{
			"cn": {"old1"},
		}),
		ldap.NewEntry("CN=ws2,DC=corp,DC=local", map[string][]string{
			"cn": {"ws2"}, "operatingSystem": {"Windows 10 Pro"},
		}),
		ldap.NewEntry("CN=blank1,DC=corp,DC=local", map[string][]string{
			"cn": {"blank1"}, "operatingSystem": {""},
		}),
	}

	grouped := GroupByOS(computers)

	wantKeys := []string{"Windows 10 Pro", UnknownKey}
	keys := grouped.Keys()
	if len(keys) != len(wantKeys) {
		t.Fatalf("got keys %v, want %v", keys, wantKeys)
	}
	for i, key := range wantKeys {
		if keys[i] != key {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], key)
		}
	}

	if n := len(Members(grouped, "Windows 10 Pro")); n != 2 {
		t.Errorf("Windows 10 Pro has %d members, want 2", n)
	}
	// Missing and empty operatingSystem both file under Unknown; an empty
	// key would render an unusable section header.
	if n := len(Members(grouped, UnknownKey)); n != 2 {
		t.Errorf("Unknown has %d members, want 2", n)
	}
}

func TestGroupByMembership(t *testing.T) {
	ridmap := map[int]string{513: "Domain Users", 512: "Domain Admins"}

	users := []*ldap.Entry{
		ldap.NewEntry("CN=admin,CN=Users,DC=corp,DC=local", map[string][]string{
			"cn":             {"admin"},
			"memberOf":       {"CN=Domain Admins,CN=Users,DC=corp,DC=local"},
			"primaryGroupID": {"513"},
		}),
		ldap.NewEntry("CN=plain,CN=Users,DC=corp,DC=local", map[string][]string{
			"cn":             {"plain"},
			"primaryGroupID": {"513"},
		}),
	}

	grouped, errs := GroupByMembership(users, ridmap)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if n := len(Members(grouped, "Domain Admins")); n != 1 {
		t.Errorf("Domain Admins has %d members, want 1", n)
	}
	if n := len(Members(grouped, "Domain Users")); n != 2 {
		t.Errorf("Domain Users has %d members, want 2", n)
	}

	// memberOf groups come before the primary group.
	keys := grouped.Keys()
	if len(keys) != 2 || keys[0] != "Domain Admins" || keys[1] != "Domain Users" {
		t.Errorf("got key order %v, want [Domain Admins, Domain Users]", keys)
	}
}

func TestGroupByMembershipUnresolvablePrimaryGroup(t *testing.T) {
	users := []*ldap.Entry{
		ldap.NewEntry("CN=orphan,CN=Users,DC=corp,DC=local", map[string][]string{
			"cn":             {"orphan"},
			"primaryGroupID": {"9999"},
		}),
		ldap.NewEntry("CN=noattr,CN=Users,DC=corp,DC=local", map[string][]string{
			"cn": {"noattr"},
		}),
	}

	grouped, errs := GroupByMembership(users, map[int]string{513: "Domain Users"})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}

	// Both users survive, filed under Unknown.
	if n := len(Members(grouped, UnknownKey)); n != 2 {
		t.Errorf("Unknown has %d members, want 2", n)
	}
}
