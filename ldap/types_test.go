package ldap

import "testing"

// binarySID encodes S-1-5-21-1-2-3-513.
var binarySID = []byte{
	0x01,                               // revision
	0x05,                               // subauthority count
	0x00, 0x00, 0x00, 0x00, 0x00, 0x05, // identifier authority (NT)
	0x15, 0x00, 0x00, 0x00, // 21
	0x01, 0x00, 0x00, 0x00, // 1
	0x02, 0x00, 0x00, 0x00, // 2
	0x03, 0x00, 0x00, 0x00, // 3
	0x01, 0x02, 0x00, 0x00, // 513
}

func TestEntryAccessors(t *testing.T) {
	entry := NewEntry("CN=jdoe,DC=corp,DC=local", map[string][]string{
		"sAMAccountName": {"jdoe"},
		"memberOf":       {"CN=a,DC=x", "CN=b,DC=x"},
		"primaryGroupID": {"513"},
		"description":    {},
	})

	t.Run("case insensitive lookup", func(t *testing.T) {
		for _, name := range []string{"sAMAccountName", "samaccountname", "SAMACCOUNTNAME"} {
			if v, ok := entry.Value(name); !ok || v != "jdoe" {
				t.Errorf("Value(%q) = %q, %v", name, v, ok)
			}
		}
	})

	t.Run("presence vs empty", func(t *testing.T) {
		if !entry.Has("description") {
			t.Errorf("empty attribute should still be present")
		}
		if entry.Has("nonexistent") {
			t.Errorf("absent attribute reported as present")
		}
		if v, ok := entry.Value("description"); ok || v != "" {
			t.Errorf("Value of empty attribute = %q, %v; want \"\", false", v, ok)
		}
		if raw, ok := entry.RawValue("description"); ok || raw != nil {
			t.Errorf("RawValue of empty attribute = %v, %v; want nil, false", raw, ok)
		}
	})

	t.Run("multi valued", func(t *testing.T) {
		vals, ok := entry.Values("memberof")
		if !ok || len(vals) != 2 {
			t.Errorf("Values(memberof) = %v, %v", vals, ok)
		}
	})

	t.Run("int64", func(t *testing.T) {
		if n, ok := entry.Int64("primaryGroupID"); !ok || n != 513 {
			t.Errorf("Int64(primaryGroupID) = %d, %v", n, ok)
		}
		if _, ok := entry.Int64("sAMAccountName"); ok {
			t.Errorf("non-numeric attribute parsed as integer")
		}
	})

	t.Run("set replaces values", func(t *testing.T) {
		entry.Set("IPv4", "10.0.0.5")
		if v, _ := entry.Value("ipv4"); v != "10.0.0.5" {
			t.Errorf("synthetic attribute not stored, got %q", v)
		}
	})
}

func TestEntrySID(t *testing.T) {
	t.Run("binary", func(t *testing.T) {
		entry := &Entry{
			DN:            "CN=g,DC=corp,DC=local",
			Attributes:    map[string][]string{"objectsid": {string(binarySID)}},
			RawAttributes: map[string][][]byte{"objectsid": {binarySID}},
		}
		if got := entry.SID(); got != "S-1-5-21-1-2-3-513" {
			t.Errorf("SID() = %q, want S-1-5-21-1-2-3-513", got)
		}
	})

	t.Run("string fallback", func(t *testing.T) {
		entry := NewEntry("CN=g,DC=corp,DC=local", map[string][]string{
			"objectSid": {"S-1-5-21-1-2-3-512"},
		})
		if got := entry.SID(); got != "S-1-5-21-1-2-3-512" {
			t.Errorf("SID() = %q, want the string value", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		entry := NewEntry("CN=g,DC=corp,DC=local", nil)
		if got := entry.SID(); got != "" {
			t.Errorf("SID() = %q, want empty", got)
		}
	})
}

func TestEntryRID(t *testing.T) {
	tests := []struct {
		name    string
		sid     string
		want    int
		wantErr bool
	}{
		{"domain users", "S-1-5-21-1-2-3-513", 513, false},
		{"builtin", "S-1-5-32-544", 544, false},
		{"garbage tail", "S-1-5-garbage", 0, true},
		{"missing sid", "", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attrs := map[string][]string{}
			if tc.sid != "" {
				attrs["objectSid"] = []string{tc.sid}
			}
			entry := NewEntry("CN=g,DC=x", attrs)

			rid, err := entry.RID()
			if tc.wantErr {
				if err == nil {
					t.Errorf("RID() = %d, want error", rid)
				}
				return
			}
			if err != nil {
				t.Fatalf("RID(): %v", err)
			}
			if rid != tc.want {
				t.Errorf("RID() = %d, want %d", rid, tc.want)
			}
		})
	}
}
