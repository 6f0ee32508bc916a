package report

import (
	"testing"

	"github.com/Macmod/domaindump/ldap"
)

func TestParseFlagValue(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		flags []Flag
		want  string
	}{
		{"no flags set", 0, UACFlags, ""},
		{"single flag", 0x00000002, UACFlags, "ACCOUNT_DISABLED"},
		{"table order not value order", 0x00001200, UACFlags, "NORMAL_ACCOUNT, WORKSTATION_ACCOUNT"},
		{"disabled normal account", 0x00000202, UACFlags, "ACCOUNT_DISABLED, NORMAL_ACCOUNT"},
		{"unknown bits ignored", 0x00000201, UACFlags, "NORMAL_ACCOUNT"},
		{"pwd complex", 0x01, PwdFlags, "PASSWORD_COMPLEX"},
		{"all pwd flags", 0x3f, PwdFlags, "PASSWORD_COMPLEX, PASSWORD_NO_ANON_CHANGE, PASSWORD_NO_CLEAR_CHANGE, LOCKOUT_ADMINS, PASSWORD_STORE_CLEARTEXT, REFUSE_PASSWORD_CHANGE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFlagValue(tc.value, tc.flags)
			if got != tc.want {
				t.Errorf("ParseFlagValue(%#x) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestTicksConversions(t *testing.T) {
	// Policy durations are stored negated; the conversions must be
	// sign-independent.
	if got := TicksToDays(-864000000000); got != 1.0 {
		t.Errorf("TicksToDays(-864000000000) = %v, want 1.0", got)
	}
	if got := TicksToDays(864000000000); got != 1.0 {
		t.Errorf("TicksToDays(864000000000) = %v, want 1.0", got)
	}
	if got := TicksToMinutes(-18000000000); got != 30.0 {
		t.Errorf("TicksToMinutes(-18000000000) = %v, want 30.0", got)
	}
}

func TestFormatFiletime(t *testing.T) {
	tests := []struct {
		name  string
		ticks int64
		want  string
	}{
		{"zero means not set", 0, "0"},
		{"never expires", 9223372036854775807, "0"},
		{"negative is invalid", -1, "0"},
		{"unix epoch", 116444736000000000, "01/01/70 00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatFiletime(tc.ticks); got != tc.want {
				t.Errorf("FormatFiletime(%d) = %q, want %q", tc.ticks, got, tc.want)
			}
		})
	}
}

func TestFormatterDecisionTable(t *testing.T) {
	f := &Formatter{LinkBase: "domain_users_by_group"}

	entry := ldap.NewEntry("CN=jdoe,CN=Users,DC=corp,DC=local", map[string][]string{
		"userAccountControl": {"514"},
		"pwdProperties":      {"1"},
		"maxPwdAge":          {"-864000000000"},
		"lockoutDuration":    {"-18000000000"},
		"whenCreated":        {"20240115083000.0Z"},
		"lastLogon":          {"0"},
		"description":        {"a <dangerous> \"value\""},
		"operatingSystem":    {"Windows Server 2019"},
	})

	tests := []struct {
		attr     string
		wantHTML string
		wantGrep string
	}{
		{"userAccountControl", "ACCOUNT_DISABLED, NORMAL_ACCOUNT", "ACCOUNT_DISABLED, NORMAL_ACCOUNT"},
		{"pwdProperties", "PASSWORD_COMPLEX", "PASSWORD_COMPLEX"},
		{"maxPwdAge", "1.00 days", "1.00 days"},
		{"lockoutDuration", "30.0 minutes", "30.0 minutes"},
		{"whenCreated", "01/15/24 08:30:00", "01/15/24 08:30:00"},
		{"lastLogon", "0", "0"},
		{"description", "a &lt;dangerous&gt; &#34;value&#34;", "a <dangerous> \"value\""},
		{"operatingSystem", "Windows Server 2019", "Windows Server 2019"},
		{"missingAttribute", "&nbsp;", ""},
	}

	for _, tc := range tests {
		t.Run(tc.attr, func(t *testing.T) {
			if got := f.HTML(entry, tc.attr); got != tc.wantHTML {
				t.Errorf("HTML(%s) = %q, want %q", tc.attr, got, tc.wantHTML)
			}
			if got := f.Grep(entry, tc.attr); got != tc.wantGrep {
				t.Errorf("Grep(%s) = %q, want %q", tc.attr, got, tc.wantGrep)
			}
		})
	}
}

func TestFormatterMemberOf(t *testing.T) {
	f := &Formatter{LinkBase: "domain_users_by_group"}

	entry := ldap.NewEntry("CN=jdoe,CN=Users,DC=corp,DC=local", map[string][]string{
		"memberOf": {
			"CN=Domain Admins,CN=Users,DC=corp,DC=local",
			"CN=Smith\\, John,OU=Weird,DC=corp,DC=local",
		},
	})

	wantHTML := `<a href="domain_users_by_group.html#cn_Domain_Admins" title="CN=Domain Admins,CN=Users,DC=corp,DC=local">Domain Admins</a>, ` +
		`<a href="domain_users_by_group.html#cn_Smith_John" title="CN=Smith\, John,OU=Weird,DC=corp,DC=local">Smith, John</a>`
	if got := f.HTML(entry, "memberOf"); got != wantHTML {
		t.Errorf("HTML(memberOf) = %q, want %q", got, wantHTML)
	}

	wantGrep := "Domain Admins, Smith, John"
	if got := f.Grep(entry, "memberOf"); got != wantGrep {
		t.Errorf("Grep(memberOf) = %q, want %q", got, wantGrep)
	}
}

func TestHeader(t *testing.T) {
	if got := Header("sAMAccountName"); got != "SAM Name" {
		t.Errorf("Header(sAMAccountName) = %q, want %q", got, "SAM Name")
	}
	if got := Header("primaryGroupID"); got != "primaryGroupID" {
		t.Errorf("Header(primaryGroupID) = %q, want raw name", got)
	}
}
