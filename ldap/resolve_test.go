package ldap

import (
	"context"
	"net"
	"testing"
)

// fakeResolver resolves from a fixed table and fails everything else.
type fakeResolver struct {
	table map[string][]net.IP
	errs  map[string]error
}

func (f *fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	if err, ok := f.errs[host]; ok {
		return nil, err
	}
	if ips, ok := f.table[host]; ok {
		return ips, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func computerEntry(cn, hostname string) *Entry {
	attrs := map[string][]string{"cn": {cn}}
	if hostname != "" {
		attrs["dNSHostName"] = []string{hostname}
	}
	return NewEntry("CN="+cn+",CN=Computers,DC=corp,DC=local", attrs)
}

func TestResolveComputers(t *testing.T) {
	resolver := &fakeResolver{
		table: map[string][]net.IP{
			"ws1.corp.local": {net.ParseIP("10.0.0.5")},
		},
		errs: map[string]error{
			"slow.corp.local": &net.DNSError{Err: "i/o timeout", Name: "slow.corp.local", IsTimeout: true},
		},
	}

	computers := []*Entry{
		computerEntry("ws1", "ws1.corp.local"),
		computerEntry("gone", "gone.corp.local"),
		computerEntry("slow", "slow.corp.local"),
		computerEntry("bare", ""),
	}

	ResolveComputers(context.Background(), resolver, computers, 2)

	tests := []struct {
		cn   string
		want string
	}{
		{"ws1", "10.0.0.5"},
		{"gone", SentinelNXDomain},
		{"slow", SentinelTimeout},
		{"bare", SentinelNoHostname},
	}

	byCN := make(map[string]*Entry)
	for _, c := range computers {
		cn, _ := c.Value("cn")
		byCN[cn] = c
	}

	for _, tc := range tests {
		t.Run(tc.cn, func(t *testing.T) {
			got, ok := byCN[tc.cn].Value("IPv4")
			if !ok {
				t.Fatalf("IPv4 attribute missing")
			}
			if got != tc.want {
				t.Errorf("IPv4 = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolved(t *testing.T) {
	tests := []struct {
		name string
		ipv4 string
		want bool
	}{
		{"real address", "10.0.0.5", true},
		{"nxdomain sentinel", SentinelNXDomain, false},
		{"timeout sentinel", SentinelTimeout, false},
		{"no hostname sentinel", SentinelNoHostname, false},
		{"unset", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry := computerEntry("c", "c.corp.local")
			if tc.ipv4 != "" {
				entry.Set("IPv4", tc.ipv4)
			}
			if got := Resolved(entry); got != tc.want {
				t.Errorf("Resolved() = %v, want %v", got, tc.want)
			}
		})
	}
}
