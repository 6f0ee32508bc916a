package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filters holds the search filters used for each fetch stage. The defaults
// match standard Active Directory object classes; a config file may override
// them for exotic directories.
type Filters struct {
	Users          string
	Computers      string
	Groups         string
	SecurityGroups string
	Policy         string
}

func DefaultFilters() Filters {
	return Filters{
		Users:          "(&(objectCategory=person)(objectClass=user))",
		Computers:      "(objectClass=computer)",
		Groups:         "(objectClass=group)",
		SecurityGroups: "(groupType:1.2.840.113556.1.4.803:=2147483648)",
		Policy:         "(objectClass=domain)",
	}
}

// Dumper enumerates the security-relevant objects of one domain. Fetches
// request every attribute by default; the report layer decides what to show.
type Dumper struct {
	client  *Client
	root    string
	filters Filters
	attrs   []string
}

var allAttributes = []string{"*"}

// NewDumper builds a Dumper rooted at the given base DN, or at the server's
// default naming context when root is empty.
func NewDumper(client *Client, root string, filters Filters) (*Dumper, error) {
	if root == "" {
		var err error
		root, err = client.Root()
		if err != nil {
			return nil, err
		}
	}

	return &Dumper{client: client, root: root, filters: filters, attrs: allAttributes}, nil
}

// SetAttributes restricts the fetch stages to a specific attribute list
// instead of requesting everything the server holds.
func (d *Dumper) SetAttributes(attrs []string) {
	if len(attrs) > 0 {
		d.attrs = attrs
	}
}

func (d *Dumper) Root() string {
	return d.root
}

// AllUsers fetches every user account in the domain.
func (d *Dumper) AllUsers() ([]*Entry, error) {
	return d.client.Search(d.root, d.filters.Users, d.attrs)
}

// AllComputers fetches every computer account in the domain.
func (d *Dumper) AllComputers() ([]*Entry, error) {
	return d.client.Search(d.root, d.filters.Computers, d.attrs)
}

// AllGroups fetches every group defined in the domain.
func (d *Dumper) AllGroups() ([]*Entry, error) {
	return d.client.Search(d.root, d.filters.Groups, d.attrs)
}

// SecurityGroups fetches only security-enabled groups, selected through the
// LDAP_MATCHING_RULE_BIT_AND extensible match on groupType.
func (d *Dumper) SecurityGroups() ([]*Entry, error) {
	return d.client.Search(d.root, d.filters.SecurityGroups, d.attrs)
}

// DomainPolicy fetches the domain head object, which carries the password
// and lockout policy attributes.
func (d *Dumper) DomainPolicy() ([]*Entry, error) {
	return d.client.Search(d.root, d.filters.Policy, d.attrs)
}

// RootSID returns the SID of the domain object itself.
func (d *Dumper) RootSID() (string, error) {
	entries, err := d.client.Search(d.root, "(objectClass=domain)", []string{"objectSid"})
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no domain object found under %q", d.root)
	}

	sid := entries[0].SID()
	if sid == "" {
		return "", fmt.Errorf("domain object has no objectSid")
	}

	return sid, nil
}

// DomainAdminsGroup resolves the Domain Admins group by its well-known RID
// (512) relative to the domain SID.
func (d *Dumper) DomainAdminsGroup(domainSID string) (*Entry, error) {
	filter := fmt.Sprintf("(objectSid=%s-512)", domainSID)
	entries, err := d.client.Search(d.root, filter, allAttributes)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("Domain Admins group (%s-512) not found", domainSID)
	}

	return entries[0], nil
}

// CurrentUserGroups returns the memberOf DNs of the given account. An account
// that is only in its primary group has no memberOf attribute; that is not an
// error.
func (d *Dumper) CurrentUserGroups(samAccountName string) ([]string, error) {
	filter := fmt.Sprintf("(&(objectCategory=person)(objectClass=user)(sAMAccountName=%s))",
		ldap.EscapeFilter(samAccountName))

	entries, err := d.client.Search(d.root, filter, []string{"memberOf"})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("account %q not found", samAccountName)
	}

	groups, _ := entries[0].Values("memberOf")
	return groups, nil
}

// IsDomainAdmin checks whether the account is a member of Administrators or
// Domain Admins. Nested memberships are not chased; this is a heads-up for
// the operator, not an authorization check.
func (d *Dumper) IsDomainAdmin(samAccountName string) (bool, error) {
	groups, err := d.CurrentUserGroups(samAccountName)
	if err != nil {
		return false, err
	}

	domainSID, err := d.RootSID()
	if err != nil {
		return false, err
	}

	daGroup, err := d.DomainAdminsGroup(domainSID)
	if err != nil {
		return false, err
	}

	for _, group := range groups {
		if strings.Contains(group, "CN=Administrators") ||
			strings.Contains(group, "CN=Domain Admins") ||
			strings.EqualFold(group, daGroup.DN) {
			return true, nil
		}
	}

	return false, nil
}
