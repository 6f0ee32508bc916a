// Package ldap implements the directory side of domaindump: connecting and
// binding to a domain controller, paged searches materialized as entry lists,
// domain object enumeration and hostname resolution for computer accounts.
package ldap

import (
	"context"
	"fmt"

	"github.com/RedTeamPentesting/adauth"
	"github.com/RedTeamPentesting/adauth/ldapauth"
	"github.com/go-ldap/ldap/v3"
)

const DefaultPageSize = 500

// Client wraps an authenticated LDAP connection and provides paged searches
// that return fully materialized entry lists.
type Client struct {
	conn     *ldap.Conn
	pageSize uint32
}

// Connect dials and binds to the target using the provided credential. Any
// failure here is fatal to the run: without a bind there is nothing to dump.
func Connect(ctx context.Context, creds *adauth.Credential, target *adauth.Target, opts *ldapauth.Options, pageSize uint32) (*Client, error) {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	conn, err := ldapauth.ConnectTo(ctx, creds, target, opts)
	if err != nil {
		return nil, fmt.Errorf("LDAP connection failed: %w", err)
	}

	return &Client{conn: conn, pageSize: pageSize}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Root returns the server's default naming context from the RootDSE.
func (c *Client) Root() (string, error) {
	req := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject, ldap.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	)

	sr, err := c.conn.Search(req)
	if err != nil {
		return "", fmt.Errorf("RootDSE query: %w", err)
	}
	if len(sr.Entries) == 0 {
		return "", fmt.Errorf("RootDSE query returned no entries")
	}

	root := sr.Entries[0].GetAttributeValue("defaultNamingContext")
	if root == "" {
		return "", fmt.Errorf("server did not advertise a defaultNamingContext")
	}

	return root, nil
}

// Search runs a paged subtree search and returns all matching entries as one
// in-memory list. Paging is internal; callers never see cookies.
func (c *Client) Search(baseDN, filter string, attributes []string) ([]*Entry, error) {
	var (
		out    []*Entry
		cookie []byte
	)

	for {
		req := ldap.NewSearchRequest(
			baseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			filter,
			attributes,
			nil,
		)

		paging := ldap.NewControlPaging(c.pageSize)
		paging.SetCookie(cookie)
		req.Controls = []ldap.Control{paging}

		sr, err := c.conn.Search(req)
		if err != nil {
			return nil, fmt.Errorf("search %q under %q: %w", filter, baseDN, err)
		}

		for _, raw := range sr.Entries {
			entry := &Entry{}
			entry.Init(raw)
			out = append(out, entry)
		}

		ctrl := ldap.FindControl(sr.Controls, ldap.ControlTypePaging)
		if ctrl == nil {
			break
		}

		cookie = ctrl.(*ldap.ControlPaging).Cookie
		if len(cookie) == 0 {
			break
		}
	}

	return out, nil
}
