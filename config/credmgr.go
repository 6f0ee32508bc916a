package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/RedTeamPentesting/adauth"
)

// CredentialMgr pairs a parsed credential with the chosen transport
// preferences so connection targets can be derived from one place.
type CredentialMgr struct {
	credential  *adauth.Credential
	useKerberos bool
}

func NewCredentialMgr(credential *adauth.Credential, useKerberos bool) *CredentialMgr {
	return &CredentialMgr{
		credential:  credential,
		useKerberos: useKerberos,
	}
}

func (a *CredentialMgr) Creds() *adauth.Credential {
	return a.credential
}

func (a *CredentialMgr) SetDC(dc string) {
	a.credential.SetDC(dc)
}

func (a *CredentialMgr) Kerberos() bool {
	return a.useKerberos
}

func (a *CredentialMgr) Username() string {
	return a.credential.Username
}

// LogonName renders the credential as DOMAIN\user for log lines.
func (a *CredentialMgr) LogonName() string {
	if a.credential.Domain == "" {
		return a.credential.Username
	}
	return a.credential.Domain + `\` + a.credential.Username
}

// NewTarget builds a connection target carrying the credential's resolver
// and Kerberos preference.
func (a *CredentialMgr) NewTarget(protocol string, targetHost string) *adauth.Target {
	t := adauth.NewTarget(protocol, targetHost)
	t.Resolver = a.credential.Resolver
	t.UseKerberos = a.useKerberos
	return t
}

// ParseCredential determines the authentication method from the provided
// options and builds a credential for it. Supported methods:
//   - Anonymous (no username)
//   - Password (NTLM, or Kerberos with -k)
//   - NTHash (NTLM pass-the-hash, or Kerberos with -k)
//   - Ticket (Kerberos CCache from --ccache or KRB5CCNAME)
//
// An explicitly empty password (-p "") authenticates with an empty string
// rather than falling back to anonymous.
func ParseCredential(opts *adauth.Options, isEmptyPassword bool) (string, *CredentialMgr, error) {
	if opts == nil {
		return "", nil, fmt.Errorf("invalid options")
	}

	var method string

	creds := new(adauth.Credential)
	domain, username := splitUserIntoDomainAndUsername(opts.User)

	creds.Username = username
	creds.Domain = domain

	switch {
	case isEmptyPassword:
		if username == "" {
			method = "Anonymous"
		} else {
			method = "Password"
		}

		creds.PasswordIsEmtpyString = true
	case username != "" && opts.Password != "":
		method = "Password"
		creds.Password = opts.Password
	case username != "" && opts.NTHash != "":
		method = "NTHash"

		ntHash := cleanNTHash(opts.NTHash)
		ntHashBytes, err := hex.DecodeString(ntHash)
		if err != nil {
			return "", nil, fmt.Errorf("invalid NT hash: parse hex: %w", err)
		} else if len(ntHashBytes) != 16 {
			return "", nil, fmt.Errorf("invalid NT hash: %d bytes instead of 16", len(ntHashBytes))
		}

		creds.NTHash = ntHash
	case opts.ForceKerberos && (opts.CCache != "" || os.Getenv("KRB5CCNAME") != ""):
		method = "Ticket"

		ccacheFile := os.Getenv("KRB5CCNAME")
		if ccacheFile == "" {
			ccacheFile = opts.CCache
		}

		s, err := os.Stat(ccacheFile)
		if err != nil {
			return "", nil, fmt.Errorf("stat CCache path: %w", err)
		} else if s.IsDir() {
			return "", nil, fmt.Errorf("CCache path is a directory: %s", ccacheFile)
		}

		creds.CCache = ccacheFile
	case username == "":
		method = "Anonymous"
	}

	creds.Resolver = opts.Resolver
	auth := NewCredentialMgr(creds, opts.ForceKerberos)

	return method, auth, nil
}

// splitUserIntoDomainAndUsername accepts UPN (user@domain), down-level
// (domain\user) and domain/user forms.
func splitUserIntoDomainAndUsername(user string) (domain string, username string) {
	switch {
	case strings.Contains(user, "@"):
		parts := strings.Split(user, "@")
		if len(parts) == 2 {
			return parts[1], parts[0]
		}

		return "", user
	case strings.Contains(user, `\`):
		parts := strings.Split(user, `\`)
		if len(parts) == 2 {
			return parts[0], parts[1]
		}

		return "", user
	case strings.Contains(user, "/"):
		parts := strings.Split(user, "/")
		if len(parts) == 2 {
			return parts[0], parts[1]
		}

		return "", user
	default:
		return "", user
	}
}

// cleanNTHash accepts both a bare NT hash and the LM:NT form.
func cleanNTHash(h string) string {
	if !strings.Contains(h, ":") {
		return h
	}

	parts := strings.Split(h, ":")
	if len(parts) != 2 {
		return h
	}

	return parts[1]
}
