// Package config handles command-line flags, authentication, DNS resolution
// and runtime configuration for domaindump.
package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/RedTeamPentesting/adauth"
	"github.com/RedTeamPentesting/adauth/ldapauth"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// ErrVersionRequested signals that --version was passed and the caller
// should print the version and exit instead of running a dump.
var ErrVersionRequested = errors.New("version requested")

const (
	DefaultLDAPScheme  = "ldap"
	DefaultLDAPTimeout = 30 * time.Second

	DNSDialTimeout = 5 * time.Second
)

// Config holds all application configuration.
type Config struct {
	Host string

	OutputDir  string
	LogFile    string
	ConfigPath string
	Stylesheet string
	Delimiter  string

	NoHTML bool
	NoJSON bool
	NoGrep bool

	Resolve  bool
	Ping     bool
	RawDumps bool
	Minimal  bool

	CustomDNS string
	DNSTcp    bool

	Auth            *CredentialMgr
	AuthMethod      string
	LdapAuthOptions *ldapauth.Options
	RuntimeOptions  *RuntimeOptions
	Resolver        *CustomResolver
}

// DialerWithResolver dials LDAP and Kerberos connections through the custom
// resolver, so a --dns-server override applies to every connection the tool
// makes, not just to hostname resolution.
type DialerWithResolver struct {
	Resolver *CustomResolver
	Timeout  time.Duration
}

// DialContext resolves the address through the custom resolver and tries
// each returned IP in order.
func (d *DialerWithResolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := d.Resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}

	for _, ip := range ips {
		conn, err := net.DialTimeout(network, net.JoinHostPort(ip, port), d.Timeout)
		if err == nil {
			return conn, nil
		}
	}

	return nil, fmt.Errorf("failed to connect to any IP for %s", addr)
}

// Dial implements the Dialer interface with a default context timeout.
func (d *DialerWithResolver) Dial(network, addr string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()
	return d.DialContext(ctx, network, addr)
}

// ParseFlags parses the command line and assembles the full configuration,
// including credentials and the DNS resolver. It returns ErrVersionRequested
// when --version was passed.
func ParseFlags() (*Config, error) {
	var err error
	var showVersion bool

	config := &Config{
		LdapAuthOptions: &ldapauth.Options{},
	}

	pflag.BoolVar(&showVersion, "version", false, "Show version information and exit")

	// Output options
	pflag.StringVarP(&config.OutputDir, "outdir", "o", ".", "Directory in which the dump will be saved")
	pflag.BoolVar(&config.NoHTML, "no-html", false, "Disable HTML output")
	pflag.BoolVar(&config.NoJSON, "no-json", false, "Disable JSON output")
	pflag.BoolVar(&config.NoGrep, "no-grep", false, "Disable greppable output")
	pflag.StringVarP(&config.Delimiter, "delimiter", "d", "\t", "Field delimiter for greppable output")
	pflag.StringVar(&config.Stylesheet, "stylesheet", "", "Path to a custom CSS stylesheet for HTML reports")
	pflag.BoolVar(&config.RawDumps, "raw", false, "Also save raw msgpack dumps of all fetched entries")

	// Misc options
	pflag.BoolVarP(&config.Resolve, "resolve", "r", false, "Resolve computer hostnames (might take a while and cause high traffic on large networks)")
	pflag.BoolVar(&config.Ping, "ping", false, "Ping resolved computers to check liveness (implies --resolve)")
	pflag.StringVarP(&config.CustomDNS, "dns-server", "n", "", "Use custom DNS resolver instead of system DNS (try a domain controller IP)")
	pflag.BoolVar(&config.DNSTcp, "dns-tcp", false, "Use DNS over TCP instead of UDP")
	pflag.BoolVarP(&config.Minimal, "minimal", "m", false, "Only request the attributes shown in reports instead of all attributes")
	pflag.StringVar(&config.ConfigPath, "config", "", "Path to YAML config file (optional)")
	pflag.StringVar(&config.LogFile, "log", "", "Path to log file (optional, output is written to both console and file)")

	// Authentication
	authOptions := &adauth.Options{}
	registerAuthFlags(authOptions, pflag.CommandLine)

	// LDAP connection
	registerLdapFlags(config.LdapAuthOptions, pflag.CommandLine)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] HOSTNAME\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Dumps users/computers/groups and OS/membership information of an Active\nDirectory domain to HTML/JSON/greppable output via LDAP.\n\nOptions:\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if showVersion {
		return nil, ErrVersionRequested
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		return nil, fmt.Errorf("expected exactly one target host, got %d", pflag.NArg())
	}

	config.Host, err = parseHostArgument(pflag.Arg(0), config.LdapAuthOptions)
	if err != nil {
		return nil, err
	}

	if config.Ping {
		config.Resolve = true
	}

	// Setup DNS resolver
	var resolver *CustomResolver
	if config.CustomDNS != "" {
		resolver, err = setupDNSResolver(config.CustomDNS, config.DNSTcp)
		if err != nil {
			return nil, fmt.Errorf("failed to setup DNS resolver: %w", err)
		}
	} else {
		resolver = NewCustomResolver(nil)
	}
	config.Resolver = resolver
	authOptions.Resolver = resolver

	config.RuntimeOptions, err = LoadOptions(config.ConfigPath)
	if err != nil {
		return nil, err
	}

	config.LdapAuthOptions.LDAPDialer = &DialerWithResolver{
		Resolver: resolver,
		Timeout:  config.LdapAuthOptions.Timeout,
	}
	config.LdapAuthOptions.KerberosDialer = &DialerWithResolver{
		Resolver: resolver,
		Timeout:  config.LdapAuthOptions.Timeout,
	}

	// Prompt for the password when a user was given without any other
	// secret, like every other AD tool does.
	if authOptions.User != "" && !pflag.CommandLine.Changed("password") &&
		authOptions.NTHash == "" && authOptions.CCache == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		authOptions.Password = string(secret)
	}

	isEmptyPassword := authOptions.Password == "" && pflag.CommandLine.Changed("password")
	method, auth, err := ParseCredential(authOptions, isEmptyPassword)
	if err != nil {
		return nil, err
	}

	auth.SetDC(config.Host)
	config.Auth = auth
	config.AuthMethod = method

	return config, nil
}

func registerAuthFlags(opts *adauth.Options, flagset *pflag.FlagSet) {
	flagset.StringVarP(&opts.User, "user", "u", "", "Username for authentication in one of the following formats: UPN, domain\\user, domain/user or user. Leave empty for anonymous authentication")
	flagset.StringVarP(&opts.Password, "password", "p", "", "Password for authentication, will prompt if a user is set and no other secret is given")
	flagset.StringVarP(&opts.NTHash, "nt-hash", "H", "", "NT hash for authentication (pass-the-hash)")
	flagset.StringVar(&opts.CCache, "ccache", "", "Path to a Kerberos CCache file (KRB5CCNAME is also honored)")
	flagset.BoolVarP(&opts.ForceKerberos, "kerberos", "k", false, "Force Kerberos authentication")
}

func registerLdapFlags(opts *ldapauth.Options, flagset *pflag.FlagSet) {
	flagset.StringVar(&opts.Scheme, "scheme", DefaultLDAPScheme, "Scheme (ldap or ldaps)")
	flagset.DurationVar(&opts.Timeout, "timeout", DefaultLDAPTimeout, "LDAP connection timeout")
	flagset.BoolVar(&opts.Verify, "verify", false, "Verify LDAP TLS certificate")
	flagset.BoolVar(&opts.StartTLS, "start-tls", false, "Negotiate StartTLS before authenticating on regular LDAP connection")
}

// parseHostArgument accepts a bare hostname/IP, host:port, or an
// ldap://host:port connection string. A connection string's scheme overrides
// the --scheme flag.
func parseHostArgument(arg string, opts *ldapauth.Options) (string, error) {
	if !strings.Contains(arg, "://") {
		return arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid connection string %q: %w", arg, err)
	}

	if u.Scheme != "ldap" && u.Scheme != "ldaps" {
		return "", fmt.Errorf("unsupported scheme %q, expected ldap or ldaps", u.Scheme)
	}

	opts.Scheme = u.Scheme

	return u.Host, nil
}

// setupDNSResolver creates a caching resolver backed by a specific DNS
// server instead of the system configuration.
func setupDNSResolver(customDNS string, useTCP bool) (*CustomResolver, error) {
	ip := net.ParseIP(customDNS)
	if ip == nil {
		return nil, fmt.Errorf("invalid custom DNS resolver IP address: '%s'", customDNS)
	}

	dnsDialer := net.Dialer{
		Timeout: DNSDialTimeout,
	}

	baseResolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			if useTCP {
				return dnsDialer.DialContext(ctx, "tcp", customDNS+":53")
			}
			return dnsDialer.DialContext(ctx, "udp", customDNS+":53")
		},
	}

	return NewCustomResolver(baseResolver), nil
}
