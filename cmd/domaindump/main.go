package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Macmod/domaindump/config"
	"github.com/Macmod/domaindump/core"
	"github.com/Macmod/domaindump/ldap"
	"github.com/Macmod/domaindump/report"
)

var (
	version = "1.0.0"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		if errors.Is(err, config.ErrVersionRequested) {
			printVersion()
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(1)
	}

	var logFile *os.File
	if cfg.LogFile != "" {
		logFile, err = core.OpenLogFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[!] Failed to open log file: %v\n", err)
			os.Exit(1)
		}
	}

	logger := core.NewLogger(logFile)
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Warnf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *core.Logger) error {
	start := time.Now()
	ctx := context.Background()

	dirs, err := core.SetupDirectories(cfg.OutputDir, cfg.RawDumps)
	if err != nil {
		return err
	}

	if cfg.AuthMethod == "Anonymous" {
		logger.Infof("Connecting as anonymous user, dumping will probably fail. Consider specifying a username/password to login with")
	} else {
		logger.Infof("Authenticating as %s (%s)", cfg.Auth.LogonName(), cfg.AuthMethod)
	}

	reportCfg := buildReportConfig(cfg)

	logger.Infof("Connecting to host...")

	target := cfg.Auth.NewTarget("ldap", cfg.Host)

	logger.Infof("Binding to host")

	client, err := ldap.Connect(ctx, cfg.Auth.Creds(), target, cfg.LdapAuthOptions, cfg.RuntimeOptions.PageSize)
	if err != nil {
		logger.Warnf("Could not bind with specified credentials")
		return err
	}
	defer client.Close()

	logger.Successf("Bind OK")

	filters := buildFilters(cfg.RuntimeOptions)

	dumper, err := ldap.NewDumper(client, "", filters)
	if err != nil {
		return err
	}
	if cfg.Minimal {
		dumper.SetAttributes(minimalAttributes(reportCfg))
	}

	logger.Infof("Starting domain dump of %s", dumper.Root())

	if cfg.AuthMethod != "Anonymous" {
		warnIfNotDomainAdmin(dumper, cfg.Auth.Username(), logger)
	}

	logger.Infof("Fetching users...")
	users, err := dumper.AllUsers()
	if err != nil {
		return err
	}
	logger.Infof("Got %d users", len(users))

	logger.Infof("Fetching computers...")
	computers, err := dumper.AllComputers()
	if err != nil {
		return err
	}
	logger.Infof("Got %d computers", len(computers))

	logger.Infof("Fetching groups...")
	groups, err := dumper.AllGroups()
	if err != nil {
		return err
	}
	logger.Infof("Got %d groups", len(groups))

	if cfg.Resolve {
		logger.Infof("Resolving computer hostnames...")
		ldap.ResolveComputers(ctx, cfg.Resolver, computers, cfg.RuntimeOptions.ResolveWorkers)
		reportCfg.InsertComputerColumns("IPv4")

		if cfg.Ping {
			logger.Infof("Pinging resolved computers...")
			ldap.PingComputers(ctx, computers, cfg.RuntimeOptions.ResolveWorkers)
			reportCfg.InsertComputerColumns("alive")
		}
	}

	logger.Infof("Fetching domain policy...")
	policy, err := dumper.DomainPolicy()
	if err != nil {
		return err
	}

	if cfg.RawDumps {
		writeRawDumps(dirs.Raw, reportCfg, users, computers, groups, policy, logger)
	}

	writer := report.NewWriter(reportCfg, logger.Warnf)

	var stats []report.Stats
	writers := []func() (report.Stats, error){
		func() (report.Stats, error) { return writer.WriteUsers(users) },
		func() (report.Stats, error) { return writer.WriteGroups(groups) },
		func() (report.Stats, error) { return writer.WriteComputers(computers) },
		func() (report.Stats, error) { return writer.WriteUsersByGroup(users, groups) },
		func() (report.Stats, error) { return writer.WriteComputersByOS(computers) },
		func() (report.Stats, error) { return writer.WritePolicy(policy) },
	}
	for _, write := range writers {
		s, err := write()
		if err != nil {
			return err
		}
		stats = append(stats, s)
	}

	core.PrintSummary(stats)

	logger.Successf("Domain dump finished in %s", core.FormatDuration(time.Since(start)))

	return nil
}

// warnIfNotDomainAdmin is a heads-up, not a gate: non-admin users typically
// get a partial view of the directory, and the operator should know that
// before trusting the dump. Any error here is itself only worth a warning.
func warnIfNotDomainAdmin(dumper *ldap.Dumper, username string, logger *core.Logger) {
	isAdmin, err := dumper.IsDomainAdmin(username)
	if err != nil {
		logger.Warnf("Could not check group membership of %s: %v", username, err)
		return
	}
	if !isAdmin {
		logger.Warnf("%s is not a Domain Admin, the dump may be incomplete", username)
	}
}

func buildReportConfig(cfg *config.Config) report.Config {
	rc := report.DefaultConfig()
	rc.OutputDir = cfg.OutputDir
	rc.HTML = !cfg.NoHTML
	rc.JSON = !cfg.NoJSON
	rc.Grep = !cfg.NoGrep
	rc.Delimiter = cfg.Delimiter
	rc.Stylesheet = cfg.Stylesheet

	opts := cfg.RuntimeOptions
	if opts.Basenames.Users != "" {
		rc.UsersFile = opts.Basenames.Users
	}
	if opts.Basenames.Groups != "" {
		rc.GroupsFile = opts.Basenames.Groups
	}
	if opts.Basenames.Computers != "" {
		rc.ComputersFile = opts.Basenames.Computers
	}
	if opts.Basenames.Policy != "" {
		rc.PolicyFile = opts.Basenames.Policy
	}
	if opts.Basenames.UsersByGroup != "" {
		rc.UsersByGroupFile = opts.Basenames.UsersByGroup
	}
	if opts.Basenames.ComputersByOS != "" {
		rc.ComputersByOSFile = opts.Basenames.ComputersByOS
	}

	if len(opts.Columns.Users) > 0 {
		rc.UserAttrs = opts.Columns.Users
	}
	if len(opts.Columns.Computers) > 0 {
		rc.ComputerAttrs = opts.Columns.Computers
	}
	if len(opts.Columns.Groups) > 0 {
		rc.GroupAttrs = opts.Columns.Groups
	}
	if len(opts.Columns.Policy) > 0 {
		rc.PolicyAttrs = opts.Columns.Policy
	}

	return rc
}

func buildFilters(opts *config.RuntimeOptions) ldap.Filters {
	filters := ldap.DefaultFilters()
	if opts.Filters.Users != "" {
		filters.Users = opts.Filters.Users
	}
	if opts.Filters.Computers != "" {
		filters.Computers = opts.Filters.Computers
	}
	if opts.Filters.Groups != "" {
		filters.Groups = opts.Filters.Groups
	}
	if opts.Filters.SecurityGroups != "" {
		filters.SecurityGroups = opts.Filters.SecurityGroups
	}
	if opts.Filters.Policy != "" {
		filters.Policy = opts.Filters.Policy
	}
	return filters
}

// minimalAttributes is the attribute set requested in --minimal mode: the
// union of all report columns plus the attributes the cross-referencing
// needs, instead of every attribute the server holds.
func minimalAttributes(rc report.Config) []string {
	seen := make(map[string]bool)
	var attrs []string

	add := func(names ...string) {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				attrs = append(attrs, name)
			}
		}
	}

	add(rc.UserAttrs...)
	add(rc.ComputerAttrs...)
	add(rc.GroupAttrs...)
	add(rc.PolicyAttrs...)
	add("objectSid", "memberOf", "primaryGroupID", "dNSHostName", "operatingSystem")

	return attrs
}

func writeRawDumps(dir string, rc report.Config, users, computers, groups, policy []*ldap.Entry, logger *core.Logger) {
	dumper := ldap.NewRawDumper(dir)

	sets := []struct {
		name    string
		entries []*ldap.Entry
	}{
		{rc.UsersFile, users},
		{rc.ComputersFile, computers},
		{rc.GroupsFile, groups},
		{rc.PolicyFile, policy},
	}

	for _, set := range sets {
		path, size, err := dumper.Dump(set.name, set.entries)
		if err != nil {
			logger.Warnf("Raw dump of %s failed: %v", set.name, err)
			continue
		}
		logger.Infof("Raw dump written to %s (%s)", path, core.FormatFileSize(size))
	}
}

func printVersion() {
	fmt.Printf("domaindump %s\n", version)
}
