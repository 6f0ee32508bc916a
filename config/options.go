package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuntimeOptions are the dials that rarely change between runs and would
// clutter the flag surface: LDAP paging, worker counts, per-report column
// lists, output base names and query filter overrides. They load from an
// optional YAML file; anything left empty keeps its default.
type RuntimeOptions struct {
	PageSize       uint32 `yaml:"page_size"`
	ResolveWorkers int    `yaml:"resolve_workers"`

	Columns struct {
		Users     []string `yaml:"users"`
		Computers []string `yaml:"computers"`
		Groups    []string `yaml:"groups"`
		Policy    []string `yaml:"policy"`
	} `yaml:"columns"`

	Basenames struct {
		Users         string `yaml:"users"`
		Groups        string `yaml:"groups"`
		Computers     string `yaml:"computers"`
		Policy        string `yaml:"policy"`
		UsersByGroup  string `yaml:"users_by_group"`
		ComputersByOS string `yaml:"computers_by_os"`
	} `yaml:"basenames"`

	Filters struct {
		Users          string `yaml:"users"`
		Computers      string `yaml:"computers"`
		Groups         string `yaml:"groups"`
		SecurityGroups string `yaml:"security_groups"`
		Policy         string `yaml:"policy"`
	} `yaml:"filters"`
}

// DefaultOptions returns the built-in runtime options.
func DefaultOptions() *RuntimeOptions {
	opts := &RuntimeOptions{}
	opts.PageSize = 500
	opts.ResolveWorkers = 8
	return opts
}

// LoadOptions loads runtime options from a YAML file. A missing file is not
// an error: the defaults apply, so a config file is never required.
func LoadOptions(configPath string) (*RuntimeOptions, error) {
	if configPath == "" {
		return DefaultOptions(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOptions(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if opts.PageSize == 0 {
		opts.PageSize = 500
	}
	if opts.ResolveWorkers <= 0 {
		opts.ResolveWorkers = 8
	}

	return opts, nil
}
