package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOptionsDefaults(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		opts, err := LoadOptions("")
		if err != nil {
			t.Fatalf("LoadOptions: %v", err)
		}
		if opts.PageSize != 500 {
			t.Errorf("PageSize = %d, want 500", opts.PageSize)
		}
		if opts.ResolveWorkers != 8 {
			t.Errorf("ResolveWorkers = %d, want 8", opts.ResolveWorkers)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		opts, err := LoadOptions(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("missing config file should not be an error: %v", err)
		}
		if opts.PageSize != 500 {
			t.Errorf("PageSize = %d, want default 500", opts.PageSize)
		}
	})
}

func TestLoadOptionsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
page_size: 1000
columns:
  users: [cn, sAMAccountName]
basenames:
  users: all_users
filters:
  computers: "(&(objectClass=computer)(operatingSystem=*))"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}

	if opts.PageSize != 1000 {
		t.Errorf("PageSize = %d, want 1000", opts.PageSize)
	}
	if opts.ResolveWorkers != 8 {
		t.Errorf("ResolveWorkers = %d, want untouched default 8", opts.ResolveWorkers)
	}
	if len(opts.Columns.Users) != 2 || opts.Columns.Users[0] != "cn" {
		t.Errorf("Columns.Users = %v", opts.Columns.Users)
	}
	if opts.Basenames.Users != "all_users" {
		t.Errorf("Basenames.Users = %q", opts.Basenames.Users)
	}
	if opts.Filters.Computers == "" {
		t.Errorf("Filters.Computers override lost")
	}
	if opts.Filters.Users != "" {
		t.Errorf("Filters.Users = %q, want empty (keep default)", opts.Filters.Users)
	}
}

func TestLoadOptionsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("page_size: [not an int"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadOptions(path); err == nil {
		t.Errorf("malformed YAML should be an error")
	}
}
