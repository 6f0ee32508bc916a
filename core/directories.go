package core

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directories holds the paths reports and raw dumps are written to.
type Directories struct {
	Base string
	Raw  string
}

// SetupDirectories creates the output directory structure. The raw/
// subdirectory only exists when raw dumps are enabled.
func SetupDirectories(baseDir string, rawDumps bool) (*Directories, error) {
	dirs := &Directories{
		Base: baseDir,
	}

	if err := os.MkdirAll(dirs.Base, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", dirs.Base, err)
	}

	if rawDumps {
		dirs.Raw = filepath.Join(baseDir, "raw")
		if err := os.MkdirAll(dirs.Raw, 0755); err != nil {
			return nil, fmt.Errorf("create raw dump directory %q: %w", dirs.Raw, err)
		}
	}

	return dirs, nil
}
