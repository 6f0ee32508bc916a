package ldap

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// RawDumper writes fetched entry sets to disk as msgpack snapshots, one file
// per fetch stage. The snapshot keeps every attribute the server returned,
// including the ones the reports never show, so reports can be regenerated
// later with different column sets without touching the directory again.
type RawDumper struct {
	dir string
}

func NewRawDumper(dir string) *RawDumper {
	return &RawDumper{dir: dir}
}

// Dump writes the entries to <dir>/<name>.msgpack as a single msgpack array
// and returns the file path and its size. The entry count is known upfront,
// so the array32 header is written directly instead of being patched in
// afterwards.
func (d *RawDumper) Dump(name string, entries []*Entry) (string, int64, error) {
	path := filepath.Join(d.dir, name+".msgpack")

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create raw dump: %w", err)
	}

	w := bufio.NewWriterSize(f, 1024*1024)

	count := len(entries)
	header := []byte{
		0xdd, // array32
		byte(count >> 24),
		byte(count >> 16),
		byte(count >> 8),
		byte(count),
	}
	if _, err := w.Write(header); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("write raw dump header: %w", err)
	}

	enc := msgpack.NewEncoder(w)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			f.Close()
			return "", 0, fmt.Errorf("encode entry %q: %w", entry.DN, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("flush raw dump: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return "", 0, err
	}

	if err := f.Close(); err != nil {
		return "", 0, err
	}

	return path, info.Size(), nil
}
