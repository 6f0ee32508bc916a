// Package core provides the ambient pieces of domaindump: console and file
// logging, output directory setup, formatting helpers and the end-of-run
// summary.
package core

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	infoPrefix    = color.New(color.FgCyan).Sprint("[*]")
	warnPrefix    = color.New(color.FgYellow).Sprint("[!]")
	successPrefix = color.New(color.FgGreen).Sprint("[+]")
)

// Logger writes prefixed status lines to the console and, optionally,
// timestamped copies to a log file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger creates a logger. file may be nil for console-only logging.
func NewLogger(file *os.File) *Logger {
	return &Logger{file: file}
}

// Infof logs a status line.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(infoPrefix, "[*]", format, args...)
}

// Warnf logs a non-fatal fault.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(warnPrefix, "[!]", format, args...)
}

// Successf logs a completed milestone.
func (l *Logger) Successf(format string, args ...interface{}) {
	l.log(successPrefix, "[+]", format, args...)
}

func (l *Logger) log(prefix, filePrefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Printf("%s %s\n", prefix, msg)

	if l.file != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		fmt.Fprintf(l.file, "[%s] %s %s\n", timestamp, filePrefix, msg)
	}
}

// Close closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// OpenLogFile opens a log file for appending.
func OpenLogFile(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
