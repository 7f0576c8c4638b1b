// Package runlog appends per-file processing outcomes to a plain text log.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Logger writes one pipe-separated line per processed file. Lines are only
// ever appended; previous runs stay intact.
type Logger struct {
	f   *os.File
	now func() time.Time
}

// Open opens or creates the log file for appending.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{f: f, now: time.Now}, nil
}

// Log appends one outcome line: timestamp, uppercased status tag, file
// label, free detail.
func (l *Logger) Log(status, file, details string) error {
	line := fmt.Sprintf("%s | %s | %s | %s\n",
		l.now().Format(timeLayout), strings.ToUpper(status), file, details)
	_, err := l.f.WriteString(line)
	return err
}

func (l *Logger) Close() error {
	return l.f.Close()
}
