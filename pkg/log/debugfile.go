package log

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const debugTimestampFormat = "2006-01-02 15:04:05"

// lineFormatter renders "[2006-01-02 15:04:05] [LEVEL] message".
type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARNING"
	}
	msg := strings.ReplaceAll(entry.Message, "\n", " ")
	return []byte(fmt.Sprintf("[%s] [%s] %s\n", entry.Time.Format(debugTimestampFormat), level, msg)), nil
}

// appendWriter opens the file for every write so that Remove and Trim can
// run while the service is up.
type appendWriter struct {
	path string
	mu   *sync.Mutex
}

func (w appendWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(p)
}

// DebugFile is the append-only debug log shown in the admin debug panel.
type DebugFile struct {
	path   string
	mu     sync.Mutex
	logger *logrus.Logger
}

func NewDebugFile(path string) *DebugFile {
	d := &DebugFile{path: path}
	l := logrus.New()
	l.Out = appendWriter{path: path, mu: &d.mu}
	l.Formatter = lineFormatter{}
	l.Level = logrus.DebugLevel
	d.logger = l
	return d
}

func (d *DebugFile) Path() string {
	return d.path
}

// Debug is written only when the debug mode setting is enabled.
func (d *DebugFile) Debug(enabled bool, format string, args ...interface{}) {
	if !enabled {
		return
	}
	d.logger.Debugf(format, args...)
	logger.Debugf(format, args...)
}

func (d *DebugFile) Info(format string, args ...interface{}) {
	d.logger.Infof(format, args...)
	logger.Infof(format, args...)
}

func (d *DebugFile) Warn(format string, args ...interface{}) {
	d.logger.Warnf(format, args...)
	logger.Warnf(format, args...)
}

func (d *DebugFile) Error(format string, args ...interface{}) {
	d.logger.Errorf(format, args...)
	logger.Errorf(format, args...)
}

// Tail returns the last n lines, or nil when the file does not exist yet.
func (d *DebugFile) Tail(n int) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines, err := d.readLines()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Trim keeps only the last keep lines.
func (d *DebugFile) Trim(keep int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lines, err := d.readLines()
	if err != nil || len(lines) <= keep {
		return err
	}
	lines = lines[len(lines)-keep:]

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return os.WriteFile(d.path, buf.Bytes(), 0o644)
}

// Remove deletes the file; a missing file is not an error.
func (d *DebugFile) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DebugFile) readLines() ([]string, error) {
	f, err := os.Open(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
