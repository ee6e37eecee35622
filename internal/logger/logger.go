package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities; messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// Line prefixes written in front of each message.
const (
	debugPrefix   = "🔍 DEBUG   "
	infoPrefix    = "ℹ️  INFO    "
	warningPrefix = "⚠️  WARNING "
	errorPrefix   = "❌ ERROR   "
)

var linePrefixes = []struct {
	level  Level
	prefix string
}{
	{LevelError, errorPrefix},
	{LevelWarning, warningPrefix},
	{LevelInfo, infoPrefix},
	{LevelDebug, debugPrefix},
}

// SplitLine finds the level marker in a line written by another Logger and
// returns its level and the message after the marker. ok is false for lines
// without a marker; the whole line is returned as the message.
func SplitLine(line string) (level Level, msg string, ok bool) {
	for _, p := range linePrefixes {
		if i := strings.Index(line, p.prefix); i >= 0 {
			return p.level, line[i+len(p.prefix):], true
		}
	}
	return LevelInfo, line, false
}

// Files lists the per-level log files written under the log directory.
var Files = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ParseLevel maps a level name to a Level. Unknown names fall back to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled logging to rotating files and stdout/stderr.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	level      Level
	prefix     string
	logDir     string
	files      []*lumberjack.Logger
	mu         *sync.Mutex
}

// NewLogger creates a Logger writing to stdout and to rotating info/warning/error
// files under dir. Debug output goes to the console only.
func NewLogger(dir, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		level:  ParseLevel(level),
		logDir: dir,
		mu:     &sync.Mutex{},
	}

	infoFile := l.openLogFile(Files["info"])
	warningFile := l.openLogFile(Files["warning"])
	errorFile := l.openLogFile(Files["error"])

	l.setupLoggers(
		os.Stdout,
		io.MultiWriter(os.Stdout, infoFile),
		io.MultiWriter(os.Stdout, warningFile),
		io.MultiWriter(os.Stderr, errorFile),
	)
	return l, nil
}

// NewConsole creates a Logger that writes every level to w and keeps no files.
// Worker processes use it so their output can be relayed by the parent.
func NewConsole(w io.Writer, level string) *Logger {
	l := &Logger{
		level: ParseLevel(level),
		mu:    &sync.Mutex{},
	}
	l.setupLoggers(w, w, w, w)
	return l
}

func (l *Logger) setupLoggers(debug, info, warning, errw io.Writer) {
	flags := log.Ldate | log.Ltime | log.Lmsgprefix
	l.debugLog = log.New(debug, debugPrefix, flags)
	l.infoLog = log.New(info, infoPrefix, flags)
	l.warningLog = log.New(warning, warningPrefix, flags)
	l.errorLog = log.New(errw, errorPrefix, flags)
}

// openLogFile returns a size-rotated writer for filename.
func (l *Logger) openLogFile(filename string) *lumberjack.Logger {
	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, filename),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	l.files = append(l.files, file)
	return file
}

// Named returns a Logger sharing the same outputs whose messages are tagged
// with [name], e.g. the camera a worker serves.
func (l *Logger) Named(name string) *Logger {
	child := *l
	child.prefix = l.prefix + "[" + name + "] "
	return &child
}

// Dir returns the directory holding the log files; empty for console loggers.
func (l *Logger) Dir() string {
	return l.logDir
}

func (l *Logger) output(target *log.Logger, level Level, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	target.Output(3, l.prefix+fmt.Sprintf(format, v...))
}

// Log writes a formatted entry at the given level.
func (l *Logger) Log(level Level, format string, v ...interface{}) {
	switch level {
	case LevelDebug:
		l.output(l.debugLog, level, format, v...)
	case LevelWarning:
		l.output(l.warningLog, level, format, v...)
	case LevelError:
		l.output(l.errorLog, level, format, v...)
	default:
		l.output(l.infoLog, LevelInfo, format, v...)
	}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.output(l.debugLog, LevelDebug, format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(l.infoLog, LevelInfo, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(l.warningLog, LevelWarning, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(l.errorLog, LevelError, format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		return fmt.Errorf("failed to clear %s: %w", fileName, err)
	}
	return nil
}

// Close closes the rotating log files.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
