// Package logging writes diagnostics to a colorized console stream and an
// append-only JSON-lines file. Logging failures degrade the affected channel
// and never abort the host process.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

const (
	DefaultDir      = "logs"
	DefaultFilename = "horizon-sdlc.log"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Config is built once at process start and passed in; the logger never
// reads the environment on its own.
type Config struct {
	Dir      string
	Filename string
	MinLevel Level
	JSON     bool
	Console  bool
}

func DefaultConfig() Config {
	return Config{
		Dir:      DefaultDir,
		Filename: DefaultFilename,
		MinLevel: LevelInfo,
		JSON:     true,
		Console:  true,
	}
}

// ConfigFromEnv reads LOG_DIR, LOG_FILE, LOG_LEVEL, ENABLE_JSON_LOGGING and
// ENABLE_CONSOLE_LOGGING, keeping defaults for anything unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Filename = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.MinLevel = ParseLevel(v)
	}
	cfg.JSON = envBool("ENABLE_JSON_LOGGING", true)
	cfg.Console = envBool("ENABLE_CONSOLE_LOGGING", true)
	return cfg
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

// Record is one diagnostic event, one JSON object per log file line.
// LineNumber refers to a line in a file being processed, not the call site;
// ScriptLine is the call site.
type Record struct {
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	Operation  string `json:"operation"`
	Filename   string `json:"filename"`
	LineNumber int    `json:"line_number"`
	ScriptLine int    `json:"script_line"`
	Message    string `json:"message"`
}

// Logger is the single writer of its log file. Safe for concurrent use.
type Logger struct {
	cfg Config

	mu        sync.Mutex
	file      *os.File
	jsonOK    bool
	warned    bool
	sessionID string

	console  io.Writer
	errw     io.Writer
	colorize bool
}

func New(cfg Config) *Logger {
	return &Logger{
		cfg:      cfg,
		console:  os.Stdout,
		errw:     os.Stderr,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Path returns the JSON log file location.
func (l *Logger) Path() string {
	return filepath.Join(l.cfg.Dir, l.cfg.Filename)
}

// Setup opens the JSON log file, creating its directory, and writes the
// session_start record. On failure it warns on stderr, disables the JSON
// channel for the rest of the process and returns the error; console
// logging is unaffected and callers are expected to carry on.
func (l *Logger) Setup(component string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.cfg.JSON || l.file != nil {
		return nil
	}

	if err := os.MkdirAll(l.cfg.Dir, 0755); err != nil {
		l.disableJSONLocked(fmt.Sprintf("creating log directory %s: %v", l.cfg.Dir, err))
		return err
	}

	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.disableJSONLocked(fmt.Sprintf("opening %s: %v", l.Path(), err))
		return err
	}

	l.file = f
	l.jsonOK = true
	l.sessionID = uuid.NewString()

	file, line := location(1)
	l.writeJSONLocked(Record{
		Timestamp:  timestamp(),
		Level:      LevelInfo.String(),
		Operation:  "session_start",
		Filename:   file,
		ScriptLine: line,
		Message:    fmt.Sprintf("logging session %s started for %s", l.sessionID, component),
	})
	return nil
}

// Cleanup writes the session_end record and closes the file. Safe to call
// when Setup never ran or already failed, and idempotent.
func (l *Logger) Cleanup(component string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	if l.jsonOK {
		file, line := location(1)
		l.writeJSONLocked(Record{
			Timestamp:  timestamp(),
			Level:      LevelInfo.String(),
			Operation:  "session_end",
			Filename:   file,
			ScriptLine: line,
			Message:    fmt.Sprintf("logging session %s ended for %s", l.sessionID, component),
		})
	}

	l.file.Close()
	l.file = nil
	l.jsonOK = false
}

func (l *Logger) Debug(op, format string, args ...any) { l.emit(LevelDebug, op, 0, format, args...) }
func (l *Logger) Info(op, format string, args ...any)  { l.emit(LevelInfo, op, 0, format, args...) }
func (l *Logger) Warn(op, format string, args ...any)  { l.emit(LevelWarn, op, 0, format, args...) }
func (l *Logger) Error(op, format string, args ...any) { l.emit(LevelError, op, 0, format, args...) }
func (l *Logger) Fatal(op, format string, args ...any) { l.emit(LevelFatal, op, 0, format, args...) }

// Log emits a record at an arbitrary level.
func (l *Logger) Log(level Level, op, format string, args ...any) {
	l.emit(level, op, 0, format, args...)
}

// LogFileLine emits a record about a specific line of a file being
// processed, carried in the record's line_number field.
func (l *Logger) LogFileLine(level Level, op string, targetLine int, format string, args ...any) {
	l.emit(level, op, targetLine, format, args...)
}

// emit is the single sink behind every level wrapper. All wrappers are
// exactly one frame deep, so the call site is two frames above emit.
func (l *Logger) emit(level Level, op string, targetLine int, format string, args ...any) {
	if level < l.cfg.MinLevel {
		return
	}

	msg := fmt.Sprintf(format, args...)
	ts := timestamp()
	file, line := location(2)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.Console {
		text := fmt.Sprintf("[%s][%s][%s][%d][%s] %s", ts, level, file, line, op, msg)
		if l.colorize {
			fmt.Fprintf(l.console, "%s%s%s\n", level.color(), text, colorReset)
		} else {
			fmt.Fprintln(l.console, text)
		}
	}

	if l.jsonOK {
		l.writeJSONLocked(Record{
			Timestamp:  ts,
			Level:      level.String(),
			Operation:  op,
			Filename:   file,
			LineNumber: targetLine,
			ScriptLine: line,
			Message:    msg,
		})
	}
}

// writeJSONLocked appends one record to the log file. A write failure
// disables the JSON channel for the rest of the process; the error is not
// surfaced to the caller.
func (l *Logger) writeJSONLocked(rec Record) {
	data, err := json.Marshal(rec)
	if err == nil {
		data = append(data, '\n')
		_, err = l.file.Write(data)
	}
	if err != nil {
		l.disableJSONLocked(fmt.Sprintf("writing %s: %v", l.Path(), err))
	}
}

// disableJSONLocked turns the JSON channel off permanently, warning on
// stderr once.
func (l *Logger) disableJSONLocked(reason string) {
	l.jsonOK = false
	l.cfg.JSON = false
	if !l.warned {
		l.warned = true
		fmt.Fprintf(l.errw, "WARNING: JSON logging disabled: %s\n", reason)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// location reports the source file and line skip frames above its caller,
// with sentinels when no frame exists (e.g. calls from an interactive
// session).
func location(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}
