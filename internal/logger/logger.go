package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps DEBUG, INFO, WARN or ERROR to a Level. Unknown values mean INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ErrObj carries the error message of WARN and ERROR entries.
type ErrObj struct {
	Msg string `json:"msg"`
}

// Entry is a single structured log line.
type Entry struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Service    string         `json:"service"`
	Action     string         `json:"action"`
	Message    string         `json:"message"`
	Hostname   string         `json:"hostname"`
	Actor      string         `json:"actor,omitempty"`
	BookingID  string         `json:"booking_id,omitempty"`
	Error      *ErrObj        `json:"error,omitempty"`
	Additional map[string]any `json:"additional,omitempty"`
}

// Err builds the error object for an entry; nil errors yield nil.
func Err(err error) *ErrObj {
	if err == nil {
		return nil
	}
	return &ErrObj{Msg: err.Error()}
}

// Logger writes JSON lines. ERROR entries go to the error writer.
type Logger struct {
	service  string
	minLevel Level
	hostname string

	mu        sync.Mutex
	outWriter io.Writer
	errWriter io.Writer
}

// New returns a logger writing to stdout and stderr.
func New(service, minLevel string) *Logger {
	h, _ := os.Hostname()
	return &Logger{
		service:   service,
		minLevel:  ParseLevel(minLevel),
		hostname:  h,
		outWriter: os.Stdout,
		errWriter: os.Stderr,
	}
}

// NewWithWriter returns a logger sending every level to w.
func NewWithWriter(service string, minLevel Level, w io.Writer) *Logger {
	h, _ := os.Hostname()
	return &Logger{
		service:   service,
		minLevel:  minLevel,
		hostname:  h,
		outWriter: w,
		errWriter: w,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter("discard", LevelError+1, io.Discard)
}

func (l *Logger) Debug(e Entry) { l.log(LevelDebug, e) }
func (l *Logger) Info(e Entry)  { l.log(LevelInfo, e) }
func (l *Logger) Warn(e Entry)  { l.log(LevelWarn, e) }
func (l *Logger) Error(e Entry) { l.log(LevelError, e) }

func (l *Logger) log(level Level, e Entry) {
	if l == nil || level < l.minLevel {
		return
	}

	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	e.Level = level.String()
	if e.Service == "" {
		e.Service = l.service
	}
	if e.Hostname == "" {
		e.Hostname = l.hostname
	}

	b, err := json.Marshal(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		fmt.Fprintf(l.errWriter, `{"timestamp":%q,"level":"ERROR","service":%q,"message":"failed to marshal log: %v"}`+"\n",
			time.Now().UTC().Format(time.RFC3339Nano), l.service, err)
		return
	}

	writer := l.outWriter
	if level == LevelError {
		writer = l.errWriter
	}
	_, _ = writer.Write(append(b, '\n'))
}
