package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled key=value lines. A Logger carries context fields
// added with WithField/WithFields; loggers are cheap to derive and safe
// to share.
type Logger struct {
	level  Level
	out    *log.Logger
	fields map[string]interface{}
}

type Config struct {
	Level  Level
	Output io.Writer
}

// New returns a logger at INFO, or at the level named by
// FILEFLOW_LOG_LEVEL when that is set and parseable.
func New() *Logger {
	level := INFO
	if env := os.Getenv("FILEFLOW_LOG_LEVEL"); env != "" {
		if parsed, err := ParseLevel(env); err == nil {
			level = parsed
		}
	}
	return NewWithConfig(Config{Level: level, Output: os.Stdout})
}

func NewWithConfig(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Logger{
		level: config.Level,
		// no prefix/flags, lines are formatted here
		out:    log.New(config.Output, "", 0),
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a derived logger with additional context fields,
// given as alternating key/value pairs. A trailing key without a value
// is dropped.
func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	derived := &Logger{
		level:  l.level,
		out:    l.out,
		fields: make(map[string]interface{}, len(l.fields)+len(keyVals)/2),
	}
	for k, v := range l.fields {
		derived.fields[k] = v
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		derived.fields[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}
	return derived
}

// WithField returns a derived logger with a single additional context field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

func (l *Logger) Debug(msg string, keyVals ...interface{}) {
	l.log(DEBUG, msg, keyVals...)
}

func (l *Logger) Info(msg string, keyVals ...interface{}) {
	l.log(INFO, msg, keyVals...)
}

func (l *Logger) Warn(msg string, keyVals ...interface{}) {
	l.log(WARN, msg, keyVals...)
}

func (l *Logger) Error(msg string, keyVals ...interface{}) {
	l.log(ERROR, msg, keyVals...)
}

func (l *Logger) Fatal(msg string, keyVals ...interface{}) {
	l.log(ERROR, msg, keyVals...)
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (l *Logger) log(level Level, msg string, keyVals ...interface{}) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(keyVals)/2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		merged[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}

	l.out.Print(formatLine(time.Now().Format(timestampFormat), level, msg, merged))
}

// formatLine renders "[ts] [LEVEL] message | k=v k2=v2" with fields in
// key order so lines are stable for grepping and tests.
func formatLine(timestamp string, level Level, msg string, fields map[string]interface{}) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(timestamp)
	b.WriteString("] [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(" |")
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(formatValue(fields[k]))
	}
	return b.String()
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if v == "" || strings.ContainsAny(v, " \t") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) GetLevel() Level {
	return l.level
}

func (l *Logger) IsDebugEnabled() bool {
	return l.level <= DEBUG
}

// global logger instance for the convenience
var globalLogger = New()

func Debug(msg string, keyVals ...interface{}) {
	globalLogger.Debug(msg, keyVals...)
}

func Info(msg string, keyVals ...interface{}) {
	globalLogger.Info(msg, keyVals...)
}

func Warn(msg string, keyVals ...interface{}) {
	globalLogger.Warn(msg, keyVals...)
}

func Error(msg string, keyVals ...interface{}) {
	globalLogger.Error(msg, keyVals...)
}

func Fatal(msg string, keyVals ...interface{}) {
	globalLogger.Fatal(msg, keyVals...)
}

func Fatalf(format string, args ...interface{}) {
	globalLogger.Fatalf(format, args...)
}

func WithFields(keyVals ...interface{}) *Logger {
	return globalLogger.WithFields(keyVals...)
}

func WithField(key string, value interface{}) *Logger {
	return globalLogger.WithField(key, value)
}

func SetLevel(level Level) {
	globalLogger.SetLevel(level)
}

func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", level)
	}
}
