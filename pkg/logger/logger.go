package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a leveled structured logger. Error entries are also handed to
// the attached LogCollector, if any.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string    // debug, info, warn, error
	Format     string    // json or console
	Output     string    // stdout, stderr, or file path
	TimeFormat string    // defaults to RFC3339Nano
	Writer     io.Writer // overrides Output when set
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := cfg.Writer
	if output == nil {
		switch cfg.Output {
		case "", "stdout":
			output = os.Stdout
		case "stderr":
			output = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("could not open log file: %w", err)
			}
			output = file
		}
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &Logger{zl: ctx.Logger(), collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { l.emit(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { l.emit(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(l.zl.Error(), msg, fields)
	l.addToCollector("error", msg, fields)
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		f.add(event)
	}
	event.Msg(msg)
}

func (l *Logger) addToCollector(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, "FinCast"); i >= 0 {
			file = file[i+len("FinCast"):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}
	fieldMap := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}
	l.collector.AddLog(level, msg, fieldMap, caller)
}

// AddCollector attaches a collector, replacing and closing any previous one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// Field is a typed key/value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
	add   func(e *zerolog.Event)
}

func String(key, value string) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Str(key, value) }}
}

func Strings(key string, value []string) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Strs(key, value) }}
}

func Int(key string, value int) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Int64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Float64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Bool(key, value) }}
}

// Duration logs milliseconds.
func Duration(key string, value time.Duration) Field {
	ms := value.Milliseconds()
	return Field{key, ms, func(e *zerolog.Event) { e.Int64(key, ms) }}
}

func Any(key string, value interface{}) Field {
	return Field{key, value, func(e *zerolog.Event) { e.Interface(key, value) }}
}

// Error logs err under "error". A nil error is logged as null.
func Error(err error) Field {
	var v interface{}
	if err != nil {
		v = err.Error()
	}
	return Field{"error", v, func(e *zerolog.Event) { e.Err(err) }}
}
