// Package logging provides structured logging for the AIO engine.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with engine-specific structured fields.
type Logger struct {
	zlog zerolog.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = LogLevel(zerolog.DebugLevel)
	LevelInfo  LogLevel = LogLevel(zerolog.InfoLevel)
	LevelWarn  LogLevel = LogLevel(zerolog.WarnLevel)
	LevelError LogLevel = LogLevel(zerolog.ErrorLevel)
)

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "json" or "text"
	Output  io.Writer
	Sync    bool // synchronous writes, useful for testing
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// asyncWriter decouples log emission from the submission hot path. Writes are
// dropped rather than blocking when the buffer fills.
type asyncWriter struct {
	out    io.Writer
	ch     chan []byte
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

func newAsyncWriter(w io.Writer, bufferSize int) *asyncWriter {
	aw := &asyncWriter{
		out:  w,
		ch:   make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go aw.run()
	return aw
}

func (aw *asyncWriter) run() {
	defer close(aw.done)
	for msg := range aw.ch {
		aw.out.Write(msg)
	}
}

func (aw *asyncWriter) Write(p []byte) (n int, err error) {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	aw.mu.Unlock()

	// zerolog reuses its buffer after Write returns
	msg := make([]byte, len(p))
	copy(msg, p)

	select {
	case aw.ch <- msg:
		return len(p), nil
	default:
		return len(p), nil
	}
}

func (aw *asyncWriter) Close() error {
	aw.mu.Lock()
	if !aw.closed {
		aw.closed = true
		close(aw.ch)
	}
	aw.mu.Unlock()
	<-aw.done
	return nil
}

// NewLogger creates a new structured logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = config.Output
	if !config.Sync {
		output = newAsyncWriter(config.Output, 1000)
	}

	var zlog zerolog.Logger
	switch config.Format {
	case "json":
		zlog = zerolog.New(output).With().Timestamp().Logger()
	default:
		consoleWriter := zerolog.ConsoleWriter{Out: output, NoColor: config.NoColor}
		zlog = zerolog.New(consoleWriter).With().Timestamp().Logger()
	}

	zlog = zlog.Level(zerolog.Level(config.Level))

	return &Logger{zlog: zlog}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// WithEngine returns a logger tagged with an engine instance name.
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("engine", name).Logger()}
}

// WithOp returns a logger tagged with the lifecycle operation in progress.
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("op", op).Logger()}
}

// WithRequest returns a logger tagged with one request's identity.
func (l *Logger) WithRequest(index uint32, dir string) *Logger {
	return &Logger{zlog: l.zlog.With().Uint32("index", index).Str("dir", dir).Logger()}
}

// WithError returns a logger with error context.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

func (l *Logger) emit(event *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		event = event.Interface(key, args[i+1])
	}
	event.Msg(msg)
}

// Debug logs at debug level with alternating key/value args.
func (l *Logger) Debug(msg string, args ...any) { l.emit(l.zlog.Debug(), msg, args) }

// Info logs at info level with alternating key/value args.
func (l *Logger) Info(msg string, args ...any) { l.emit(l.zlog.Info(), msg, args) }

// Warn logs at warn level with alternating key/value args.
func (l *Logger) Warn(msg string, args ...any) { l.emit(l.zlog.Warn(), msg, args) }

// Error logs at error level with alternating key/value args.
func (l *Logger) Error(msg string, args ...any) { l.emit(l.zlog.Error(), msg, args) }

// Printf-style variants for harness code.
func (l *Logger) Debugf(format string, args ...any) { l.zlog.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zlog.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zlog.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zlog.Error().Msgf(format, args...) }

// Convenience functions on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
