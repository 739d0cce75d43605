package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"golfjudge/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *Logger

// Logger wraps zap logger with context support
type Logger struct {
	zap *zap.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // json, console
	OutputPath string `yaml:"outputPath"` // file path or "stdout"
	ErrorPath  string `yaml:"errorPath"`  // error log file path or "stderr"
}

// Init initializes the global logger
func Init(cfg Config) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// NewLogger creates a new logger instance
func NewLogger(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    "func",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Choose encoder
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	errorPath := cfg.ErrorPath
	if errorPath == "" {
		errorPath = "stderr"
	}

	writeSyncer, err := openSink(outputPath)
	if err != nil {
		return nil, err
	}

	errorSyncer, err := openSink(errorPath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(2),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(errorSyncer),
	)

	return &Logger{zap: zapLogger}, nil
}

func openSink(path string) (zapcore.WriteSyncer, error) {
	switch path {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(file), nil
}

// customTimeEncoder formats time in RFC3339 format
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(time.RFC3339))
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

var contextFields = []struct {
	key  interface{}
	name string
}{
	{contextkey.TraceID, "trace_id"},
	{contextkey.EvaluationID, "evaluation_id"},
	{contextkey.Language, "language"},
}

func extractFieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	for _, f := range contextFields {
		if v := ctx.Value(f.key); v != nil {
			fields = append(fields, zap.String(f.name, fmt.Sprint(v)))
		}
	}
	return fields
}

// WithEvaluation tags ctx so every log line of one evaluation carries its id.
func WithEvaluation(ctx context.Context, id, language string) context.Context {
	ctx = context.WithValue(ctx, contextkey.EvaluationID, id)
	if language != "" {
		ctx = context.WithValue(ctx, contextkey.Language, language)
	}
	return ctx
}

// Debug logs a debug message
func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs an info message
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs an error message
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.ErrorLevel, msg, fields)
}

// logAt skips context extraction entirely when the level is disabled.
func logAt(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) {
	if globalLogger == nil {
		return
	}
	ce := globalLogger.zap.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(append(extractFieldsFromContext(ctx), fields...)...)
}

// Sync flushes the global logger
func Sync() error {
	if globalLogger == nil {
		return nil
	}
	return globalLogger.Sync()
}

// SetLogger replaces the global logger; tests use it with zap's observer core.
func SetLogger(z *zap.Logger) {
	if z == nil {
		globalLogger = nil
		return
	}
	globalLogger = &Logger{zap: z}
}
