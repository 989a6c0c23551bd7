package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DeBrosOfficial/statehead/pkg/config"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	// Standard colors
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"

	// Bright colors
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// ColoredLogger wraps zap.Logger with colored output
type ColoredLogger struct {
	*zap.Logger
	enableColors bool
}

// Component represents different parts of the system for color coding
type Component string

const (
	ComponentGateway      Component = "GATEWAY"
	ComponentRegistry     Component = "REGISTRY"
	ComponentMembership   Component = "MEMBERSHIP"
	ComponentAggregator   Component = "AGGREGATOR"
	ComponentAgent        Component = "AGENT"
	ComponentControlPlane Component = "CONTROLPLANE"
	ComponentGeneral      Component = "GENERAL"
)

// getComponentColor returns the color for a specific component
func getComponentColor(component Component) string {
	switch component {
	case ComponentGateway:
		return BrightGreen
	case ComponentRegistry:
		return BrightBlue
	case ComponentMembership:
		return BrightCyan
	case ComponentAggregator:
		return BrightYellow
	case ComponentAgent:
		return Blue
	case ComponentControlPlane:
		return BrightMagenta
	case ComponentGeneral:
		return Yellow
	default:
		return White
	}
}

// getLevelColor returns the color for a log level
func getLevelColor(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return Gray
	case zapcore.InfoLevel:
		return BrightWhite
	case zapcore.WarnLevel:
		return BrightYellow
	case zapcore.ErrorLevel:
		return BrightRed
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return Red
	default:
		return White
	}
}

// coloredConsoleEncoder creates a custom encoder with colors
func coloredConsoleEncoder(enableColors bool) zapcore.Encoder {
	config := zap.NewDevelopmentEncoderConfig()

	// Ultra-short timestamp: HH:MM:SS (no milliseconds, no date, no timezone)
	config.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		timeStr := t.Format("15:04:05")
		if enableColors {
			enc.AppendString(fmt.Sprintf("%s%s%s", Dim, timeStr, Reset))
		} else {
			enc.AppendString(timeStr)
		}
	}

	// Single letter level: D, I, W, E
	config.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		levelMap := map[zapcore.Level]string{
			zapcore.DebugLevel: "D",
			zapcore.InfoLevel:  "I",
			zapcore.WarnLevel:  "W",
			zapcore.ErrorLevel: "E",
		}
		levelStr := levelMap[level]
		if levelStr == "" {
			levelStr = "?"
		}
		if enableColors {
			color := getLevelColor(level)
			enc.AppendString(fmt.Sprintf("%s%s%s%s", color, Bold, levelStr, Reset))
		} else {
			enc.AppendString(levelStr)
		}
	}

	// Just filename, no line number for cleaner output
	config.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		file := caller.File
		// Extract just the filename from the path
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			file = file[idx+1:]
		}
		// Remove .go extension for even more compact format
		if strings.HasSuffix(file, ".go") {
			file = file[:len(file)-3]
		}
		if enableColors {
			enc.AppendString(fmt.Sprintf("%s%s%s", Dim, file, Reset))
		} else {
			enc.AppendString(file)
		}
	}

	return zapcore.NewConsoleEncoder(config)
}

// New builds a logger from the logging section of the config. Console
// output to a terminal is colored; files and json output never are.
func New(cfg config.LoggingConfig) (*ColoredLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	sink := zapcore.AddSync(os.Stdout)
	colors := true
	if cfg.OutputFile != "" {
		file, err := openLogFile(cfg.OutputFile)
		if err != nil {
			return nil, err
		}
		sink = zapcore.AddSync(file)
		colors = false
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		colors = false
	case "", "console":
		encoder = coloredConsoleEncoder(colors)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return build(encoder, sink, level, colors), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *ColoredLogger {
	return &ColoredLogger{Logger: zap.NewNop()}
}

func build(encoder zapcore.Encoder, sink zapcore.WriteSyncer, level zapcore.Level, colors bool) *ColoredLogger {
	core := zapcore.NewCore(encoder, sink, level)
	return &ColoredLogger{
		Logger:       zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		enableColors: colors,
	}
}

func openLogFile(filePath string) (*os.File, error) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}
	return file, nil
}

func (l *ColoredLogger) tag(component Component, msg string) string {
	if l.enableColors {
		return fmt.Sprintf("%s[%s]%s %s", getComponentColor(component), component, Reset, msg)
	}
	return fmt.Sprintf("[%s] %s", component, msg)
}

// Component-specific logging methods
func (l *ColoredLogger) ComponentInfo(component Component, msg string, fields ...zap.Field) {
	l.Info(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentWarn(component Component, msg string, fields ...zap.Field) {
	l.Warn(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentError(component Component, msg string, fields ...zap.Field) {
	l.Error(l.tag(component, msg), fields...)
}

func (l *ColoredLogger) ComponentDebug(component Component, msg string, fields ...zap.Field) {
	l.Debug(l.tag(component, msg), fields...)
}

// StandardLogger adapts a ColoredLogger to the Printf-style interface
// expected by net/http's ErrorLog and similar hooks.
type StandardLogger struct {
	logger    *ColoredLogger
	component Component
}

// NewStandardLogger wraps an existing logger under a component tag.
func NewStandardLogger(logger *ColoredLogger, component Component) *StandardLogger {
	return &StandardLogger{logger: logger, component: component}
}

// Write implements io.Writer so the adapter can back a *log.Logger.
func (s *StandardLogger) Write(p []byte) (int, error) {
	s.logger.ComponentWarn(s.component, strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
