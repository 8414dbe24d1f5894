// Package logging builds the process-wide zap logger from config.
package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/socialnet/apiserver/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// New returns a logger writing to stderr in the configured format. Unknown
// levels fall back to info.
func New(cfg config.LogConfig) *zap.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter uses the JSON encoder for LOG_FORMAT=json and the console
// encoder otherwise.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller()).With(zap.String("app", "socialnet"))
}

// Discard returns a logger that drops every record.
func Discard() *zap.Logger {
	return zap.NewNop()
}

// StdLogger adapts logger for libraries that expect a *log.Logger, such as
// chi's request logger and http.Server.ErrorLog.
func StdLogger(logger *zap.Logger, level zapcore.Level) *log.Logger {
	std, err := zap.NewStdLogAt(logger, level)
	if err != nil {
		return zap.NewStdLog(logger)
	}
	return std
}

func ParseLevel(value string) zapcore.Level {
	if level, ok := levels[strings.ToLower(strings.TrimSpace(value))]; ok {
		return level
	}
	return zapcore.InfoLevel
}
