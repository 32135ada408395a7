package logger

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base = zap.NewNop()

	// Info and Error keep the printf-style call sites used across the server.
	Info  = zap.NewStdLog(base)
	Error = zap.NewStdLog(base)
)

// Init builds the process logger. level is one of debug, info, warn, error.
func Init(level string, development bool) error {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	set(l)
	return nil
}

func set(l *zap.Logger) {
	base = l
	Info = zap.NewStdLog(l)
	// ErrorLevel is always valid here
	Error, _ = zap.NewStdLogAt(l, zap.ErrorLevel)
}

// L returns the structured logger.
func L() *zap.Logger {
	return base
}

// Sync flushes buffered entries.
func Sync() {
	_ = base.Sync()
}

// Gin logs each request once it completes.
func Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			base.Error("request", fields...)
		case c.Writer.Status() >= 400:
			base.Warn("request", fields...)
		default:
			base.Info("request", fields...)
		}
	}
}
