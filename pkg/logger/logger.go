package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/d60-Lab/tradetok/config"
)

// L 全局 logger，Init 之前为 Nop
var L = zap.NewNop()

// Init 按配置构建全局 logger；配置了 sentry DSN 时 error 级别日志同步上报
func Init(cfg *config.Config) error {
	var zc zap.Config
	if cfg.IsProduction() || cfg.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.App.Env}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		opts = append(opts, zap.Hooks(sentryHook))
	}

	l, err := zc.Build(opts...)
	if err != nil {
		return err
	}
	L = l.With(zap.String("service", cfg.App.Name))
	return nil
}

func sentryHook(e zapcore.Entry) error {
	if e.Level >= zapcore.ErrorLevel {
		sentry.CaptureMessage(e.Message)
	}
	return nil
}

// Set 替换全局 logger（测试用 zaptest / observer）
func Set(l *zap.Logger) { L = l }

func Debug(msg string, fields ...zap.Field) { L.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { L.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { L.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { L.Error(msg, fields...) }

// Sync 刷新缓冲并等待 sentry 发送完成
func Sync() {
	_ = L.Sync()
	sentry.Flush(2 * time.Second)
}
